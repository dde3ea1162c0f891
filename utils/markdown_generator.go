package utils

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/alecthomas/chroma/v2/quick"
)

var codeFenceRegex = regexp.MustCompile("```([a-zA-Z0-9+#-]*)")

// DetectLanguageFromCodeBlock returns the language tag of the first fenced
// code block in the content, defaulting to markdown.
func DetectLanguageFromCodeBlock(content string) string {
	if match := codeFenceRegex.FindStringSubmatch(content); match != nil && match[1] != "" {
		return match[1]
	}
	return "markdown"
}

// RenderAndPrintMarkdownWithContext renders assistant output to the terminal
// with syntax highlighting and cancellation support.
func RenderAndPrintMarkdownWithContext(ctx context.Context, content string, language string, theme string) error {
	lines := strings.Split(content, "\n")

	for i, line := range lines {
		if i%5 == 0 {
			select {
			case <-ctx.Done():
				fmt.Print("\n\nOutput interrupted...\n")
				return ctx.Err()
			default:
			}
		}

		var buf bytes.Buffer
		if err := quick.Highlight(&buf, line+"\n", language, "terminal256", theme); err != nil {
			return err
		}
		fmt.Print(buf.String())
	}

	return nil
}
