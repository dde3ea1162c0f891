package actions

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
)

// Operation distinguishes file creation from modification.
type Operation string

const (
	OperationCreate Operation = "create"
	OperationModify Operation = "modify"
)

// FileAction is one file directive extracted from model output, in the order
// it appeared.
type FileAction struct {
	Path      string
	Content   string
	Operation Operation
}

var (
	createBlockRegex = regexp.MustCompile(`(?s)\[CREATE:\s*([^\]]+)\]\s*\n(.*?)\[/CREATE\]`)
	modifyBlockRegex = regexp.MustCompile(`(?s)\[MODIFY:\s*([^\]]+)\]\s*\n(.*?)\[/MODIFY\]`)

	// Legacy form: [FILE: path] followed by an optional fenced block,
	// terminated by a closing fence, [/FILE], or end of text.
	fileBlockRegex = regexp.MustCompile(`(?s)\[FILE:\s*([^\]]+)\]\s*\n(?:\x60\x60\x60[a-zA-Z0-9]*\n)?(.*?)(?:\x60\x60\x60|\[/FILE\]|\z)`)

	fencedBlockRegex = regexp.MustCompile("(?s)```([a-zA-Z0-9+#-]*)\\n(.*?)```")

	// An embedded filename comment inside a fenced block names the file
	// verbatim, e.g. "// src/app.js" or "# main.py".
	filenameCommentRegex = regexp.MustCompile(`(?m)^\s*(?://|#|<!--|/\*)\s*(?:filename:\s*)?([\w./-]+\.[a-zA-Z0-9]+)\s*(?:-->|\*/)?\s*$`)
)

// languageExtensions maps fenced-block language tags to file extensions for
// synthetic names.
var languageExtensions = map[string]string{
	"javascript": "js",
	"js":         "js",
	"jsx":        "jsx",
	"typescript": "ts",
	"ts":         "ts",
	"tsx":        "tsx",
	"python":     "py",
	"py":         "py",
	"html":       "html",
	"css":        "css",
	"scss":       "scss",
	"json":       "json",
	"markdown":   "md",
	"md":         "md",
	"sql":        "sql",
}

type positionedAction struct {
	position int
	action   FileAction
}

// ExtractFileActions parses model output for embedded file directives and
// returns the target files in order of appearance. Three strategies apply in
// decreasing priority: explicit [CREATE:]/[MODIFY:]/[FILE:] blocks, then a
// fenced-code-block fallback when no directive matched, then filename
// normalization on every result. Models do not reliably emit the directive
// syntax, so the fallback has to produce usable files from plain code blocks.
func ExtractFileActions(output string) []FileAction {
	var positioned []positionedAction

	collect := func(regex *regexp.Regexp, operation Operation) {
		for _, match := range regex.FindAllStringSubmatchIndex(output, -1) {
			path := strings.TrimSpace(output[match[2]:match[3]])
			content := strings.TrimSpace(output[match[4]:match[5]])
			if path == "" {
				continue
			}
			positioned = append(positioned, positionedAction{
				position: match[0],
				action:   FileAction{Path: path, Content: content, Operation: operation},
			})
		}
	}

	collect(createBlockRegex, OperationCreate)
	collect(modifyBlockRegex, OperationModify)

	if len(positioned) == 0 {
		collect(fileBlockRegex, OperationCreate)
	}

	if len(positioned) == 0 {
		positioned = extractFencedBlocks(output)
	}

	sort.SliceStable(positioned, func(i, j int) bool {
		return positioned[i].position < positioned[j].position
	})

	// Last write wins per path, first occurrence keeps its slot.
	seen := make(map[string]int)
	var result []FileAction
	for _, item := range positioned {
		action := item.action
		action.Path = NormalizeFilename(action.Path, action.Content)
		if index, ok := seen[action.Path]; ok {
			result[index] = action
			continue
		}
		seen[action.Path] = len(result)
		result = append(result, action)
	}

	return result
}

// extractFencedBlocks turns plain fenced code blocks into synthetic files.
func extractFencedBlocks(output string) []positionedAction {
	var positioned []positionedAction

	index := 0
	for _, match := range fencedBlockRegex.FindAllStringSubmatchIndex(output, -1) {
		language := strings.ToLower(output[match[2]:match[3]])
		content := strings.TrimSpace(output[match[4]:match[5]])
		if len(content) <= 10 {
			continue
		}
		index++

		path := ""
		if nameMatch := filenameCommentRegex.FindStringSubmatch(content); nameMatch != nil {
			path = nameMatch[1]
		} else {
			ext, ok := languageExtensions[language]
			if !ok {
				language = "code"
				ext = detectExtension(content)
			}
			path = fmt.Sprintf("%s%d.%s", language, index, ext)
		}

		positioned = append(positioned, positionedAction{
			position: match[0],
			action:   FileAction{Path: path, Content: content, Operation: OperationCreate},
		})
	}

	return positioned
}

// contentExtensions lists acceptable extensions per detected content type;
// the first entry is the canonical one used for corrections.
var contentExtensions = map[string][]string{
	"html":     {"html", "htm"},
	"css":      {"css", "scss"},
	"js":       {"js", "jsx", "ts", "tsx", "mjs"},
	"python":   {"py"},
	"json":     {"json"},
	"markdown": {"md", "markdown"},
	"sql":      {"sql"},
}

// detectContentType applies the signature checks in fixed priority order.
func detectContentType(content string) string {
	trimmed := strings.TrimSpace(content)
	lower := strings.ToLower(trimmed)

	switch {
	case strings.Contains(lower, "<!doctype html") || strings.Contains(lower, "<html"):
		return "html"
	case regexp.MustCompile(`(?m)^\s*[.#@]?[\w-]+\s*\{[^}]*:`).MatchString(trimmed) &&
		!strings.Contains(trimmed, "function") && !strings.Contains(trimmed, "=>"):
		return "css"
	case regexp.MustCompile(`(?m)(^|\s)(function\s+\w+|const\s+\w+\s*=|let\s+\w+|var\s+\w+|import\s+.*from|export\s+|=>)`).MatchString(trimmed):
		return "js"
	case regexp.MustCompile(`(?m)^\s*(def\s+\w+\s*\(|class\s+\w+.*:|import\s+\w+|from\s+[\w.]+\s+import)`).MatchString(trimmed):
		return "python"
	case (strings.HasPrefix(trimmed, "{") || strings.HasPrefix(trimmed, "[")) && json.Valid([]byte(trimmed)):
		return "json"
	case regexp.MustCompile(`(?m)^#{1,6}\s+\S`).MatchString(trimmed) || strings.Contains(trimmed, "```"):
		return "markdown"
	case regexp.MustCompile(`(?i)\b(select\s+.+\s+from|create\s+table|insert\s+into|alter\s+table)\b`).MatchString(trimmed):
		return "sql"
	default:
		return ""
	}
}

// detectExtension returns the canonical extension for the detected content
// type, "txt" when no signature matches.
func detectExtension(content string) string {
	contentType := detectContentType(content)
	if contentType == "" {
		return "txt"
	}
	return contentExtensions[contentType][0]
}

// NormalizeFilename validates the path's extension against the content's
// detected type and corrects it when missing or inconsistent. Normalizing an
// already-normalized path is a no-op.
func NormalizeFilename(path string, content string) string {
	path = strings.TrimSpace(path)
	ext := strings.TrimPrefix(filepath.Ext(path), ".")

	contentType := detectContentType(content)
	if contentType == "" {
		// Unknown content cannot contradict an existing extension.
		if ext == "" {
			return path + ".txt"
		}
		return path
	}

	for _, acceptable := range contentExtensions[contentType] {
		if ext == acceptable {
			return path
		}
	}

	canonical := contentExtensions[contentType][0]
	if ext == "" {
		return path + "." + canonical
	}
	return strings.TrimSuffix(path, "."+ext) + "." + canonical
}
