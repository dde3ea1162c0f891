package actions

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test extraction of explicit create and modify directives
func TestExtractFileActions_DirectiveBlocks(t *testing.T) {
	output := "Here is the code:\n" +
		"[CREATE: src/app.js]\n" +
		"const app = () => {};\nexport default app;\n" +
		"[/CREATE]\n" +
		"And an update:\n" +
		"[MODIFY: src/index.js]\n" +
		"import app from './app';\napp();\n" +
		"[/MODIFY]\n"

	result := ExtractFileActions(output)
	require.Len(t, result, 2)

	assert.Equal(t, "src/app.js", result[0].Path)
	assert.Equal(t, OperationCreate, result[0].Operation)
	assert.Contains(t, result[0].Content, "const app = () => {};")

	assert.Equal(t, "src/index.js", result[1].Path)
	assert.Equal(t, OperationModify, result[1].Operation)
	assert.Contains(t, result[1].Content, "app();")
}

// Multiple directives for the same path collapse into one action: the last
// content wins, the first position is kept.
func TestExtractFileActions_LastWriteWinsPerPath(t *testing.T) {
	output := "[CREATE: src/app.js]\nfirst version();\n[/CREATE]\n" +
		"[CREATE: src/other.js]\nconst other = 1;\n[/CREATE]\n" +
		"[CREATE: src/app.js]\nsecond version();\n[/CREATE]\n"

	result := ExtractFileActions(output)
	require.Len(t, result, 2)

	assert.Equal(t, "src/app.js", result[0].Path)
	assert.Contains(t, result[0].Content, "second version")
	assert.Equal(t, "src/other.js", result[1].Path)
}

// Legacy [FILE:] blocks are only consulted when no create/modify directive
// matched.
func TestExtractFileActions_LegacyFileBlock(t *testing.T) {
	output := "[FILE: main.py]\n```python\ndef main():\n    pass\n```\n"

	result := ExtractFileActions(output)
	require.Len(t, result, 1)

	assert.Equal(t, "main.py", result[0].Path)
	assert.Equal(t, OperationCreate, result[0].Operation)
	assert.Contains(t, result[0].Content, "def main():")
}

// Plain fenced blocks fall back to synthetic names derived from the language
// tag and position.
func TestExtractFileActions_FencedFallbackSyntheticNames(t *testing.T) {
	output := "Sure, here is a solution:\n" +
		"```python\ndef hello():\n    return 'hello'\n```\n" +
		"And the styles:\n" +
		"```css\nbody { color: red; margin: 0; }\n```\n"

	result := ExtractFileActions(output)
	require.Len(t, result, 2)

	assert.Equal(t, "python1.py", result[0].Path)
	assert.Equal(t, "css2.css", result[1].Path)
	for _, action := range result {
		assert.Equal(t, OperationCreate, action.Operation)
	}
}

// A filename comment embedded in a fenced block names the file verbatim.
func TestExtractFileActions_FencedFallbackFilenameComment(t *testing.T) {
	output := "```js\n// src/utils/format.js\nexport const format = (v) => String(v);\n```\n"

	result := ExtractFileActions(output)
	require.Len(t, result, 1)
	assert.Equal(t, "src/utils/format.js", result[0].Path)
}

// Tiny fenced blocks (inline snippets) are not files.
func TestExtractFileActions_SkipsTinyBlocks(t *testing.T) {
	output := "Use ```js\nfoo()\n``` to call it."

	result := ExtractFileActions(output)
	assert.Empty(t, result)
}

// Untagged fenced blocks get their extension from content signatures.
func TestExtractFileActions_ContentTypeDetection(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		expected string
	}{
		{"html", "<!DOCTYPE html>\n<html><body></body></html>", "code1.html"},
		{"javascript", "function start() {\n  console.log('ready');\n}", "code1.js"},
		{"python", "def run():\n    return 42\n", "code1.py"},
		{"json", "{\"name\": \"demo\", \"version\": \"1.0.0\"}", "code1.json"},
		{"sql", "SELECT id, name FROM users WHERE active = 1;", "code1.sql"},
		{"plain text", "just some prose without any code signature at all", "code1.txt"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ExtractFileActions(fmt.Sprintf("```\n%s\n```\n", tt.content))
			require.Len(t, result, 1)
			assert.Equal(t, tt.expected, result[0].Path)
		})
	}
}

// Normalization corrects an extension that contradicts the content.
func TestNormalizeFilename_CorrectsMismatchedExtension(t *testing.T) {
	jsContent := "export const x = 1;\nconst y = () => x;"

	assert.Equal(t, "app.js", NormalizeFilename("app.txt", jsContent))
	assert.Equal(t, "app.js", NormalizeFilename("app", jsContent))
	// Any member of the acceptable set is left alone.
	assert.Equal(t, "app.tsx", NormalizeFilename("app.tsx", jsContent))
}

// Normalizing an already-normalized name is a no-op.
func TestNormalizeFilename_Idempotent(t *testing.T) {
	cases := map[string]string{
		"python1.py": "def hello():\n    return 1",
		"notes.txt":  "free-form prose with no signature",
		"index.html": "<html><body>hi</body></html>",
		"data.json":  "{\"a\": 1}",
	}

	for path, content := range cases {
		once := NormalizeFilename(path, content)
		twice := NormalizeFilename(once, content)
		assert.Equal(t, once, twice, "normalization of %q must be idempotent", path)
	}
}

// Unknown content cannot contradict an existing extension, but a missing
// extension still gets the txt default.
func TestNormalizeFilename_UnknownContent(t *testing.T) {
	prose := "nothing here resembles code"

	assert.Equal(t, "README.custom", NormalizeFilename("README.custom", prose))
	assert.Equal(t, "README.txt", NormalizeFilename("README", prose))
}

func TestExtractFileActions_NoActionableContent(t *testing.T) {
	assert.Empty(t, ExtractFileActions("Just a conversational answer with no code."))
	assert.Empty(t, ExtractFileActions(""))
}
