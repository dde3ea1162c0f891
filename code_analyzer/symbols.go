package code_analyzer

import (
	"path/filepath"
	"regexp"
	"strings"

	"github.com/meysamhadeli/codai-studio/code_analyzer/models"
)

// Regex-driven extraction is deliberately approximate: the distilled context
// only needs a rough symbol table, not an exact one, so unmatched constructs
// are silently omitted and malformed input never fails.

var (
	jsFunctionRegex  = regexp.MustCompile(`(?m)^[ \t]*(export[ \t]+)?(default[ \t]+)?(async[ \t]+)?function[ \t]+(\w+)[ \t]*\(([^)]*)\)`)
	jsClassRegex     = regexp.MustCompile(`(?m)^[ \t]*(export[ \t]+)?(default[ \t]+)?(abstract[ \t]+)?class[ \t]+(\w+)`)
	jsInterfaceRegex = regexp.MustCompile(`(?m)^[ \t]*(export[ \t]+)?interface[ \t]+(\w+)`)
	jsTypeRegex      = regexp.MustCompile(`(?m)^[ \t]*(export[ \t]+)?type[ \t]+(\w+)[ \t]*=`)

	jsStaticImportRegex  = regexp.MustCompile(`from\s+['"]([^'"]+)['"]`)
	jsDynamicImportRegex = regexp.MustCompile(`import\(\s*['"]([^'"]+)['"]\s*\)`)
	jsRequireRegex       = regexp.MustCompile(`require\(\s*['"]([^'"]+)['"]\s*\)`)

	jsNamedExportRegex   = regexp.MustCompile(`export\s+(?:const|let|var|function|class)\s+(\w+)`)
	jsDefaultExportRegex = regexp.MustCompile(`export\s+default\b`)

	pyFunctionRegex = regexp.MustCompile(`(?m)^[ \t]*def[ \t]+(\w+)[ \t]*\(([^)]*)\)[ \t]*:?`)
	pyClassRegex    = regexp.MustCompile(`(?m)^[ \t]*class[ \t]+(\w+)`)
	pyImportRegex   = regexp.MustCompile(`(?m)^[ \t]*(?:from[ \t]+([\w.]+)[ \t]+import|import[ \t]+([\w.]+))`)
)

// AnalyzeFile extracts symbols, imports and exports from one source file.
// Language family is picked by extension; anything unsupported yields an
// empty analysis.
func AnalyzeFile(path string, content string) models.FileAnalysis {
	switch strings.TrimPrefix(filepath.Ext(path), ".") {
	case "js", "jsx", "ts", "tsx":
		return analyzeJSFamily(path, content)
	case "py":
		return analyzePython(path, content)
	default:
		return models.FileAnalysis{}
	}
}

// lineOfOffset converts a byte offset into a 1-indexed line number.
func lineOfOffset(content string, offset int) int {
	return strings.Count(content[:offset], "\n") + 1
}

func analyzeJSFamily(path string, content string) models.FileAnalysis {
	var analysis models.FileAnalysis

	for _, match := range jsFunctionRegex.FindAllStringSubmatchIndex(content, -1) {
		exported := match[2] != -1
		name := content[match[8]:match[9]]
		analysis.Symbols = append(analysis.Symbols, models.Symbol{
			Name:      name,
			Kind:      models.SymbolFunction,
			FilePath:  path,
			Line:      lineOfOffset(content, match[0]),
			Signature: strings.TrimSpace(content[match[0]:match[1]]),
			Exported:  exported,
		})
	}

	for _, match := range jsClassRegex.FindAllStringSubmatchIndex(content, -1) {
		analysis.Symbols = append(analysis.Symbols, models.Symbol{
			Name:     content[match[8]:match[9]],
			Kind:     models.SymbolClass,
			FilePath: path,
			Line:     lineOfOffset(content, match[0]),
			Exported: match[2] != -1,
		})
	}

	for _, match := range jsInterfaceRegex.FindAllStringSubmatchIndex(content, -1) {
		analysis.Symbols = append(analysis.Symbols, models.Symbol{
			Name:     content[match[4]:match[5]],
			Kind:     models.SymbolInterface,
			FilePath: path,
			Line:     lineOfOffset(content, match[0]),
			Exported: match[2] != -1,
		})
	}

	for _, match := range jsTypeRegex.FindAllStringSubmatchIndex(content, -1) {
		analysis.Symbols = append(analysis.Symbols, models.Symbol{
			Name:     content[match[4]:match[5]],
			Kind:     models.SymbolType,
			FilePath: path,
			Line:     lineOfOffset(content, match[0]),
			Exported: match[2] != -1,
		})
	}

	for _, importRegex := range []*regexp.Regexp{jsStaticImportRegex, jsDynamicImportRegex, jsRequireRegex} {
		for _, match := range importRegex.FindAllStringSubmatch(content, -1) {
			analysis.Imports = append(analysis.Imports, match[1])
		}
	}

	for _, match := range jsNamedExportRegex.FindAllStringSubmatch(content, -1) {
		analysis.Exports = append(analysis.Exports, match[1])
	}
	if jsDefaultExportRegex.MatchString(content) {
		analysis.Exports = append(analysis.Exports, "default")
	}

	return analysis
}

func analyzePython(path string, content string) models.FileAnalysis {
	var analysis models.FileAnalysis

	for _, match := range pyFunctionRegex.FindAllStringSubmatchIndex(content, -1) {
		analysis.Symbols = append(analysis.Symbols, models.Symbol{
			Name:      content[match[2]:match[3]],
			Kind:      models.SymbolFunction,
			FilePath:  path,
			Line:      lineOfOffset(content, match[0]),
			Signature: strings.TrimSpace(content[match[0]:match[1]]),
		})
	}

	for _, match := range pyClassRegex.FindAllStringSubmatchIndex(content, -1) {
		analysis.Symbols = append(analysis.Symbols, models.Symbol{
			Name:     content[match[2]:match[3]],
			Kind:     models.SymbolClass,
			FilePath: path,
			Line:     lineOfOffset(content, match[0]),
		})
	}

	for _, match := range pyImportRegex.FindAllStringSubmatch(content, -1) {
		if match[1] != "" {
			analysis.Imports = append(analysis.Imports, match[1])
		} else if match[2] != "" {
			analysis.Imports = append(analysis.Imports, match[2])
		}
	}

	return analysis
}
