package code_analyzer

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/meysamhadeli/codai-studio/code_analyzer/models"
	"github.com/meysamhadeli/codai-studio/workspace"
	"go.uber.org/zap"
)

const (
	maxImportsShown      = 10
	maxExportsShown      = 10
	maxDependenciesShown = 15
	maxConfigChars       = 200
	maxRelatedFileSize   = 1000
)

// relatedExtensions maps the active file's extension to the extensions of
// small companion files worth including alongside it.
var relatedExtensions = map[string][]string{
	"html": {"css", "js"},
	"css":  {"html", "js", "scss"},
	"js":   {"html", "css", "json"},
	"jsx":  {"js", "css", "tsx"},
	"ts":   {"js", "json", "tsx"},
	"tsx":  {"ts", "css", "jsx"},
	"py":   {"txt", "md", "json", "yml"},
}

// SnapshotSource is the slice of the workspace collaborator the distiller
// consumes: an aggregate snapshot preferred over the in-memory file map.
type SnapshotSource interface {
	GetWorkspaceContext() (*workspace.Context, error)
}

// ContextDistiller composes extractor and detector output plus raw file
// contents into one prompt-sized document.
type ContextDistiller struct {
	source SnapshotSource
	cache  *analysisCache
	logger *zap.Logger
}

// NewContextDistiller creates a distiller. source may be nil, in which case
// only the in-memory file map is used.
func NewContextDistiller(source SnapshotSource, logger *zap.Logger) *ContextDistiller {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ContextDistiller{
		source: source,
		cache:  newAnalysisCache(),
		logger: logger,
	}
}

// analyze runs the extractor through the content-hash cache.
func (d *ContextDistiller) analyze(path string, content string) models.FileAnalysis {
	if analysis, found := d.cache.Get(path, content); found {
		return analysis
	}
	analysis := AnalyzeFile(path, content)
	d.cache.Set(path, content, analysis)
	return analysis
}

// ClearCache drops all memoized extraction results.
func (d *ContextDistiller) ClearCache() {
	d.cache.Clear()
}

// CacheStats reports the extraction cache's hit/miss counters and size.
func (d *ContextDistiller) CacheStats() (hits int64, misses int64, entries int) {
	return d.cache.Stats()
}

// BuildContext produces the rich context document for one request. When
// useWorkspace is set and a snapshot source is configured, file contents come
// from the workspace snapshot; if the snapshot fails the distiller degrades
// to the local file map rather than failing the request.
func (d *ContextDistiller) BuildContext(files models.FileMap, activeFile string, useWorkspace bool) string {
	if useWorkspace && d.source != nil {
		if snapshot, err := d.source.GetWorkspaceContext(); err == nil {
			snapshotFiles := make(models.FileMap, len(snapshot.Files))
			for path, entry := range snapshot.Files {
				snapshotFiles[path] = entry.Content
			}
			files = snapshotFiles
		} else {
			d.logger.Warn("workspace snapshot unavailable, using local file map", zap.Error(err))
		}
	}

	framework := DetectFramework(files)

	var doc strings.Builder

	doc.WriteString("PROJECT CONTEXT\n\n")
	doc.WriteString(fmt.Sprintf("Framework: %s", strings.ToUpper(string(framework.Type))))
	if framework.Version != "" {
		doc.WriteString(fmt.Sprintf(" (%s)", framework.Version))
	}
	doc.WriteString("\n")

	totalBytes := 0
	for _, content := range files {
		totalBytes += len(content)
	}
	doc.WriteString(fmt.Sprintf("Project Size: %d files, %d bytes\n", len(files), totalBytes))
	doc.WriteString(fmt.Sprintf("Active File: %s\n", activeFile))

	paths := make([]string, 0, len(files))
	for path := range files {
		paths = append(paths, path)
	}
	sort.Strings(paths)

	var symbols []models.Symbol
	importSet := make(map[string]struct{})
	exportSet := make(map[string]struct{})
	for _, path := range paths {
		analysis := d.analyze(path, files[path])
		symbols = append(symbols, analysis.Symbols...)
		for _, imported := range analysis.Imports {
			importSet[imported] = struct{}{}
		}
		for _, exported := range analysis.Exports {
			exportSet[exported] = struct{}{}
		}
	}

	if len(symbols) > 0 {
		doc.WriteString("\nSymbols:\n")
		for _, symbol := range symbols {
			if symbol.Line > 0 {
				doc.WriteString(fmt.Sprintf("- [%s] %s (%s:%d)\n", symbol.Kind, symbol.Name, symbol.FilePath, symbol.Line))
			} else {
				doc.WriteString(fmt.Sprintf("- [%s] %s (%s)\n", symbol.Kind, symbol.Name, symbol.FilePath))
			}
		}
	}

	writeTruncatedList(&doc, "Imports", setToSortedSlice(importSet), maxImportsShown)
	writeTruncatedList(&doc, "Exports", setToSortedSlice(exportSet), maxExportsShown)

	deps := ProjectDependencies(files)
	if len(deps) > 0 {
		pairs := make([]string, 0, len(deps))
		for name, version := range deps {
			pairs = append(pairs, fmt.Sprintf("%s@%s", name, version))
		}
		sort.Strings(pairs)
		writeTruncatedList(&doc, "Dependencies", pairs, maxDependenciesShown)
	}

	if content, ok := files[activeFile]; ok {
		doc.WriteString(fmt.Sprintf("\nActive File Content (%s):\n%s\n", activeFile, content))
	}

	if len(framework.Features) > 0 {
		doc.WriteString(fmt.Sprintf("\nFramework Features: %s\n", strings.Join(framework.Features, ", ")))
	}

	writeConfigFiles(&doc, files, paths)
	writeRelatedFiles(&doc, files, paths, activeFile)

	return doc.String()
}

func setToSortedSlice(set map[string]struct{}) []string {
	result := make([]string, 0, len(set))
	for value := range set {
		result = append(result, value)
	}
	sort.Strings(result)
	return result
}

// writeTruncatedList emits the first max items with a "..." suffix when more
// exist. Input must already be in stable order.
func writeTruncatedList(doc *strings.Builder, title string, items []string, max int) {
	if len(items) == 0 {
		return
	}
	doc.WriteString(fmt.Sprintf("\n%s: ", title))
	if len(items) > max {
		doc.WriteString(strings.Join(items[:max], ", "))
		doc.WriteString(", ...")
	} else {
		doc.WriteString(strings.Join(items, ", "))
	}
	doc.WriteString("\n")
}

// writeConfigFiles includes every parsable JSON configuration file, with its
// serialized form truncated so config blobs cannot crowd out the code.
func writeConfigFiles(doc *strings.Builder, files models.FileMap, paths []string) {
	wroteHeader := false
	for _, path := range paths {
		if !strings.HasSuffix(path, ".json") {
			continue
		}

		var parsed interface{}
		if err := json.Unmarshal([]byte(files[path]), &parsed); err != nil {
			continue
		}
		serialized, err := json.Marshal(parsed)
		if err != nil {
			continue
		}

		if !wroteHeader {
			doc.WriteString("\nConfiguration Files:\n")
			wroteHeader = true
		}

		content := string(serialized)
		if len(content) > maxConfigChars {
			content = content[:maxConfigChars] + "..."
		}
		doc.WriteString(fmt.Sprintf("- %s: %s\n", path, content))
	}
}

// writeRelatedFiles includes small companion files whose extension relates to
// the active file's extension.
func writeRelatedFiles(doc *strings.Builder, files models.FileMap, paths []string, activeFile string) {
	activeExt := strings.TrimPrefix(filepath.Ext(activeFile), ".")
	related, ok := relatedExtensions[activeExt]
	if !ok {
		return
	}

	relatedSet := make(map[string]struct{}, len(related))
	for _, ext := range related {
		relatedSet[ext] = struct{}{}
	}

	wroteHeader := false
	for _, path := range paths {
		if path == activeFile {
			continue
		}
		content := files[path]
		if len(content) >= maxRelatedFileSize {
			continue
		}
		ext := strings.TrimPrefix(filepath.Ext(path), ".")
		if _, ok := relatedSet[ext]; !ok {
			continue
		}

		if !wroteHeader {
			doc.WriteString("\nRelated Files:\n")
			wroteHeader = true
		}
		doc.WriteString(fmt.Sprintf("--- %s ---\n%s\n", path, content))
	}
}
