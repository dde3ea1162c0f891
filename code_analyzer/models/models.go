package models

// FileMap maps workspace-relative paths to full text content. It mirrors the
// subset of the workspace one session operates on.
type FileMap map[string]string

// SymbolKind classifies an extracted symbol.
type SymbolKind string

const (
	SymbolFunction  SymbolKind = "function"
	SymbolClass     SymbolKind = "class"
	SymbolInterface SymbolKind = "interface"
	SymbolType      SymbolKind = "type"
	SymbolConstant  SymbolKind = "constant"
	SymbolVariable  SymbolKind = "variable"
)

// Symbol is one construct found by the extractor. Derived data only,
// recomputed on every distillation and never persisted.
type Symbol struct {
	Name      string
	Kind      SymbolKind
	FilePath  string
	Line      int
	Signature string
	Exported  bool
}

// FileAnalysis bundles everything the extractor found in one file.
type FileAnalysis struct {
	Symbols []Symbol
	Imports []string
	Exports []string
}

// FrameworkType classifies the project from its package manifest.
type FrameworkType string

const (
	FrameworkVanilla FrameworkType = "vanilla"
	FrameworkReact   FrameworkType = "react"
	FrameworkVue     FrameworkType = "vue"
	FrameworkNextJS  FrameworkType = "nextjs"
	FrameworkNuxt    FrameworkType = "nuxt"
	FrameworkSvelte  FrameworkType = "svelte"
	FrameworkAngular FrameworkType = "angular"
	FrameworkExpress FrameworkType = "express"
	FrameworkFastify FrameworkType = "fastify"
)

// FrameworkInfo is the detector's classification result.
type FrameworkInfo struct {
	Type     FrameworkType
	Version  string
	Features []string
}
