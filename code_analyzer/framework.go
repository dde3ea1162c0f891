package code_analyzer

import (
	"encoding/json"

	"github.com/meysamhadeli/codai-studio/code_analyzer/models"
)

const manifestFileName = "package.json"

type packageManifest struct {
	Dependencies    map[string]string `json:"dependencies"`
	DevDependencies map[string]string `json:"devDependencies"`
}

// frameworkFeatures carries the fixed feature-tag list per classification.
var frameworkFeatures = map[models.FrameworkType][]string{
	models.FrameworkVanilla: {"DOM", "Events"},
	models.FrameworkReact:   {"JSX", "Hooks", "Components"},
	models.FrameworkNextJS:  {"JSX", "Hooks", "Components", "SSR", "API Routes", "App Router"},
	models.FrameworkVue:     {"SFC", "Composition API", "Reactivity"},
	models.FrameworkNuxt:    {"SFC", "Composition API", "Reactivity", "SSR", "Auto Imports", "File Routing"},
	models.FrameworkSvelte:  {"Reactive Statements", "Stores", "Transitions"},
	models.FrameworkAngular: {"Components", "Dependency Injection", "RxJS"},
	models.FrameworkExpress: {"Routing", "Middleware", "REST"},
	models.FrameworkFastify: {"Routing", "Plugins", "Schema Validation"},
}

// DetectFramework classifies the project from its package manifest. The
// check order is a fixed priority: when several framework dependencies
// coexist, the more specific one wins (next over react, nuxt over vue).
// A missing or unparsable manifest classifies as vanilla.
func DetectFramework(files models.FileMap) models.FrameworkInfo {
	content, ok := files[manifestFileName]
	if !ok {
		return frameworkInfo(models.FrameworkVanilla, "")
	}

	var manifest packageManifest
	if err := json.Unmarshal([]byte(content), &manifest); err != nil {
		return frameworkInfo(models.FrameworkVanilla, "")
	}

	deps := make(map[string]string, len(manifest.Dependencies)+len(manifest.DevDependencies))
	for name, version := range manifest.Dependencies {
		deps[name] = version
	}
	for name, version := range manifest.DevDependencies {
		deps[name] = version
	}

	switch {
	case hasDep(deps, "react"):
		if hasDep(deps, "next") {
			return frameworkInfo(models.FrameworkNextJS, deps["next"])
		}
		return frameworkInfo(models.FrameworkReact, deps["react"])
	case hasDep(deps, "vue"):
		if hasDep(deps, "nuxt") {
			return frameworkInfo(models.FrameworkNuxt, deps["nuxt"])
		}
		return frameworkInfo(models.FrameworkVue, deps["vue"])
	case hasDep(deps, "svelte"):
		return frameworkInfo(models.FrameworkSvelte, deps["svelte"])
	case hasDep(deps, "@angular/core"):
		return frameworkInfo(models.FrameworkAngular, deps["@angular/core"])
	case hasDep(deps, "express"):
		return frameworkInfo(models.FrameworkExpress, deps["express"])
	case hasDep(deps, "fastify"):
		return frameworkInfo(models.FrameworkFastify, deps["fastify"])
	default:
		return frameworkInfo(models.FrameworkVanilla, "")
	}
}

func hasDep(deps map[string]string, name string) bool {
	_, ok := deps[name]
	return ok
}

func frameworkInfo(frameworkType models.FrameworkType, version string) models.FrameworkInfo {
	return models.FrameworkInfo{
		Type:     frameworkType,
		Version:  version,
		Features: frameworkFeatures[frameworkType],
	}
}

// ProjectDependencies returns the manifest's merged dependency pairs. Used by
// the distiller for the dependency section of the context document.
func ProjectDependencies(files models.FileMap) map[string]string {
	content, ok := files[manifestFileName]
	if !ok {
		return nil
	}

	var manifest packageManifest
	if err := json.Unmarshal([]byte(content), &manifest); err != nil {
		return nil
	}

	deps := make(map[string]string, len(manifest.Dependencies)+len(manifest.DevDependencies))
	for name, version := range manifest.Dependencies {
		deps[name] = version
	}
	for name, version := range manifest.DevDependencies {
		deps[name] = version
	}
	return deps
}
