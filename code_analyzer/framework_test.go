package code_analyzer

import (
	"testing"

	"github.com/meysamhadeli/codai-studio/code_analyzer/models"
	"github.com/stretchr/testify/assert"
)

func manifestWith(deps string) models.FileMap {
	return models.FileMap{
		"package.json": `{"name":"demo","dependencies":` + deps + `}`,
	}
}

func TestDetectFramework_Priority(t *testing.T) {
	tests := []struct {
		name     string
		files    models.FileMap
		expected models.FrameworkType
		version  string
	}{
		{"react", manifestWith(`{"react":"18.2.0"}`), models.FrameworkReact, "18.2.0"},
		{"next wins over react", manifestWith(`{"react":"18.2.0","next":"14.1.0"}`), models.FrameworkNextJS, "14.1.0"},
		{"vue", manifestWith(`{"vue":"3.4.0"}`), models.FrameworkVue, "3.4.0"},
		{"nuxt wins over vue", manifestWith(`{"vue":"3.4.0","nuxt":"3.10.0"}`), models.FrameworkNuxt, "3.10.0"},
		{"svelte", manifestWith(`{"svelte":"4.2.0"}`), models.FrameworkSvelte, "4.2.0"},
		{"angular", manifestWith(`{"@angular/core":"17.0.0"}`), models.FrameworkAngular, "17.0.0"},
		{"express", manifestWith(`{"express":"4.18.0"}`), models.FrameworkExpress, "4.18.0"},
		{"fastify", manifestWith(`{"fastify":"4.26.0"}`), models.FrameworkFastify, "4.26.0"},
		{"no framework deps", manifestWith(`{"lodash":"4.17.21"}`), models.FrameworkVanilla, ""},
		{"no manifest", models.FileMap{"index.js": "console.log(1)"}, models.FrameworkVanilla, ""},
		{"unparsable manifest", models.FileMap{"package.json": "{broken"}, models.FrameworkVanilla, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info := DetectFramework(tt.files)
			assert.Equal(t, tt.expected, info.Type)
			assert.Equal(t, tt.version, info.Version)
			assert.NotEmpty(t, info.Features)
		})
	}
}

// devDependencies count the same as dependencies for classification.
func TestDetectFramework_DevDependencies(t *testing.T) {
	files := models.FileMap{
		"package.json": `{"devDependencies":{"svelte":"4.2.0"}}`,
	}

	info := DetectFramework(files)
	assert.Equal(t, models.FrameworkSvelte, info.Type)
}

func TestProjectDependencies_MergesBothSections(t *testing.T) {
	files := models.FileMap{
		"package.json": `{"dependencies":{"react":"18.2.0"},"devDependencies":{"vitest":"1.2.0"}}`,
	}

	deps := ProjectDependencies(files)
	assert.Equal(t, "18.2.0", deps["react"])
	assert.Equal(t, "1.2.0", deps["vitest"])

	assert.Nil(t, ProjectDependencies(models.FileMap{}))
	assert.Nil(t, ProjectDependencies(models.FileMap{"package.json": "nope"}))
}
