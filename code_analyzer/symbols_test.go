package code_analyzer

import (
	"testing"

	"github.com/meysamhadeli/codai-studio/code_analyzer/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnalyzeFile_JavaScriptSymbols(t *testing.T) {
	content := `import React from 'react';
import { render } from 'react-dom';

export function App(props) {
  return null;
}

class Store {
}

export default async function bootstrap() {
}
`

	analysis := AnalyzeFile("src/app.jsx", content)

	require.Len(t, analysis.Symbols, 3)

	app := analysis.Symbols[0]
	assert.Equal(t, "App", app.Name)
	assert.Equal(t, models.SymbolFunction, app.Kind)
	assert.Equal(t, "src/app.jsx", app.FilePath)
	assert.Equal(t, 4, app.Line)
	assert.True(t, app.Exported)

	// Functions are collected before classes.
	bootstrap := analysis.Symbols[1]
	assert.Equal(t, "bootstrap", bootstrap.Name)
	assert.Equal(t, models.SymbolFunction, bootstrap.Kind)
	assert.True(t, bootstrap.Exported)

	store := analysis.Symbols[2]
	assert.Equal(t, "Store", store.Name)
	assert.Equal(t, models.SymbolClass, store.Kind)
	assert.Equal(t, 8, store.Line)
	assert.False(t, store.Exported)

	assert.Equal(t, []string{"react", "react-dom"}, analysis.Imports)
	assert.Equal(t, []string{"App", "default"}, analysis.Exports)
}

func TestAnalyzeFile_TypeScriptConstructs(t *testing.T) {
	content := `export interface UserProps {
  name: string;
}

type Handler = (event: Event) => void;

export type ID = string;
`

	analysis := AnalyzeFile("src/types.ts", content)

	require.Len(t, analysis.Symbols, 3)
	assert.Equal(t, models.SymbolInterface, analysis.Symbols[0].Kind)
	assert.Equal(t, "UserProps", analysis.Symbols[0].Name)
	assert.True(t, analysis.Symbols[0].Exported)

	assert.Equal(t, models.SymbolType, analysis.Symbols[1].Kind)
	assert.Equal(t, "Handler", analysis.Symbols[1].Name)
	assert.False(t, analysis.Symbols[1].Exported)

	assert.Equal(t, "ID", analysis.Symbols[2].Name)
	assert.True(t, analysis.Symbols[2].Exported)
}

func TestAnalyzeFile_DynamicAndRequireImports(t *testing.T) {
	content := `const config = require('./config');
const lazy = () => import('./heavy-module');
`

	analysis := AnalyzeFile("src/loader.js", content)
	assert.ElementsMatch(t, []string{"./config", "./heavy-module"}, analysis.Imports)
}

func TestAnalyzeFile_PythonSymbols(t *testing.T) {
	content := `import os
from collections import OrderedDict


class Service:
    def handle(self, request):
        return request


def main():
    pass
`

	analysis := AnalyzeFile("service.py", content)

	require.Len(t, analysis.Symbols, 3)

	service := analysis.Symbols[2]
	assert.Equal(t, "Service", service.Name)
	assert.Equal(t, models.SymbolClass, service.Kind)
	assert.Equal(t, 5, service.Line)

	handle := analysis.Symbols[0]
	assert.Equal(t, "handle", handle.Name)
	assert.Equal(t, models.SymbolFunction, handle.Kind)
	assert.Equal(t, 6, handle.Line)

	assert.Equal(t, "main", analysis.Symbols[1].Name)
	assert.ElementsMatch(t, []string{"os", "collections"}, analysis.Imports)
}

// Unsupported extensions and malformed input yield an empty analysis, never
// an error.
func TestAnalyzeFile_UnsupportedAndMalformed(t *testing.T) {
	assert.Empty(t, AnalyzeFile("notes.txt", "function looksLikeJs() {}").Symbols)
	assert.Empty(t, AnalyzeFile("broken.js", "function ((((").Symbols)
	assert.Empty(t, AnalyzeFile("empty.py", "").Symbols)
}
