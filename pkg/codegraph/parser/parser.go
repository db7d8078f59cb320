// Copyright 2025 KrakLabs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
//
// SPDX-License-Identifier: Apache-2.0

// Package parser implements the per-language AST-to-entity extraction
// front-end: one node per declaration, intra-file calls edges, unresolved
// call and import references for the resolver, and cyclomatic complexity,
// dispatched by language.
package parser

import (
	"fmt"

	"github.com/kraklabs/codegraph/pkg/codegraph/model"
)

// ParsedFile is the pure output of parsing a single file: no I/O besides
// the bytes passed in, no reference to any other file.
type ParsedFile struct {
	FilePath        string
	Language        model.Language
	Nodes           []*model.CodeNode
	IntraFileEdges  []*model.Edge
	UnresolvedRefs  []model.UnresolvedRef
	ParseErrorCount int
}

// Extractor is implemented once per supported language.
type Extractor interface {
	// Language returns the language this extractor handles.
	Language() model.Language

	// Parse extracts nodes, intra-file edges, and unresolved cross-file
	// references from the given file. It must not perform I/O: content is
	// the complete file body, already read by the caller.
	Parse(projectID, filePath string, content []byte) (*ParsedFile, error)
}

// Registry dispatches to a registered Extractor by language, falling back
// to the generic heuristic extractor for languages with no dedicated one.
// A language with neither a registered nor a generic match is skipped
// silently by the caller and counted, per the parser front-end's failure
// model.
type Registry struct {
	extractors map[model.Language]Extractor
	fallback   Extractor
}

// NewRegistry builds a Registry with the Go tree-sitter extractor and the
// generic fallback registered. Callers may Register additional per-language
// extractors (TypeScript, Python, Protobuf, ...).
func NewRegistry() *Registry {
	r := &Registry{extractors: make(map[model.Language]Extractor)}
	r.Register(NewGoExtractor())
	r.fallback = NewGenericExtractor()
	return r
}

// Register adds or replaces the extractor for its declared language.
func (r *Registry) Register(e Extractor) {
	r.extractors[e.Language()] = e
}

// ParseFile dispatches to the extractor registered for lang, or the
// generic fallback when lang has no dedicated extractor and is not
// LanguageUnknown. LanguageUnknown is rejected outright: the caller counts
// it as a skipped, unsupported-language file.
func (r *Registry) ParseFile(projectID, filePath string, content []byte, lang model.Language) (*ParsedFile, error) {
	if lang == model.LanguageUnknown {
		return nil, fmt.Errorf("parser: no extractor for unknown language (%s)", filePath)
	}
	if e, ok := r.extractors[lang]; ok {
		return e.Parse(projectID, filePath, content)
	}
	if r.fallback != nil {
		return r.fallback.Parse(projectID, filePath, content)
	}
	return nil, fmt.Errorf("parser: no extractor registered for language %q", lang)
}
