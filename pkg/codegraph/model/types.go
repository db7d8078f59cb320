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

// Package model defines the canonical entity types shared by every component
// of the indexing and retrieval pipeline: node and edge kinds, locations,
// language enumeration, and content hashing.
package model

// Language enumerates the programming languages the parser front-end can
// recognize. A file whose extension maps to LanguageUnknown is skipped by
// the indexer and counted, never processed.
type Language string

const (
	LanguageGo         Language = "go"
	LanguagePython     Language = "python"
	LanguageJavaScript Language = "javascript"
	LanguageTypeScript Language = "typescript"
	LanguageJava       Language = "java"
	LanguageRust       Language = "rust"
	LanguageCpp        Language = "cpp"
	LanguageC          Language = "c"
	LanguageCSharp     Language = "csharp"
	LanguageSwift      Language = "swift"
	LanguageRuby       Language = "ruby"
	LanguagePHP        Language = "php"
	LanguageKotlin     Language = "kotlin"
	LanguageDart       Language = "dart"
	LanguageProtobuf   Language = "protobuf"
	LanguageUnknown    Language = "unknown"
)

// NodeType enumerates the kinds of declarations the parser extracts.
type NodeType string

const (
	NodeFunction  NodeType = "Function"
	NodeMethod    NodeType = "Method"
	NodeClass     NodeType = "Class"
	NodeStruct    NodeType = "Struct"
	NodeEnum      NodeType = "Enum"
	NodeInterface NodeType = "Trait" // trait/interface
	NodeModule    NodeType = "Module"
	NodeVariable  NodeType = "Variable"
	NodeType_     NodeType = "Type"
	NodeMacro     NodeType = "Macro"
	NodeOther     NodeType = "Other"
)

// EdgeType enumerates the relationship kinds between two nodes.
type EdgeType string

const (
	EdgeCalls      EdgeType = "calls"
	EdgeImports    EdgeType = "imports"
	EdgeUses       EdgeType = "uses"
	EdgeExtends    EdgeType = "extends"
	EdgeImplements EdgeType = "implements"
	EdgeReferences EdgeType = "references"
	EdgeContains   EdgeType = "contains"
)

// Location pinpoints a span of source text by 1-indexed line/column.
type Location struct {
	FilePath string
	StartLine int
	StartCol  int
	EndLine   int
	EndCol    int
}

// LanguageFromExtension maps a lower-cased file extension (including the
// leading dot) to a Language. Unrecognized extensions return LanguageUnknown.
func LanguageFromExtension(ext string) Language {
	switch ext {
	case ".go":
		return LanguageGo
	case ".py":
		return LanguagePython
	case ".js", ".jsx", ".mjs", ".cjs":
		return LanguageJavaScript
	case ".ts", ".tsx":
		return LanguageTypeScript
	case ".java":
		return LanguageJava
	case ".rs":
		return LanguageRust
	case ".cpp", ".cc", ".cxx", ".hpp":
		return LanguageCpp
	case ".c", ".h":
		return LanguageC
	case ".cs":
		return LanguageCSharp
	case ".swift":
		return LanguageSwift
	case ".rb":
		return LanguageRuby
	case ".php":
		return LanguagePHP
	case ".kt", ".kts":
		return LanguageKotlin
	case ".dart":
		return LanguageDart
	case ".proto":
		return LanguageProtobuf
	default:
		return LanguageUnknown
	}
}
