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

package model

// CodeNode is the canonical record for a single declaration extracted by
// the parser front-end. Embedding is populated once the embedding service
// has run; it is nil until then.
type CodeNode struct {
	ID             NodeID
	ProjectID      string
	Name           string
	QualifiedName  string
	NodeType       NodeType
	Language       Language
	FilePath       string
	StartLine      int
	StartCol       int
	EndLine        int
	EndCol         int
	Content        string
	Signature      string
	Complexity     int
	FastMLPatterns []string
	Metadata       map[string]string
	Embedding      []float32
}

// Location returns the node's declaration span.
func (n *CodeNode) Location() Location {
	return Location{
		FilePath:  n.FilePath,
		StartLine: n.StartLine,
		StartCol:  n.StartCol,
		EndLine:   n.EndLine,
		EndCol:    n.EndCol,
	}
}

// EmbeddingText assembles the text handed to the embedding provider, per
// the indexer's step 7 contract: qualified name, signature, body, and any
// fast-ML enrichment patterns, in that order so the most identifying
// tokens appear first within the model's token window.
func (n *CodeNode) EmbeddingText() string {
	text := n.QualifiedName
	if text == "" {
		text = n.Name
	}
	if n.Signature != "" {
		text += "\n" + n.Signature
	}
	if n.Content != "" {
		text += "\n" + n.Content
	}
	if len(n.FastMLPatterns) > 0 {
		text += "\n"
		for i, p := range n.FastMLPatterns {
			if i > 0 {
				text += ","
			}
			text += p
		}
	}
	return text
}

// Edge is a resolved relationship between two nodes within the same
// project. Metadata carries resolver-internal detail: the confidence score
// of the match and the resolution method (exact, basename or fuzzy).
type Edge struct {
	ID        string
	ProjectID string
	From      NodeID
	To        NodeID
	EdgeType  EdgeType
	Metadata  map[string]string
}

// Chunk is a sub-segment of a node's content sized to fit the embedding
// model's token window. A node whose content never exceeded the window has
// no chunks; its Embedding is set directly rather than averaged.
type Chunk struct {
	ID         string
	NodeID     NodeID
	ChunkIndex int
	TokenCount int
	Content    string
	Embedding  []float32
}

// UnresolvedRef is an as-yet-unlinked reference discovered during parsing:
// a name used but not defined in the same file, to be handed to the edge
// resolver together with the project-wide symbol table.
type UnresolvedRef struct {
	FromID   NodeID
	ToName   string
	EdgeType EdgeType
	FilePath string
	Line     int
}
