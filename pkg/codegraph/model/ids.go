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

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"path/filepath"
)

// NodeID is an opaque, content-derived identifier. The persistence layer
// treats it as an equality-comparable value; nothing outside this package
// and the store's serialization boundary should parse its structure.
type NodeID string

// ContentHash returns the SHA-256 digest of b, the authority on "changed"
// for FileMetadata per the data model invariants.
func ContentHash(b []byte) [32]byte {
	return sha256.Sum256(b)
}

// ContentHashHex is ContentHash rendered as a hex string, the form stored on
// FileMetadata.content_hash.
func ContentHashHex(b []byte) string {
	h := ContentHash(b)
	return hex.EncodeToString(h[:])
}

// NormalizePath normalizes a file path for stable, cross-platform ID
// generation: forward slashes, no leading "./", no leading "/".
func NormalizePath(path string) string {
	if len(path) >= 2 && path[0:2] == "./" {
		path = path[2:]
	}
	path = filepath.Clean(path)
	path = filepath.ToSlash(path)
	if len(path) > 0 && path[0] == '/' {
		path = path[1:]
	}
	return path
}

// NewFileID derives a deterministic FileMetadata key from a path. Short,
// well-formed paths are kept readable; long ones are hashed to bound size.
func NewFileID(filePath string) string {
	normalized := NormalizePath(filePath)
	if len(normalized) <= 256 {
		return fmt.Sprintf("file:%s", normalized)
	}
	hash := sha256.Sum256([]byte(normalized))
	return fmt.Sprintf("file:%s", hex.EncodeToString(hash[:16]))
}

// NewNodeID derives a deterministic node identifier from its declaration
// site. Signature is deliberately excluded: parser improvements that refine
// signature extraction must not change existing node identity. The full
// location span (including columns) disambiguates nodes that share a line
// range, such as generated or nested declarations.
func NewNodeID(filePath string, nodeType NodeType, name string, loc Location) NodeID {
	normalizedPath := NormalizePath(filePath)
	idStr := fmt.Sprintf("%s|%s|%s|%d|%d|%d|%d",
		normalizedPath, nodeType, name, loc.StartLine, loc.EndLine, loc.StartCol, loc.EndCol)
	hash := sha256.Sum256([]byte(idStr))
	return NodeID(fmt.Sprintf("node:%s", hex.EncodeToString(hash[:])))
}

// NewEdgeID derives a deterministic identifier for an (from, to, edge_type)
// triple, giving the store set semantics over edges without needing a
// native auto-increment key: re-resolving the same triple always yields the
// same ID, so an upsert by ID is idempotent.
func NewEdgeID(from, to NodeID, edgeType EdgeType) string {
	idStr := fmt.Sprintf("%s->%s|%s", from, to, edgeType)
	hash := sha256.Sum256([]byte(idStr))
	return fmt.Sprintf("edge:%s", hex.EncodeToString(hash[:16]))
}

// NewChunkID derives a deterministic identifier for the nth chunk of a node.
func NewChunkID(nodeID NodeID, chunkIndex int) string {
	idStr := fmt.Sprintf("%s|chunk|%d", nodeID, chunkIndex)
	hash := sha256.Sum256([]byte(idStr))
	return fmt.Sprintf("chunk:%s", hex.EncodeToString(hash[:16]))
}
