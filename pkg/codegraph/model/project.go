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

import "time"

// Project is created on first init and never silently replaced; a
// force-reindex deletes all nodes/edges/chunks/file-metadata for its
// project_id, preserving only this row.
type Project struct {
	ProjectID          string
	RootPath           string
	CreatedAt          time.Time
	LastIndexedAt      time.Time
	EmbeddingModel     string
	EmbeddingDimension int
}

// FileMetadata is the per-file record the indexer uses to decide whether a
// file is Added, Modified, Unchanged, or Deleted on the next run.
// ContentHash is the sole authority: equal hash means unchanged, full stop.
type FileMetadata struct {
	ProjectID   string
	FilePath    string
	ContentHash string
	Size        int64
	Language    Language
	ModTime     time.Time
	NodeCount   int
	EdgeCount   int
}

// EmbeddingColumn returns the vector column name for a given dimension,
// e.g. "embedding_768". The indexer selects this column when writing and
// reading node vectors so that projects with differing dimensions never
// collide in a shared schema.
func EmbeddingColumn(dimension int) string {
	switch dimension {
	case 768, 1024, 1536, 2048, 4096:
		return dimColumnName(dimension)
	default:
		return dimColumnName(dimension)
	}
}

func dimColumnName(d int) string {
	const prefix = "embedding_"
	// Avoid importing strconv for a single call site's worth of formatting.
	digits := []byte{}
	if d == 0 {
		digits = []byte{'0'}
	}
	for d > 0 {
		digits = append([]byte{byte('0' + d%10)}, digits...)
		d /= 10
	}
	return prefix + string(digits)
}
