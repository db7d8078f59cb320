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

package indexer

import "github.com/kraklabs/codegraph/pkg/codegraph/model"

// ChangeKind classifies one file relative to its last recorded FileMetadata.
// ContentHash is the sole authority, per the data model's invariant: a file
// whose bytes round-trip to the same hash is Unchanged regardless of mtime.
type ChangeKind int

const (
	Unchanged ChangeKind = iota
	Added
	Modified
	Deleted
)

func (k ChangeKind) String() string {
	switch k {
	case Added:
		return "added"
	case Modified:
		return "modified"
	case Deleted:
		return "deleted"
	default:
		return "unchanged"
	}
}

// Classification pairs a file path with its ChangeKind and, for Added/
// Modified files, the freshly read content and computed hash.
type Classification struct {
	FilePath    string
	Kind        ChangeKind
	Content     []byte
	ContentHash string
	Language    model.Language
	Size        int64
}

// Classify compares the current on-disk candidates against stored file
// metadata and returns one Classification per file: every candidate
// (Added/Modified/Unchanged) plus one Deleted entry per stored file that no
// longer has a matching candidate.
func Classify(candidates []CandidateFile, stored []*model.FileMetadata, readFile func(fullPath string) ([]byte, error)) ([]Classification, error) {
	storedByPath := make(map[string]*model.FileMetadata, len(stored))
	for _, fm := range stored {
		storedByPath[model.NormalizePath(fm.FilePath)] = fm
	}

	seen := make(map[string]bool, len(candidates))
	out := make([]Classification, 0, len(candidates))

	for _, c := range candidates {
		seen[c.FilePath] = true

		content, err := readFile(c.FullPath)
		if err != nil {
			return nil, err
		}
		hash := model.ContentHashHex(content)

		prior, existed := storedByPath[c.FilePath]
		kind := Added
		if existed {
			kind = Unchanged
			if prior.ContentHash != hash {
				kind = Modified
			}
		}

		out = append(out, Classification{
			FilePath:    c.FilePath,
			Kind:        kind,
			Content:     content,
			ContentHash: hash,
			Language:    c.Language,
			Size:        c.Size,
		})
	}

	for path := range storedByPath {
		if !seen[path] {
			out = append(out, Classification{FilePath: path, Kind: Deleted})
		}
	}

	return out, nil
}
