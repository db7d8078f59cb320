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

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/kraklabs/codegraph/pkg/codegraph/model"
)

// CandidateFile is one file discovered under a project root, with its
// detected language and relative, normalized path.
type CandidateFile struct {
	FilePath string
	FullPath string
	Language model.Language
	Size     int64
}

// WalkOptions bounds file discovery per step 1 of the indexing algorithm.
type WalkOptions struct {
	IncludeGlobs     []string
	ExcludeGlobs     []string
	MaxFileSizeBytes int64
}

// WalkResult is every candidate plus a count of files skipped and why.
type WalkResult struct {
	Files       []CandidateFile
	SkipReasons map[string]int
}

// Walk enumerates every regular file under root whose language is
// recognized, excluded neither by IncludeGlobs (when set, a file must match
// at least one) nor ExcludeGlobs, and within MaxFileSizeBytes.
func Walk(root string, opts WalkOptions) (*WalkResult, error) {
	result := &WalkResult{SkipReasons: make(map[string]int)}

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			result.SkipReasons["walk_error"]++
			return nil
		}

		relPath, relErr := filepath.Rel(root, path)
		if relErr != nil {
			return nil
		}
		relPath = filepath.ToSlash(relPath)

		if d.IsDir() {
			if relPath != "." && matchesAnyGlob(relPath, opts.ExcludeGlobs) {
				result.SkipReasons["excluded_dir"]++
				return filepath.SkipDir
			}
			return nil
		}

		if matchesAnyGlob(relPath, opts.ExcludeGlobs) {
			result.SkipReasons["excluded"]++
			return nil
		}
		if len(opts.IncludeGlobs) > 0 && !matchesAnyGlob(relPath, opts.IncludeGlobs) {
			result.SkipReasons["not_included"]++
			return nil
		}

		lang := model.LanguageFromExtension(strings.ToLower(filepath.Ext(relPath)))
		if lang == model.LanguageUnknown {
			result.SkipReasons["unsupported_language"]++
			return nil
		}

		info, infoErr := d.Info()
		if infoErr != nil {
			return nil
		}
		if opts.MaxFileSizeBytes > 0 && info.Size() > opts.MaxFileSizeBytes {
			result.SkipReasons["too_large"]++
			return nil
		}

		result.Files = append(result.Files, CandidateFile{
			FilePath: model.NormalizePath(relPath),
			FullPath: path,
			Language: lang,
			Size:     info.Size(),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("indexer: walk %s: %w", root, err)
	}
	return result, nil
}

// matchesAnyGlob reports whether path matches any of patterns, where each
// pattern supports "*", "**", and a bare "dir/**" or trailing-wildcard
// shorthand for "this subtree". Patterns are evaluated against the whole
// relative path and against every path suffix, so "node_modules" excludes
// it at any depth without requiring a leading "**/".
func matchesAnyGlob(path string, patterns []string) bool {
	for _, p := range patterns {
		if matchesGlob(path, p) {
			return true
		}
	}
	return false
}

func matchesGlob(path, pattern string) bool {
	pattern = filepath.ToSlash(pattern)

	if strings.HasSuffix(pattern, "/**") {
		prefix := strings.TrimSuffix(pattern, "/**")
		if path == prefix || strings.HasPrefix(path, prefix+"/") {
			return true
		}
	}

	if !strings.ContainsAny(pattern, "*?[") {
		return path == pattern || strings.HasSuffix(path, "/"+pattern) || strings.HasPrefix(path, pattern+"/") || strings.Contains(path, "/"+pattern+"/")
	}

	if globMatch(path, pattern) {
		return true
	}
	parts := strings.Split(path, "/")
	for i := range parts {
		if globMatch(strings.Join(parts[i:], "/"), pattern) {
			return true
		}
	}
	return false
}

// globMatch is a recursive glob matcher over a single path component chain:
// "*" matches within a path segment, "**" matches across segments.
func globMatch(path, pattern string) bool {
	return globMatchFrom(path, pattern, 0, 0)
}

func globMatchFrom(path, pattern string, pi, ti int) bool {
	for ti < len(pattern) {
		switch {
		case ti+1 < len(pattern) && pattern[ti] == '*' && pattern[ti+1] == '*':
			next := ti + 2
			if next < len(pattern) && pattern[next] == '/' {
				next++
			}
			if next >= len(pattern) {
				return true
			}
			for i := pi; i <= len(path); i++ {
				if globMatchFrom(path, pattern, i, next) {
					return true
				}
			}
			return false

		case pattern[ti] == '*':
			next := ti + 1
			for i := pi; i <= len(path); i++ {
				if i > pi && path[i-1] == '/' {
					break
				}
				if globMatchFrom(path, pattern, i, next) {
					return true
				}
			}
			return false

		case pattern[ti] == '?':
			if pi >= len(path) || path[pi] == '/' {
				return false
			}
			pi++
			ti++

		default:
			if pi >= len(path) || path[pi] != pattern[ti] {
				return false
			}
			pi++
			ti++
		}
	}
	return pi == len(path)
}
