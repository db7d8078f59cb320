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

import "time"

// IndexReport summarizes one indexing run, per spec §4.7 step 10.
type IndexReport struct {
	ProjectID     string
	FilesAdded    int
	FilesModified int
	FilesDeleted  int
	FilesUnchanged int
	FilesSkipped  map[string]int

	Nodes  int
	Edges  int
	Chunks int

	ParseErrors        int
	UnresolvedRefs     int
	EmbeddingErrors    int
	EdgeCountMismatch  bool

	WallTime     time.Duration
	StageTimings map[string]time.Duration
}

// Options configures one Run call, per spec §4.7's enumerate/filter/force
// knobs.
type Options struct {
	IncludeGlobs      []string
	ExcludeGlobs      []string
	MaxFileSizeBytes  int64
	Force             bool
	ParseConcurrency  int
	EmbedConcurrency  int
	EmbedRatePerSec   float64
}
