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

package parser

import "strings"

// fastMLVocabulary is a fixed set of lightweight substring markers spanning
// common constructs across the supported languages: HTTP routing, error
// handling, concurrency, persistence, auth, and test/stub idioms. It is
// intentionally a flat substring scan rather than a regex engine so a
// multi-megabyte file stays within the per-file cost budget.
var fastMLVocabulary = []string{
	"GET(", "POST(", "PUT(", "DELETE(", "PATCH(", "Handle(", "router.",
	"http.", "context.Context", "sync.Mutex", "sync.WaitGroup", "go func",
	"chan ", "select {", "defer ", "recover()", "panic(",
	"SELECT ", "INSERT INTO", "UPDATE ", "DELETE FROM", "Transaction",
	"Authorization", "jwt.", "bcrypt.", "oauth",
	"NotImplementedError", "not implemented", "TODO", "FIXME",
	"assert", "mock.", "Test(", "describe(",
}

// ScanFastMLPatterns scans content for fastMLVocabulary markers and returns
// the distinct matches found, preserving vocabulary order. Cost is a single
// linear pass per pattern over content, bounded well under the 1ms-per-file
// budget for source files of ordinary size.
func ScanFastMLPatterns(content string) []string {
	var found []string
	for _, pattern := range fastMLVocabulary {
		if strings.Contains(content, pattern) {
			found = append(found, pattern)
		}
	}
	return found
}
