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

import "regexp"

// decisionPointPattern matches the decision-point tokens the cyclomatic
// complexity formula counts: if/while/for/match-arm/case/&&/||/catch/?.
// A single shared pattern keeps the count language-agnostic, matching the
// spec's intent of one formula across extractors rather than a bespoke
// per-language AST walk for complexity alone.
var decisionPointPattern = regexp.MustCompile(
	`\b(if|while|for|case|catch|elif|except)\b|&&|\|\||\?\.|=>\s*\{`,
)

// CyclomaticComplexity computes 1 + count(decision points) over body text.
// Per the data model invariant, any node with a body has complexity >= 1;
// callers leave Complexity unset (0) for bodiless declarations.
func CyclomaticComplexity(body string) int {
	if body == "" {
		return 0
	}
	matches := decisionPointPattern.FindAllStringIndex(body, -1)
	return 1 + len(matches)
}
