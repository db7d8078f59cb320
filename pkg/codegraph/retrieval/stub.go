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

package retrieval

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/kraklabs/codegraph/pkg/codegraph/model"
)

// StubInfo reports whether a node's body looks like a placeholder rather
// than a real implementation, so callers can flag (or filter) it in
// search and agentic-context results instead of presenting an empty
// stub as if it were load-bearing code.
type StubInfo struct {
	IsStub   bool     `json:"is_stub"`
	Reason   string   `json:"reason"`
	Patterns []string `json:"patterns,omitempty"`
}

type stubPattern struct {
	pattern *regexp.Regexp
	name    string
	langs   []model.Language // empty means all languages
}

// strongStubPatterns always indicate a stub, regardless of body length.
var strongStubPatterns = []stubPattern{
	{regexp.MustCompile(`(?i)return\s+(fmt\.Errorf|errors\.New)\s*\(\s*["'].*not\s+implemented`), "returns 'not implemented' error", []model.Language{model.LanguageGo}},
	{regexp.MustCompile(`(?i)panic\s*\(\s*["'].*not\s+implemented`), "panics with 'not implemented'", []model.Language{model.LanguageGo}},
	{regexp.MustCompile(`(?i)return\s+ErrNotImplemented\b`), "returns ErrNotImplemented", []model.Language{model.LanguageGo}},
	{regexp.MustCompile(`(?i)raise\s+NotImplementedError`), "raises NotImplementedError", []model.Language{model.LanguagePython}},
	{regexp.MustCompile(`(?i)\btodo!\s*\(`), "uses todo!()", []model.Language{model.LanguageRust}},
	{regexp.MustCompile(`(?i)\bunimplemented!\s*\(`), "uses unimplemented!()", []model.Language{model.LanguageRust}},
	{regexp.MustCompile(`(?i)throw\s+new\s+UnsupportedOperationException`), "throws UnsupportedOperationException", []model.Language{model.LanguageJava}},
	{regexp.MustCompile(`(?i)throw\s+new\s+Error\s*\(\s*["'].*not\s+implemented`), "throws 'not implemented' error", nil},
	{regexp.MustCompile(`(?i)["']not\s+implemented["']`), "contains 'not implemented' string", nil},
}

// weakStubPatterns only count toward a stub verdict when the body is
// very short, since e.g. "return nil" is a perfectly normal last line of
// a real function too — only suspicious when it's the *entire* body.
var weakStubPatterns = []stubPattern{
	{regexp.MustCompile(`^\s*return\s+nil\s*$`), "only returns nil", []model.Language{model.LanguageGo}},
	{regexp.MustCompile(`^\s*return\s*$`), "empty return", []model.Language{model.LanguageGo}},
	{regexp.MustCompile(`^\s*pass\s*$`), "only contains 'pass'", []model.Language{model.LanguagePython}},
	{regexp.MustCompile(`^\s*\.\.\.\s*$`), "only contains '...' (ellipsis)", []model.Language{model.LanguagePython}},
	{regexp.MustCompile(`^\s*return\s+None\s*$`), "only returns None", []model.Language{model.LanguagePython}},
	{regexp.MustCompile(`^\s*return\s*;\s*$`), "empty return", []model.Language{model.LanguageTypeScript, model.LanguageJavaScript}},
	{regexp.MustCompile(`^\s*return\s+undefined\s*;?\s*$`), "returns undefined", []model.Language{model.LanguageTypeScript, model.LanguageJavaScript}},
	{regexp.MustCompile(`^\s*return\s+null\s*;?\s*$`), "returns null", []model.Language{model.LanguageTypeScript, model.LanguageJavaScript}},
}

func appliesToLanguage(langs []model.Language, lang model.Language) bool {
	if len(langs) == 0 {
		return true
	}
	for _, l := range langs {
		if l == lang {
			return true
		}
	}
	return false
}

// DetectStub inspects a node's body and returns nil if it looks like a
// real implementation. A non-nil StubInfo always has IsStub set true;
// callers that only care about the boolean can check `info != nil`.
func DetectStub(n *model.CodeNode) *StubInfo {
	if n == nil || strings.TrimSpace(n.Content) == "" {
		return nil
	}

	var matched []string
	for _, sp := range strongStubPatterns {
		if appliesToLanguage(sp.langs, n.Language) && sp.pattern.MatchString(n.Content) {
			matched = append(matched, sp.name)
		}
	}
	if len(matched) > 0 {
		return &StubInfo{IsStub: true, Reason: fmt.Sprintf("function %s", strings.Join(matched, ", ")), Patterns: matched}
	}

	lines := countCodeLines(n.Content)
	if lines > 3 {
		return nil
	}

	for _, wp := range weakStubPatterns {
		if !appliesToLanguage(wp.langs, n.Language) {
			continue
		}
		for _, line := range strings.Split(n.Content, "\n") {
			if wp.pattern.MatchString(line) {
				matched = append(matched, wp.name)
				break
			}
		}
	}
	if len(matched) == 0 {
		return nil
	}
	return &StubInfo{
		IsStub:   true,
		Reason:   fmt.Sprintf("very short function (%d lines) that %s", lines, strings.Join(matched, ", ")),
		Patterns: matched,
	}
}

// countCodeLines counts non-empty, non-comment, non-brace lines — a
// rough measure of how much the body actually does, independent of
// whitespace or signature/closing-brace noise.
func countCodeLines(code string) int {
	count := 0
	inBlockComment := false
	for _, raw := range strings.Split(code, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}
		if strings.Contains(line, "/*") {
			inBlockComment = true
		}
		if strings.Contains(line, "*/") {
			inBlockComment = false
			continue
		}
		if inBlockComment {
			continue
		}
		if strings.HasPrefix(line, "//") || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "--") {
			continue
		}
		switch {
		case strings.HasPrefix(line, "func "),
			strings.HasPrefix(line, "def "),
			strings.HasPrefix(line, "function "),
			strings.HasPrefix(line, "async "),
			line == "{", line == "}", line == "(", line == ")":
			continue
		}
		count++
	}
	return count
}
