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

import (
	"bufio"
	"regexp"
	"strings"

	"github.com/kraklabs/codegraph/pkg/codegraph/model"
)

// genericDeclPattern matches a handful of common declaration shapes across
// C-family, scripting, and JVM languages: a leading keyword (func, def,
// function, fn, class, struct, interface, trait, enum, impl), optionally
// preceded by modifiers such as export, public, private, protected, static,
// async or override, followed by an identifier. It is intentionally coarse:
// GenericExtractor trades precision for coverage of languages without a
// dedicated tree-sitter grammar wired in.
var genericDeclPattern = regexp.MustCompile(
	`^\s*(?:export\s+|public\s+|private\s+|protected\s+|static\s+|async\s+|override\s+)*` +
		`(func|def|function|fn|class|struct|interface|trait|enum|impl)\s+([A-Za-z_][A-Za-z0-9_]*)`,
)

// genericCallPattern matches a bare identifier immediately followed by "(",
// the common shape of a function or method call across the languages this
// extractor targets.
var genericCallPattern = regexp.MustCompile(`([A-Za-z_][A-Za-z0-9_.]*)\s*\(`)

// GenericExtractor is the fallback used for any language without a
// dedicated tree-sitter extractor registered. It recovers top-level
// declarations and their bodies with line-oriented brace/indent matching
// rather than a real grammar, so it misses nested or unusually formatted
// declarations; the edge resolver treats its output the same as any other
// extractor's.
type GenericExtractor struct {
	lang model.Language
}

// NewGenericExtractor returns a GenericExtractor registered as the
// registry's fallback. Its Language() reports LanguageUnknown because it
// is never looked up by language key; Registry.ParseFile reaches it only
// when no dedicated extractor is registered for the file's actual language.
func NewGenericExtractor() *GenericExtractor {
	return &GenericExtractor{lang: model.LanguageUnknown}
}

func (g *GenericExtractor) Language() model.Language { return g.lang }

// Parse implements Extractor using brace-depth tracking to find each
// declaration's body: a declaration's scope runs from its opening "{" (or,
// for indentation-based languages like Python, until the next
// lesser-or-equal-indented non-blank line) to its matching close.
func (g *GenericExtractor) Parse(projectID, filePath string, content []byte) (*ParsedFile, error) {
	lang := model.LanguageFromExtension(extOf(filePath))
	lines := splitLines(content)

	pf := &ParsedFile{FilePath: filePath, Language: lang}
	funcNameToID := make(map[string]model.NodeID)

	type pending struct {
		name      string
		nodeType  model.NodeType
		startLine int
		startCol  int
		indent    int
		braceOpen bool
		depth     int
	}
	var active *pending

	isPythonLike := lang == model.LanguagePython || lang == model.LanguageRuby

	flush := func(endLineIdx int) {
		if active == nil {
			return
		}
		bodyLines := lines[active.startLine-1 : minInt(endLineIdx+1, len(lines))]
		body := strings.Join(bodyLines, "\n")
		loc := model.Location{
			FilePath:  filePath,
			StartLine: active.startLine,
			StartCol:  active.startCol,
			EndLine:   endLineIdx + 1,
			EndCol:    1,
		}
		id := model.NewNodeID(filePath, active.nodeType, active.name, loc)
		node := &model.CodeNode{
			ID:             id,
			ProjectID:      projectID,
			Name:           active.name,
			QualifiedName:  active.name,
			NodeType:       active.nodeType,
			Language:       lang,
			FilePath:       filePath,
			StartLine:      loc.StartLine,
			StartCol:       loc.StartCol,
			EndLine:        loc.EndLine,
			EndCol:         loc.EndCol,
			Content:        body,
			FastMLPatterns: ScanFastMLPatterns(body),
		}
		if active.nodeType == model.NodeFunction || active.nodeType == model.NodeMethod {
			node.Complexity = CyclomaticComplexity(body)
			funcNameToID[active.name] = id
		}
		pf.Nodes = append(pf.Nodes, node)
		active = nil
	}

	for i, raw := range lines {
		indent := indentWidth(raw)

		if active != nil && isPythonLike && i >= active.startLine && strings.TrimSpace(raw) != "" && indent <= active.indent {
			flush(i - 1)
		}

		if m := genericDeclPattern.FindStringSubmatch(raw); m != nil {
			if active != nil {
				if isPythonLike && indent <= active.indent {
					flush(i - 1)
				} else if !isPythonLike {
					// brace-tracked languages close on depth, handled below.
				}
			}
			if active == nil {
				nt := model.NodeFunction
				switch m[1] {
				case "class":
					nt = model.NodeClass
				case "struct":
					nt = model.NodeStruct
				case "interface", "trait":
					nt = model.NodeInterface
				case "enum":
					nt = model.NodeEnum
				case "impl":
					nt = model.NodeType_
				}
				active = &pending{
					name:      m[2],
					nodeType:  nt,
					startLine: i + 1,
					startCol:  strings.Index(raw, m[0]) + 1,
					indent:    indent,
				}
			}
		}

		if active != nil && !isPythonLike {
			opens := strings.Count(raw, "{")
			closes := strings.Count(raw, "}")
			if opens > 0 {
				active.braceOpen = true
			}
			active.depth += opens - closes
			if active.braceOpen && active.depth <= 0 {
				flush(i)
			}
		}
	}
	if active != nil {
		flush(len(lines) - 1)
	}

	for _, n := range pf.Nodes {
		if n.NodeType != model.NodeFunction && n.NodeType != model.NodeMethod {
			continue
		}
		seen := make(map[string]bool)
		for _, m := range genericCallPattern.FindAllStringSubmatch(n.Content, -1) {
			callee := m[1]
			if callee == "" {
				continue
			}
			simple := callee
			if idx := strings.LastIndex(simple, "."); idx >= 0 {
				simple = simple[idx+1:]
			}
			if calleeID, ok := funcNameToID[simple]; ok && calleeID != n.ID {
				key := string(n.ID) + "->" + string(calleeID)
				if !seen[key] {
					seen[key] = true
					pf.IntraFileEdges = append(pf.IntraFileEdges, &model.Edge{
						ID:        model.NewEdgeID(n.ID, calleeID, model.EdgeCalls),
						ProjectID: projectID,
						From:      n.ID,
						To:        calleeID,
						EdgeType:  model.EdgeCalls,
					})
				}
			} else if isLikelyCall(callee) {
				pf.UnresolvedRefs = append(pf.UnresolvedRefs, model.UnresolvedRef{
					FromID:   n.ID,
					ToName:   callee,
					EdgeType: model.EdgeCalls,
					FilePath: filePath,
				})
			}
		}
	}

	return pf, nil
}

func isLikelyCall(name string) bool {
	switch name {
	case "if", "for", "while", "switch", "catch", "return", "func", "function", "def":
		return false
	}
	return name != ""
}

func extOf(filePath string) string {
	idx := strings.LastIndex(filePath, ".")
	if idx < 0 {
		return ""
	}
	return filePath[idx:]
}

func splitLines(content []byte) []string {
	var lines []string
	sc := bufio.NewScanner(strings.NewReader(string(content)))
	sc.Buffer(make([]byte, 0, 64*1024), 10*1024*1024)
	for sc.Scan() {
		lines = append(lines, sc.Text())
	}
	if len(lines) == 0 {
		lines = []string{""}
	}
	return lines
}

func indentWidth(line string) int {
	n := 0
	for _, r := range line {
		if r == ' ' {
			n++
		} else if r == '\t' {
			n += 4
		} else {
			break
		}
	}
	return n
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
