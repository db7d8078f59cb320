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
	"context"
	"fmt"
	"strings"
	"sync"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/golang"

	"github.com/kraklabs/codegraph/pkg/codegraph/model"
)

// GoExtractor extracts functions, methods, types, imports, and calls from
// Go source using tree-sitter's Go grammar. It is the primary, most
// complete extractor; other languages fall back to GenericExtractor until
// a dedicated tree-sitter grammar is wired in.
type GoExtractor struct {
	mu     sync.Mutex
	parser *sitter.Parser
}

// NewGoExtractor constructs a GoExtractor with a fresh tree-sitter parser
// bound to the Go grammar. Parsers are not safe for concurrent use, so Parse
// serializes access to the parser; one GoExtractor may be shared by the
// indexer's parse workers.
func NewGoExtractor() *GoExtractor {
	p := sitter.NewParser()
	p.SetLanguage(golang.GetLanguage())
	return &GoExtractor{parser: p}
}

func (g *GoExtractor) Language() model.Language { return model.LanguageGo }

type goWalkContext struct {
	projectID    string
	filePath     string
	content      []byte
	nodes        []*model.CodeNode
	funcNameToID map[string]model.NodeID
	anonCounter  int
}

// Parse implements Extractor.
func (g *GoExtractor) Parse(projectID, filePath string, content []byte) (*ParsedFile, error) {
	g.mu.Lock()
	tree, err := g.parser.ParseCtx(context.Background(), nil, content)
	g.mu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("tree-sitter parse %s: %w", filePath, err)
	}
	defer tree.Close()

	root := tree.RootNode()
	errCount := 0
	if root.HasError() {
		errCount = countTreeErrors(root)
	}

	ctx := &goWalkContext{
		projectID:    projectID,
		filePath:     filePath,
		content:      content,
		funcNameToID: make(map[string]model.NodeID),
	}

	g.walkDeclarations(root, ctx)

	pf := &ParsedFile{
		FilePath:        filePath,
		Language:        model.LanguageGo,
		Nodes:           ctx.nodes,
		ParseErrorCount: errCount,
	}

	// Second pass: calls, now that every in-file declaration has an ID.
	for _, n := range ctx.nodes {
		if n.NodeType != model.NodeFunction && n.NodeType != model.NodeMethod {
			continue
		}
		declNode := findDeclNodeForLocation(root, n.StartLine, n.StartCol)
		if declNode == nil {
			continue
		}
		edges, refs := g.extractCalls(declNode, ctx, n.ID)
		pf.IntraFileEdges = append(pf.IntraFileEdges, edges...)
		pf.UnresolvedRefs = append(pf.UnresolvedRefs, refs...)
	}

	g.walkTypes(root, ctx, pf)
	g.walkImports(root, ctx, pf)

	return pf, nil
}

func countTreeErrors(n *sitter.Node) int {
	count := 0
	if n.IsError() || n.IsMissing() {
		count++
	}
	for i := 0; i < int(n.ChildCount()); i++ {
		count += countTreeErrors(n.Child(i))
	}
	return count
}

// findDeclNodeForLocation re-locates the AST node for a previously recorded
// declaration by its start position; avoided carrying raw *sitter.Node
// pointers outside the single Parse call keeps ParsedFile a plain value.
func findDeclNodeForLocation(root *sitter.Node, startLine, startCol int) *sitter.Node {
	var found *sitter.Node
	var walk func(n *sitter.Node)
	walk = func(n *sitter.Node) {
		if found != nil {
			return
		}
		t := n.Type()
		if t == "function_declaration" || t == "method_declaration" || t == "func_literal" {
			if int(n.StartPoint().Row)+1 == startLine && int(n.StartPoint().Column)+1 == startCol {
				found = n
				return
			}
		}
		for i := 0; i < int(n.ChildCount()); i++ {
			walk(n.Child(i))
			if found != nil {
				return
			}
		}
	}
	walk(root)
	return found
}

func (g *GoExtractor) walkDeclarations(n *sitter.Node, ctx *goWalkContext) {
	if n == nil {
		return
	}
	switch n.Type() {
	case "function_declaration":
		if node := g.buildFunction(n, ctx, false); node != nil {
			ctx.nodes = append(ctx.nodes, node)
			ctx.funcNameToID[node.Name] = node.ID
		}
	case "method_declaration":
		if node := g.buildFunction(n, ctx, true); node != nil {
			ctx.nodes = append(ctx.nodes, node)
			simple := simpleName(node.Name)
			ctx.funcNameToID[simple] = node.ID
		}
	case "func_literal":
		ctx.anonCounter++
		if node := g.buildFuncLiteral(n, ctx); node != nil {
			ctx.nodes = append(ctx.nodes, node)
		}
	}
	for i := 0; i < int(n.ChildCount()); i++ {
		g.walkDeclarations(n.Child(i), ctx)
	}
}

func (g *GoExtractor) buildFunction(n *sitter.Node, ctx *goWalkContext, isMethod bool) *model.CodeNode {
	nameNode := n.ChildByFieldName("name")
	if nameNode == nil {
		return nil
	}
	name := textOf(n.ChildByFieldName("name"), ctx.content)

	var fullName string
	if isMethod {
		recv := n.ChildByFieldName("receiver")
		recvType := receiverTypeName(recv, ctx.content)
		if recvType != "" {
			fullName = recvType + "." + name
		} else {
			fullName = name
		}
	} else {
		fullName = name
	}

	signature := buildSignature(n, ctx.content, isMethod)
	return g.newNode(n, ctx, fullName, model.NodeType(nodeTypeForFunc(isMethod)), signature)
}

func nodeTypeForFunc(isMethod bool) model.NodeType {
	if isMethod {
		return model.NodeMethod
	}
	return model.NodeFunction
}

func (g *GoExtractor) buildFuncLiteral(n *sitter.Node, ctx *goWalkContext) *model.CodeNode {
	name := fmt.Sprintf("$anon_%d", ctx.anonCounter)
	signature := buildSignature(n, ctx.content, false)
	return g.newNode(n, ctx, name, model.NodeFunction, signature)
}

func (g *GoExtractor) newNode(n *sitter.Node, ctx *goWalkContext, name string, nt model.NodeType, signature string) *model.CodeNode {
	loc := model.Location{
		FilePath:  ctx.filePath,
		StartLine: int(n.StartPoint().Row) + 1,
		StartCol:  int(n.StartPoint().Column) + 1,
		EndLine:   int(n.EndPoint().Row) + 1,
		EndCol:    int(n.EndPoint().Column) + 1,
	}
	content := string(ctx.content[n.StartByte():n.EndByte()])
	id := model.NewNodeID(ctx.filePath, nt, name, loc)
	complexity := CyclomaticComplexity(content)
	return &model.CodeNode{
		ID:             id,
		ProjectID:      ctx.projectID,
		Name:           name,
		QualifiedName:  name,
		NodeType:       nt,
		Language:       model.LanguageGo,
		FilePath:       ctx.filePath,
		StartLine:      loc.StartLine,
		StartCol:       loc.StartCol,
		EndLine:        loc.EndLine,
		EndCol:         loc.EndCol,
		Content:        content,
		Signature:      signature,
		Complexity:     complexity,
		FastMLPatterns: ScanFastMLPatterns(content),
	}
}

func buildSignature(n *sitter.Node, content []byte, isMethod bool) string {
	var sb strings.Builder
	sb.WriteString("func ")
	if isMethod {
		if recv := n.ChildByFieldName("receiver"); recv != nil {
			sb.WriteString(textOf(recv, content))
			sb.WriteString(" ")
		}
		sb.WriteString(textOf(n.ChildByFieldName("name"), content))
	} else if name := n.ChildByFieldName("name"); name != nil {
		sb.WriteString(textOf(name, content))
	}
	if tp := n.ChildByFieldName("type_parameters"); tp != nil {
		sb.WriteString(textOf(tp, content))
	}
	sb.WriteString(textOf(n.ChildByFieldName("parameters"), content))
	if result := n.ChildByFieldName("result"); result != nil {
		sb.WriteString(" ")
		sb.WriteString(textOf(result, content))
	}
	return sb.String()
}

func textOf(n *sitter.Node, content []byte) string {
	if n == nil {
		return ""
	}
	return string(content[n.StartByte():n.EndByte()])
}

func receiverTypeName(receiver *sitter.Node, content []byte) string {
	if receiver == nil {
		return ""
	}
	for i := 0; i < int(receiver.ChildCount()); i++ {
		child := receiver.Child(i)
		if child.Type() == "parameter_declaration" {
			if t := child.ChildByFieldName("type"); t != nil {
				return baseTypeName(t, content)
			}
		}
	}
	return ""
}

func baseTypeName(t *sitter.Node, content []byte) string {
	if t == nil {
		return ""
	}
	switch t.Type() {
	case "pointer_type":
		for i := 0; i < int(t.ChildCount()); i++ {
			child := t.Child(i)
			if child.Type() != "*" {
				return baseTypeName(child, content)
			}
		}
	case "generic_type":
		if tn := t.ChildByFieldName("type"); tn != nil {
			return textOf(tn, content)
		}
	case "type_identifier":
		return textOf(t, content)
	}
	name := textOf(t, content)
	name = strings.TrimPrefix(name, "*")
	if idx := strings.Index(name, "["); idx > 0 {
		name = name[:idx]
	}
	return name
}

func simpleName(fullName string) string {
	if idx := strings.LastIndex(fullName, "."); idx >= 0 {
		return fullName[idx+1:]
	}
	return fullName
}

// extractCalls walks a declaration's body, emitting an intra-file Edge for
// calls resolvable against funcNameToID and an UnresolvedRef (for the edge
// resolver, C3) for everything else, including qualified pkg.Foo() calls.
func (g *GoExtractor) extractCalls(declNode *sitter.Node, ctx *goWalkContext, callerID model.NodeID) ([]*model.Edge, []model.UnresolvedRef) {
	body := declNode.ChildByFieldName("body")
	if body == nil {
		for i := 0; i < int(declNode.ChildCount()); i++ {
			if declNode.Child(i).Type() == "block" {
				body = declNode.Child(i)
				break
			}
		}
	}
	if body == nil {
		return nil, nil
	}

	var edges []*model.Edge
	var refs []model.UnresolvedRef
	seen := make(map[string]bool)

	var walk func(n *sitter.Node)
	walk = func(n *sitter.Node) {
		if n == nil {
			return
		}
		if n.Type() == "call_expression" {
			fn := n.ChildByFieldName("function")
			if fn != nil {
				simple := calleeSimpleName(fn, ctx.content)
				full := calleeFullName(fn, ctx.content)
				if simple != "" {
					if calleeID, ok := ctx.funcNameToID[simple]; ok && calleeID != callerID {
						key := string(callerID) + "->" + string(calleeID)
						if !seen[key] {
							seen[key] = true
							edges = append(edges, &model.Edge{
								ID:        model.NewEdgeID(callerID, calleeID, model.EdgeCalls),
								ProjectID: ctx.projectID,
								From:      callerID,
								To:        calleeID,
								EdgeType:  model.EdgeCalls,
							})
						}
					} else if full != "" {
						refs = append(refs, model.UnresolvedRef{
							FromID:   callerID,
							ToName:   full,
							EdgeType: model.EdgeCalls,
							FilePath: ctx.filePath,
							Line:     int(n.StartPoint().Row) + 1,
						})
					}
				}
			}
		}
		for i := 0; i < int(n.ChildCount()); i++ {
			walk(n.Child(i))
		}
	}
	walk(body)
	return edges, refs
}

func calleeSimpleName(n *sitter.Node, content []byte) string {
	switch n.Type() {
	case "identifier":
		return textOf(n, content)
	case "selector_expression":
		if field := n.ChildByFieldName("field"); field != nil {
			return textOf(field, content)
		}
	case "index_expression":
		if op := n.ChildByFieldName("operand"); op != nil {
			return calleeSimpleName(op, content)
		}
	}
	return ""
}

func calleeFullName(n *sitter.Node, content []byte) string {
	switch n.Type() {
	case "identifier":
		return textOf(n, content)
	case "selector_expression":
		return textOf(n, content)
	case "index_expression":
		if op := n.ChildByFieldName("operand"); op != nil {
			return calleeFullName(op, content)
		}
	}
	return ""
}

func (g *GoExtractor) walkTypes(root *sitter.Node, ctx *goWalkContext, pf *ParsedFile) {
	var walk func(n *sitter.Node)
	walk = func(n *sitter.Node) {
		if n == nil {
			return
		}
		if n.Type() == "type_declaration" {
			for i := 0; i < int(n.ChildCount()); i++ {
				child := n.Child(i)
				switch child.Type() {
				case "type_spec":
					if node := g.buildType(child, ctx); node != nil {
						pf.Nodes = append(pf.Nodes, node)
					}
				case "type_spec_list":
					for j := 0; j < int(child.ChildCount()); j++ {
						spec := child.Child(j)
						if spec.Type() == "type_spec" {
							if node := g.buildType(spec, ctx); node != nil {
								pf.Nodes = append(pf.Nodes, node)
							}
						}
					}
				}
			}
		}
		for i := 0; i < int(n.ChildCount()); i++ {
			walk(n.Child(i))
		}
	}
	walk(root)
}

func (g *GoExtractor) buildType(n *sitter.Node, ctx *goWalkContext) *model.CodeNode {
	nameNode := n.ChildByFieldName("name")
	if nameNode == nil {
		return nil
	}
	name := textOf(nameNode, ctx.content)

	typeNode := n.ChildByFieldName("type")
	nt := model.NodeType_
	if typeNode != nil {
		switch typeNode.Type() {
		case "struct_type":
			nt = model.NodeStruct
		case "interface_type":
			nt = model.NodeInterface
		}
	}
	node := g.newNode(n, ctx, name, nt, "")
	return node
}

func (g *GoExtractor) walkImports(root *sitter.Node, ctx *goWalkContext, pf *ParsedFile) {
	for i := 0; i < int(root.ChildCount()); i++ {
		child := root.Child(i)
		if child.Type() != "import_declaration" {
			continue
		}
		for j := 0; j < int(child.ChildCount()); j++ {
			spec := child.Child(j)
			switch spec.Type() {
			case "import_spec":
				g.recordImport(spec, ctx, pf)
			case "import_spec_list":
				for k := 0; k < int(spec.ChildCount()); k++ {
					s := spec.Child(k)
					if s.Type() == "import_spec" {
						g.recordImport(s, ctx, pf)
					}
				}
			}
		}
	}
}

func (g *GoExtractor) recordImport(n *sitter.Node, ctx *goWalkContext, pf *ParsedFile) {
	pathNode := n.ChildByFieldName("path")
	if pathNode == nil {
		return
	}
	path := strings.Trim(textOf(pathNode, ctx.content), `"`)
	pf.UnresolvedRefs = append(pf.UnresolvedRefs, model.UnresolvedRef{
		ToName:   path,
		EdgeType: model.EdgeImports,
		FilePath: ctx.filePath,
		Line:     int(n.StartPoint().Row) + 1,
	})
}
