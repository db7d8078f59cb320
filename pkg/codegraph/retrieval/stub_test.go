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
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kraklabs/codegraph/pkg/codegraph/model"
)

func node(lang model.Language, content string) *model.CodeNode {
	return &model.CodeNode{Language: lang, Content: content}
}

func TestDetectStubNilOrEmptyReturnsNil(t *testing.T) {
	assert.Nil(t, DetectStub(nil))
	assert.Nil(t, DetectStub(node(model.LanguageGo, "   \n  ")))
}

func TestDetectStubStrongGoNotImplemented(t *testing.T) {
	info := DetectStub(node(model.LanguageGo, `func Foo() error {
	return fmt.Errorf("not implemented")
}`))
	assert.NotNil(t, info)
	assert.True(t, info.IsStub)
	assert.Contains(t, info.Patterns, "returns 'not implemented' error")
}

func TestDetectStubStrongRustTodoMacro(t *testing.T) {
	info := DetectStub(node(model.LanguageRust, `fn foo() {
	todo!()
}`))
	assert.NotNil(t, info)
	assert.Contains(t, info.Patterns, "uses todo!()")
}

func TestDetectStubStrongPythonNotImplementedError(t *testing.T) {
	info := DetectStub(node(model.LanguagePython, `def foo():
    raise NotImplementedError`))
	assert.NotNil(t, info)
	assert.Contains(t, info.Patterns, "raises NotImplementedError")
}

func TestDetectStubWeakGoReturnNilOnlyWhenShort(t *testing.T) {
	info := DetectStub(node(model.LanguageGo, `func Foo() error {
	return nil
}`))
	assert.NotNil(t, info)
	assert.Contains(t, info.Patterns, "only returns nil")
}

func TestDetectStubWeakPatternIgnoredWhenBodyIsSubstantial(t *testing.T) {
	info := DetectStub(node(model.LanguageGo, `func Foo(items []int) error {
	total := 0
	for _, v := range items {
		total += v
		if total > 1000 {
			return fmt.Errorf("overflow")
		}
	}
	return nil
}`))
	assert.Nil(t, info)
}

func TestDetectStubRealImplementationReturnsNil(t *testing.T) {
	info := DetectStub(node(model.LanguageGo, `func Add(a, b int) int {
	return a + b
}`))
	assert.Nil(t, info)
}

func TestDetectStubPythonPassBody(t *testing.T) {
	info := DetectStub(node(model.LanguagePython, `def foo():
    pass`))
	assert.NotNil(t, info)
	assert.Contains(t, info.Patterns, "only contains 'pass'")
}

func TestCountCodeLinesSkipsCommentsAndBraces(t *testing.T) {
	lines := countCodeLines(`func Foo() {
	// a comment
	x := 1
	/* block
	   comment */
	return x
}`)
	assert.Equal(t, 2, lines)
}
