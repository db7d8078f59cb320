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

package ui

import (
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
)

func TestInitColorsTogglesGlobalNoColor(t *testing.T) {
	InitColors(true)
	assert.True(t, color.NoColor)
	InitColors(false)
	assert.False(t, color.NoColor)
}

func TestLabelDimAndCountTextReturnPlainTextWithoutColor(t *testing.T) {
	InitColors(true)
	assert.Equal(t, "Project ID:", Label("Project ID:"))
	assert.Equal(t, "/tmp/x", DimText("/tmp/x"))
	assert.Equal(t, "42", CountText(42))
}
