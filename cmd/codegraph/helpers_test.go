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

package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveProjectIDPrefersExplicitFlag(t *testing.T) {
	id, err := resolveProjectID(GlobalFlags{Project: "explicit-id"})
	require.NoError(t, err)
	assert.Equal(t, "explicit-id", id)
}

func TestResolveProjectIDFallsBackToDirectoryName(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "my-project")
	require.NoError(t, os.MkdirAll(dir, 0o755))

	cwd, err := os.Getwd()
	require.NoError(t, err)
	defer os.Chdir(cwd)

	require.NoError(t, os.Chdir(dir))
	id, err := resolveProjectID(GlobalFlags{})
	require.NoError(t, err)
	assert.Equal(t, "my-project", id)
}

func TestLoadConfigFallsBackToDefaultsWhenConfigMissing(t *testing.T) {
	cfg := loadConfig(GlobalFlags{Config: filepath.Join(t.TempDir(), "nonexistent.yaml")})
	assert.Equal(t, "mock", cfg.Providers.Embedding)
}
