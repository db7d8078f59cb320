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

package bootstrap

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kraklabs/codegraph/internal/config"
)

func testConfig(t *testing.T) config.Config {
	cfg := config.Defaults()
	cfg.Store.Path = filepath.Join(t.TempDir(), "codegraph.db")
	return cfg
}

func TestOpenWiresEveryComponent(t *testing.T) {
	inst, err := Open("proj1", testConfig(t), nil)
	require.NoError(t, err)
	defer inst.Store.Close()

	assert.NotNil(t, inst.Embedder)
	assert.NotNil(t, inst.LLM)
	assert.NotNil(t, inst.ANNCache)
	assert.NotNil(t, inst.Registry)
	assert.NotNil(t, inst.Indexer)
	assert.NotNil(t, inst.Retrieval)
	assert.NotNil(t, inst.Analytics)
	assert.NotNil(t, inst.Agent)
	assert.NotNil(t, inst.RPCServer)
	require.NotNil(t, inst.Project)
	assert.Equal(t, "proj1", inst.Project.ProjectID)
	assert.Equal(t, "mock", inst.Project.EmbeddingModel)
}

func TestOpenIsIdempotentAcrossReopens(t *testing.T) {
	cfg := testConfig(t)

	inst1, err := Open("proj1", cfg, nil)
	require.NoError(t, err)
	created := inst1.Project.CreatedAt
	require.NoError(t, inst1.Store.Close())

	inst2, err := Open("proj1", cfg, nil)
	require.NoError(t, err)
	defer inst2.Store.Close()

	assert.Equal(t, created, inst2.Project.CreatedAt)
}

func TestOpenRejectsEmptyProjectID(t *testing.T) {
	_, err := Open("", testConfig(t), nil)
	assert.Error(t, err)
}

func TestBuildEmbeddingProviderRejectsUnknownProvider(t *testing.T) {
	cfg := config.Defaults()
	cfg.Providers.Embedding = "bogus"
	_, err := buildEmbeddingProvider(cfg)
	assert.Error(t, err)
}

func TestBuildLLMProviderRejectsUnknownProvider(t *testing.T) {
	cfg := config.Defaults()
	cfg.Providers.LLM = "bogus"
	_, err := buildLLMProvider(cfg)
	assert.Error(t, err)
}

func TestListProjectsOnMissingDataDirReturnsNilNotError(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	projects, err := ListProjects()
	require.NoError(t, err)
	assert.Nil(t, projects)
}
