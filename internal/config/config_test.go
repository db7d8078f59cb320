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

package config

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultsPopulatesTuningKnobs(t *testing.T) {
	cfg := Defaults()
	assert.Equal(t, 512, cfg.Tuning.MaxChunkTokens)
	assert.Equal(t, "mock", cfg.Providers.Embedding)
	assert.Equal(t, "mock", cfg.Providers.LLM)
}

func TestLoadFromReaderOverlaysDefaults(t *testing.T) {
	yamlSrc := `
providers:
  embedding: http
  model: text-embed-3
tuning:
  max_chunk_tokens: 256
`
	cfg, err := LoadFromReader(strings.NewReader(yamlSrc))
	require.NoError(t, err)
	assert.Equal(t, "http", cfg.Providers.Embedding)
	assert.Equal(t, "text-embed-3", cfg.Providers.Model)
	assert.Equal(t, 256, cfg.Tuning.MaxChunkTokens)
	// Untouched defaults survive the overlay.
	assert.Equal(t, "mock", cfg.Providers.LLM)
	assert.Equal(t, 64, cfg.Tuning.ChunkOverlapTokens)
}

func TestLoadMissingFileFallsBackToDefaults(t *testing.T) {
	cfg, err := Load("/nonexistent/path/config.yaml")
	require.NoError(t, err)
	assert.Equal(t, Defaults().Providers, cfg.Providers)
}

func TestApplyEnvOverridesProviders(t *testing.T) {
	t.Setenv("CODEGRAPH_EMBEDDING_PROVIDER", "http")
	t.Setenv("CODEGRAPH_MAX_CHUNK_TOKENS", "128")

	cfg := Defaults()
	applyEnv(&cfg)
	assert.Equal(t, "http", cfg.Providers.Embedding)
	assert.Equal(t, 128, cfg.Tuning.MaxChunkTokens)
}
