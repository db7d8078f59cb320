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

// Package config defines the process-wide Config shape and its loader: a
// YAML file overlaid with environment variables, defaults applied in code.
// Loading is an external-collaborator concern; the core packages only
// consume the resulting values, never os.Getenv or file I/O directly.
package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// StoreConfig configures the persistence layer.
type StoreConfig struct {
	Path string `yaml:"path"`
}

// ProvidersConfig selects the embedding and LLM providers and their models.
type ProvidersConfig struct {
	Embedding string `yaml:"embedding"`
	LLM       string `yaml:"llm"`
	Model     string `yaml:"model"`
}

// TuningConfig holds the numeric knobs spec §6 names.
type TuningConfig struct {
	MaxChunkTokens    int           `yaml:"max_chunk_tokens"`
	ChunkOverlapTokens int          `yaml:"chunk_overlap_tokens"`
	AgentTimeout      time.Duration `yaml:"agent_timeout"`
	AgentMaxOutputTokens int        `yaml:"agent_max_output_tokens"`
	AgentMemoryWindow int           `yaml:"agent_memory_window"`
	Debug             bool          `yaml:"debug"`
}

// DaemonConfig configures the background watcher.
type DaemonConfig struct {
	AutoStart bool   `yaml:"auto_start"`
	WatchPath string `yaml:"watch_path"`
}

// Config is the root configuration structure for codegraph.
type Config struct {
	Store     StoreConfig     `yaml:"store"`
	Providers ProvidersConfig `yaml:"providers"`
	Tuning    TuningConfig    `yaml:"tuning"`
	Daemon    DaemonConfig    `yaml:"daemon"`
}

// Defaults returns a Config populated with every built-in default, per
// spec §6's documented knobs.
func Defaults() Config {
	return Config{
		Store:     StoreConfig{Path: defaultStorePath()},
		Providers: ProvidersConfig{Embedding: "mock", LLM: "mock"},
		Tuning: TuningConfig{
			MaxChunkTokens:       512,
			ChunkOverlapTokens:   64,
			AgentTimeout:         300 * time.Second,
			AgentMaxOutputTokens: 4096,
			AgentMemoryWindow:    32,
		},
	}
}

func defaultStorePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".codegraph/codegraph.db"
	}
	return filepath.Join(home, ".codegraph", "codegraph.db")
}

// DefaultConfigPath is where Load looks for a YAML overlay when none is
// given explicitly.
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".codegraph/config.yaml"
	}
	return filepath.Join(home, ".codegraph", "config.yaml")
}

// Load builds a Config from built-in defaults, a YAML file at path (when it
// exists; a missing file is not an error), and environment variable
// overrides, applied in that order. An empty path uses DefaultConfigPath.
func Load(path string) (Config, error) {
	cfg := Defaults()

	if path == "" {
		path = DefaultConfigPath()
	}
	f, err := os.Open(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return Config{}, fmt.Errorf("config: open %q: %w", path, err)
		}
	} else {
		defer f.Close()
		if err := overlayFromReader(&cfg, f); err != nil {
			return Config{}, fmt.Errorf("config: parse %q: %w", path, err)
		}
	}

	applyEnv(&cfg)
	return cfg, nil
}

// overlayFromReader decodes YAML from r on top of cfg's current values.
// Exported as LoadFromReader for tests that construct configs from string
// literals rather than files.
func overlayFromReader(cfg *Config, r io.Reader) error {
	dec := yaml.NewDecoder(r)
	return dec.Decode(cfg)
}

// LoadFromReader builds a Config from defaults overlaid by the YAML read
// from r, with no environment overrides applied. Tests use this to avoid
// touching the filesystem or process environment.
func LoadFromReader(r io.Reader) (Config, error) {
	cfg := Defaults()
	if err := overlayFromReader(&cfg, r); err != nil {
		return Config{}, fmt.Errorf("config: decode yaml: %w", err)
	}
	return cfg, nil
}

// applyEnv overlays recognized environment variables onto cfg, per spec
// §6's env var table.
func applyEnv(cfg *Config) {
	if v := os.Getenv("CODEGRAPH_EMBEDDING_PROVIDER"); v != "" {
		cfg.Providers.Embedding = v
	}
	if v := os.Getenv("CODEGRAPH_LLM_PROVIDER"); v != "" {
		cfg.Providers.LLM = v
	}
	if v := os.Getenv("CODEGRAPH_MODEL"); v != "" {
		cfg.Providers.Model = v
	}
	if v := os.Getenv("CODEGRAPH_MAX_CHUNK_TOKENS"); v != "" {
		setInt(&cfg.Tuning.MaxChunkTokens, v)
	}
	if v := os.Getenv("CODEGRAPH_CHUNK_OVERLAP_TOKENS"); v != "" {
		setInt(&cfg.Tuning.ChunkOverlapTokens, v)
	}
	if v := os.Getenv("CODEGRAPH_AGENT_TIMEOUT_SECS"); v != "" {
		setSeconds(&cfg.Tuning.AgentTimeout, v)
	}
	if v := os.Getenv("MCP_CODE_AGENT_MAX_OUTPUT_TOKENS"); v != "" {
		setInt(&cfg.Tuning.AgentMaxOutputTokens, v)
	}
	if v := os.Getenv("CODEGRAPH_AGENT_MEMORY_WINDOW"); v != "" {
		setInt(&cfg.Tuning.AgentMemoryWindow, v)
	}
	if os.Getenv("CODEGRAPH_DEBUG") != "" {
		cfg.Tuning.Debug = true
	}
	if os.Getenv("CODEGRAPH_DAEMON_AUTO_START") != "" {
		cfg.Daemon.AutoStart = true
	}
	if v := os.Getenv("CODEGRAPH_DAEMON_WATCH_PATH"); v != "" {
		cfg.Daemon.WatchPath = v
	}
}

func setInt(dst *int, raw string) {
	var v int
	if _, err := fmt.Sscanf(raw, "%d", &v); err == nil {
		*dst = v
	}
}

func setSeconds(dst *time.Duration, raw string) {
	var secs int
	if _, err := fmt.Sscanf(raw, "%d", &secs); err == nil {
		*dst = time.Duration(secs) * time.Second
	}
}
