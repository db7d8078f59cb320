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

// Package bootstrap wires every codegraph component into one running
// instance: the store, embedding and LLM providers, the ANN cache, the
// parser registry, and the higher-level retrieval/analytics/agent
// services built on top of them. cmd/codegraph's verbs call into this
// package rather than constructing components themselves, so the wiring
// order and defaults live in exactly one place.
package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/kraklabs/codegraph/internal/config"
	"github.com/kraklabs/codegraph/pkg/codegraph/agent"
	"github.com/kraklabs/codegraph/pkg/codegraph/analytics"
	"github.com/kraklabs/codegraph/pkg/codegraph/ann"
	"github.com/kraklabs/codegraph/pkg/codegraph/embedding"
	"github.com/kraklabs/codegraph/pkg/codegraph/indexer"
	"github.com/kraklabs/codegraph/pkg/codegraph/model"
	"github.com/kraklabs/codegraph/pkg/codegraph/parser"
	"github.com/kraklabs/codegraph/pkg/codegraph/retrieval"
	"github.com/kraklabs/codegraph/pkg/codegraph/rpc"
	"github.com/kraklabs/codegraph/pkg/codegraph/store"
	"github.com/kraklabs/codegraph/pkg/llm"
)

// Instance holds every long-lived component of a running codegraph
// process. Fields are exported so cmd/codegraph verbs can reach the
// pieces they need (e.g. the CLI's `index` verb only needs Store,
// Indexer, and Project; `start stdio` needs RPCServer).
type Instance struct {
	Config    config.Config
	Project   *model.Project
	Store     store.Store
	Embedder  embedding.Provider
	LLM       llm.Provider
	ANNCache  *ann.Cache
	Registry  *parser.Registry
	Indexer   *indexer.Indexer
	Retrieval *retrieval.Service
	Analytics *analytics.Service
	Agent     *agent.Controller
	RPCServer *rpc.Server
	Logger    *slog.Logger
}

// Open builds an Instance for projectID using cfg, opening (or creating)
// the on-disk store at cfg.Store.Path. Callers must Close the returned
// Instance's Store when done.
func Open(projectID string, cfg config.Config, logger *slog.Logger) (*Instance, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if projectID == "" {
		return nil, fmt.Errorf("bootstrap: project_id is required")
	}

	if err := os.MkdirAll(filepath.Dir(cfg.Store.Path), 0o755); err != nil {
		return nil, fmt.Errorf("bootstrap: create store dir: %w", err)
	}

	s, err := store.Open(cfg.Store.Path)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: open store: %w", err)
	}

	embedder, err := buildEmbeddingProvider(cfg)
	if err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("bootstrap: embedding provider: %w", err)
	}

	provider, err := buildLLMProvider(cfg)
	if err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("bootstrap: llm provider: %w", err)
	}

	inst := wire(projectID, cfg, s, embedder, provider, logger)

	project, err := loadOrCreateProject(inst, projectID, embedder)
	if err != nil {
		_ = s.Close()
		return nil, err
	}
	inst.Project = project

	return inst, nil
}

// wire assembles every component above the store from already-constructed
// providers, without touching disk. Split out from Open so tests can wire
// an Instance around an in-memory store and mock providers directly.
func wire(projectID string, cfg config.Config, s store.Store, embedder embedding.Provider, provider llm.Provider, logger *slog.Logger) *Instance {
	annCache := ann.NewCache()
	registry := parser.NewRegistry()

	embedSvc := embedding.NewService(embedder, 4, 10, logger)
	idx := indexer.New(s, registry, embedSvc, annCache, logger)

	searcher := ann.NewSearcher(annCache, 4)
	queryCache := retrieval.NewQueryCache(retrieval.DefaultCacheSize, retrieval.DefaultCacheTTL)
	retrievalSvc := retrieval.New(s, embedder, searcher, retrieval.NewMockReranker(), queryCache, logger)

	analyticsSvc := analytics.New(s)

	toolExecutor := agent.NewToolExecutor(analyticsSvc, embedder)
	toolCache := agent.NewToolCache(agent.DefaultToolCacheSize)
	agentCtrl := agent.New(provider, toolExecutor, toolCache, logger)

	server := rpc.NewServer(logger)
	server.Register(rpc.NewSearchTool(retrievalSvc))
	server.Register(rpc.NewVectorSearchTool(retrievalSvc))
	server.Register(rpc.NewGraphNeighborsTool(analyticsSvc))
	server.Register(rpc.NewGraphTraverseTool(analyticsSvc))
	server.Register(rpc.NewAgenticContextTool(agentCtrl))
	server.Register(rpc.NewAgenticImpactTool(agentCtrl))
	server.Register(rpc.NewAgenticArchitectureTool(agentCtrl))
	server.Register(rpc.NewAgenticQualityTool(agentCtrl))

	return &Instance{
		Config:    cfg,
		Store:     s,
		Embedder:  embedder,
		LLM:       provider,
		ANNCache:  annCache,
		Registry:  registry,
		Indexer:   idx,
		Retrieval: retrievalSvc,
		Analytics: analyticsSvc,
		Agent:     agentCtrl,
		RPCServer: server,
		Logger:    logger,
	}
}

func loadOrCreateProject(inst *Instance, projectID string, embedder embedding.Provider) (*model.Project, error) {
	ctx := context.Background()
	existing, err := inst.Store.GetProject(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: get project: %w", err)
	}
	if existing != nil {
		return existing, nil
	}

	p := &model.Project{
		ProjectID:          projectID,
		CreatedAt:          time.Now().UTC(),
		EmbeddingModel:     embedder.Name(),
		EmbeddingDimension: embedder.Dimension(),
	}
	if err := inst.Store.UpsertProject(ctx, p); err != nil {
		return nil, fmt.Errorf("bootstrap: create project: %w", err)
	}
	return p, nil
}

func buildEmbeddingProvider(cfg config.Config) (embedding.Provider, error) {
	switch strings.ToLower(cfg.Providers.Embedding) {
	case "", "mock":
		return embedding.NewMockProvider(768), nil
	case "http", "remote":
		url := os.Getenv("CODEGRAPH_EMBEDDING_URL")
		if url == "" {
			return nil, fmt.Errorf("CODEGRAPH_EMBEDDING_URL required for http embedding provider")
		}
		return embedding.NewHTTPProvider(url, cfg.Providers.Model, 0), nil
	default:
		return nil, fmt.Errorf("unknown embedding provider %q (supported: mock, http)", cfg.Providers.Embedding)
	}
}

func buildLLMProvider(cfg config.Config) (llm.Provider, error) {
	switch strings.ToLower(cfg.Providers.LLM) {
	case "", "mock":
		return llm.NewMockProvider(100_000), nil
	default:
		return nil, fmt.Errorf("unknown llm provider %q (supported: mock)", cfg.Providers.LLM)
	}
}

// DataDir returns the default per-project data directory, mirroring the
// layout spec §6 documents: ~/.codegraph/data/<project_id>.
func DataDir(projectID string) (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("bootstrap: get home dir: %w", err)
	}
	return filepath.Join(home, ".codegraph", "data", projectID), nil
}

// ListProjects returns the project IDs found under the default data
// directory. A missing data directory is not an error: it means no
// project has been initialized yet.
func ListProjects() ([]string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("bootstrap: get home dir: %w", err)
	}

	dataDir := filepath.Join(home, ".codegraph", "data")
	entries, err := os.ReadDir(dataDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("bootstrap: read data dir: %w", err)
	}

	var projects []string
	for _, e := range entries {
		if e.IsDir() {
			projects = append(projects, e.Name())
		}
	}
	return projects, nil
}
