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

// Package embedding implements the text-to-vector provider abstraction: a
// process-wide singleton provider handle, batching and chunking of
// over-window text, and retrying batch embedding with exponential backoff.
package embedding

import (
	"context"
	"fmt"
	"math"
	"os"
	"strings"
	"sync"
	"time"
)

// Provider turns text into fixed-dimension embedding vectors. A single
// Provider instance is shared by every caller in the process; Dimension
// does not change once it is non-zero.
type Provider interface {
	// Name identifies the provider for logging and Project.EmbeddingModel.
	Name() string

	// Dimension returns the vector width this provider produces. The mock
	// provider knows it up front; an HTTPProvider built with dimension 0
	// reports 0 until its first successful EmbedBatch call.
	Dimension() int

	// MaxBatch returns the largest number of texts this provider accepts
	// in one EmbedBatch call.
	MaxBatch() int

	// MaxTokens returns the provider's token window per input text, used
	// by the chunker to decide when a node's content must be split.
	MaxTokens() int

	// EmbedBatch embeds every text in texts, returning one vector per
	// input in the same order. A transient failure should be returned as
	// an error satisfying IsRetryable; the caller's retry loop handles
	// backoff, not the provider itself.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// handle is the process-wide singleton: re-creating a provider per query is
// forbidden by contract (spec §4.4), so construction happens once and every
// caller receives the same instance.
var (
	handleMu sync.Mutex
	handle   Provider
)

// Singleton lazily constructs the provider on first call and returns the
// same instance on every subsequent call for the lifetime of the process.
// The mutex is held across construction, so concurrent first calls wait for
// a single factory call and all receive its result.
func Singleton(factory func() (Provider, error)) (Provider, error) {
	handleMu.Lock()
	defer handleMu.Unlock()
	if handle != nil {
		return handle, nil
	}
	p, err := factory()
	if err != nil {
		return nil, err
	}
	handle = p
	return handle, nil
}

// ResetSingleton clears the process-wide handle. Tests use this to install
// a fresh mock provider between cases; production code never calls it.
func ResetSingleton() {
	handleMu.Lock()
	defer handleMu.Unlock()
	handle = nil
}

// NewFromEnv constructs a Provider based on CODEGRAPH_EMBEDDING_PROVIDER,
// mirroring the teacher's CreateEmbeddingProvider factory. Supported values:
// "mock" (deterministic, for tests and offline use) and "http" (a lean
// OpenAI/Ollama-compatible JSON endpoint configured via CODEGRAPH_EMBEDDING_URL
// and CODEGRAPH_MODEL). Config file loading and other provider discovery are
// external-collaborator concerns per spec §1; this is the narrow contract the
// core exposes to them.
func NewFromEnv() (Provider, error) {
	providerType := os.Getenv("CODEGRAPH_EMBEDDING_PROVIDER")
	switch strings.ToLower(providerType) {
	case "", "mock":
		return NewMockProvider(768), nil
	case "http", "remote":
		url := os.Getenv("CODEGRAPH_EMBEDDING_URL")
		if url == "" {
			return nil, fmt.Errorf("embedding: CODEGRAPH_EMBEDDING_URL required for http provider")
		}
		model := os.Getenv("CODEGRAPH_MODEL")
		return NewHTTPProvider(url, model, 0), nil
	default:
		return nil, fmt.Errorf("embedding: unknown provider %q (supported: mock, http)", providerType)
	}
}

// IsRetryable classifies a provider error as transient (network blip,
// timeout, 5xx/429) versus terminal, per spec §7's Transient error policy.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, s := range []string{
		"timeout", "temporarily unavailable", "connection refused",
		"connection reset", "deadline exceeded", "eof",
		" 429", " 500", " 502", " 503", " 504",
	} {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}

// Normalize scales v to unit L2 norm in place and returns it, matching the
// teacher's provider implementations which all normalize before returning.
func Normalize(v []float32) []float32 {
	if len(v) == 0 {
		return v
	}
	var sumSq float64
	for _, x := range v {
		sumSq += float64(x) * float64(x)
	}
	norm := math.Sqrt(sumSq)
	if norm == 0 {
		return v
	}
	inv := float32(1 / norm)
	for i := range v {
		v[i] *= inv
	}
	return v
}

// Mean returns the element-wise mean of vectors of equal length, the
// aggregation the data model requires for a chunked node's Embedding.
func Mean(vectors [][]float32) []float32 {
	if len(vectors) == 0 {
		return nil
	}
	dim := len(vectors[0])
	sum := make([]float64, dim)
	for _, v := range vectors {
		for i, x := range v {
			if i < dim {
				sum[i] += float64(x)
			}
		}
	}
	out := make([]float32, dim)
	for i, s := range sum {
		out[i] = float32(s / float64(len(vectors)))
	}
	return out
}

// RetryConfig controls EmbedWithRetry's exponential backoff.
type RetryConfig struct {
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	Multiplier     float64
}

// DefaultRetryConfig matches the teacher's embedding generator defaults.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:    3,
		InitialBackoff: 200 * time.Millisecond,
		MaxBackoff:     2 * time.Second,
		Multiplier:     2.0,
	}
}

// EmbedWithRetry calls p.EmbedBatch, retrying transient failures with
// exponential backoff up to cfg.MaxAttempts. A terminal failure (input
// error, or a transient error that exhausts retries) propagates per spec
// §7's "terminal failures propagate" contract.
func EmbedWithRetry(ctx context.Context, p Provider, texts []string, cfg RetryConfig) ([][]float32, error) {
	var lastErr error
	backoff := cfg.InitialBackoff
	for attempt := 0; attempt < cfg.MaxAttempts; attempt++ {
		vectors, err := p.EmbedBatch(ctx, texts)
		if err == nil {
			return vectors, nil
		}
		lastErr = err
		if !IsRetryable(err) || attempt == cfg.MaxAttempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
		backoff = time.Duration(float64(backoff) * cfg.Multiplier)
		if backoff > cfg.MaxBackoff {
			backoff = cfg.MaxBackoff
		}
	}
	return nil, fmt.Errorf("embedding: batch of %d failed after retries: %w", len(texts), lastErr)
}
