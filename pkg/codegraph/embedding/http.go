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

package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// HTTPProvider calls a remote OpenAI-compatible embeddings endpoint. The
// remote embedding provider's own HTTP client is an external collaborator
// per spec §1; this is the narrow {embed(batch)} contract the core depends
// on, modeled after the teacher's OpenAIEmbeddingProvider.
type HTTPProvider struct {
	baseURL    string
	model      string
	httpClient *http.Client
	dimension  int
}

// NewHTTPProvider returns an HTTPProvider. dimension is discovered lazily:
// it is 0 until the first successful EmbedBatch call, after which Dimension
// reports the width actually observed, per spec §4.4's dimension-discovery
// contract.
func NewHTTPProvider(baseURL, model string, dimension int) *HTTPProvider {
	return &HTTPProvider{
		baseURL:    baseURL,
		model:      model,
		httpClient: &http.Client{Timeout: 60 * time.Second},
		dimension:  dimension,
	}
}

func (h *HTTPProvider) Name() string   { return "http:" + h.model }
func (h *HTTPProvider) Dimension() int { return h.dimension }
func (h *HTTPProvider) MaxBatch() int  { return 64 }
func (h *HTTPProvider) MaxTokens() int { return 8192 }

type httpEmbedRequest struct {
	Input []string `json:"input"`
	Model string   `json:"model,omitempty"`
}

type httpEmbedResponse struct {
	Data []struct {
		Index     int       `json:"index"`
		Embedding []float64 `json:"embedding"`
	} `json:"data"`
}

// EmbedBatch posts the whole batch in one request, matching an
// OpenAI-compatible /embeddings endpoint's native batching, and records the
// response dimension on first success.
func (h *HTTPProvider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	body, err := json.Marshal(httpEmbedRequest{Input: texts, Model: h.model})
	if err != nil {
		return nil, fmt.Errorf("embedding: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.baseURL+"/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("embedding: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := h.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("embedding: request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("embedding: read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("embedding: provider error (status %d): %s", resp.StatusCode, string(raw))
	}

	var parsed httpEmbedResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("embedding: parse response: %w", err)
	}
	if len(parsed.Data) != len(texts) {
		return nil, fmt.Errorf("embedding: expected %d vectors, got %d", len(texts), len(parsed.Data))
	}

	out := make([][]float32, len(parsed.Data))
	for _, d := range parsed.Data {
		v := make([]float32, len(d.Embedding))
		for i, x := range d.Embedding {
			v[i] = float32(x)
		}
		out[d.Index] = Normalize(v)
	}
	if h.dimension == 0 && len(out) > 0 {
		h.dimension = len(out[0])
	}
	return out, nil
}
