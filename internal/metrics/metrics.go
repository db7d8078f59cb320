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

// Package metrics holds the process-wide Prometheus collectors for the
// indexing pipeline, retrieval cache, ANN search, and agent loop. Every
// collector is a package-level var; Register wires them into a registry
// once, at process startup.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var latencyBuckets = []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10}

var (
	// Indexing pipeline (C2-C7).
	FilesWalked     = prometheus.NewCounter(prometheus.CounterOpts{Name: "codegraph_index_files_walked_total", Help: "Files visited by the directory walker"})
	FilesParsed     = prometheus.NewCounter(prometheus.CounterOpts{Name: "codegraph_index_files_parsed_total", Help: "Files successfully parsed into an AST"})
	FilesSkipped    = prometheus.NewCounter(prometheus.CounterOpts{Name: "codegraph_index_files_skipped_total", Help: "Files skipped by include/exclude globs"})
	ParseErrors     = prometheus.NewCounter(prometheus.CounterOpts{Name: "codegraph_index_parse_errors_total", Help: "Files that failed to parse"})
	NodesExtracted  = prometheus.NewCounter(prometheus.CounterOpts{Name: "codegraph_index_nodes_extracted_total", Help: "Code nodes extracted across all files"})
	EdgesResolved   = prometheus.NewCounter(prometheus.CounterOpts{Name: "codegraph_index_edges_resolved_total", Help: "Edges resolved between nodes"})
	EmbeddingsSent  = prometheus.NewCounter(prometheus.CounterOpts{Name: "codegraph_index_embeddings_sent_total", Help: "Embedding requests sent to the provider"})
	EmbeddingErrors = prometheus.NewCounter(prometheus.CounterOpts{Name: "codegraph_index_embedding_errors_total", Help: "Embedding requests that failed after retries"})

	WalkDuration      = prometheus.NewHistogram(prometheus.HistogramOpts{Name: "codegraph_index_walk_seconds", Help: "Directory walk duration", Buckets: latencyBuckets})
	ParseDuration     = prometheus.NewHistogram(prometheus.HistogramOpts{Name: "codegraph_index_parse_seconds", Help: "Per-file parse duration", Buckets: latencyBuckets})
	EmbedDuration     = prometheus.NewHistogram(prometheus.HistogramOpts{Name: "codegraph_index_embed_seconds", Help: "Embedding batch duration", Buckets: latencyBuckets})
	IndexRunDuration  = prometheus.NewHistogram(prometheus.HistogramOpts{Name: "codegraph_index_run_seconds", Help: "Total duration of one indexing run", Buckets: latencyBuckets})

	// Retrieval (C8).
	SearchRequests  = prometheus.NewCounter(prometheus.CounterOpts{Name: "codegraph_search_requests_total", Help: "Search calls served"})
	SearchCacheHits = prometheus.NewCounter(prometheus.CounterOpts{Name: "codegraph_search_cache_hits_total", Help: "Search calls served from the query cache"})
	RerankFailures  = prometheus.NewCounter(prometheus.CounterOpts{Name: "codegraph_search_rerank_failures_total", Help: "Rerank calls that fell back to ANN ranking"})
	SearchDuration  = prometheus.NewHistogram(prometheus.HistogramOpts{Name: "codegraph_search_seconds", Help: "End-to-end search latency", Buckets: latencyBuckets})
	ANNDuration     = prometheus.NewHistogram(prometheus.HistogramOpts{Name: "codegraph_ann_search_seconds", Help: "ANN shard search latency", Buckets: latencyBuckets})

	// Agent loop (C10).
	AgentRequests        = prometheus.NewCounter(prometheus.CounterOpts{Name: "codegraph_agent_requests_total", Help: "Agent controller Run calls"})
	AgentSteps            = prometheus.NewHistogram(prometheus.HistogramOpts{Name: "codegraph_agent_steps", Help: "ReAct loop steps per request", Buckets: []float64{1, 2, 3, 5, 8, 13, 21, 34}})
	AgentToolCacheHits    = prometheus.NewCounter(prometheus.CounterOpts{Name: "codegraph_agent_tool_cache_hits_total", Help: "Tool calls served from the tool cache"})
	AgentTerminations     = prometheus.NewCounterVec(prometheus.CounterOpts{Name: "codegraph_agent_terminations_total", Help: "Agent runs by termination reason"}, []string{"reason"})
	AgentRunDuration      = prometheus.NewHistogram(prometheus.HistogramOpts{Name: "codegraph_agent_run_seconds", Help: "Agent Run call duration", Buckets: latencyBuckets})

	// Watcher (C11).
	WatcherReindexTriggers = prometheus.NewCounter(prometheus.CounterOpts{Name: "codegraph_watcher_reindex_triggers_total", Help: "Debounce-settled reindex attempts"})
	WatcherBreakerOpens    = prometheus.NewCounter(prometheus.CounterOpts{Name: "codegraph_watcher_breaker_opens_total", Help: "Times the reindex circuit breaker opened"})
)

var collectors = []prometheus.Collector{
	FilesWalked, FilesParsed, FilesSkipped, ParseErrors, NodesExtracted, EdgesResolved, EmbeddingsSent, EmbeddingErrors,
	WalkDuration, ParseDuration, EmbedDuration, IndexRunDuration,
	SearchRequests, SearchCacheHits, RerankFailures, SearchDuration, ANNDuration,
	AgentRequests, AgentSteps, AgentToolCacheHits, AgentTerminations, AgentRunDuration,
	WatcherReindexTriggers, WatcherBreakerOpens,
}

// Register adds every collector to reg. Call once at process startup;
// registering twice against the same registry returns the registry's
// already-registered error rather than panicking.
func Register(reg prometheus.Registerer) error {
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}
