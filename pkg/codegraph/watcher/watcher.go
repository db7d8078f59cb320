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

// Package watcher implements C11: it watches a project's root for
// file-system changes, coalesces bursts of events into a single debounced
// incremental reindex request, and guards the persistence layer behind a
// circuit breaker so a struggling store doesn't get hammered with retries.
package watcher

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/kraklabs/codegraph/pkg/codegraph/indexer"
	"github.com/kraklabs/codegraph/pkg/codegraph/model"
	"github.com/kraklabs/codegraph/pkg/codegraph/store"
)

// DefaultDebounce is spec §4.11's default coalescing window.
const DefaultDebounce = 300 * time.Millisecond

// skipDirs are subtrees never subscribed to, regardless of include/exclude
// globs — watching them produces nothing but event-storm noise (VCS
// internals, dependency trees, build output).
var skipDirs = map[string]bool{
	".git": true, "node_modules": true, ".codegraph": true,
	"vendor": true, "dist": true, "build": true, "target": true,
}

// Watcher drives one project's file-system subscription and reindex loop.
type Watcher struct {
	mu      sync.Mutex
	running bool

	project *model.Project
	idx     *indexer.Indexer
	store   store.Store
	opts    indexer.Options
	logger  *slog.Logger

	debounce time.Duration
	breaker  *CircuitBreaker
	onReport func(*indexer.IndexReport)

	fsw     *fsnotify.Watcher
	pending map[string]time.Time
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// Option configures a Watcher at construction time.
type Option func(*Watcher)

// WithDebounce overrides DefaultDebounce.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// WithBreakerConfig overrides DefaultBreakerConfig.
func WithBreakerConfig(cfg BreakerConfig) Option {
	return func(w *Watcher) { w.breaker = NewCircuitBreaker(cfg) }
}

// WithOnReport registers a callback invoked after every successful
// reindex, primarily for tests and for driving daemon status output.
func WithOnReport(fn func(*indexer.IndexReport)) Option {
	return func(w *Watcher) { w.onReport = fn }
}

// New builds a Watcher for project, driving idx on changes under
// project.RootPath.
func New(project *model.Project, idx *indexer.Indexer, s store.Store, opts indexer.Options, logger *slog.Logger, watcherOpts ...Option) *Watcher {
	if logger == nil {
		logger = slog.Default()
	}
	w := &Watcher{
		project:  project,
		idx:      idx,
		store:    s,
		opts:     opts,
		logger:   logger,
		debounce: DefaultDebounce,
		breaker:  NewCircuitBreaker(DefaultBreakerConfig),
		pending:  make(map[string]time.Time),
	}
	for _, o := range watcherOpts {
		o(w)
	}
	return w
}

// Start subscribes to the project root recursively and begins the event
// loop in a background goroutine. Non-blocking.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		w.mu.Unlock()
		return fmt.Errorf("watcher: new fsnotify watcher: %w", err)
	}
	w.fsw = fsw
	w.stopCh = make(chan struct{})
	w.doneCh = make(chan struct{})
	w.running = true
	w.mu.Unlock()

	if err := w.addRecursive(w.project.RootPath); err != nil {
		w.logger.Warn("watcher.subscribe.partial", "root", w.project.RootPath, "err", err)
	}

	go w.run(ctx)
	return nil
}

// Stop halts the event loop and releases the fsnotify handle.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	w.mu.Unlock()

	close(w.stopCh)
	<-w.doneCh
	_ = w.fsw.Close()
}

// addRecursive walks dir and subscribes every directory not in skipDirs.
func (w *Watcher) addRecursive(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if d.Name() != "." && skipDirs[d.Name()] {
			return filepath.SkipDir
		}
		if addErr := w.fsw.Add(path); addErr != nil {
			w.logger.Warn("watcher.subscribe.failed", "path", path, "err", addErr)
		}
		return nil
	})
}

// run is the main event loop: fsnotify events update the debounce map,
// a ticker periodically promotes settled paths to a reindex attempt.
func (w *Watcher) run(ctx context.Context) {
	defer close(w.doneCh)

	ticker := time.NewTicker(w.debounce / 3)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return

		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handleEvent(event)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Error("watcher.fsnotify.error", "err", err)

		case <-ticker.C:
			w.processSettled(ctx)
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if event.Op&fsnotify.Create != 0 {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if !skipDirs[filepath.Base(event.Name)] {
				if err := w.fsw.Add(event.Name); err != nil {
					w.logger.Warn("watcher.subscribe.new_dir_failed", "path", event.Name, "err", err)
				}
			}
			return
		}
	}

	ext := strings.ToLower(filepath.Ext(event.Name))
	if model.LanguageFromExtension(ext) == model.LanguageUnknown {
		return
	}

	w.mu.Lock()
	w.pending[event.Name] = time.Now()
	w.mu.Unlock()
}

func (w *Watcher) processSettled(ctx context.Context) {
	w.mu.Lock()
	now := time.Now()
	settled := false
	for _, t := range w.pending {
		if now.Sub(t) >= w.debounce {
			settled = true
			break
		}
	}
	if settled {
		for path, t := range w.pending {
			if now.Sub(t) >= w.debounce {
				delete(w.pending, path)
			}
		}
	}
	w.mu.Unlock()

	if settled {
		w.triggerReindex(ctx)
	}
}

// triggerReindex runs one incremental index(), guarded by the circuit
// breaker: a probe via GetProject must succeed before a reindex is
// attempted while the breaker is open.
func (w *Watcher) triggerReindex(ctx context.Context) {
	now := time.Now()
	if !w.breaker.Allow(now) {
		w.logger.Debug("watcher.reindex.skipped_breaker_open")
		return
	}

	if w.breaker.Open() {
		if _, err := w.store.GetProject(ctx, w.project.ProjectID); err != nil {
			w.breaker.RecordFailure(now)
			w.logger.Warn("watcher.health_probe.failed", "err", err)
			return
		}
	}

	report, err := w.idx.Run(ctx, w.project, w.opts)
	if err != nil {
		w.breaker.RecordFailure(now)
		w.logger.Error("watcher.reindex.failed", "err", err)
		return
	}

	w.breaker.RecordSuccess()
	w.logger.Info("watcher.reindex.completed", "nodes", report.Nodes, "edges", report.Edges)
	if w.onReport != nil {
		w.onReport(report)
	}
}
