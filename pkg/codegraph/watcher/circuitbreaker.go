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

package watcher

import (
	"math/rand"
	"sync"
	"time"
)

type breakerState int

const (
	breakerClosed breakerState = iota
	breakerOpen
)

// BreakerConfig tunes the circuit breaker's trip threshold and backoff
// schedule, per spec §4.11: "after N consecutive failures, pause for
// exponentially increasing backoff; resume on a successful health probe."
type BreakerConfig struct {
	MaxConsecutiveFailures int
	InitialBackoff         time.Duration
	MaxBackoff             time.Duration
	Multiplier             float64
}

// DefaultBreakerConfig matches the teacher's own embedding-retry defaults
// (pkg/ingestion's RetryConfig), scaled to a watcher's slower cadence.
var DefaultBreakerConfig = BreakerConfig{
	MaxConsecutiveFailures: 3,
	InitialBackoff:         2 * time.Second,
	MaxBackoff:             2 * time.Minute,
	Multiplier:             2.0,
}

// CircuitBreaker pauses reindex submission after repeated persistence-layer
// failures, then periodically allows one probe call through; a successful
// probe closes the breaker, a failed one schedules the next backoff step.
type CircuitBreaker struct {
	mu     sync.Mutex
	cfg    BreakerConfig
	state  breakerState
	fails  int
	nextAt time.Time
}

// NewCircuitBreaker builds a breaker with cfg, falling back to
// DefaultBreakerConfig's fields for any zero value.
func NewCircuitBreaker(cfg BreakerConfig) *CircuitBreaker {
	if cfg.MaxConsecutiveFailures <= 0 {
		cfg.MaxConsecutiveFailures = DefaultBreakerConfig.MaxConsecutiveFailures
	}
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = DefaultBreakerConfig.InitialBackoff
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = DefaultBreakerConfig.MaxBackoff
	}
	if cfg.Multiplier <= 1.0 {
		cfg.Multiplier = DefaultBreakerConfig.Multiplier
	}
	return &CircuitBreaker{cfg: cfg, state: breakerClosed}
}

// Allow reports whether a reindex attempt may proceed now: always true when
// closed, true only once the backoff window has elapsed when open (letting
// exactly one probe attempt through at a time).
func (b *CircuitBreaker) Allow(now time.Time) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == breakerClosed {
		return true
	}
	return !now.Before(b.nextAt)
}

// RecordSuccess closes the breaker and resets the failure count.
func (b *CircuitBreaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.state = breakerClosed
	b.fails = 0
}

// RecordFailure counts one consecutive failure; once the threshold is
// reached it opens the breaker and schedules the next probe with
// exponential backoff and full jitter.
func (b *CircuitBreaker) RecordFailure(now time.Time) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.fails++
	if b.fails < b.cfg.MaxConsecutiveFailures {
		return
	}
	b.state = breakerOpen
	attempt := b.fails - b.cfg.MaxConsecutiveFailures
	b.nextAt = now.Add(backoffWithJitter(b.cfg.InitialBackoff, attempt, b.cfg.Multiplier, b.cfg.MaxBackoff))
}

// Open reports whether the breaker currently has a run in progress blocked.
func (b *CircuitBreaker) Open() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state == breakerOpen
}

// backoffWithJitter computes base*multiplier^attempt, capped at capDur, then
// applies full jitter in [0, d]. Mirrors the teacher's
// computeBackoffWithJitter in pkg/ingestion/embedding.go.
func backoffWithJitter(base time.Duration, attempt int, multiplier float64, capDur time.Duration) time.Duration {
	exp := float64(base)
	for i := 0; i < attempt; i++ {
		exp *= multiplier
	}
	d := time.Duration(exp)
	if d > capDur {
		d = capDur
	}
	if d <= 0 {
		return base
	}
	return time.Duration(rand.Int63n(int64(d) + 1))
}
