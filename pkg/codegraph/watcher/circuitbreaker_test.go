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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCircuitBreakerStaysClosedBelowThreshold(t *testing.T) {
	b := NewCircuitBreaker(BreakerConfig{MaxConsecutiveFailures: 3, InitialBackoff: time.Millisecond, MaxBackoff: time.Second, Multiplier: 2})
	now := time.Now()

	b.RecordFailure(now)
	b.RecordFailure(now)
	assert.False(t, b.Open())
	assert.True(t, b.Allow(now))
}

func TestCircuitBreakerOpensAtThresholdAndBlocksUntilBackoffElapses(t *testing.T) {
	b := NewCircuitBreaker(BreakerConfig{MaxConsecutiveFailures: 2, InitialBackoff: 50 * time.Millisecond, MaxBackoff: time.Second, Multiplier: 2})
	now := time.Now()

	b.RecordFailure(now)
	b.RecordFailure(now)
	require.True(t, b.Open())
	assert.False(t, b.Allow(now))
	assert.True(t, b.Allow(now.Add(time.Second)))
}

func TestCircuitBreakerRecordSuccessCloses(t *testing.T) {
	b := NewCircuitBreaker(BreakerConfig{MaxConsecutiveFailures: 1, InitialBackoff: 50 * time.Millisecond, MaxBackoff: time.Second, Multiplier: 2})
	now := time.Now()

	b.RecordFailure(now)
	require.True(t, b.Open())

	b.RecordSuccess()
	assert.False(t, b.Open())
	assert.True(t, b.Allow(now))
}

func TestCircuitBreakerDefaultsFillZeroValues(t *testing.T) {
	b := NewCircuitBreaker(BreakerConfig{})
	assert.Equal(t, DefaultBreakerConfig.MaxConsecutiveFailures, b.cfg.MaxConsecutiveFailures)
	assert.Equal(t, DefaultBreakerConfig.InitialBackoff, b.cfg.InitialBackoff)
}
