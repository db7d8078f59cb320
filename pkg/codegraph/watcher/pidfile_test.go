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

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPIDFileAcquireAndStatus(t *testing.T) {
	dir := t.TempDir()

	pf, err := NewPIDFile(dir, "proj1")
	require.NoError(t, err)

	acquired, err := pf.TryAcquire()
	require.NoError(t, err)
	assert.True(t, acquired)

	info, err := Status(dir, "proj1")
	require.NoError(t, err)
	require.NotNil(t, info)
	assert.NotZero(t, info.PID)

	pf.Release()
}

func TestPIDFileSecondAcquireFailsWhileHeld(t *testing.T) {
	dir := t.TempDir()

	pf1, err := NewPIDFile(dir, "proj1")
	require.NoError(t, err)
	acquired, err := pf1.TryAcquire()
	require.NoError(t, err)
	require.True(t, acquired)
	defer pf1.Release()

	pf2, err := NewPIDFile(dir, "proj1")
	require.NoError(t, err)
	acquired, err = pf2.TryAcquire()
	require.NoError(t, err)
	assert.False(t, acquired)
}

func TestStatusReturnsNilWhenNeverStarted(t *testing.T) {
	dir := t.TempDir()
	info, err := Status(dir, "never-started")
	require.NoError(t, err)
	assert.Nil(t, info)
}
