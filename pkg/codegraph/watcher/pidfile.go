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
	"fmt"
	"os"
	"path/filepath"
	"syscall"
	"time"
)

// PIDFile manages the daemon lifecycle lock for one project's watcher, per
// spec §4.11's "lifecycle managed via PID file for start/stop/status."
type PIDFile struct {
	path string
	file *os.File
}

// PIDInfo is what a PID file records about its holder.
type PIDInfo struct {
	PID       int
	StartedAt time.Time
}

// NewPIDFile builds a PIDFile under dir, one per project.
func NewPIDFile(dir, projectID string) (*PIDFile, error) {
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("watcher: create pid dir: %w", err)
	}
	return &PIDFile{path: filepath.Join(dir, projectID+".pid")}, nil
}

// TryAcquire locks the PID file exclusively and non-blocking, writing this
// process's PID and start time on success. Returns false if another process
// already holds the lock (status "running").
func (p *PIDFile) TryAcquire() (bool, error) {
	f, err := os.OpenFile(p.path, os.O_CREATE|os.O_RDWR, 0600)
	if err != nil {
		return false, fmt.Errorf("watcher: open pid file: %w", err)
	}

	if err := syscall.Flock(int(f.Fd()), syscall.LOCK_EX|syscall.LOCK_NB); err != nil {
		_ = f.Close()
		if err == syscall.EWOULDBLOCK {
			return false, nil
		}
		return false, fmt.Errorf("watcher: flock pid file: %w", err)
	}

	if err := f.Truncate(0); err != nil {
		_ = f.Close()
		return false, fmt.Errorf("watcher: truncate pid file: %w", err)
	}
	if _, err := f.Seek(0, 0); err != nil {
		_ = f.Close()
		return false, fmt.Errorf("watcher: seek pid file: %w", err)
	}
	if _, err := fmt.Fprintf(f, "%d %d\n", os.Getpid(), time.Now().Unix()); err != nil {
		_ = f.Close()
		return false, fmt.Errorf("watcher: write pid file: %w", err)
	}

	p.file = f
	return true, nil
}

// Release unlocks and closes the PID file. The file itself is left in
// place; a stale, unlocked PID file is harmless since the next TryAcquire
// re-locks and overwrites it.
func (p *PIDFile) Release() {
	if p.file == nil {
		return
	}
	_ = syscall.Flock(int(p.file.Fd()), syscall.LOCK_UN)
	_ = p.file.Close()
	p.file = nil
}

// Status reads the current holder's PID info without acquiring the lock.
// Returns nil, nil if no watcher is running (file absent, or present but
// its holder process is gone).
func Status(dir, projectID string) (*PIDInfo, error) {
	path := filepath.Join(dir, projectID+".pid")
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("watcher: read pid file: %w", err)
	}

	var pid int
	var unixTime int64
	if _, err := fmt.Sscanf(string(data), "%d %d", &pid, &unixTime); err != nil {
		return nil, fmt.Errorf("watcher: parse pid file: %w", err)
	}

	proc, err := os.FindProcess(pid)
	if err != nil {
		return nil, nil
	}
	if err := proc.Signal(syscall.Signal(0)); err != nil {
		return nil, nil
	}

	return &PIDInfo{PID: pid, StartedAt: time.Unix(unixTime, 0)}, nil
}
