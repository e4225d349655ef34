/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package undo

import (
	"bytes"
	"sync"
	"time"
)

// DefaultCapacity is the per-key stack depth.
const DefaultCapacity = 30

// Snapshot is a reversible state blob for one key (a screen).
// Blob content is opaque to the manager; size is estimated as len(Blob).
// TS is when the snapshot was captured.
type Snapshot struct {
	Key  string
	Blob []byte
	TS   time.Time
}

// Config controls memory and depth caps.
type Config struct {
	// MaxBytes is a soft cap; the oldest entries behind the current position
	// are pruned across all keys when exceeded.
	MaxBytes int
	// MaxPerKey limits snapshots kept per key; the oldest is evicted first.
	MaxPerKey int
}

type stack struct {
	items []Snapshot
	cur   int // -1 when empty
}

// Manager keeps a linear history per key with a current position.
// Pushing while not at the end drops the redo branch.
// It is safe for concurrent use.
type Manager struct {
	cfg    Config
	mu     sync.Mutex
	stacks map[string]*stack
	// accounting
	totalBytes int
}

func NewManager(cfg Config) *Manager {
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = 64 * 1024 * 1024 // 64 MiB
	}
	if cfg.MaxPerKey <= 0 {
		cfg.MaxPerKey = DefaultCapacity
	}
	return &Manager{cfg: cfg, stacks: make(map[string]*stack)}
}

func (m *Manager) stackLocked(key string) *stack {
	s, ok := m.stacks[key]
	if !ok {
		s = &stack{cur: -1}
		m.stacks[key] = s
	}
	return s
}

// Push records s as the new current state of s.Key. It returns false when
// s.Blob equals the current snapshot, in which case nothing changes.
func (m *Manager) Push(s Snapshot) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	st := m.stackLocked(s.Key)
	if st.cur >= 0 && bytes.Equal(st.items[st.cur].Blob, s.Blob) {
		return false
	}
	if s.TS.IsZero() {
		s.TS = time.Now()
	}
	// Any new change invalidates the redo branch
	for _, dropped := range st.items[st.cur+1:] {
		m.totalBytes -= len(dropped.Blob)
	}
	st.items = append(st.items[:st.cur+1], s)
	st.cur = len(st.items) - 1
	m.totalBytes += len(s.Blob)
	m.enforceCapsLocked(st)
	return true
}

// Current returns the snapshot at the current position.
func (m *Manager) Current(key string) (Snapshot, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	st, ok := m.stacks[key]
	if !ok || st.cur < 0 {
		return Snapshot{}, false
	}
	return st.items[st.cur], true
}

// Step returns the snapshot delta positions away from the current one
// without moving. ok is false outside the stack.
func (m *Manager) Step(key string, delta int) (Snapshot, int, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	st, ok := m.stacks[key]
	if !ok || st.cur < 0 {
		return Snapshot{}, -1, false
	}
	i := st.cur + delta
	if i < 0 || i >= len(st.items) {
		return Snapshot{}, st.cur, false
	}
	return st.items[i], i, true
}

// Seek moves the current position of key to idx.
func (m *Manager) Seek(key string, idx int) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	st, ok := m.stacks[key]
	if !ok || idx < 0 || idx >= len(st.items) {
		return false
	}
	st.cur = idx
	return true
}

// Position returns the current index (-1 when empty) and the stack length.
func (m *Manager) Position(key string) (idx, n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	st, ok := m.stacks[key]
	if !ok {
		return -1, 0
	}
	return st.cur, len(st.items)
}

func (m *Manager) CanUndo(key string) bool {
	idx, _ := m.Position(key)
	return idx > 0
}

func (m *Manager) CanRedo(key string) bool {
	idx, n := m.Position(key)
	return idx >= 0 && idx < n-1
}

// Export returns a copy of the stack for key and its current index.
func (m *Manager) Export(key string) ([]Snapshot, int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	st, ok := m.stacks[key]
	if !ok {
		return nil, -1
	}
	return append([]Snapshot(nil), st.items...), st.cur
}

// Import replaces the stack for key. cur is clamped into range.
func (m *Manager) Import(key string, items []Snapshot, cur int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clearLocked(key)
	if len(items) == 0 {
		return
	}
	st := m.stackLocked(key)
	for _, s := range items {
		s.Key = key
		st.items = append(st.items, s)
		m.totalBytes += len(s.Blob)
	}
	st.cur = max(0, min(cur, len(st.items)-1))
	m.enforceCapsLocked(st)
}

// Clear drops the history of key.
func (m *Manager) Clear(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clearLocked(key)
}

func (m *Manager) clearLocked(key string) {
	st, ok := m.stacks[key]
	if !ok {
		return
	}
	for _, s := range st.items {
		m.totalBytes -= len(s.Blob)
	}
	delete(m.stacks, key)
	if m.totalBytes < 0 {
		m.totalBytes = 0
	}
}

// Stats returns current sizes for diagnostics.
func (m *Manager) Stats() (totalBytes int, keys int, totalSnapshots int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	keys = len(m.stacks)
	for _, st := range m.stacks {
		totalSnapshots += len(st.items)
	}
	return m.totalBytes, keys, totalSnapshots
}

func (m *Manager) enforceCapsLocked(st *stack) {
	// Per-key depth cap
	if extra := len(st.items) - m.cfg.MaxPerKey; extra > 0 {
		for _, s := range st.items[:extra] {
			m.totalBytes -= len(s.Blob)
		}
		st.items = append([]Snapshot(nil), st.items[extra:]...)
		st.cur = max(st.cur-extra, 0)
	}
	// Global memory cap: prune the oldest entry behind a current position
	for m.totalBytes > m.cfg.MaxBytes {
		var victim *stack
		for _, s := range m.stacks {
			if s.cur <= 0 {
				continue
			}
			if victim == nil || s.items[0].TS.Before(victim.items[0].TS) {
				victim = s
			}
		}
		if victim == nil {
			break
		}
		m.totalBytes -= len(victim.items[0].Blob)
		victim.items = victim.items[1:]
		victim.cur--
	}
}
