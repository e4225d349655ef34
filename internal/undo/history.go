/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package undo

import (
	"errors"
	"fmt"
	"log/slog"

	applog "shotframe/internal/log"
)

// State of a History.
type State int

const (
	Idle State = iota
	Mutating
	Replaying
)

func (s State) String() string {
	switch s {
	case Mutating:
		return "mutating"
	case Replaying:
		return "replaying"
	}
	return "idle"
}

// Kind classifies a mutation.
type Kind int

const (
	// Commit mutations record one snapshot when the outermost one returns.
	Commit Kind = iota
	// Transient mutations (live drag feedback) never record.
	Transient
)

var (
	ErrReplaying = errors.New("undo: history is replaying")
	ErrMutating  = errors.New("undo: cannot replay during a mutation")
	ErrUnbound   = errors.New("undo: no history key bound")
)

// Scene is the state a History snapshots and restores.
type Scene interface {
	Serialize() ([]byte, error)
	Deserialize(data []byte) error
}

// History drives snapshots of one scene into a Manager under the bound key.
// It is owned by the UI loop and not safe for concurrent use.
type History struct {
	m           *Manager
	scene       Scene
	key         string
	state       State
	depth       int
	pending     bool
	afterReplay func()
	log         *slog.Logger
}

func NewHistory(m *Manager, scene Scene) *History {
	return &History{m: m, scene: scene, log: applog.WithComponent("history")}
}

// Bind switches the key snapshots go to (the live screen id).
func (h *History) Bind(key string) { h.key = key }

func (h *History) Key() string { return h.key }

func (h *History) State() State { return h.state }

func (h *History) Manager() *Manager { return h.m }

// OnAfterReplay sets a hook run after a successful undo/redo, while the
// history is still Replaying. It must mutate the scene directly.
func (h *History) OnAfterReplay(fn func()) { h.afterReplay = fn }

// Mutate runs fn as one mutation. Nested calls join the outermost one; a
// single snapshot is taken when the outermost returns if any level was a
// Commit. Mutations are refused while replaying.
func (h *History) Mutate(kind Kind, fn func() error) (err error) {
	if h.state == Replaying {
		return ErrReplaying
	}
	outer := h.depth == 0
	if outer {
		h.state = Mutating
	}
	h.depth++
	if kind == Commit {
		h.pending = true
	}
	defer func() {
		h.depth--
		if !outer {
			return
		}
		h.state = Idle
		if h.pending {
			h.pending = false
			if serr := h.Snapshot(); serr != nil && err == nil {
				err = serr
			}
		}
	}()
	return fn()
}

// Seed records the current scene when the bound key has no history yet.
func (h *History) Seed() error {
	if _, n := h.m.Position(h.key); n > 0 {
		return nil
	}
	return h.Snapshot()
}

// Snapshot serializes the scene and pushes it. It is a no-op while
// replaying and deduplicates against the current snapshot.
func (h *History) Snapshot() error {
	if h.state == Replaying {
		return nil
	}
	if h.key == "" {
		return ErrUnbound
	}
	blob, err := h.scene.Serialize()
	if err != nil {
		h.log.Warn("snapshot failed", slog.String("key", h.key), slog.Any("err", err))
		return fmt.Errorf("snapshot: %w", err)
	}
	if h.m.Push(Snapshot{Key: h.key, Blob: blob}) {
		idx, n := h.m.Position(h.key)
		h.log.Debug("snapshot", slog.String("key", h.key), slog.Int("index", idx), slog.Int("len", n))
	}
	return nil
}

func (h *History) Undo() error { return h.replay(-1) }
func (h *History) Redo() error { return h.replay(1) }

func (h *History) CanUndo() bool { return h.m.CanUndo(h.key) }
func (h *History) CanRedo() bool { return h.m.CanRedo(h.key) }

// replay restores the snapshot delta steps away. At the bounds it is a
// no-op. The position only moves once the scene accepted the snapshot.
func (h *History) replay(delta int) error {
	switch h.state {
	case Replaying:
		return ErrReplaying
	case Mutating:
		return ErrMutating
	}
	target, idx, ok := h.m.Step(h.key, delta)
	if !ok {
		return nil
	}
	h.state = Replaying
	defer func() { h.state = Idle }()
	if err := h.scene.Deserialize(target.Blob); err != nil {
		h.log.Warn("replay failed", slog.String("key", h.key), slog.Int("target", idx), slog.Any("err", err))
		return fmt.Errorf("replay snapshot %d: %w", idx, err)
	}
	h.m.Seek(h.key, idx)
	if h.afterReplay != nil {
		h.afterReplay()
	}
	return nil
}
