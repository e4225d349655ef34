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
	"testing"
)

type memScene struct {
	state   string
	failOn  string
	applied int
}

func (s *memScene) Serialize() ([]byte, error) { return []byte(s.state), nil }

func (s *memScene) Deserialize(b []byte) error {
	if string(b) == s.failOn {
		return errors.New("corrupt")
	}
	s.state = string(b)
	s.applied++
	return nil
}

func newHistory(t *testing.T) (*History, *memScene) {
	t.Helper()
	sc := &memScene{state: "empty"}
	h := NewHistory(NewManager(Config{}), sc)
	h.Bind("screen-1")
	if err := h.Seed(); err != nil {
		t.Fatalf("Seed: %v", err)
	}
	return h, sc
}

func set(h *History, sc *memScene, v string) error {
	return h.Mutate(Commit, func() error { sc.state = v; return nil })
}

func must(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestUndoRedoRoundTrip(t *testing.T) {
	h, sc := newHistory(t)
	must(t, set(h, sc, "one"))
	must(t, set(h, sc, "two"))

	must(t, h.Undo())
	if sc.state != "one" {
		t.Fatalf("after first undo: %q", sc.state)
	}
	must(t, h.Undo())
	if sc.state != "empty" || h.CanUndo() {
		t.Fatalf("after second undo: %q canUndo=%v", sc.state, h.CanUndo())
	}

	// at the bound undo is a no-op
	before := sc.applied
	must(t, h.Undo())
	if sc.applied != before {
		t.Fatalf("undo at the bound replayed a snapshot")
	}

	must(t, h.Redo())
	must(t, h.Redo())
	if sc.state != "two" || h.CanRedo() {
		t.Fatalf("after redo: %q canRedo=%v", sc.state, h.CanRedo())
	}
}

func TestNestedMutationSnapshotsOnce(t *testing.T) {
	h, sc := newHistory(t)
	err := h.Mutate(Commit, func() error {
		sc.state = "a"
		return h.Mutate(Commit, func() error { sc.state = "b"; return nil })
	})
	must(t, err)
	if _, n := h.Manager().Position("screen-1"); n != 2 {
		t.Fatalf("expected 2 snapshots, got %d", n)
	}
	if h.State() != Idle {
		t.Fatalf("state = %v", h.State())
	}
}

func TestTransientDoesNotSnapshot(t *testing.T) {
	h, sc := newHistory(t)
	must(t, h.Mutate(Transient, func() error { sc.state = "dragging"; return nil }))
	if h.CanUndo() {
		t.Fatalf("transient mutation recorded a snapshot")
	}
	// a commit afterwards records the settled state
	must(t, h.Mutate(Commit, func() error { return nil }))
	if !h.CanUndo() {
		t.Fatalf("commit did not record the settled state")
	}
	if cur, _ := h.Manager().Current("screen-1"); string(cur.Blob) != "dragging" {
		t.Fatalf("current snapshot = %q", cur.Blob)
	}
}

func TestUnchangedCommitIsDeduplicated(t *testing.T) {
	h, sc := newHistory(t)
	must(t, set(h, sc, "empty"))
	if h.CanUndo() {
		t.Fatalf("identical state was recorded twice")
	}
}

func TestMutationAfterUndoDropsRedo(t *testing.T) {
	h, sc := newHistory(t)
	must(t, set(h, sc, "one"))
	must(t, set(h, sc, "two"))
	must(t, h.Undo())
	must(t, set(h, sc, "three"))
	if h.CanRedo() {
		t.Fatalf("redo branch survived a new mutation")
	}
	must(t, h.Undo())
	if sc.state != "one" {
		t.Fatalf("undo after branch: %q", sc.state)
	}
}

func TestReplayGuards(t *testing.T) {
	h, sc := newHistory(t)
	must(t, set(h, sc, "one"))

	var during error
	var state State
	h.OnAfterReplay(func() {
		state = h.State()
		during = h.Mutate(Commit, func() error { return nil })
		sc.state += "+fixed"
	})
	must(t, h.Undo())
	if state != Replaying {
		t.Fatalf("hook ran in state %v", state)
	}
	if !errors.Is(during, ErrReplaying) {
		t.Fatalf("mutation during replay: expected ErrReplaying, got %v", during)
	}
	if sc.state != "empty+fixed" || h.State() != Idle {
		t.Fatalf("after replay: %q state=%v", sc.state, h.State())
	}

	if err := h.Mutate(Commit, func() error { return h.Redo() }); !errors.Is(err, ErrMutating) {
		t.Fatalf("redo inside a mutation: expected ErrMutating, got %v", err)
	}
}

func TestFailedReplayKeepsPosition(t *testing.T) {
	h, sc := newHistory(t)
	must(t, set(h, sc, "one"))
	sc.failOn = "empty"
	if err := h.Undo(); err == nil {
		t.Fatalf("expected replay error")
	}
	if sc.state != "one" {
		t.Fatalf("failed replay changed the scene: %q", sc.state)
	}
	if idx, _ := h.Manager().Position("screen-1"); idx != 1 {
		t.Fatalf("position moved to %d", idx)
	}
	if h.State() != Idle {
		t.Fatalf("state = %v", h.State())
	}
}

func TestKeysAreIsolated(t *testing.T) {
	h, sc := newHistory(t)
	must(t, set(h, sc, "one"))
	h.Bind("screen-2")
	if h.CanUndo() {
		t.Fatalf("fresh key inherited history")
	}
	must(t, h.Seed())
	must(t, set(h, sc, "two"))
	h.Bind("screen-1")
	must(t, h.Undo())
	if sc.state != "empty" {
		t.Fatalf("screen-1 undo gave %q", sc.state)
	}
}

func TestSnapshotRequiresKey(t *testing.T) {
	h := NewHistory(NewManager(Config{}), &memScene{})
	if err := h.Snapshot(); !errors.Is(err, ErrUnbound) {
		t.Fatalf("expected ErrUnbound, got %v", err)
	}
}
