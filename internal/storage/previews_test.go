/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package storage

import (
	"context"
	"testing"
	"time"
)

func TestPreviewsPutGetAndEvict(t *testing.T) {
	root := t.TempDir()
	if _, err := InitProject(root, newProject(t, "Prev Test")); err != nil {
		t.Fatalf("InitProject: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	t.Setenv("SHOTFRAME_PREVIEWS_MAX_BYTES", "100")

	put := func(w int) {
		t.Helper()
		if err := PutPreview(ctx, root, "s1", w, w, make([]byte, 40)); err != nil {
			t.Fatalf("put %d: %v", w, err)
		}
		time.Sleep(5 * time.Millisecond) // distinct access times
	}
	put(100)
	put(200)
	// Touch 100 so 200 is the least recently used.
	if b, err := GetPreview(ctx, root, "s1", 100, 100); err != nil || len(b) != 40 {
		t.Fatalf("get 100: %v", err)
	}
	time.Sleep(5 * time.Millisecond)
	put(300)

	total, err := TotalPreviewBytes(ctx, root)
	if err != nil {
		t.Fatalf("total: %v", err)
	}
	if total != 80 {
		t.Fatalf("expected eviction down to 80 bytes, got %d", total)
	}
	if b, _ := GetPreview(ctx, root, "s1", 200, 200); b != nil {
		t.Fatalf("least recently used preview should be evicted")
	}
	if b, _ := GetPreview(ctx, root, "s1", 100, 100); b == nil {
		t.Fatalf("recently read preview should survive")
	}
}

func TestPutPreviewRejectsEmpty(t *testing.T) {
	root := t.TempDir()
	if err := PutPreview(context.Background(), root, "", 1, 1, []byte("x")); err == nil {
		t.Fatalf("expected error for empty screen id")
	}
	if err := PutPreview(context.Background(), root, "s", 1, 1, nil); err == nil {
		t.Fatalf("expected error for empty blob")
	}
}

func TestGetOrCreatePreview(t *testing.T) {
	root := t.TempDir()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	calls := 0
	gen := func(context.Context) ([]byte, error) { calls++; return []byte("abcd"), nil }
	b, err := GetOrCreatePreview(ctx, root, "s2", 20, 40, gen)
	if err != nil {
		t.Fatalf("getOrCreate: %v", err)
	}
	if string(b) != "abcd" {
		t.Fatalf("unexpected data: %q", string(b))
	}
	if _, err := GetOrCreatePreview(ctx, root, "s2", 20, 40, gen); err != nil {
		t.Fatalf("getOrCreate 2: %v", err)
	}
	if calls != 1 {
		t.Fatalf("generator should be called once, got %d", calls)
	}
	if err := InvalidatePreviews(ctx, root, "s2"); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	if _, err := GetOrCreatePreview(ctx, root, "s2", 20, 40, gen); err != nil {
		t.Fatalf("getOrCreate 3: %v", err)
	}
	if calls != 2 {
		t.Fatalf("generator should run again after invalidation, got %d", calls)
	}
}

func TestMaxPreviewsBytes(t *testing.T) {
	t.Setenv("SHOTFRAME_PREVIEWS_MAX_BYTES", "")
	if MaxPreviewsBytes() != DefaultPreviewsMaxBytes {
		t.Fatalf("default not applied")
	}
	t.Setenv("SHOTFRAME_PREVIEWS_MAX_BYTES", "nope")
	if MaxPreviewsBytes() != DefaultPreviewsMaxBytes {
		t.Fatalf("invalid value not ignored")
	}
	t.Setenv("SHOTFRAME_PREVIEWS_MAX_BYTES", "1024")
	if MaxPreviewsBytes() != 1024 {
		t.Fatalf("override not applied")
	}
}
