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
	"strings"
	"testing"
	"time"
)

func TestSearchScreens(t *testing.T) {
	root := t.TempDir()
	p := newProject(t, "Search Test", "Track your habits", "Beautiful charts", "Sync across devices")
	if _, err := InitProject(root, p); err != nil {
		t.Fatalf("InitProject error: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	res, err := Search(ctx, root, SearchQuery{Text: "charts"})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(res) != 1 || res[0].ScreenID != p.Screens[1].ID || res[0].Order != 1 {
		t.Fatalf("unexpected results: %+v", res)
	}
	if !strings.Contains(res[0].Snippet, "[charts]") {
		t.Fatalf("snippet should mark the hit: %q", res[0].Snippet)
	}

	res, err = Search(ctx, root, SearchQuery{Text: "habits OR devices"})
	if err != nil {
		t.Fatalf("search OR: %v", err)
	}
	if len(res) != 2 || res[0].Order != 0 || res[1].Order != 2 {
		t.Fatalf("expected screens 0 and 2 in order, got %+v", res)
	}

	all, err := Search(ctx, root, SearchQuery{Limit: 2, Offset: 1})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 2 || all[0].Order != 1 {
		t.Fatalf("pagination mismatch: %+v", all)
	}
}

func TestSearchRequiresRoot(t *testing.T) {
	if _, err := Search(context.Background(), " ", SearchQuery{}); err == nil {
		t.Fatalf("expected error for empty root")
	}
}
