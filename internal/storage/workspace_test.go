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

	"shotframe/internal/compose"
	"shotframe/internal/devices"
	"shotframe/internal/project"
	"shotframe/internal/undo"
)

func TestWorkspaceRoundTripKeepsHistory(t *testing.T) {
	root := t.TempDir()
	ctx := context.Background()
	_, err := InitProject(root, project.New("Flow", devices.IOS))
	must(t, err)

	m := undo.NewManager(undo.Config{})
	ph, ws, err := OpenWorkspace(ctx, root, project.WorkspaceOptions{History: m})
	must(t, err)
	s := ws.Session()
	must(t, s.AddText("Plan your week", compose.TextOptions{}))
	if !s.CanUndo() {
		t.Fatalf("text add not undoable")
	}
	must(t, CloseWorkspace(ctx, ph, ws, m))

	m2 := undo.NewManager(undo.Config{})
	ph2, ws2, err := OpenWorkspace(ctx, root, project.WorkspaceOptions{History: m2})
	must(t, err)
	if txt := ScreenText(ph2.Project.Screens[0]); !strings.Contains(txt, "Plan your week") {
		t.Fatalf("screen text after reopen = %q", txt)
	}
	if !ws2.Session().CanUndo() {
		t.Fatalf("persisted history not restored")
	}
	must(t, ws2.Session().Undo())

	res, err := Search(ctx, root, SearchQuery{Text: "week"})
	must(t, err)
	if len(res) != 1 {
		t.Fatalf("search results = %+v", res)
	}
}
