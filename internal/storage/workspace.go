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
	"errors"
	"log/slog"

	applog "shotframe/internal/log"
	"shotframe/internal/project"
	"shotframe/internal/undo"
)

// OpenWorkspace opens the project at root with its persisted undo history
// and returns a workspace that saves through the handle on every switch.
// Images referenced by stored scenes are preloaded.
func OpenWorkspace(ctx context.Context, root string, opts project.WorkspaceOptions) (*ProjectHandle, *project.Workspace, error) {
	ph, err := Open(root)
	if err != nil {
		return nil, nil, err
	}
	l := applog.WithComponent("storage")
	if rebuilt, err := DetectAndRebuildIndex(ctx, root, ph.Project); err != nil {
		l.Warn("index check failed", slog.Any("err", err))
	} else if rebuilt {
		l.Info("index rebuilt", slog.String("root", root))
	}
	if opts.History == nil {
		opts.History = undo.NewManager(undo.Config{})
	}
	if err := RestoreHistory(ctx, root, opts.History, ph.Project); err != nil {
		l.Warn("history not restored", slog.Any("err", err))
	}
	opts.Saver = ph
	if opts.Root == "" {
		opts.Root = root
	}
	ws, err := project.NewWorkspace(ph.Project, opts)
	if err != nil {
		return ph, nil, err
	}
	if err := ws.Preload(ctx); err != nil {
		l.Warn("preload incomplete", slog.Any("err", err))
	}
	if err := ws.Settle(ctx); err != nil {
		return ph, ws, err
	}
	return ph, ws, nil
}

// CloseWorkspace stores the live screen, saves the manifest and persists
// the undo history of every screen.
func CloseWorkspace(ctx context.Context, ph *ProjectHandle, ws *project.Workspace, m *undo.Manager) error {
	if ph == nil || ws == nil {
		return errors.New("project handle and workspace are required")
	}
	if err := ws.Store(); err != nil {
		return err
	}
	if err := ph.Save(ws.Project()); err != nil {
		return err
	}
	if m == nil {
		return nil
	}
	return PersistHistory(ctx, ph.Root, m, ws.Project())
}
