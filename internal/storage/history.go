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
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	applog "shotframe/internal/log"
	"shotframe/internal/project"
	"shotframe/internal/undo"
)

// language=SQL
// dialect=SQLite
const insertHistorySQL = `INSERT INTO history(screen_id, pos, ts, blob) VALUES (?, ?, ?, ?)`

// language=SQL
// dialect=SQLite
const upsertCursorSQL = `INSERT INTO history_cursor(screen_id, cur) VALUES (?, ?)
	ON CONFLICT(screen_id) DO UPDATE SET cur=excluded.cur`

// language=SQL
// dialect=SQLite
const listHistorySQL = `SELECT ts, blob FROM history WHERE screen_id = ? ORDER BY pos ASC`

// language=SQL
// dialect=SQLite
const selectCursorSQL = `SELECT cur FROM history_cursor WHERE screen_id = ?`

// SaveHistory replaces the persisted undo stack of a screen. An empty stack
// deletes it.
func SaveHistory(ctx context.Context, projectRoot, screenID string, items []undo.Snapshot, cur int) error {
	db, err := InitOrOpenIndex(projectRoot)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()
	return saveHistory(ctx, db, screenID, items, cur)
}

func saveHistory(ctx context.Context, db *sql.DB, screenID string, items []undo.Snapshot, cur int) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM history WHERE screen_id = ?`, screenID); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("clear history: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM history_cursor WHERE screen_id = ?`, screenID); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("clear cursor: %w", err)
	}
	if len(items) > 0 {
		for i, s := range items {
			ts := s.TS
			if ts.IsZero() {
				ts = time.Now()
			}
			if _, err := tx.ExecContext(ctx, insertHistorySQL, screenID, i, ts.UTC().Format(time.RFC3339Nano), s.Blob); err != nil {
				_ = tx.Rollback()
				return fmt.Errorf("insert snapshot: %w", err)
			}
		}
		if _, err := tx.ExecContext(ctx, upsertCursorSQL, screenID, cur); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("store cursor: %w", err)
		}
	}
	return tx.Commit()
}

// LoadHistory returns the persisted undo stack of a screen and its position.
// A screen without history yields (nil, -1, nil).
func LoadHistory(ctx context.Context, projectRoot, screenID string) ([]undo.Snapshot, int, error) {
	db, err := InitOrOpenIndex(projectRoot)
	if err != nil {
		return nil, -1, err
	}
	defer func() { _ = db.Close() }()
	return loadHistory(ctx, db, screenID)
}

func loadHistory(ctx context.Context, db *sql.DB, screenID string) ([]undo.Snapshot, int, error) {
	rows, err := db.QueryContext(ctx, listHistorySQL, screenID)
	if err != nil {
		return nil, -1, err
	}
	var out []undo.Snapshot
	for rows.Next() {
		var tsStr string
		var blob []byte
		if err := rows.Scan(&tsStr, &blob); err != nil {
			_ = rows.Close()
			return nil, -1, err
		}
		ts, _ := time.Parse(time.RFC3339Nano, tsStr)
		out = append(out, undo.Snapshot{Key: screenID, Blob: blob, TS: ts})
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return nil, -1, err
	}
	_ = rows.Close()
	if len(out) == 0 {
		return nil, -1, nil
	}
	cur := len(out) - 1
	err = db.QueryRowContext(ctx, selectCursorSQL, screenID).Scan(&cur)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, -1, err
	}
	return out, cur, nil
}

// PersistHistory writes the in-memory undo stacks of every screen in p.
func PersistHistory(ctx context.Context, projectRoot string, m *undo.Manager, p *project.Project) error {
	if m == nil || p == nil {
		return errors.New("history manager and project are required")
	}
	db, err := InitOrOpenIndex(projectRoot)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()
	for _, s := range p.Screens {
		items, cur := m.Export(s.ID)
		if err := saveHistory(ctx, db, s.ID, items, cur); err != nil {
			return fmt.Errorf("persist history of screen %s: %w", s.ID, err)
		}
	}
	return nil
}

// RestoreHistory loads persisted undo stacks of every screen in p into m.
// Screens without persisted history keep whatever m holds.
func RestoreHistory(ctx context.Context, projectRoot string, m *undo.Manager, p *project.Project) error {
	if m == nil || p == nil {
		return errors.New("history manager and project are required")
	}
	db, err := InitOrOpenIndex(projectRoot)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()
	restored := 0
	for _, s := range p.Screens {
		items, cur, err := loadHistory(ctx, db, s.ID)
		if err != nil {
			return fmt.Errorf("restore history of screen %s: %w", s.ID, err)
		}
		if len(items) == 0 {
			continue
		}
		m.Import(s.ID, items, cur)
		restored++
	}
	applog.WithComponent("storage").Debug("history restored", slog.Int("screens", restored))
	return nil
}
