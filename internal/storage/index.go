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
	"os"
	"path/filepath"
	"strings"
	"time"

	applog "shotframe/internal/log"
	"shotframe/internal/project"
	"shotframe/internal/scene"
	"shotframe/internal/version"

	// Pure-Go SQLite driver (CGO-free)
	_ "modernc.org/sqlite"
)

const (
	// IndexDirName stores all per-project derived data under the project root.
	IndexDirName  = ".shotframe"
	IndexFileName = "index.sqlite"

	// schemaVersion tracks the local SQLite schema for the index.
	// Bump this when you perform breaking schema changes and add migrations.
	schemaVersion = 2
)

// IndexPath returns the full path to the project's index database file.
func IndexPath(projectRoot string) string {
	return filepath.Join(projectRoot, IndexDirName, IndexFileName)
}

// InitOrOpenIndex ensures that the per-project SQLite index exists at .shotframe/index.sqlite,
// opens the database, enables WAL mode and brings the schema up to date.
// Callers close the returned *sql.DB when done.
func InitOrOpenIndex(projectRoot string) (*sql.DB, error) {
	l := applog.WithOperation(applog.WithComponent("storage"), "index_init").With(
		slog.String("root", projectRoot),
	)
	if strings.TrimSpace(projectRoot) == "" {
		return nil, errors.New("project root is required")
	}
	if err := os.MkdirAll(filepath.Join(projectRoot, IndexDirName), 0o755); err != nil {
		l.Error("create index dir failed", slog.Any("err", err))
		return nil, fmt.Errorf("create %s dir: %w", IndexDirName, err)
	}

	path := IndexPath(projectRoot)
	dsn := fmt.Sprintf("file:%s?cache=shared&_pragma=busy_timeout(5000)", filepath.ToSlash(path))
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		l.Error("sqlite open failed", slog.Any("err", err))
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL;"); err != nil {
		_ = db.Close()
		l.Error("enable WAL failed", slog.Any("err", err))
		return nil, fmt.Errorf("enable WAL: %w", err)
	}
	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys=ON;"); err != nil {
		l.Warn("enable foreign_keys failed", slog.Any("err", err))
	}
	if err := ensureMetaAndVersion(ctx, db); err != nil {
		_ = db.Close()
		l.Error("ensure meta/version failed", slog.Any("err", err))
		return nil, err
	}
	if err := ensureIndexSchema(ctx, db); err != nil {
		_ = db.Close()
		l.Error("ensure index schema failed", slog.Any("err", err))
		return nil, err
	}
	if err := runMigrations(ctx, db); err != nil {
		_ = db.Close()
		l.Error("run migrations failed", slog.Any("err", err))
		return nil, err
	}
	l.Debug("index ready", slog.String("path", path))
	return db, nil
}

func ensureMetaAndVersion(ctx context.Context, db *sql.DB) error {
	ddl := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			key   TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS version (
			id          INTEGER PRIMARY KEY CHECK(id=1),
			schema      INTEGER NOT NULL,
			app         TEXT,
			created_at  TEXT NOT NULL,
			updated_at  TEXT NOT NULL
		);`,
	}
	for _, q := range ddl {
		if _, err := db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("create table: %w", err)
		}
	}
	now := time.Now().UTC().Format(time.RFC3339)
	appv := version.String()
	var curSchema int
	err := db.QueryRowContext(ctx, `SELECT schema FROM version WHERE id=1`).Scan(&curSchema)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		if _, err := db.ExecContext(ctx, `INSERT INTO version (id, schema, app, created_at, updated_at) VALUES(1, ?, ?, ?, ?)`, schemaVersion, appv, now, now); err != nil {
			return fmt.Errorf("insert version: %w", err)
		}
	case err != nil:
		return fmt.Errorf("read version: %w", err)
	default:
		// Keep the stored schema so migrations can run.
		if _, err := db.ExecContext(ctx, `UPDATE version SET app=?, updated_at=? WHERE id=1`, appv, now); err != nil {
			return fmt.Errorf("update version: %w", err)
		}
	}
	return nil
}

// runMigrations applies incremental schema migrations up to schemaVersion.
func runMigrations(ctx context.Context, db *sql.DB) error {
	var cur int
	if err := db.QueryRowContext(ctx, `SELECT schema FROM version WHERE id=1`).Scan(&cur); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	for cur < schemaVersion {
		next := cur + 1
		var stmts []string
		switch next {
		case 2:
			// v1 tracked thumbnails without access times.
			stmts = []string{
				`ALTER TABLE previews ADD COLUMN last_access TEXT`,
				`CREATE INDEX IF NOT EXISTS idx_previews_access ON previews(last_access);`,
			}
		}
		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin migration %d: %w", next, err)
		}
		for _, q := range stmts {
			if _, err := tx.ExecContext(ctx, q); err != nil {
				_ = tx.Rollback()
				return fmt.Errorf("migration %d stmt failed: %w", next, err)
			}
		}
		if _, err := tx.ExecContext(ctx, `UPDATE version SET schema=?, updated_at=? WHERE id=1`, next, time.Now().UTC().Format(time.RFC3339)); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %d update version: %w", next, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("migration %d commit: %w", next, err)
		}
		cur = next
	}
	return nil
}

// ensureIndexSchema creates the index tables and FTS structures if they do not exist.
// A fresh database gets the current schema; older ones are patched by runMigrations.
func ensureIndexSchema(ctx context.Context, db *sql.DB) error {
	var cur int
	if err := db.QueryRowContext(ctx, `SELECT schema FROM version WHERE id=1`).Scan(&cur); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	previews := `CREATE TABLE IF NOT EXISTS previews (
			id          INTEGER PRIMARY KEY,
			screen_id   TEXT    NOT NULL,
			w           INTEGER NOT NULL,
			h           INTEGER NOT NULL,
			thumb_blob  BLOB    NOT NULL,
			size        INTEGER NOT NULL DEFAULT 0,
			updated_at  TEXT    NOT NULL,
			last_access TEXT
		);`
	if cur < 2 {
		previews = `CREATE TABLE IF NOT EXISTS previews (
			id          INTEGER PRIMARY KEY,
			screen_id   TEXT    NOT NULL,
			w           INTEGER NOT NULL,
			h           INTEGER NOT NULL,
			thumb_blob  BLOB    NOT NULL,
			size        INTEGER NOT NULL DEFAULT 0,
			updated_at  TEXT    NOT NULL
		);`
	}
	ddl := []string{
		// One row per screen holding the text shown on it.
		`CREATE TABLE IF NOT EXISTS screens (
			doc_id    INTEGER PRIMARY KEY,
			screen_id TEXT    NOT NULL UNIQUE,
			ord       INTEGER NOT NULL,
			text      TEXT
		);`,
		`CREATE INDEX IF NOT EXISTS idx_screens_ord ON screens(ord);`,

		// Contentless FTS5 index fed from screens via triggers.
		`CREATE VIRTUAL TABLE IF NOT EXISTS fts_screens USING fts5(
			text,
			content='',
			tokenize = 'unicode61'
		);`,

		previews,
		`CREATE UNIQUE INDEX IF NOT EXISTS ux_previews_variant ON previews(screen_id, w, h);`,

		// Persisted undo stacks, one row per snapshot.
		`CREATE TABLE IF NOT EXISTS history (
			id        INTEGER PRIMARY KEY,
			screen_id TEXT    NOT NULL,
			pos       INTEGER NOT NULL,
			ts        TEXT    NOT NULL,
			blob      BLOB    NOT NULL
		);`,
		`CREATE UNIQUE INDEX IF NOT EXISTS ux_history_pos ON history(screen_id, pos);`,
		`CREATE TABLE IF NOT EXISTS history_cursor (
			screen_id TEXT    PRIMARY KEY,
			cur       INTEGER NOT NULL
		);`,
	}
	for _, q := range ddl {
		if _, err := db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("ensure index schema: %w", err)
		}
	}
	triggers := []string{
		`CREATE TRIGGER IF NOT EXISTS screens_ai AFTER INSERT ON screens BEGIN
			INSERT INTO fts_screens(rowid, text) VALUES (new.doc_id, new.text);
		END;`,
		`CREATE TRIGGER IF NOT EXISTS screens_ad AFTER DELETE ON screens BEGIN
			INSERT INTO fts_screens(fts_screens, rowid, text) VALUES ('delete', old.doc_id, old.text);
		END;`,
		`CREATE TRIGGER IF NOT EXISTS screens_au AFTER UPDATE OF text ON screens BEGIN
			INSERT INTO fts_screens(fts_screens, rowid, text) VALUES ('delete', old.doc_id, old.text);
			INSERT INTO fts_screens(rowid, text) VALUES (new.doc_id, new.text);
		END;`,
	}
	for _, q := range triggers {
		if _, err := db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("ensure fts triggers: %w", err)
		}
	}
	if cur >= 2 {
		if _, err := db.ExecContext(ctx, `CREATE INDEX IF NOT EXISTS idx_previews_access ON previews(last_access);`); err != nil {
			return fmt.Errorf("ensure previews index: %w", err)
		}
	}
	return nil
}

// DetectAndRebuildIndex checks for corruption or missing schema and rebuilds the index if needed.
// It returns true when a rebuild was performed. Persisted history does not survive a rebuild.
func DetectAndRebuildIndex(ctx context.Context, projectRoot string, p *project.Project) (bool, error) {
	path := IndexPath(projectRoot)
	db, err := InitOrOpenIndex(projectRoot)
	if err != nil {
		backupIndexFile(path)
		removeIndexFiles(path)
		if rbErr := RebuildIndex(ctx, projectRoot, p); rbErr != nil {
			return false, fmt.Errorf("rebuild after open failure: %w (open err: %v)", rbErr, err)
		}
		return true, nil
	}
	needs := false
	var chk string
	if err := db.QueryRowContext(ctx, `PRAGMA quick_check;`).Scan(&chk); err != nil || !strings.Contains(strings.ToLower(chk), "ok") {
		needs = true
	}
	if !needs {
		if _, err := db.ExecContext(ctx, `SELECT 1 FROM screens LIMIT 1;`); err != nil {
			needs = true
		}
	}
	_ = db.Close()
	if !needs {
		return false, nil
	}
	backupIndexFile(path)
	removeIndexFiles(path)
	if err := RebuildIndex(ctx, projectRoot, p); err != nil {
		return false, err
	}
	return true, nil
}

func removeIndexFiles(path string) {
	for _, suffix := range []string{"", "-wal", "-shm"} {
		_ = os.Remove(path + suffix)
	}
}

// backupIndexFile copies the current index file into a timestamped backup in .shotframe/backups.
func backupIndexFile(indexPath string) {
	bdir := filepath.Join(filepath.Dir(indexPath), "backups")
	_ = os.MkdirAll(bdir, 0o755)
	stamp := time.Now().Format("20060102-150405")
	bak := filepath.Join(bdir, fmt.Sprintf("%s.%s.bak", filepath.Base(indexPath), stamp))
	if data, err := os.ReadFile(indexPath); err == nil {
		_ = os.WriteFile(bak, data, 0o644)
	}
}

// BuildIndexIfEmpty populates the screens table from the manifest when it has no rows.
func BuildIndexIfEmpty(ctx context.Context, projectRoot string, p *project.Project) error {
	db, err := InitOrOpenIndex(projectRoot)
	if err != nil {
		return err
	}
	defer db.Close()
	var cnt int
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM screens;").Scan(&cnt); err != nil {
		return fmt.Errorf("check screens count: %w", err)
	}
	if cnt > 0 {
		return nil
	}
	return rebuildScreens(ctx, db, p)
}

// UpdateIndex replaces the indexed screen text from the manifest and drops
// cached thumbnails and history of screens that no longer exist.
func UpdateIndex(ctx context.Context, projectRoot string, p *project.Project) error {
	db, err := InitOrOpenIndex(projectRoot)
	if err != nil {
		return err
	}
	defer db.Close()
	if err := rebuildScreens(ctx, db, p); err != nil {
		return err
	}
	return dropOrphans(ctx, db)
}

// RebuildIndex drops and recreates the index tables and repopulates them from the manifest.
// Meta and version tables are preserved.
func RebuildIndex(ctx context.Context, projectRoot string, p *project.Project) error {
	db, err := InitOrOpenIndex(projectRoot)
	if err != nil {
		return err
	}
	defer db.Close()
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	drops := []string{
		"DROP TABLE IF EXISTS previews;",
		"DROP TABLE IF EXISTS history;",
		"DROP TABLE IF EXISTS history_cursor;",
		"DROP TRIGGER IF EXISTS screens_ai;",
		"DROP TRIGGER IF EXISTS screens_ad;",
		"DROP TRIGGER IF EXISTS screens_au;",
		"DROP TABLE IF EXISTS screens;",
		"DROP TABLE IF EXISTS fts_screens;",
	}
	for _, q := range drops {
		if _, err := tx.ExecContext(ctx, q); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("drop schema: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("drop commit: %w", err)
	}
	if err := ensureIndexSchema(ctx, db); err != nil {
		return err
	}
	return rebuildScreens(ctx, db, p)
}

// ScreenText returns the visible text of a stored screen, one line per text
// object in z-order. Unvisited or undecodable screens yield "".
func ScreenText(s project.Screen) string {
	if len(s.CanvasData) == 0 {
		return ""
	}
	objs, _, _, err := scene.Decode(s.CanvasData)
	if err != nil {
		return ""
	}
	var lines []string
	var walk func([]*scene.Object)
	walk = func(list []*scene.Object) {
		for _, o := range list {
			if o.Text != nil {
				if t := strings.TrimSpace(o.Text.Content); t != "" {
					lines = append(lines, t)
				}
			}
			walk(o.Children)
		}
	}
	walk(objs)
	return strings.Join(lines, "\n")
}

func rebuildScreens(ctx context.Context, db *sql.DB, p *project.Project) error {
	if p == nil {
		return errors.New("project is required")
	}
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM screens;"); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("clear screens: %w", err)
	}
	ins, err := tx.PrepareContext(ctx, "INSERT INTO screens(screen_id, ord, text) VALUES(?,?,?);")
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer ins.Close()
	for _, s := range p.Screens {
		if _, err := ins.ExecContext(ctx, s.ID, s.Order, ScreenText(s)); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("insert screen: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func dropOrphans(ctx context.Context, db *sql.DB) error {
	stmts := []string{
		`DELETE FROM previews WHERE screen_id NOT IN (SELECT screen_id FROM screens)`,
		`DELETE FROM history WHERE screen_id NOT IN (SELECT screen_id FROM screens)`,
		`DELETE FROM history_cursor WHERE screen_id NOT IN (SELECT screen_id FROM screens)`,
	}
	for _, q := range stmts {
		if _, err := db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("drop orphans: %w", err)
		}
	}
	return nil
}
