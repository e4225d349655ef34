/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package backend keeps projects in Postgres and serves them over a small
// read-only HTTP API. Client is the matching HTTP client.
package backend

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"shotframe/internal/config"
	"shotframe/internal/devices"
	applog "shotframe/internal/log"
	"shotframe/internal/project"
	"shotframe/internal/storage"
)

// ErrNotFound is returned when a project id is unknown.
var ErrNotFound = errors.New("backend: project not found")

func logger() *slog.Logger { return applog.WithComponent("backend") }

// Summary is the listing projection of a stored project.
type Summary struct {
	ID        string           `json:"id"`
	Name      string           `json:"name"`
	Platform  devices.Platform `json:"platform"`
	Screens   int              `json:"screens"`
	UpdatedAt time.Time        `json:"updated_at"`
	Version   int64            `json:"version"`
}

// Store persists projects in Postgres.
type Store struct {
	db  *sql.DB
	log *slog.Logger
}

// WithPassword fills in the keychain password when dsn names a user without one.
func WithPassword(dsn string) string {
	u, err := url.Parse(dsn)
	if err != nil || u.User == nil || (u.Scheme != "postgres" && u.Scheme != "postgresql") {
		return dsn
	}
	if _, ok := u.User.Password(); ok {
		return dsn
	}
	pw := config.PostgresPassword()
	if pw == "" {
		return dsn
	}
	u.User = url.UserPassword(u.User.Username(), pw)
	return u.String()
}

// Open connects to dsn, checks the connection and applies migrations.
func Open(ctx context.Context, dsn string) (*Store, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, errors.New("backend: dsn is required")
	}
	db, err := sql.Open("pgx", WithPassword(dsn))
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	pctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}
	if err := applyMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Store{db: db, log: logger()}, nil
}

// Close releases the connection pool.
func (s *Store) Close() error { return s.db.Close() }

// Ping checks the database connection.
func (s *Store) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

// Save upserts p and replaces its screens. Screens are stored with their
// searchable text. It returns the new project version.
func (s *Store) Save(ctx context.Context, p *project.Project) (version int64, err error) {
	if p == nil {
		return 0, errors.New("backend: project is nil")
	}
	if err := p.Validate(); err != nil {
		return 0, err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	// language=PostgreSQL
	err = tx.QueryRowContext(ctx, `INSERT INTO projects(id, name, platform, width, height, created_at, updated_at)
		VALUES($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, platform = EXCLUDED.platform,
			width = EXCLUDED.width, height = EXCLUDED.height, updated_at = EXCLUDED.updated_at,
			version = projects.version + 1
		RETURNING version`,
		p.ID, p.Name, string(p.Platform), p.Width, p.Height, p.CreatedAt, p.UpdatedAt).Scan(&version)
	if err != nil {
		return 0, fmt.Errorf("upsert project: %w", err)
	}

	ids := make([]string, len(p.Screens))
	for i, sc := range p.Screens {
		ids[i] = sc.ID
	}
	if _, err = tx.ExecContext(ctx, `DELETE FROM screens WHERE project_id = $1 AND NOT (screen_id = ANY($2))`, p.ID, ids); err != nil {
		return 0, fmt.Errorf("drop screens: %w", err)
	}
	for _, sc := range p.Screens {
		var canvas any
		if len(sc.CanvasData) > 0 {
			canvas = string(sc.CanvasData)
		}
		// language=PostgreSQL
		_, err = tx.ExecContext(ctx, `INSERT INTO screens(project_id, screen_id, ord, canvas, thumbnail, text)
			VALUES($1, $2, $3, $4::jsonb, $5, $6)
			ON CONFLICT (project_id, screen_id) DO UPDATE SET ord = EXCLUDED.ord, canvas = EXCLUDED.canvas,
				thumbnail = EXCLUDED.thumbnail, text = EXCLUDED.text`,
			p.ID, sc.ID, sc.Order, canvas, sc.Thumbnail, storage.ScreenText(sc))
		if err != nil {
			return 0, fmt.Errorf("upsert screen %d: %w", sc.Order+1, err)
		}
	}
	if err = tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	s.log.Debug("project saved", slog.String("project", p.ID), slog.Int64("version", version))
	return version, nil
}

// Load reads a project. Canvas JSON comes back normalized by Postgres.
func (s *Store) Load(ctx context.Context, id string) (*project.Project, error) {
	p := &project.Project{ID: id}
	var platform string
	err := s.db.QueryRowContext(ctx, `SELECT name, platform, width, height, created_at, updated_at FROM projects WHERE id = $1`, id).
		Scan(&p.Name, &platform, &p.Width, &p.Height, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("select project: %w", err)
	}
	p.Platform = devices.Platform(platform)
	p.CreatedAt, p.UpdatedAt = p.CreatedAt.UTC(), p.UpdatedAt.UTC()

	rows, err := s.db.QueryContext(ctx, `SELECT screen_id, ord, canvas::text, thumbnail FROM screens WHERE project_id = $1 ORDER BY ord`, id)
	if err != nil {
		return nil, fmt.Errorf("select screens: %w", err)
	}
	defer func() { _ = rows.Close() }()
	for rows.Next() {
		var (
			sc     project.Screen
			canvas sql.NullString
		)
		if err := rows.Scan(&sc.ID, &sc.Order, &canvas, &sc.Thumbnail); err != nil {
			return nil, fmt.Errorf("scan screen: %w", err)
		}
		if canvas.Valid {
			sc.CanvasData = []byte(canvas.String)
		}
		p.Screens = append(p.Screens, sc)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("stored project %s: %w", id, err)
	}
	return p, nil
}

// List returns all projects, most recently updated first.
func (s *Store) List(ctx context.Context) ([]Summary, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT p.id, p.name, p.platform, p.updated_at, p.version,
			(SELECT count(*) FROM screens sc WHERE sc.project_id = p.id)
		FROM projects p ORDER BY p.updated_at DESC, p.id`)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	defer func() { _ = rows.Close() }()
	var out []Summary
	for rows.Next() {
		var (
			sm       Summary
			platform string
		)
		if err := rows.Scan(&sm.ID, &sm.Name, &platform, &sm.UpdatedAt, &sm.Version, &sm.Screens); err != nil {
			return nil, fmt.Errorf("scan project: %w", err)
		}
		sm.Platform = devices.Platform(platform)
		sm.UpdatedAt = sm.UpdatedAt.UTC()
		out = append(out, sm)
	}
	return out, rows.Err()
}

// Delete removes a project and its screens.
func (s *Store) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM projects WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete project: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

// Search matches screen text of one project with the same result shape as the
// local index search.
func (s *Store) Search(ctx context.Context, projectID string, q storage.SearchQuery) ([]storage.SearchResult, error) {
	var (
		args []any
		b    strings.Builder
	)
	place := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	if text := strings.TrimSpace(q.Text); text != "" {
		tq := place(text)
		b.WriteString("SELECT screen_id, ord, COALESCE(ts_headline('simple', text, plainto_tsquery('simple', " + tq + "), 'StartSel=[, StopSel=], MaxFragments=1, MaxWords=12'), '') ")
		b.WriteString("FROM screens WHERE project_id = " + place(projectID) + " AND search_vector @@ plainto_tsquery('simple', " + tq + ") ")
	} else {
		b.WriteString("SELECT screen_id, ord, '' FROM screens WHERE project_id = " + place(projectID) + " ")
	}
	limit := q.Limit
	if limit <= 0 {
		limit = 100
	}
	b.WriteString("ORDER BY ord LIMIT " + place(limit) + " OFFSET " + place(max(q.Offset, 0)))

	rows, err := s.db.QueryContext(ctx, b.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("search query: %w", err)
	}
	defer func() { _ = rows.Close() }()
	var out []storage.SearchResult
	for rows.Next() {
		var r storage.SearchResult
		if err := rows.Scan(&r.ScreenID, &r.Order, &r.Snippet); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

type saver struct {
	ctx context.Context
	s   *Store
}

func (v saver) Save(p *project.Project) error {
	_, err := v.s.Save(v.ctx, p)
	return err
}

// Saver adapts the store to the editor's save hook.
func (s *Store) Saver(ctx context.Context) project.Saver { return saver{ctx: ctx, s: s} }
