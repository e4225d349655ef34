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
	"strings"
)

// SearchQuery describes a search over the text shown on screens.
// Text uses SQLite FTS5 syntax (simple terms, phrases in quotes, AND/OR/NOT).
// An empty Text lists all screens. Limit/Offset paginate; Limit defaults to 100.
type SearchQuery struct {
	Text   string
	Limit  int
	Offset int
}

// SearchResult is one matching screen. Snippet marks hits with [ ] when Text is set.
type SearchResult struct {
	ScreenID string
	Order    int
	Snippet  string
}

// Search runs q against the project's index.
func Search(ctx context.Context, projectRoot string, q SearchQuery) ([]SearchResult, error) {
	if strings.TrimSpace(projectRoot) == "" {
		return nil, errors.New("project root is required")
	}
	db, err := InitOrOpenIndex(projectRoot)
	if err != nil {
		return nil, err
	}
	defer db.Close()
	return searchDB(ctx, db, q)
}

func searchDB(ctx context.Context, db *sql.DB, q SearchQuery) ([]SearchResult, error) {
	var args []any
	var sb strings.Builder
	if strings.TrimSpace(q.Text) != "" {
		sb.WriteString("SELECT s.screen_id, s.ord, snippet(fts_screens, 0, '[', ']', '...', 10)\n")
		sb.WriteString("FROM fts_screens JOIN screens s ON fts_screens.rowid = s.doc_id\n")
		sb.WriteString("WHERE fts_screens MATCH ?\n")
		args = append(args, q.Text)
	} else {
		sb.WriteString("SELECT s.screen_id, s.ord, ''\nFROM screens s\n")
	}
	limit := q.Limit
	if limit <= 0 {
		limit = 100
	}
	sb.WriteString("ORDER BY s.ord\nLIMIT ? OFFSET ?")
	args = append(args, limit, max(q.Offset, 0))

	rows, err := db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("search query: %w", err)
	}
	defer rows.Close()
	var out []SearchResult
	for rows.Next() {
		var r SearchResult
		var sn sql.NullString
		if err := rows.Scan(&r.ScreenID, &r.Order, &sn); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		r.Snippet = sn.String
		out = append(out, r)
	}
	return out, rows.Err()
}
