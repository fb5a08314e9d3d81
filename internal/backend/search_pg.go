/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package backend

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"playscript/internal/storage"
)

// SearchPG runs q over the published entries using a tsvector match and the same
// filters as storage.Search, returning storage.SearchResult rows so both stores
// can be compared. DocID is the play_entries id.
func SearchPG(ctx context.Context, db *sql.DB, q storage.SearchQuery) ([]storage.SearchResult, error) {
	var (
		args []any
		b    strings.Builder
	)
	place := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	cols := "e.id, p.name, e.entry_type, e.path, e.act_number, COALESCE(e.scene_number,0), COALESCE(e.actor,''), e.raw_text, "
	if strings.TrimSpace(q.Text) != "" {
		tq := place(q.Text)
		b.WriteString("SELECT " + cols)
		b.WriteString("COALESCE(ts_headline('simple', e.raw_text, plainto_tsquery('simple', " + tq + "), 'StartSel=[, StopSel=], MaxFragments=1, MaxWords=12'), '') ")
		b.WriteString("FROM play_entries e JOIN plays p ON p.id = e.play_id WHERE e.search_vector @@ plainto_tsquery('simple', " + tq + ") ")
	} else {
		b.WriteString("SELECT " + cols + "'' FROM play_entries e JOIN plays p ON p.id = e.play_id WHERE TRUE ")
	}
	if len(q.Types) > 0 {
		b.WriteString(" AND e.entry_type = ANY (" + place(q.Types) + ") ")
	}
	if s := strings.TrimSpace(q.Actor); s != "" {
		b.WriteString(" AND e.actor = " + place(s) + " ")
	}
	if s := strings.TrimSpace(q.Play); s != "" {
		b.WriteString(" AND p.name = " + place(s) + " ")
	}
	if q.Act > 0 {
		b.WriteString(" AND e.act_number = " + place(q.Act) + " ")
	}
	if q.Scene > 0 {
		b.WriteString(" AND e.scene_number = " + place(q.Scene) + " ")
	}
	limit := q.Limit
	if limit <= 0 {
		limit = 100
	}
	offset := q.Offset
	if offset < 0 {
		offset = 0
	}
	b.WriteString(" ORDER BY p.name, e.position ")
	b.WriteString(" LIMIT " + place(limit) + " OFFSET " + place(offset))

	rows, err := db.QueryContext(ctx, b.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("search pg query: %w", err)
	}
	defer func() { _ = rows.Close() }()
	var out []storage.SearchResult
	for rows.Next() {
		var r storage.SearchResult
		if err := rows.Scan(&r.DocID, &r.Play, &r.Type, &r.Path, &r.Act, &r.Scene, &r.Actor, &r.Text, &r.Snippet); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
