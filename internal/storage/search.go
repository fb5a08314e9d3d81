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
	"fmt"
	"strings"
)

// SearchQuery describes a search over the index.
// Text is split into terms; every term must occur in a row (prefix of a token
// when the term ends with *). Filters are optional. Types restricts rows to the
// Type* constants. Limit/Offset implement pagination; Limit defaults to 100.
type SearchQuery struct {
	Text   string
	Actor  string
	Play   string
	Act    int
	Scene  int
	Types  []string
	Limit  int
	Offset int
}

// SearchResult represents a single matching row.
// Snippet holds a highlighted excerpt using [ ] markers when Text was given.
type SearchResult struct {
	DocID   int64
	Play    string
	Type    string
	Path    string
	Act     int
	Scene   int
	Actor   string
	Text    string
	Snippet string
}

// Search runs q against db. Results come back in document order within each play.
// When q.Text is empty, it falls back to a plain scan with filters applied.
func Search(ctx context.Context, db *sql.DB, q SearchQuery) ([]SearchResult, error) {
	var args []any
	var sb strings.Builder
	match := matchExpr(q.Text)
	if match != "" {
		sb.WriteString("SELECT d.doc_id, p.name, d.type, d.path, d.act_number, COALESCE(d.scene_number,0), COALESCE(d.actor,''), COALESCE(d.text,''), snippet(fts_documents, 0, '[', ']', '…', 10)\n")
		sb.WriteString("FROM fts_documents JOIN documents d ON fts_documents.rowid = d.doc_id JOIN plays p ON p.play_id = d.play_id\n")
		sb.WriteString("WHERE fts_documents MATCH ?\n")
		args = append(args, match)
	} else {
		sb.WriteString("SELECT d.doc_id, p.name, d.type, d.path, d.act_number, COALESCE(d.scene_number,0), COALESCE(d.actor,''), COALESCE(d.text,''), ''\n")
		sb.WriteString("FROM documents d JOIN plays p ON p.play_id = d.play_id\nWHERE 1=1\n")
	}
	if len(q.Types) > 0 {
		sb.WriteString(" AND d.type IN (" + placeholders(len(q.Types)) + ")\n")
		for _, t := range q.Types {
			args = append(args, t)
		}
	}
	if s := strings.TrimSpace(q.Actor); s != "" {
		sb.WriteString(" AND d.actor = ?\n")
		args = append(args, s)
	}
	if s := strings.TrimSpace(q.Play); s != "" {
		sb.WriteString(" AND p.name = ?\n")
		args = append(args, s)
	}
	if q.Act > 0 {
		sb.WriteString(" AND d.act_number = ?\n")
		args = append(args, q.Act)
	}
	if q.Scene > 0 {
		sb.WriteString(" AND d.scene_number = ?\n")
		args = append(args, q.Scene)
	}
	limit := q.Limit
	if limit <= 0 {
		limit = 100
	}
	if q.Offset < 0 {
		q.Offset = 0
	}
	sb.WriteString("ORDER BY p.name, d.doc_id\n")
	sb.WriteString("LIMIT ? OFFSET ?")
	args = append(args, limit, q.Offset)

	rows, err := db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("search query: %w", err)
	}
	defer rows.Close()
	var out []SearchResult
	for rows.Next() {
		var r SearchResult
		var sn sql.NullString
		if err := rows.Scan(&r.DocID, &r.Play, &r.Type, &r.Path, &r.Act, &r.Scene, &r.Actor, &r.Text, &sn); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		if sn.Valid {
			r.Snippet = sn.String
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// matchExpr turns free text into an FTS5 expression of quoted terms so that
// punctuation in dialogue never reaches the FTS query parser.
func matchExpr(text string) string {
	fields := strings.Fields(text)
	terms := make([]string, 0, len(fields))
	for _, f := range fields {
		prefix := strings.HasSuffix(f, "*")
		f = strings.TrimRight(f, "*")
		if f == "" {
			continue
		}
		t := `"` + strings.ReplaceAll(f, `"`, `""`) + `"`
		if prefix {
			t += "*"
		}
		terms = append(terms, t)
	}
	return strings.Join(terms, " ")
}

func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	b := strings.Builder{}
	for i := 0; i < n; i++ {
		if i > 0 {
			b.WriteString(",")
		}
		b.WriteString("?")
	}
	return b.String()
}
