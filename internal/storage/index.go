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

	applog "playscript/internal/log"
	"playscript/internal/script"
	"playscript/internal/version"

	// Pure-Go SQLite driver (CGO-free)
	_ "modernc.org/sqlite"
)

// schemaVersion tracks the local SQLite schema of the search index.
// Bump this when you perform breaking schema changes and add migrations.
const schemaVersion = 2

// Document row types stored in the index.
const (
	TypeActTitle     = "act_title"
	TypeSceneTitle   = "scene_title"
	TypeSetting      = "setting"
	TypeDialogue     = "dialogue"
	TypeContinuation = "continuation"
	TypeDirection    = "direction"
)

// OpenIndex ensures that the SQLite index exists at path, opens it, enables WAL
// mode and brings the schema up to date. Callers close the returned *sql.DB.
func OpenIndex(path string) (*sql.DB, error) {
	l := applog.WithOperation(applog.WithComponent("storage"), "index_open").With(slog.String("path", path))
	if strings.TrimSpace(path) == "" {
		return nil, ErrEmptyPath
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		l.Error("create index dir failed", slog.Any("err", err))
		return nil, fmt.Errorf("create index dir: %w", err)
	}

	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)", filepath.ToSlash(path))
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		l.Error("sqlite open failed", slog.Any("err", err))
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// Embedded usage: one writer connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL;"); err != nil {
		_ = db.Close()
		l.Error("enable WAL failed", slog.Any("err", err))
		return nil, fmt.Errorf("enable WAL: %w", err)
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
	l.Debug("index ready")
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
		// A fresh database starts at schema 1 and is migrated forward.
		if _, err := db.ExecContext(ctx, `INSERT INTO version (id, schema, app, created_at, updated_at) VALUES(1, 1, ?, ?, ?)`, appv, now, now); err != nil {
			return fmt.Errorf("insert version: %w", err)
		}
	case err != nil:
		return fmt.Errorf("read version: %w", err)
	default:
		if _, err := db.ExecContext(ctx, `UPDATE version SET app=?, updated_at=? WHERE id=1`, appv, now); err != nil {
			return fmt.Errorf("update version: %w", err)
		}
	}
	return nil
}

// ensureIndexSchema creates the plays/documents tables and the FTS index.
func ensureIndexSchema(ctx context.Context, db *sql.DB) error {
	ddl := []string{
		`CREATE TABLE IF NOT EXISTS plays (
			play_id    INTEGER PRIMARY KEY,
			name       TEXT    NOT NULL UNIQUE,
			title      TEXT    NOT NULL DEFAULT '',
			source     TEXT    NOT NULL DEFAULT '',
			acts       INTEGER NOT NULL DEFAULT 0,
			scenes     INTEGER NOT NULL DEFAULT 0,
			lines      INTEGER NOT NULL DEFAULT 0,
			document   TEXT    NOT NULL,
			indexed_at TEXT    NOT NULL
		);`,
		// One row per searchable piece of a play: titles, settings and lines.
		`CREATE TABLE IF NOT EXISTS documents (
			doc_id       INTEGER PRIMARY KEY,
			play_id      INTEGER NOT NULL REFERENCES plays(play_id) ON DELETE CASCADE,
			type         TEXT    NOT NULL,
			path         TEXT    NOT NULL,
			act_number   INTEGER NOT NULL,
			scene_number INTEGER,
			actor        TEXT,
			text         TEXT
		);`,
		`CREATE INDEX IF NOT EXISTS idx_documents_play ON documents(play_id);`,

		// External-content FTS5 index over documents.text, kept in sync by triggers.
		`CREATE VIRTUAL TABLE IF NOT EXISTS fts_documents USING fts5(
			text,
			content='documents',
			content_rowid='doc_id',
			tokenize = 'unicode61'
		);`,
	}
	for _, q := range ddl {
		if _, err := db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("ensure index schema: %w", err)
		}
	}
	triggers := []string{
		`CREATE TRIGGER IF NOT EXISTS documents_ai AFTER INSERT ON documents BEGIN
			INSERT INTO fts_documents(rowid, text) VALUES (new.doc_id, new.text);
		END;`,
		`CREATE TRIGGER IF NOT EXISTS documents_ad AFTER DELETE ON documents BEGIN
			INSERT INTO fts_documents(fts_documents, rowid, text) VALUES ('delete', old.doc_id, old.text);
		END;`,
		`CREATE TRIGGER IF NOT EXISTS documents_au AFTER UPDATE OF text ON documents BEGIN
			INSERT INTO fts_documents(fts_documents, rowid, text) VALUES ('delete', old.doc_id, old.text);
			INSERT INTO fts_documents(rowid, text) VALUES (new.doc_id, new.text);
		END;`,
	}
	for _, q := range triggers {
		if _, err := db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("ensure fts triggers: %w", err)
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
			stmts = []string{
				`CREATE INDEX IF NOT EXISTS idx_documents_actor ON documents(actor);`,
				`CREATE INDEX IF NOT EXISTS idx_documents_scene ON documents(play_id, scene_number);`,
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

// IndexDocument stores doc under name, replacing any earlier version of the same play.
// source is informational (usually the markdown path).
func IndexDocument(ctx context.Context, db *sql.DB, name, source string, doc script.Document) error {
	if strings.TrimSpace(name) == "" {
		return errors.New("play name is required")
	}
	data, err := script.Encode(doc)
	if err != nil {
		return fmt.Errorf("encode document: %w", err)
	}
	acts, scenes, lines := doc.Counts()

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	var playID int64
	err = tx.QueryRowContext(ctx, `INSERT INTO plays(name, title, source, acts, scenes, lines, document, indexed_at)
		VALUES(?,?,?,?,?,?,?,?)
		ON CONFLICT(name) DO UPDATE SET title=excluded.title, source=excluded.source, acts=excluded.acts,
			scenes=excluded.scenes, lines=excluded.lines, document=excluded.document, indexed_at=excluded.indexed_at
		RETURNING play_id`,
		name, doc.PlayTitle, source, acts, scenes, lines, string(data), time.Now().UTC().Format(time.RFC3339)).Scan(&playID)
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("upsert play: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM documents WHERE play_id=?`, playID); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("clear documents: %w", err)
	}
	ins, err := tx.PrepareContext(ctx, `INSERT INTO documents(play_id, type, path, act_number, scene_number, actor, text) VALUES(?,?,?,?,?,?,?)`)
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer ins.Close()
	for _, e := range Flatten(doc) {
		if _, err := ins.ExecContext(ctx, playID, e.Type, e.Path, e.Act, nullInt(e.Scene), nullString(e.Actor), e.Text); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("insert document: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// Entry is one searchable piece of a play: a heading, a setting or a line.
// Scene is 0 for act titles; Actor is "" for rows without a speaker.
type Entry struct {
	Type  string
	Path  string
	Act   int
	Scene int
	Actor string
	Text  string
}

// Flatten returns the searchable entries of doc in document order. Paths look
// like "act:1/scene:2/line:3"; a dialogue direction gets its own entry with a
// "/direction" suffix ahead of the dialogue line itself.
func Flatten(doc script.Document) []Entry {
	out := make([]Entry, 0, 256)
	for _, a := range doc.Acts {
		actPath := fmt.Sprintf("act:%d", a.ActNumber)
		if a.ActTitle != "" {
			out = append(out, Entry{Type: TypeActTitle, Path: actPath, Act: a.ActNumber, Text: a.ActTitle})
		}
		for _, s := range a.Scenes {
			scenePath := fmt.Sprintf("%s/scene:%d", actPath, s.SceneNumber)
			base := Entry{Act: a.ActNumber, Scene: s.SceneNumber}
			if s.SceneTitle != "" {
				e := base
				e.Type, e.Path, e.Text = TypeSceneTitle, scenePath, s.SceneTitle
				out = append(out, e)
			}
			if st := s.SettingText(); st != "" {
				e := base
				e.Type, e.Path, e.Text = TypeSetting, scenePath+"/setting", st
				out = append(out, e)
			}
			for i, ln := range s.Lines {
				e := base
				e.Path = fmt.Sprintf("%s/line:%d", scenePath, i+1)
				switch ln.Kind {
				case script.LineDirection:
					e.Type, e.Text = TypeDirection, ln.Direction()
				case script.LineContinuation:
					e.Type, e.Actor, e.Text = TypeContinuation, ln.Actor, ln.Text
				default:
					if d := ln.Direction(); d != "" {
						de := e
						de.Type, de.Path, de.Actor, de.Text = TypeDirection, e.Path+"/direction", ln.Actor, d
						out = append(out, de)
					}
					e.Type, e.Actor, e.Text = TypeDialogue, ln.Actor, ln.Text
				}
				out = append(out, e)
			}
		}
	}
	return out
}

func nullInt(n int) sql.NullInt64 { return sql.NullInt64{Int64: int64(n), Valid: n > 0} }

func nullString(s string) sql.NullString { return sql.NullString{String: s, Valid: s != ""} }

// PlaySummary describes an indexed play.
type PlaySummary struct {
	Name      string
	Title     string
	Source    string
	Acts      int
	Scenes    int
	Lines     int
	IndexedAt time.Time
}

// ListPlays returns the indexed plays ordered by name.
func ListPlays(ctx context.Context, db *sql.DB) ([]PlaySummary, error) {
	rows, err := db.QueryContext(ctx, `SELECT name, title, source, acts, scenes, lines, indexed_at FROM plays ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list plays: %w", err)
	}
	defer rows.Close()
	var out []PlaySummary
	for rows.Next() {
		var p PlaySummary
		var ts string
		if err := rows.Scan(&p.Name, &p.Title, &p.Source, &p.Acts, &p.Scenes, &p.Lines, &ts); err != nil {
			return nil, err
		}
		p.IndexedAt, _ = time.Parse(time.RFC3339, ts)
		out = append(out, p)
	}
	return out, rows.Err()
}

// IndexedDocument returns the document stored for name.
func IndexedDocument(ctx context.Context, db *sql.DB, name string) (script.Document, error) {
	var raw string
	err := db.QueryRowContext(ctx, `SELECT document FROM plays WHERE name=?`, name).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return script.Document{}, fmt.Errorf("play %q is not indexed", name)
	}
	if err != nil {
		return script.Document{}, err
	}
	return script.Decode([]byte(raw))
}

// RemovePlay deletes a play and its rows. It reports whether the play existed.
func RemovePlay(ctx context.Context, db *sql.DB, name string) (bool, error) {
	res, err := db.ExecContext(ctx, `DELETE FROM plays WHERE name=?`, name)
	if err != nil {
		return false, fmt.Errorf("remove play: %w", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// RepairIndex checks the index at path and, when it cannot be opened or fails
// PRAGMA quick_check, backs it up and replaces it with an empty index.
// Plays have to be indexed again afterwards. It reports whether a repair happened.
func RepairIndex(ctx context.Context, path string) (bool, error) {
	l := applog.WithOperation(applog.WithComponent("storage"), "index_repair").With(slog.String("path", path))
	db, err := OpenIndex(path)
	if err == nil {
		needs := false
		var chk string
		if qerr := db.QueryRowContext(ctx, `PRAGMA quick_check;`).Scan(&chk); qerr != nil || !strings.Contains(strings.ToLower(chk), "ok") {
			needs = true
		}
		if !needs {
			if _, perr := db.ExecContext(ctx, `SELECT 1 FROM documents LIMIT 1;`); perr != nil {
				needs = true
			}
		}
		_ = db.Close()
		if !needs {
			return false, nil
		}
	} else if errors.Is(err, ErrEmptyPath) {
		return false, err
	}
	l.Warn("index unusable, rebuilding", slog.Any("err", err))
	backupIndexFile(path)
	for _, p := range []string{path, path + "-wal", path + "-shm"} {
		_ = os.Remove(p)
	}
	db, err = OpenIndex(path)
	if err != nil {
		return false, fmt.Errorf("recreate index: %w", err)
	}
	_ = db.Close()
	return true, nil
}

// backupIndexFile copies the current index file into a timestamped backup next to it.
func backupIndexFile(indexPath string) {
	bdir := filepath.Join(filepath.Dir(indexPath), BackupsDirName)
	_ = os.MkdirAll(bdir, 0o755)
	stamp := time.Now().Format("20060102-150405")
	bak := filepath.Join(bdir, fmt.Sprintf("%s.%s.bak", filepath.Base(indexPath), stamp))
	if data, err := os.ReadFile(indexPath); err == nil {
		_ = os.WriteFile(bak, data, 0o644)
	}
}
