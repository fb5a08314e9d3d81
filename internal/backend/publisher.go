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
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	applog "playscript/internal/log"
	"playscript/internal/script"
	"playscript/internal/storage"
)

const (
	upsertPlayQuery = `
		INSERT INTO plays (id, name, title, author, description, document, acts, scenes, lines)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (name) DO UPDATE SET
			title = EXCLUDED.title,
			author = EXCLUDED.author,
			description = EXCLUDED.description,
			document = EXCLUDED.document,
			acts = EXCLUDED.acts,
			scenes = EXCLUDED.scenes,
			lines = EXCLUDED.lines,
			version = plays.version + 1,
			updated_at = now()
		RETURNING id, version, published_at, updated_at`

	insertEntryQuery = `
		INSERT INTO play_entries (play_id, position, entry_type, path, act_number, scene_number, actor, raw_text)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	playFields = `id, name, title, author, acts, scenes, lines, version, published_at, updated_at`
)

// PublishedPlay describes a play stored in the backend.
type PublishedPlay struct {
	ID          uuid.UUID
	Name        string
	Title       string
	Author      string
	Acts        int
	Scenes      int
	Lines       int
	Version     int64
	PublishedAt time.Time
	UpdatedAt   time.Time
}

// Publisher writes and reads plays in Postgres.
type Publisher struct {
	db  *sql.DB
	log *slog.Logger
}

// NewPublisher wraps an open database (see Open).
func NewPublisher(db *sql.DB) *Publisher {
	return &Publisher{db: db, log: applog.WithComponent("backend")}
}

// Publish stores doc under name. Publishing an existing name replaces its
// document and entries and bumps the version.
func (p *Publisher) Publish(ctx context.Context, name string, doc script.Document) (PublishedPlay, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return PublishedPlay{}, errors.New("play name is required")
	}
	l := p.log.With(slog.String("play", name))
	data, err := script.Encode(doc)
	if err != nil {
		return PublishedPlay{}, fmt.Errorf("encode document: %w", err)
	}
	acts, scenes, lines := doc.Counts()

	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return PublishedPlay{}, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	out := PublishedPlay{Name: name, Title: doc.PlayTitle, Author: doc.Author, Acts: acts, Scenes: scenes, Lines: lines}
	err = tx.QueryRowContext(ctx, upsertPlayQuery, uuid.New(), name, doc.PlayTitle, doc.Author, doc.Description, string(data), acts, scenes, lines).
		Scan(&out.ID, &out.Version, &out.PublishedAt, &out.UpdatedAt)
	if err != nil {
		l.Error("upsert play failed", slog.Any("err", err))
		return PublishedPlay{}, fmt.Errorf("upsert play: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM play_entries WHERE play_id = $1`, out.ID); err != nil {
		return PublishedPlay{}, fmt.Errorf("clear entries: %w", err)
	}
	for i, e := range storage.Flatten(doc) {
		var scene, actor any
		if e.Scene > 0 {
			scene = e.Scene
		}
		if e.Actor != "" {
			actor = e.Actor
		}
		if _, err := tx.ExecContext(ctx, insertEntryQuery, out.ID, i+1, e.Type, e.Path, e.Act, scene, actor, e.Text); err != nil {
			return PublishedPlay{}, fmt.Errorf("insert entry %s: %w", e.Path, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return PublishedPlay{}, fmt.Errorf("commit: %w", err)
	}
	l.Info("play published", slog.String("id", out.ID.String()), slog.Int64("version", out.Version))
	return out, nil
}

// Get returns the document published under name.
func (p *Publisher) Get(ctx context.Context, name string) (script.Document, error) {
	var raw []byte
	err := p.db.QueryRowContext(ctx, `SELECT document FROM plays WHERE name = $1`, name).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return script.Document{}, ErrNotFound
	}
	if err != nil {
		return script.Document{}, fmt.Errorf("get play %q: %w", name, err)
	}
	return script.Decode(raw)
}

// Info returns the metadata of a published play.
func (p *Publisher) Info(ctx context.Context, name string) (PublishedPlay, error) {
	row := p.db.QueryRowContext(ctx, `SELECT `+playFields+` FROM plays WHERE name = $1`, name)
	pp, err := scanPlay(row)
	if errors.Is(err, sql.ErrNoRows) {
		return PublishedPlay{}, ErrNotFound
	}
	return pp, err
}

// List returns all published plays ordered by name.
func (p *Publisher) List(ctx context.Context) ([]PublishedPlay, error) {
	rows, err := p.db.QueryContext(ctx, `SELECT `+playFields+` FROM plays ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list plays: %w", err)
	}
	defer func() { _ = rows.Close() }()
	var out []PublishedPlay
	for rows.Next() {
		pp, err := scanPlay(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, pp)
	}
	return out, rows.Err()
}

// Remove deletes a published play. It returns ErrNotFound for unknown names.
func (p *Publisher) Remove(ctx context.Context, name string) error {
	res, err := p.db.ExecContext(ctx, `DELETE FROM plays WHERE name = $1`, name)
	if err != nil {
		return fmt.Errorf("remove play: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPlay(r rowScanner) (PublishedPlay, error) {
	var pp PublishedPlay
	err := r.Scan(&pp.ID, &pp.Name, &pp.Title, &pp.Author, &pp.Acts, &pp.Scenes, &pp.Lines, &pp.Version, &pp.PublishedAt, &pp.UpdatedAt)
	return pp, err
}
