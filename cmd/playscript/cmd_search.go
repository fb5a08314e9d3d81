/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package main

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"playscript/internal/backend"
	"playscript/internal/storage"
)

func newSearchCmd(a *app) *cobra.Command {
	var (
		q         storage.SearchQuery
		published bool
	)

	cmd := &cobra.Command{
		Use:   "search [query]",
		Short: "Search lines of indexed plays",
		Long: `Search lines of indexed plays.

Each word of the query must appear in the line; a trailing * makes a word a
prefix. Without a query the filters alone select the lines. With --published
the search runs against the Postgres backend instead of the local index.`,
		Args: cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			q.Text = strings.Join(args, " ")
			var (
				results []storage.SearchResult
				err     error
			)
			if published {
				results, err = a.searchPublished(cmd.Context(), q)
			} else {
				results, err = a.searchIndex(cmd.Context(), q)
			}
			if err != nil {
				return err
			}
			printResults(cmd.OutOrStdout(), results)
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&q.Actor, "actor", "", "only lines spoken by this actor")
	f.StringVar(&q.Play, "play", "", "only this play")
	f.IntVar(&q.Act, "act", 0, "only this act number")
	f.IntVar(&q.Scene, "scene", 0, "only this scene number")
	f.StringSliceVar(&q.Types, "type", nil, "row types: act_title, scene_title, setting, dialogue, continuation, direction")
	f.IntVar(&q.Limit, "limit", 20, "maximum number of results")
	f.IntVar(&q.Offset, "offset", 0, "skip this many results")
	f.BoolVar(&published, "published", false, "search plays published to the backend")
	return cmd
}

func (a *app) searchIndex(ctx context.Context, q storage.SearchQuery) ([]storage.SearchResult, error) {
	db, err := a.openIndex(ctx, false)
	if err != nil {
		return nil, err
	}
	defer db.Close()
	return storage.Search(ctx, db, q)
}

func (a *app) searchPublished(ctx context.Context, q storage.SearchQuery) ([]storage.SearchResult, error) {
	var results []storage.SearchResult
	err := a.withBackend(ctx, func(ctx context.Context, db *sql.DB) error {
		var err error
		results, err = backend.SearchPG(ctx, db, q)
		return err
	})
	return results, err
}

func printResults(w io.Writer, results []storage.SearchResult) {
	if len(results) == 0 {
		fmt.Fprintln(w, "No matches.")
		return
	}
	for _, r := range results {
		text := r.Snippet
		if text == "" {
			text = r.Text
		}
		if r.Actor != "" {
			text = r.Actor + ": " + text
		}
		fmt.Fprintf(w, "%s %s [%s] %s\n", r.Play, r.Path, r.Type, text)
	}
}
