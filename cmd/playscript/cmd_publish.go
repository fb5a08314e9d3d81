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
	"log/slog"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"playscript/internal/backend"
	"playscript/internal/storage"
)

// withBackend opens the configured Postgres backend for the duration of fn.
func (a *app) withBackend(ctx context.Context, fn func(ctx context.Context, db *sql.DB) error) error {
	ctx, cancel := context.WithTimeout(ctx, a.cfg.Backend.Timeout())
	defer cancel()
	db, err := backend.Open(ctx, a.cfg.Backend.DSN)
	if err != nil {
		return err
	}
	defer db.Close()
	return fn(ctx, db)
}

func newPublishCmd(a *app) *cobra.Command {
	var name string

	cmd := &cobra.Command{
		Use:   "publish <file>",
		Short: "Publish a document to the Postgres backend",
		Long: `Publish a document to the Postgres backend configured by backend.dsn
(PLS_PG_DSN or DATABASE_URL). Publishing a name again replaces the play and
bumps its version.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := a.loadDocument(args[0])
			if err != nil {
				return err
			}
			if name == "" {
				name = playName(args[0])
			}
			return a.withBackend(cmd.Context(), func(ctx context.Context, db *sql.DB) error {
				p, err := backend.NewPublisher(db).Publish(ctx, name, doc)
				if err != nil {
					return err
				}
				a.log.Info("published", slog.String("name", p.Name), slog.Int64("version", p.Version))
				fmt.Fprintf(cmd.OutOrStdout(), "Published %q version %d (%s)\n", p.Name, p.Version, p.ID)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "publication name (default the file name)")

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List published plays",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withBackend(cmd.Context(), func(ctx context.Context, db *sql.DB) error {
				plays, err := backend.NewPublisher(db).List(ctx)
				if err != nil {
					return err
				}
				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "NAME\tTITLE\tVERSION\tLINES\tUPDATED")
				for _, p := range plays {
					fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%s\n", p.Name, p.Title, p.Version, p.Lines, p.UpdatedAt.Format(time.RFC3339))
				}
				return tw.Flush()
			})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "get <name> <out.json>",
		Short: "Download a published play",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withBackend(cmd.Context(), func(ctx context.Context, db *sql.DB) error {
				doc, err := backend.NewPublisher(db).Get(ctx, args[0])
				if err != nil {
					return err
				}
				if err := storage.WriteDocument(args[1], doc); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Wrote", args[1])
				return nil
			})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "remove <name>",
		Short: "Remove a published play",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withBackend(cmd.Context(), func(ctx context.Context, db *sql.DB) error {
				if err := backend.NewPublisher(db).Remove(ctx, args[0]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %q\n", args[0])
				return nil
			})
		},
	})
	return cmd
}
