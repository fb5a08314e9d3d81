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
	"errors"
	"fmt"
	"log/slog"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"playscript/internal/storage"
)

// openIndex opens the search index from the config, repairing it first when asked.
func (a *app) openIndex(ctx context.Context, repair bool) (*sql.DB, error) {
	path := a.cfg.Paths.Index
	if repair {
		repaired, err := storage.RepairIndex(ctx, path)
		if err != nil {
			return nil, fmt.Errorf("repair index: %w", err)
		}
		if repaired {
			a.log.Warn("search index was rebuilt", slog.String("path", path))
		}
	}
	return storage.OpenIndex(path)
}

func newIndexCmd(a *app) *cobra.Command {
	var (
		name   string
		repair bool
	)

	cmd := &cobra.Command{
		Use:   "index <file>...",
		Short: "Add documents to the search index",
		Long: `Add documents to the search index at paths.index.

Each file is a JSON document or a markdown source (.md). The play name
defaults to the file name without extension; indexing a play again replaces
its rows.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if name != "" && len(args) > 1 {
				return errors.New("--name needs exactly one file")
			}
			ctx := cmd.Context()
			db, err := a.openIndex(ctx, repair)
			if err != nil {
				return err
			}
			defer db.Close()

			for _, path := range args {
				doc, err := a.loadDocument(path)
				if err != nil {
					return err
				}
				n := name
				if n == "" {
					n = playName(path)
				}
				if err := storage.IndexDocument(ctx, db, n, path, doc); err != nil {
					return fmt.Errorf("index %s: %w", path, err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Indexed %s as %q\n", path, n)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "play name (single file only)")
	cmd.Flags().BoolVar(&repair, "repair", false, "check the index and rebuild it when corrupted")

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List indexed plays",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := a.openIndex(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer db.Close()
			plays, err := storage.ListPlays(cmd.Context(), db)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "NAME\tTITLE\tACTS\tSCENES\tLINES\tSOURCE")
			for _, p := range plays {
				fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%d\t%s\n", p.Name, p.Title, p.Acts, p.Scenes, p.Lines, p.Source)
			}
			return tw.Flush()
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "remove <name>",
		Short: "Remove a play from the index",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := a.openIndex(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer db.Close()
			ok, err := storage.RemovePlay(cmd.Context(), db, args[0])
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("play %q is not indexed", args[0])
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %q\n", args[0])
			return nil
		},
	})
	return cmd
}
