/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"playscript/internal/script"
	"playscript/internal/storage"
)

func newParseCmd(a *app) *cobra.Command {
	var quiet bool

	cmd := &cobra.Command{
		Use:   "parse [input] [output]",
		Short: "Parse a screenplay markdown file into a JSON document",
		Long: `Parse a screenplay markdown file into a JSON document.

Input and output default to paths.input and paths.output from the config
(PLS_INPUT and PLS_OUTPUT override them). A previous output is kept under
backups/ next to the output file.`,
		Args: cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			in, out := a.cfg.Paths.Input, a.cfg.Paths.Output
			if len(args) > 0 {
				in = args[0]
			}
			if len(args) > 1 {
				out = args[1]
			}
			a.session.Input, a.session.Output = in, out
			a.log.Info(fmt.Sprintf("Reading from %s and writing to %s", in, out))

			src, err := storage.ReadSource(in)
			if err != nil {
				return err
			}
			doc, diags := script.Parse(src)
			a.session.Doc = &doc
			a.logDiagnostics(in, diags)

			acts, scenes, lines := doc.Counts()
			a.log.Info("parsed",
				slog.Int("acts", acts), slog.Int("scenes", scenes), slog.Int("lines", lines),
				slog.Int("ignored", len(diags)))

			if err := storage.WriteDocument(out, doc); err != nil {
				return err
			}
			if !quiet {
				fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s: %d acts, %d scenes, %d lines\n", out, acts, scenes, lines)
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "do not print a summary")
	return cmd
}
