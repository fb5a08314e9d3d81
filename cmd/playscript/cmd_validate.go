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
	"os"

	"github.com/spf13/cobra"

	"playscript/internal/script"
	"playscript/internal/storage"
)

func newValidateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <json>",
		Short: "Check a JSON document against the play schema",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read document: %w", err)
			}
			if err := storage.Validate(data); err != nil {
				return fmt.Errorf("%s: %w", args[0], err)
			}
			doc, err := script.Decode(data)
			if err != nil {
				return fmt.Errorf("%s: %w", args[0], err)
			}
			acts, scenes, lines := doc.Counts()
			a.log.Debug("document valid", slog.String("path", args[0]))
			fmt.Fprintf(cmd.OutOrStdout(), "%s: valid (%d acts, %d scenes, %d lines)\n", args[0], acts, scenes, lines)
			return nil
		},
	}
}
