/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Command playscript turns screenplay markdown into the JSON document read by
// the reader app, and indexes, exports, reads aloud or publishes the result.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"playscript/internal/config"
	"playscript/internal/crash"
	applog "playscript/internal/log"
	"playscript/internal/script"
	"playscript/internal/storage"
	"playscript/internal/version"
)

// app carries what every subcommand needs once the root command has run.
type app struct {
	cfgPath string
	cfg     config.AppConfig
	log     *slog.Logger
	session crash.Session
}

func main() {
	a := &app{}
	defer crash.Recover(&a.session)

	err := newRootCmd(a).Execute()
	_ = applog.Close()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "playscript",
		Short:         "Screenplay markdown to JSON converter",
		Version:       version.String(),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
	}
	root.PersistentFlags().StringVar(&a.cfgPath, "config", "", "config file (default is the per-user config.yaml)")

	root.AddCommand(newParseCmd(a))
	root.AddCommand(newValidateCmd(a))
	root.AddCommand(newIndexCmd(a))
	root.AddCommand(newSearchCmd(a))
	root.AddCommand(newExportCmd(a))
	root.AddCommand(newReadCmd(a))
	root.AddCommand(newPublishCmd(a))
	root.AddCommand(newVersionCmd())
	return root
}

// setup loads the config and initializes logging. An unreadable per-user
// config is only a warning; an explicit --config that fails is an error.
func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(a.cfgPath)
	if err != nil && a.cfgPath != "" {
		return err
	}
	a.cfg = cfg
	opts := cfg.Logging.LogOptions()
	opts.Console = cmd.ErrOrStderr()
	applog.Init(opts)
	a.log = applog.WithComponent("cli")
	if err != nil {
		a.log.Warn("config not loaded, using defaults", slog.Any("err", err))
	}
	a.session.Command = cmd.CommandPath()
	a.log.Debug("start", slog.String("command", a.session.Command))
	return nil
}

// loadDocument reads a serialized document, or parses a markdown source when
// the file has an .md extension.
func (a *app) loadDocument(path string) (script.Document, error) {
	if strings.EqualFold(filepath.Ext(path), ".md") {
		src, err := storage.ReadSource(path)
		if err != nil {
			return script.Document{}, err
		}
		doc, diags := script.Parse(src)
		a.logDiagnostics(path, diags)
		return doc, nil
	}
	return storage.LoadDocument(path)
}

// logDiagnostics reports what the parser skipped.
func (a *app) logDiagnostics(path string, diags []script.Diagnostic) {
	l := applog.WithSource(a.log, path)
	for _, d := range diags {
		switch d.Kind {
		case script.DiagOrphanScene:
			l.Warn("malformed input", slog.String("kind", d.Kind.String()), slog.Int("line", d.Line), slog.String("text", d.Text))
		default:
			l.Debug("ignored line", slog.Int("line", d.Line), slog.String("text", d.Text))
		}
	}
}

// playName derives an index or publication name from a file path.
func playName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
