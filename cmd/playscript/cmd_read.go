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
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"playscript/internal/playback"
	"playscript/internal/script"
)

func newReadCmd(a *app) *cobra.Command {
	var (
		wpm  int
		lang string
		acts []int
	)

	cmd := &cobra.Command{
		Use:   "read <file>",
		Short: "Read a play aloud on the console",
		Long: `Read a play aloud on the console, one line at a time.

A JSON document may carry reader annotations next to the parsed fields
("language", "active" on acts and scenes, "state" on lines); they decide
which lines are read. Press Ctrl+C to stop.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, ann, err := a.loadAnnotated(args[0])
			if err != nil {
				return err
			}
			if lang != "" {
				ann.SetLanguage(lang)
			}
			if len(acts) > 0 {
				keep := map[int]bool{}
				for _, n := range acts {
					keep[n] = true
				}
				for _, act := range doc.Acts {
					ann.SetActActive(act.ActNumber, keep[act.ActNumber])
				}
			}
			if wpm == 0 {
				wpm = a.cfg.Playback.WordsPerMinute
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			speaker := &playback.ConsoleSpeaker{W: cmd.OutOrStdout(), WordsPerMinute: wpm}
			player := playback.NewPlayer(speaker, playback.WithWakeLock(playback.NopWakeLock{}))
			if err := player.Start(ctx, doc, ann); err != nil {
				return err
			}
			if err := player.Wait(); err != nil {
				return err
			}
			if ctx.Err() != nil {
				a.log.Info("reading interrupted")
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&wpm, "wpm", 0, "reading speed in words per minute (default playback.words_per_minute, negative for no pause)")
	cmd.Flags().StringVar(&lang, "lang", "", "speech language (default from the document or playback.language)")
	cmd.Flags().IntSliceVar(&acts, "act", nil, "act numbers to read (default all active acts)")
	return cmd
}

// loadAnnotated loads a document with the reader annotations stored in it.
// Markdown sources have none.
func (a *app) loadAnnotated(path string) (script.Document, *playback.Annotations, error) {
	if strings.EqualFold(filepath.Ext(path), ".md") {
		doc, err := a.loadDocument(path)
		if err != nil {
			return doc, nil, err
		}
		ann := playback.NewAnnotations(doc)
		ann.SetLanguage(a.cfg.Playback.Language)
		return doc, ann, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return script.Document{}, nil, fmt.Errorf("read document: %w", err)
	}
	doc, err := script.Decode(data)
	if err != nil {
		return doc, nil, fmt.Errorf("%s: %w", path, err)
	}
	ann := playback.NewAnnotations(doc)
	ann.SetLanguage(a.cfg.Playback.Language)
	if err := ann.ApplyJSON(data); err != nil {
		return doc, nil, fmt.Errorf("%s: %w", path, err)
	}
	a.log.Debug("annotations loaded", slog.String("path", path), slog.String("language", ann.Language()))
	return doc, ann, nil
}
