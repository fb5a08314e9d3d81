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
	"path/filepath"

	"github.com/spf13/cobra"

	"playscript/internal/export"
)

func newExportCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Render a document as PDF or EPUB",
	}
	cmd.AddCommand(newExportPDFCmd(a))
	cmd.AddCommand(newExportEPUBCmd(a))
	cmd.AddCommand(newExportBatchCmd(a))
	return cmd
}

func newExportPDFCmd(a *app) *cobra.Command {
	var opt export.PDFOptions

	cmd := &cobra.Command{
		Use:   "pdf <file> <out.pdf>",
		Short: "Write a printable script handout",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := a.loadDocument(args[0])
			if err != nil {
				return err
			}
			a.session.Input, a.session.Output, a.session.Doc = args[0], args[1], &doc
			if err := export.WritePDF(doc, args[1], opt); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Wrote", args[1])
			return nil
		},
	}
	cmd.Flags().IntSliceVar(&opt.Acts, "acts", nil, "act numbers to include (default all)")
	cmd.Flags().StringVar(&opt.FontFile, "font", "", "UTF-8 TrueType font, required for non-Latin scripts")
	cmd.Flags().Float64Var(&opt.FontSize, "font-size", 0, "body font size in points")
	cmd.Flags().BoolVar(&opt.TitlePage, "title-page", false, "always start with a title page")
	return cmd
}

func newExportEPUBCmd(a *app) *cobra.Command {
	var opt export.EPUBOptions

	cmd := &cobra.Command{
		Use:   "epub <file> <out.epub>",
		Short: "Write a reflowable e-book",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := a.loadDocument(args[0])
			if err != nil {
				return err
			}
			a.session.Input, a.session.Output, a.session.Doc = args[0], args[1], &doc
			if opt.Language == "" {
				opt.Language = a.cfg.Playback.Language
			}
			if err := export.WriteEPUB(doc, args[1], opt); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Wrote", args[1])
			return nil
		},
	}
	cmd.Flags().IntSliceVar(&opt.Acts, "acts", nil, "act numbers to include (default all)")
	cmd.Flags().StringVar(&opt.Title, "title", "", "book title (default the play title)")
	cmd.Flags().StringVar(&opt.Author, "author", "", "book author (default the play author)")
	cmd.Flags().StringVar(&opt.Language, "lang", "", "book language (default playback.language)")
	return cmd
}

func newExportBatchCmd(a *app) *cobra.Command {
	var (
		opt    export.BatchOptions
		preset string
	)

	cmd := &cobra.Command{
		Use:   "batch <file>",
		Short: "Export a document with a preset",
		Long: `Export a document with a preset.

Presets: "print" (PDF with a title page) and "reader" (EPUB and PDF in a
larger type). Files are written to <out>/<preset>/<name>.<ext>.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := a.loadDocument(args[0])
			if err != nil {
				return err
			}
			opt.Preset = export.PresetName(preset)
			if opt.Preset != export.PresetPrint && opt.Preset != export.PresetReader {
				return fmt.Errorf("unknown preset %q", preset)
			}
			if opt.Name == "" {
				opt.Name = playName(args[0])
			}
			if opt.Language == "" {
				opt.Language = a.cfg.Playback.Language
			}
			a.session.Input, a.session.Output, a.session.Doc = args[0], filepath.Join(opt.OutDir, opt.Name), &doc
			written, err := export.BatchExport(doc, opt)
			for _, p := range written {
				fmt.Fprintln(cmd.OutOrStdout(), "Wrote", p)
			}
			return err
		},
	}
	cmd.Flags().StringVar(&preset, "preset", string(export.PresetPrint), "export preset: print or reader")
	cmd.Flags().StringSliceVar(&opt.Formats, "formats", nil, "formats to write: pdf, epub (default from preset)")
	cmd.Flags().IntSliceVar(&opt.Acts, "acts", nil, "act numbers to include (default all)")
	cmd.Flags().StringVarP(&opt.OutDir, "out", "o", "export", "output directory")
	cmd.Flags().StringVar(&opt.Name, "name", "", "file name without extension (default the input name)")
	cmd.Flags().StringVar(&opt.FontFile, "font", "", "UTF-8 TrueType font for PDF output")
	return cmd
}
