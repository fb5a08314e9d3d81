/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package export

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/jung-kurt/gofpdf"
	applog "playscript/internal/log"
	"playscript/internal/script"
	"playscript/internal/version"
)

// PDFOptions controls PDF export behavior.
// Units are points (pt).
//
// The built-in Helvetica covers Latin-1 text only. For other scripts (for
// example Cyrillic) set FontFile to a UTF-8 capable TTF; it is registered for
// the regular, bold and italic styles.
type PDFOptions struct {
	Acts      []int  // act numbers to include; empty means all
	FontFile  string // optional TTF
	FontSize  float64
	TitlePage bool // force a title page even without metadata
}

const (
	pageMargin = 56.0
	indentStep = 24.0
)

// pdfWriter keeps the font state of one export.
type pdfWriter struct {
	pdf    *gofpdf.Fpdf
	family string
	size   float64
	tr     func(string) string
}

// WritePDF renders doc as a read-aloud script to outPath.
func WritePDF(doc script.Document, outPath string, opt PDFOptions) error {
	l := applog.WithOperation(applog.WithComponent("export"), "pdf").With(slog.String("out", outPath))
	if strings.TrimSpace(outPath) == "" {
		return fmt.Errorf("output path is required")
	}
	size := opt.FontSize
	if size <= 0 {
		size = 11
	}

	pdf := gofpdf.NewCustom(&gofpdf.InitType{
		UnitStr: "pt",
		SizeStr: "A4",
	})
	pdf.SetMargins(pageMargin, pageMargin, pageMargin)
	pdf.SetAutoPageBreak(true, pageMargin)
	title := doc.PlayTitle
	if title == "" {
		title = strings.TrimSuffix(filepath.Base(outPath), filepath.Ext(outPath))
	}
	pdf.SetTitle(title, true)
	if doc.Author != "" {
		pdf.SetAuthor(doc.Author, true)
	}
	pdf.SetCreator("playscript "+version.String(), true)

	w := &pdfWriter{pdf: pdf, family: "Helvetica", size: size, tr: pdf.UnicodeTranslatorFromDescriptor("")}
	if opt.FontFile != "" {
		pf, err := loadFont(opt.FontFile)
		if err != nil {
			return err
		}
		if missing := pf.missing(documentText(doc)); len(missing) > 0 {
			l.Warn("font lacks glyphs", slog.String("family", pf.family), slog.String("runes", string(missing)))
		}
		dir, file := filepath.Split(opt.FontFile)
		pdf.SetFontLocation(dir)
		for _, style := range []string{"", "B", "I", "BI"} {
			pdf.AddUTF8Font(pf.family, style, file)
		}
		if err := pdf.Error(); err != nil {
			return fmt.Errorf("load font: %w", err)
		}
		w.family = pf.family
		w.tr = func(s string) string { return s }
	}

	pdf.SetFooterFunc(func() {
		pdf.SetY(-pageMargin + 16)
		w.font("I", size-2)
		pdf.CellFormat(0, 10, fmt.Sprintf("%d", pdf.PageNo()), "", 0, "C", false, 0, "")
	})

	if opt.TitlePage || doc.PlayTitle != "" || doc.Author != "" || doc.Description != "" {
		w.titlePage(doc)
	}
	acts := selectActs(doc.Acts, opt.Acts)
	for _, a := range acts {
		w.act(a)
	}
	if pdf.PageNo() == 0 {
		pdf.AddPage()
	}
	if err := pdf.Error(); err != nil {
		l.Error("render failed", slog.Any("err", err))
		return fmt.Errorf("render pdf: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return fmt.Errorf("ensure out dir: %w", err)
	}
	if err := pdf.OutputFileAndClose(outPath); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	l.Info("pdf written", slog.Int("acts", len(acts)), slog.Int("pages", pdf.PageNo()))
	return nil
}

func selectActs(all []script.Act, numbers []int) []script.Act {
	if len(numbers) == 0 {
		return all
	}
	want := make(map[int]bool, len(numbers))
	for _, n := range numbers {
		want[n] = true
	}
	out := make([]script.Act, 0, len(numbers))
	for _, a := range all {
		if want[a.ActNumber] {
			out = append(out, a)
		}
	}
	return out
}

func (w *pdfWriter) font(style string, size float64) {
	w.pdf.SetFont(w.family, style, size)
}

func (w *pdfWriter) lineHeight() float64 { return w.size * 1.4 }

func (w *pdfWriter) titlePage(doc script.Document) {
	pdf := w.pdf
	pdf.AddPage()
	_, pageH := pdf.GetPageSize()
	pdf.SetY(pageH / 3)
	w.font("B", w.size*2.4)
	pdf.MultiCell(0, w.size*3, w.tr(doc.PlayTitle), "", "C", false)
	if doc.Author != "" {
		pdf.Ln(w.size)
		w.font("", w.size*1.4)
		pdf.MultiCell(0, w.size*2, w.tr(doc.Author), "", "C", false)
	}
	if doc.Description != "" {
		pdf.Ln(w.size * 2)
		w.font("I", w.size)
		pdf.MultiCell(0, w.lineHeight(), w.tr(doc.Description), "", "C", false)
	}
}

func (w *pdfWriter) act(a script.Act) {
	pdf := w.pdf
	pdf.AddPage()
	w.font("B", w.size*1.6)
	pdf.MultiCell(0, w.size*2.2, w.tr(heading("Act", a.ActNumber, a.ActTitle)), "", "L", false)
	pdf.Ln(w.size / 2)
	for _, s := range a.Scenes {
		w.scene(s)
	}
}

func (w *pdfWriter) scene(s script.Scene) {
	pdf := w.pdf
	pdf.Ln(w.size / 2)
	w.font("B", w.size*1.25)
	pdf.MultiCell(0, w.size*1.8, w.tr(heading("Scene", s.SceneNumber, s.SceneTitle)), "", "L", false)
	if st := s.SettingText(); st != "" {
		w.font("I", w.size)
		pdf.MultiCell(0, w.lineHeight(), w.tr(st), "", "L", false)
	}
	pdf.Ln(w.size / 2)
	for _, ln := range s.Lines {
		w.line(ln)
	}
}

func (w *pdfWriter) line(ln script.Line) {
	pdf := w.pdf
	lh := w.lineHeight()
	switch ln.Kind {
	case script.LineDirection:
		left, _, _, _ := pdf.GetMargins()
		pdf.SetX(left + indentStep)
		w.font("I", w.size)
		pdf.MultiCell(0, lh, w.tr(ln.Direction()), "", "L", false)
	case script.LineContinuation:
		w.font("", w.size)
		pdf.MultiCell(0, lh, w.tr(ln.Text), "", "L", false)
	default:
		w.font("B", w.size)
		pdf.Write(lh, w.tr(ln.Actor+". "))
		if d := ln.Direction(); d != "" {
			w.font("I", w.size)
			pdf.Write(lh, w.tr("("+d+") "))
		}
		w.font("", w.size)
		pdf.Write(lh, w.tr(ln.Text))
		pdf.Ln(lh)
	}
}

// heading renders "Act 2. Title" or "Act 2" when the title is empty.
func heading(label string, n int, title string) string {
	if title == "" {
		return fmt.Sprintf("%s %d", label, n)
	}
	return fmt.Sprintf("%s %d. %s", label, n, title)
}
