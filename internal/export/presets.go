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
	"path/filepath"
	"strings"

	"playscript/internal/script"
)

// PresetName represents a named export preset.
type PresetName string

const (
	PresetReader PresetName = "reader"
	PresetPrint  PresetName = "print"
)

// BatchOptions controls a batch export of one document into several formats.
//
// Files are written as <OutDir>/<preset>/<Name>.<format>. Name defaults to "play".
type BatchOptions struct {
	Preset   PresetName
	Formats  []string // allowed: pdf, epub; empty means preset defaults
	Acts     []int    // act numbers; empty means all
	OutDir   string
	Name     string
	FontFile string // passed to the PDF exporter
	Language string // passed to the EPUB exporter
}

// BatchExport runs exports according to the given preset and returns the written paths.
func BatchExport(doc script.Document, opt BatchOptions) ([]string, error) {
	formats := opt.Formats
	if len(formats) == 0 {
		formats = presetDefaultFormats(opt.Preset)
	}
	preset := opt.Preset
	if preset == "" {
		preset = PresetPrint
	}
	name := opt.Name
	if name == "" {
		name = "play"
	}
	base := filepath.Join(opt.OutDir, string(preset))

	var written []string
	for _, f := range formats {
		switch strings.ToLower(strings.TrimSpace(f)) {
		case "pdf":
			out := filepath.Join(base, name+".pdf")
			po := PDFOptions{Acts: opt.Acts, FontFile: opt.FontFile, FontSize: presetFontSize(preset), TitlePage: preset == PresetPrint}
			if err := WritePDF(doc, out, po); err != nil {
				return written, fmt.Errorf("pdf: %w", err)
			}
			written = append(written, out)
		case "epub":
			out := filepath.Join(base, name+".epub")
			if err := WriteEPUB(doc, out, EPUBOptions{Acts: opt.Acts, Language: opt.Language}); err != nil {
				return written, fmt.Errorf("epub: %w", err)
			}
			written = append(written, out)
		default:
			return written, fmt.Errorf("unknown format: %s", f)
		}
	}
	return written, nil
}

func presetDefaultFormats(p PresetName) []string {
	switch p {
	case PresetReader:
		return []string{"epub", "pdf"}
	default:
		return []string{"pdf"}
	}
}

func presetFontSize(p PresetName) float64 {
	if p == PresetReader {
		return 14
	}
	return 11
}
