/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package export

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode"

	"golang.org/x/image/font/opentype"
	"golang.org/x/image/font/sfnt"

	"playscript/internal/script"
)

// pdfFont is a TrueType file checked before it is handed to gofpdf.
type pdfFont struct {
	path   string
	family string
	font   *opentype.Font
}

// loadFont parses the font at path. gofpdf embeds TrueType outlines only, so
// CFF-flavoured OpenType files are refused here instead of failing mid-render.
func loadFont(path string) (*pdfFont, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read font %s: %w", path, err)
	}
	if bytes.HasPrefix(data, []byte("OTTO")) {
		return nil, fmt.Errorf("font %s: CFF OpenType is not supported, use a TrueType font", path)
	}
	f, err := opentype.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse font %s: %w", path, err)
	}
	family, err := f.Name(nil, sfnt.NameIDFamily)
	if err != nil || family == "" {
		family = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return &pdfFont{path: path, family: family, font: f}, nil
}

// missing returns the distinct runes of s the font has no glyph for, sorted.
func (pf *pdfFont) missing(s string) []rune {
	var buf sfnt.Buffer
	seen := map[rune]bool{}
	var out []rune
	for _, r := range s {
		if seen[r] || unicode.IsSpace(r) || unicode.IsControl(r) {
			continue
		}
		seen[r] = true
		if gi, err := pf.font.GlyphIndex(&buf, r); err != nil || gi == 0 {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// documentText concatenates every string of doc that ends up on a page.
func documentText(doc script.Document) string {
	var b strings.Builder
	for _, s := range []string{doc.PlayTitle, doc.Author, doc.Description} {
		b.WriteString(s)
	}
	for _, a := range doc.Acts {
		b.WriteString(a.ActTitle)
		for _, sc := range a.Scenes {
			b.WriteString(sc.SceneTitle)
			b.WriteString(sc.SettingText())
			for _, ln := range sc.Lines {
				b.WriteString(ln.Actor)
				b.WriteString(ln.Direction())
				b.WriteString(ln.Text)
			}
		}
	}
	return b.String()
}
