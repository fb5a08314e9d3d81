/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package export

import (
	"archive/zip"
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"playscript/internal/script"
)

// EPUBOptions controls EPUB export behavior.
// Title/Author/Description default to the document metadata.
type EPUBOptions struct {
	Acts        []int
	Title       string
	Author      string
	Language    string // e.g. "ru"; defaults to "ru"
	Description string
	Identifier  string // urn; a random urn:uuid when empty
}

const epubCSS = "body { font-family: serif; margin: 0 5%; }\n" +
	"h1, h2 { font-family: sans-serif; }\n" +
	".setting, .direction { font-style: italic; }\n" +
	".direction { margin-left: 2em; }\n" +
	".actor { font-weight: bold; }\n" +
	".line { margin: 0.3em 0; }\n"

// WriteEPUB exports doc as a reflowable EPUB 3 package with one chapter per act.
func WriteEPUB(doc script.Document, outPath string, opt EPUBOptions) error {
	if strings.TrimSpace(outPath) == "" {
		return fmt.Errorf("output path is required")
	}
	if !strings.HasSuffix(strings.ToLower(outPath), ".epub") {
		outPath += ".epub"
	}
	if opt.Language == "" {
		opt.Language = "ru"
	}
	if opt.Title == "" {
		opt.Title = doc.PlayTitle
	}
	if opt.Title == "" {
		opt.Title = strings.TrimSuffix(filepath.Base(outPath), filepath.Ext(outPath))
	}
	if opt.Author == "" {
		opt.Author = doc.Author
	}
	if opt.Description == "" {
		opt.Description = doc.Description
	}
	if opt.Identifier == "" {
		opt.Identifier = "urn:uuid:" + uuid.NewString()
	}
	acts := selectActs(doc.Acts, opt.Acts)

	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return fmt.Errorf("ensure out dir: %w", err)
	}
	f, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("create epub: %w", err)
	}
	defer func() { _ = f.Close() }()
	zw := zip.NewWriter(f)

	// mimetype goes first, uncompressed
	if err := addStoredZipFile(zw, "mimetype", []byte("application/epub+zip")); err != nil {
		_ = zw.Close()
		return fmt.Errorf("write mimetype: %w", err)
	}
	containerXML := "" +
		"<?xml version=\"1.0\" encoding=\"utf-8\"?>\n" +
		"<container version=\"1.0\" xmlns=\"urn:oasis:names:tc:opendocument:xmlns:container\">\n" +
		"  <rootfiles>\n" +
		"    <rootfile full-path=\"OEBPS/content.opf\" media-type=\"application/oebps-package+xml\"/>\n" +
		"  </rootfiles>\n" +
		"</container>\n"
	if err := addZipFile(zw, "META-INF/container.xml", []byte(containerXML)); err != nil {
		_ = zw.Close()
		return fmt.Errorf("write container.xml: %w", err)
	}
	if err := addZipFile(zw, "OEBPS/styles/play.css", []byte(epubCSS)); err != nil {
		_ = zw.Close()
		return fmt.Errorf("write css: %w", err)
	}

	nav := &bytes.Buffer{}
	nav.WriteString("<?xml version=\"1.0\" encoding=\"utf-8\"?>\n")
	fmt.Fprintf(nav, "<html xmlns=\"http://www.w3.org/1999/xhtml\" xmlns:epub=\"http://www.idpf.org/2007/ops\" xml:lang=\"%s\">\n", xmlEsc(opt.Language))
	nav.WriteString("<head><title>Table of Contents</title></head>\n<body>\n<nav epub:type=\"toc\" id=\"toc\"><ol>\n")

	chapters := make([]string, 0, len(acts))
	for _, a := range acts {
		name := fmt.Sprintf("act-%d.xhtml", a.ActNumber)
		if err := addZipFile(zw, "OEBPS/"+name, actXHTML(a, opt.Language)); err != nil {
			_ = zw.Close()
			return fmt.Errorf("write %s: %w", name, err)
		}
		chapters = append(chapters, name)
		fmt.Fprintf(nav, "<li><a href=\"%s\">%s</a>", name, xmlEsc(heading("Act", a.ActNumber, a.ActTitle)))
		if len(a.Scenes) > 0 {
			nav.WriteString("<ol>")
			for _, s := range a.Scenes {
				fmt.Fprintf(nav, "<li><a href=\"%s#scene-%d\">%s</a></li>", name, s.SceneNumber, xmlEsc(heading("Scene", s.SceneNumber, s.SceneTitle)))
			}
			nav.WriteString("</ol>")
		}
		nav.WriteString("</li>\n")
	}
	if len(chapters) == 0 {
		// EPUB requires a non-empty spine and toc.
		name := "title.xhtml"
		body := fmt.Sprintf("<h1>%s</h1>\n", xmlEsc(opt.Title))
		if err := addZipFile(zw, "OEBPS/"+name, []byte(xhtmlPage(opt.Title, opt.Language, body))); err != nil {
			_ = zw.Close()
			return fmt.Errorf("write %s: %w", name, err)
		}
		chapters = append(chapters, name)
		fmt.Fprintf(nav, "<li><a href=\"%s\">%s</a></li>\n", name, xmlEsc(opt.Title))
	}
	nav.WriteString("</ol></nav>\n</body>\n</html>\n")
	if err := addZipFile(zw, "OEBPS/nav.xhtml", nav.Bytes()); err != nil {
		_ = zw.Close()
		return fmt.Errorf("write nav.xhtml: %w", err)
	}

	mod := time.Now().UTC().Format("2006-01-02T15:04:05Z")
	opf := &bytes.Buffer{}
	opf.WriteString("<?xml version=\"1.0\" encoding=\"utf-8\"?>\n")
	opf.WriteString("<package version=\"3.0\" unique-identifier=\"pub-id\" xmlns=\"http://www.idpf.org/2007/opf\">\n")
	opf.WriteString("  <metadata xmlns:dc=\"http://purl.org/dc/elements/1.1/\">\n")
	fmt.Fprintf(opf, "    <dc:identifier id=\"pub-id\">%s</dc:identifier>\n", xmlEsc(opt.Identifier))
	fmt.Fprintf(opf, "    <dc:title>%s</dc:title>\n", xmlEsc(opt.Title))
	fmt.Fprintf(opf, "    <dc:language>%s</dc:language>\n", xmlEsc(opt.Language))
	if strings.TrimSpace(opt.Author) != "" {
		fmt.Fprintf(opf, "    <dc:creator>%s</dc:creator>\n", xmlEsc(opt.Author))
	}
	if strings.TrimSpace(opt.Description) != "" {
		fmt.Fprintf(opf, "    <dc:description>%s</dc:description>\n", xmlEsc(opt.Description))
	}
	fmt.Fprintf(opf, "    <meta property=\"dcterms:modified\">%s</meta>\n", mod)
	opf.WriteString("  </metadata>\n  <manifest>\n")
	opf.WriteString("    <item id=\"nav\" href=\"nav.xhtml\" media-type=\"application/xhtml+xml\" properties=\"nav\"/>\n")
	opf.WriteString("    <item id=\"css\" href=\"styles/play.css\" media-type=\"text/css\"/>\n")
	for i, name := range chapters {
		fmt.Fprintf(opf, "    <item id=\"ch-%d\" href=\"%s\" media-type=\"application/xhtml+xml\"/>\n", i+1, name)
	}
	opf.WriteString("  </manifest>\n  <spine>\n")
	for i := range chapters {
		fmt.Fprintf(opf, "    <itemref idref=\"ch-%d\"/>\n", i+1)
	}
	opf.WriteString("  </spine>\n</package>\n")
	if err := addZipFile(zw, "OEBPS/content.opf", opf.Bytes()); err != nil {
		_ = zw.Close()
		return fmt.Errorf("write content.opf: %w", err)
	}

	if err := zw.Close(); err != nil {
		return fmt.Errorf("close zip: %w", err)
	}
	return nil
}

func actXHTML(a script.Act, lang string) []byte {
	title := heading("Act", a.ActNumber, a.ActTitle)
	body := &bytes.Buffer{}
	fmt.Fprintf(body, "<h1>%s</h1>\n", xmlEsc(title))
	for _, s := range a.Scenes {
		fmt.Fprintf(body, "<section id=\"scene-%d\">\n<h2>%s</h2>\n", s.SceneNumber, xmlEsc(heading("Scene", s.SceneNumber, s.SceneTitle)))
		if st := s.SettingText(); st != "" {
			fmt.Fprintf(body, "<p class=\"setting\">%s</p>\n", brText(st))
		}
		for _, ln := range s.Lines {
			switch ln.Kind {
			case script.LineDirection:
				fmt.Fprintf(body, "<p class=\"direction\">%s</p>\n", brText(ln.Direction()))
			case script.LineContinuation:
				fmt.Fprintf(body, "<p class=\"line\">%s</p>\n", xmlEsc(ln.Text))
			default:
				fmt.Fprintf(body, "<p class=\"line\"><span class=\"actor\">%s.</span> ", xmlEsc(ln.Actor))
				if d := ln.Direction(); d != "" {
					fmt.Fprintf(body, "<em>(%s)</em> ", xmlEsc(d))
				}
				fmt.Fprintf(body, "%s</p>\n", xmlEsc(ln.Text))
			}
		}
		body.WriteString("</section>\n")
	}
	return []byte(xhtmlPage(title, lang, body.String()))
}

func xhtmlPage(title, lang, body string) string {
	return fmt.Sprintf("<?xml version=\"1.0\" encoding=\"utf-8\"?>\n"+
		"<html xmlns=\"http://www.w3.org/1999/xhtml\" xml:lang=\"%s\">\n<head>\n"+
		"<meta charset=\"utf-8\"/>\n"+
		"<title>%s</title>\n"+
		"<link rel=\"stylesheet\" type=\"text/css\" href=\"styles/play.css\"/>\n"+
		"</head>\n<body>\n%s</body>\n</html>\n", xmlEsc(lang), xmlEsc(title), body)
}

// brText escapes s and keeps its line breaks (multi-line scene settings).
func brText(s string) string {
	parts := strings.Split(s, "\n")
	for i := range parts {
		parts[i] = xmlEsc(parts[i])
	}
	return strings.Join(parts, "<br/>")
}

// addStoredZipFile writes an entry with STORE method (no compression), required for EPUB mimetype.
func addStoredZipFile(zw *zip.Writer, name string, data []byte) error {
	hdr := &zip.FileHeader{Name: name, Method: zip.Store}
	hdr.Modified = time.Now()
	w, err := zw.CreateHeader(hdr)
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

func addZipFile(zw *zip.Writer, name string, data []byte) error {
	w, err := zw.Create(name)
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

func xmlEsc(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '&':
			out = append(out, '&', 'a', 'm', 'p', ';')
		case '<':
			out = append(out, '&', 'l', 't', ';')
		case '>':
			out = append(out, '&', 'g', 't', ';')
		case '"':
			out = append(out, '&', 'q', 'u', 'o', 't', ';')
		case '\'':
			out = append(out, '&', 'a', 'p', 'o', 's', ';')
		default:
			out = append(out, s[i])
		}
	}
	return string(out)
}
