/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package storage

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"playscript/internal/script"
)

// BackupsDirName is created next to an output document and receives the
// previous version of the file on every write.
const BackupsDirName = "backups"

// ErrEmptyPath is returned when a read or write is requested without a path.
var ErrEmptyPath = errors.New("path is required")

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// ReadSource reads a screenplay file as UTF-8 text.
// A leading byte-order mark is dropped and invalid sequences become U+FFFD.
func ReadSource(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return "", ErrEmptyPath
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read source: %w", err)
	}
	b = bytes.TrimPrefix(b, utf8BOM)
	return strings.ToValidUTF8(string(b), "\uFFFD"), nil
}

// WriteDocument serializes doc and replaces path transactionally.
// An existing file is first copied to <dir>/backups/<name>.<timestamp>.bak.
func WriteDocument(path string, doc script.Document) error {
	if strings.TrimSpace(path) == "" {
		return ErrEmptyPath
	}
	data, err := script.Encode(doc)
	if err != nil {
		return fmt.Errorf("encode document: %w", err)
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("ensure output dir: %w", err)
	}

	if _, statErr := os.Stat(path); statErr == nil {
		stamp := time.Now().Format("20060102-150405")
		bpath := filepath.Join(dir, BackupsDirName, fmt.Sprintf("%s.%s.bak", filepath.Base(path), stamp))
		if cerr := copyFile(path, bpath); cerr != nil {
			return fmt.Errorf("backup current document: %w", cerr)
		}
	}

	// Write to a temp file in the same directory, then rename over the target.
	temp := filepath.Join(dir, fmt.Sprintf(".%s.tmp-%d-%d", filepath.Base(path), os.Getpid(), rand.Int()))
	if werr := writeFileSync(temp, data); werr != nil {
		_ = os.Remove(temp)
		return fmt.Errorf("write temp document: %w", werr)
	}
	if rerr := os.Rename(temp, path); rerr != nil {
		// Windows refuses to rename over an existing file.
		_ = os.Remove(path)
		if rerr2 := os.Rename(temp, path); rerr2 != nil {
			_ = os.Remove(temp)
			return fmt.Errorf("replace document: %w", rerr2)
		}
	}
	return nil
}

// LoadDocument reads a document written by WriteDocument.
// If the file is missing or unreadable JSON, the latest backup is tried.
func LoadDocument(path string) (script.Document, error) {
	if strings.TrimSpace(path) == "" {
		return script.Document{}, ErrEmptyPath
	}
	b, err := os.ReadFile(path)
	if err == nil {
		doc, derr := script.Decode(b)
		if derr == nil {
			return doc, nil
		}
		err = fmt.Errorf("parse document: %w", derr)
	}
	doc, berr := loadLatestBackup(path)
	if berr != nil {
		return script.Document{}, fmt.Errorf("%w; backup attempt: %v", err, berr)
	}
	return doc, nil
}

// Backups lists the backups of path, oldest first.
func Backups(path string) ([]string, error) {
	bdir := filepath.Join(filepath.Dir(path), BackupsDirName)
	ents, err := os.ReadDir(bdir)
	if err != nil {
		return nil, fmt.Errorf("read backups dir: %w", err)
	}
	prefix := filepath.Base(path) + "."
	var out []string
	for _, e := range ents {
		name := e.Name()
		if strings.HasPrefix(name, prefix) && strings.HasSuffix(name, ".bak") {
			out = append(out, filepath.Join(bdir, name))
		}
	}
	sort.Strings(out) // timestamp in name yields lexicographic order
	return out, nil
}

func loadLatestBackup(path string) (script.Document, error) {
	candidates, err := Backups(path)
	if err != nil {
		return script.Document{}, err
	}
	if len(candidates) == 0 {
		return script.Document{}, errors.New("no backups found")
	}
	latest := candidates[len(candidates)-1]
	b, err := os.ReadFile(latest)
	if err != nil {
		return script.Document{}, fmt.Errorf("read latest backup: %w", err)
	}
	doc, err := script.Decode(b)
	if err != nil {
		return script.Document{}, fmt.Errorf("parse latest backup: %w", err)
	}
	return doc, nil
}

// writeFileSync writes data to a file and flushes it to disk.
func writeFileSync(path string, data []byte) (err error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	if _, err := f.Write(data); err != nil {
		return err
	}
	return f.Sync()
}

// copyFile copies a file from src to dst (overwrites dst if exists).
func copyFile(src, dst string) (err error) {
	sf, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := sf.Close(); err == nil {
			err = cerr
		}
	}()
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	df, err := os.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := df.Close(); err == nil {
			err = cerr
		}
	}()
	if _, err := io.Copy(df, sf); err != nil {
		return err
	}
	return df.Sync()
}
