/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package log

import (
	"bufio"
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// TestInitAndStructuredLoggingToFile verifies that Init with a file handler writes JSON logs
// and that static and contextual attributes are present.
func TestInitAndStructuredLoggingToFile(t *testing.T) {
	fpath := filepath.Join(t.TempDir(), "playscript.log")
	var console bytes.Buffer

	Init(Options{Level: "debug", Format: "json", File: fpath, Console: &console})
	t.Cleanup(func() { _ = Close() })

	l := WithSource(WithOperation(WithComponent("testcomp"), "op1"), "fools.md")
	l.Info("hello world", slog.String("k", "v"))
	if err := Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	b, err := os.ReadFile(fpath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	var last string
	scanner := bufio.NewScanner(bytes.NewReader(b))
	for scanner.Scan() {
		if s := strings.TrimSpace(scanner.Text()); s != "" {
			last = s
		}
	}
	if last == "" {
		t.Fatalf("no log lines found")
	}
	var m map[string]any
	if err := json.Unmarshal([]byte(last), &m); err != nil {
		t.Fatalf("unmarshal json log: %v", err)
	}
	if m["app"] != "playscript" {
		t.Fatalf("missing app attr: %v", m["app"])
	}
	if _, ok := m["ver"].(string); !ok {
		t.Fatalf("missing ver attr")
	}
	if m["component"] != "testcomp" || m["op"] != "op1" || m["source"] != "fools.md" {
		t.Fatalf("context attrs mismatch: %v", m)
	}
	if m["msg"] != "hello world" || m["k"] != "v" {
		t.Fatalf("record mismatch: %v", m)
	}
	if !strings.Contains(console.String(), `"msg":"hello world"`) {
		t.Fatalf("console json output missing: %q", console.String())
	}
}

func TestConsoleLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	Init(Options{Level: "warn", Console: &buf})
	L().Info("quiet")
	L().Warn("loud", slog.Int("line", 3))
	out := buf.String()
	if strings.Contains(out, "quiet") {
		t.Fatalf("info record should be filtered: %q", out)
	}
	if !strings.Contains(out, "WRN loud") || !strings.Contains(out, "line=3") {
		t.Fatalf("warn record missing: %q", out)
	}
}
