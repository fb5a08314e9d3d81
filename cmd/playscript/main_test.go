/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"playscript/internal/backend"
)

const cliSource = `## **Scene 0**
# **Act One**
## **Scene 1**
*A village square.*
**Alice.** Hello there.
**Bob.** *(waving)* Hello, Alice.
## **Scene 2**
**Alice.** Alone again.
`

// execute runs the CLI with an isolated config and index and returns stdout and stderr.
func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	root := newRootCmd(&app{})
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(append([]string{"--config", filepath.Join(t.TempDir(), "config.yaml")}, args...))
	err := root.Execute()
	return out.String(), errOut.String(), err
}

func mustExecute(t *testing.T, args ...string) string {
	t.Helper()
	out, errOut, err := execute(t, args...)
	require.NoError(t, err, "stderr: %s", errOut)
	return out
}

func setupWorkspace(t *testing.T) (dir, src string) {
	t.Helper()
	dir = t.TempDir()
	t.Setenv("PLS_INDEX", filepath.Join(dir, "index.sqlite"))
	t.Setenv("PLS_PG_DSN", "")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("PLS_LOG_FILE", "")
	t.Setenv("PLS_LOG_LEVEL", "info")
	t.Setenv("PLS_LOG_FORMAT", "console")
	src = filepath.Join(dir, "fools.md")
	require.NoError(t, os.WriteFile(src, []byte(cliSource), 0o644))
	return dir, src
}

func TestParseCommand(t *testing.T) {
	dir, src := setupWorkspace(t)
	out := filepath.Join(dir, "fools.json")

	stdout, stderr, err := execute(t, "parse", src, out)
	require.NoError(t, err)
	assert.Contains(t, stdout, "1 acts, 2 scenes, 3 lines")
	assert.Contains(t, stderr, "Reading from "+src+" and writing to "+out)
	assert.Contains(t, stderr, "malformed input")

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"actTitle": "Act One"`)

	// A second run keeps the previous output as a backup.
	mustExecute(t, "parse", "-q", src, out)
	entries, err := os.ReadDir(filepath.Join(dir, "backups"))
	require.NoError(t, err)
	assert.NotEmpty(t, entries)
}

func TestParseUsesConfiguredPaths(t *testing.T) {
	dir, src := setupWorkspace(t)
	out := filepath.Join(dir, "nested", "out.json")
	t.Setenv("PLS_INPUT", src)
	t.Setenv("PLS_OUTPUT", out)

	mustExecute(t, "parse")
	_, err := os.Stat(out)
	assert.NoError(t, err)
}

func TestParseMissingInput(t *testing.T) {
	dir, _ := setupWorkspace(t)
	_, _, err := execute(t, "parse", filepath.Join(dir, "missing.md"), filepath.Join(dir, "out.json"))
	assert.Error(t, err)
}

func TestValidateCommand(t *testing.T) {
	dir, src := setupWorkspace(t)
	out := filepath.Join(dir, "fools.json")
	mustExecute(t, "parse", src, out)

	stdout := mustExecute(t, "validate", out)
	assert.Contains(t, stdout, "valid (1 acts, 2 scenes, 3 lines)")

	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`{"acts": 3}`), 0o644))
	_, _, err := execute(t, "validate", bad)
	assert.Error(t, err)
}

func TestIndexAndSearchCommands(t *testing.T) {
	dir, src := setupWorkspace(t)
	out := filepath.Join(dir, "fools.json")
	mustExecute(t, "parse", src, out)

	assert.Contains(t, mustExecute(t, "index", out), `Indexed `+out+` as "fools"`)
	assert.Contains(t, mustExecute(t, "index", "--name", "draft", src), `as "draft"`)

	list := mustExecute(t, "index", "list")
	assert.Contains(t, list, "fools")
	assert.Contains(t, list, "draft")

	res := mustExecute(t, "search", "--play", "fools", "Hello")
	assert.Contains(t, res, "fools act:1/scene:1/line:1 [dialogue] Alice: [Hello]")
	assert.Contains(t, res, "Bob: [Hello]")

	res = mustExecute(t, "search", "--play", "fools", "--actor", "Alice", "--type", "dialogue")
	assert.Equal(t, 2, strings.Count(res, "\n"))

	assert.Contains(t, mustExecute(t, "search", "nothing-like-this"), "No matches.")

	mustExecute(t, "index", "remove", "draft")
	assert.NotContains(t, mustExecute(t, "index", "list"), "draft")
	_, _, err := execute(t, "index", "remove", "draft")
	assert.Error(t, err)

	_, _, err = execute(t, "index", "--name", "x", out, src)
	assert.Error(t, err)
}

func TestExportCommands(t *testing.T) {
	dir, src := setupWorkspace(t)

	pdf := filepath.Join(dir, "out", "fools.pdf")
	mustExecute(t, "export", "pdf", src, pdf)
	data, err := os.ReadFile(pdf)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("%PDF")))

	epub := filepath.Join(dir, "out", "fools.epub")
	mustExecute(t, "export", "epub", "--title", "The Fools", src, epub)
	_, err = os.Stat(epub)
	require.NoError(t, err)

	stdout := mustExecute(t, "export", "batch", "--preset", "reader", "-o", filepath.Join(dir, "batch"), src)
	assert.Contains(t, stdout, filepath.Join(dir, "batch", "reader", "fools.epub"))
	assert.Contains(t, stdout, filepath.Join(dir, "batch", "reader", "fools.pdf"))

	_, _, err = execute(t, "export", "batch", "--preset", "poster", src)
	assert.Error(t, err)
}

func TestReadCommand(t *testing.T) {
	dir, src := setupWorkspace(t)
	out := filepath.Join(dir, "fools.json")
	mustExecute(t, "parse", src, out)

	stdout := mustExecute(t, "read", "--wpm", "-1", out)
	assert.Equal(t, "Alice: Hello there.\nBob: Hello, Alice.\nAlice: Alone again.\n", stdout)

	stdout = mustExecute(t, "read", "--wpm", "-1", "--act", "2", src)
	assert.Empty(t, stdout)
}

func TestReadHonorsStoredAnnotations(t *testing.T) {
	dir, _ := setupWorkspace(t)
	annotated := filepath.Join(dir, "annotated.json")
	doc := `{"playTitle":"","author":"","description":"","language":"en","acts":[
		{"actTitle":"Act One","actNumber":1,"active":true,"scenes":[
			{"sceneTitle":"Scene 1","sceneNumber":1,"setting":null,"lines":[
				{"actor":"Alice","setting":null,"text":"Hello there.","state":"hide"},
				{"actor":"Bob","setting":null,"text":"Hello, Alice.","state":"clue"}
			]}
		]}
	]}`
	require.NoError(t, os.WriteFile(annotated, []byte(doc), 0o644))
	assert.Equal(t, "Bob: Hello, Alice.\n", mustExecute(t, "read", "--wpm", "-1", annotated))
}

func TestPublishNeedsDSN(t *testing.T) {
	_, src := setupWorkspace(t)
	_, _, err := execute(t, "publish", src)
	assert.ErrorIs(t, err, backend.ErrNoDSN)
}

func TestVersionCommand(t *testing.T) {
	assert.Contains(t, mustExecute(t, "version"), "Playscript")
}
