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
	"os"
	"path/filepath"
	"testing"

	"playscript/internal/script"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const pdfSource = `# **Act One**
## **Scene 1**
*A village square.*
**Alice.** Hello there.
How are you?
**Bob.** *(waving)* Fine.
*Bob leaves.*
# **Act Two**
## **Scene 2**
**Alice.** Alone.
`

func readPDF(t *testing.T, path string) []byte {
	t.Helper()
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	require.True(t, bytes.HasPrefix(b, []byte("%PDF")), "not a PDF")
	return b
}

func TestWritePDF_CreatesFile(t *testing.T) {
	doc, _ := script.Parse(pdfSource)
	doc.PlayTitle = "The Fools"
	doc.Author = "Anon"
	out := filepath.Join(t.TempDir(), "exports", "fools.pdf")
	require.NoError(t, WritePDF(doc, out, PDFOptions{}))
	b := readPDF(t, out)
	assert.Greater(t, len(b), 500)
}

func TestWritePDF_ActFilterProducesSmallerFile(t *testing.T) {
	doc, _ := script.Parse(pdfSource)
	dir := t.TempDir()
	all := filepath.Join(dir, "all.pdf")
	one := filepath.Join(dir, "one.pdf")
	require.NoError(t, WritePDF(doc, all, PDFOptions{}))
	require.NoError(t, WritePDF(doc, one, PDFOptions{Acts: []int{2}}))
	assert.Less(t, len(readPDF(t, one)), len(readPDF(t, all)))
}

func TestWritePDF_EmptySelectionStillWritesAPage(t *testing.T) {
	doc, _ := script.Parse(pdfSource)
	out := filepath.Join(t.TempDir(), "none.pdf")
	require.NoError(t, WritePDF(doc, out, PDFOptions{Acts: []int{99}}))
	readPDF(t, out)
}

func TestWritePDF_Errors(t *testing.T) {
	doc, _ := script.Parse(pdfSource)
	assert.Error(t, WritePDF(doc, "", PDFOptions{}))
	out := filepath.Join(t.TempDir(), "x.pdf")
	assert.Error(t, WritePDF(doc, out, PDFOptions{FontFile: filepath.Join(t.TempDir(), "missing.ttf")}))
}

func TestHeading(t *testing.T) {
	assert.Equal(t, "Act 2", heading("Act", 2, ""))
	assert.Equal(t, "Scene 3. Night", heading("Scene", 3, "Night"))
}
