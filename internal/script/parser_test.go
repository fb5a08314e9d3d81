/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package script

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func TestParseExampleScene(t *testing.T) {
	input := `# **Act One**
## **Scene 1**
*A quiet room.*
**Alice.** Hello there.
And how are you?`

	doc, _ := Parse(input)
	require.Len(t, doc.Acts, 1)
	act := doc.Acts[0]
	assert.Equal(t, "Act One", act.ActTitle)
	assert.Equal(t, 1, act.ActNumber)
	require.Len(t, act.Scenes, 1)

	sc := act.Scenes[0]
	assert.Equal(t, "Scene 1", sc.SceneTitle)
	assert.Equal(t, 1, sc.SceneNumber)
	require.NotNil(t, sc.Setting)
	assert.Equal(t, "A quiet room.", *sc.Setting)
	assert.Equal(t, []Line{
		{Kind: LineDialogue, Actor: "Alice", Text: "Hello there."},
		{Kind: LineContinuation, Actor: "Alice", Text: "And how are you?"},
	}, sc.Lines)

	assert.Empty(t, doc.PlayTitle)
	assert.Empty(t, doc.Author)
	assert.Empty(t, doc.Description)
}

func TestParseSequentialNumbering(t *testing.T) {
	input := `# **I** {#act-1}
## **One** {#s1}
## **Two**
# **II** {#act-2}
## **Three**
# **III**`

	doc, diags := Parse(input)
	require.Empty(t, diags)
	require.Len(t, doc.Acts, 3)

	var sceneNumbers []int
	for i, a := range doc.Acts {
		assert.Equal(t, i+1, a.ActNumber)
		for _, s := range a.Scenes {
			sceneNumbers = append(sceneNumbers, s.SceneNumber)
		}
	}
	assert.Equal(t, []int{1, 2, 3}, sceneNumbers)
	assert.Equal(t, "One", doc.Acts[0].Scenes[0].SceneTitle)
	assert.Equal(t, "Three", doc.Acts[1].Scenes[0].SceneTitle)
	assert.Empty(t, doc.Acts[2].Scenes, "act without scenes is still flushed")
}

func TestParseHeadingTitles(t *testing.T) {
	cases := []struct {
		line  string
		title string
	}{
		{"# **Act One**", "Act One"},
		{"# **Act One** {#one .act}", "Act One"},
		{"# Act One {#one}", "Act One"},
		{"# Act One", "Act One"},
		{`# **Act \#1**`, "Act #1"},
	}
	for _, tc := range cases {
		doc, _ := Parse(tc.line)
		require.Len(t, doc.Acts, 1, tc.line)
		assert.Equal(t, tc.title, doc.Acts[0].ActTitle, tc.line)
	}
}

func TestParseSettingAccumulation(t *testing.T) {
	before := `# **A**
## **S**
*A garden.*
Night falls.`
	doc, _ := Parse(before)
	sc := doc.Acts[0].Scenes[0]
	require.NotNil(t, sc.Setting)
	assert.Equal(t, "A garden.\nNight falls.", *sc.Setting)
	assert.Empty(t, sc.Lines)

	after := `# **A**
## **S**
**Bob.** Hi.
*A garden.*
Night falls.`
	doc, _ = Parse(after)
	sc = doc.Acts[0].Scenes[0]
	assert.Nil(t, sc.Setting)
	assert.Equal(t, []Line{
		{Kind: LineDialogue, Actor: "Bob", Text: "Hi."},
		{Kind: LineDirection, Setting: strPtr("A garden.")},
		{Kind: LineContinuation, Actor: "Bob", Text: "Night falls."},
	}, sc.Lines)
}

func TestParseDialogueVariants(t *testing.T) {
	cases := []struct {
		name string
		line string
		want Line
	}{
		{"plain", "**Bob.** Go away.", Line{Kind: LineDialogue, Actor: "Bob", Text: "Go away."}},
		{"no period", "**Bob** Go away.", Line{Kind: LineDialogue, Actor: "Bob", Text: "Go away."}},
		{"period outside", "**Bob**. Go away.", Line{Kind: LineDialogue, Actor: "Bob", Text: "Go away."}},
		{"parenthetical", "**Bob.** *(aside)* Psst.", Line{Kind: LineDialogue, Actor: "Bob", Setting: strPtr("aside"), Text: "Psst."}},
		{"parenthetical only", "**Bob.** *(exits)*", Line{Kind: LineDialogue, Actor: "Bob", Setting: strPtr("exits")}},
		{"empty parenthetical", "**Bob.** *()* Hm.", Line{Kind: LineDialogue, Actor: "Bob", Text: "Hm."}},
		{"escaped text", `**Bob.** 1\. Go\!`, Line{Kind: LineDialogue, Actor: "Bob", Text: "1. Go!"}},
		{"two words", "**Old Man.** Who's there?", Line{Kind: LineDialogue, Actor: "Old Man", Text: "Who's there?"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			doc, _ := Parse("# **A**\n## **S**\n" + tc.line)
			lines := doc.Acts[0].Scenes[0].Lines
			require.Len(t, lines, 1)
			assert.Equal(t, tc.want, lines[0])
		})
	}
}

func TestParseDialogueWinsOverSetting(t *testing.T) {
	// Matches both the dialogue and the italic-line pattern.
	doc, _ := Parse("# **A**\n## **S**\n**Bob.** *waves*")
	lines := doc.Acts[0].Scenes[0].Lines
	require.Len(t, lines, 1)
	assert.Equal(t, Line{Kind: LineDialogue, Actor: "Bob", Setting: strPtr("waves")}, lines[0])
}

func TestParseItalicHeadingIsDirection(t *testing.T) {
	input := `# **A**
## **S**
**Bob.** Hi.
# *Thunder.*
## *Rain.*`
	doc, _ := Parse(input)
	require.Len(t, doc.Acts, 1)
	require.Len(t, doc.Acts[0].Scenes, 1)
	assert.Equal(t, []Line{
		{Kind: LineDialogue, Actor: "Bob", Text: "Hi."},
		{Kind: LineDirection, Setting: strPtr("Thunder.")},
		{Kind: LineDirection, Setting: strPtr("Rain.")},
	}, doc.Acts[0].Scenes[0].Lines)
}

func TestParseHeadingResetsSpeaker(t *testing.T) {
	input := `# **A**
## **S1**
**Bob.** Hi.
## **S2**
*Later.*
**Ann.** Hello.
Still me.`
	doc, _ := Parse(input)
	s2 := doc.Acts[0].Scenes[1]
	require.Len(t, s2.Lines, 2)
	assert.Equal(t, "Ann", s2.Lines[1].Actor)
	assert.Equal(t, LineContinuation, s2.Lines[1].Kind)
}

func TestParseIgnoredInput(t *testing.T) {
	input := `Preface text.

# **A**
Between act and scene.
## **S**

**Bob.** Hi.
`
	doc, diags := Parse(input)
	require.Len(t, doc.Acts, 1)
	require.Len(t, doc.Acts[0].Scenes, 1)
	assert.Len(t, doc.Acts[0].Scenes[0].Lines, 1)
	assert.Nil(t, doc.Acts[0].Scenes[0].Setting)

	assert.Equal(t, []Diagnostic{
		{Line: 1, Kind: DiagIgnored, Text: "Preface text."},
		{Line: 2, Kind: DiagIgnored, Text: ""},
		{Line: 4, Kind: DiagIgnored, Text: "Between act and scene."},
		{Line: 6, Kind: DiagIgnored, Text: ""},
		{Line: 8, Kind: DiagIgnored, Text: ""},
	}, diags)
}

func TestParseNoHeadings(t *testing.T) {
	doc, diags := Parse("just prose\nmore prose")
	assert.NotNil(t, doc.Acts)
	assert.Empty(t, doc.Acts)
	assert.Len(t, diags, 2)

	doc, _ = Parse("")
	assert.Empty(t, doc.Acts)
}

// A scene heading before any act is reported and dropped; it takes no number.
func TestParseOrphanSceneIsDiagnosed(t *testing.T) {
	input := `## **Prologue**
Spoken into the void.
# **A**
## **S**`
	doc, diags := Parse(input)
	require.Len(t, doc.Acts, 1)
	require.Len(t, doc.Acts[0].Scenes, 1)
	assert.Equal(t, 1, doc.Acts[0].Scenes[0].SceneNumber)
	assert.Equal(t, "S", doc.Acts[0].Scenes[0].SceneTitle)

	require.Len(t, diags, 2)
	assert.Equal(t, DiagOrphanScene, diags[0].Kind)
	assert.Equal(t, 1, diags[0].Line)
	assert.Equal(t, DiagIgnored, diags[1].Kind)
}

func TestParseActHeadingClosesScene(t *testing.T) {
	input := `# **A**
## **S**
**Bob.** Hi.
# **B**
Orphaned prose.
## **T**
**Ann.** Yo.`
	doc, diags := Parse(input)
	require.Len(t, doc.Acts, 2)
	assert.Len(t, doc.Acts[0].Scenes[0].Lines, 1)
	assert.Equal(t, 2, doc.Acts[1].Scenes[0].SceneNumber)
	require.Len(t, diags, 1)
	assert.Equal(t, "Orphaned prose.", diags[0].Text)
}

func TestParseCRLFInput(t *testing.T) {
	doc, diags := Parse("# **A**\r\n## **S**\r\n**Bob.** Hi.\r\n")
	require.Len(t, doc.Acts, 1)
	assert.Equal(t, "Hi.", doc.Acts[0].Scenes[0].Lines[0].Text)
	assert.Len(t, diags, 1) // trailing empty line
}

func TestParseIsRepeatable(t *testing.T) {
	input := "# **A**\n## **S**\n**Bob.** Hi.\nMore."
	a, _ := Parse(input)
	b, _ := Parse(input)
	assert.Equal(t, a, b)
}
