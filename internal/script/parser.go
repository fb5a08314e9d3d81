/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package script

import (
	"regexp"
	"strings"
)

// DiagnosticKind classifies a non-fatal parse report.
type DiagnosticKind int

const (
	// DiagIgnored: a blank line or text outside an open act and scene.
	DiagIgnored DiagnosticKind = iota
	// DiagOrphanScene: a scene heading seen before any act heading.
	DiagOrphanScene
)

func (k DiagnosticKind) String() string {
	switch k {
	case DiagIgnored:
		return "ignored"
	case DiagOrphanScene:
		return "orphan-scene"
	default:
		return "unknown"
	}
}

// Diagnostic is an informational report about a source line the parser skipped.
type Diagnostic struct {
	Line int // 1-based line number in the source
	Kind DiagnosticKind
	Text string // normalized line text
}

// Line patterns, tested in the order of the rule tables below.
var (
	reAct      = regexp.MustCompile(`^# (\**)([^*{]*)(\**)\s*(\{.*\})?$`)
	reScene    = regexp.MustCompile(`^## (\**)([^*{]*)(\**)\s*(\{.*\})?$`)
	reDialogue = regexp.MustCompile(`^\*\*(.*?)\.?\*\*\s*(?:\*\(?(.*?)\)?\*\s*)?\.?\s*(.*)$`)
	reSetting  = regexp.MustCompile(`^#*\s*\*(.*)\*$`)
)

type rule struct {
	name  string
	match func(line string) []string
	apply func(p *parser, m []string)
}

// headingRules run on every line; the first match wins.
var headingRules = []rule{
	{name: "act", match: heading(reAct), apply: (*parser).openAct},
	{name: "scene", match: heading(reScene), apply: (*parser).openScene},
}

// bodyRules run only inside an open act and scene, on non-empty lines.
// Dialogue precedes setting: a line matching both is dialogue.
var bodyRules = []rule{
	{name: "dialogue", match: reDialogue.FindStringSubmatch, apply: (*parser).addDialogue},
	{name: "setting", match: reSetting.FindStringSubmatch, apply: (*parser).addSetting},
}

// heading wraps a heading pattern and returns []string{line, title} on a match.
// A title wrapped in single stars with no "{...}" block is italic text
// ("# *A storm.*") and is left to the setting rule.
func heading(re *regexp.Regexp) func(string) []string {
	return func(line string) []string {
		m := re.FindStringSubmatch(line)
		if m == nil {
			return nil
		}
		if m[4] == "" && (m[1] == "*" || m[3] == "*") {
			return nil
		}
		return []string{m[0], strings.TrimSpace(m[2])}
	}
}

// parser holds the scan state of one Parse call.
type parser struct {
	doc       Document
	act       *Act
	scene     *Scene
	actSeq    int
	sceneSeq  int
	lastActor string
	lineNo    int
	line      string
	diags     []Diagnostic
}

// Parse converts screenplay markdown into a Document.
// Recognized syntax (after trimming and unescaping each line):
//   - "# **Title**" opens an act; a trailing "{...}" annotation is ignored.
//   - "## **Title**" opens a scene inside the current act.
//   - "**Actor.** *(direction)* text" is a dialogue line; the direction is optional.
//   - "*text*" (optionally after "#") is a setting or stage direction.
//   - Any other text continues the previous speaker, or extends the scene
//     setting while the scene has no lines yet.
//
// Parse never fails. Lines it cannot place are returned as diagnostics.
func Parse(input string) (Document, []Diagnostic) {
	p := &parser{doc: Document{Acts: []Act{}}}
	for i, raw := range strings.Split(input, "\n") {
		p.lineNo = i + 1
		p.line = normalize(raw)
		p.step()
	}
	p.flushScene()
	p.flushAct()
	return p.doc, p.diags
}

func (p *parser) step() {
	for _, r := range headingRules {
		if m := r.match(p.line); m != nil {
			r.apply(p, m)
			return
		}
	}
	if p.act == nil || p.scene == nil || p.line == "" {
		p.report(DiagIgnored)
		return
	}
	for _, r := range bodyRules {
		if m := r.match(p.line); m != nil {
			r.apply(p, m)
			return
		}
	}
	p.addProse()
}

func (p *parser) report(kind DiagnosticKind) {
	p.diags = append(p.diags, Diagnostic{Line: p.lineNo, Kind: kind, Text: p.line})
}

func (p *parser) openAct(m []string) {
	p.flushScene()
	p.flushAct()
	p.actSeq++
	p.act = &Act{ActTitle: m[1], ActNumber: p.actSeq, Scenes: []Scene{}}
	p.lastActor = ""
}

// openScene ignores a scene heading that has no act to belong to; it takes no
// scene number, so numbering stays gap-free.
func (p *parser) openScene(m []string) {
	if p.act == nil {
		p.report(DiagOrphanScene)
		return
	}
	p.flushScene()
	p.sceneSeq++
	p.scene = &Scene{SceneTitle: m[1], SceneNumber: p.sceneSeq, Lines: []Line{}}
	p.lastActor = ""
}

func (p *parser) addDialogue(m []string) {
	var setting *string
	if m[2] != "" {
		s := m[2]
		setting = &s
	}
	p.scene.Lines = append(p.scene.Lines, Line{Kind: LineDialogue, Actor: m[1], Setting: setting, Text: m[3]})
	p.lastActor = m[1]
}

func (p *parser) addSetting(m []string) {
	text := m[1]
	if p.appendSceneSetting(text) {
		return
	}
	p.scene.Lines = append(p.scene.Lines, Line{Kind: LineDirection, Setting: &text})
}

func (p *parser) addProse() {
	if p.appendSceneSetting(p.line) {
		return
	}
	p.scene.Lines = append(p.scene.Lines, Line{Kind: LineContinuation, Actor: p.lastActor, Text: p.line})
}

// appendSceneSetting extends Scene.Setting while the scene has no lines.
// It reports false once lines exist; the caller then emits a Line instead.
func (p *parser) appendSceneSetting(text string) bool {
	if len(p.scene.Lines) > 0 {
		return false
	}
	if p.scene.Setting == nil {
		p.scene.Setting = &text
		return true
	}
	joined := *p.scene.Setting + "\n" + text
	p.scene.Setting = &joined
	return true
}

func (p *parser) flushScene() {
	if p.scene == nil {
		return
	}
	p.act.Scenes = append(p.act.Scenes, *p.scene)
	p.scene = nil
}

func (p *parser) flushAct() {
	if p.act == nil {
		return
	}
	p.doc.Acts = append(p.doc.Acts, *p.act)
	p.act = nil
}
