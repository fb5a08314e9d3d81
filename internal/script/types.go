/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package script

import (
	"bytes"
	"encoding/json"
	"errors"
)

// Document is a parsed play: metadata plus ordered acts.
// PlayTitle, Author and Description are never filled by Parse; they are kept
// so a front-matter reader can populate them later.
type Document struct {
	PlayTitle   string `json:"playTitle"`
	Author      string `json:"author"`
	Description string `json:"description"`
	Acts        []Act  `json:"acts"`
}

// Act is a top-level division. ActNumber is assigned in document order starting at 1,
// independent of any number printed in the heading.
type Act struct {
	ActTitle  string  `json:"actTitle"`
	ActNumber int     `json:"actNumber"`
	Scenes    []Scene `json:"scenes"`
}

// Scene numbers are document-global and never restart inside an act.
// Setting is nil until the first descriptive line arrives before any Line.
type Scene struct {
	SceneTitle  string  `json:"sceneTitle"`
	SceneNumber int     `json:"sceneNumber"`
	Setting     *string `json:"setting"`
	Lines       []Line  `json:"lines"`
}

// LineKind tells which of the three line shapes a Line has.
type LineKind int

const (
	// LineDialogue: **Actor.** *(direction)* text
	LineDialogue LineKind = iota
	// LineContinuation: plain prose after a dialogue line, spoken by the previous actor.
	LineContinuation
	// LineDirection: a stage direction placed between lines.
	LineDirection
)

func (k LineKind) String() string {
	switch k {
	case LineDialogue:
		return "dialogue"
	case LineContinuation:
		return "continuation"
	case LineDirection:
		return "direction"
	default:
		return "unknown"
	}
}

// Line is a single entry of a scene.
// For dialogue, Setting holds the attached parenthetical (nil if absent).
// For directions, Setting holds the direction text and Actor/Text are empty.
type Line struct {
	Kind    LineKind
	Actor   string
	Setting *string
	Text    string
}

// SettingText returns the scene setting or "" when there is none.
func (s Scene) SettingText() string {
	if s.Setting == nil {
		return ""
	}
	return *s.Setting
}

// Direction returns the stage direction of the line, or "".
func (l Line) Direction() string {
	if l.Setting == nil {
		return ""
	}
	return *l.Setting
}

// Counts returns the number of acts, scenes and lines in the document.
func (d Document) Counts() (acts, scenes, lines int) {
	acts = len(d.Acts)
	for _, a := range d.Acts {
		scenes += len(a.Scenes)
		for _, s := range a.Scenes {
			lines += len(s.Lines)
		}
	}
	return acts, scenes, lines
}

// Wire shapes. Field order is part of the output format.

type dialogueJSON struct {
	Actor   string  `json:"actor"`
	Setting *string `json:"setting"`
	Text    string  `json:"text"`
}

type continuationJSON struct {
	Actor string `json:"actor"`
	Text  string `json:"text"`
}

type directionJSON struct {
	Setting string `json:"setting"`
}

// MarshalJSON emits one of the three line shapes depending on Kind.
func (l Line) MarshalJSON() ([]byte, error) {
	switch l.Kind {
	case LineContinuation:
		return marshalRaw(continuationJSON{Actor: l.Actor, Text: l.Text})
	case LineDirection:
		return marshalRaw(directionJSON{Setting: l.Direction()})
	default:
		return marshalRaw(dialogueJSON{Actor: l.Actor, Setting: l.Setting, Text: l.Text})
	}
}

var errLineShape = errors.New("line has neither actor nor setting")

// UnmarshalJSON recovers the line kind from the keys present.
// Unknown keys (for example UI annotations like "selected") are ignored.
func (l *Line) UnmarshalJSON(b []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	actorRaw, hasActor := raw["actor"]
	settingRaw, hasSetting := raw["setting"]
	var out Line
	if hasActor {
		if err := json.Unmarshal(actorRaw, &out.Actor); err != nil {
			return err
		}
	}
	if hasSetting {
		if err := json.Unmarshal(settingRaw, &out.Setting); err != nil {
			return err
		}
	}
	if textRaw, ok := raw["text"]; ok {
		if err := json.Unmarshal(textRaw, &out.Text); err != nil {
			return err
		}
	}
	switch {
	case hasActor && hasSetting:
		out.Kind = LineDialogue
	case hasActor:
		out.Kind = LineContinuation
	case hasSetting:
		out.Kind = LineDirection
		if out.Setting == nil {
			empty := ""
			out.Setting = &empty
		}
	default:
		return errLineShape
	}
	*l = out
	return nil
}

// Encode serializes the document with two-space indentation and a trailing newline.
// HTML characters are written as-is.
func Encode(doc Document) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Decode reads a document produced by Encode (or by an older tool using the same keys).
func Decode(data []byte) (Document, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return Document{}, err
	}
	if doc.Acts == nil {
		doc.Acts = []Act{}
	}
	return doc, nil
}

func marshalRaw(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
