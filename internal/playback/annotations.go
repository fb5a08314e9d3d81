/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package playback reads a parsed play aloud. It owns the reader-side
// annotations (which acts and scenes are active, which lines are shown) that
// the parser never produces, builds the queue of lines to speak and drives a
// Speaker through it.
package playback

import (
	"encoding/json"
	"fmt"
	"sync"

	"playscript/internal/script"
)

// DefaultLanguage is used when a play does not name its language.
const DefaultLanguage = "ru"

// LineState controls whether a line is read aloud.
type LineState string

const (
	StateShow LineState = "show"
	StateHide LineState = "hide"
	StateClue LineState = "clue"
)

// Valid reports whether s is a known state.
func (s LineState) Valid() bool {
	switch s {
	case StateShow, StateHide, StateClue:
		return true
	}
	return false
}

// Spoken reports whether lines in this state are read.
func (s LineState) Spoken() bool { return s == StateShow || s == StateClue }

// LineRef addresses a line by act number, scene number and 1-based position in the scene.
type LineRef struct {
	Act   int
	Scene int
	Line  int
}

func (r LineRef) String() string {
	return fmt.Sprintf("act:%d/scene:%d/line:%d", r.Act, r.Scene, r.Line)
}

// Annotations holds the reader state of one document. It is safe for concurrent use.
type Annotations struct {
	mu       sync.RWMutex
	language string
	acts     map[int]bool
	scenes   map[int]bool
	lines    map[LineRef]LineState
	selected map[LineRef]bool
}

// NewAnnotations returns annotations with every act and scene active and every line shown.
func NewAnnotations(doc script.Document) *Annotations {
	a := &Annotations{
		language: DefaultLanguage,
		acts:     map[int]bool{},
		scenes:   map[int]bool{},
		lines:    map[LineRef]LineState{},
		selected: map[LineRef]bool{},
	}
	for _, act := range doc.Acts {
		a.acts[act.ActNumber] = true
		for _, sc := range act.Scenes {
			a.scenes[sc.SceneNumber] = true
			for i := range sc.Lines {
				a.lines[LineRef{Act: act.ActNumber, Scene: sc.SceneNumber, Line: i + 1}] = StateShow
			}
		}
	}
	return a
}

// Language returns the speech language.
func (a *Annotations) Language() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.language
}

// SetLanguage sets the speech language; "" restores DefaultLanguage.
func (a *Annotations) SetLanguage(lang string) {
	if lang == "" {
		lang = DefaultLanguage
	}
	a.mu.Lock()
	a.language = lang
	a.mu.Unlock()
}

// ActActive reports whether act n is active. Unknown acts are inactive.
func (a *Annotations) ActActive(n int) bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.acts[n]
}

// SetActActive toggles act n.
func (a *Annotations) SetActActive(n int, active bool) {
	a.mu.Lock()
	a.acts[n] = active
	a.mu.Unlock()
}

// SceneActive reports whether scene n is active. Unknown scenes are inactive.
func (a *Annotations) SceneActive(n int) bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.scenes[n]
}

// SetSceneActive toggles scene n.
func (a *Annotations) SetSceneActive(n int, active bool) {
	a.mu.Lock()
	a.scenes[n] = active
	a.mu.Unlock()
}

// State returns the state of a line; unknown lines are hidden.
func (a *Annotations) State(ref LineRef) LineState {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if s, ok := a.lines[ref]; ok {
		return s
	}
	return StateHide
}

// SetState sets the state of a line.
func (a *Annotations) SetState(ref LineRef, s LineState) error {
	if !s.Valid() {
		return fmt.Errorf("unknown line state %q", s)
	}
	a.mu.Lock()
	a.lines[ref] = s
	a.mu.Unlock()
	return nil
}

// Selected reports whether the line is being spoken right now.
func (a *Annotations) Selected(ref LineRef) bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.selected[ref]
}

func (a *Annotations) setSelected(ref LineRef, on bool) {
	a.mu.Lock()
	if on {
		a.selected[ref] = true
	} else {
		delete(a.selected, ref)
	}
	a.mu.Unlock()
}

// annotatedDoc mirrors the serialized document with the reader keys
// (language, active, state) that a UI stores next to the parser output.
type annotatedDoc struct {
	Language string `json:"language"`
	Acts     []struct {
		ActNumber int   `json:"actNumber"`
		Active    *bool `json:"active"`
		Scenes    []struct {
			SceneNumber int   `json:"sceneNumber"`
			Active      *bool `json:"active"`
			Lines       []struct {
				State *LineState `json:"state"`
			} `json:"lines"`
		} `json:"scenes"`
	} `json:"acts"`
}

// ApplyJSON copies reader keys found in a serialized document onto a.
// Keys that are absent leave the current value untouched.
func (a *Annotations) ApplyJSON(data []byte) error {
	var d annotatedDoc
	if err := json.Unmarshal(data, &d); err != nil {
		return fmt.Errorf("decode annotations: %w", err)
	}
	if d.Language != "" {
		a.SetLanguage(d.Language)
	}
	for _, act := range d.Acts {
		if act.Active != nil {
			a.SetActActive(act.ActNumber, *act.Active)
		}
		for _, sc := range act.Scenes {
			if sc.Active != nil {
				a.SetSceneActive(sc.SceneNumber, *sc.Active)
			}
			for i, ln := range sc.Lines {
				if ln.State == nil {
					continue
				}
				if err := a.SetState(LineRef{Act: act.ActNumber, Scene: sc.SceneNumber, Line: i + 1}, *ln.State); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// Cue is one line queued for speaking.
type Cue struct {
	Ref   LineRef
	Actor string
	Text  string
}

// Queue lists the lines to speak in document order: lines of active scenes in
// active acts whose state is show or clue. Lines without text (stage
// directions) are skipped.
func Queue(doc script.Document, ann *Annotations) []Cue {
	var out []Cue
	for _, act := range doc.Acts {
		if !ann.ActActive(act.ActNumber) {
			continue
		}
		for _, sc := range act.Scenes {
			if !ann.SceneActive(sc.SceneNumber) {
				continue
			}
			for i, ln := range sc.Lines {
				ref := LineRef{Act: act.ActNumber, Scene: sc.SceneNumber, Line: i + 1}
				if ln.Text == "" || !ann.State(ref).Spoken() {
					continue
				}
				out = append(out, Cue{Ref: ref, Actor: ln.Actor, Text: ln.Text})
			}
		}
	}
	return out
}
