/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package playback

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"
)

// ConsoleSpeaker prints cues as "Actor: text" and holds each one for as long
// as it would take to say it at WordsPerMinute. WordsPerMinute <= 0 disables
// the pause.
type ConsoleSpeaker struct {
	mu             sync.Mutex
	W              io.Writer
	WordsPerMinute int
}

// Speak implements Speaker.
func (s *ConsoleSpeaker) Speak(ctx context.Context, cue Cue, _ string) error {
	s.mu.Lock()
	var err error
	if cue.Actor != "" {
		_, err = fmt.Fprintf(s.W, "%s: %s\n", cue.Actor, cue.Text)
	} else {
		_, err = fmt.Fprintln(s.W, cue.Text)
	}
	s.mu.Unlock()
	if err != nil {
		return err
	}
	d := SpeakingTime(cue.Text, s.WordsPerMinute)
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// SpeakingTime estimates how long text takes to say at wpm words per minute.
func SpeakingTime(text string, wpm int) time.Duration {
	if wpm <= 0 {
		return 0
	}
	words := len(strings.Fields(text))
	return time.Duration(words) * time.Minute / time.Duration(wpm)
}

// NopWakeLock satisfies WakeLock on platforms without one.
type NopWakeLock struct{}

func (NopWakeLock) Acquire() error { return nil }
func (NopWakeLock) Release()       {}
