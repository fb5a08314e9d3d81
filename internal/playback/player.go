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
	"errors"
	"log/slog"
	"sync"

	applog "playscript/internal/log"
	"playscript/internal/script"
)

var (
	// ErrNotAvailable is returned when no speech backend is configured.
	ErrNotAvailable = errors.New("playback: speech is not available")
	// ErrBusy is returned by Start while a reading is in progress.
	ErrBusy = errors.New("playback: already reading")
	// ErrNotSpeaking is returned by Pause when nothing is being spoken.
	ErrNotSpeaking = errors.New("playback: not speaking")
	// ErrNotPaused is returned by Resume when playback is not paused.
	ErrNotPaused = errors.New("playback: not paused")
)

// Speaker speaks one cue and returns when the utterance has ended.
// It must return promptly once ctx is cancelled.
type Speaker interface {
	Speak(ctx context.Context, cue Cue, language string) error
}

// WakeLock keeps the device awake while reading.
type WakeLock interface {
	Acquire() error
	Release()
}

// Scroller brings the line being spoken into view.
type Scroller interface {
	ScrollTo(ref LineRef)
}

// State of a Player.
type State int

const (
	Idle State = iota
	Speaking
	Paused
	Cancelled
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Speaking:
		return "speaking"
	case Paused:
		return "paused"
	case Cancelled:
		return "cancelled"
	}
	return "unknown"
}

// Player reads a queue of cues through a Speaker.
//
// Idle -> Speaking on Start; Speaking <-> Paused on Pause/Resume; any state
// -> Cancelled on Cancel; back to Idle once the queue drains or the
// cancellation has been observed. A paused cue is spoken again from the start
// on Resume.
type Player struct {
	speaker  Speaker
	lock     WakeLock
	scroller Scroller
	log      *slog.Logger

	mu         sync.Mutex
	state      State
	ann        *Annotations
	queue      []Cue
	pos        int
	lang       string
	autoScroll bool
	cancelCue  context.CancelFunc
	paused     bool // current cue was cut short by Pause
	resume     chan struct{}
	done       chan struct{}
	err        error
}

// Option configures a Player.
type Option func(*Player)

// WithWakeLock sets the wake lock acquired while reading.
func WithWakeLock(l WakeLock) Option { return func(p *Player) { p.lock = l } }

// WithScroller sets the scroller that follows the spoken line.
func WithScroller(s Scroller) Option { return func(p *Player) { p.scroller = s } }

// NewPlayer creates a Player. A nil speaker makes every Start fail with ErrNotAvailable.
func NewPlayer(s Speaker, opts ...Option) *Player {
	p := &Player{speaker: s, log: applog.WithComponent("playback"), autoScroll: true}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Available reports whether the player can speak.
func (p *Player) Available() bool { return p.speaker != nil }

// State returns the current state.
func (p *Player) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Speaking reports whether a reading is in progress (speaking or paused).
func (p *Player) Speaking() bool {
	s := p.State()
	return s == Speaking || s == Paused
}

// AutoScroll reports whether the player follows the spoken line.
func (p *Player) AutoScroll() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.autoScroll
}

// Start begins reading doc using ann. It returns once the reading has started;
// use Wait to block until it ends.
func (p *Player) Start(ctx context.Context, doc script.Document, ann *Annotations) error {
	if !p.Available() {
		return ErrNotAvailable
	}
	if ann == nil {
		ann = NewAnnotations(doc)
	}
	queue := Queue(doc, ann)

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state != Idle {
		return ErrBusy
	}
	p.state = Speaking
	p.ann = ann
	p.queue = queue
	p.pos = 0
	p.lang = ann.Language()
	p.autoScroll = true
	p.paused = false
	p.err = nil
	p.done = make(chan struct{})
	if p.lock != nil {
		if err := p.lock.Acquire(); err != nil {
			p.log.Warn("wake lock not acquired", slog.Any("err", err))
		}
	}
	p.log.Info("reading started", slog.Int("cues", len(queue)), slog.String("language", p.lang))
	go p.run(ctx, p.done)
	return nil
}

// Toggle cancels a reading in progress, or starts one.
func (p *Player) Toggle(ctx context.Context, doc script.Document, ann *Annotations) error {
	if !p.Available() {
		return nil
	}
	if p.Speaking() {
		p.Cancel()
		return nil
	}
	return p.Start(ctx, doc, ann)
}

// Pause interrupts the current cue.
func (p *Player) Pause() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state != Speaking {
		return ErrNotSpeaking
	}
	p.state = Paused
	p.resume = make(chan struct{})
	if p.cancelCue != nil {
		p.paused = true
		p.cancelCue()
	}
	return nil
}

// Resume continues a paused reading with the interrupted cue.
func (p *Player) Resume() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state != Paused {
		return ErrNotPaused
	}
	p.state = Speaking
	close(p.resume)
	return nil
}

// Cancel stops a reading. It is a no-op when idle.
func (p *Player) Cancel() {
	p.mu.Lock()
	defer p.mu.Unlock()
	switch p.state {
	case Idle, Cancelled:
		return
	case Paused:
		close(p.resume)
	}
	p.state = Cancelled
	if p.cancelCue != nil {
		p.cancelCue()
	}
}

// Wait blocks until the current reading ends and returns the speaker error, if any.
func (p *Player) Wait() error {
	p.mu.Lock()
	done := p.done
	p.mu.Unlock()
	if done == nil {
		return nil
	}
	<-done
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

// UserScrolled disables auto-scroll while speaking.
func (p *Player) UserScrolled() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state == Speaking || p.state == Paused {
		p.autoScroll = false
	}
}

// LineVisible re-enables auto-scroll once the spoken line is back in view.
func (p *Player) LineVisible() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state == Speaking || p.state == Paused {
		p.autoScroll = true
	}
}

func (p *Player) run(ctx context.Context, done chan struct{}) {
	defer p.finish(done)
	for {
		p.mu.Lock()
		if p.state == Paused {
			ch := p.resume
			p.mu.Unlock()
			select {
			case <-ch:
			case <-ctx.Done():
				p.Cancel()
			}
			continue
		}
		if p.state == Cancelled || p.pos >= len(p.queue) {
			p.mu.Unlock()
			return
		}
		if err := ctx.Err(); err != nil {
			p.state = Cancelled
			p.mu.Unlock()
			return
		}
		cue := p.queue[p.pos]
		cueCtx, cancel := context.WithCancel(ctx)
		p.cancelCue = cancel
		follow := p.autoScroll && p.scroller != nil
		p.mu.Unlock()

		p.ann.setSelected(cue.Ref, true)
		if follow {
			p.scroller.ScrollTo(cue.Ref)
		}
		p.log.Debug("cue", slog.String("ref", cue.Ref.String()), slog.String("actor", cue.Actor))
		err := p.speaker.Speak(cueCtx, cue, p.lang)
		cancel()
		p.ann.setSelected(cue.Ref, false)

		p.mu.Lock()
		p.cancelCue = nil
		interrupted := p.paused
		p.paused = false
		switch {
		case p.state == Cancelled:
			p.mu.Unlock()
			return
		case interrupted:
			// spoken again after Resume
		case err != nil && ctx.Err() == nil:
			p.err = err
			p.log.Error("speech failed", slog.String("ref", cue.Ref.String()), slog.Any("err", err))
			p.mu.Unlock()
			return
		default:
			p.pos++
		}
		p.mu.Unlock()
	}
}

func (p *Player) finish(done chan struct{}) {
	p.mu.Lock()
	cancelled := p.state == Cancelled
	p.state = Idle
	p.queue = nil
	p.cancelCue = nil
	p.mu.Unlock()
	if p.lock != nil {
		p.lock.Release()
	}
	p.log.Info("reading finished", slog.Bool("cancelled", cancelled))
	close(done)
}
