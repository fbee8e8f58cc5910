// Scribe Core
// Copyright (c) 2026 The Scribe Project Contributors.
// SPDX-License-Identifier: GPL-3.0-or-later
//
// This file is part of Scribe Core.
//
// Scribe Core is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// Scribe Core is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with Scribe Core.  If not, see <http://www.gnu.org/licenses/>.

package buttons

import (
	"time"

	"github.com/ScribeProject/scribe-core/pkg/config"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

// Dispatcher receives classified press events from the scanner. Dispatch
// must never block the scan loop; slow work happens on the dispatcher's
// side.
type Dispatcher interface {
	Dispatch(buttonIndex int, longPress bool) error
}

// buttonState tracks debounce and press classification for one button.
// All fields are read and written only by the scan loop goroutine.
type buttonState struct {
	line               Line
	gpio               int
	valid              bool
	currentLevel       bool
	lastReading        bool
	pressed            bool
	longPressTriggered bool
	lastDebounceTime   time.Time
	pressStartTime     time.Time
}

// Scanner polls configured GPIO lines and classifies raw level changes
// into debounced short- and long-press events.
//
// Classification is mutually exclusive per press cycle: a long press fires
// exactly once, the moment the hold crosses the threshold (without waiting
// for release), and marks the cycle so the eventual release does not also
// fire a short press. A short press fires only on release of a hold that
// never reached the threshold.
type Scanner struct {
	clock      clockwork.Clock
	dispatcher Dispatcher
	requestFn  RequestLineFunc
	states     []buttonState
	debounce   time.Duration
	longPress  time.Duration
	activeLow  bool
}

// NewScanner builds a scanner for the buttons in cfg. Lines are not
// requested until Open is called.
func NewScanner(cfg config.Buttons, dispatcher Dispatcher, clock clockwork.Clock) *Scanner {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	s := &Scanner{
		clock:      clock,
		dispatcher: dispatcher,
		requestFn:  requestLine,
		debounce:   time.Duration(cfg.DebounceMs) * time.Millisecond,
		longPress:  time.Duration(cfg.LongPressMs) * time.Millisecond,
		activeLow:  cfg.ActiveLow,
		states:     make([]buttonState, len(cfg.Entries)),
	}
	for i, btn := range cfg.Entries {
		s.states[i].gpio = btn.Gpio
	}
	return s
}

// SetRequestLineFunc overrides GPIO line acquisition, for tests.
func (s *Scanner) SetRequestLineFunc(fn RequestLineFunc) {
	s.requestFn = fn
}

// Open requests the GPIO lines for every configured button. Buttons on
// unusable pins are logged and left inert rather than failing the whole
// scanner, so one bad config entry cannot take down the others.
func (s *Scanner) Open(chip string) error {
	now := s.clock.Now()
	for i := range s.states {
		st := &s.states[i]
		if !ValidGpio(st.gpio) {
			log.Error().
				Str("component", "buttons").
				Int("button", i).
				Int("gpio", st.gpio).
				Str("pin", GpioDescription(st.gpio)).
				Msg("refusing unsafe or reserved gpio, button disabled")
			continue
		}
		line, err := s.requestFn(chip, st.gpio, s.activeLow)
		if err != nil {
			log.Error().
				Err(err).
				Str("component", "buttons").
				Int("button", i).
				Int("gpio", st.gpio).
				Msg("gpio line request failed, button disabled")
			continue
		}
		st.line = line
		st.valid = true
		st.lastDebounceTime = now

		// Seed with the live level so a button held across startup does
		// not register as a fresh press.
		if v, err := line.Value(); err == nil {
			level := v != 0
			st.currentLevel = level
			st.lastReading = level
		}
		log.Debug().
			Str("component", "buttons").
			Int("button", i).
			Int("gpio", st.gpio).
			Str("pin", GpioDescription(st.gpio)).
			Msg("button line ready")
	}
	return nil
}

// Close releases all requested GPIO lines.
func (s *Scanner) Close() {
	for i := range s.states {
		st := &s.states[i]
		if st.line != nil {
			if err := st.line.Close(); err != nil {
				log.Warn().
					Err(err).
					Str("component", "buttons").
					Int("gpio", st.gpio).
					Msg("gpio line close failed")
			}
			st.line = nil
			st.valid = false
		}
	}
}

// Scan samples every button once and dispatches any press events that the
// debounce state machine resolves on this tick. It is called from the
// service loop at the poll interval.
func (s *Scanner) Scan() {
	now := s.clock.Now()
	for i := range s.states {
		s.scanOne(i, now)
	}
}

func (s *Scanner) scanOne(idx int, now time.Time) {
	st := &s.states[idx]
	if !st.valid {
		return
	}

	v, err := st.line.Value()
	if err != nil {
		log.Warn().
			Err(err).
			Str("component", "buttons").
			Int("button", idx).
			Int("gpio", st.gpio).
			Msg("gpio read failed")
		return
	}
	reading := v != 0

	// Any raw level change restarts the debounce window.
	if reading != st.lastReading {
		st.lastDebounceTime = now
	}

	if now.Sub(st.lastDebounceTime) > s.debounce && reading != st.currentLevel {
		st.currentLevel = reading
		isPressed := reading
		if s.activeLow {
			isPressed = !reading
		}

		switch {
		case isPressed && !st.pressed:
			st.pressed = true
			st.longPressTriggered = false
			st.pressStartTime = now
		case !isPressed && st.pressed:
			st.pressed = false
			held := now.Sub(st.pressStartTime)
			if !st.longPressTriggered && held < s.longPress {
				s.dispatch(idx, false)
			}
		}
	}

	// Long press fires while still held, once per press cycle.
	if st.pressed && !st.longPressTriggered && now.Sub(st.pressStartTime) >= s.longPress {
		st.longPressTriggered = true
		s.dispatch(idx, true)
	}

	st.lastReading = reading
}

func (s *Scanner) dispatch(idx int, longPress bool) {
	if s.dispatcher == nil {
		return
	}
	if err := s.dispatcher.Dispatch(idx, longPress); err != nil {
		log.Debug().
			Err(err).
			Str("component", "buttons").
			Int("button", idx).
			Bool("long_press", longPress).
			Msg("press not dispatched")
	}
}
