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
	"errors"
	"testing"
	"time"

	"github.com/ScribeProject/scribe-core/pkg/config"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeLine is a scriptable GPIO line. Level 1 is released and 0 is
// pressed, matching an active-low button with a pull-up.
type fakeLine struct {
	level  int
	err    error
	closed bool
}

func (l *fakeLine) Value() (int, error) {
	if l.err != nil {
		return 0, l.err
	}
	return l.level, nil
}

func (l *fakeLine) Close() error {
	l.closed = true
	return nil
}

type pressEvent struct {
	button int
	long   bool
}

type recordingDispatcher struct {
	events []pressEvent
}

func (d *recordingDispatcher) Dispatch(buttonIndex int, longPress bool) error {
	d.events = append(d.events, pressEvent{button: buttonIndex, long: longPress})
	return nil
}

func scannerConfig() config.Buttons {
	return config.Buttons{
		Chip:        "gpiochip0",
		ActiveLow:   true,
		DebounceMs:  50,
		LongPressMs: 400,
		Entries: []config.Button{
			{Gpio: 5, ShortAction: "joke", LongAction: "quote"},
		},
	}
}

func newTestScanner(t *testing.T, cfg config.Buttons) (*Scanner, *fakeLine, *recordingDispatcher, *clockwork.FakeClock) {
	t.Helper()

	disp := &recordingDispatcher{}
	clk := clockwork.NewFakeClock()
	line := &fakeLine{level: 1}

	s := NewScanner(cfg, disp, clk)
	s.SetRequestLineFunc(func(_ string, _ int, _ bool) (Line, error) {
		return line, nil
	})
	require.NoError(t, s.Open(cfg.Chip))
	t.Cleanup(s.Close)
	return s, line, disp, clk
}

func step(s *Scanner, clk *clockwork.FakeClock, d time.Duration) {
	clk.Advance(d)
	s.Scan()
}

func TestShortPressDispatchesOnce(t *testing.T) {
	t.Parallel()

	s, line, disp, clk := newTestScanner(t, scannerConfig())

	// Press, hold 200ms, release. Debounce is 50ms and the long-press
	// threshold 400ms, so this must classify as exactly one short press.
	line.level = 0
	s.Scan()
	step(s, clk, 60*time.Millisecond) // debounced press registers

	step(s, clk, 140*time.Millisecond)
	line.level = 1
	s.Scan()
	step(s, clk, 60*time.Millisecond) // debounced release registers

	require.Len(t, disp.events, 1)
	assert.Equal(t, pressEvent{button: 0, long: false}, disp.events[0])

	// Nothing further fires while idle.
	step(s, clk, time.Second)
	assert.Len(t, disp.events, 1)
}

func TestLongPressFiresWhileHeld(t *testing.T) {
	t.Parallel()

	s, line, disp, clk := newTestScanner(t, scannerConfig())

	line.level = 0
	s.Scan()
	step(s, clk, 60*time.Millisecond) // press registers

	// Cross the 400ms threshold while still held.
	step(s, clk, 400*time.Millisecond)
	require.Len(t, disp.events, 1)
	assert.Equal(t, pressEvent{button: 0, long: true}, disp.events[0])

	// Still held: no repeat fire.
	step(s, clk, 200*time.Millisecond)
	assert.Len(t, disp.events, 1)

	// Release after a long press must not add a short press.
	line.level = 1
	s.Scan()
	step(s, clk, 60*time.Millisecond)
	assert.Len(t, disp.events, 1)
}

func TestBounceWithinDebounceIgnored(t *testing.T) {
	t.Parallel()

	s, line, disp, clk := newTestScanner(t, scannerConfig())

	// Contact bounce: rapid alternation shorter than the 50ms debounce.
	for range 5 {
		line.level = 0
		step(s, clk, 10*time.Millisecond)
		line.level = 1
		step(s, clk, 10*time.Millisecond)
	}
	step(s, clk, 100*time.Millisecond)

	assert.Empty(t, disp.events, "bounce must not produce press events")
}

func TestActiveHighPolarity(t *testing.T) {
	t.Parallel()

	cfg := scannerConfig()
	cfg.ActiveLow = false
	s, line, disp, clk := newTestScanner(t, cfg)

	// With active-high wiring the idle level is 0 and a press drives 1.
	line.level = 0
	s.Scan()
	step(s, clk, 60*time.Millisecond)
	require.Empty(t, disp.events)

	line.level = 1
	s.Scan()
	step(s, clk, 60*time.Millisecond)
	line.level = 0
	s.Scan()
	step(s, clk, 60*time.Millisecond)

	require.Len(t, disp.events, 1)
	assert.False(t, disp.events[0].long)
}

func TestHeldAtStartupNotAPress(t *testing.T) {
	t.Parallel()

	disp := &recordingDispatcher{}
	clk := clockwork.NewFakeClock()
	line := &fakeLine{level: 0} // already held when lines are requested

	cfg := scannerConfig()
	s := NewScanner(cfg, disp, clk)
	s.SetRequestLineFunc(func(_ string, _ int, _ bool) (Line, error) {
		return line, nil
	})
	require.NoError(t, s.Open(cfg.Chip))
	defer s.Close()

	// The held level was seeded at Open, so no press cycle begins.
	for range 10 {
		step(s, clk, 100*time.Millisecond)
	}
	assert.Empty(t, disp.events)
}

func TestUnsafeGpioLeftInert(t *testing.T) {
	t.Parallel()

	cfg := scannerConfig()
	cfg.Entries = []config.Button{
		{Gpio: 14, ShortAction: "joke"}, // UART TX, reserved for the printer
		{Gpio: 99, ShortAction: "joke"}, // out of range
	}

	disp := &recordingDispatcher{}
	requested := 0
	s := NewScanner(cfg, disp, clockwork.NewFakeClock())
	s.SetRequestLineFunc(func(_ string, _ int, _ bool) (Line, error) {
		requested++
		return &fakeLine{level: 1}, nil
	})
	require.NoError(t, s.Open(cfg.Chip))
	defer s.Close()

	assert.Zero(t, requested, "reserved and invalid pins must not be requested")
	s.Scan() // must not panic on inert buttons
	assert.Empty(t, disp.events)
}

func TestLineRequestFailureDisablesButton(t *testing.T) {
	t.Parallel()

	cfg := scannerConfig()
	s := NewScanner(cfg, &recordingDispatcher{}, clockwork.NewFakeClock())
	s.SetRequestLineFunc(func(_ string, _ int, _ bool) (Line, error) {
		return nil, errors.New("chip not present")
	})
	require.NoError(t, s.Open(cfg.Chip), "one failing line must not fail the scanner")
	s.Scan()
}

func TestCloseReleasesLines(t *testing.T) {
	t.Parallel()

	s, line, _, _ := newTestScanner(t, scannerConfig())
	s.Close()
	assert.True(t, line.closed)
	s.Scan() // inert after close
}
