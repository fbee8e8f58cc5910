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

// Package leds sequences visual feedback effects on an LED strip.
// Triggering is fire-and-forget: a new effect replaces the running one,
// and the engine never blocks its callers. The animation itself is the
// strip driver's business; the engine only tracks which named effect is
// active and for how long.
package leds

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/ScribeProject/scribe-core/pkg/helpers/syncutil"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

const (
	// cycleDuration is the nominal length of one effect repetition,
	// used to expire the active-effect report.
	cycleDuration = time.Second

	// DefaultCycles is how many times a triggered effect repeats before
	// the strip goes dark again.
	DefaultCycles = 3
)

// effectNames are the trigger identifiers the configuration understands.
// The strip driver maps them to whatever animation it implements.
var effectNames = map[string]struct{}{
	"chase_single": {},
	"chase_multi":  {},
	"pulse":        {},
	"rainbow":      {},
	"matrix":       {},
	"twinkle":      {},
}

// Strip is the output device driver. Start replaces whatever the strip
// is currently showing; Stop darkens it. Implementations must not block.
type Strip interface {
	Start(effect string, cycles int) error
	Stop() error
	Close() error
}

// NopStrip ignores everything, for devices without LEDs fitted.
type NopStrip struct{}

func (NopStrip) Start(string, int) error { return nil }
func (NopStrip) Stop() error             { return nil }
func (NopStrip) Close() error            { return nil }

// Engine owns the strip and runs at most one effect at a time.
type Engine struct {
	strip Strip
	clock clockwork.Clock

	mu     syncutil.Mutex
	active string
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewEngine builds an engine. A nil strip gets a NopStrip; a nil clock
// gets the real one.
func NewEngine(strip Strip, clock clockwork.Clock) *Engine {
	if strip == nil {
		strip = NopStrip{}
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Engine{strip: strip, clock: clock}
}

// Known reports whether an effect name is a valid trigger identifier.
func (e *Engine) Known(effect string) bool {
	_, ok := effectNames[strings.ToLower(effect)]
	return ok
}

// Effects returns the trigger identifiers, sorted.
func (e *Engine) Effects() []string {
	names := make([]string, 0, len(effectNames))
	for name := range effectNames {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Active returns the name of the running effect, or "".
func (e *Engine) Active() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.active
}

// Trigger starts an effect with the default cycle count. Unknown names
// are logged and dropped; the caller never blocks either way.
func (e *Engine) Trigger(effect string) {
	e.TriggerCycles(effect, DefaultCycles)
}

// TriggerCycles starts an effect for a number of cycles, replacing any
// running effect. cycles <= 0 runs until replaced or stopped.
func (e *Engine) TriggerCycles(effect string, cycles int) bool {
	name := strings.ToLower(effect)
	if !e.Known(name) {
		log.Warn().
			Str("component", "leds").
			Str("effect", effect).
			Msg("unknown led effect")
		return false
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.stopLocked()

	if err := e.strip.Start(name, cycles); err != nil {
		log.Warn().
			Err(err).
			Str("component", "leds").
			Str("effect", name).
			Msg("strip start failed")
		return false
	}
	e.active = name

	if cycles > 0 {
		ctx, cancel := context.WithCancel(context.Background())
		e.cancel = cancel
		e.wg.Add(1)
		go e.expire(ctx, name, time.Duration(cycles)*cycleDuration)
	}
	return true
}

// Stop halts the running effect and darkens the strip.
func (e *Engine) Stop() {
	e.mu.Lock()
	e.stopLocked()
	if err := e.strip.Stop(); err != nil {
		log.Debug().Err(err).Str("component", "leds").Msg("strip stop failed")
	}
	e.mu.Unlock()
	e.wg.Wait()
}

// Close stops the engine and releases the strip.
func (e *Engine) Close() error {
	e.Stop()
	return e.strip.Close()
}

func (e *Engine) stopLocked() {
	if e.cancel != nil {
		e.cancel()
		e.cancel = nil
	}
	e.active = ""
}

// expire clears the active-effect report once the effect has run its
// cycles, and darkens the strip so a finished effect doesn't linger.
func (e *Engine) expire(ctx context.Context, name string, d time.Duration) {
	defer e.wg.Done()

	select {
	case <-ctx.Done():
		return
	case <-e.clock.After(d):
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	// A replacement cancels under the lock, so a late timer fire for a
	// superseded run of the same effect name is still detectable here.
	if ctx.Err() != nil || e.active != name {
		return
	}
	e.active = ""
	e.cancel = nil
	if err := e.strip.Stop(); err != nil {
		log.Debug().Err(err).Str("component", "leds").Msg("strip stop failed")
	}
}
