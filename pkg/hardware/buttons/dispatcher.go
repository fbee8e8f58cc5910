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
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ScribeProject/scribe-core/pkg/config"
	"github.com/ScribeProject/scribe-core/pkg/content"
	"github.com/ScribeProject/scribe-core/pkg/service/mailbox"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

// contentTimeout bounds how long one press may spend resolving content.
const contentTimeout = 3 * time.Second

var (
	ErrRateLimited = errors.New("button press rate limited")
	ErrBusy        = errors.New("button action already running")
)

// ContentResolver resolves an action name into printable content.
type ContentResolver interface {
	Resolve(ctx context.Context, action string) (content.Content, error)
}

// MessagePrinter prints a finished message. Implemented by the printer
// driver.
type MessagePrinter interface {
	PrintWithHeader(header, body string) error
}

// Publisher delivers content to a remote device instead of the local
// printer. May be absent when MQTT is not configured.
type Publisher interface {
	Publish(topic, header, body string) error
}

// LedTrigger fires a visual effect. Implementations must return
// immediately; the effect runs on its own goroutine.
type LedTrigger interface {
	Trigger(effect string)
}

// rateState is the sliding-window rate limiter for one button. It is
// only touched from Dispatch, which the scanner calls from a single
// goroutine.
type rateState struct {
	lastPress   time.Time
	windowStart time.Time
	count       int
}

// ActionDispatcher turns classified press events into content lookups and
// print or publish operations. At most one action runs at a time; presses
// arriving while one is in flight are rejected outright, never queued, so
// a stuck content API cannot build a backlog of surprise printouts.
type ActionDispatcher struct {
	cfg      *config.Instance
	clock    clockwork.Clock
	resolver ContentResolver
	printer  MessagePrinter
	mailbox  *mailbox.Mailbox
	leds     LedTrigger
	pub      Publisher

	rates      []rateState
	resolveTTL time.Duration
	inFlight   atomic.Bool
	wg         sync.WaitGroup
}

// NewActionDispatcher wires a dispatcher. leds and pub may be nil.
func NewActionDispatcher(
	cfg *config.Instance,
	resolver ContentResolver,
	printer MessagePrinter,
	mb *mailbox.Mailbox,
	leds LedTrigger,
	pub Publisher,
	clock clockwork.Clock,
) *ActionDispatcher {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &ActionDispatcher{
		cfg:        cfg,
		clock:      clock,
		resolver:   resolver,
		printer:    printer,
		mailbox:    mb,
		leds:       leds,
		pub:        pub,
		rates:      make([]rateState, len(cfg.Buttons().Entries)),
		resolveTTL: contentTimeout,
	}
}

// SetResolveTimeout overrides the content resolve deadline, for tests.
func (d *ActionDispatcher) SetResolveTimeout(ttl time.Duration) {
	d.resolveTTL = ttl
}

// Dispatch handles one press event. It checks the rate limit, claims the
// single in-flight slot, and hands the slow work (content fetch, print or
// publish) to a goroutine so the caller's scan loop never blocks. A press
// that cannot run right now is dropped with an error, never queued.
func (d *ActionDispatcher) Dispatch(buttonIndex int, longPress bool) error {
	btn, ok := d.cfg.Button(buttonIndex)
	if !ok {
		return fmt.Errorf("no such button: %d", buttonIndex)
	}

	action, topic, effect := pressParams(btn, longPress)
	if action == "" {
		// No action bound to this press type.
		return nil
	}

	if d.rateLimited(buttonIndex) {
		log.Warn().
			Str("component", "buttons").
			Int("button", buttonIndex).
			Str("action", action).
			Msg("press rejected by rate limit")
		return ErrRateLimited
	}
	// A press that clears the rate check has spent its budget, even if
	// the busy check below rejects it.
	d.recordPress(buttonIndex)

	if !d.inFlight.CompareAndSwap(false, true) {
		log.Warn().
			Str("component", "buttons").
			Int("button", buttonIndex).
			Str("action", action).
			Msg("press rejected, another action is running")
		return ErrBusy
	}

	log.Info().
		Str("component", "buttons").
		Int("button", buttonIndex).
		Bool("long_press", longPress).
		Str("action", action).
		Msg("dispatching button action")

	d.wg.Add(1)
	go d.run(action, topic, effect)
	return nil
}

// Wait blocks until any in-flight action finishes. Used by shutdown and
// tests.
func (d *ActionDispatcher) Wait() {
	d.wg.Wait()
}

func (d *ActionDispatcher) run(action, topic, effect string) {
	defer d.wg.Done()
	defer d.inFlight.Store(false)

	if d.leds != nil && effect != "" {
		d.leds.Trigger(effect)
	}

	ctx, cancel := context.WithTimeout(context.Background(), d.resolveTTL)
	defer cancel()

	c, err := d.resolver.Resolve(ctx, action)
	if err != nil {
		log.Error().
			Err(err).
			Str("component", "buttons").
			Str("action", action).
			Msg("content resolve failed, nothing printed")
		return
	}

	if topic != "" && d.pub != nil {
		if err := d.pub.Publish(topic, c.Header, c.Body); err != nil {
			log.Error().
				Err(err).
				Str("component", "buttons").
				Str("topic", topic).
				Msg("publish failed")
		}
		return
	}

	body := c.Header
	if c.Body != "" {
		body = c.Header + "\n\n" + c.Body
	}
	stamp := mailbox.FormatTimestamp(d.clock.Now())
	d.mailbox.Set(stamp, body, false)

	if err := d.printer.PrintWithHeader(stamp, body); err != nil {
		log.Error().
			Err(err).
			Str("component", "buttons").
			Str("action", action).
			Msg("print failed")
	}
}

// rateLimited applies the per-button minimum interval and the sliding
// window cap.
func (d *ActionDispatcher) rateLimited(idx int) bool {
	if idx >= len(d.rates) {
		return false
	}
	btns := d.cfg.Buttons()
	now := d.clock.Now()
	rs := &d.rates[idx]

	minInterval := time.Duration(btns.MinIntervalMs) * time.Millisecond
	if !rs.lastPress.IsZero() && now.Sub(rs.lastPress) < minInterval {
		return true
	}

	window := time.Duration(btns.RateLimitWindowMs) * time.Millisecond
	if rs.windowStart.IsZero() || now.Sub(rs.windowStart) >= window {
		rs.windowStart = now
		rs.count = 0
	}
	return rs.count >= btns.MaxPerWindow
}

func (d *ActionDispatcher) recordPress(idx int) {
	if idx >= len(d.rates) {
		return
	}
	rs := &d.rates[idx]
	rs.lastPress = d.clock.Now()
	rs.count++
}

func pressParams(btn config.Button, longPress bool) (action, topic, effect string) {
	if longPress {
		return btn.LongAction, btn.LongMQTTTopic, btn.LongLedEffect
	}
	return btn.ShortAction, btn.ShortMQTTTopic, btn.ShortLedEffect
}
