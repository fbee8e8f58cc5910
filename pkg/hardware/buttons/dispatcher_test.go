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
	"sync"
	"testing"
	"time"

	"github.com/ScribeProject/scribe-core/pkg/config"
	"github.com/ScribeProject/scribe-core/pkg/content"
	"github.com/ScribeProject/scribe-core/pkg/service/mailbox"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeResolver struct {
	mu      sync.Mutex
	block   chan struct{} // when set, Resolve waits on it
	calls   []string
	content content.Content
	err     error
}

func (r *fakeResolver) Resolve(ctx context.Context, action string) (content.Content, error) {
	r.mu.Lock()
	r.calls = append(r.calls, action)
	block := r.block
	r.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return content.Content{}, ctx.Err()
		}
	}
	return r.content, r.err
}

func (r *fakeResolver) callCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.calls)
}

type fakePrinter struct {
	mu     sync.Mutex
	prints []string
}

func (p *fakePrinter) PrintWithHeader(header, body string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.prints = append(p.prints, header+"|"+body)
	return nil
}

func (p *fakePrinter) all() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.prints...)
}

type fakeMQTT struct {
	mu        sync.Mutex
	published []string
}

func (m *fakeMQTT) Publish(topic, header, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.published = append(m.published, topic+"|"+header+"|"+body)
	return nil
}

type fakeLeds struct {
	mu      sync.Mutex
	effects []string
}

func (l *fakeLeds) Trigger(effect string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.effects = append(l.effects, effect)
}

func dispatcherConfig(t *testing.T, buttons config.Buttons) *config.Instance {
	t.Helper()
	vals := config.BaseDefaults
	vals.Buttons = buttons
	cfg, err := config.NewConfig(t.TempDir(), vals)
	require.NoError(t, err)
	return cfg
}

func baseButtons() config.Buttons {
	return config.Buttons{
		Chip:              "gpiochip0",
		ActiveLow:         true,
		DebounceMs:        50,
		LongPressMs:       400,
		MinIntervalMs:     1000,
		RateLimitWindowMs: 60000,
		MaxPerWindow:      10,
		Entries: []config.Button{
			{Gpio: 5, ShortAction: "joke", LongAction: "quote", ShortLedEffect: "chase"},
			{Gpio: 6, ShortAction: "poke", ShortMQTTTopic: "scribe/other/inbox"},
		},
	}
}

func TestDispatchPrintsLocally(t *testing.T) {
	t.Parallel()

	cfg := dispatcherConfig(t, baseButtons())
	resolver := &fakeResolver{content: content.Content{Header: "JOKE", Body: "Why not?"}}
	printer := &fakePrinter{}
	leds := &fakeLeds{}
	mb := mailbox.New()
	clk := clockwork.NewFakeClockAt(time.Date(2026, 8, 24, 9, 30, 0, 0, time.UTC))

	d := NewActionDispatcher(cfg, resolver, printer, mb, leds, nil, clk)
	require.NoError(t, d.Dispatch(0, false))
	d.Wait()

	require.Equal(t, []string{"joke"}, resolver.calls)
	prints := printer.all()
	require.Len(t, prints, 1)
	assert.Equal(t, "Mon 24 Aug 2026 09:30|JOKE\n\nWhy not?", prints[0])
	assert.Equal(t, []string{"chase"}, leds.effects)

	// The result also lands in the mailbox for the web UI to show.
	assert.Equal(t, "JOKE\n\nWhy not?", mb.Snapshot().Body)
	assert.False(t, mb.PendingLocal(), "already printed, must not print again")
}

func TestDispatchLongPressUsesLongAction(t *testing.T) {
	t.Parallel()

	cfg := dispatcherConfig(t, baseButtons())
	resolver := &fakeResolver{content: content.Content{Header: "QUOTE", Body: "Be."}}
	printer := &fakePrinter{}

	d := NewActionDispatcher(cfg, resolver, printer, mailbox.New(), nil, nil, clockwork.NewFakeClock())
	require.NoError(t, d.Dispatch(0, true))
	d.Wait()

	assert.Equal(t, []string{"quote"}, resolver.calls)
}

func TestDispatchPublishesWhenTopicSet(t *testing.T) {
	t.Parallel()

	cfg := dispatcherConfig(t, baseButtons())
	resolver := &fakeResolver{content: content.Content{Header: "POKE"}}
	printer := &fakePrinter{}
	pub := &fakeMQTT{}

	d := NewActionDispatcher(cfg, resolver, printer, mailbox.New(), nil, pub, clockwork.NewFakeClock())
	require.NoError(t, d.Dispatch(1, false))
	d.Wait()

	assert.Equal(t, []string{"scribe/other/inbox|POKE|"}, pub.published)
	assert.Empty(t, printer.all(), "published content must not also print locally")
}

func TestDispatchUnboundPressIsNoop(t *testing.T) {
	t.Parallel()

	cfg := dispatcherConfig(t, baseButtons())
	resolver := &fakeResolver{}

	d := NewActionDispatcher(cfg, resolver, &fakePrinter{}, mailbox.New(), nil, nil, clockwork.NewFakeClock())
	require.NoError(t, d.Dispatch(1, true)) // button 1 has no long action
	d.Wait()

	assert.Zero(t, resolver.callCount())
}

func TestDispatchRejectsWhileBusy(t *testing.T) {
	t.Parallel()

	buttons := baseButtons()
	buttons.MinIntervalMs = 0
	cfg := dispatcherConfig(t, buttons)

	block := make(chan struct{})
	resolver := &fakeResolver{
		block:   block,
		content: content.Content{Header: "JOKE", Body: "slow"},
	}
	printer := &fakePrinter{}

	d := NewActionDispatcher(cfg, resolver, printer, mailbox.New(), nil, nil, clockwork.NewFakeClock())
	require.NoError(t, d.Dispatch(0, false))

	// A second press while the first is still resolving is rejected, not
	// queued.
	err := d.Dispatch(0, false)
	require.ErrorIs(t, err, ErrBusy)

	close(block)
	d.Wait()
	assert.Len(t, printer.all(), 1, "rejected press must never print later")

	// With the slot free again, the next press runs.
	resolver.block = nil
	require.NoError(t, d.Dispatch(0, false))
	d.Wait()
	assert.Len(t, printer.all(), 2)
}

func TestDispatchBusyPressConsumesRateBudget(t *testing.T) {
	t.Parallel()

	cfg := dispatcherConfig(t, baseButtons()) // min_interval_ms = 1000

	block := make(chan struct{})
	resolver := &fakeResolver{
		block:   block,
		content: content.Content{Header: "JOKE", Body: "slow"},
	}
	clk := clockwork.NewFakeClock()

	d := NewActionDispatcher(cfg, resolver, &fakePrinter{}, mailbox.New(), nil, nil, clk)
	require.NoError(t, d.Dispatch(0, false))

	// Past the minimum interval but still busy: rejected, yet the press
	// spends rate budget like an admitted one.
	clk.Advance(1200 * time.Millisecond)
	require.ErrorIs(t, d.Dispatch(0, false), ErrBusy)

	close(block)
	d.Wait()

	// 800ms after the busy press is still inside its minimum interval.
	clk.Advance(800 * time.Millisecond)
	require.ErrorIs(t, d.Dispatch(0, false), ErrRateLimited)

	clk.Advance(300 * time.Millisecond)
	require.NoError(t, d.Dispatch(0, false))
	d.Wait()
	assert.Equal(t, 2, resolver.callCount())
}

func TestDispatchMinIntervalRateLimit(t *testing.T) {
	t.Parallel()

	cfg := dispatcherConfig(t, baseButtons()) // min_interval_ms = 1000
	resolver := &fakeResolver{content: content.Content{Header: "JOKE", Body: "x"}}
	clk := clockwork.NewFakeClock()

	d := NewActionDispatcher(cfg, resolver, &fakePrinter{}, mailbox.New(), nil, nil, clk)
	require.NoError(t, d.Dispatch(0, false))
	d.Wait()

	// 300ms later: inside the minimum interval.
	clk.Advance(300 * time.Millisecond)
	require.ErrorIs(t, d.Dispatch(0, false), ErrRateLimited)

	// Past the interval the press goes through.
	clk.Advance(800 * time.Millisecond)
	require.NoError(t, d.Dispatch(0, false))
	d.Wait()
	assert.Equal(t, 2, resolver.callCount())
}

func TestDispatchWindowRateLimit(t *testing.T) {
	t.Parallel()

	buttons := baseButtons()
	buttons.MinIntervalMs = 0
	buttons.MaxPerWindow = 2
	cfg := dispatcherConfig(t, buttons)

	resolver := &fakeResolver{content: content.Content{Header: "JOKE", Body: "x"}}
	clk := clockwork.NewFakeClock()

	d := NewActionDispatcher(cfg, resolver, &fakePrinter{}, mailbox.New(), nil, nil, clk)
	for range 2 {
		require.NoError(t, d.Dispatch(0, false))
		d.Wait()
		clk.Advance(time.Second)
	}
	require.ErrorIs(t, d.Dispatch(0, false), ErrRateLimited)

	// A fresh window resets the count.
	clk.Advance(61 * time.Second)
	require.NoError(t, d.Dispatch(0, false))
	d.Wait()
	assert.Equal(t, 3, resolver.callCount())
}

func TestDispatchContentTimeout(t *testing.T) {
	t.Parallel()

	buttons := baseButtons()
	buttons.MinIntervalMs = 0
	cfg := dispatcherConfig(t, buttons)

	// Resolver that never returns on its own: only ctx expiry frees it.
	resolver := &fakeResolver{block: make(chan struct{})}
	printer := &fakePrinter{}

	d := NewActionDispatcher(cfg, resolver, printer, mailbox.New(), nil, nil, nil)
	d.SetResolveTimeout(100 * time.Millisecond)
	require.NoError(t, d.Dispatch(0, false))
	d.Wait()

	assert.Empty(t, printer.all(), "timed-out resolve must not print")

	// The in-flight slot was released despite the failure.
	require.NoError(t, d.Dispatch(1, false))
	d.Wait()
}

func TestDispatchUnknownButton(t *testing.T) {
	t.Parallel()

	cfg := dispatcherConfig(t, baseButtons())
	d := NewActionDispatcher(cfg, &fakeResolver{}, &fakePrinter{}, mailbox.New(), nil, nil, clockwork.NewFakeClock())
	require.Error(t, d.Dispatch(7, false))
}
