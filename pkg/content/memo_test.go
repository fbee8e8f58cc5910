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

package content

import (
	"context"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func memoProvider(t *testing.T, text string) (*MemoProvider, *clockwork.FakeClock) {
	t.Helper()
	clk := clockwork.NewFakeClockAt(time.Date(2026, 8, 24, 9, 30, 0, 0, time.UTC))
	p := NewMemoProvider(
		2,
		func() string { return text },
		func() string { return "scribe" },
		clk,
	)
	return p, clk
}

func TestMemoResolveHeaderAndBody(t *testing.T) {
	t.Parallel()

	p, _ := memoProvider(t, "Feed the cat")
	c, err := p.Resolve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "MEMO 2", c.Header)
	assert.Equal(t, "Feed the cat", c.Body)
}

func TestMemoEmptySlot(t *testing.T) {
	t.Parallel()

	p, _ := memoProvider(t, "  ")
	_, err := p.Resolve(context.Background())
	require.ErrorIs(t, err, ErrNoContent)
}

func TestMemoDateTimeWeekday(t *testing.T) {
	t.Parallel()

	p, _ := memoProvider(t, "[weekday] [date] at [time]")
	c, err := p.Resolve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Monday 24Aug26 at 09:30", c.Body)
}

func TestMemoUptimeCountsFromStart(t *testing.T) {
	t.Parallel()

	p, clk := memoProvider(t, "up [uptime]")
	clk.Advance(2*time.Hour + 13*time.Minute)

	c, err := p.Resolve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "up 2h13m", c.Body)
}

func TestMemoCoinDicePick(t *testing.T) {
	t.Parallel()

	p, _ := memoProvider(t, "Flip: [coin], roll: [dice:20], choice: [pick:A|B|C]")
	p.randN = func(int) int { return 0 }

	c, err := p.Resolve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Flip: Heads, roll: 1, choice: a", c.Body)
}

func TestMemoDiceDefaultsAndBadSides(t *testing.T) {
	t.Parallel()

	p, _ := memoProvider(t, "[dice] [dice:0] [dice:x]")
	p.randN = func(n int) int { return n - 1 }

	c, err := p.Resolve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "6 6 6", c.Body)
}

func TestMemoPickEmptyOptions(t *testing.T) {
	t.Parallel()

	p, _ := memoProvider(t, "[pick:]")
	c, err := p.Resolve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "???", c.Body)
}

func TestMemoMdnsUsesDeviceName(t *testing.T) {
	t.Parallel()

	p, _ := memoProvider(t, "find me at [mdns]")
	c, err := p.Resolve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "find me at scribe.local", c.Body)
}

func TestMemoUnknownPlaceholderKept(t *testing.T) {
	t.Parallel()

	p, _ := memoProvider(t, "Unknown: [does_not_exist]")
	c, err := p.Resolve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Unknown: [does_not_exist]", c.Body)
}

func TestMemoUnclosedBracketLeftAlone(t *testing.T) {
	t.Parallel()

	p, _ := memoProvider(t, "Malformed: [no_closing and more")
	c, err := p.Resolve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Malformed: [no_closing and more", c.Body)
}

func TestMemoExpansionNotReExpanded(t *testing.T) {
	t.Parallel()

	// The picked option contains a bracket pair; the scan moves past the
	// replacement, so only text after it is considered again.
	p, _ := memoProvider(t, "[pick:[date]] [coin]")
	p.randN = func(int) int { return 0 }

	c, err := p.Resolve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "[date] Heads", c.Body)
}
