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

package mailbox

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSetAndSnapshot(t *testing.T) {
	t.Parallel()

	mb := New()
	mb.Set("12:00 Mon 01 Jan", "hello", true)

	msg := mb.Snapshot()
	assert.Equal(t, "12:00 Mon 01 Jan", msg.Timestamp)
	assert.Equal(t, "hello", msg.Body)
	assert.True(t, msg.PrintLocal)
}

func TestSetReplacesPrevious(t *testing.T) {
	t.Parallel()

	mb := New()
	mb.Set("first", "one", true)
	mb.Set("second", "two", false)

	msg := mb.Snapshot()
	assert.Equal(t, "second", msg.Timestamp)
	assert.Equal(t, "two", msg.Body)
	assert.False(t, msg.PrintLocal)
}

func TestTakeLocalClearsFlag(t *testing.T) {
	t.Parallel()

	mb := New()
	mb.Set("ts", "body", true)

	msg, ok := mb.TakeLocal()
	assert.True(t, ok)
	assert.Equal(t, "body", msg.Body)
	assert.True(t, msg.PrintLocal)

	_, ok = mb.TakeLocal()
	assert.False(t, ok, "second take must find nothing pending")

	// The message itself is retained for inspection.
	assert.Equal(t, "body", mb.Snapshot().Body)
	assert.False(t, mb.PendingLocal())
}

func TestTakeLocalEmpty(t *testing.T) {
	t.Parallel()

	mb := New()
	_, ok := mb.TakeLocal()
	assert.False(t, ok)
}

func TestConcurrentSetters(t *testing.T) {
	t.Parallel()

	mb := New()
	var wg sync.WaitGroup
	for i := range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			mb.Set(fmt.Sprintf("ts-%d", i), fmt.Sprintf("body-%d", i), true)
		}()
	}
	wg.Wait()

	// Whichever write landed last, timestamp and body agree.
	msg := mb.Snapshot()
	assert.Equal(t, msg.Timestamp[3:], msg.Body[5:])
}
