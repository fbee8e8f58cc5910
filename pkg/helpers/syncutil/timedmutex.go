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

package syncutil

import (
	"errors"
	"sync"
	"time"
)

// ErrLockTimeout is returned by TimedMutex.Acquire when the lock could not
// be taken within the given timeout. No lock is held when it is returned,
// so the caller can safely abort.
var ErrLockTimeout = errors.New("timed out waiting for lock")

// TimedMutex is a mutual exclusion lock with bounded-wait acquisition. It
// serializes access to a contended hardware resource where a caller must be
// able to give up rather than wait forever.
//
// The zero value is not usable; create one with NewTimedMutex.
type TimedMutex struct {
	sem chan struct{}
}

// NewTimedMutex returns an unlocked TimedMutex.
func NewTimedMutex() *TimedMutex {
	return &TimedMutex{sem: make(chan struct{}, 1)}
}

// Acquire blocks until the lock is taken or timeout elapses. On success it
// returns a Guard whose Release method unlocks the mutex; callers should
// defer Release immediately so the lock is dropped on every exit path.
// There is no fairness guarantee between concurrent waiters.
func (m *TimedMutex) Acquire(timeout time.Duration) (*Guard, error) {
	select {
	case m.sem <- struct{}{}:
		return &Guard{m: m}, nil
	default:
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case m.sem <- struct{}{}:
		return &Guard{m: m}, nil
	case <-timer.C:
		return nil, ErrLockTimeout
	}
}

// A Guard represents a held TimedMutex. Release is idempotent.
type Guard struct {
	m    *TimedMutex
	once sync.Once
}

// Release unlocks the mutex. Calling it more than once is a no-op.
func (g *Guard) Release() {
	g.once.Do(func() {
		<-g.m.sem
	})
}
