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

// Package mailbox holds the shared print mailbox: the single channel
// through which every print request (button, API, MQTT, scheduled job)
// reaches the printer driver.
package mailbox

import (
	"time"

	"github.com/ScribeProject/scribe-core/pkg/helpers/syncutil"
)

// FormatTimestamp renders the header stamp printed above every message.
func FormatTimestamp(t time.Time) string {
	return t.Format("Mon 02 Jan 2006 15:04")
}

// Message is one pending print.
type Message struct {
	Timestamp  string
	Body       string
	PrintLocal bool
}

// Mailbox is a mutex-guarded single-message slot. Producers write without
// blocking on the print operation itself; consumers copy the message out
// under the lock and release it before printing, so the slow print never
// holds the mailbox lock.
type Mailbox struct {
	msg Message
	mu  syncutil.Mutex
}

// New returns an empty mailbox.
func New() *Mailbox {
	return &Mailbox{}
}

// Set stores a message, replacing any previous one.
func (m *Mailbox) Set(timestamp, body string, printLocal bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.msg = Message{
		Timestamp:  timestamp,
		Body:       body,
		PrintLocal: printLocal,
	}
}

// Snapshot returns a copy of the current message.
func (m *Mailbox) Snapshot() Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.msg
}

// PendingLocal reports whether a local print is waiting.
func (m *Mailbox) PendingLocal() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.msg.PrintLocal
}

// TakeLocal returns a copy of the current message and clears the
// local-print flag, so the same message is not printed twice. The second
// return is false when no local print was pending.
func (m *Mailbox) TakeLocal() (Message, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.msg.PrintLocal {
		return Message{}, false
	}
	msg := m.msg
	m.msg.PrintLocal = false
	return msg, true
}
