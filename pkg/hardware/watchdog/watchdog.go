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

// Package watchdog reports liveness to the platform supervisor. Slow paths
// (lock waits, hardware settling delays, print operations) feed the watchdog
// so the supervisor does not restart the process mid-operation.
package watchdog

import (
	"net"
	"os"

	"github.com/rs/zerolog/log"
)

// Notifier receives liveness pings from slow or blocking code paths.
type Notifier interface {
	Feed()
}

// Nop is a Notifier that does nothing, for tests and unsupervised runs.
type Nop struct{}

func (Nop) Feed() {}

// Systemd feeds the systemd watchdog via the NOTIFY_SOCKET protocol.
type Systemd struct {
	conn net.Conn
}

// NewSystemd connects to the socket in NOTIFY_SOCKET. If the variable is
// unset the process is not supervised and a Nop notifier is returned.
func NewSystemd() Notifier {
	path := os.Getenv("NOTIFY_SOCKET")
	if path == "" {
		return Nop{}
	}

	conn, err := net.Dial("unixgram", path)
	if err != nil {
		log.Warn().Err(err).Msg("watchdog: NOTIFY_SOCKET set but unreachable")
		return Nop{}
	}

	log.Info().Str("socket", path).Msg("watchdog: systemd notifier active")
	return &Systemd{conn: conn}
}

// Feed sends a single watchdog keepalive. Failures are logged and ignored;
// a missed ping is recoverable, a blocked caller is not.
func (s *Systemd) Feed() {
	if _, err := s.conn.Write([]byte("WATCHDOG=1")); err != nil {
		log.Warn().Err(err).Msg("watchdog: keepalive failed")
	}
}

// Ready tells the supervisor startup has completed.
func (s *Systemd) Ready() {
	if _, err := s.conn.Write([]byte("READY=1")); err != nil {
		log.Warn().Err(err).Msg("watchdog: ready notification failed")
	}
}
