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

package watchdog

import (
	"net"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSystemd_NoSocketIsNop(t *testing.T) {
	t.Setenv("NOTIFY_SOCKET", "")

	n := NewSystemd()
	assert.IsType(t, Nop{}, n)

	// Must be safe to call.
	n.Feed()
}

func TestSystemd_FeedSendsKeepalive(t *testing.T) {
	sockPath := filepath.Join(t.TempDir(), "notify.sock")

	addr, err := net.ResolveUnixAddr("unixgram", sockPath)
	require.NoError(t, err)
	server, err := net.ListenUnixgram("unixgram", addr)
	require.NoError(t, err)
	defer func() { _ = server.Close() }()

	t.Setenv("NOTIFY_SOCKET", sockPath)

	n := NewSystemd()
	require.IsType(t, &Systemd{}, n)

	n.Feed()

	require.NoError(t, server.SetReadDeadline(time.Now().Add(2*time.Second)))
	buf := make([]byte, 64)
	readLen, err := server.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, "WATCHDOG=1", string(buf[:readLen]))
}
