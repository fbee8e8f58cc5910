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
	"fmt"
	"math/rand/v2"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"
)

const defaultDiceSides = 6

// MemoProvider serves one stored memo slot, expanding placeholders at
// resolve time so every print rolls its own dice. Recognized
// placeholders: [date] [time] [weekday] [uptime] [ip] [mdns] [coin]
// [dice] [dice:N] [pick:a|b|c]. Unknown ones print as written.
type MemoProvider struct {
	slot       int
	text       func() string
	deviceName func() string
	clock      clockwork.Clock
	started    time.Time
	randN      func(n int) int
}

// NewMemoProvider builds a provider for a 1-based memo slot. text reads
// the current memo body (live from config); deviceName feeds the [mdns]
// placeholder. [uptime] counts from construction.
func NewMemoProvider(slot int, text, deviceName func() string, clock clockwork.Clock) *MemoProvider {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &MemoProvider{
		slot:       slot,
		text:       text,
		deviceName: deviceName,
		clock:      clock,
		started:    clock.Now(),
		randN:      rand.IntN,
	}
}

// Resolve implements Resolver.
func (p *MemoProvider) Resolve(_ context.Context) (Content, error) {
	memo := p.text()
	if strings.TrimSpace(memo) == "" {
		return Content{}, fmt.Errorf("memo %d is empty: %w", p.slot, ErrNoContent)
	}
	return Content{
		Header: fmt.Sprintf("MEMO %d", p.slot),
		Body:   p.expandAll(memo),
	}, nil
}

// expandAll replaces bracketed placeholders one at a time, scanning
// forward past each replacement so an expansion is never re-expanded.
func (p *MemoProvider) expandAll(memo string) string {
	result := memo
	pos := 0
	for {
		open := strings.IndexByte(result[pos:], '[')
		if open == -1 {
			break
		}
		open += pos
		closing := strings.IndexByte(result[open:], ']')
		if closing == -1 {
			break
		}
		closing += open

		expanded := p.expand(result[open+1 : closing])
		result = result[:open] + expanded + result[closing+1:]
		pos = open + len(expanded)
	}
	return result
}

func (p *MemoProvider) expand(inner string) string {
	key := strings.ToLower(inner)
	now := p.clock.Now()

	switch {
	case key == "date":
		return now.Format("02Jan06")
	case key == "time":
		return now.Format("15:04")
	case key == "weekday":
		return now.Format("Monday")
	case key == "uptime":
		up := now.Sub(p.started)
		return fmt.Sprintf("%dh%dm", int(up.Hours()), int(up.Minutes())%60)
	case key == "ip":
		return localIP()
	case key == "mdns":
		return p.deviceName() + ".local"
	case key == "coin":
		if p.randN(2) == 0 {
			return "Heads"
		}
		return "Tails"
	case key == "dice":
		return strconv.Itoa(1 + p.randN(defaultDiceSides))
	case strings.HasPrefix(key, "dice:"):
		sides, err := strconv.Atoi(key[len("dice:"):])
		if err != nil || sides <= 0 {
			sides = defaultDiceSides
		}
		return strconv.Itoa(1 + p.randN(sides))
	case strings.HasPrefix(key, "pick:"):
		return p.pickOption(key[len("pick:"):])
	}
	// Unknown placeholder, leave it visible as written.
	return "[" + inner + "]"
}

func (p *MemoProvider) pickOption(options string) string {
	if options == "" {
		return "???"
	}
	parts := strings.Split(options, "|")
	return parts[p.randN(len(parts))]
}

// localIP finds the device's first global unicast IPv4 address, for the
// [ip] placeholder.
func localIP() string {
	addrs, err := net.InterfaceAddrs()
	if err != nil {
		return "Not Connected"
	}
	for _, addr := range addrs {
		ipNet, ok := addr.(*net.IPNet)
		if !ok || ipNet.IP.IsLoopback() {
			continue
		}
		if v4 := ipNet.IP.To4(); v4 != nil {
			return v4.String()
		}
	}
	return "Not Connected"
}
