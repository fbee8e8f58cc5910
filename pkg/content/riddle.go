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
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"strings"

	_ "embed"

	"github.com/rs/zerolog/log"
)

//go:embed riddles.ndjson
var riddlesRaw []byte

type riddle struct {
	Riddle string `json:"riddle"`
	Answer string `json:"answer"`
}

// RiddleProvider serves a random riddle from the embedded collection. No
// network involved, so it works offline. The answer is printed reversed,
// gap above it for thinking room, same trick as the quiz.
type RiddleProvider struct {
	riddles []riddle
	randN   func(n int) int
}

// NewRiddleProvider parses the embedded riddle collection. Malformed
// lines are skipped with a log entry rather than failing the provider.
func NewRiddleProvider() *RiddleProvider {
	p := &RiddleProvider{randN: rand.IntN}
	scanner := bufio.NewScanner(bytes.NewReader(riddlesRaw))
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var r riddle
		if err := json.Unmarshal([]byte(line), &r); err != nil {
			log.Warn().
				Err(err).
				Int("line", lineNo).
				Msg("skipping malformed riddle")
			continue
		}
		if r.Riddle == "" || r.Answer == "" {
			continue
		}
		p.riddles = append(p.riddles, r)
	}
	return p
}

// Count returns the number of usable riddles.
func (p *RiddleProvider) Count() int {
	return len(p.riddles)
}

// Resolve implements Resolver.
func (p *RiddleProvider) Resolve(_ context.Context) (Content, error) {
	if len(p.riddles) == 0 {
		return Content{}, ErrNoContent
	}
	idx := p.randN(len(p.riddles))
	r := p.riddles[idx]

	body := fmt.Sprintf("#%d\n\n%s\n\n\n\n\n\nAnswer: %s",
		idx+1, r.Riddle, reverseString(r.Answer))
	return Content{Header: "RIDDLE", Body: body}, nil
}
