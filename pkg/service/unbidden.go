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

package service

import (
	"context"
	"math/rand/v2"
	"time"

	"github.com/ScribeProject/scribe-core/pkg/config"
	"github.com/ScribeProject/scribe-core/pkg/content"
	"github.com/ScribeProject/scribe-core/pkg/service/mailbox"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

// firstDelayMin/Max bound the delay before the first generated message
// after the scheduler starts, so a reboot produces a quick sign of life.
const (
	firstDelayMin = time.Minute
	firstDelayMax = 2 * time.Minute

	generateTimeout = 30 * time.Second
)

// UnbiddenScheduler prints AI-generated content at roughly the
// configured frequency, jittered ±20%, and only inside working hours.
// A due slot outside working hours is skipped and rescheduled, not
// queued for the morning.
type UnbiddenScheduler struct {
	cfg      *config.Instance
	clock    clockwork.Clock
	mb       *mailbox.Mailbox
	resolver content.Resolver
	randI64  func(min, max int64) int64
}

// NewUnbiddenScheduler builds a scheduler. resolver may be overridden in
// tests; nil builds the real generator from config.
func NewUnbiddenScheduler(cfg *config.Instance, mb *mailbox.Mailbox, clock clockwork.Clock) *UnbiddenScheduler {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	ink := cfg.UnbiddenInk()
	return &UnbiddenScheduler{
		cfg:      cfg,
		clock:    clock,
		mb:       mb,
		resolver: content.NewUnbiddenProvider(ink.Token, ink.Endpoint, ink.Prompt),
		randI64: func(minV, maxV int64) int64 {
			return minV + rand.Int64N(maxV-minV)
		},
	}
}

// Run generates until ctx is cancelled. Returns immediately when the
// feature is disabled in config at start.
func (u *UnbiddenScheduler) Run(ctx context.Context) {
	if !u.cfg.UnbiddenInk().Enabled {
		log.Debug().Str("component", "unbidden").Msg("disabled in config")
		return
	}

	delay := time.Duration(u.randI64(int64(firstDelayMin), int64(firstDelayMax)))
	log.Info().
		Str("component", "unbidden").
		Dur("first_delay", delay).
		Msg("scheduler started")

	for {
		select {
		case <-ctx.Done():
			return
		case <-u.clock.After(delay):
		}

		ink := u.cfg.UnbiddenInk()
		if !ink.Enabled {
			log.Info().Str("component", "unbidden").Msg("disabled by config reload, stopping")
			return
		}

		if u.inWorkingHours(ink) {
			u.generate(ctx)
		} else {
			log.Debug().
				Str("component", "unbidden").
				Int("start_hour", ink.StartHour).
				Int("end_hour", ink.EndHour).
				Msg("outside working hours, slot skipped")
		}
		delay = u.nextDelay(ink)
	}
}

// inWorkingHours checks the local hour against the configured window.
func (u *UnbiddenScheduler) inWorkingHours(ink config.UnbiddenInk) bool {
	hour := u.clock.Now().Local().Hour()
	return hour >= ink.StartHour && hour < ink.EndHour
}

// nextDelay jitters the configured frequency by ±20%.
func (u *UnbiddenScheduler) nextDelay(ink config.UnbiddenInk) time.Duration {
	freq := time.Duration(ink.FrequencyMinutes) * time.Minute
	minD := freq * 80 / 100
	maxD := freq * 120 / 100
	return time.Duration(u.randI64(int64(minD), int64(maxD)))
}

func (u *UnbiddenScheduler) generate(ctx context.Context) {
	genCtx, cancel := context.WithTimeout(ctx, generateTimeout)
	defer cancel()

	c, err := u.resolver.Resolve(genCtx)
	if err != nil {
		log.Error().
			Err(err).
			Str("component", "unbidden").
			Msg("generation failed, will retry next slot")
		return
	}

	body := c.Header + "\n\n" + c.Body
	u.mb.Set(mailbox.FormatTimestamp(u.clock.Now()), body, true)
	log.Info().
		Str("component", "unbidden").
		Int("chars", len(c.Body)).
		Msg("generated message queued")
}
