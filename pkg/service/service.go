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

// Package service assembles and runs the device: printer, buttons, LEDs,
// API server, MQTT link, and the scheduled content job, all driven from
// one polling loop.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ScribeProject/scribe-core/pkg/api"
	"github.com/ScribeProject/scribe-core/pkg/config"
	"github.com/ScribeProject/scribe-core/pkg/content"
	"github.com/ScribeProject/scribe-core/pkg/hardware/buttons"
	"github.com/ScribeProject/scribe-core/pkg/hardware/printer"
	"github.com/ScribeProject/scribe-core/pkg/hardware/watchdog"
	"github.com/ScribeProject/scribe-core/pkg/leds"
	"github.com/ScribeProject/scribe-core/pkg/mqtt"
	"github.com/ScribeProject/scribe-core/pkg/service/mailbox"
	"github.com/ScribeProject/scribe-core/pkg/shared/httpclient"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

const (
	// scanInterval is how often button lines are sampled. 10ms resolves
	// the 50ms default debounce comfortably.
	scanInterval = 10 * time.Millisecond

	// feedInterval paces watchdog feeds; the systemd timeout should be
	// several multiples of this.
	feedInterval = time.Second
)

// Service owns every runtime component.
type Service struct {
	cfg        *config.Instance
	clock      clockwork.Clock
	wdt        watchdog.Notifier
	printer    *printer.Printer
	scanner    *buttons.Scanner
	dispatcher *buttons.ActionDispatcher
	mb         *mailbox.Mailbox
	registry   *content.Registry
	leds       *leds.Engine
	mqttClient *mqtt.Client
	apiServer  *api.Server
}

// New assembles the service from configuration. Hardware is not touched
// until Run.
func New(cfg *config.Instance, clock clockwork.Clock) *Service {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	wdt := watchdog.NewSystemd()
	mb := mailbox.New()
	registry := content.NewRegistry(httpclient.NewClient())

	// Config-backed actions join the stock registry so buttons and the
	// API can reach them by name.
	ink := cfg.UnbiddenInk()
	registry.Register("unbidden_ink", content.NewUnbiddenProvider(ink.Token, ink.Endpoint, ink.Prompt))
	for slot := 1; slot <= config.MemoCount; slot++ {
		registry.Register(
			fmt.Sprintf("memo%d", slot),
			content.NewMemoProvider(slot, memoText(cfg, slot), cfg.DeviceName, clock),
		)
	}

	ledEngine := leds.NewEngine(nil, clock)
	prn := printer.New(cfg, clock, wdt)

	s := &Service{
		cfg:      cfg,
		clock:    clock,
		wdt:      wdt,
		printer:  prn,
		mb:       mb,
		registry: registry,
		leds:     ledEngine,
	}
	return s
}

// memoText binds one memo slot to the live configuration, so edits are
// picked up without re-registering the action.
func memoText(cfg *config.Instance, slot int) func() string {
	return func() string { return cfg.Memo(slot) }
}

// Run brings up the hardware and serves until ctx is cancelled.
func (s *Service) Run(ctx context.Context) error {
	if err := s.printer.Initialize(); err != nil {
		// The service stays up with a degraded printer; the API can
		// still adjust config and report health.
		log.Error().Err(err).Msg("printer bring-up failed, running degraded")
	}
	defer func() {
		if err := s.printer.Close(); err != nil {
			log.Warn().Err(err).Msg("printer close failed")
		}
	}()

	if s.mqttClient == nil {
		client, err := mqtt.Connect(s.cfg, s.mb, s.clock)
		switch {
		case errors.Is(err, mqtt.ErrNotConfigured):
			log.Info().Msg("mqtt not configured, running standalone")
		case err != nil:
			log.Error().Err(err).Msg("mqtt connect failed, running standalone")
		default:
			s.mqttClient = client
			defer s.mqttClient.Close()
		}
	}

	s.dispatcher = buttons.NewActionDispatcher(
		s.cfg, s.registry, s.printer, s.mb, s.leds, s.publisher(), s.clock)

	btnCfg := s.cfg.Buttons()
	s.scanner = buttons.NewScanner(btnCfg, s.dispatcher, s.clock)
	if err := s.scanner.Open(btnCfg.Chip); err != nil {
		return fmt.Errorf("opening button lines: %w", err)
	}
	defer s.scanner.Close()
	defer s.dispatcher.Wait()
	defer func() { _ = s.leds.Close() }()

	s.apiServer = api.New(api.Options{
		Config:        s.cfg,
		Mailbox:       s.mb,
		Resolver:      s.registry,
		Leds:          s.leds,
		PrinterReady:  s.printer.Ready,
		MQTTConnected: s.mqttConnected,
		Clock:         s.clock,
	})

	var group errgroup.Group
	group.Go(func() error {
		if err := s.apiServer.Start(ctx); err != nil {
			log.Error().Err(err).Msg("api server stopped")
		}
		return nil
	})

	scheduler := NewUnbiddenScheduler(s.cfg, s.mb, s.clock)
	group.Go(func() error {
		scheduler.Run(ctx)
		return nil
	})

	if err := s.cfg.Watch(ctx, s.onConfigReload); err != nil {
		log.Warn().Err(err).Msg("config file watch unavailable")
	}

	s.printBanner()
	if w, ok := s.wdt.(*watchdog.Systemd); ok {
		w.Ready()
	}

	err := s.loop(ctx)
	_ = group.Wait()
	return err
}

// loop is the heartbeat: sample buttons, drain the mailbox, feed the
// watchdog.
func (s *Service) loop(ctx context.Context) error {
	scanTicker := s.clock.NewTicker(scanInterval)
	defer scanTicker.Stop()
	feedTicker := s.clock.NewTicker(feedInterval)
	defer feedTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("service stopping")
			return nil
		case <-scanTicker.Chan():
			s.scanner.Scan()
			s.drainMailbox()
		case <-feedTicker.Chan():
			s.wdt.Feed()
		}
	}
}

// drainMailbox prints at most one pending local message per tick.
func (s *Service) drainMailbox() {
	msg, ok := s.mb.TakeLocal()
	if !ok {
		return
	}
	if err := s.printer.PrintWithHeader(msg.Timestamp, msg.Body); err != nil {
		log.Error().Err(err).Msg("mailbox print failed")
	}
}

func (s *Service) printBanner() {
	stamp := mailbox.FormatTimestamp(s.clock.Now())
	body := fmt.Sprintf("%s is ready", s.cfg.DeviceName())
	if err := s.printer.PrintStartupBanner(stamp, body); err != nil {
		log.Warn().Err(err).Msg("startup banner not printed")
	}
}

func (s *Service) onConfigReload() {
	log.Info().Msg("configuration reloaded from disk")
	// Heating profile changes need a fresh bring-up; everything else is
	// read live from the config instance.
	if err := s.printer.Initialize(); err != nil {
		log.Error().Err(err).Msg("printer re-init after reload failed")
	}
}

func (s *Service) publisher() buttons.Publisher {
	if s.mqttClient == nil {
		return nil
	}
	return s.mqttClient
}

func (s *Service) mqttConnected() bool {
	return s.mqttClient != nil && s.mqttClient.Connected()
}
