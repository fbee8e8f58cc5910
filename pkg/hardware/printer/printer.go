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

// Package printer drives the thermal printer over its UART. The UART is the
// single contended hardware resource in the system: button actions, API
// requests and scheduled jobs can all print concurrently from different
// goroutines, so every operation serializes through a bounded-wait lock and
// a caller that cannot get the lock drops its print rather than queue.
package printer

import (
	"errors"
	"fmt"
	"io"
	"sync/atomic"
	"time"

	"github.com/ScribeProject/scribe-core/pkg/config"
	"github.com/ScribeProject/scribe-core/pkg/hardware/watchdog"
	"github.com/ScribeProject/scribe-core/pkg/helpers/syncutil"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
	"go.bug.st/serial"
)

const (
	// MaxCharsPerLine is the printer's physical character width.
	MaxCharsPerLine = 32

	// opTimeout bounds how long a print waits for the hardware lock.
	opTimeout = 5 * time.Second
	// initTimeout is longer because hardware bring-up is inherently slow
	// and must not be conflated with a stuck system.
	initTimeout = 10 * time.Second

	// The UART needs settling time after opening, and the printer needs
	// settling time after a reset, before it accepts further commands.
	uartSettleDelay  = 500 * time.Millisecond
	resetSettleDelay = 100 * time.Millisecond
	cmdSettleDelay   = 50 * time.Millisecond

	esc = 0x1b
	gs  = 0x1d
)

// ErrNotInitialized is returned by print operations before Initialize has
// completed successfully.
var ErrNotInitialized = errors.New("printer not initialized")

// ErrHardwareInit wraps UART bring-up failures. The ready flag stays false
// and later prints fail fast instead of hanging on dead hardware.
var ErrHardwareInit = errors.New("printer hardware initialization failed")

// Port is the subset of the serial port used by the driver, split out so
// tests can capture the byte stream.
type Port interface {
	io.Writer
	Close() error
}

// OpenFunc opens the printer UART device.
type OpenFunc func(device string) (Port, error)

func defaultOpen(device string) (Port, error) {
	port, err := serial.Open(device, &serial.Mode{
		BaudRate: 9600,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port: %w", err)
	}

	// Drive the line to idle before the first command so the printer does
	// not see spurious bytes from bring-up.
	if err := port.SetDTR(true); err != nil {
		log.Debug().Err(err).Msg("printer: port does not support DTR")
	}
	if err := port.ResetOutputBuffer(); err != nil {
		_ = port.Close()
		return nil, fmt.Errorf("failed to reset output buffer: %w", err)
	}
	if err := port.ResetInputBuffer(); err != nil {
		_ = port.Close()
		return nil, fmt.Errorf("failed to reset input buffer: %w", err)
	}

	return port, nil
}

// Printer owns the thermal printer UART.
type Printer struct {
	cfg    *config.Instance
	clock  clockwork.Clock
	wdt    watchdog.Notifier
	openFn OpenFunc
	port   Port
	lock   *syncutil.TimedMutex

	opTimeout   time.Duration
	initTimeout time.Duration

	// ready has cross-goroutine visibility guarantees from sync/atomic;
	// a reader observing true also observes the completed bring-up.
	ready atomic.Bool
}

// New creates an uninitialized driver. A nil clock uses the real clock and
// a nil wdt disables watchdog feeding.
func New(cfg *config.Instance, clock clockwork.Clock, wdt watchdog.Notifier) *Printer {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if wdt == nil {
		wdt = watchdog.Nop{}
	}
	return &Printer{
		cfg:         cfg,
		clock:       clock,
		wdt:         wdt,
		openFn:      defaultOpen,
		lock:        syncutil.NewTimedMutex(),
		opTimeout:   opTimeout,
		initTimeout: initTimeout,
	}
}

// SetOpenFunc overrides how the UART device is opened, for tests.
func (p *Printer) SetOpenFunc(fn OpenFunc) {
	p.openFn = fn
}

// SetLockTimeouts overrides the lock acquisition timeouts, for tests.
func (p *Printer) SetLockTimeouts(op, init time.Duration) {
	p.opTimeout = op
	p.initTimeout = init
}

// Ready reports whether UART bring-up has completed. It never blocks and is
// safe to call from any goroutine.
func (p *Printer) Ready() bool {
	return p.ready.Load()
}

// Initialize opens the UART and configures the printer: reset (ESC @),
// heating profile (ESC 7), and 180° rotation mode (ESC { 1). Ready becomes
// true only after the whole sequence succeeds. It may be the very first
// hardware touch after boot, so each wait point feeds the watchdog.
func (p *Printer) Initialize() error {
	guard, err := p.lock.Acquire(p.initTimeout)
	if err != nil {
		log.Error().Err(err).Str("component", "printer").
			Msg("failed to acquire lock during initialization")
		return fmt.Errorf("printer initialize: %w", err)
	}
	defer guard.Release()

	p.ready.Store(false)

	if p.port != nil {
		// Re-initialization: drop any stale handle first.
		if err := p.port.Close(); err != nil {
			log.Warn().Err(err).Str("component", "printer").
				Msg("closing stale port")
		}
		p.port = nil
	}

	pcfg := p.cfg.Printer()

	port, err := p.openFn(pcfg.Device)
	if err != nil {
		log.Error().Err(err).Str("component", "printer").
			Str("device", pcfg.Device).Msg("UART bring-up failed")
		return fmt.Errorf("%w: %w", ErrHardwareInit, err)
	}
	p.port = port

	// The UART hardware needs time to come up before the first write.
	p.clock.Sleep(uartSettleDelay)
	p.wdt.Feed()

	if err := p.writeAll([]byte{esc, '@'}); err != nil {
		return fmt.Errorf("%w: reset command: %w", ErrHardwareInit, err)
	}
	p.clock.Sleep(resetSettleDelay)
	p.wdt.Feed()

	heating := []byte{
		esc, '7',
		byte(pcfg.HeatingDots),
		byte(pcfg.HeatingTime),
		byte(pcfg.HeatingInterval),
	}
	if err := p.writeAll(heating); err != nil {
		return fmt.Errorf("%w: heating parameters: %w", ErrHardwareInit, err)
	}
	p.clock.Sleep(cmdSettleDelay)

	if err := p.writeAll([]byte{esc, '{', 0x01}); err != nil {
		return fmt.Errorf("%w: rotation mode: %w", ErrHardwareInit, err)
	}
	p.clock.Sleep(cmdSettleDelay)
	p.wdt.Feed()

	p.ready.Store(true)

	log.Info().Str("component", "printer").Str("device", pcfg.Device).
		Int("heating_dots", pcfg.HeatingDots).
		Msg("printer initialized")
	return nil
}

// Close releases the UART at process teardown.
func (p *Printer) Close() error {
	guard, err := p.lock.Acquire(p.opTimeout)
	if err != nil {
		return fmt.Errorf("printer close: %w", err)
	}
	defer guard.Release()

	p.ready.Store(false)
	if p.port == nil {
		return nil
	}
	if err := p.port.Close(); err != nil {
		return fmt.Errorf("failed to close serial port: %w", err)
	}
	p.port = nil
	return nil
}

// PrintWithHeader prints body text followed by the header in inverse video,
// then advances the paper. The printer runs in 180° rotation mode, so the
// body is written first and each block is emitted with its lines reversed:
// the last-written content ends up physically on top of the torn-off strip.
//
// A lock timeout drops the print. There is no retry queue at this layer.
func (p *Printer) PrintWithHeader(headerText, bodyText string) error {
	guard, err := p.lock.Acquire(p.opTimeout)
	if err != nil {
		log.Error().Err(err).Str("component", "printer").
			Msg("failed to acquire printer lock, print aborted")
		return fmt.Errorf("print with header: %w", err)
	}
	defer guard.Release()

	return p.printLocked(headerText, bodyText, 0)
}

// PrintStartupBanner prints the boot banner with an extra leading paper
// advance. Content depends on operating mode and is composed by the caller.
func (p *Printer) PrintStartupBanner(headerText, bodyText string) error {
	guard, err := p.lock.Acquire(p.opTimeout)
	if err != nil {
		log.Error().Err(err).Str("component", "printer").
			Msg("failed to acquire printer lock, startup banner aborted")
		return fmt.Errorf("print startup banner: %w", err)
	}
	defer guard.Release()

	return p.printLocked(headerText, bodyText, 1)
}

// printLocked assumes the hardware lock is already held.
func (p *Printer) printLocked(headerText, bodyText string, leadingFeed int) error {
	if !p.ready.Load() || p.port == nil {
		return ErrNotInitialized
	}

	headerText = Sanitize(headerText)
	bodyText = Sanitize(bodyText)

	p.wdt.Feed()

	if leadingFeed > 0 {
		if err := p.advancePaper(leadingFeed); err != nil {
			return err
		}
	}

	if err := p.printWrapped(bodyText); err != nil {
		return err
	}
	p.wdt.Feed()

	if err := p.setInverse(true); err != nil {
		return err
	}
	if err := p.printWrapped(headerText); err != nil {
		return err
	}
	if err := p.setInverse(false); err != nil {
		return err
	}

	if err := p.advancePaper(2); err != nil {
		return err
	}
	p.wdt.Feed()

	return nil
}

// printWrapped writes text word-wrapped to the printer width, emitting
// physical lines in reverse order for the rotation mode.
func (p *Printer) printWrapped(text string) error {
	lines := Wrap(text, MaxCharsPerLine)
	for i := len(lines) - 1; i >= 0; i-- {
		if err := p.writeAll(append([]byte(lines[i]), '\n')); err != nil {
			return err
		}
	}
	return nil
}

// setInverse toggles inverse video (GS B n).
func (p *Printer) setInverse(enable bool) error {
	n := byte(0)
	if enable {
		n = 1
	}
	return p.writeAll([]byte{gs, 'B', n})
}

// advancePaper feeds n blank lines.
func (p *Printer) advancePaper(n int) error {
	for range n {
		if err := p.writeAll([]byte{'\n'}); err != nil {
			return err
		}
	}
	return nil
}

func (p *Printer) writeAll(data []byte) error {
	for len(data) > 0 {
		written, err := p.port.Write(data)
		if err != nil {
			return fmt.Errorf("serial write failed: %w", err)
		}
		data = data[written:]
	}
	return nil
}
