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

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/ScribeProject/scribe-core/pkg/config"
	"github.com/ScribeProject/scribe-core/pkg/helpers"
	"github.com/ScribeProject/scribe-core/pkg/service"
	"github.com/adrg/xdg"
	"github.com/rs/zerolog/log"
)

func main() {
	if err := run(); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

func run() error {
	configDir := flag.String(
		"config",
		"",
		"directory holding config.toml and logs",
	)
	daemonMode := flag.Bool(
		"daemon",
		false,
		"log to stderr as well as the log file",
	)
	flag.Parse()

	if os.Geteuid() == 0 {
		return errors.New("scribe cannot be run as root")
	}

	dir := *configDir
	if dir == "" {
		dir = filepath.Join(xdg.ConfigHome, "scribe")
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}

	cfg, err := config.NewConfig(dir, config.BaseDefaults)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	var logWriters []io.Writer
	if *daemonMode {
		logWriters = []io.Writer{os.Stderr}
	}
	if err := helpers.InitLogging(dir, cfg.DebugLogging(), logWriters); err != nil {
		return fmt.Errorf("setting up logging: %w", err)
	}

	defer func() {
		if r := recover(); r != nil {
			_, _ = fmt.Fprintf(os.Stderr, "Panic: %s\n", r)
			log.Fatal().Msgf("panic: %v", r)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info().
		Str("device", cfg.DeviceName()).
		Str("config", cfg.Path()).
		Msg("starting scribe")

	svc := service.New(cfg, nil)
	if err := svc.Run(ctx); err != nil {
		return fmt.Errorf("service: %w", err)
	}
	log.Info().Msg("scribe stopped")
	return nil
}
