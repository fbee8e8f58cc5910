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

// Package api serves the local HTTP interface: health, configuration,
// direct printing, content actions, and LED control.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/ScribeProject/scribe-core/pkg/api/middleware"
	"github.com/ScribeProject/scribe-core/pkg/config"
	"github.com/ScribeProject/scribe-core/pkg/content"
	"github.com/ScribeProject/scribe-core/pkg/service/mailbox"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
	"github.com/shirou/gopsutil/v4/process"
)

const (
	requestTimeout = 30 * time.Second
	actionTimeout  = 10 * time.Second

	// maxMessageChars caps direct print requests. Longer submissions are
	// runaway scripts, not messages.
	maxMessageChars = 1000
)

// Resolver resolves content actions for the actions endpoint.
type Resolver interface {
	Resolve(ctx context.Context, action string) (content.Content, error)
	Known(action string) bool
	Actions() []string
}

// LedController exposes the LED engine to the leds endpoints.
type LedController interface {
	Trigger(effect string)
	Known(effect string) bool
	Effects() []string
	Active() string
}

// Server is the local HTTP API.
type Server struct {
	cfg           *config.Instance
	mb            *mailbox.Mailbox
	resolver      Resolver
	leds          LedController
	printerReady  func() bool
	mqttConnected func() bool
	clock         clockwork.Clock
	limiter       *middleware.IPRateLimiter
	srv           *http.Server
}

// Options wires the server's collaborators. PrinterReady is required;
// Leds, Resolver, and MQTTConnected may be nil when the matching
// subsystem is absent.
type Options struct {
	Config        *config.Instance
	Mailbox       *mailbox.Mailbox
	Resolver      Resolver
	Leds          LedController
	PrinterReady  func() bool
	MQTTConnected func() bool
	Clock         clockwork.Clock
}

// New builds the server. Call Start to begin listening.
func New(opts Options) *Server {
	clock := opts.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Server{
		cfg:           opts.Config,
		mb:            opts.Mailbox,
		resolver:      opts.Resolver,
		leds:          opts.Leds,
		printerReady:  opts.PrinterReady,
		mqttConnected: opts.MQTTConnected,
		clock:         clock,
		limiter:       middleware.NewIPRateLimiter(),
	}
}

// Router assembles the chi router. Exposed for tests.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.Recoverer)
	r.Use(chimw.NoCache)
	r.Use(chimw.Timeout(requestTimeout))
	r.Use(middleware.RateLimit(s.limiter))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/api/health", s.handleHealth)
	r.Get("/api/config", s.handleGetConfig)
	r.Put("/api/config", s.handlePutConfig)
	r.Post("/api/print", s.handlePrint)
	r.Post("/api/actions/{action}", s.handleAction)
	r.Get("/api/memos/{id}", s.handleMemoGet)
	r.Get("/api/leds", s.handleGetLeds)
	r.Post("/api/leds/{effect}", s.handleTriggerLed)

	return r
}

// Start listens on the configured port until ctx is cancelled, then
// shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	s.limiter.StartCleanup(ctx)
	s.srv = &http.Server{
		Addr:              ":" + strconv.Itoa(s.cfg.APIPort()),
		Handler:           s.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().
			Str("component", "api").
			Str("addr", s.srv.Addr).
			Msg("api server listening")
		errCh <- s.srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("api server shutdown: %w", err)
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("api server: %w", err)
	}
}

type healthResponse struct {
	Status        string `json:"status"`
	DeviceName    string `json:"deviceName"`
	PrinterReady  bool   `json:"printerReady"`
	MQTTConnected bool   `json:"mqttConnected"`
	MemoryBytes   uint64 `json:"memoryBytes,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	resp := healthResponse{
		Status:       "ok",
		DeviceName:   s.cfg.DeviceName(),
		PrinterReady: s.printerReady != nil && s.printerReady(),
		MemoryBytes:  residentMemory(),
	}
	if s.mqttConnected != nil {
		resp.MQTTConnected = s.mqttConnected()
	}
	if !resp.PrinterReady {
		resp.Status = "degraded"
	}
	writeJSON(w, http.StatusOK, resp)
}

// residentMemory reports the daemon's RSS, or 0 if the platform
// refuses to tell us.
func residentMemory() uint64 {
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return 0
	}
	info, err := proc.MemoryInfo()
	if err != nil || info == nil {
		return 0
	}
	return info.RSS
}

func (s *Server) handleGetConfig(w http.ResponseWriter, _ *http.Request) {
	vals := s.cfg.Values()
	// Secrets never leave the device.
	if vals.MQTT.Password != "" {
		vals.MQTT.Password = "REDACTED"
	}
	if vals.UnbiddenInk.Token != "" {
		vals.UnbiddenInk.Token = "REDACTED"
	}
	writeJSON(w, http.StatusOK, vals)
}

func (s *Server) handlePutConfig(w http.ResponseWriter, r *http.Request) {
	var vals config.Values
	if err := json.NewDecoder(r.Body).Decode(&vals); err != nil {
		writeError(w, http.StatusBadRequest, "invalid config payload")
		return
	}

	// A redacted secret in a round-tripped config means "keep it".
	current := s.cfg.Values()
	if vals.MQTT.Password == "REDACTED" {
		vals.MQTT.Password = current.MQTT.Password
	}
	if vals.UnbiddenInk.Token == "REDACTED" {
		vals.UnbiddenInk.Token = current.UnbiddenInk.Token
	}

	if err := s.cfg.SetValues(vals); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	if err := s.cfg.Save(); err != nil {
		log.Error().Err(err).Str("component", "api").Msg("config save failed")
		writeError(w, http.StatusInternalServerError, "failed to save config")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"saved": true})
}

type printRequest struct {
	Message string `json:"message"`
}

func (s *Server) handlePrint(w http.ResponseWriter, r *http.Request) {
	var req printRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid print payload")
		return
	}
	if req.Message == "" {
		writeError(w, http.StatusBadRequest, "message is required")
		return
	}
	if len(req.Message) > maxMessageChars {
		writeError(w, http.StatusRequestEntityTooLarge,
			fmt.Sprintf("message exceeds %d characters", maxMessageChars))
		return
	}

	id := uuid.NewString()
	stamp := mailbox.FormatTimestamp(s.clock.Now())
	s.mb.Set(stamp, req.Message, true)
	log.Info().
		Str("component", "api").
		Str("id", id).
		Int("chars", len(req.Message)).
		Msg("message queued for printing")
	writeJSON(w, http.StatusAccepted, map[string]any{"queued": true, "id": id})
}

func (s *Server) handleAction(w http.ResponseWriter, r *http.Request) {
	if s.resolver == nil {
		writeError(w, http.StatusServiceUnavailable, "content actions unavailable")
		return
	}
	action := chi.URLParam(r, "action")
	if !s.resolver.Known(action) {
		writeError(w, http.StatusNotFound, "unknown action")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), actionTimeout)
	defer cancel()

	c, err := s.resolver.Resolve(ctx, action)
	if err != nil {
		log.Error().
			Err(err).
			Str("component", "api").
			Str("action", action).
			Msg("action resolve failed")
		writeError(w, http.StatusBadGateway, "content source unavailable")
		return
	}

	body := c.Header
	if c.Body != "" {
		body = c.Header + "\n\n" + c.Body
	}
	stamp := mailbox.FormatTimestamp(s.clock.Now())
	s.mb.Set(stamp, body, true)

	writeJSON(w, http.StatusOK, map[string]string{
		"header": c.Header,
		"body":   c.Body,
	})
}

// handleMemoGet previews a memo with its placeholders expanded. Unlike
// the actions endpoint nothing is queued for printing; printing a memo
// goes through POST /api/actions/memoN.
func (s *Server) handleMemoGet(w http.ResponseWriter, r *http.Request) {
	if s.resolver == nil {
		writeError(w, http.StatusServiceUnavailable, "content actions unavailable")
		return
	}
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil || id < 1 || id > config.MemoCount {
		writeError(w, http.StatusBadRequest,
			fmt.Sprintf("memo id must be 1-%d", config.MemoCount))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), actionTimeout)
	defer cancel()

	c, err := s.resolver.Resolve(ctx, fmt.Sprintf("memo%d", id))
	if err != nil {
		if errors.Is(err, content.ErrNoContent) {
			writeError(w, http.StatusNotFound, "memo not set")
			return
		}
		log.Error().
			Err(err).
			Str("component", "api").
			Int("memo", id).
			Msg("memo resolve failed")
		writeError(w, http.StatusBadGateway, "memo unavailable")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"header": c.Header,
		"body":   c.Body,
	})
}

func (s *Server) handleGetLeds(w http.ResponseWriter, _ *http.Request) {
	if s.leds == nil {
		writeError(w, http.StatusServiceUnavailable, "leds not fitted")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"effects": s.leds.Effects(),
		"active":  s.leds.Active(),
	})
}

func (s *Server) handleTriggerLed(w http.ResponseWriter, r *http.Request) {
	if s.leds == nil {
		writeError(w, http.StatusServiceUnavailable, "leds not fitted")
		return
	}
	effect := chi.URLParam(r, "effect")
	if !s.leds.Known(effect) {
		writeError(w, http.StatusNotFound, "unknown effect")
		return
	}
	s.leds.Trigger(effect)
	w.WriteHeader(http.StatusNoContent)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Str("component", "api").Msg("response encode failed")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
