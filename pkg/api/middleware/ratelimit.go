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

// Package middleware holds HTTP middleware for the local API server.
package middleware

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/ScribeProject/scribe-core/pkg/helpers/syncutil"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

const (
	// RequestsPerMinute limits each client IP. The printer can only emit
	// a few lines per second, so anything past this is abuse.
	RequestsPerMinute = 60
	BurstSize         = 10
)

// IPRateLimiter manages one token bucket per client IP.
type IPRateLimiter struct {
	limiters map[string]*rateLimiterEntry
	mu       syncutil.RWMutex
}

type rateLimiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewIPRateLimiter creates an empty limiter set.
func NewIPRateLimiter() *IPRateLimiter {
	return &IPRateLimiter{
		limiters: make(map[string]*rateLimiterEntry),
	}
}

// GetLimiter returns the bucket for an IP, creating it on first sight.
func (rl *IPRateLimiter) GetLimiter(ip string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	entry, exists := rl.limiters[ip]
	if !exists {
		entry = &rateLimiterEntry{
			limiter:  rate.NewLimiter(rate.Limit(float64(RequestsPerMinute)/60.0), BurstSize),
			lastSeen: time.Now(),
		}
		rl.limiters[ip] = entry
	} else {
		entry.lastSeen = time.Now()
	}
	return entry.limiter
}

// Cleanup drops buckets idle for over ten minutes.
func (rl *IPRateLimiter) Cleanup() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	maxAge := 10 * time.Minute
	now := time.Now()
	for ip, entry := range rl.limiters {
		if now.Sub(entry.lastSeen) > maxAge {
			delete(rl.limiters, ip)
			log.Debug().Str("ip", ip).Msg("removed stale rate limiter")
		}
	}
}

// StartCleanup runs Cleanup periodically until ctx is cancelled.
func (rl *IPRateLimiter) StartCleanup(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				rl.Cleanup()
			case <-ctx.Done():
				return
			}
		}
	}()
}

// ParseRemoteIP extracts the IP from a RemoteAddr string.
func ParseRemoteIP(remoteAddr string) net.IP {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		host = remoteAddr
	}
	return net.ParseIP(host)
}

// RateLimit rejects requests from IPs exceeding their bucket.
func RateLimit(limiter *IPRateLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			host := "unknown"
			if ip := ParseRemoteIP(r.RemoteAddr); ip != nil {
				host = ip.String()
			}

			if !limiter.GetLimiter(host).Allow() {
				log.Warn().
					Str("ip", host).
					Str("path", r.URL.Path).
					Str("method", r.Method).
					Msg("rate limit exceeded")
				http.Error(w, "Too Many Requests", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
