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

// Package httpclient provides the shared outbound HTTP client used by
// content providers and the scheduled content job.
package httpclient

import (
	"fmt"
	"io"
	"net"
	"net/http"
	"time"
)

const (
	// DefaultTimeoutSeconds is the default timeout for HTTP requests.
	DefaultTimeoutSeconds = 30

	// MaxResponseBytes caps how much of a response body is read. Content
	// endpoints return small JSON payloads; anything larger is a broken
	// or hostile server.
	MaxResponseBytes = 1 << 20
)

// BearerTransport attaches a bearer token to every request.
type BearerTransport struct {
	Base  http.RoundTripper
	Token string
}

// RoundTrip implements http.RoundTripper.
func (t *BearerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.Base == nil {
		t.Base = http.DefaultTransport
	}
	if t.Token != "" {
		req.Header.Set("Authorization", "Bearer "+t.Token)
	}
	resp, err := t.Base.RoundTrip(req)
	if err != nil {
		return nil, fmt.Errorf("failed to perform HTTP round trip: %w", err)
	}
	return resp, nil
}

// DefaultTransport provides a configured transport with connection pooling
// and reasonable timeouts.
var DefaultTransport = &http.Transport{
	DialContext: (&net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}).DialContext,
	ResponseHeaderTimeout: 30 * time.Second,
	TLSHandshakeTimeout:   10 * time.Second,
	MaxIdleConns:          100,
	MaxIdleConnsPerHost:   10,
	IdleConnTimeout:       90 * time.Second,
}

// Client is an HTTP client with sensible defaults for small API calls.
type Client struct {
	*http.Client
}

// NewClient creates a client with the default timeout.
func NewClient() *Client {
	return NewClientWithTimeout(DefaultTimeoutSeconds * time.Second)
}

// NewClientWithTimeout creates a client with a custom timeout.
func NewClientWithTimeout(timeout time.Duration) *Client {
	return &Client{
		Client: &http.Client{
			Transport: DefaultTransport,
			Timeout:   timeout,
		},
	}
}

// NewBearerClient creates a client that authenticates every request with
// the given bearer token.
func NewBearerClient(token string, timeout time.Duration) *Client {
	return &Client{
		Client: &http.Client{
			Transport: &BearerTransport{
				Base:  DefaultTransport,
				Token: token,
			},
			Timeout: timeout,
		},
	}
}

// ReadBody drains and returns a response body, enforcing MaxResponseBytes
// and closing the body.
func ReadBody(resp *http.Response) ([]byte, error) {
	defer func() { _ = resp.Body.Close() }()
	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	return body, nil
}
