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
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/ScribeProject/scribe-core/pkg/shared/httpclient"
)

const (
	defaultUnbiddenURL  = "https://api.openai.com/v1/chat/completions"
	unbiddenModel       = "gpt-4o-mini"
	unbiddenMaxTokens   = 150
	unbiddenTemperature = 0.7
	defaultUnbiddenAsk  = "Write a short, surprising thought for a tiny receipt printer. Two sentences at most."
)

// UnbiddenProvider generates spontaneous content through an
// OpenAI-compatible chat completions endpoint. It backs the scheduled
// generation job, and can be wired to a button like any other action.
type UnbiddenProvider struct {
	client *httpclient.Client
	url    string
	prompt string
}

// NewUnbiddenProvider builds a generator. Empty url and prompt fall back
// to the OpenAI endpoint and a stock prompt.
func NewUnbiddenProvider(token, url, prompt string) *UnbiddenProvider {
	if url == "" {
		url = defaultUnbiddenURL
	}
	if prompt == "" {
		prompt = defaultUnbiddenAsk
	}
	return &UnbiddenProvider{
		client: httpclient.NewBearerClient(token, httpclient.DefaultTimeoutSeconds*time.Second),
		url:    url,
		prompt: prompt,
	}
}

type chatRequest struct {
	Model       string        `json:"model"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature float64       `json:"temperature"`
	Messages    []chatMessage `json:"messages"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// Resolve implements Resolver.
func (p *UnbiddenProvider) Resolve(ctx context.Context) (Content, error) {
	payload, err := json.Marshal(chatRequest{
		Model:       unbiddenModel,
		MaxTokens:   unbiddenMaxTokens,
		Temperature: unbiddenTemperature,
		Messages: []chatMessage{
			{Role: "user", Content: p.prompt},
		},
	})
	if err != nil {
		return Content{}, fmt.Errorf("encoding chat request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.url, bytes.NewReader(payload))
	if err != nil {
		return Content{}, fmt.Errorf("creating chat request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", UserAgent)

	resp, err := p.client.Do(req)
	if err != nil {
		return Content{}, fmt.Errorf("calling chat API: %w", err)
	}
	body, err := httpclient.ReadBody(resp)
	if err != nil {
		return Content{}, err
	}
	if resp.StatusCode != http.StatusOK {
		return Content{}, fmt.Errorf("chat API returned status %d", resp.StatusCode)
	}

	var parsed chatResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return Content{}, fmt.Errorf("parsing chat response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return Content{}, ErrNoContent
	}
	text := strings.TrimSpace(parsed.Choices[0].Message.Content)
	if text == "" {
		return Content{}, ErrNoContent
	}
	return Content{Header: "UNBIDDEN INK", Body: text}, nil
}
