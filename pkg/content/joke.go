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
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/ScribeProject/scribe-core/pkg/shared/httpclient"
)

const defaultJokeURL = "https://icanhazdadjoke.com/"

// JokeProvider fetches a dad joke from icanhazdadjoke.com.
type JokeProvider struct {
	client *httpclient.Client
	url    string
}

// NewJokeProvider builds a joke provider. An empty url selects the live
// endpoint.
func NewJokeProvider(client *httpclient.Client, url string) *JokeProvider {
	if url == "" {
		url = defaultJokeURL
	}
	return &JokeProvider{client: client, url: url}
}

// Resolve implements Resolver.
func (p *JokeProvider) Resolve(ctx context.Context) (Content, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.url, http.NoBody)
	if err != nil {
		return Content{}, fmt.Errorf("creating joke request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", UserAgent)

	resp, err := p.client.Do(req)
	if err != nil {
		return Content{}, fmt.Errorf("fetching joke: %w", err)
	}
	body, err := httpclient.ReadBody(resp)
	if err != nil {
		return Content{}, err
	}
	if resp.StatusCode != http.StatusOK {
		return Content{}, fmt.Errorf("joke API returned status %d", resp.StatusCode)
	}

	var payload struct {
		Joke string `json:"joke"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return Content{}, fmt.Errorf("parsing joke response: %w", err)
	}

	joke := strings.TrimSpace(payload.Joke)
	if joke == "" {
		return Content{}, ErrNoContent
	}
	return Content{Header: "JOKE", Body: joke}, nil
}
