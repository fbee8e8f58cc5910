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

const defaultQuoteURL = "https://zenquotes.io/api/random"

// QuoteProvider fetches an inspirational quote from zenquotes.io.
type QuoteProvider struct {
	client *httpclient.Client
	url    string
}

// NewQuoteProvider builds a quote provider. An empty url selects the live
// endpoint.
func NewQuoteProvider(client *httpclient.Client, url string) *QuoteProvider {
	if url == "" {
		url = defaultQuoteURL
	}
	return &QuoteProvider{client: client, url: url}
}

// Resolve implements Resolver.
func (p *QuoteProvider) Resolve(ctx context.Context) (Content, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.url, http.NoBody)
	if err != nil {
		return Content{}, fmt.Errorf("creating quote request: %w", err)
	}
	req.Header.Set("User-Agent", UserAgent)

	resp, err := p.client.Do(req)
	if err != nil {
		return Content{}, fmt.Errorf("fetching quote: %w", err)
	}
	body, err := httpclient.ReadBody(resp)
	if err != nil {
		return Content{}, err
	}
	if resp.StatusCode != http.StatusOK {
		return Content{}, fmt.Errorf("quote API returned status %d", resp.StatusCode)
	}

	var payload []struct {
		Quote  string `json:"q"`
		Author string `json:"a"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return Content{}, fmt.Errorf("parsing quote response: %w", err)
	}
	if len(payload) == 0 {
		return Content{}, ErrNoContent
	}

	quote := strings.TrimSpace(payload[0].Quote)
	author := strings.TrimSpace(payload[0].Author)
	if quote == "" || author == "" {
		return Content{}, ErrNoContent
	}
	return Content{
		Header: "QUOTE",
		Body:   fmt.Sprintf("%q\n- %s", quote, author),
	}, nil
}
