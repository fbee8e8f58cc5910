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
	"encoding/xml"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/ScribeProject/scribe-core/pkg/shared/httpclient"
)

const (
	defaultNewsURL = "https://feeds.bbci.co.uk/news/rss.xml"
	maxNewsItems   = 5
)

// NewsProvider fetches current headlines from the BBC News RSS feed.
type NewsProvider struct {
	client *httpclient.Client
	url    string
}

// NewNewsProvider builds a news provider. An empty url selects the live
// feed.
func NewNewsProvider(client *httpclient.Client, url string) *NewsProvider {
	if url == "" {
		url = defaultNewsURL
	}
	return &NewsProvider{client: client, url: url}
}

type rssFeed struct {
	Channel struct {
		Items []rssItem `xml:"item"`
	} `xml:"channel"`
}

type rssItem struct {
	Title   string `xml:"title"`
	PubDate string `xml:"pubDate"`
}

// Resolve implements Resolver.
func (p *NewsProvider) Resolve(ctx context.Context) (Content, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.url, http.NoBody)
	if err != nil {
		return Content{}, fmt.Errorf("creating news request: %w", err)
	}
	req.Header.Set("User-Agent", UserAgent)

	resp, err := p.client.Do(req)
	if err != nil {
		return Content{}, fmt.Errorf("fetching news feed: %w", err)
	}
	body, err := httpclient.ReadBody(resp)
	if err != nil {
		return Content{}, err
	}
	if resp.StatusCode != http.StatusOK {
		return Content{}, fmt.Errorf("news feed returned status %d", resp.StatusCode)
	}

	var feed rssFeed
	if err := xml.Unmarshal(body, &feed); err != nil {
		return Content{}, fmt.Errorf("parsing news feed: %w", err)
	}

	var sections []string
	for _, item := range feed.Channel.Items {
		if len(sections) >= maxNewsItems {
			break
		}
		title := strings.TrimSpace(item.Title)
		if title == "" {
			continue
		}
		if when := formatPubDate(item.PubDate); when != "" {
			sections = append(sections, when+"\n"+title)
		} else {
			sections = append(sections, title)
		}
	}
	if len(sections) == 0 {
		return Content{}, ErrNoContent
	}

	return Content{Header: "NEWS", Body: strings.Join(sections, "\n\n")}, nil
}

// formatPubDate renders an RFC 1123 feed date as a short local stamp, or
// "" when the date is missing or unparseable.
func formatPubDate(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	for _, layout := range []string{time.RFC1123Z, time.RFC1123} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.Format("15:04 Mon 02 Jan")
		}
	}
	return ""
}
