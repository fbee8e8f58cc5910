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
	"math/rand/v2"
	"net/http"
	"strings"

	"github.com/ScribeProject/scribe-core/pkg/shared/httpclient"
)

const defaultQuizURL = "https://the-trivia-api.com/api/questions" +
	"?categories=general_knowledge&difficulty=medium&limit=1"

// QuizProvider fetches a multiple-choice trivia question from
// the-trivia-api.com. The correct answer is shuffled into a random slot
// and appended reversed, so it can only be read with the printout flipped.
type QuizProvider struct {
	client *httpclient.Client
	url    string
	randN  func(n int) int
}

// NewQuizProvider builds a quiz provider. An empty url selects the live
// endpoint.
func NewQuizProvider(client *httpclient.Client, url string) *QuizProvider {
	if url == "" {
		url = defaultQuizURL
	}
	return &QuizProvider{client: client, url: url, randN: rand.IntN}
}

// Resolve implements Resolver.
func (p *QuizProvider) Resolve(ctx context.Context) (Content, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.url, http.NoBody)
	if err != nil {
		return Content{}, fmt.Errorf("creating quiz request: %w", err)
	}
	req.Header.Set("User-Agent", UserAgent)

	resp, err := p.client.Do(req)
	if err != nil {
		return Content{}, fmt.Errorf("fetching quiz: %w", err)
	}
	body, err := httpclient.ReadBody(resp)
	if err != nil {
		return Content{}, err
	}
	if resp.StatusCode != http.StatusOK {
		return Content{}, fmt.Errorf("quiz API returned status %d", resp.StatusCode)
	}

	var payload []struct {
		Question         string   `json:"question"`
		CorrectAnswer    string   `json:"correctAnswer"`
		IncorrectAnswers []string `json:"incorrectAnswers"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return Content{}, fmt.Errorf("parsing quiz response: %w", err)
	}
	if len(payload) == 0 {
		return Content{}, ErrNoContent
	}

	q := payload[0]
	question := strings.TrimSpace(q.Question)
	correct := strings.TrimSpace(q.CorrectAnswer)
	if question == "" || correct == "" || len(q.IncorrectAnswers) < 3 {
		return Content{}, ErrNoContent
	}

	correctSlot := p.randN(4)
	var options [4]string
	incorrect := 0
	for i := range options {
		if i == correctSlot {
			options[i] = correct
		} else {
			options[i] = strings.TrimSpace(q.IncorrectAnswers[incorrect])
			incorrect++
		}
	}

	var b strings.Builder
	b.WriteString(question)
	b.WriteByte('\n')
	for i, label := range []string{"A", "B", "C", "D"} {
		fmt.Fprintf(&b, "%s) %s\n", label, options[i])
	}
	b.WriteString("\n\n\n")
	b.WriteString("Answer: " + reverseString(correct))

	return Content{Header: "QUIZ", Body: b.String()}, nil
}
