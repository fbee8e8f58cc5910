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

// Package content resolves named actions (joke, quote, quiz, riddle, news,
// poke) into printable content, fetching from the public APIs each action
// is backed by.
package content

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/ScribeProject/scribe-core/pkg/shared/httpclient"
)

// UserAgent identifies outbound API calls. Some content APIs refuse
// requests without one.
const UserAgent = "Scribe Core (https://github.com/ScribeProject/scribe-core)"

var (
	ErrUnknownAction = errors.New("unknown content action")
	ErrNoContent     = errors.New("provider returned no content")
)

// Content is one resolved piece of printable content. Header is printed
// inverted at the foot of the printout; Body is the content itself.
type Content struct {
	Header string
	Body   string
}

// Resolver produces content for a single action. Implementations must
// honor ctx cancellation; the dispatcher bounds every resolve with a
// deadline.
type Resolver interface {
	Resolve(ctx context.Context) (Content, error)
}

// Registry maps action names to resolvers. Lookup is case-insensitive.
type Registry struct {
	providers map[string]Resolver
}

// NewRegistry returns a registry with the standard actions registered
// against their live endpoints.
func NewRegistry(client *httpclient.Client) *Registry {
	if client == nil {
		client = httpclient.NewClient()
	}
	r := &Registry{providers: make(map[string]Resolver)}
	r.Register("joke", NewJokeProvider(client, ""))
	r.Register("quote", NewQuoteProvider(client, ""))
	r.Register("quiz", NewQuizProvider(client, ""))
	r.Register("news", NewNewsProvider(client, ""))
	r.Register("riddle", NewRiddleProvider())
	r.Register("poke", PokeProvider{})
	return r
}

// Register adds or replaces a resolver for an action name.
func (r *Registry) Register(action string, p Resolver) {
	r.providers[strings.ToLower(action)] = p
}

// Actions returns the registered action names, sorted.
func (r *Registry) Actions() []string {
	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Known reports whether an action name is registered.
func (r *Registry) Known(action string) bool {
	_, ok := r.providers[strings.ToLower(action)]
	return ok
}

// Resolve looks up the action and runs its provider.
func (r *Registry) Resolve(ctx context.Context, action string) (Content, error) {
	p, ok := r.providers[strings.ToLower(action)]
	if !ok {
		return Content{}, fmt.Errorf("%w: %q", ErrUnknownAction, action)
	}
	c, err := p.Resolve(ctx)
	if err != nil {
		return Content{}, fmt.Errorf("resolving %s: %w", strings.ToLower(action), err)
	}
	return c, nil
}

// reverseString reverses a string rune by rune. Quiz and riddle answers
// are printed reversed so they read correctly only when the printout is
// turned upside down.
func reverseString(s string) string {
	runes := []rune(s)
	for i, j := 0, len(runes)-1; i < j; i, j = i+1, j-1 {
		runes[i], runes[j] = runes[j], runes[i]
	}
	return string(runes)
}
