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

package mqtt

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/ScribeProject/scribe-core/pkg/config"
	"github.com/ScribeProject/scribe-core/pkg/service/mailbox"
	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeToken struct {
	err error
}

func (t *fakeToken) Wait() bool                     { return true }
func (t *fakeToken) WaitTimeout(time.Duration) bool { return true }
func (t *fakeToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}
func (t *fakeToken) Error() error { return t.err }

// fakePaho implements the subset of paho.Client the code under test uses.
type fakePaho struct {
	paho.Client

	connected  bool
	published  []publishedMsg
	publishErr error
}

type publishedMsg struct {
	topic   string
	payload []byte
}

func (f *fakePaho) IsConnected() bool { return f.connected }

func (f *fakePaho) Publish(topic string, _ byte, _ bool, payload any) paho.Token {
	f.published = append(f.published, publishedMsg{topic: topic, payload: payload.([]byte)})
	return &fakeToken{err: f.publishErr}
}

type fakeMessage struct {
	paho.Message

	topic   string
	payload []byte
}

func (m *fakeMessage) Topic() string   { return m.topic }
func (m *fakeMessage) Payload() []byte { return m.payload }

func testClient(t *testing.T) (*Client, *fakePaho, *mailbox.Mailbox) {
	t.Helper()

	vals := config.BaseDefaults
	vals.DeviceOwner = "Ada"
	vals.MQTT = config.MQTT{
		Broker:     "tls://broker.example:8883",
		InboxTopic: "scribe/ada/inbox",
	}
	cfg, err := config.NewConfig(t.TempDir(), vals)
	require.NoError(t, err)

	fake := &fakePaho{connected: true}
	mb := mailbox.New()
	c := &Client{
		cfg:     cfg,
		client:  fake,
		mailbox: mb,
		clock:   clockwork.NewFakeClockAt(time.Date(2026, 8, 24, 9, 30, 0, 0, time.UTC)),
	}
	return c, fake, mb
}

func TestInboxMessageQueuedForPrinting(t *testing.T) {
	t.Parallel()

	c, _, mb := testClient(t)
	c.onInbox(nil, &fakeMessage{
		topic:   "scribe/ada/inbox",
		payload: []byte(`{"header":"JOKE","body":"Why not?","sender":"Bob"}`),
	})

	msg, ok := mb.TakeLocal()
	require.True(t, ok)
	assert.Equal(t, "Mon 24 Aug 2026 09:30", msg.Timestamp)
	assert.Equal(t, "JOKE from Bob\n\nWhy not?", msg.Body)
}

func TestInboxHeaderOnlyMessage(t *testing.T) {
	t.Parallel()

	c, _, mb := testClient(t)
	c.onInbox(nil, &fakeMessage{
		payload: []byte(`{"header":"POKE","body":"","sender":"Bob"}`),
	})

	msg, ok := mb.TakeLocal()
	require.True(t, ok)
	assert.Equal(t, "POKE from Bob", msg.Body)
}

func TestInboxRejectsMalformedPayloads(t *testing.T) {
	t.Parallel()

	c, _, mb := testClient(t)

	for _, payload := range []string{
		`not json`,
		`{"body":"no header","sender":"Bob"}`,
		`{"header":"JOKE","body":"no sender"}`,
	} {
		c.onInbox(nil, &fakeMessage{payload: []byte(payload)})
	}
	_, ok := mb.TakeLocal()
	assert.False(t, ok, "malformed payloads must not queue prints")
}

func TestPublishEnvelope(t *testing.T) {
	t.Parallel()

	c, fake, _ := testClient(t)
	require.NoError(t, c.Publish("scribe/bob/inbox", "POKE", ""))

	require.Len(t, fake.published, 1)
	assert.Equal(t, "scribe/bob/inbox", fake.published[0].topic)

	var env Envelope
	require.NoError(t, json.Unmarshal(fake.published[0].payload, &env))
	assert.Equal(t, "POKE", env.Header)
	assert.Empty(t, env.Body)
	assert.Equal(t, "Ada", env.Sender)
	assert.Equal(t, "Mon 24 Aug 2026 09:30", env.Timestamp)
}

func TestPublishErrorSurfaces(t *testing.T) {
	t.Parallel()

	c, fake, _ := testClient(t)
	fake.publishErr = assert.AnError
	require.Error(t, c.Publish("scribe/bob/inbox", "JOKE", "body"))
}

func TestConnected(t *testing.T) {
	t.Parallel()

	c, fake, _ := testClient(t)
	assert.True(t, c.Connected())
	fake.connected = false
	assert.False(t, c.Connected())
}

func TestConnectRequiresBroker(t *testing.T) {
	t.Parallel()

	cfg, err := config.NewConfig(t.TempDir(), config.BaseDefaults)
	require.NoError(t, err)

	_, err = Connect(cfg, mailbox.New(), clockwork.NewFakeClock())
	require.ErrorIs(t, err, ErrNotConfigured)
}
