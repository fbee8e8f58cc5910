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

// Package mqtt connects the device to a broker so paired devices can send
// each other printouts. Inbound messages on the inbox topic land in the
// shared print mailbox; outbound content is published to another device's
// inbox.
package mqtt

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ScribeProject/scribe-core/pkg/config"
	"github.com/ScribeProject/scribe-core/pkg/service/mailbox"
	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

const (
	connectTimeout = 10 * time.Second
	publishTimeout = 5 * time.Second
)

var ErrNotConfigured = errors.New("mqtt broker not configured")

// Envelope is the JSON payload exchanged between devices. All three
// fields are required on inbound messages; anything else is dropped.
type Envelope struct {
	Header    string `json:"header"`
	Body      string `json:"body"`
	Sender    string `json:"sender"`
	Timestamp string `json:"timestamp,omitempty"`
}

// Client owns the broker connection. Inbound prints go through the
// mailbox rather than straight to the printer, so a chatty broker can
// never stall the network callback on printer hardware.
type Client struct {
	cfg     *config.Instance
	client  paho.Client
	mailbox *mailbox.Mailbox
	clock   clockwork.Clock
}

// Connect dials the configured broker and subscribes to the inbox topic.
// Returns ErrNotConfigured when no broker is set.
func Connect(cfg *config.Instance, mb *mailbox.Mailbox, clock clockwork.Clock) (*Client, error) {
	if !cfg.MQTTEnabled() {
		return nil, ErrNotConfigured
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	c := &Client{cfg: cfg, mailbox: mb, clock: clock}
	mqttCfg := cfg.MQTT()

	opts := paho.NewClientOptions().
		AddBroker(mqttCfg.Broker).
		SetClientID("scribe-" + cfg.DeviceName()).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second).
		SetOnConnectHandler(c.onConnect).
		SetConnectionLostHandler(func(_ paho.Client, err error) {
			log.Warn().
				Err(err).
				Str("component", "mqtt").
				Msg("broker connection lost, reconnecting")
		})
	if mqttCfg.Username != "" {
		opts.SetUsername(mqttCfg.Username)
		opts.SetPassword(mqttCfg.Password)
	}

	c.client = paho.NewClient(opts)
	token := c.client.Connect()
	if !token.WaitTimeout(connectTimeout) {
		return nil, errors.New("broker connection timeout")
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connecting to broker: %w", err)
	}
	return c, nil
}

// onConnect resubscribes on every (re)connection. Subscriptions do not
// survive a clean-session reconnect.
func (c *Client) onConnect(_ paho.Client) {
	topic := c.cfg.MQTT().InboxTopic
	if topic == "" {
		return
	}
	token := c.client.Subscribe(topic, 1, c.onInbox)
	if !token.WaitTimeout(publishTimeout) || token.Error() != nil {
		log.Error().
			Err(token.Error()).
			Str("component", "mqtt").
			Str("topic", topic).
			Msg("inbox subscribe failed")
		return
	}
	log.Info().
		Str("component", "mqtt").
		Str("topic", topic).
		Msg("subscribed to inbox")
}

// onInbox handles one message addressed to this device.
func (c *Client) onInbox(_ paho.Client, msg paho.Message) {
	var env Envelope
	if err := json.Unmarshal(msg.Payload(), &env); err != nil {
		log.Error().
			Err(err).
			Str("component", "mqtt").
			Str("topic", msg.Topic()).
			Msg("dropping malformed inbox payload")
		return
	}
	if env.Header == "" || env.Sender == "" {
		log.Error().
			Str("component", "mqtt").
			Str("topic", msg.Topic()).
			Msg("inbox payload missing header or sender, dropped")
		return
	}

	header := env.Header + " from " + env.Sender
	body := header
	if env.Body != "" {
		body = header + "\n\n" + env.Body
	}

	stamp := mailbox.FormatTimestamp(c.clock.Now())
	c.mailbox.Set(stamp, body, true)
	log.Info().
		Str("component", "mqtt").
		Str("sender", env.Sender).
		Str("header", env.Header).
		Msg("queued inbox message for printing")
}

// Publish sends content to another device's inbox topic.
func (c *Client) Publish(topic, header, body string) error {
	payload, err := json.Marshal(Envelope{
		Header:    header,
		Body:      body,
		Sender:    c.senderName(),
		Timestamp: mailbox.FormatTimestamp(c.clock.Now()),
	})
	if err != nil {
		return fmt.Errorf("encoding envelope: %w", err)
	}

	token := c.client.Publish(topic, 0, false, payload)
	if !token.WaitTimeout(publishTimeout) {
		return errors.New("publish timeout")
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publishing to %s: %w", topic, err)
	}
	log.Debug().
		Str("component", "mqtt").
		Str("topic", topic).
		Int("bytes", len(payload)).
		Msg("published")
	return nil
}

// Connected reports whether the broker link is up.
func (c *Client) Connected() bool {
	return c.client != nil && c.client.IsConnected()
}

// Close disconnects from the broker.
func (c *Client) Close() {
	if c.client != nil && c.client.IsConnected() {
		c.client.Disconnect(250)
	}
}

func (c *Client) senderName() string {
	if owner := c.cfg.DeviceOwner(); owner != "" {
		return owner
	}
	return c.cfg.DeviceName()
}
