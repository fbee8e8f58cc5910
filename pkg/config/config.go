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

// Package config manages the on-disk TOML configuration for the appliance.
// All runtime components read configuration through an Instance, which is
// safe for concurrent use and supports reloading while the service runs.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ScribeProject/scribe-core/pkg/helpers/syncutil"
	"github.com/go-playground/validator/v10"
	toml "github.com/pelletier/go-toml/v2"
	"github.com/rs/zerolog/log"
)

const (
	SchemaVersion = 1
	CfgEnv        = "SCRIBE_CFG"
	CfgFile       = "config.toml"

	// MemoCount is how many memo slots the device stores.
	MemoCount = 4
)

// Values is the complete on-disk configuration.
type Values struct {
	DeviceName   string      `toml:"device_name"            validate:"required"`
	DeviceOwner  string      `toml:"device_owner,omitempty"`
	Printer      Printer     `toml:"printer"`
	Buttons      Buttons     `toml:"buttons,omitempty"`
	API          API         `toml:"api"`
	MQTT         MQTT        `toml:"mqtt,omitempty"`
	UnbiddenInk  UnbiddenInk `toml:"unbidden_ink,omitempty"`
	Memos        []string    `toml:"memos,omitempty"        validate:"max=4,dive,max=500"`
	ConfigSchema int         `toml:"config_schema"`
	DebugLogging bool        `toml:"debug_logging"`
}

// Printer configures the thermal printer UART and heating profile. The
// heating ranges follow the printer datasheet; values outside them risk
// scorched or faint output.
type Printer struct {
	Device          string `toml:"device"           validate:"required"`
	HeatingDots     int    `toml:"heating_dots"     validate:"min=7,max=15"`
	HeatingTime     int    `toml:"heating_time"     validate:"min=80,max=200"`
	HeatingInterval int    `toml:"heating_interval" validate:"min=200,max=250"`
}

// Button configures one physical button. Empty actions disable that press
// type. If an MQTT topic is set, resolved content is published there instead
// of being printed locally.
type Button struct {
	ShortAction    string `toml:"short_action,omitempty"`
	LongAction     string `toml:"long_action,omitempty"`
	ShortMQTTTopic string `toml:"short_mqtt_topic,omitempty"`
	LongMQTTTopic  string `toml:"long_mqtt_topic,omitempty"`
	ShortLedEffect string `toml:"short_led_effect,omitempty"`
	LongLedEffect  string `toml:"long_led_effect,omitempty"`
	Gpio           int    `toml:"gpio"`
}

// Buttons configures the GPIO chip and press classification thresholds
// shared by all buttons.
type Buttons struct {
	Chip              string   `toml:"chip"`
	Entries           []Button `toml:"button,omitempty"`
	DebounceMs        int      `toml:"debounce_ms"          validate:"min=1"`
	LongPressMs       int      `toml:"long_press_ms"        validate:"min=1"`
	MinIntervalMs     int      `toml:"min_interval_ms"      validate:"min=0"`
	RateLimitWindowMs int      `toml:"rate_limit_window_ms" validate:"min=1"`
	MaxPerWindow      int      `toml:"max_per_window"       validate:"min=1"`
	ActiveLow         bool     `toml:"active_low"`
}

// API configures the HTTP API server.
type API struct {
	Port int `toml:"port" validate:"min=1,max=65535"`
}

// MQTT configures the broker connection. InboxTopic receives remote messages
// for local printing; an empty broker disables MQTT entirely.
type MQTT struct {
	Broker     string `toml:"broker,omitempty"`
	Username   string `toml:"username,omitempty"`
	Password   string `toml:"password,omitempty"`
	InboxTopic string `toml:"inbox_topic,omitempty"`
}

// UnbiddenInk configures the scheduled AI-content job.
type UnbiddenInk struct {
	Prompt           string `toml:"prompt,omitempty"`
	Endpoint         string `toml:"endpoint,omitempty"`
	Token            string `toml:"token,omitempty"`
	StartHour        int    `toml:"start_hour"        validate:"min=0,max=23"`
	EndHour          int    `toml:"end_hour"          validate:"min=0,max=24"`
	FrequencyMinutes int    `toml:"frequency_minutes" validate:"min=1"`
	Enabled          bool   `toml:"enabled"`
}

// BaseDefaults is the configuration written to disk on first boot.
var BaseDefaults = Values{
	ConfigSchema: SchemaVersion,
	DeviceName:   "scribe",
	Printer: Printer{
		Device:          "/dev/ttyAMA0",
		HeatingDots:     10,
		HeatingTime:     150,
		HeatingInterval: 250,
	},
	Buttons: Buttons{
		Chip:              "gpiochip0",
		ActiveLow:         true,
		DebounceMs:        50,
		LongPressMs:       2000,
		MinIntervalMs:     5000,
		RateLimitWindowMs: 60000,
		MaxPerWindow:      10,
	},
	API: API{
		Port: 7412,
	},
	UnbiddenInk: UnbiddenInk{
		StartHour:        8,
		EndHour:          22,
		FrequencyMinutes: 120,
	},
}

// Instance is a live view of the configuration, safe for concurrent use.
type Instance struct {
	cfgPath  string
	vals     Values
	defaults Values
	mu       syncutil.RWMutex
}

var validate = validator.New()

// NewConfig loads the config file in configDir, creating it from defaults
// if it does not exist. The SCRIBE_CFG environment variable overrides the
// file path.
func NewConfig(configDir string, defaults Values) (*Instance, error) {
	cfgPath := os.Getenv(CfgEnv)
	if cfgPath == "" {
		cfgPath = filepath.Join(configDir, CfgFile)
	}

	cfg := Instance{
		cfgPath:  cfgPath,
		vals:     defaults,
		defaults: defaults,
	}

	if _, err := os.Stat(cfgPath); os.IsNotExist(err) {
		log.Info().Msg("saving new default config to disk")

		if err := os.MkdirAll(filepath.Dir(cfgPath), 0o750); err != nil {
			return nil, fmt.Errorf("failed to create config directory: %w", err)
		}

		if err := cfg.Save(); err != nil {
			return nil, err
		}
	}

	if err := cfg.Load(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Load reads the config file from disk, replacing the current values.
func (c *Instance) Load() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cfgPath == "" {
		return errors.New("config path not set")
	}

	data, err := os.ReadFile(c.cfgPath)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	// Start with defaults, then unmarshal file values on top, so fields
	// missing from the file retain their default values.
	newVals := c.defaults
	if err := toml.Unmarshal(data, &newVals); err != nil {
		return fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if newVals.ConfigSchema != SchemaVersion {
		log.Error().Msgf(
			"schema version mismatch: got %d, expecting %d",
			newVals.ConfigSchema, SchemaVersion,
		)
		return errors.New("schema version mismatch")
	}

	if err := validate.Struct(&newVals); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	c.vals = newVals
	return nil
}

// Save writes the current values to disk.
func (c *Instance) Save() error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.cfgPath == "" {
		return errors.New("config path not set")
	}

	data, err := toml.Marshal(&c.vals)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(c.cfgPath, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// SetValues validates and replaces the current values without touching disk.
func (c *Instance) SetValues(vals Values) error {
	if err := validate.Struct(&vals); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	vals.ConfigSchema = SchemaVersion
	c.vals = vals
	return nil
}

// Values returns a copy of the current configuration.
func (c *Instance) Values() Values {
	c.mu.RLock()
	defer c.mu.RUnlock()
	vals := c.vals
	vals.Buttons.Entries = append([]Button(nil), c.vals.Buttons.Entries...)
	vals.Memos = append([]string(nil), c.vals.Memos...)
	return vals
}

// Path returns the config file path.
func (c *Instance) Path() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.cfgPath
}

func (c *Instance) DeviceName() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.DeviceName
}

func (c *Instance) DeviceOwner() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.DeviceOwner
}

func (c *Instance) DebugLogging() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.DebugLogging
}

func (c *Instance) Printer() Printer {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.Printer
}

func (c *Instance) Buttons() Buttons {
	c.mu.RLock()
	defer c.mu.RUnlock()
	btns := c.vals.Buttons
	btns.Entries = append([]Button(nil), c.vals.Buttons.Entries...)
	return btns
}

// Button returns the configuration for one button by index.
func (c *Instance) Button(idx int) (Button, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if idx < 0 || idx >= len(c.vals.Buttons.Entries) {
		return Button{}, false
	}
	return c.vals.Buttons.Entries[idx], true
}

func (c *Instance) APIPort() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.API.Port
}

func (c *Instance) MQTT() MQTT {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.MQTT
}

func (c *Instance) MQTTEnabled() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.MQTT.Broker != ""
}

func (c *Instance) UnbiddenInk() UnbiddenInk {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.UnbiddenInk
}

// Memo returns the stored text for a 1-based memo slot, or "" for an
// unset or out-of-range slot.
func (c *Instance) Memo(slot int) string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if slot < 1 || slot > len(c.vals.Memos) {
		return ""
	}
	return c.vals.Memos[slot-1]
}
