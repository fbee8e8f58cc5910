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

package buttons

import "errors"

// ErrInvalidGpio marks a configured pin that is outside the board's
// general-purpose range or reserved for another function. The button is
// left permanently inert rather than silently remapped.
var ErrInvalidGpio = errors.New("invalid gpio pin")

type pinClass int

const (
	pinSafe pinClass = iota
	pinReserved
)

type pinInfo struct {
	desc  string
	class pinClass
}

// BCM GPIO layout on the 40-pin header. Pins absent from the map do not
// exist as general-purpose lines on this board.
var boardPins = map[int]pinInfo{
	0:  {class: pinReserved, desc: "reserved: HAT ID EEPROM (ID_SD)"},
	1:  {class: pinReserved, desc: "reserved: HAT ID EEPROM (ID_SC)"},
	2:  {class: pinSafe, desc: "safe (I2C1 SDA, fixed pull-up)"},
	3:  {class: pinSafe, desc: "safe (I2C1 SCL, fixed pull-up)"},
	4:  {class: pinSafe, desc: "safe"},
	5:  {class: pinSafe, desc: "safe"},
	6:  {class: pinSafe, desc: "safe"},
	7:  {class: pinSafe, desc: "safe (SPI0 CE1)"},
	8:  {class: pinSafe, desc: "safe (SPI0 CE0)"},
	9:  {class: pinSafe, desc: "safe (SPI0 MISO)"},
	10: {class: pinSafe, desc: "safe (SPI0 MOSI)"},
	11: {class: pinSafe, desc: "safe (SPI0 SCLK)"},
	12: {class: pinSafe, desc: "safe"},
	13: {class: pinSafe, desc: "safe"},
	14: {class: pinReserved, desc: "reserved: UART0 TX (printer)"},
	15: {class: pinReserved, desc: "reserved: UART0 RX (printer)"},
	16: {class: pinSafe, desc: "safe"},
	17: {class: pinSafe, desc: "safe"},
	18: {class: pinSafe, desc: "safe (PCM CLK)"},
	19: {class: pinSafe, desc: "safe (PCM FS)"},
	20: {class: pinSafe, desc: "safe"},
	21: {class: pinSafe, desc: "safe"},
	22: {class: pinSafe, desc: "safe"},
	23: {class: pinSafe, desc: "safe"},
	24: {class: pinSafe, desc: "safe"},
	25: {class: pinSafe, desc: "safe"},
	26: {class: pinSafe, desc: "safe"},
	27: {class: pinSafe, desc: "safe"},
}

// ValidGpio reports whether pin may be used for a button.
func ValidGpio(pin int) bool {
	info, ok := boardPins[pin]
	return ok && info.class == pinSafe
}

// GpioDescription returns a human-readable description of the pin for
// logging, or "unknown pin" if it does not exist on this board.
func GpioDescription(pin int) string {
	if info, ok := boardPins[pin]; ok {
		return info.desc
	}
	return "unknown pin"
}
