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

import (
	"fmt"

	"github.com/warthog618/go-gpiocdev"
)

// Line is the subset of a GPIO input line used by the scanner, split out so
// tests can script pin levels without hardware.
type Line interface {
	Value() (int, error)
	Close() error
}

// RequestLineFunc requests a GPIO line as an input with bias matching the
// configured polarity.
type RequestLineFunc func(chip string, offset int, activeLow bool) (Line, error)

func requestLine(chip string, offset int, activeLow bool) (Line, error) {
	// Active-low buttons short to ground and idle on the pull-up;
	// active-high buttons are the inverse.
	bias := gpiocdev.WithPullDown
	if activeLow {
		bias = gpiocdev.WithPullUp
	}

	line, err := gpiocdev.RequestLine(chip, offset, gpiocdev.AsInput, bias)
	if err != nil {
		return nil, fmt.Errorf("failed to request gpio line %d on %s: %w", offset, chip, err)
	}
	return line, nil
}
