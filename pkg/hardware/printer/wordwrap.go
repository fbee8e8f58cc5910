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

package printer

import "strings"

// Wrap splits text into physical printer lines of at most width characters.
// Logical lines are split on \n and empty ones are preserved for vertical
// spacing. Long lines break at the nearest space before the limit, or hard
// at the limit when a word has no break point, and leading spaces are
// dropped when a wrapped line continues.
//
// Lines are returned in reading order; the driver emits them reversed to
// compensate for the printer's 180° rotation mode.
func Wrap(text string, width int) []string {
	lines := make([]string, 0, 20)

	for _, logical := range strings.Split(text, "\n") {
		if logical == "" {
			lines = append(lines, "")
			continue
		}

		lineStart := 0
		for lineStart < len(logical) {
			lineEnd := lineStart + width

			if lineEnd >= len(logical) {
				lines = append(lines, logical[lineStart:])
				break
			}

			breakPoint := strings.LastIndexByte(logical[:lineEnd+1], ' ')
			if breakPoint <= lineStart {
				breakPoint = lineEnd
			}

			lines = append(lines, logical[lineStart:breakPoint])

			lineStart = breakPoint
			for lineStart < len(logical) && logical[lineStart] == ' ' {
				lineStart++
			}
		}
	}

	return lines
}
