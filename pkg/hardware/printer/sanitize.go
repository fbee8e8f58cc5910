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

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// The printer firmware only renders printable ASCII. Typographic punctuation
// common in generated content is mapped to its ASCII equivalent before the
// diacritic strip so it survives sanitization.
var punctReplacer = strings.NewReplacer(
	"‘", "'", // left single quote
	"’", "'", // right single quote
	"“", `"`, // left double quote
	"”", `"`, // right double quote
	"–", "-", // en dash
	"—", "-", // em dash
	"…", "...", // ellipsis
	" ", " ", // no-break space
	"×", "x", // multiplication sign
	"ß", "ss",
	"Æ", "AE",
	"æ", "ae",
	"Œ", "OE",
	"œ", "oe",
	"Ø", "O",
	"ø", "o",
	"Đ", "D",
	"đ", "d",
	"Ł", "L",
	"ł", "l",
)

// stripMarks decomposes accented characters and removes the combining
// marks, so "café" prints as "cafe".
var stripMarks = transform.Chain(
	norm.NFD,
	runes.Remove(runes.In(unicode.Mn)),
	norm.NFC,
)

// Sanitize reduces text to the printer's supported character set. Accented
// letters are transliterated, typographic punctuation becomes ASCII, and
// anything still outside printable ASCII (except newline) is dropped.
func Sanitize(text string) string {
	text = punctReplacer.Replace(text)

	if out, _, err := transform.String(stripMarks, text); err == nil {
		text = out
	}

	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		if r == '\n' || (r >= 0x20 && r < 0x7f) {
			b.WriteRune(r)
		}
	}
	return b.String()
}
