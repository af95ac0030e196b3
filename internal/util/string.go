// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package util

import (
	"strings"
	"unicode/utf8"

	"github.com/mattn/go-runewidth"
)

// StringWidth returns the display width of s in terminal cells.
func StringWidth(s string) int {
	return runewidth.StringWidth(s)
}

// TruncateWidth cuts s to at most maxWidth cells, ending in "..." when
// something was removed and there is room for it.
func TruncateWidth(s string, maxWidth int) string {
	if maxWidth <= 0 {
		return ""
	}
	if runewidth.StringWidth(s) <= maxWidth {
		return s
	}
	if maxWidth <= 3 {
		return runewidth.Truncate(s, maxWidth, "")
	}
	return runewidth.Truncate(s, maxWidth, "...")
}

// WrapWidth breaks s into lines no wider than width cells. Words longer than
// width are split. Existing newlines are kept.
func WrapWidth(s string, width int) []string {
	if width <= 0 {
		return []string{s}
	}

	var lines []string
	for _, para := range strings.Split(s, "\n") {
		var line strings.Builder
		lineWidth := 0
		start := len(lines)

		for _, word := range strings.Fields(para) {
			for runewidth.StringWidth(word) > width {
				if lineWidth > 0 {
					lines = append(lines, line.String())
					line.Reset()
					lineWidth = 0
				}
				head := runewidth.Truncate(word, width, "")
				if head == "" {
					// A single rune wider than the line.
					_, size := utf8.DecodeRuneInString(word)
					head = word[:size]
				}
				lines = append(lines, head)
				word = word[len(head):]
			}

			w := runewidth.StringWidth(word)
			if w == 0 {
				continue
			}
			switch {
			case lineWidth == 0:
				line.WriteString(word)
				lineWidth = w
			case lineWidth+1+w <= width:
				line.WriteByte(' ')
				line.WriteString(word)
				lineWidth += 1 + w
			default:
				lines = append(lines, line.String())
				line.Reset()
				line.WriteString(word)
				lineWidth = w
			}
		}
		if lineWidth > 0 || len(lines) == start {
			lines = append(lines, line.String())
		}
	}
	return lines
}
