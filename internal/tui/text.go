package tui

import (
	"strings"

	"github.com/mattn/go-runewidth"
)

// truncate shortens s to the given display width, marking the cut with "...".
func truncate(s string, width int) string {
	if width <= 0 {
		return ""
	}
	if runewidth.StringWidth(s) <= width {
		return s
	}
	if width < 3 {
		return runewidth.Truncate(s, width, "")
	}
	return runewidth.Truncate(s, width, "...")
}

// cell truncates then pads s to exactly width display columns.
func cell(s string, width int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	return runewidth.FillRight(truncate(s, width), width)
}

func bar(n, max, width int) string {
	if max <= 0 || width <= 0 || n <= 0 {
		return ""
	}
	w := n * width / max
	if w == 0 {
		w = 1
	}
	return strings.Repeat("█", w)
}
