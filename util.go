package main

import (
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
)

const shortIDAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// GenerateID returns a random UUID string for ships, players and items
func GenerateID() string {
	return uuid.NewString()
}

// Clamp restricts v to [min, max]
func Clamp(v, min, max float64) float64 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

// truncateRunes keeps at most n characters of s
func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

// cleanName truncates a client-supplied name and falls back to def when blank
func cleanName(s string, n int, def string) string {
	s = truncateRunes(s, n)
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}

// withinReach reports whether offset (dx, dy) is inside the interaction radius
func withinReach(dx, dy float64) bool {
	return dx*dx+dy*dy < InteractRadius*InteractRadius
}
