package tiletools

import (
	"strings"
	"unicode"
)

const maxSafeNameLen = 200

// SafeName maps an arbitrary flight identifier to a filesystem-safe name.
// Keeps letters, digits, space, hyphen and underscore, replaces everything
// else with underscore, then replaces spaces with underscores. Empty
// results fall back to "flight". Output is capped at 200 runes.
// The mapping is idempotent but not injective: distinct identifiers can
// collide, callers must detect that.
func SafeName(value string) string {
	var b strings.Builder
	for _, r := range value {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == ' ' || r == '-' || r == '_' {
			b.WriteRune(r)
		} else {
			b.WriteRune('_')
		}
	}
	safe := strings.TrimSpace(b.String())
	safe = strings.ReplaceAll(safe, " ", "_")
	if safe == "" {
		safe = "flight"
	}
	runes := []rune(safe)
	if len(runes) > maxSafeNameLen {
		safe = string(runes[:maxSafeNameLen])
	}
	return safe
}
