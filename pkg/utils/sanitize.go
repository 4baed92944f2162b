package utils

import (
	"regexp"
	"strings"
)

var invalidKeyChars = regexp.MustCompile(`[<>:"/\\|?*\x00-\x1F\s]`) // Characters invalid in filenames and store keys
var consecutiveUnderscores = regexp.MustCompile(`_+`)

const maxKeyLength = 100

// SanitizeKey cleans a string for use as a store-directory or key component
// (venue keys come from config and operator input).
func SanitizeKey(name string) string {
	sanitized := invalidKeyChars.ReplaceAllString(name, "_")
	sanitized = consecutiveUnderscores.ReplaceAllString(sanitized, "_")
	sanitized = strings.Trim(sanitized, "_ ")

	if len(sanitized) > maxKeyLength {
		sanitized = sanitized[:maxKeyLength]
		sanitized = strings.Trim(sanitized, "_ ")
	}

	if sanitized == "" {
		sanitized = "unnamed"
	}
	return strings.ToLower(sanitized)
}
