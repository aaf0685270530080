package illustraitor

import (
	"strings"
	"unicode/utf8"
)

// MaskRune replaces hidden characters in a displayed key.
const MaskRune = '•'

// KnownKeyPrefixes are the prefixes of keys the service is known to accept.
var KnownKeyPrefixes = []string{"sk-proj-", "sk-", "ilust_"}

// MaskKey returns a display copy of key showing only the first three and last
// four characters. Short keys are fully masked.
func MaskKey(key string) string {
	n := utf8.RuneCountInString(key)
	if n == 0 {
		return ""
	}
	if n <= 8 {
		return strings.Repeat(string(MaskRune), n)
	}
	runes := []rune(key)
	return string(runes[:3]) + strings.Repeat(string(MaskRune), n-7) + string(runes[n-4:])
}

// IsMasked reports whether key is a display copy produced by MaskKey.
// Such a string must never be sent to the service.
func IsMasked(key string) bool {
	return strings.ContainsRune(key, MaskRune)
}

// KeyHint returns a warning when key does not look like a known key format.
// It never rejects a key; an empty result means no warning.
func KeyHint(key string) string {
	for _, p := range KnownKeyPrefixes {
		if strings.HasPrefix(key, p) {
			return ""
		}
	}
	return "key does not start with a known prefix (" + strings.Join(KnownKeyPrefixes, ", ") + "); it was kept as entered"
}
