// Package match implements the rule-based intent matching shared by the
// domain handlers: case-insensitive substring containment, first match wins.
package match

import "strings"

// Any reports whether message contains any of the words. The caller passes
// the already-lowercased message; words must be lowercase.
func Any(lowerMessage string, words ...string) bool {
	for _, w := range words {
		if strings.Contains(lowerMessage, w) {
			return true
		}
	}
	return false
}

// First returns the first phrase whose lowercase form occurs in the message,
// preserving the phrase's original casing. Order is significant.
func First(lowerMessage string, phrases []string) (string, bool) {
	for _, p := range phrases {
		if strings.Contains(lowerMessage, strings.ToLower(p)) {
			return p, true
		}
	}
	return "", false
}
