// Package keyword canonicalizes the free-text keyword field of a listing.
//
// The canonical form is a comma-joined list of lowercase tokens built only
// from ASCII letters and Portuguese accented letters, with no empty or
// repeated tokens. Normalize is idempotent.
package keyword

import (
	"strings"
	"unicode"
)

// Separator joins tokens in the canonical form.
const Separator = ","

const accented = "áàâãéêíóôõúüçÁÀÂÃÉÊÍÓÔÕÚÜÇ"

// Normalize returns the canonical keyword string for raw.
// Empty or unusable input yields "".
func Normalize(raw string) string {
	return strings.Join(Tokens(raw), Separator)
}

// Tokens returns the canonical keyword tokens for raw in first-seen order.
func Tokens(raw string) []string {
	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range raw {
		switch {
		case unicode.IsSpace(r):
			// whitespace is removed before anything else
		case r == ',' || IsLetter(r):
			b.WriteRune(r)
		default:
			b.WriteString(", ")
		}
	}

	parts := strings.Split(b.String(), Separator)
	tokens := make([]string, 0, len(parts))
	seen := make(map[string]struct{}, len(parts))
	for _, p := range parts {
		tok := strings.ToLower(strings.TrimSpace(p))
		if tok == "" {
			continue
		}
		if _, dup := seen[tok]; dup {
			continue
		}
		seen[tok] = struct{}{}
		tokens = append(tokens, tok)
	}
	return tokens
}

// IsLetter reports whether r may appear inside a keyword token.
func IsLetter(r rune) bool {
	if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') {
		return true
	}
	return strings.ContainsRune(accented, r)
}
