package keyword

import (
	"strings"
	"unicode"
)

// Tokenize splits text into normalized tokens (lowercase letter/digit runs)
// of at least minLen runes. Tokens made only of digits are dropped.
func Tokenize(text string, minLen int) []string {
	f := func(c rune) bool {
		return !unicode.IsLetter(c) && !unicode.IsNumber(c)
	}
	fields := strings.FieldsFunc(text, f)
	var tokens []string
	for _, field := range fields {
		if len([]rune(field)) < minLen || allDigits(field) {
			continue
		}
		tokens = append(tokens, strings.ToLower(field))
	}
	return tokens
}

func allDigits(s string) bool {
	for _, r := range s {
		if !unicode.IsNumber(r) {
			return false
		}
	}
	return true
}
