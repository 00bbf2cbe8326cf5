package utils

import (
	"strings"
	"unicode/utf8"
)

// Tokenize splits s on whitespace and lowercases every token.
func Tokenize(s string) []string {
	fields := strings.Fields(s)
	for i, f := range fields {
		fields[i] = strings.ToLower(f)
	}
	return fields
}

// RuneLen returns the number of characters in s.
func RuneLen(s string) int {
	return utf8.RuneCountInString(s)
}

// TruncateRunes cuts s to at most n characters.
func TruncateRunes(s string, n int) string {
	if n <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n])
}

// EscapeLike escapes the LIKE wildcards in s using backslash.
func EscapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
