package lexcorpus

import "unicode"

// AlphabeticCount returns the number of letter runes in s. The minimum
// content filter and corpus validation measure text length this way, so
// punctuation-only placeholder pages never count as content.
func AlphabeticCount(s string) int {
	n := 0
	for _, r := range s {
		if unicode.IsLetter(r) {
			n++
		}
	}
	return n
}
