package extract

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

// Normalize applies the cleaning sequence to extracted text, in order:
// mojibake repair, control-character stripping, blank-line collapsing. The
// minimum content filter runs separately so callers can distinguish short
// text from clean text.
func Normalize(s string) string {
	s = RepairMojibake(s)
	s = stripControls(s)
	s = collapseBlankLines(s)
	return s
}

// mojibakeMarkers are byte sequences produced when UTF-8 text is read as
// Windows-1252. Legal sources mixing legacy backends and modern frontends do
// this to curly quotes, dashes, and section signs.
var mojibakeMarkers = []string{
	"â€", "Ã¢", "Â§", "Â·", "Â°", "Â ", "Ã©", "Ã¨", "Ã¡", "Ã³", "Ã§", "Ã±", "Ã¼", "Ã¤", "Ã¶",
}

// RepairMojibake reverses UTF-8-read-as-Windows-1252 corruption by encoding
// the text back to Windows-1252 bytes and reinterpreting them as UTF-8. A
// round trip is kept only when it yields valid UTF-8 without increasing the
// marker count, so clean text passes through untouched; doubly-corrupted
// text takes two round trips.
func RepairMojibake(s string) string {
	for range 3 {
		before := countMarkers(s)
		if before == 0 {
			return s
		}
		encoded, err := charmap.Windows1252.NewEncoder().String(s)
		if err != nil {
			// Runes outside Windows-1252 mean genuine non-Latin text, not
			// mojibake.
			return s
		}
		if !utf8.ValidString(encoded) || countMarkers(encoded) > before {
			return s
		}
		s = encoded
	}
	return s
}

func countMarkers(s string) int {
	n := 0
	for _, m := range mojibakeMarkers {
		n += strings.Count(s, m)
	}
	return n
}

// stripControls removes control and invisible-format characters, keeping
// newline and tab. CRLF becomes LF and NBSP becomes a plain space first so
// later whitespace handling sees uniform input.
func stripControls(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.Map(func(r rune) rune {
		switch {
		case r == '\n' || r == '\t':
			return r
		case r == '\r':
			return '\n'
		case r == ' ':
			return ' '
		case unicode.IsControl(r) || unicode.Is(unicode.Cf, r):
			return -1
		}
		return r
	}, s)
}

// collapseBlankLines trims trailing whitespace per line, collapses runs of
// blank lines to a single blank line, and drops leading and trailing blank
// lines. Leading indentation is left alone: it carries quotation and list
// structure.
func collapseBlankLines(s string) string {
	lines := strings.Split(s, "\n")
	out := make([]string, 0, len(lines))
	blank := false
	for _, line := range lines {
		line = strings.TrimRight(line, " \t")
		if line == "" {
			blank = true
			continue
		}
		if blank && len(out) > 0 {
			out = append(out, "")
		}
		blank = false
		out = append(out, line)
	}
	return strings.Join(out, "\n")
}
