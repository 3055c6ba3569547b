package extract

import (
	"bytes"
	"strconv"
	"strings"

	"golang.org/x/text/encoding/charmap"

	"github.com/lexcorpus/lexcorpus"
)

// rtfSkipDestinations are group destinations that hold no document text.
var rtfSkipDestinations = map[string]bool{
	"fonttbl":           true,
	"colortbl":          true,
	"stylesheet":        true,
	"info":              true,
	"pict":              true,
	"object":            true,
	"themedata":         true,
	"listtable":         true,
	"listoverridetable": true,
	"generator":         true,
}

// extractRTF interprets enough of RTF to recover plain text: paragraph and
// line controls become newlines, hex escapes decode through Windows-1252,
// non-text destination groups are skipped wholesale.
func extractRTF(part []byte) (string, error) {
	if isLegacyDOC(part) {
		return "", ErrLegacyDOC
	}
	body := bytes.TrimLeft(part, " \t\r\n")
	if !bytes.HasPrefix(body, []byte(`{\rtf`)) {
		return "", lexcorpus.Errorf(lexcorpus.EPARSE, "not an rtf document")
	}

	var out strings.Builder
	i := 0
	for i < len(body) {
		switch c := body[i]; c {
		case '{':
			if end, skip := skippedGroupEnd(body, i); skip {
				i = end
				continue
			}
			i++
		case '}':
			i++
		case '\\':
			i = rtfControl(body, i, &out)
		case '\r', '\n':
			// Raw line breaks in the file are formatting, not content.
			i++
		default:
			if c >= 0x80 {
				out.WriteRune(charmap.Windows1252.DecodeByte(c))
			} else {
				out.WriteByte(c)
			}
			i++
		}
	}
	return out.String(), nil
}

// skippedGroupEnd reports whether the group opening at i is a non-text
// destination, and if so where it ends. Groups marked \* are unknown
// destinations and are skipped per the format's own rule.
func skippedGroupEnd(b []byte, i int) (int, bool) {
	j := i + 1
	if j >= len(b) || b[j] != '\\' {
		return 0, false
	}
	j++
	if j < len(b) && b[j] == '*' {
		return matchingBrace(b, i), true
	}
	k := j
	for k < len(b) && isRTFLetter(b[k]) {
		k++
	}
	word := string(b[j:k])
	if rtfSkipDestinations[word] || strings.HasPrefix(word, "header") || strings.HasPrefix(word, "footer") {
		return matchingBrace(b, i), true
	}
	return 0, false
}

// matchingBrace returns the index just past the brace closing the group that
// opens at start. Escaped braces and hex escapes do not affect nesting.
func matchingBrace(b []byte, start int) int {
	depth := 0
	i := start
	for i < len(b) {
		switch b[i] {
		case '\\':
			if i+1 < len(b) && b[i+1] == '\'' {
				i += 4
			} else {
				i += 2
			}
		case '{':
			depth++
			i++
		case '}':
			depth--
			i++
			if depth == 0 {
				return i
			}
		default:
			i++
		}
	}
	return len(b)
}

// rtfControl consumes the control word or symbol starting at i and writes its
// text effect, returning the index of the next unconsumed byte.
func rtfControl(b []byte, i int, out *strings.Builder) int {
	j := i + 1
	if j >= len(b) {
		return len(b)
	}

	if !isRTFLetter(b[j]) {
		switch b[j] {
		case '\'':
			if j+2 < len(b) {
				if v, err := strconv.ParseUint(string(b[j+1:j+3]), 16, 8); err == nil {
					out.WriteRune(charmap.Windows1252.DecodeByte(byte(v)))
					return j + 3
				}
			}
			return j + 1
		case '{', '}', '\\':
			out.WriteByte(b[j])
		case '~':
			out.WriteByte(' ')
		case '_':
			out.WriteByte('-')
		}
		return j + 1
	}

	k := j
	for k < len(b) && isRTFLetter(b[k]) {
		k++
	}
	word := string(b[j:k])

	paramStart := k
	if k < len(b) && b[k] == '-' {
		k++
	}
	for k < len(b) && isRTFDigit(b[k]) {
		k++
	}
	param := string(b[paramStart:k])

	// A single space after a control word is its delimiter, not content.
	if k < len(b) && b[k] == ' ' {
		k++
	}

	switch word {
	case "par", "line", "sect", "page", "row":
		out.WriteByte('\n')
	case "tab":
		out.WriteByte('\t')
	case "cell":
		out.WriteString("  ")
	case "emdash":
		out.WriteRune('—')
	case "endash":
		out.WriteRune('–')
	case "lquote":
		out.WriteRune('‘')
	case "rquote":
		out.WriteRune('’')
	case "ldblquote":
		out.WriteRune('“')
	case "rdblquote":
		out.WriteRune('”')
	case "bullet":
		out.WriteRune('•')
	case "emspace", "enspace", "qmspace":
		out.WriteByte(' ')
	case "u":
		n, err := strconv.Atoi(param)
		if err != nil {
			return k
		}
		if n < 0 {
			n += 65536
		}
		out.WriteRune(rune(n))
		// Skip the ANSI fallback character that follows a unicode escape.
		if k < len(b) {
			if b[k] == '\\' && k+1 < len(b) && b[k+1] == '\'' {
				k += 4
			} else if b[k] != '{' && b[k] != '}' && b[k] != '\\' {
				k++
			}
		}
	}
	return k
}

func isRTFLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isRTFDigit(c byte) bool {
	return c >= '0' && c <= '9'
}
