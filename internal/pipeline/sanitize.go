package pipeline

import (
	"strconv"
	"strings"
	"unicode/utf16"

	"go.uber.org/zap"
)

// DefaultScore is returned when no usable score can be extracted.
const DefaultScore = 50

// Clean strips the backend's repr-style wrapper from generated text: a
// content="..." (or content='...') envelope terminated by a matching
// `, thinking=None` marker, with literal escape sequences decoded. Text that
// does not match the pattern, or whose payload fails to decode, is returned
// unchanged. This keeps internal wrapper formatting out of the report without
// ever rejecting input.
func Clean(text string) string {
	for _, quote := range []string{`"`, `'`} {
		pattern := "content=" + quote
		idx := strings.Index(text, pattern)
		if idx < 0 {
			continue
		}
		start := idx + len(pattern)
		end := strings.LastIndex(text[start:], quote+", thinking=None")
		if end < 0 {
			continue
		}
		if decoded, ok := unescape(text[start : start+end]); ok {
			return decoded
		}
	}
	return text
}

// ExtractScore scans text left to right for maximal digit runs and returns
// the first value inside [1,100]. Runs outside the range (or too large to
// parse) are skipped; when nothing qualifies the default applies. The first
// in-range match wins, not the largest.
func ExtractScore(text string) int {
	for i := 0; i < len(text); {
		if !isDigit(text[i]) {
			i++
			continue
		}
		j := i
		for j < len(text) && isDigit(text[j]) {
			j++
		}
		if n, err := strconv.Atoi(text[i:j]); err == nil && n >= 1 && n <= 100 {
			return n
		}
		i = j
	}
	zap.L().Warn("no valid score in generated output, using default",
		zap.Int("default", DefaultScore),
	)
	return DefaultScore
}

func isDigit(b byte) bool {
	return b >= '0' && b <= '9'
}

// unescape decodes backslash escape sequences in a repr-style payload.
// Unrecognized sequences and raw characters pass through verbatim; only a
// truncated escape or a malformed \u / \x sequence fails the decode.
func unescape(s string) (string, bool) {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); {
		c := s[i]
		if c != '\\' {
			b.WriteByte(c)
			i++
			continue
		}
		if i+1 >= len(s) {
			return "", false
		}
		switch s[i+1] {
		case 'n':
			b.WriteByte('\n')
			i += 2
		case 't':
			b.WriteByte('\t')
			i += 2
		case 'r':
			b.WriteByte('\r')
			i += 2
		case 'a':
			b.WriteByte('\a')
			i += 2
		case 'b':
			b.WriteByte('\b')
			i += 2
		case 'f':
			b.WriteByte('\f')
			i += 2
		case 'v':
			b.WriteByte('\v')
			i += 2
		case '0':
			b.WriteByte(0)
			i += 2
		case '\\', '\'', '"':
			b.WriteByte(s[i+1])
			i += 2
		case 'x':
			if i+4 > len(s) {
				return "", false
			}
			n, err := strconv.ParseUint(s[i+2:i+4], 16, 8)
			if err != nil {
				return "", false
			}
			b.WriteByte(byte(n))
			i += 4
		case 'u':
			r, consumed, ok := decodeUnicodeEscape(s[i:])
			if !ok {
				return "", false
			}
			b.WriteRune(r)
			i += consumed
		default:
			// Python's unicode_escape leaves unknown escapes intact.
			b.WriteByte('\\')
			b.WriteByte(s[i+1])
			i += 2
		}
	}
	return b.String(), true
}

// decodeUnicodeEscape decodes \uXXXX at the start of s, joining surrogate
// pairs when a low surrogate escape follows.
func decodeUnicodeEscape(s string) (r rune, consumed int, ok bool) {
	if len(s) < 6 {
		return 0, 0, false
	}
	hi, err := strconv.ParseUint(s[2:6], 16, 32)
	if err != nil {
		return 0, 0, false
	}
	r = rune(hi)
	consumed = 6
	if utf16.IsSurrogate(r) && len(s) >= 12 && s[6] == '\\' && s[7] == 'u' {
		lo, err := strconv.ParseUint(s[8:12], 16, 32)
		if err == nil {
			if combined := utf16.DecodeRune(r, rune(lo)); combined != 0xFFFD {
				return combined, 12, true
			}
		}
	}
	return r, consumed, true
}
