package jsonfix

import "strings"

// Repair applies the deterministic repair passes in order. Each pass is a
// pure function; Repair is their composition.
func Repair(span string) string {
	return FixUnescapedQuotes(EscapeControlInStrings(StripControl(span)))
}

// StripControl removes control characters below 0x20 except newline, tab and
// carriage return, which EscapeControlInStrings handles separately. Models
// occasionally emit stray NULs and escape bytes mid-string.
func StripControl(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r < 0x20 && r != '\n' && r != '\t' && r != '\r' {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// EscapeControlInStrings rewrites raw newlines, tabs and carriage returns
// that occur inside JSON string literals to their escaped form. Outside
// string literals they are legal whitespace and left alone.
func EscapeControlInStrings(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 16)
	inString := false
	escaped := false
	for _, r := range s {
		if inString {
			switch {
			case escaped:
				escaped = false
				b.WriteRune(r)
				continue
			case r == '\\':
				escaped = true
				b.WriteRune(r)
				continue
			case r == '"':
				inString = false
				b.WriteRune(r)
				continue
			case r == '\n':
				b.WriteString(`\n`)
				continue
			case r == '\t':
				b.WriteString(`\t`)
				continue
			case r == '\r':
				b.WriteString(`\r`)
				continue
			}
			b.WriteRune(r)
			continue
		}
		if r == '"' {
			inString = true
		}
		b.WriteRune(r)
	}
	return b.String()
}

// FixUnescapedQuotes escapes double quotes that appear inside string
// literals. The heuristic: a quote inside a string only terminates it when
// the next non-space character is a JSON structural delimiter (comma, colon,
// closing brace or bracket, or end of input); any other quote is interior
// and gets escaped. This recovers strings like "he said "buy" here".
func FixUnescapedQuotes(s string) string {
	runes := []rune(s)
	var b strings.Builder
	b.Grow(len(s) + 8)
	inString := false
	escaped := false
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		if !inString {
			if r == '"' {
				inString = true
			}
			b.WriteRune(r)
			continue
		}
		switch {
		case escaped:
			escaped = false
			b.WriteRune(r)
		case r == '\\':
			escaped = true
			b.WriteRune(r)
		case r == '"':
			if terminatesString(runes, i+1) {
				inString = false
				b.WriteRune(r)
			} else {
				b.WriteString(`\"`)
			}
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

func terminatesString(runes []rune, from int) bool {
	for i := from; i < len(runes); i++ {
		switch runes[i] {
		case ' ', '\t', '\n', '\r':
			continue
		case ',', ':', '}', ']':
			return true
		default:
			return false
		}
	}
	return true
}
