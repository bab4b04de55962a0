package assemble

import (
	"strconv"
	"strings"
	"unicode"
)

// stripComment drops everything from the first ';' or '#' onward.
func stripComment(line string) string {
	if i := strings.IndexAny(line, ";#"); i >= 0 {
		return line[:i]
	}
	return line
}

// splitLabel splits a "label: rest" line into the label (if any) and
// the remainder. A line with no ':' has no label.
func splitLabel(line string) (label string, rest string, ok bool) {
	i := strings.IndexByte(line, ':')
	if i < 0 {
		return "", line, false
	}
	label = strings.TrimSpace(line[:i])
	return label, line[i+1:], true
}

// skipSpace returns str with any leading whitespace removed.
func skipSpace(str string) string {
	for i := range str {
		if !unicode.IsSpace(rune(str[i])) {
			return str[i:]
		}
	}
	return ""
}

// splitArgs splits a comma-separated operand list into exactly want
// trimmed fields, or fails.
func splitArgs(rest string, want int) ([]string, bool) {
	rest = strings.TrimSpace(rest)
	if rest == "" {
		return nil, want == 0
	}
	parts := strings.Split(rest, ",")
	if len(parts) != want {
		return nil, false
	}
	out := make([]string, len(parts))
	for i, p := range parts {
		out[i] = strings.TrimSpace(p)
	}
	return out, true
}

// parseRegister parses "r0".."r31" (case-insensitive), returning the
// register number.
func parseRegister(tok string) (uint32, bool) {
	if len(tok) < 2 {
		return 0, false
	}
	if tok[0] != 'r' && tok[0] != 'R' {
		return 0, false
	}
	n, err := strconv.Atoi(tok[1:])
	if err != nil || n < 0 || n > 31 {
		return 0, false
	}
	return uint32(n), true
}

// parseIntLiteral parses a decimal, 0x-hex, negative, or 'c' char
// literal into a signed 32-bit value.
func parseIntLiteral(tok string) (int32, bool) {
	if tok == "" {
		return 0, false
	}

	if len(tok) >= 3 && tok[0] == '\'' && tok[2] == '\'' {
		return int32(tok[1]), true
	}

	neg := false
	s := tok
	if strings.HasPrefix(s, "-") {
		neg = true
		s = s[1:]
	}

	var v int64
	var err error
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		v, err = strconv.ParseInt(s[2:], 16, 64)
	} else {
		v, err = strconv.ParseInt(s, 10, 64)
	}
	if err != nil {
		return 0, false
	}
	if neg {
		v = -v
	}
	return int32(v), true
}
