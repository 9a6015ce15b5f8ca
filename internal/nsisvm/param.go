package nsisvm

import (
	"strconv"
	"strings"
)

// param is one parsed System::Call parameter: [*]type[source][destination].
// Type tags are one character (v p b h i l m t w g k @), optionally
// pointer-prefixed or in the long &tN form. Source and destination are one
// of: "." ignored, "n" null, "s" stack, rN/RN register, a quoted literal or
// a numeric literal.
type param struct {
	typ         string
	source      string
	destination string
}

func (p param) isPointer() bool {
	return strings.HasPrefix(p.typ, "*")
}

// parseParam reads a single parameter specification
func parseParam(spec string) param {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return param{}
	}

	i := 0
	typ := ""
	if spec[i] == '*' {
		typ += "*"
		i++
	}
	if i < len(spec) && spec[i] == '&' {
		// long form: &vN, &iN, &l, &tN, &mN, &wN, &g16
		typ += "&"
		i++
		for i < len(spec) && (isAlpha(spec[i]) || isDigit(spec[i])) {
			typ += string(spec[i])
			i++
		}
	} else if i < len(spec) && isAlpha(spec[i]) {
		typ += string(spec[i])
		i++
	}

	source, destination := parseSourceAndDestination(strings.TrimSpace(spec[i:]))
	return param{typ: typ, source: source, destination: destination}
}

// parseSourceAndDestination splits the remainder after the type tag.
// Either part may be absent; "." normalizes to absent.
func parseSourceAndDestination(s string) (string, string) {
	if s == "" {
		return "", ""
	}

	source := ""
	i := 0
	switch c := s[0]; {
	case c == '\'' || c == '"' || c == '`':
		quote := c
		source += string(c)
		i++
		for i < len(s) {
			source += string(s[i])
			if s[i] == quote {
				i++
				break
			}
			i++
		}
	case c == '.' || c == 'n' || c == 's':
		source = string(c)
		i++
	case c == 'r' || c == 'R':
		source = string(c)
		i++
		for i < len(s) && isDigit(s[i]) {
			source += string(s[i])
			i++
		}
	case c == 'c' || c == 'd' || c == 'o' || c == 'e' || c == 'a':
		// special NSIS variables
		source = string(c)
		i++
	case isDigit(c) || c == '-':
		sawHexPrefix := false
	numberLoop:
		for i < len(s) {
			switch ch := s[i]; {
			case isDigit(ch) || ch == '-' || ch == '|':
				source += string(ch)
			case ch == 'x' || ch == 'X':
				source += string(ch)
				sawHexPrefix = true
			case sawHexPrefix && isHexDigit(ch):
				source += string(ch)
			default:
				break numberLoop
			}
			i++
		}
	}

	destination := ""
	rest := strings.TrimSpace(s[i:])
	if rest != "" {
		switch c := rest[0]; {
		case c == '.' || c == 'n' || c == 's':
			destination = string(c)
		case c == 'r' || c == 'R':
			destination = string(c)
			for j := 1; j < len(rest) && isDigit(rest[j]); j++ {
				destination += string(rest[j])
			}
		}
	}

	if source == "." {
		source = ""
	}
	if destination == "." {
		destination = ""
	}
	return source, destination
}

// parseParams splits the "(params)return" tail of a call specification
func parseParams(spec string) ([]param, *param) {
	open := strings.Index(spec, "(")
	if open < 0 {
		return nil, nil
	}
	end := strings.LastIndex(spec, ")")
	if end < 0 {
		return nil, nil
	}

	var params []param
	for _, part := range splitParams(spec[open+1 : end]) {
		params = append(params, parseParam(part))
	}

	retSpec := strings.TrimSpace(spec[end+1:])
	if retSpec == "" {
		return params, nil
	}
	ret := parseParam(retSpec)
	return params, &ret
}

// splitParams splits on commas while respecting quoted strings
func splitParams(s string) []string {
	var result []string
	var current strings.Builder
	inQuote := false
	var quoteChar byte

	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case inQuote:
			current.WriteByte(c)
			if c == quoteChar {
				inQuote = false
			}
		case c == '\'' || c == '"' || c == '`':
			inQuote = true
			quoteChar = c
			current.WriteByte(c)
		case c == ',':
			result = append(result, strings.TrimSpace(current.String()))
			current.Reset()
		default:
			current.WriteByte(c)
		}
	}
	if current.Len() > 0 {
		result = append(result, strings.TrimSpace(current.String()))
	}
	return result
}

// parseRegister maps a register name to its flat slot: r0-r19 address the
// slot directly, the R bank is offset by +10.
func parseRegister(reg string) (int, bool) {
	if len(reg) < 2 {
		return 0, false
	}
	first := reg[0]
	if first != 'r' && first != 'R' {
		return 0, false
	}
	num, err := strconv.Atoi(reg[1:])
	if err != nil || num < 0 {
		return 0, false
	}
	if first == 'R' {
		num += 10
	}
	if num >= RegisterCount {
		return 0, false
	}
	return num, true
}

// storeTo writes a value to a stack or register destination; null and
// absent destinations discard it.
func storeTo(state *State, dest, value string) {
	switch {
	case dest == "s":
		state.Push(value)
	case strings.HasPrefix(dest, "r") || strings.HasPrefix(dest, "R"):
		if idx, ok := parseRegister(dest); ok {
			state.SetVar(idx, value)
		}
	}
}

// sourceValue resolves a parameter source against the current state.
// Stack sources must already have been popped by the caller; popped holds
// that value.
func sourceValue(state *State, source, popped string) string {
	switch {
	case source == "":
		return ""
	case source == "s":
		return popped
	case source == "n":
		return ""
	case len(source) >= 2 && (source[0] == '\'' || source[0] == '"' || source[0] == '`'):
		return strings.Trim(source, string(source[0]))
	case source[0] == 'r' || source[0] == 'R':
		if idx, ok := parseRegister(source); ok {
			return state.Var(idx)
		}
		return ""
	default:
		return source
	}
}

func isAlpha(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func isHexDigit(c byte) bool {
	return isDigit(c) || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}
