package cmap

import "strings"

// isLiteralToken reports whether a macro body token is a single C integer,
// floating-point or string literal. Anything else (identifiers, expressions,
// casts) is outside what the target can express as a constant.
func isLiteralToken(tok string) bool {
	if tok == "" {
		return false
	}
	if tok[0] == '"' {
		return len(tok) >= 2 && tok[len(tok)-1] == '"'
	}
	return isNumericLiteral(tok)
}

func isNumericLiteral(tok string) bool {
	s := strings.ToLower(tok)
	s = strings.TrimSuffix(s, "ull")
	s = strings.TrimSuffix(s, "ll")
	s = strings.TrimSuffix(s, "ul")
	s = strings.TrimSuffix(s, "lu")
	s = strings.TrimSuffix(s, "u")
	s = strings.TrimSuffix(s, "l")
	s = strings.TrimSuffix(s, "f")
	if s == "" {
		return false
	}

	if strings.HasPrefix(s, "0x") {
		return len(s) > 2 && allOf(s[2:], isHexDigit)
	}
	if strings.HasPrefix(s, "0b") {
		return len(s) > 2 && allOf(s[2:], func(c byte) bool { return c == '0' || c == '1' })
	}

	// Decimal integer or float: digits with at most one dot and an optional
	// exponent part.
	dots, digits := 0, 0
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= '0' && c <= '9':
			digits++
		case c == '.':
			dots++
			if dots > 1 {
				return false
			}
		case c == 'e':
			return digits > 0 && isExponent(s[i+1:])
		default:
			return false
		}
	}
	return digits > 0
}

func isExponent(s string) bool {
	if strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-") {
		s = s[1:]
	}
	return s != "" && allOf(s, func(c byte) bool { return c >= '0' && c <= '9' })
}

func isHexDigit(c byte) bool {
	return c >= '0' && c <= '9' || c >= 'a' && c <= 'f'
}

func allOf(s string, pred func(byte) bool) bool {
	for i := 0; i < len(s); i++ {
		if !pred(s[i]) {
			return false
		}
	}
	return true
}
