package payload

import (
	"math"
	"strconv"
	"strings"
	"unicode"
)

// Coerce interprets a string as a number.
//
// Surrounding whitespace is ignored. The words true/on/online map to 1 and
// false/off/offline map to 0, compared case-insensitively. Anything else must
// start with a decimal number, optionally followed by whitespace and a unit
// ("12.3 °C"). Empty input, hexadecimal notation, digit separators ("1_000")
// and non-finite values (nan, inf, infinity) fail.
func Coerce(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}

	switch {
	case strings.EqualFold(s, "true"), strings.EqualFold(s, "on"), strings.EqualFold(s, "online"):
		return 1, true
	case strings.EqualFold(s, "false"), strings.EqualFold(s, "off"), strings.EqualFold(s, "offline"):
		return 0, true
	}

	token := s
	if i := strings.IndexFunc(s, unicode.IsSpace); i >= 0 {
		token = s[:i]
	}
	if isHex(token) || strings.ContainsRune(token, '_') {
		return 0, false
	}

	f, err := strconv.ParseFloat(token, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// isHex reports whether a token uses the 0x prefix, which ParseFloat accepts
// but is not a plain decimal reading.
func isHex(token string) bool {
	token = strings.TrimLeft(token, "+-")
	return len(token) >= 2 && token[0] == '0' && (token[1] == 'x' || token[1] == 'X')
}
