package sequence

import (
	"strconv"
	"strings"
	"unicode"
)

// naturalLess compares two names the way a human reads frame-numbered files:
// split into digit and non-digit runs, compare digit runs numerically and the
// rest lexically. "img_9.jpg" sorts before "img_10.jpg".
func naturalLess(a, b string) bool {
	for len(a) > 0 && len(b) > 0 {
		ra, restA := nextRun(a)
		rb, restB := nextRun(b)

		if isDigits(ra) && isDigits(rb) {
			ta := strings.TrimLeft(ra, "0")
			tb := strings.TrimLeft(rb, "0")
			switch {
			case len(ta) != len(tb):
				return len(ta) < len(tb)
			case ta != tb:
				return ta < tb
			case ra != rb:
				// Same value, different zero padding. Longer padding first
				// keeps the order total.
				return len(ra) > len(rb)
			}
		} else if ra != rb {
			return ra < rb
		}

		a, b = restA, restB
	}
	return len(a) < len(b)
}

// nextRun splits off the leading maximal digit or non-digit run.
func nextRun(s string) (run, rest string) {
	if s == "" {
		return "", ""
	}
	digits := unicode.IsDigit(rune(s[0]))
	for i, r := range s {
		if unicode.IsDigit(r) != digits {
			return s[:i], s[i:]
		}
	}
	return s, ""
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

// firstNumericToken extracts the first run of at least minDigits consecutive
// digits from s as an integer. Returns false when no such run exists or the
// run does not fit in an int64.
func firstNumericToken(s string, minDigits int) (int64, bool) {
	start := -1
	for i := 0; i <= len(s); i++ {
		if i < len(s) && s[i] >= '0' && s[i] <= '9' {
			if start < 0 {
				start = i
			}
			continue
		}
		if start >= 0 {
			if i-start >= minDigits {
				v, err := strconv.ParseInt(s[start:i], 10, 64)
				return v, err == nil
			}
			start = -1
		}
	}
	return 0, false
}
