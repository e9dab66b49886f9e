package sanitizer

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

type Strategy func(string) string

type Pipeline []Strategy

func (p Pipeline) Apply(s string) string {
	for _, fn := range p {
		s = fn(s)
	}
	return s
}

func TrimAndNormalize(s string) string {
	s = strings.TrimSpace(s)

	if s == "" {
		return ""
	}

	var result strings.Builder
	var lastWasSpace bool

	for _, r := range s {
		if unicode.IsSpace(r) {
			if !lastWasSpace {
				result.WriteRune(' ')
				lastWasSpace = true
			}
		} else if unicode.IsControl(r) {
			continue
		} else {
			result.WriteRune(r)
			lastWasSpace = false
		}
	}

	return result.String()
}

func NormalizeName(name string) string {
	return TrimAndNormalize(name)
}

func NormalizeNameForComparison(name string) string {
	return Pipeline{TrimAndNormalize, strings.ToLower}.Apply(name)
}

func NormalizeFeature(feature string) string {
	return TrimAndNormalize(feature)
}

// NormalizeCategory title-cases a court category. Unknown values are only
// trimmed and left for the validator to reject.
func NormalizeCategory(category string) string {
	s := strings.ToLower(TrimAndNormalize(category))
	if s == "" {
		return ""
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// NormalizeClock zero-pads an "H:MM" wall-clock time. Anything that does not
// look like a time is returned trimmed.
func NormalizeClock(clock string) string {
	s := strings.TrimSpace(clock)
	h, m, ok := strings.Cut(s, ":")
	if !ok || len(m) != 2 {
		return s
	}
	hour, err := strconv.Atoi(h)
	if err != nil || len(h) > 2 {
		return s
	}
	return fmt.Sprintf("%02d:%s", hour, m)
}
