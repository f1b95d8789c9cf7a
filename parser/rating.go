package parser

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	scaledRating = regexp.MustCompile(`(?i)(\d+(?:[.,]\d+)?)\s*(?:/|out\s+of|من)\s*(\d+(?:[.,]\d+)?)`)
	bareRating   = regexp.MustCompile(`\d+(?:[.,]\d+)?`)
)

// NormalizeRating parses "4.5/5", "4.5 out of 5 stars", "4.5 من 5" or a bare
// decimal into the [0, 5] range. Ratings on another scale are rescaled.
func NormalizeRating(text string) (value float64, ok bool) {
	text = asciiDigits(strings.TrimSpace(text), DecimalPoint)
	if text == "" {
		return 0, false
	}

	if m := scaledRating.FindStringSubmatch(text); m != nil {
		num, errNum := parseDecimal(m[1])
		scale, errScale := parseDecimal(m[2])
		if errNum == nil && errScale == nil && scale > 0 {
			return clampRating(num / scale * 5), true
		}
	}

	token := bareRating.FindString(text)
	if token == "" {
		return 0, false
	}
	num, err := parseDecimal(token)
	if err != nil {
		return 0, false
	}
	return clampRating(num), true
}

func parseDecimal(s string) (float64, error) {
	return strconv.ParseFloat(strings.Replace(s, ",", ".", 1), 64)
}

func clampRating(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 5:
		return 5
	}
	return v
}
