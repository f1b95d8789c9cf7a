// Package parser holds the pure normalization helpers applied to scraped fields.
package parser

import (
	"regexp"
	"strconv"
	"strings"
)

// PriceFormat fixes which separator is the decimal mark for a platform.
type PriceFormat int

const (
	// DecimalPoint reads "1,234.56": comma groups thousands, point is decimal.
	DecimalPoint PriceFormat = iota
	// DecimalComma reads "1.234,56": point groups thousands, comma is decimal.
	DecimalComma
)

func (f PriceFormat) String() string {
	if f == DecimalComma {
		return "decimal_comma"
	}
	return "decimal_point"
}

var (
	pointToken = regexp.MustCompile(`\d{1,3}(?:,\d{3})+(?:\.\d+)?|\d+(?:\.\d+)?`)
	commaToken = regexp.MustCompile(`\d{1,3}(?:\.\d{3})+(?:,\d+)?|\d+(?:,\d+)?`)
)

// NormalizePrice extracts the first numeric token that is well formed under
// format. Currency markers need no stripping since only the token is kept.
// Non-positive or missing values report ok=false.
func NormalizePrice(text string, format PriceFormat) (value float64, ok bool) {
	text = asciiDigits(text, format)
	if text == "" {
		return 0, false
	}

	pattern, group, decimal := pointToken, ",", "."
	if format == DecimalComma {
		pattern, group, decimal = commaToken, ".", ","
	}

	token := pattern.FindString(text)
	if token == "" {
		return 0, false
	}
	token = strings.ReplaceAll(token, group, "")
	token = strings.Replace(token, decimal, ".", 1)

	value, err := strconv.ParseFloat(token, 64)
	if err != nil || value <= 0 {
		return 0, false
	}
	return value, true
}

// asciiDigits maps Arabic-Indic and Extended Arabic-Indic digits plus the
// Arabic decimal and thousands marks onto the ASCII equivalents of format.
func asciiDigits(s string, format PriceFormat) string {
	decimal, group := '.', ','
	if format == DecimalComma {
		decimal, group = ',', '.'
	}
	return strings.Map(func(r rune) rune {
		switch {
		case r >= '٠' && r <= '٩':
			return '0' + (r - '٠')
		case r >= '۰' && r <= '۹':
			return '0' + (r - '۰')
		case r == '٫':
			return decimal
		case r == '٬':
			return group
		}
		return r
	}, s)
}
