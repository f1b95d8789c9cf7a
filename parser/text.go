package parser

import (
	"fmt"
	"strings"

	"github.com/aluiziolira/go-scrape-products/models"
	"golang.org/x/text/unicode/norm"
)

// CleanText applies NFKC (folding Arabic presentation forms and full-width
// characters) and collapses whitespace runs.
func CleanText(s string) string {
	if s == "" {
		return ""
	}
	return strings.Join(strings.Fields(norm.NFKC.String(s)), " ")
}

// FirstNonEmpty returns the first value that is not blank after trimming.
func FirstNonEmpty(values ...string) string {
	for _, value := range values {
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			return trimmed
		}
	}
	return ""
}

// ValidateRecord ensures the record can be keyed and attributed.
func ValidateRecord(r models.ProductRecord) error {
	if strings.TrimSpace(r.Title) == "" && strings.TrimSpace(r.ProductLink) == "" {
		return fmt.Errorf("record has neither title nor link")
	}
	if !IsAbsoluteURL(r.ProductLink) {
		return fmt.Errorf("record %q has no absolute product link", r.Title)
	}
	if !r.Website.Valid() {
		return fmt.Errorf("record %q has unknown website %q", r.Title, r.Website)
	}
	return nil
}
