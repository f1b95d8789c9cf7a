package platform

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/aluiziolira/go-scrape-products/parser"
)

// Chain is an ordered list of fallback selectors. An entry is either a CSS
// selector, read as element text, or "css@attr" / "css@a|b|c", read as the
// first non-empty attribute on each matched element.
type Chain []string

func splitEntry(entry string) (css string, attrs []string) {
	idx := strings.LastIndex(entry, "@")
	if idx < 0 {
		return strings.TrimSpace(entry), nil
	}
	css = strings.TrimSpace(entry[:idx])
	for _, a := range strings.Split(entry[idx+1:], "|") {
		if a = strings.TrimSpace(a); a != "" {
			attrs = append(attrs, a)
		}
	}
	return css, attrs
}

// Each walks every candidate value in chain order and stops when fn returns true.
func (c Chain) Each(root *goquery.Selection, fn func(value string) bool) {
	for _, entry := range c {
		css, attrs := splitEntry(entry)
		if css == "" {
			continue
		}
		stop := false
		root.Find(css).EachWithBreak(func(_ int, s *goquery.Selection) bool {
			for _, v := range nodeValues(s, attrs) {
				if v != "" && fn(v) {
					stop = true
					return false
				}
			}
			return true
		})
		if stop {
			return
		}
	}
}

// First returns the first non-empty value in the chain.
func (c Chain) First(root *goquery.Selection) string {
	return c.FirstMatching(root, nil)
}

// FirstMatching returns the first non-empty value accepted by keep.
func (c Chain) FirstMatching(root *goquery.Selection, keep func(string) bool) string {
	var out string
	c.Each(root, func(v string) bool {
		if keep != nil && !keep(v) {
			return false
		}
		out = v
		return true
	})
	return out
}

// Match returns the nodes of the first selector matching at least one node.
func (c Chain) Match(root *goquery.Selection) *goquery.Selection {
	for _, entry := range c {
		css, _ := splitEntry(entry)
		if css == "" {
			continue
		}
		if found := root.Find(css); found.Length() > 0 {
			return found
		}
	}
	return root.Slice(0, 0)
}

// Join concatenates the non-empty texts of every node matched by the first
// productive selector.
func (c Chain) Join(root *goquery.Selection, sep string) string {
	for _, entry := range c {
		css, _ := splitEntry(entry)
		if css == "" {
			continue
		}
		var parts []string
		root.Find(css).Each(func(_ int, s *goquery.Selection) {
			if text := parser.CleanText(s.Text()); text != "" {
				parts = append(parts, text)
			}
		})
		if len(parts) > 0 {
			return strings.Join(parts, sep)
		}
	}
	return ""
}

func nodeValues(s *goquery.Selection, attrs []string) []string {
	if len(attrs) == 0 {
		return []string{parser.CleanText(s.Text())}
	}
	out := make([]string, 0, len(attrs))
	for _, a := range attrs {
		if v, ok := s.Attr(a); ok {
			out = append(out, strings.TrimSpace(v))
		}
	}
	return out
}

func mergeChain(dst *Chain, src Chain) {
	if len(src) > 0 {
		*dst = append(Chain(nil), src...)
	}
}
