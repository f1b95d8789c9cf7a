package models

import (
	"strings"
	"testing"
)

func TestCrawlRequestWithDefaults(t *testing.T) {
	req := CrawlRequest{Query: "  laptop  "}.WithDefaults()
	if req.Query != "laptop" {
		t.Fatalf("query=%q, want trimmed", req.Query)
	}
	if req.Pages != 1 {
		t.Fatalf("pages=%d, want 1", req.Pages)
	}
	if len(req.Platforms) != len(AllPlatforms) {
		t.Fatalf("platforms=%v, want all", req.Platforms)
	}

	req = CrawlRequest{Query: "x", Platforms: []Platform{Noon, Amazon, Noon}}.WithDefaults()
	if len(req.Platforms) != 2 || req.Platforms[0] != Noon || req.Platforms[1] != Amazon {
		t.Fatalf("platforms=%v, want [Noon Amazon]", req.Platforms)
	}
}

func TestCrawlRequestValidate(t *testing.T) {
	tests := []struct {
		name    string
		req     CrawlRequest
		wantErr string
	}{
		{name: "empty query", req: CrawlRequest{Query: " ", Pages: 1, Platforms: AllPlatforms}, wantErr: "query"},
		{name: "zero pages", req: CrawlRequest{Query: "tv", Pages: 0, Platforms: AllPlatforms}, wantErr: "pages"},
		{name: "negative cap", req: CrawlRequest{Query: "tv", Pages: 1, MaxProductsPerPlatform: -1, Platforms: AllPlatforms}, wantErr: "max products"},
		{name: "no platforms", req: CrawlRequest{Query: "tv", Pages: 1}, wantErr: "platform"},
		{name: "unknown platform", req: CrawlRequest{Query: "tv", Pages: 1, Platforms: []Platform{"eBay"}}, wantErr: "unknown platform"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.req.Validate(); err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}

	ok := CrawlRequest{Query: "سماعة", Pages: 2, Platforms: []Platform{Jumia}}
	if err := ok.Validate(); err != nil {
		t.Fatalf("valid request rejected: %v", err)
	}
}

func TestParsePlatform(t *testing.T) {
	p, err := ParsePlatform(" noon ")
	if err != nil || p != Noon {
		t.Fatalf("ParsePlatform = %q, %v", p, err)
	}
	if _, err := ParsePlatform("ebay"); err == nil {
		t.Fatalf("expected error for unknown platform")
	}
}

func TestProductRecordRowOrder(t *testing.T) {
	r := ProductRecord{
		Title: "t", Price: "p", Rating: "r", Image: "i", ProductLink: "l",
		Description: "d", SearchQuery: "q", Website: Amazon,
	}
	row := r.Row()
	want := []string{"t", "p", "r", "i", "l", "d", "q", "Amazon"}
	if len(row) != len(Columns) {
		t.Fatalf("row has %d values, want %d", len(row), len(Columns))
	}
	for i := range want {
		if row[i] != want[i] {
			t.Fatalf("row[%d]=%q, want %q", i, row[i], want[i])
		}
	}
}
