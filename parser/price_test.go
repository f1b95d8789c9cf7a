package parser

import "testing"

func TestNormalizePrice(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		format PriceFormat
		want   float64
		wantOK bool
	}{
		{name: "grouped with currency suffix", input: "1,499.00 EGP", format: DecimalPoint, want: 1499, wantOK: true},
		{name: "currency prefix", input: "EGP 29,900", format: DecimalPoint, want: 29900, wantOK: true},
		{name: "plain decimal", input: "299.50", format: DecimalPoint, want: 299.5, wantOK: true},
		{name: "arabic currency", input: "١٬٢٥٠٫٧٥ ج.م", format: DecimalPoint, want: 1250.75, wantOK: true},
		{name: "arabic word currency", input: "جنيه 850", format: DecimalPoint, want: 850, wantOK: true},
		{name: "european under decimal comma", input: "EGP 2.500,00", format: DecimalComma, want: 2500, wantOK: true},
		{name: "european under decimal point", input: "EGP 2.500,00", format: DecimalPoint, want: 2.5, wantOK: true},
		{name: "range takes first", input: "EGP 1,000 - EGP 1,200", format: DecimalPoint, want: 1000, wantOK: true},
		{name: "no number", input: "Currently unavailable", format: DecimalPoint, wantOK: false},
		{name: "zero", input: "0.00 EGP", format: DecimalPoint, wantOK: false},
		{name: "empty", input: "", format: DecimalPoint, wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := NormalizePrice(tt.input, tt.format)
			if ok != tt.wantOK {
				t.Fatalf("NormalizePrice(%q) ok = %v, want %v", tt.input, ok, tt.wantOK)
			}
			if ok && got != tt.want {
				t.Fatalf("NormalizePrice(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestNormalizePriceIsStable(t *testing.T) {
	for _, format := range []PriceFormat{DecimalPoint, DecimalComma} {
		first, ok := NormalizePrice("EGP 2.500,00", format)
		if !ok {
			t.Fatalf("%s: expected a value", format)
		}
		for i := 0; i < 5; i++ {
			again, _ := NormalizePrice("EGP 2.500,00", format)
			if again != first {
				t.Fatalf("%s: call %d returned %v, want %v", format, i, again, first)
			}
		}
	}
}
