package numparse

import (
	"math"
	"testing"
)

func TestParse(t *testing.T) {
	tests := []struct {
		in   string
		want float64
	}{
		{"6.900", 6900},
		{"6,5", 6.5},
		{"1.234.567,89", 1234567.89},
		{"$2.300.000", 2300000},
		{"UF 3.450", 3450},
		{"UF 9.200,5", 9200.5},
		{"CLP 450.000", 450000},
		{"6.5", 6.5},
		{"6.50", 6.5},
		{"1.234.5", 1234.5},
		{"42", 42},
		{"-1.500", -1500},
		{"  $ 120.000  ", 120000},
	}

	for _, tt := range tests {
		got, err := Parse(tt.in)
		if err != nil {
			t.Errorf("Parse(%q): unexpected error: %v", tt.in, err)
			continue
		}
		if math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("Parse(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestParse_Invalid(t *testing.T) {
	for _, in := range []string{"", "consultar", "UF", "precio a convenir", "1.23.4"} {
		if _, err := Parse(in); err == nil {
			t.Errorf("Parse(%q): expected error, got nil", in)
		}
	}
}

func TestParseOr(t *testing.T) {
	if got := ParseOr("no disponible", 99); got != 99 {
		t.Errorf("ParseOr fallback = %v, want 99", got)
	}
	if got := ParseOr("6.900", 99); got != 6900 {
		t.Errorf("ParseOr parsed = %v, want 6900", got)
	}
}
