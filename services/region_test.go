package services

import "testing"

func TestNormaliseRegion(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"East", "East of England"},
		{"  east  ", "East of England"},
		{"East of England", "East of England"},
		{"Yorkshire & The Humber", "Yorkshire and The Humber"},
		{"North   West", "North West"},
		{"London", "London"},
		{"", ""},
	}

	for _, tt := range tests {
		if got := NormaliseRegion(tt.raw); got != tt.want {
			t.Errorf("NormaliseRegion(%q) = %q; want %q", tt.raw, got, tt.want)
		}
	}
}

func TestParseDecimal(t *testing.T) {
	tests := []struct {
		raw  string
		want float64
		ok   bool
	}{
		{"1000", 1000, true},
		{"£1,234.50", 1234.5, true},
		{" 800 ", 800, true},
		{"x", 0, false},
		{":", 0, false},
		{"", 0, false},
	}

	for _, tt := range tests {
		got, ok := parseFloat(tt.raw)
		if ok != tt.ok || got != tt.want {
			t.Errorf("parseFloat(%q) = %.2f, %v; want %.2f, %v", tt.raw, got, ok, tt.want, tt.ok)
		}
	}
}
