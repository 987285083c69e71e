package money

import (
	"math"
	"testing"
)

func TestRound2(t *testing.T) {
	tests := []struct {
		name string
		in   float64
		want float64
	}{
		{"already two decimals", 12.34, 12.34},
		{"rounds half up", 0.005, 0.01},
		{"rounds half away from zero when negative", -0.005, -0.01},
		{"rounds down", 33.333333, 33.33},
		{"rounds up", 66.666666, 66.67},
		{"zero", 0, 0},
		{"accumulated float noise", 0.1 + 0.2, 0.3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Round2(tt.in)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("Round2(%v) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestRound2Idempotent(t *testing.T) {
	values := []float64{0, 0.004, 0.005, 1.0 / 3.0, 33.333333, -17.895, 99.999, 1e6 + 0.125}
	for _, v := range values {
		once := Round2(v)
		twice := Round2(once)
		if once != twice {
			t.Errorf("Round2 not idempotent for %v: first %v, second %v", v, once, twice)
		}
	}
}

func TestWithinCent(t *testing.T) {
	if !WithinCent(10.00, 10.009) {
		t.Error("difference below one cent should compare equal")
	}
	if WithinCent(10.00, 10.01) {
		t.Error("a full cent apart should not compare equal")
	}
	if !IsZero(0.0099) {
		t.Error("sub-cent value should be treated as zero")
	}
}

func TestParseAmount(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    float64
		wantErr bool
	}{
		{"plain amount", "60.00", 60.00, false},
		{"no decimals", "60", 60.00, false},
		{"one decimal", "60.5", 60.50, false},
		{"leading whitespace", " 12.34", 12.34, false},
		{"empty", "", 0, true},
		{"not a number", "abc", 0, true},
		{"negative", "-5.00", 0, true},
		{"three decimals", "10.555", 0, true},
		{"nan", "NaN", 0, true},
		{"infinity", "Inf", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseAmount(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseAmount(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if !tt.wantErr && math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("ParseAmount(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}
