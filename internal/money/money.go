// Package money provides fixed-precision currency arithmetic.
//
// All monetary values in the engine are float64 rounded to two decimal
// places. Round2 must be applied exactly once at the point a value is
// computed; comparisons go through WithinCent so accumulated float noise
// below one cent never flips a decision.
package money

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// CentTolerance is the band within which two amounts are considered equal.
const CentTolerance = 0.01

// Round2 rounds x to the nearest hundredth, half away from zero.
func Round2(x float64) float64 {
	return math.Round(x*100) / 100
}

// WithinCent reports whether a and b differ by less than one cent.
func WithinCent(a, b float64) bool {
	return math.Abs(a-b) < CentTolerance
}

// IsZero reports whether x is within one cent of zero.
func IsZero(x float64) bool {
	return math.Abs(x) < CentTolerance
}

// ParseAmount parses a non-negative monetary amount with at most two
// decimal places. Malformed input is an error, never a silent zero;
// coercing an unparseable field to 0 would hide typos.
func ParseAmount(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("amount is empty")
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q", s)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("invalid amount %q", s)
	}
	if v < 0 {
		return 0, fmt.Errorf("amount cannot be negative: %s", s)
	}
	if dot := strings.IndexByte(s, '.'); dot >= 0 && len(s)-dot-1 > 2 {
		return 0, fmt.Errorf("amount %q has more than two decimal places", s)
	}
	return Round2(v), nil
}
