package balance

import (
	"math"
	"testing"
)

func TestEvaluate(t *testing.T) {
	tests := []struct {
		name          string
		total         float64
		owed          []float64
		paid          []float64
		wantSumOwed   float64
		wantRemaining float64
		wantValid     bool
		wantCanSubmit bool
	}{
		{
			name:          "balanced three-way split",
			total:         60.00,
			owed:          []float64{20.00, 20.00, 20.00},
			paid:          []float64{60.00, 0, 0},
			wantSumOwed:   60.00,
			wantRemaining: 0.00,
			wantValid:     true,
			wantCanSubmit: true,
		},
		{
			name:          "equal split of 100 across 3 leaves a tolerated cent",
			total:         100.00,
			owed:          []float64{33.33, 33.33, 33.33},
			paid:          []float64{100.00, 0, 0},
			wantSumOwed:   99.99,
			wantRemaining: 0.01,
			wantValid:     false,
			wantCanSubmit: false,
		},
		{
			name:          "just inside tolerance",
			total:         100.00,
			owed:          []float64{33.34, 33.33, 33.33},
			paid:          []float64{100.00, 0, 0},
			wantSumOwed:   100.00,
			wantRemaining: 0.00,
			wantValid:     true,
			wantCanSubmit: true,
		},
		{
			name:          "under-assigned blocks submit",
			total:         60.00,
			owed:          []float64{20.00, 15.00, 20.00},
			paid:          []float64{60.00, 0, 0},
			wantSumOwed:   55.00,
			wantRemaining: 5.00,
			wantValid:     false,
			wantCanSubmit: false,
		},
		{
			name:          "over-assigned yields negative remaining",
			total:         60.00,
			owed:          []float64{30.00, 30.00, 10.00},
			paid:          []float64{60.00, 0, 0},
			wantSumOwed:   70.00,
			wantRemaining: -10.00,
			wantValid:     false,
			wantCanSubmit: false,
		},
		{
			name:          "zero total is never submittable even when balanced",
			total:         0,
			owed:          []float64{0, 0},
			paid:          []float64{0, 0},
			wantSumOwed:   0,
			wantRemaining: 0,
			wantValid:     true,
			wantCanSubmit: false,
		},
		{
			name:          "paid imbalance does not gate",
			total:         60.00,
			owed:          []float64{30.00, 30.00},
			paid:          []float64{10.00, 0},
			wantSumOwed:   60.00,
			wantRemaining: 0.00,
			wantValid:     true,
			wantCanSubmit: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Evaluate(tt.total, tt.owed, tt.paid)
			if math.Abs(got.SumOwed-tt.wantSumOwed) > 1e-9 {
				t.Errorf("SumOwed = %v, want %v", got.SumOwed, tt.wantSumOwed)
			}
			if math.Abs(got.Remaining-tt.wantRemaining) > 1e-9 {
				t.Errorf("Remaining = %v, want %v", got.Remaining, tt.wantRemaining)
			}
			if got.Valid != tt.wantValid {
				t.Errorf("Valid = %v, want %v", got.Valid, tt.wantValid)
			}
			if got.CanSubmit != tt.wantCanSubmit {
				t.Errorf("CanSubmit = %v, want %v", got.CanSubmit, tt.wantCanSubmit)
			}
		})
	}
}

func TestEvaluateSumPaidReported(t *testing.T) {
	got := Evaluate(60.00, []float64{20, 20, 20}, []float64{60, 5, 0})
	if math.Abs(got.SumPaid-65.00) > 1e-9 {
		t.Errorf("SumPaid = %v, want 65.00", got.SumPaid)
	}
}

func TestEvaluateRepeatedAdditionsDoNotDrift(t *testing.T) {
	// 0.10 added a hundred times must land exactly on 10.00.
	owed := make([]float64, 100)
	for i := range owed {
		owed[i] = 0.10
	}
	got := Evaluate(10.00, owed, nil)
	if !got.Valid {
		t.Errorf("expected valid, got remaining %v", got.Remaining)
	}
}
