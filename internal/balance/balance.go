// Package balance aggregates a split allocation and decides whether it is
// submittable.
//
// Only the owed side is enforced: the sum of owed amounts must balance the
// expense total within one cent. The paid side is informational — the
// system tracks debt obligations authoritatively but lets recorded cash
// contributions drift, so SumPaid is reported and never gated on.
package balance

import "github.com/expensetrack/splitdesk/internal/money"

// MinSubmittableAmount is the smallest expense total that can be submitted.
// Zero and near-zero expenses are never submittable.
const MinSubmittableAmount = 0.01

// Summary is the result of evaluating an allocation against its total.
type Summary struct {
	SumOwed   float64
	SumPaid   float64
	Remaining float64 // total minus SumOwed; negative means over-assigned
	Valid     bool    // |Remaining| < one cent
	CanSubmit bool    // Valid and total >= MinSubmittableAmount
}

// Evaluate sums the owed and paid columns and computes submit eligibility.
// Sums are re-rounded after each addition so repeated float additions
// cannot accumulate drift past the tolerance band.
func Evaluate(total float64, owed, paid []float64) Summary {
	var sumOwed, sumPaid float64
	for _, v := range owed {
		sumOwed = money.Round2(sumOwed + v)
	}
	for _, v := range paid {
		sumPaid = money.Round2(sumPaid + v)
	}

	remaining := money.Round2(total - sumOwed)
	valid := money.IsZero(remaining)

	return Summary{
		SumOwed:   sumOwed,
		SumPaid:   sumPaid,
		Remaining: remaining,
		Valid:     valid,
		CanSubmit: valid && total >= MinSubmittableAmount,
	}
}
