// Package models defines the wire types exchanged with the authoritative
// expense backend. Field names and JSON tags follow the backend's API; the
// engine never invents its own persisted shapes.
package models

import "time"

// Split is one member's allocation within a persisted expense.
//
// NetBalance is paid minus owed as computed by the backend. It is a pointer
// because older records omit it; the allocation table derives the value
// when absent and cross-checks it when present.
type Split struct {
	MemberUsername string   `json:"memberUsername"`
	OwedAmount     float64  `json:"owedAmount"`
	PaidAmount     float64  `json:"paidAmount"`
	NetBalance     *float64 `json:"netBalance,omitempty"`
}

// Expense is one persisted group expense with its splits.
// Date may be absent on legacy records; it unmarshals to the zero time.
type Expense struct {
	ID          int64     `json:"id"`
	Amount      float64   `json:"amount"`
	Description string    `json:"description"`
	PaidBy      string    `json:"paidBy"`
	Date        time.Time `json:"date"`
	Splits      []Split   `json:"splits"`
}

// SplitDetail is one member's owed/paid pair in a write request.
// Splits where both amounts are zero are omitted entirely.
type SplitDetail struct {
	MemberUsername string  `json:"memberUsername"`
	OwedAmount     float64 `json:"owedAmount"`
	PaidAmount     float64 `json:"paidAmount"`
}

// ExpenseWriteRequest is the create/update body for an expense.
// The same shape serves POST (create) and PUT (update); the target expense
// is addressed by URL, and the backend replaces splits wholesale.
type ExpenseWriteRequest struct {
	Amount       float64       `json:"amount"`
	Description  string        `json:"description"`
	PaidBy       string        `json:"paidBy"`
	SplitDetails []SplitDetail `json:"splitDetails"`
}
