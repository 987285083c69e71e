// Package allocation owns the in-memory split table for the expense
// currently open in the editor.
//
// A Session is bound to one open expense (ID 0 is the new-expense
// sentinel). It holds one row per resolved member with that member's owed
// and paid amounts, and is the only writer of those rows while the editor
// is open; the authoritative copy always lives in the backend.
package allocation

import (
	"errors"
	"fmt"
	"log/slog"
	"math"

	"github.com/expensetrack/splitdesk/internal/balance"
	"github.com/expensetrack/splitdesk/internal/member"
	"github.com/expensetrack/splitdesk/internal/models"
	"github.com/expensetrack/splitdesk/internal/money"
)

var (
	// ErrViewMode is returned when a mutation is attempted on a read-only session.
	ErrViewMode = errors.New("session is read-only")
	// ErrPayerPaidLocked is returned when editing the payer's paid amount,
	// which always tracks the expense total.
	ErrPayerPaidLocked = errors.New("payer's paid amount is locked to the total")
	// ErrNotSubmittable is returned by BuildRequest when the allocation does
	// not balance or the total is below the minimum.
	ErrNotSubmittable = errors.New("allocation is not submittable")
)

// Standing is the qualitative net-balance label for one member.
type Standing string

const (
	StandingCreditor Standing = "gets back"
	StandingDebtor   Standing = "owes"
	StandingSettled  Standing = "settled"
)

// Row is one member's line in the split table.
type Row struct {
	Username string
	Owed     float64
	Paid     float64
	Net      float64
	IsPayer  bool
}

// Standing classifies the row's net balance. The one-cent band around zero
// is treated as exact equality so float noise never flips the label.
func (r Row) Standing() Standing {
	switch {
	case r.Net > money.CentTolerance:
		return StandingCreditor
	case r.Net < -money.CentTolerance:
		return StandingDebtor
	default:
		return StandingSettled
	}
}

// Session is the transient allocation state for one open expense.
type Session struct {
	groupID     int64
	expenseID   int64 // 0 = new expense
	total       float64
	description string
	payer       string // canonical username
	editMode    bool
	members     []string // resolved canonical usernames, fixed at open
	rows        []Row
}

// New creates a session for the given expense. members must already be
// resolved (canonical, deduplicated, acting user included); expenseID 0
// means a new expense. total is rounded on entry.
func New(groupID, expenseID int64, members []string, payer string, total float64, description string) *Session {
	return &Session{
		groupID:     groupID,
		expenseID:   expenseID,
		total:       money.Round2(total),
		description: description,
		payer:       member.Canonical(payer),
		members:     members,
	}
}

func (s *Session) GroupID() int64      { return s.groupID }
func (s *Session) ExpenseID() int64    { return s.expenseID }
func (s *Session) IsNew() bool         { return s.expenseID == 0 }
func (s *Session) Total() float64      { return s.total }
func (s *Session) Payer() string       { return s.payer }
func (s *Session) Description() string { return s.description }
func (s *Session) EditMode() bool      { return s.editMode }

// Rows returns a copy of the current split table.
func (s *Session) Rows() []Row {
	rows := make([]Row, len(s.rows))
	copy(rows, s.rows)
	return rows
}

// Populate builds one row per resolved member. Members with a matching
// existing split (case-insensitive) adopt its amounts verbatim; everyone
// else gets the equal-split default, with the payer defaulting to having
// fronted the whole amount. In edit mode the payer's paid amount is then
// forced onto the current total.
func (s *Session) Populate(existing []models.Split, editMode bool) balance.Summary {
	s.editMode = editMode
	s.rows = make([]Row, 0, len(s.members))

	for _, username := range s.members {
		isPayer := username == s.payer
		row := Row{Username: username, IsPayer: isPayer}

		if split := findSplit(existing, username); split != nil {
			row.Owed = split.OwedAmount
			row.Paid = split.PaidAmount
			row.Net = reconcileNet(username, split)
		} else {
			row.Owed = s.defaultOwed()
			if isPayer && s.total > 0 {
				row.Paid = s.total
			}
			row.Net = money.Round2(row.Paid - row.Owed)
		}

		s.rows = append(s.rows, row)
	}

	if editMode {
		s.lockPayerPaid()
	}
	return s.Recompute()
}

// SetAmount changes the expense total and re-derives every row's equal-split
// default, discarding any manual edits. This reset is deliberate: a new
// total invalidates the old distribution.
func (s *Session) SetAmount(total float64) (balance.Summary, error) {
	if !s.editMode {
		return balance.Summary{}, ErrViewMode
	}
	if total < 0 {
		return balance.Summary{}, fmt.Errorf("total cannot be negative: %.2f", total)
	}
	s.total = money.Round2(total)
	return s.Populate(nil, true), nil
}

// SetDescription updates the expense description.
func (s *Session) SetDescription(description string) error {
	if !s.editMode {
		return ErrViewMode
	}
	s.description = description
	return nil
}

// SetOwed updates one member's owed share and recomputes their net balance.
func (s *Session) SetOwed(username string, owed float64) (balance.Summary, error) {
	if !s.editMode {
		return balance.Summary{}, ErrViewMode
	}
	if owed < 0 {
		return balance.Summary{}, fmt.Errorf("owed amount cannot be negative: %.2f", owed)
	}
	row, err := s.findRow(username)
	if err != nil {
		return balance.Summary{}, err
	}
	row.Owed = money.Round2(owed)
	row.Net = money.Round2(row.Paid - row.Owed)
	return s.Recompute(), nil
}

// SetPaid updates one member's paid contribution. The payer's paid amount
// is rejected: it always tracks the total.
func (s *Session) SetPaid(username string, paid float64) (balance.Summary, error) {
	if !s.editMode {
		return balance.Summary{}, ErrViewMode
	}
	if paid < 0 {
		return balance.Summary{}, fmt.Errorf("paid amount cannot be negative: %.2f", paid)
	}
	row, err := s.findRow(username)
	if err != nil {
		return balance.Summary{}, err
	}
	if row.IsPayer {
		return balance.Summary{}, ErrPayerPaidLocked
	}
	row.Paid = money.Round2(paid)
	row.Net = money.Round2(row.Paid - row.Owed)
	return s.Recompute(), nil
}

// Recompute aggregates the owed and paid columns into a balance summary.
func (s *Session) Recompute() balance.Summary {
	owed := make([]float64, len(s.rows))
	paid := make([]float64, len(s.rows))
	for i, row := range s.rows {
		owed[i] = row.Owed
		paid[i] = row.Paid
	}
	return balance.Evaluate(s.total, owed, paid)
}

// BuildRequest assembles the write request for submission. It fails unless
// the session is editable and the validator reports the allocation
// submittable. Splits where both amounts are zero are dropped from the
// persisted set.
func (s *Session) BuildRequest() (*models.ExpenseWriteRequest, error) {
	if !s.editMode {
		return nil, ErrViewMode
	}
	if summary := s.Recompute(); !summary.CanSubmit {
		return nil, fmt.Errorf("%w: remaining %.2f, total %.2f", ErrNotSubmittable, summary.Remaining, s.total)
	}

	details := make([]models.SplitDetail, 0, len(s.rows))
	for _, row := range s.rows {
		if row.Owed <= 0 && row.Paid <= 0 {
			continue
		}
		details = append(details, models.SplitDetail{
			MemberUsername: row.Username,
			OwedAmount:     row.Owed,
			PaidAmount:     row.Paid,
		})
	}

	return &models.ExpenseWriteRequest{
		Amount:       s.total,
		Description:  s.description,
		PaidBy:       s.payer,
		SplitDetails: details,
	}, nil
}

// defaultOwed is the equal-split share: total divided by member count,
// zero when there are no members or no total.
func (s *Session) defaultOwed() float64 {
	if len(s.members) == 0 || s.total <= 0 {
		return 0
	}
	return money.Round2(s.total / float64(len(s.members)))
}

// lockPayerPaid forces the payer's paid amount onto the current total.
func (s *Session) lockPayerPaid() {
	for i := range s.rows {
		if !s.rows[i].IsPayer {
			continue
		}
		if s.rows[i].Paid != s.total {
			s.rows[i].Paid = s.total
			s.rows[i].Net = money.Round2(s.rows[i].Paid - s.rows[i].Owed)
		}
		return
	}
}

func (s *Session) findRow(username string) (*Row, error) {
	name := member.Canonical(username)
	for i := range s.rows {
		if s.rows[i].Username == name {
			return &s.rows[i], nil
		}
	}
	return nil, fmt.Errorf("no split row for member %q", username)
}

func findSplit(splits []models.Split, username string) *models.Split {
	for i := range splits {
		if member.Same(splits[i].MemberUsername, username) {
			return &splits[i]
		}
	}
	return nil
}

// reconcileNet prefers the backend-supplied net balance but derives one
// when it is absent. A supplied value that disagrees with paid-owed by a
// cent or more is kept, with a data-integrity warning.
func reconcileNet(username string, split *models.Split) float64 {
	derived := money.Round2(split.PaidAmount - split.OwedAmount)
	if split.NetBalance == nil {
		return derived
	}
	supplied := *split.NetBalance
	if math.Abs(supplied-derived) >= money.CentTolerance {
		slog.Warn("supplied net balance disagrees with paid-owed",
			"member", username,
			"supplied", supplied,
			"derived", derived,
		)
	}
	return supplied
}
