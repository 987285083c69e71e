// Package service implements the split editor: the command surface the UI
// collaborator drives.
//
// An Editor is bound to one credential and one group at a time. Commands
// are discrete and synchronous; network fetches are the only suspension
// points. The engine assumes a single editor per credential and
// last-write-wins semantics at the backend.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/expensetrack/splitdesk/internal/allocation"
	"github.com/expensetrack/splitdesk/internal/auth"
	"github.com/expensetrack/splitdesk/internal/balance"
	"github.com/expensetrack/splitdesk/internal/client"
	"github.com/expensetrack/splitdesk/internal/expenses"
	"github.com/expensetrack/splitdesk/internal/member"
	"github.com/expensetrack/splitdesk/internal/models"
)

// Upstream is the slice of the backend client the editor needs.
type Upstream interface {
	PageSize() int
	GetGroup(ctx context.Context, cred *auth.Credential, groupID int64) (*models.Group, error)
	ListExpenses(ctx context.Context, cred *auth.Credential, groupID int64, page int) ([]models.Expense, error)
	GetExpense(ctx context.Context, cred *auth.Credential, groupID, expenseID int64) (*models.Expense, error)
	CreateExpense(ctx context.Context, cred *auth.Credential, groupID int64, req *models.ExpenseWriteRequest) (*models.Expense, error)
	UpdateExpense(ctx context.Context, cred *auth.Credential, groupID, expenseID int64, req *models.ExpenseWriteRequest) (*models.Expense, error)
}

// ExpenseSummary is one working-set entry prepared for display. IsPayer
// tells the UI whether to offer Update (payer) or View (everyone else).
type ExpenseSummary struct {
	ID          int64     `json:"id"`
	Amount      float64   `json:"amount"`
	Description string    `json:"description"`
	PaidBy      string    `json:"paidBy"`
	Date        time.Time `json:"date"`
	IsPayer     bool      `json:"isPayer"`
}

// Editor is the engine root: it ties the membership resolver, allocation
// table, balance validator, working set, and upstream client together.
type Editor struct {
	upstream Upstream
	cred     *auth.Credential

	groupID   int64
	groupName string
	members   []string

	set        *expenses.WorkingSet
	session    *allocation.Session
	fetching   bool
	submitting bool
}

// NewEditor creates an editor for the given credential. The credential is
// required and must be unexpired; the engine fails closed without one.
func NewEditor(upstream Upstream, cred *auth.Credential) (*Editor, error) {
	if cred == nil {
		return nil, client.WrapError(client.KindAuth, auth.ErrMissingToken)
	}
	if cred.Expired() {
		return nil, client.WrapError(client.KindAuth, auth.ErrExpiredToken)
	}
	return &Editor{
		upstream: upstream,
		cred:     cred,
		set:      expenses.NewWorkingSet(upstream.PageSize()),
	}, nil
}

// Username returns the acting user's canonical username.
func (e *Editor) Username() string { return e.cred.Username }

// GroupName returns the open group's display name.
func (e *Editor) GroupName() string { return e.groupName }

// Members returns the resolved participant list for the open group.
func (e *Editor) Members() []string {
	out := make([]string, len(e.members))
	copy(out, e.members)
	return out
}

// OpenGroup switches the editor to a group: fetches its detail, verifies
// the acting user's membership, resolves participants, and loads the first
// expense page into a fresh working set. Any previously open allocation
// session is discarded.
func (e *Editor) OpenGroup(ctx context.Context, groupID int64) error {
	group, err := e.upstream.GetGroup(ctx, e.cred, groupID)
	if err != nil {
		return err
	}

	if !memberOfGroup(group.Members, e.cred.Username) {
		return client.NewError(client.KindForbidden,
			fmt.Sprintf("user %s is not a member of group %d", e.cred.Username, groupID))
	}

	e.groupID = group.ID
	e.groupName = group.Name
	e.members = member.Resolve(group.Members, e.cred.Username)
	e.session = nil

	e.set.Reset()
	return e.fetchPage(ctx, 0)
}

// LoadMore fetches the next expense page. It is a no-op while a fetch is
// outstanding or when the last page has been reached, so duplicate page
// requests cannot be issued.
func (e *Editor) LoadMore(ctx context.Context) error {
	if err := e.requireGroup(); err != nil {
		return err
	}
	if e.fetching || !e.set.HasMore() {
		return nil
	}
	if err := e.fetchPage(ctx, e.set.Page()+1); err != nil {
		return err
	}
	e.set.Advance()
	return nil
}

// Expenses returns the working set prepared for display.
func (e *Editor) Expenses() []ExpenseSummary {
	items := e.set.Expenses()
	summaries := make([]ExpenseSummary, len(items))
	for i, exp := range items {
		summaries[i] = ExpenseSummary{
			ID:          exp.ID,
			Amount:      exp.Amount,
			Description: exp.Description,
			PaidBy:      exp.PaidBy,
			Date:        exp.Date,
			IsPayer:     member.Same(exp.PaidBy, e.cred.Username),
		}
	}
	return summaries
}

// HasMore reports whether another expense page may exist.
func (e *Editor) HasMore() bool { return e.set.HasMore() }

// NewExpense opens an allocation session for a new expense with the acting
// user as payer and an empty total.
func (e *Editor) NewExpense() (balance.Summary, error) {
	if err := e.requireGroup(); err != nil {
		return balance.Summary{}, err
	}
	e.session = allocation.New(e.groupID, 0, e.members, e.cred.Username, 0, "")
	return e.session.Populate(nil, true), nil
}

// OpenExpense opens an existing expense for view or edit. The expense is
// always re-fetched from the backend; the working set's copy is never used
// to populate the table. Edit mode requires the acting user to be the
// expense's payer.
func (e *Editor) OpenExpense(ctx context.Context, expenseID int64, editMode bool) (balance.Summary, error) {
	if err := e.requireGroup(); err != nil {
		return balance.Summary{}, err
	}

	expense, err := e.upstream.GetExpense(ctx, e.cred, e.groupID, expenseID)
	if err != nil {
		return balance.Summary{}, err
	}

	if editMode && !member.Same(expense.PaidBy, e.cred.Username) {
		return balance.Summary{}, client.NewError(client.KindForbidden,
			"you can only update expenses that you paid for")
	}

	e.session = allocation.New(e.groupID, expense.ID, e.members, expense.PaidBy, expense.Amount, expense.Description)
	return e.session.Populate(expense.Splits, editMode), nil
}

// CloseEditor discards the open allocation session, if any.
func (e *Editor) CloseEditor() { e.session = nil }

// Session returns the open allocation session, or an error when none is open.
func (e *Editor) Session() (*allocation.Session, error) {
	if e.session == nil {
		return nil, client.NewError(client.KindValidation, "no expense is open in the editor")
	}
	return e.session, nil
}

// SetAmount changes the open expense's total, resetting every row to the
// equal-split default.
func (e *Editor) SetAmount(total float64) (balance.Summary, error) {
	session, err := e.Session()
	if err != nil {
		return balance.Summary{}, err
	}
	summary, err := session.SetAmount(total)
	if err != nil {
		return balance.Summary{}, client.WrapError(client.KindValidation, err)
	}
	return summary, nil
}

// SetDescription updates the open expense's description.
func (e *Editor) SetDescription(description string) error {
	session, err := e.Session()
	if err != nil {
		return err
	}
	if err := session.SetDescription(description); err != nil {
		return client.WrapError(client.KindValidation, err)
	}
	return nil
}

// SetOwed updates one member's owed share in the open session.
func (e *Editor) SetOwed(username string, owed float64) (balance.Summary, error) {
	session, err := e.Session()
	if err != nil {
		return balance.Summary{}, err
	}
	summary, err := session.SetOwed(username, owed)
	if err != nil {
		return balance.Summary{}, client.WrapError(client.KindValidation, err)
	}
	return summary, nil
}

// SetPaid updates one member's paid contribution in the open session.
func (e *Editor) SetPaid(username string, paid float64) (balance.Summary, error) {
	session, err := e.Session()
	if err != nil {
		return balance.Summary{}, err
	}
	summary, err := session.SetPaid(username, paid)
	if err != nil {
		return balance.Summary{}, client.WrapError(client.KindValidation, err)
	}
	return summary, nil
}

// Submit validates the open allocation, sends the create or update request,
// and on success discards the session and reloads the working set from the
// first page. Submission is exclusive with itself; a second Submit while
// one is in flight is rejected locally.
func (e *Editor) Submit(ctx context.Context) (*models.Expense, error) {
	if e.submitting {
		return nil, client.NewError(client.KindValidation, "a submission is already in progress")
	}
	session, err := e.Session()
	if err != nil {
		return nil, err
	}
	if e.cred.Expired() {
		return nil, client.WrapError(client.KindAuth, auth.ErrExpiredToken)
	}

	req, err := session.BuildRequest()
	if err != nil {
		if errors.Is(err, allocation.ErrNotSubmittable) || errors.Is(err, allocation.ErrViewMode) {
			return nil, client.WrapError(client.KindValidation, err)
		}
		return nil, err
	}

	e.submitting = true
	defer func() { e.submitting = false }()

	var persisted *models.Expense
	if session.IsNew() {
		persisted, err = e.upstream.CreateExpense(ctx, e.cred, e.groupID, req)
	} else {
		persisted, err = e.upstream.UpdateExpense(ctx, e.cred, e.groupID, session.ExpenseID(), req)
	}
	if err != nil {
		return nil, err
	}

	e.session = nil
	e.set.Reset()
	if refreshErr := e.fetchPage(ctx, 0); refreshErr != nil {
		// The expense is persisted; only the refresh failed. The working
		// set stays empty with hasMore set, so the UI can re-trigger a load.
		slog.Warn("post-submit refresh failed",
			"group_id", e.groupID,
			"expense_id", persisted.ID,
			"error", refreshErr,
		)
	}
	return persisted, nil
}

func (e *Editor) fetchPage(ctx context.Context, page int) error {
	e.fetching = true
	defer func() { e.fetching = false }()

	items, err := e.upstream.ListExpenses(ctx, e.cred, e.groupID, page)
	if err != nil {
		return err
	}
	e.set.Merge(items)
	return nil
}

func (e *Editor) requireGroup() error {
	if e.groupID == 0 {
		return client.NewError(client.KindValidation, "no group is open")
	}
	return nil
}

func memberOfGroup(refs []member.Ref, username string) bool {
	for _, ref := range refs {
		if member.Same(ref.Username, username) {
			return true
		}
	}
	return false
}
