package server

import (
	"fmt"

	"github.com/expensetrack/splitdesk/internal/allocation"
	"github.com/expensetrack/splitdesk/internal/balance"
	"github.com/expensetrack/splitdesk/internal/service"
)

// rowView is one split table row prepared for display.
type rowView struct {
	Username string `json:"username"`
	IsPayer  bool   `json:"isPayer"`
	Owed     string `json:"owed"`
	Paid     string `json:"paid"`
	Net      string `json:"net"`
	Standing string `json:"standing"`
}

// summaryView is the validator output plus the submit gate.
type summaryView struct {
	SumOwed   string `json:"sumOwed"`
	SumPaid   string `json:"sumPaid"`
	Remaining string `json:"remaining"`
	Status    string `json:"status"`
	CanSubmit bool   `json:"canSubmit"`
}

// tableView is the full editor state sent after every command.
type tableView struct {
	ExpenseID   int64       `json:"expenseId,omitempty"`
	Total       string      `json:"total"`
	Description string      `json:"description"`
	Payer       string      `json:"payer"`
	EditMode    bool        `json:"editMode"`
	Rows        []rowView   `json:"rows"`
	Summary     summaryView `json:"summary"`
}

// listView is the working set plus paging state.
type listView struct {
	GroupName string                   `json:"groupName,omitempty"`
	Members   []string                 `json:"members,omitempty"`
	Expenses  []service.ExpenseSummary `json:"expenses"`
	HasMore   bool                     `json:"hasMore"`
}

func renderRow(row allocation.Row) rowView {
	var net string
	switch row.Standing() {
	case allocation.StandingCreditor:
		net = fmt.Sprintf("+%.2f", row.Net)
	case allocation.StandingDebtor:
		net = fmt.Sprintf("-%.2f", -row.Net)
	default:
		net = fmt.Sprintf("%.2f", row.Net)
	}
	return rowView{
		Username: row.Username,
		IsPayer:  row.IsPayer,
		Owed:     fmt.Sprintf("%.2f", row.Owed),
		Paid:     fmt.Sprintf("%.2f", row.Paid),
		Net:      net,
		Standing: string(row.Standing()),
	}
}

func renderSummary(s balance.Summary, total float64) summaryView {
	status := fmt.Sprintf("balanced (%.2f split)", total)
	if !s.Valid {
		if s.Remaining > 0 {
			status = fmt.Sprintf("%.2f remaining", s.Remaining)
		} else {
			status = fmt.Sprintf("%.2f over assigned", -s.Remaining)
		}
	}
	return summaryView{
		SumOwed:   fmt.Sprintf("%.2f", s.SumOwed),
		SumPaid:   fmt.Sprintf("%.2f", s.SumPaid),
		Remaining: fmt.Sprintf("%.2f", s.Remaining),
		Status:    status,
		CanSubmit: s.CanSubmit,
	}
}

func renderTable(session *allocation.Session, summary balance.Summary) tableView {
	rows := session.Rows()
	views := make([]rowView, len(rows))
	for i, row := range rows {
		views[i] = renderRow(row)
	}
	return tableView{
		ExpenseID:   session.ExpenseID(),
		Total:       fmt.Sprintf("%.2f", session.Total()),
		Description: session.Description(),
		Payer:       session.Payer(),
		EditMode:    session.EditMode(),
		Rows:        views,
		Summary:     renderSummary(summary, session.Total()),
	}
}
