package models

import "github.com/expensetrack/splitdesk/internal/member"

// Group is the group detail response. Members arrive as either bare
// username strings or {"username": ...} objects; member.Ref absorbs both.
type Group struct {
	ID      int64        `json:"id"`
	Name    string       `json:"name"`
	Members []member.Ref `json:"members"`
}
