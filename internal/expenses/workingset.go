// Package expenses accumulates paginated expense fetches into a
// deduplicated, date-ordered working set for display.
package expenses

import (
	"sort"

	"github.com/expensetrack/splitdesk/internal/models"
)

// WorkingSet is the locally accumulated list of expenses for the group
// currently on screen. It grows page by page and is reset whenever the
// group context changes or a submission succeeds, so the view always
// re-derives from authoritative state.
type WorkingSet struct {
	pageSize int
	items    []models.Expense
	seen     map[int64]bool
	page     int
	hasMore  bool
}

// NewWorkingSet creates an empty working set with the deployment's fixed
// expense page size.
func NewWorkingSet(pageSize int) *WorkingSet {
	ws := &WorkingSet{pageSize: pageSize}
	ws.Reset()
	return ws
}

// Reset clears the set and restarts paging from the first page.
func (ws *WorkingSet) Reset() {
	ws.items = nil
	ws.seen = make(map[int64]bool)
	ws.page = 0
	ws.hasMore = true
}

// Merge folds one fetched page into the set. Duplicated IDs keep the
// later-merged occurrence, so a re-fetched expense always shows its newest
// values. Ordering is date descending with missing dates sorting last;
// ties keep their original arrival order. Merging is idempotent by ID, so
// an out-of-order or repeated page cannot corrupt the set.
//
// The page is considered the last one when it holds fewer items than the
// page size.
func (ws *WorkingSet) Merge(page []models.Expense) {
	for _, exp := range page {
		if ws.seen[exp.ID] {
			// Later-merged values win; arrival order is preserved.
			for i := range ws.items {
				if ws.items[i].ID == exp.ID {
					ws.items[i] = exp
					break
				}
			}
			continue
		}
		ws.seen[exp.ID] = true
		ws.items = append(ws.items, exp)
	}

	sort.SliceStable(ws.items, func(i, j int) bool {
		return ws.items[i].Date.After(ws.items[j].Date)
	})

	ws.hasMore = len(page) == ws.pageSize
}

// Advance records that the current page was consumed and returns the next
// page index to request.
func (ws *WorkingSet) Advance() int {
	ws.page++
	return ws.page
}

// Page returns the index of the last fetched page (0-based).
func (ws *WorkingSet) Page() int { return ws.page }

// HasMore reports whether another page may exist.
func (ws *WorkingSet) HasMore() bool { return ws.hasMore }

// Len returns the number of accumulated expenses.
func (ws *WorkingSet) Len() int { return len(ws.items) }

// Expenses returns a copy of the ordered working set.
func (ws *WorkingSet) Expenses() []models.Expense {
	out := make([]models.Expense, len(ws.items))
	copy(out, ws.items)
	return out
}

// Get returns the expense with the given ID, if present.
func (ws *WorkingSet) Get(id int64) (models.Expense, bool) {
	if !ws.seen[id] {
		return models.Expense{}, false
	}
	for _, exp := range ws.items {
		if exp.ID == id {
			return exp, true
		}
	}
	return models.Expense{}, false
}
