package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/expensetrack/splitdesk/internal/auth"
	"github.com/expensetrack/splitdesk/internal/client"
	"github.com/expensetrack/splitdesk/internal/member"
	"github.com/expensetrack/splitdesk/internal/models"
)

type stubUpstream struct {
	group   models.Group
	pages   map[int][]models.Expense
	detail  map[int64]models.Expense
	created *models.ExpenseWriteRequest
}

func newStubUpstream() *stubUpstream {
	return &stubUpstream{
		group: models.Group{
			ID:      7,
			Name:    "flat 12",
			Members: []member.Ref{{Username: "alice"}, {Username: "bob"}},
		},
		pages:  map[int][]models.Expense{},
		detail: map[int64]models.Expense{},
	}
}

func (u *stubUpstream) PageSize() int { return 20 }

func (u *stubUpstream) GetGroup(ctx context.Context, cred *auth.Credential, groupID int64) (*models.Group, error) {
	g := u.group
	return &g, nil
}

func (u *stubUpstream) ListExpenses(ctx context.Context, cred *auth.Credential, groupID int64, page int) ([]models.Expense, error) {
	return u.pages[page], nil
}

func (u *stubUpstream) GetExpense(ctx context.Context, cred *auth.Credential, groupID, expenseID int64) (*models.Expense, error) {
	exp, ok := u.detail[expenseID]
	if !ok {
		return nil, client.NewError(client.KindNotFound, "expense not found")
	}
	return &exp, nil
}

func (u *stubUpstream) CreateExpense(ctx context.Context, cred *auth.Credential, groupID int64, req *models.ExpenseWriteRequest) (*models.Expense, error) {
	u.created = req
	return &models.Expense{ID: 500, Amount: req.Amount, PaidBy: req.PaidBy}, nil
}

func (u *stubUpstream) UpdateExpense(ctx context.Context, cred *auth.Credential, groupID, expenseID int64, req *models.ExpenseWriteRequest) (*models.Expense, error) {
	return &models.Expense{ID: expenseID, Amount: req.Amount, PaidBy: req.PaidBy}, nil
}

func bearerFor(t *testing.T, username string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"username": username,
		"exp":      time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("signing token: %v", err)
	}
	return "Bearer " + signed
}

func doJSON(t *testing.T, ts *httptest.Server, method, path string, body any, out any) *http.Response {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request: %v", err)
		}
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, ts.URL+path, reader)
	if err != nil {
		t.Fatalf("building request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := ts.Client().Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decoding %s %s response: %v", method, path, err)
		}
	}
	return resp
}

func startSession(t *testing.T, ts *httptest.Server, username string) string {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, ts.URL+"/v1/sessions", nil)
	if err != nil {
		t.Fatalf("building request: %v", err)
	}
	req.Header.Set("Authorization", bearerFor(t, username))
	resp, err := ts.Client().Do(req)
	if err != nil {
		t.Fatalf("creating session: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("session create status = %d", resp.StatusCode)
	}
	var body struct {
		SessionID string `json:"sessionId"`
		Username  string `json:"username"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decoding session: %v", err)
	}
	if body.Username != username {
		t.Fatalf("session username = %q, want %q", body.Username, username)
	}
	return body.SessionID
}

func TestCreateSessionRequiresBearer(t *testing.T) {
	ts := httptest.NewServer(New(newStubUpstream()).Handler())
	defer ts.Close()

	resp, err := ts.Client().Post(ts.URL+"/v1/sessions", "application/json", nil)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("no bearer: status = %d, want 401", resp.StatusCode)
	}
}

func TestUnknownSessionRejected(t *testing.T) {
	ts := httptest.NewServer(New(newStubUpstream()).Handler())
	defer ts.Close()

	resp := doJSON(t, ts, http.MethodPost, "/v1/sessions/nope/group", map[string]any{"groupId": 7}, nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("unknown session: status = %d, want 401", resp.StatusCode)
	}
}

func TestOpenGroupReturnsList(t *testing.T) {
	u := newStubUpstream()
	u.pages[0] = []models.Expense{
		{ID: 1, Amount: 30.00, Description: "pizza", PaidBy: "alice", Date: time.Now()},
	}
	ts := httptest.NewServer(New(u).Handler())
	defer ts.Close()

	sid := startSession(t, ts, "alice")

	var list struct {
		GroupName string `json:"groupName"`
		Members   []string
		Expenses  []struct {
			ID      int64 `json:"id"`
			IsPayer bool  `json:"isPayer"`
		}
		HasMore bool `json:"hasMore"`
	}
	resp := doJSON(t, ts, http.MethodPost, "/v1/sessions/"+sid+"/group", map[string]any{"groupId": 7}, &list)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("open group status = %d", resp.StatusCode)
	}
	if list.GroupName != "flat 12" || len(list.Members) != 2 {
		t.Errorf("list header = %+v", list)
	}
	if len(list.Expenses) != 1 || !list.Expenses[0].IsPayer {
		t.Errorf("expenses = %+v", list.Expenses)
	}
	if list.HasMore {
		t.Error("short page should not signal more")
	}
}

func TestNonMemberForbidden(t *testing.T) {
	ts := httptest.NewServer(New(newStubUpstream()).Handler())
	defer ts.Close()

	sid := startSession(t, ts, "mallory")
	resp := doJSON(t, ts, http.MethodPost, "/v1/sessions/"+sid+"/group", map[string]any{"groupId": 7}, nil)
	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("non-member: status = %d, want 403", resp.StatusCode)
	}
}

func TestEditorFlow(t *testing.T) {
	u := newStubUpstream()
	ts := httptest.NewServer(New(u).Handler())
	defer ts.Close()

	sid := startSession(t, ts, "alice")
	base := "/v1/sessions/" + sid
	doJSON(t, ts, http.MethodPost, base+"/group", map[string]any{"groupId": 7}, nil)

	var table struct {
		Total   string `json:"total"`
		Payer   string `json:"payer"`
		Rows    []rowView
		Summary summaryView
	}

	resp := doJSON(t, ts, http.MethodPost, base+"/editor/new", nil, &table)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("editor/new status = %d", resp.StatusCode)
	}
	if table.Payer != "alice" || table.Summary.CanSubmit {
		t.Errorf("fresh table = %+v", table)
	}

	resp = doJSON(t, ts, http.MethodPost, base+"/editor/amount", map[string]any{"amount": "60.00"}, &table)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("editor/amount status = %d", resp.StatusCode)
	}
	if table.Total != "60.00" {
		t.Errorf("total = %q", table.Total)
	}
	if len(table.Rows) != 2 || table.Rows[0].Owed != "30.00" || table.Rows[0].Net != "+30.00" {
		t.Errorf("rows = %+v", table.Rows)
	}
	if table.Rows[1].Net != "-30.00" || table.Rows[1].Standing != "owes" {
		t.Errorf("bob's row = %+v", table.Rows[1])
	}
	if !table.Summary.CanSubmit || table.Summary.Status != "balanced (60.00 split)" {
		t.Errorf("summary = %+v", table.Summary)
	}

	resp = doJSON(t, ts, http.MethodPost, base+"/editor/owed", map[string]any{"member": "bob", "amount": "10.00"}, &table)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("editor/owed status = %d", resp.StatusCode)
	}
	if table.Summary.Status != "20.00 remaining" || table.Summary.CanSubmit {
		t.Errorf("imbalanced summary = %+v", table.Summary)
	}

	resp = doJSON(t, ts, http.MethodPost, base+"/editor/submit", nil, nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("imbalanced submit: status = %d, want 400", resp.StatusCode)
	}

	doJSON(t, ts, http.MethodPost, base+"/editor/owed", map[string]any{"member": "bob", "amount": "30.00"}, nil)

	var submitted struct {
		Expense models.Expense `json:"expense"`
	}
	resp = doJSON(t, ts, http.MethodPost, base+"/editor/submit", nil, &submitted)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("submit status = %d", resp.StatusCode)
	}
	if submitted.Expense.ID != 500 {
		t.Errorf("persisted expense = %+v", submitted.Expense)
	}
	if u.created == nil || u.created.PaidBy != "alice" {
		t.Errorf("create request = %+v", u.created)
	}
}

func TestSetAmountRejectsMalformedInput(t *testing.T) {
	ts := httptest.NewServer(New(newStubUpstream()).Handler())
	defer ts.Close()

	sid := startSession(t, ts, "alice")
	base := "/v1/sessions/" + sid
	doJSON(t, ts, http.MethodPost, base+"/group", map[string]any{"groupId": 7}, nil)
	doJSON(t, ts, http.MethodPost, base+"/editor/new", nil, nil)

	for _, bad := range []string{"abc", "12.345", "-5", ""} {
		resp := doJSON(t, ts, http.MethodPost, base+"/editor/amount", map[string]any{"amount": bad}, nil)
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("amount %q: status = %d, want 400", bad, resp.StatusCode)
		}
	}
}

func TestEndSession(t *testing.T) {
	ts := httptest.NewServer(New(newStubUpstream()).Handler())
	defer ts.Close()

	sid := startSession(t, ts, "alice")

	req, _ := http.NewRequest(http.MethodDelete, ts.URL+"/v1/sessions/"+sid, nil)
	resp, err := ts.Client().Do(req)
	if err != nil {
		t.Fatalf("delete session: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("delete status = %d", resp.StatusCode)
	}

	after := doJSON(t, ts, http.MethodPost, "/v1/sessions/"+sid+"/group", map[string]any{"groupId": 7}, nil)
	if after.StatusCode != http.StatusUnauthorized {
		t.Errorf("command after delete: status = %d, want 401", after.StatusCode)
	}
}

func TestHealthz(t *testing.T) {
	ts := httptest.NewServer(New(newStubUpstream()).Handler())
	defer ts.Close()

	resp, err := ts.Client().Get(ts.URL + "/healthz")
	if err != nil {
		t.Fatalf("healthz: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("healthz status = %d", resp.StatusCode)
	}
}
