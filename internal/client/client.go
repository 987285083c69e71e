// Package client talks to the authoritative expense backend over HTTP.
//
// Every call carries the acting user's bearer credential and fails closed
// when it is missing or expired. Non-2xx responses are classified into the
// engine's error taxonomy; nothing here retries automatically.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/expensetrack/splitdesk/internal/auth"
	"github.com/expensetrack/splitdesk/internal/config"
	"github.com/expensetrack/splitdesk/internal/models"
)

// Client is an instrumented HTTP client for the expense backend.
type Client struct {
	http     *http.Client
	baseURL  string
	pageSize int
	detail   singleflight.Group
}

// New creates a client for the configured upstream.
func New(cfg config.UpstreamConfig) *Client {
	return &Client{
		http:     &http.Client{Timeout: cfg.Timeout},
		baseURL:  strings.TrimRight(cfg.BaseURL, "/"),
		pageSize: cfg.PageSize,
	}
}

// PageSize returns the fixed expense page size for this deployment.
func (c *Client) PageSize() int { return c.pageSize }

// GetGroup fetches group detail (id, name, members).
func (c *Client) GetGroup(ctx context.Context, cred *auth.Credential, groupID int64) (*models.Group, error) {
	url := fmt.Sprintf("%s/%d", c.baseURL, groupID)
	var group models.Group
	if err := c.do(ctx, cred, "get_group", http.MethodGet, url, nil, &group); err != nil {
		return nil, err
	}
	return &group, nil
}

// ListExpenses fetches one page of expenses for the group. Pages are
// 0-based and sized by the deployment's fixed page size.
func (c *Client) ListExpenses(ctx context.Context, cred *auth.Credential, groupID int64, page int) ([]models.Expense, error) {
	url := fmt.Sprintf("%s/%d/expenses?page=%d&size=%d", c.baseURL, groupID, page, c.pageSize)
	var expenses []models.Expense
	if err := c.do(ctx, cred, "list_expenses", http.MethodGet, url, nil, &expenses); err != nil {
		return nil, err
	}
	return expenses, nil
}

// GetExpense fetches one expense with its splits. This is the sole source
// of truth when an expense is opened for view or edit; concurrent fetches
// for the same expense are collapsed into a single upstream request.
func (c *Client) GetExpense(ctx context.Context, cred *auth.Credential, groupID, expenseID int64) (*models.Expense, error) {
	key := fmt.Sprintf("%d/%d", groupID, expenseID)
	v, err, _ := c.detail.Do(key, func() (interface{}, error) {
		url := fmt.Sprintf("%s/%d/expenses/%d", c.baseURL, groupID, expenseID)
		var expense models.Expense
		if err := c.do(ctx, cred, "get_expense", http.MethodGet, url, nil, &expense); err != nil {
			return nil, err
		}
		return &expense, nil
	})
	if err != nil {
		return nil, err
	}
	expense := *v.(*models.Expense)
	return &expense, nil
}

// CreateExpense persists a new expense and returns the stored copy.
func (c *Client) CreateExpense(ctx context.Context, cred *auth.Credential, groupID int64, req *models.ExpenseWriteRequest) (*models.Expense, error) {
	url := fmt.Sprintf("%s/%d/expenses", c.baseURL, groupID)
	var expense models.Expense
	if err := c.do(ctx, cred, "create_expense", http.MethodPost, url, req, &expense); err != nil {
		return nil, err
	}
	return &expense, nil
}

// UpdateExpense replaces an existing expense wholesale and returns the
// stored copy.
func (c *Client) UpdateExpense(ctx context.Context, cred *auth.Credential, groupID, expenseID int64, req *models.ExpenseWriteRequest) (*models.Expense, error) {
	url := fmt.Sprintf("%s/%d/expenses/%d", c.baseURL, groupID, expenseID)
	var expense models.Expense
	if err := c.do(ctx, cred, "update_expense", http.MethodPut, url, req, &expense); err != nil {
		return nil, err
	}
	return &expense, nil
}

func (c *Client) do(ctx context.Context, cred *auth.Credential, operation, method, url string, body, out interface{}) (err error) {
	start := time.Now()
	defer func() { observe(operation, err, time.Since(start).Seconds()) }()

	if cred == nil {
		return WrapError(KindAuth, auth.ErrMissingToken)
	}
	if cred.Expired() {
		return WrapError(KindAuth, auth.ErrExpiredToken)
	}

	var reader io.Reader
	if body != nil {
		payload, marshalErr := json.Marshal(body)
		if marshalErr != nil {
			return WrapError(KindServer, marshalErr)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return WrapError(KindServer, err)
	}
	req.Header.Set("Authorization", "Bearer "+cred.Token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return WrapError(KindServer, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return classifyStatus(resp.StatusCode, raw)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return WrapError(KindServer, fmt.Errorf("decoding %s response: %w", operation, err))
		}
	}
	return nil
}
