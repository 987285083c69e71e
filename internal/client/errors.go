package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Kind classifies an engine failure for the UI collaborator.
type Kind int

const (
	// KindServer covers transport failures and non-2xx statuses not claimed
	// by a more specific kind. Never retried automatically.
	KindServer Kind = iota
	// KindAuth is a missing or expired credential. Fatal to the session;
	// the UI must force re-authentication.
	KindAuth
	// KindForbidden means the acting user may not perform the operation
	// (not a group member, or not the payer). Recoverable, no state change.
	KindForbidden
	// KindValidation is a local pre-network rejection (imbalanced owed sum,
	// sub-minimum amount, malformed numeric input).
	KindValidation
	// KindNotFound means the addressed expense no longer exists upstream.
	KindNotFound
)

func (k Kind) String() string {
	switch k {
	case KindAuth:
		return "auth"
	case KindForbidden:
		return "forbidden"
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	default:
		return "server"
	}
}

// Error is a classified engine failure.
type Error struct {
	Kind    Kind
	Status  int // HTTP status when the failure came from upstream, else 0
	Message string
	wrapped error
}

func (e *Error) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("%s (%d): %s", e.Kind, e.Status, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.wrapped }

// NewError builds a classified error with a plain message.
func NewError(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// WrapError builds a classified error around an underlying cause.
func WrapError(kind Kind, err error) *Error {
	return &Error{Kind: kind, Message: err.Error(), wrapped: err}
}

// KindOf extracts the classification from err, defaulting to KindServer.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindServer
}

// classifyStatus maps a non-2xx upstream response to an error, pulling the
// best available message out of the body.
func classifyStatus(status int, body []byte) *Error {
	kind := KindServer
	switch status {
	case http.StatusUnauthorized:
		kind = KindAuth
	case http.StatusForbidden:
		kind = KindForbidden
	case http.StatusNotFound:
		kind = KindNotFound
	}
	return &Error{Kind: kind, Status: status, Message: extractMessage(body, status)}
}

// extractMessage pulls a human-readable message out of an upstream error
// body, which may be a JSON object with a message or error field, or plain
// text. Long bodies are truncated.
func extractMessage(body []byte, status int) string {
	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		if payload.Message != "" {
			return payload.Message
		}
		if payload.Error != "" {
			return payload.Error
		}
	}
	text := strings.TrimSpace(string(body))
	if len(text) > 200 {
		text = text[:200]
	}
	if text == "" {
		return http.StatusText(status)
	}
	return text
}
