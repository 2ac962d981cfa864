package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/dmitrijs2005/medkeeper/internal/common"
)

// StatusError is a non-2xx backend response. It unwraps to the sentinel the
// status maps to, so callers match it with errors.Is.
type StatusError struct {
	Status  int
	Code    string
	Message string
	err     error
}

func (e *StatusError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = http.StatusText(e.Status)
	}
	return fmt.Sprintf("%v: http %d: %s", e.err, e.Status, msg)
}

func (e *StatusError) Unwrap() error { return e.err }

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

func isQuotaCode(code string) bool {
	c := strings.ToLower(code)
	return strings.Contains(c, "quota") || strings.Contains(c, "limit")
}

// mapStatus turns a failed response into a StatusError.
func mapStatus(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))

	var body errorBody
	_ = json.Unmarshal(raw, &body)
	msg := body.Message
	if msg == "" {
		msg = body.Error
	}
	if msg == "" {
		msg = strings.TrimSpace(string(raw))
	}
	code := strings.ToLower(body.Code)

	se := &StatusError{Status: resp.StatusCode, Code: code, Message: msg}
	switch s := resp.StatusCode; {
	case s == http.StatusBadRequest || s == http.StatusUnprocessableEntity:
		se.err = common.ErrValidation
	case s == http.StatusUnauthorized:
		se.err = common.ErrUnauthorized
	case s == http.StatusPaymentRequired:
		se.err = common.ErrQuotaExceeded
	case s == http.StatusForbidden:
		switch {
		case isQuotaCode(code):
			se.err = common.ErrQuotaExceeded
		case strings.Contains(code, "subscription"):
			se.err = common.ErrSubscriptionInactive
		case strings.Contains(code, "terms"):
			se.err = common.ErrTermsNotAccepted
		default:
			se.err = common.ErrUnauthorized
		}
	case s == http.StatusNotFound:
		se.err = common.ErrNotFound
	case s == http.StatusConflict:
		se.err = common.ErrDuplicate
	case s == http.StatusTooManyRequests:
		se.err = common.ErrQuotaExceeded
	case s >= 500:
		se.err = common.ErrUnavailable
	default:
		se.err = errors.New("unexpected response")
	}
	return se
}

// mapTransport classifies errors returned by http.Client.Do. Timeouts and
// connection failures are transient; a cancellation by the caller is
// returned as is.
func mapTransport(ctx context.Context, err error) error {
	if errors.Is(ctx.Err(), context.Canceled) {
		return ctx.Err()
	}
	return fmt.Errorf("%w: %w", common.ErrUnavailable, err)
}
