package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dmitrijs2005/medkeeper/internal/client/models"
	"github.com/dmitrijs2005/medkeeper/internal/common"
	"github.com/dmitrijs2005/medkeeper/internal/logging"
	"github.com/dmitrijs2005/medkeeper/internal/netx"
)

const (
	defaultRequestTimeout     = 15 * time.Second
	defaultRecognitionTimeout = 45 * time.Second
)

// HTTPClient implements Client over the JSON REST API.
type HTTPClient struct {
	baseURL            string
	http               *http.Client
	tokens             TokenSource
	onUnauthorized     func(ctx context.Context)
	requestTimeout     time.Duration
	recognitionTimeout time.Duration
	log                logging.Logger
}

type Option func(*HTTPClient)

func WithHTTPClient(h *http.Client) Option { return func(c *HTTPClient) { c.http = h } }

func WithRequestTimeout(d time.Duration) Option {
	return func(c *HTTPClient) {
		if d > 0 {
			c.requestTimeout = d
		}
	}
}

func WithRecognitionTimeout(d time.Duration) Option {
	return func(c *HTTPClient) {
		if d > 0 {
			c.recognitionTimeout = d
		}
	}
}

// WithUnauthorizedHook registers fn to run whenever the backend answers 401,
// typically clearing the stored token.
func WithUnauthorizedHook(fn func(ctx context.Context)) Option {
	return func(c *HTTPClient) { c.onUnauthorized = fn }
}

func WithLogger(l logging.Logger) Option { return func(c *HTTPClient) { c.log = l } }

func NewHTTPClient(baseURL string, tokens TokenSource, opts ...Option) *HTTPClient {
	c := &HTTPClient{
		baseURL:            strings.TrimRight(baseURL, "/"),
		http:               &http.Client{},
		tokens:             tokens,
		requestTimeout:     defaultRequestTimeout,
		recognitionTimeout: defaultRecognitionTimeout,
		log:                logging.NewNop(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *HTTPClient) ListMedications(ctx context.Context) ([]models.Medication, error) {
	var out []models.Medication
	if err := c.getList(ctx, "/user-medications", "medications", &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *HTTPClient) CreateMedication(ctx context.Context, m models.NewMedication) (models.Medication, error) {
	var out models.Medication
	if err := c.doJSON(ctx, http.MethodPost, "/user-medications", m, &out); err != nil {
		return models.Medication{}, err
	}
	if out.ID == "" {
		out.ID = m.ID
	}
	return out, nil
}

func (c *HTTPClient) DeleteMedication(ctx context.Context, id string) error {
	return c.doJSON(ctx, http.MethodDelete, "/user-medications/"+url.PathEscape(id), nil, nil)
}

func (c *HTTPClient) SetArchived(ctx context.Context, id string, archived bool) error {
	action := "unarchive"
	if archived {
		action = "archive"
	}
	return c.doJSON(ctx, http.MethodPatch, "/user-medications/"+url.PathEscape(id)+"/"+action, nil, nil)
}

func (c *HTTPClient) ListReminders(ctx context.Context) ([]models.Reminder, error) {
	var out []models.Reminder
	if err := c.getList(ctx, "/reminders", "reminders", &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *HTTPClient) CreateReminder(ctx context.Context, in models.ReminderInput) (models.Reminder, error) {
	var out models.Reminder
	err := c.doJSON(ctx, http.MethodPost, "/reminders", in, &out)
	return out, err
}

func (c *HTTPClient) UpdateReminder(ctx context.Context, id string, in models.ReminderInput) (models.Reminder, error) {
	var out models.Reminder
	err := c.doJSON(ctx, http.MethodPatch, "/reminders/"+url.PathEscape(id), in, &out)
	return out, err
}

func (c *HTTPClient) ToggleReminder(ctx context.Context, id string) (models.Reminder, error) {
	var out models.Reminder
	err := c.doJSON(ctx, http.MethodPatch, "/reminders/"+url.PathEscape(id)+"/toggle", nil, &out)
	return out, err
}

func (c *HTTPClient) DeleteReminder(ctx context.Context, id string) error {
	return c.doJSON(ctx, http.MethodDelete, "/reminders/"+url.PathEscape(id), nil, nil)
}

func (c *HTTPClient) Limits(ctx context.Context) (models.UserLimits, error) {
	var out models.UserLimits
	err := c.doJSON(ctx, http.MethodGet, "/user/limits", nil, &out)
	return out, err
}

func (c *HTTPClient) SubscriptionStatus(ctx context.Context) (models.SubscriptionStatus, error) {
	var out models.SubscriptionStatus
	err := c.doJSON(ctx, http.MethodGet, "/subscription/status", nil, &out)
	return out, err
}

// Recognize uploads img for identification. It runs under the recognition
// timeout rather than the general request timeout.
func (c *HTTPClient) Recognize(ctx context.Context, img models.Image, language string) (models.RecognitionResult, error) {
	ct := img.ContentType
	if ct == "" {
		sniffed, err := netx.SniffImage(img.Data)
		if err != nil {
			return models.RecognitionResult{}, fmt.Errorf("%w: %w", common.ErrInvalidImage, err)
		}
		ct = sniffed
	}
	name := img.Filename
	if name == "" {
		name = "capture"
	}

	body, formType, err := netx.MultipartImage("image", name, ct, img.Data, map[string]string{"language": language})
	if err != nil {
		return models.RecognitionResult{}, err
	}

	var out models.RecognitionResult
	if err := c.do(ctx, c.recognitionTimeout, http.MethodPost, "/medications/recognize", body, formType, &out); err != nil {
		return models.RecognitionResult{}, err
	}
	return out, nil
}

func (c *HTTPClient) SearchCatalog(ctx context.Context, query, language string) ([]models.CatalogItem, error) {
	q := url.Values{}
	q.Set("q", query)
	if language != "" {
		q.Set("lang", language)
	}
	var out []models.CatalogItem
	if err := c.getList(ctx, "/sfda-medications/search?"+q.Encode(), "results", &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *HTTPClient) CheckInteractions(ctx context.Context, req models.InteractionRequest) (models.InteractionReport, error) {
	var out models.InteractionReport
	err := c.doJSON(ctx, http.MethodPost, "/check-drug-interactions", req, &out)
	return out, err
}

// getList decodes either a bare JSON array or an object carrying the array
// under field.
func (c *HTTPClient) getList(ctx context.Context, path, field string, out any) error {
	var raw json.RawMessage
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &raw); err != nil {
		return err
	}
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil
	}
	if raw[0] == '[' {
		return decodeInto(raw, out)
	}
	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	inner, ok := envelope[field]
	if !ok {
		inner, ok = envelope["data"]
	}
	if !ok {
		return nil
	}
	return decodeInto(inner, out)
}

func decodeInto(raw json.RawMessage, out any) error {
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (c *HTTPClient) doJSON(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	ct := ""
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(b)
		ct = "application/json"
	}
	return c.do(ctx, c.requestTimeout, method, path, body, ct, out)
}

func (c *HTTPClient) do(ctx context.Context, timeout time.Duration, method, path string, body io.Reader, contentType string, out any) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if c.tokens != nil {
		tok, err := c.tokens.Token(ctx)
		if err != nil {
			return fmt.Errorf("read token: %w", err)
		}
		if tok != "" {
			req.Header.Set(common.AuthorizationHeaderName, common.BearerPrefix+tok)
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Warn(ctx, "request failed", "method", method, "path", path, "error", err)
		return mapTransport(ctx, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		mapped := mapStatus(resp)
		if resp.StatusCode == http.StatusUnauthorized && c.onUnauthorized != nil {
			c.onUnauthorized(ctx)
		}
		c.log.Debug(ctx, "request rejected", "method", method, "path", path, "status", resp.StatusCode)
		return mapped
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil && err != io.EOF {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}
