package crm

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/mixelka/dealfeedback/pkg/models"
)

// ErrUnauthorized is returned when a request is still rejected after one
// credential refresh
var ErrUnauthorized = errors.New("crm: unauthorized after token refresh")

const (
	searchPageSize = 200
	maxSearchPages = 50

	// Zoho expects ISO 8601 with a numeric offset and no fractional seconds
	dateTimeLayout = "2006-01-02T15:04:05-07:00"
)

// TokenProvider supplies access tokens for CRM requests
type TokenProvider interface {
	Token(ctx context.Context) (string, error)
	Refresh(ctx context.Context) (string, error)
}

// APIError is a non-2xx response from the CRM API
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error: %s (status %d)", e.Body, e.StatusCode)
}

// Config for the CRM client
type Config struct {
	BaseURL string // e.g. https://www.zohoapis.eu/crm
	Timeout time.Duration
}

// Client is a Zoho CRM API client
type Client struct {
	baseURL    string
	auth       TokenProvider
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a new CRM client
func NewClient(cfg Config, auth TokenProvider, logger *slog.Logger) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	return &Client{
		baseURL: strings.TrimSuffix(cfg.BaseURL, "/"),
		auth:    auth,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger.With("component", "crm"),
	}
}

// Search returns all records of module matching criteria, e.g.
// "(Feedback_Email:equals:Senden)". No match yields an empty slice.
func (c *Client) Search(ctx context.Context, module, criteria string) ([]Record, error) {
	var records []Record

	for page := 1; page <= maxSearchPages; page++ {
		q := url.Values{}
		q.Set("criteria", criteria)
		q.Set("page", strconv.Itoa(page))
		q.Set("per_page", strconv.Itoa(searchPageSize))
		u := fmt.Sprintf("%s/v2/%s/search?%s", c.baseURL, url.PathEscape(module), q.Encode())

		resp, err := c.do(ctx, func(ctx context.Context) (*http.Request, error) {
			return http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		})
		if err != nil {
			return nil, fmt.Errorf("failed to search %s: %w", module, err)
		}

		// 204 means no (more) records
		if resp.StatusCode == http.StatusNoContent {
			resp.Body.Close()
			break
		}

		body, err := readBody(resp)
		if err != nil {
			return nil, fmt.Errorf("failed to search %s: %w", module, err)
		}

		result := gjson.ParseBytes(body)
		result.Get("data").ForEach(func(_, v gjson.Result) bool {
			records = append(records, Record{raw: v})
			return true
		})

		if !result.Get("info.more_records").Bool() {
			break
		}
		if page == maxSearchPages {
			c.logger.Warn("search truncated, more records remain",
				"module", module,
				"criteria", criteria,
				"records", len(records),
			)
		}
	}

	return records, nil
}

// Update patches fields on one record; fields not listed are left untouched
func (c *Client) Update(ctx context.Context, module, id string, fields map[string]any) error {
	payload, err := sjson.SetBytes([]byte(`{"data":[{}]}`), "data.0.id", id)
	if err != nil {
		return fmt.Errorf("failed to build payload: %w", err)
	}
	for field, value := range fields {
		payload, err = sjson.SetBytes(payload, "data.0."+escapePath(field), value)
		if err != nil {
			return fmt.Errorf("failed to build payload: %w", err)
		}
	}

	u := fmt.Sprintf("%s/v2/%s/%s", c.baseURL, url.PathEscape(module), url.PathEscape(id))
	body, err := c.sendJSON(ctx, http.MethodPatch, u, payload)
	if err != nil {
		return fmt.Errorf("failed to update %s %s: %w", module, id, err)
	}

	if err := checkStatus(body, "data.0"); err != nil {
		return fmt.Errorf("failed to update %s %s: %w", module, id, err)
	}

	return nil
}

// AssociateEmail links an email transcript to a record
func (c *Client) AssociateEmail(ctx context.Context, module, id string, t models.Transcript) error {
	email := map[string]any{
		"from":                map[string]string{"email": t.From},
		"to":                  []map[string]string{{"email": t.To}},
		"subject":             t.Subject,
		"content":             t.Content,
		"date_time":           t.Date.Format(dateTimeLayout),
		"sent":                t.Sent,
		"original_message_id": t.MessageID,
	}

	payload, err := sjson.SetBytes([]byte(`{}`), "Emails.0", email)
	if err != nil {
		return fmt.Errorf("failed to build payload: %w", err)
	}

	u := fmt.Sprintf("%s/v3/%s/%s/actions/associate_email", c.baseURL, url.PathEscape(module), url.PathEscape(id))
	body, err := c.sendJSON(ctx, http.MethodPost, u, payload)
	if err != nil {
		return fmt.Errorf("failed to associate email with %s %s: %w", module, id, err)
	}

	if err := checkStatus(body, "Emails.0"); err != nil {
		return fmt.Errorf("failed to associate email with %s %s: %w", module, id, err)
	}

	c.logger.Debug("associated email", "record_id", id, "message_id", t.MessageID, "sent", t.Sent)
	return nil
}

func (c *Client) sendJSON(ctx context.Context, method, u string, payload []byte) ([]byte, error) {
	resp, err := c.do(ctx, func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, method, u, bytes.NewReader(payload))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		return req, nil
	})
	if err != nil {
		return nil, err
	}
	return readBody(resp)
}

// do sends a request and, on 401, refreshes the access token once and
// retries once with a freshly built request.
func (c *Client) do(ctx context.Context, build func(ctx context.Context) (*http.Request, error)) (*http.Response, error) {
	resp, err := c.send(ctx, build)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusUnauthorized {
		return resp, nil
	}
	discard(resp)

	c.logger.Info("access token rejected, refreshing")
	if _, err := c.auth.Refresh(ctx); err != nil {
		return nil, fmt.Errorf("failed to refresh access token: %w", err)
	}

	resp, err = c.send(ctx, build)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusUnauthorized {
		discard(resp)
		return nil, ErrUnauthorized
	}

	return resp, nil
}

func (c *Client) send(ctx context.Context, build func(ctx context.Context) (*http.Request, error)) (*http.Response, error) {
	token, err := c.auth.Token(ctx)
	if err != nil {
		return nil, err
	}

	req, err := build(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Zoho-oauthtoken "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}

	return resp, nil
}

func readBody(resp *http.Response) ([]byte, error) {
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &APIError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	return body, nil
}

// checkStatus reports an item-level error the API returns with a 2xx status
func checkStatus(body []byte, path string) error {
	item := gjson.GetBytes(body, path)
	if item.Get("status").String() != "error" {
		return nil
	}
	return fmt.Errorf("%s: %s", item.Get("code").String(), item.Get("message").String())
}

func discard(resp *http.Response) {
	_, _ = io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
}
