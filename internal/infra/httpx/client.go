package httpx

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const DefaultTimeout = 15 * time.Second

// Error classifies a failed call. Status is nil for network and timeout
// failures where no HTTP response was received.
type Error struct {
	Message string
	Status  *int
	URL     string
	Details any
}

func (e *Error) Error() string {
	if e.Status != nil {
		return fmt.Sprintf("httpx: %s (status %d, url %s)", e.Message, *e.Status, e.URL)
	}
	return fmt.Sprintf("httpx: %s (no status, url %s)", e.Message, e.URL)
}

// StatusCode returns the HTTP status or 0 when none was received.
func (e *Error) StatusCode() int {
	if e.Status == nil {
		return 0
	}
	return *e.Status
}

// Client is a thin JSON-over-HTTP call wrapper with a bounded timeout and
// uniform error classification.
type Client struct {
	hc      *http.Client
	timeout time.Duration
}

func NewClient(timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{hc: &http.Client{}, timeout: timeout}
}

// DoJSON issues a request with a JSON body (nil for none), decodes a JSON
// response into out (out may be nil for empty responses) and returns a
// classified *Error on any failure. Non-2xx responses extract a message from
// common body shapes: message, errors[], detail.
func (c *Client) DoJSON(ctx context.Context, method, url string, headers map[string]string, body, out any) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return &Error{Message: "marshal request: " + err.Error(), URL: url}
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return &Error{Message: "build request: " + err.Error(), URL: url}
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		msg := "network error: " + err.Error()
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			msg = "request timed out"
		}
		return &Error{Message: msg, URL: url}
	}
	defer resp.Body.Close()

	raw, readErr := io.ReadAll(resp.Body)
	status := resp.StatusCode

	var jsonBody any
	if len(raw) > 0 && strings.Contains(resp.Header.Get("Content-Type"), "application/json") {
		_ = json.Unmarshal(raw, &jsonBody)
	}

	if status < 200 || status >= 300 {
		return &Error{
			Message: extractMessage(jsonBody, status),
			Status:  &status,
			URL:     url,
			Details: firstNonNil(jsonBody, string(raw)),
		}
	}
	if readErr != nil {
		return &Error{Message: "read response: " + readErr.Error(), Status: &status, URL: url}
	}

	if out == nil || len(raw) == 0 {
		// 204 No Content and friends.
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return &Error{Message: "unexpected non-JSON response", Status: &status, URL: url, Details: string(raw)}
	}
	return nil
}

func extractMessage(jsonBody any, status int) string {
	m, ok := jsonBody.(map[string]any)
	if !ok {
		return fmt.Sprintf("request failed with status %d", status)
	}
	if s, ok := m["message"].(string); ok && s != "" {
		return s
	}
	if errs, ok := m["errors"].([]any); ok && len(errs) > 0 {
		parts := make([]string, 0, len(errs))
		for _, e := range errs {
			switch v := e.(type) {
			case string:
				parts = append(parts, v)
			case map[string]any:
				if s, ok := v["message"].(string); ok {
					parts = append(parts, s)
				}
			}
		}
		if len(parts) > 0 {
			return strings.Join(parts, ", ")
		}
	}
	if d, ok := m["detail"]; ok {
		if s, ok := d.(string); ok {
			return s
		}
		b, _ := json.Marshal(d)
		return string(b)
	}
	return fmt.Sprintf("request failed with status %d", status)
}

func firstNonNil(a any, b string) any {
	if a != nil {
		return a
	}
	if b != "" {
		return b
	}
	return nil
}
