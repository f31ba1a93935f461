// Package api wraps every outbound call to the inspection service in a
// single shared client: bearer-token auth, automatic rate-limit
// retries, global session-expiry handling, and typed endpoint helpers.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"sitewalk/internal/session"
)

// ErrSessionExpired is returned by every call that hit a 401. By the
// time the caller sees it the session has already been cleared and the
// expiry hooks have run, so callers should stop quietly rather than
// surface it as a failure.
var ErrSessionExpired = errors.New("session expired")

// rateLimitFallback is waited when a 429 carries no Retry-After header.
const rateLimitFallback = 1 * time.Second

// Notifier surfaces user-facing messages. The TUI status line
// implements it; NopNotifier discards for headless use.
type Notifier interface {
	Info(msg string)
	Warn(msg string)
	Error(msg string)
}

// NopNotifier discards all notifications.
type NopNotifier struct{}

func (NopNotifier) Info(string)  {}
func (NopNotifier) Warn(string)  {}
func (NopNotifier) Error(string) {}

// APIError is a non-2xx response carrying the server-provided message
// when one was present in the body.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("api error %d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("api error %d", e.Status)
}

// Config holds construction parameters for the client.
type Config struct {
	BaseURL string
	Timeout time.Duration
}

// Client is the shared HTTP client for the inspection service.
type Client struct {
	baseURL    string
	httpClient *http.Client
	session    *session.Session
	notifier   Notifier
	logger     *zap.Logger

	// sleep is swapped out in tests to avoid real rate-limit waits.
	sleep func(ctx context.Context, d time.Duration) error
}

// New creates a client. Session is required; notifier and logger fall
// back to no-ops.
func New(cfg Config, sess *session.Session, notifier Notifier, logger *zap.Logger) *Client {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL:    cfg.BaseURL,
		httpClient: &http.Client{Timeout: timeout},
		session:    sess,
		notifier:   notifier,
		logger:     logger.Named("api"),
		sleep:      sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// do issues one logical request. The body is kept as bytes so the exact
// request can be re-issued after a rate-limit wait.
//
// Status handling:
//   - 429: notify the user once per logical request, wait the
//     server-specified delay (1s fallback) and re-issue. Repeats for
//     as long as the server keeps answering 429.
//   - 401: clear the session, run expiry hooks, return
//     ErrSessionExpired.
//   - 5xx: notify a generic server error, still return the error.
//   - other non-2xx: returned as *APIError with the body message.
func (c *Client) do(ctx context.Context, method, path string, body []byte, contentType string) ([]byte, error) {
	requestID := uuid.NewString()
	notified := false

	for {
		var reader io.Reader
		if body != nil {
			reader = bytes.NewReader(body)
		}
		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		if contentType != "" {
			req.Header.Set("Content-Type", contentType)
		}
		if token := c.session.Token(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		req.Header.Set("X-Request-ID", requestID)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("request failed: %w", err)
		}
		respBody, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("failed to read response: %w", err)
		}

		switch {
		case resp.StatusCode == http.StatusTooManyRequests:
			delay := retryDelay(resp.Header.Get("Retry-After"))
			if !notified {
				notified = true
				c.notifier.Warn("Rate limited by server, retrying shortly...")
			}
			c.logger.Debug("rate limited, waiting before re-issue",
				zap.String("method", method),
				zap.String("path", path),
				zap.String("request_id", requestID),
				zap.Duration("delay", delay))
			if err := c.sleep(ctx, delay); err != nil {
				return nil, err
			}
			continue

		case resp.StatusCode == http.StatusUnauthorized:
			c.logger.Warn("unauthorized, expiring session",
				zap.String("method", method),
				zap.String("path", path),
				zap.String("request_id", requestID))
			c.session.Expire()
			return nil, ErrSessionExpired

		case resp.StatusCode >= 500:
			c.notifier.Error("Server error, please try again later.")
			return nil, &APIError{Status: resp.StatusCode, Message: serverMessage(respBody)}

		case resp.StatusCode >= 400:
			return nil, &APIError{Status: resp.StatusCode, Message: serverMessage(respBody)}
		}

		return respBody, nil
	}
}

// getJSON issues a GET and decodes the JSON response into out.
func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	body, err := c.do(ctx, http.MethodGet, path, nil, "")
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to parse response from %s: %w", path, err)
	}
	return nil
}

// sendJSON issues a request with a JSON body and optionally decodes the
// response into out (out may be nil).
func (c *Client) sendJSON(ctx context.Context, method, path string, in, out any) error {
	payload, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}
	body, err := c.do(ctx, method, path, payload, "application/json")
	if err != nil {
		return err
	}
	// A 204 or empty 2xx body is still a success; leave out untouched.
	if out == nil || len(body) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to parse response from %s: %w", path, err)
	}
	return nil
}

// retryDelay parses a Retry-After header given in seconds.
func retryDelay(header string) time.Duration {
	if header != "" {
		if secs, err := strconv.Atoi(header); err == nil && secs >= 0 {
			return time.Duration(secs) * time.Second
		}
	}
	return rateLimitFallback
}

// serverMessage extracts the "message" field from an error body.
func serverMessage(body []byte) string {
	var payload struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	return payload.Message
}
