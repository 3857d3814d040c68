package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	defaultTimeout = 30 * time.Second

	// MaxResponseBytes caps how much of an upstream response body is read
	MaxResponseBytes = 8 << 20
)

// ErrResponseTooLarge is returned when an upstream body exceeds the read limit
var ErrResponseTooLarge = errors.New("upstream response too large")

// StatusError is returned when the upstream answers with a non-2xx status
type StatusError struct {
	StatusCode int
	Body       string
	Endpoint   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("upstream %s returned status %d: %s", e.Endpoint, e.StatusCode, e.Body)
}

// Client is a JSON HTTP client authenticated with a static token
type Client struct {
	urls   URLBuilder
	token   string
	client  *http.Client
	maxBody int64
	logger  *logrus.Logger
}

// NewClient creates a client. A zero timeout uses 30 seconds.
func NewClient(urls URLBuilder, token string, timeout time.Duration, logger *logrus.Logger) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		urls:    urls,
		token:   token,
		client:  &http.Client{Timeout: timeout},
		maxBody: MaxResponseBytes,
		logger:  logger,
	}
}

// URL exposes the absolute URL an endpoint resolves to
func (c *Client) URL(endpoint string, query url.Values) string {
	return c.urls.Build(endpoint, query)
}

// Do sends body as JSON (when non-nil) and decodes the response into out (when non-nil)
func (c *Client) Do(ctx context.Context, method, endpoint string, query url.Values, body, out interface{}) error {
	target := c.urls.Build(endpoint, query)

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Token "+c.token)
	}

	start := time.Now()
	resp, err := c.client.Do(req)
	fields := logrus.Fields{
		"method":     method,
		"endpoint":   endpoint,
		"latency_ms": time.Since(start).Milliseconds(),
	}
	if action := query.Get("accion"); action != "" {
		fields["action"] = action
	}
	if err != nil {
		c.logger.WithFields(fields).WithError(err).Warn("Upstream call failed")
		return fmt.Errorf("failed to call %s: %w", endpoint, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBody+1))
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	if int64(len(raw)) > c.maxBody {
		c.logger.WithFields(fields).Warn("Upstream response exceeds read limit")
		return fmt.Errorf("failed to read response from %s: %w", endpoint, ErrResponseTooLarge)
	}

	fields["status"] = resp.StatusCode
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.logger.WithFields(fields).Warn("Upstream returned error status")
		return &StatusError{StatusCode: resp.StatusCode, Body: string(raw), Endpoint: endpoint}
	}
	c.logger.WithFields(fields).Debug("Upstream call completed")

	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("failed to parse response from %s: %w", endpoint, err)
	}
	return nil
}
