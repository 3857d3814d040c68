package sms

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"
)

// HTTPGateway sends SMS through a REST API authenticated with a login token
type HTTPGateway struct {
	apiURL   string
	username string
	password string
	mask     string
	client   *http.Client

	// Token management
	token       string
	tokenMutex  sync.RWMutex
	tokenExpiry time.Time
}

// HTTPConfig holds configuration for the SMS REST API
type HTTPConfig struct {
	APIURL   string
	Username string
	Password string
	Mask     string
	Timeout  time.Duration
}

// NewHTTPGateway creates a new SMS REST API client
func NewHTTPGateway(config HTTPConfig) *HTTPGateway {
	timeout := config.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &HTTPGateway{
		apiURL:   config.APIURL,
		username: config.Username,
		password: config.Password,
		mask:     config.Mask,
		client:   &http.Client{Timeout: timeout},
	}
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Status     string `json:"status"`
	Comment    string `json:"comment"`
	Token      string `json:"token"`
	Expiration int    `json:"expiration"` // seconds
	ErrCode    string `json:"errCode"`
}

type recipient struct {
	Mobile string `json:"mobile"`
}

type sendRequest struct {
	MSISDN        []recipient `json:"msisdn"`
	Message       string      `json:"message"`
	SourceAddress string      `json:"sourceAddress,omitempty"`
	TransactionID int64       `json:"transaction_id"`
}

type sendResponse struct {
	Status  string `json:"status"`
	Comment string `json:"comment"`
	ErrCode string `json:"errCode"`
}

// login retrieves an access token
func (g *HTTPGateway) login(ctx context.Context) error {
	var resp loginResponse
	if err := g.post(ctx, "/login", "", loginRequest{Username: g.username, Password: g.password}, &resp); err != nil {
		return fmt.Errorf("failed to log in: %w", err)
	}
	if resp.Status != "success" {
		return fmt.Errorf("login failed: %s (error code: %s)", resp.Comment, resp.ErrCode)
	}

	g.tokenMutex.Lock()
	g.token = resp.Token
	g.tokenExpiry = time.Now().Add(time.Duration(resp.Expiration) * time.Second)
	g.tokenMutex.Unlock()
	return nil
}

// currentToken returns a token valid for at least five more minutes, logging in again when needed
func (g *HTTPGateway) currentToken(ctx context.Context) (string, error) {
	g.tokenMutex.RLock()
	token, expiry := g.token, g.tokenExpiry
	g.tokenMutex.RUnlock()

	if token != "" && time.Now().Before(expiry.Add(-5*time.Minute)) {
		return token, nil
	}
	if err := g.login(ctx); err != nil {
		return "", err
	}

	g.tokenMutex.RLock()
	defer g.tokenMutex.RUnlock()
	return g.token, nil
}

// Send delivers one message and returns its transaction id
func (g *HTTPGateway) Send(ctx context.Context, phone, message string) (int64, error) {
	formatted, err := FormatPhone(phone)
	if err != nil {
		return 0, fmt.Errorf("failed to format phone number: %w", err)
	}

	token, err := g.currentToken(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to get access token: %w", err)
	}

	transactionID := time.Now().UnixMicro()
	req := sendRequest{
		MSISDN:        []recipient{{Mobile: formatted}},
		Message:       message,
		SourceAddress: g.mask,
		TransactionID: transactionID,
	}

	var resp sendResponse
	if err := g.post(ctx, "/sms", token, req, &resp); err != nil {
		return 0, fmt.Errorf("failed to send SMS: %w", err)
	}
	if resp.Status != "success" {
		return 0, fmt.Errorf("SMS sending failed: %s (error code: %s)", resp.Comment, resp.ErrCode)
	}
	return transactionID, nil
}

// Name returns the name of this SMS gateway
func (g *HTTPGateway) Name() string {
	return "SMS REST gateway"
}

func (g *HTTPGateway) post(ctx context.Context, path, token string, body, out interface{}) error {
	jsonData, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.apiURL+path, bytes.NewReader(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("SMS API returned status %d: %s", resp.StatusCode, bytes.TrimSpace(raw))
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}
