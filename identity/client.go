package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/MrEthical07/authform"
)

// Client implements authform.IdentityService against a remote [Server]-compatible
// endpoint. It never retries.
type Client struct {
	baseURL string
	http    *http.Client
}

// ClientOption customizes a Client.
type ClientOption func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// NewClient returns a Client for the service rooted at baseURL.
func NewClient(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// CreateAccount posts payload to /accounts.
func (c *Client) CreateAccount(ctx context.Context, payload authform.RegistrationPayload) (*authform.AccountRecord, error) {
	var record authform.AccountRecord
	found, err := c.post(ctx, "/accounts", payload, &record)
	if err != nil || !found {
		return nil, err
	}
	return &record, nil
}

// Authenticate posts creds to /sessions.
func (c *Client) Authenticate(ctx context.Context, creds authform.Credentials) (*authform.SessionResult, error) {
	var session authform.SessionResult
	found, err := c.post(ctx, "/sessions", creds, &session)
	if err != nil || !found {
		return nil, err
	}
	return &session, nil
}

// post reports found=false for a 2xx answer with an empty body.
func (c *Client) post(ctx context.Context, path string, in, out any) (bool, error) {
	body, err := json.Marshal(in)
	if err != nil {
		return false, fmt.Errorf("identity: encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return false, fmt.Errorf("identity: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return false, fmt.Errorf("%w: %w", authform.ErrIdentityUnavailable, ctxErr)
		}
		return false, fmt.Errorf("%w: %v", authform.ErrIdentityUnavailable, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxRequestBytes))
	if err != nil {
		return false, fmt.Errorf("%w: read response: %v", authform.ErrIdentityUnavailable, err)
	}

	switch {
	case resp.StatusCode == http.StatusConflict:
		return false, authform.ErrAccountExists
	case resp.StatusCode == http.StatusUnauthorized:
		return false, authform.ErrInvalidCredentials
	case resp.StatusCode >= http.StatusInternalServerError:
		return false, fmt.Errorf("%w: status %d", authform.ErrIdentityUnavailable, resp.StatusCode)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return false, fmt.Errorf("identity: unexpected status %d", resp.StatusCode)
	}

	if len(bytes.TrimSpace(raw)) == 0 || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return false, nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return false, fmt.Errorf("identity: decode response: %w", err)
	}
	return true, nil
}
