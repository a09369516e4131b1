// Package botmanager talks to the external bot-runner control API.
package botmanager

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

var (
	ErrUnexpectedStatus = errors.New("unexpected_status")
	ErrNoBalance        = errors.New("balance_missing")
)

type Client struct {
	baseURL string
	inner   *http.Client
}

// NewClient returns a client for baseURL. timeout <= 0 leaves requests bounded
// only by their context and the transport.
func NewClient(baseURL string, timeout time.Duration) *Client {
	inner := &http.Client{}
	if timeout > 0 {
		inner.Timeout = timeout
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), inner: inner}
}

func (c *Client) BaseURL() string {
	return c.baseURL
}

type balanceResponse struct {
	Balance *float64 `json:"balance"`
}

// Balance fetches the live account balance of an instance.
func (c *Client) Balance(ctx context.Context, instanceID string) (float64, error) {
	status, body, err := c.get(ctx, "/bot/balance/"+url.PathEscape(instanceID))
	if err != nil {
		return 0, err
	}
	if status < 200 || status >= 300 {
		return 0, fmt.Errorf("%w: balance returned %d", ErrUnexpectedStatus, status)
	}
	var resp balanceResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return 0, fmt.Errorf("decode balance: %w", err)
	}
	if resp.Balance == nil {
		return 0, ErrNoBalance
	}
	return *resp.Balance, nil
}

// Start asks the runner to launch an instance.
func (c *Client) Start(ctx context.Context, instanceID string) error {
	return c.command(ctx, "start", instanceID)
}

// Stop asks the runner to halt an instance.
func (c *Client) Stop(ctx context.Context, instanceID string) error {
	return c.command(ctx, "stop", instanceID)
}

func (c *Client) command(ctx context.Context, action, instanceID string) error {
	status, _, err := c.get(ctx, "/bot/"+action+"/"+url.PathEscape(instanceID))
	if err != nil {
		return err
	}
	if status < 200 || status >= 300 {
		return fmt.Errorf("%w: %s returned %d", ErrUnexpectedStatus, action, status)
	}
	return nil
}

func (c *Client) get(ctx context.Context, path string) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Accept", "application/json")
	resp, err := c.inner.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return resp.StatusCode, nil, err
	}
	return resp.StatusCode, body, nil
}
