// Package history reads recent bets for an instance from the dashboard API.
package history

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"botdash/internal/telemetry"
)

var ErrUnexpectedStatus = errors.New("unexpected_status")

type Client struct {
	baseURL string
	userID  string
	role    string
	inner   *http.Client
}

func NewClient(baseURL, userID, role string, timeout time.Duration) *Client {
	inner := &http.Client{}
	if timeout > 0 {
		inner.Timeout = timeout
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		userID:  userID,
		role:    role,
		inner:   inner,
	}
}

// RecentBets returns up to limit bets for the instance, newest first, in the
// order the API returned them.
func (c *Client) RecentBets(ctx context.Context, instanceID string, limit int) ([]telemetry.BetEntry, error) {
	u := c.baseURL + "/api/bet-history/" + url.PathEscape(instanceID)
	if limit > 0 {
		u += "?limit=" + strconv.Itoa(limit)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if c.userID != "" {
		req.Header.Set("X-User-ID", c.userID)
	}
	if c.role != "" {
		req.Header.Set("X-User-Role", c.role)
	}

	resp, err := c.inner.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: bet history returned %d", ErrUnexpectedStatus, resp.StatusCode)
	}
	return DecodeBets(body)
}

// DecodeBets parses a JSON array of bet records of any shape.
func DecodeBets(body []byte) ([]telemetry.BetEntry, error) {
	var raw []telemetry.Record
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("decode bet history: %w", err)
	}
	out := make([]telemetry.BetEntry, 0, len(raw))
	for _, r := range raw {
		if r == nil {
			continue
		}
		out = append(out, telemetry.NormalizeHistoryRecord(r))
	}
	return out, nil
}
