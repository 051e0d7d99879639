// Package gge provides the client for the GGE tracker API.
package gge

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"
)

// AlliancePlayer is one roster entry in an alliance response.
type AlliancePlayer struct {
	PlayerID     int64  `json:"player_id"`
	PlayerName   string `json:"player_name"`
	AllianceRank int    `json:"alliance_rank"`
	Level        *int   `json:"level,omitempty"`
	Might        *int64 `json:"might,omitempty"`
	Loot         *int64 `json:"loot,omitempty"`
	Honor        *int64 `json:"honor,omitempty"`
}

// AllianceResponse is the tracker's alliance roster document.
type AllianceResponse struct {
	AllianceID   int64            `json:"alliance_id"`
	AllianceName string           `json:"alliance_name"`
	Players      []AlliancePlayer `json:"players"`
}

// Config holds the client configuration.
type Config struct {
	BaseURL    string
	ServerCode string
	MaxRetries int
}

// Client fetches alliance data from the tracker API. Requests carry the
// game-server code as a header and are retried with linear backoff on any
// transport or non-2xx failure.
type Client struct {
	cfg  Config
	http *http.Client
}

// New creates a new Client instance.
func New(cfg Config) *Client {
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	return &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: 30 * time.Second},
	}
}

// AllianceByID fetches one alliance's roster.
func (c *Client) AllianceByID(ctx context.Context, allianceID int64) (*AllianceResponse, error) {
	var resp AllianceResponse
	if err := c.getJSON(ctx, fmt.Sprintf("alliances/id/%d", allianceID), &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// getJSON performs one retried GET and decodes the JSON body into out.
func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	url := strings.TrimSuffix(c.cfg.BaseURL, "/") + "/" + strings.TrimPrefix(path, "/")

	backoff := retry.WithMaxRetries(uint64(c.cfg.MaxRetries-1), retry.NewConstant(500*time.Millisecond))
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return err
		}
		req.Header.Set("gge-server", c.cfg.ServerCode)

		resp, err := c.http.Do(req)
		if err != nil {
			return retry.RetryableError(err)
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			return retry.RetryableError(fmt.Errorf("HTTP %d %s", resp.StatusCode, resp.Status))
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return retry.RetryableError(fmt.Errorf("failed to decode response: %w", err))
		}
		return nil
	})
}
