// Package deckbuilder is the HTTP client for the presentation rendering
// service.
package deckbuilder

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"deckster/pkg/logx"
	"deckster/pkg/transform"
)

// Result identifies a rendered presentation.
type Result struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

// Client calls the deck builder over HTTP.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *logx.Logger
}

// NewClient creates a deck builder client. The timeout applies per request.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		logger:  logx.NewLogger("deckbuilder"),
	}
}

// CreatePresentation submits a render payload and returns the presentation
// ID and (usually relative) URL.
func (c *Client) CreatePresentation(ctx context.Context, payload *transform.PresentationPayload) (*Result, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode render payload: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/presentations", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build render request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("deck builder call failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("deck builder returned %d: %s", resp.StatusCode, snippet)
	}

	var out Result
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode deck builder response: %w", err)
	}

	c.logger.Info("created presentation %s (%d slides)", out.ID, len(payload.Slides))
	return &out, nil
}

// GetFullURL resolves a relative presentation URL against the service base.
// Absolute URLs pass through unchanged.
func (c *Client) GetFullURL(relative string) string {
	if strings.HasPrefix(relative, "http://") || strings.HasPrefix(relative, "https://") {
		return relative
	}
	if !strings.HasPrefix(relative, "/") {
		relative = "/" + relative
	}
	return c.baseURL + relative
}
