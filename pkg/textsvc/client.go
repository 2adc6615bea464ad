// Package textsvc is the HTTP client for the text-generation service that
// writes final slide copy.
package textsvc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"deckster/pkg/logx"
)

// Request is one per-slide generation call. The service is stateless; all
// context it needs travels in the request.
type Request struct {
	PresentationID string      `json:"presentation_id"`
	SlideID        string      `json:"slide_id"`
	SlideNumber    int         `json:"slide_number"`
	Topics         []string    `json:"topics"`
	Narrative      string      `json:"narrative"`
	Context        ReqContext  `json:"context"`
	Constraints    Constraints `json:"constraints"`
}

// ReqContext situates the slide within its presentation.
type ReqContext struct {
	PresentationContext string   `json:"presentation_context"`
	SlideContext        string   `json:"slide_context"`
	PreviousSlides      []string `json:"previous_slides"`
}

// Constraints bound the generated text.
type Constraints struct {
	MaxCharacters int    `json:"max_characters"`
	Tone          string `json:"tone"`
	Format        string `json:"format"`
}

// Response is the service's generation result. Content is either a plain
// string or a structured mapping keyed by layout schema fields; the service
// owns the formatting of whatever it returns.
type Response struct {
	Content  json.RawMessage `json:"content"`
	Metadata Metadata        `json:"metadata"`
}

// Metadata describes how the content was produced.
type Metadata struct {
	WordCount        int    `json:"word_count"`
	GenerationTimeMS int64  `json:"generation_time_ms"`
	ModelUsed        string `json:"model_used"`
}

// Client calls the text service over HTTP.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *logx.Logger
}

// NewClient creates a text service client. The timeout applies per request.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
		logger:  logx.NewLogger("textsvc"),
	}
}

// Generate requests text for one slide. A non-2xx status or undecodable
// body is an error; the caller treats any failure as a per-slide failure.
func (c *Client) Generate(ctx context.Context, req *Request) (*Response, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to encode text generation request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/generate", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build text generation request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("text service call failed for slide %s: %w", req.SlideID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("text service returned %d for slide %s: %s", resp.StatusCode, req.SlideID, snippet)
	}

	var out Response
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode text service response for slide %s: %w", req.SlideID, err)
	}

	c.logger.Debug("generated text for slide %s in %dms (%d words)", req.SlideID, time.Since(start).Milliseconds(), out.Metadata.WordCount)
	return &out, nil
}
