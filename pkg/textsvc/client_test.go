package textsvc

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateDecodesStructuredContent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/generate", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)

		var req Request
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "slide_002", req.SlideID)
		assert.Equal(t, 120, req.Constraints.MaxCharacters)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"content": {"slide_title": "Better Title", "bullets": ["a point"]},
			"metadata": {"word_count": 4, "generation_time_ms": 80, "model_used": "writer-v2"}
		}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 5*time.Second)
	resp, err := c.Generate(context.Background(), &Request{
		PresentationID: "pres_1",
		SlideID:        "slide_002",
		SlideNumber:    2,
		Topics:         []string{"growth"},
		Constraints:    Constraints{MaxCharacters: 120, Tone: "professional", Format: "structured"},
	})
	require.NoError(t, err)

	var structured map[string]any
	require.NoError(t, json.Unmarshal(resp.Content, &structured))
	assert.Equal(t, "Better Title", structured["slide_title"])
	assert.Equal(t, "writer-v2", resp.Metadata.ModelUsed)
}

func TestGenerateDecodesLegacyStringContent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"content": "plain generated text", "metadata": {"word_count": 3}}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 5*time.Second)
	resp, err := c.Generate(context.Background(), &Request{SlideID: "slide_001"})
	require.NoError(t, err)

	var legacy string
	require.NoError(t, json.Unmarshal(resp.Content, &legacy))
	assert.Equal(t, "plain generated text", legacy)
}

func TestGenerateServerErrorIncludesBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "model overloaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 5*time.Second)
	_, err := c.Generate(context.Background(), &Request{SlideID: "slide_003"})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
	assert.Contains(t, err.Error(), "slide_003")
	assert.Contains(t, err.Error(), "model overloaded")
}

func TestGenerateUnreachableService(t *testing.T) {
	c := NewClient("http://127.0.0.1:1", 500*time.Millisecond)
	_, err := c.Generate(context.Background(), &Request{SlideID: "slide_001"})
	require.Error(t, err)
}
