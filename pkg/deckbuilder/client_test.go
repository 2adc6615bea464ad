package deckbuilder

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"deckster/pkg/transform"
)

func TestCreatePresentation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/presentations", r.URL.Path)

		var payload transform.PresentationPayload
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Equal(t, "Quarterly Update", payload.Title)
		require.Len(t, payload.Slides, 1)
		assert.Equal(t, "L05", payload.Slides[0].Layout)

		_, _ = w.Write([]byte(`{"id": "pres_42", "url": "/p/pres_42"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 5*time.Second)
	result, err := c.CreatePresentation(context.Background(), &transform.PresentationPayload{
		Title: "Quarterly Update",
		Slides: []transform.SlidePayload{
			{Layout: "L05", Content: map[string]any{"slide_title": "Results", "bullets": []string{"Up and to the right"}}},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "pres_42", result.ID)
	assert.Equal(t, "/p/pres_42", result.URL)
}

func TestCreatePresentationServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "render queue full", http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 5*time.Second)
	_, err := c.CreatePresentation(context.Background(), &transform.PresentationPayload{Title: "x"})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
	assert.Contains(t, err.Error(), "render queue full")
}

func TestGetFullURL(t *testing.T) {
	c := NewClient("http://decks.internal:8080/", time.Second)

	assert.Equal(t, "http://decks.internal:8080/p/abc", c.GetFullURL("/p/abc"))
	assert.Equal(t, "http://decks.internal:8080/p/abc", c.GetFullURL("p/abc"))
	assert.Equal(t, "https://cdn.example.com/p/abc", c.GetFullURL("https://cdn.example.com/p/abc"))
}
