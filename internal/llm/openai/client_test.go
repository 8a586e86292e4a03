package openai

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_Complete(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = io.WriteString(w, `{"choices":[{"message":{"content":"SSR"}}]}`)
	}))
	defer srv.Close()

	c := NewClient(Config{
		APIKey:      "sk-test",
		BaseURL:     srv.URL + "/",
		Model:       "qwen2-vl",
		Temperature: 0.6,
		Timeout:     5 * time.Second,
	}, slog.New(slog.NewTextHandler(io.Discard, nil)))

	out, err := c.Complete(context.Background(), []byte{0xff, 0xd8}, "rarity?")
	require.NoError(t, err)
	assert.Equal(t, "SSR", out)

	assert.Equal(t, "qwen2-vl", got["model"])
	assert.InDelta(t, 0.6, got["temperature"], 0.0001)
	assert.EqualValues(t, 4096, got["max_tokens"])

	msgs := got["messages"].([]any)
	require.Len(t, msgs, 1)
	msg := msgs[0].(map[string]any)
	assert.Equal(t, "user", msg["role"])
	parts := msg["content"].([]any)
	require.Len(t, parts, 2)
	img := parts[0].(map[string]any)
	assert.Equal(t, "image_url", img["type"])
	url := img["image_url"].(map[string]any)["url"].(string)
	assert.True(t, strings.HasPrefix(url, "data:image/jpeg;base64,"), url)
	text := parts[1].(map[string]any)
	assert.Equal(t, "text", text["type"])
	assert.Equal(t, "rarity?", text["text"])
}

func TestClient_CompleteErrors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr string
	}{
		{name: "server error", status: http.StatusBadGateway, body: "upstream down", wantErr: "502"},
		{name: "bad json", status: http.StatusOK, body: "not json", wantErr: "decode chat response"},
		{name: "no choices", status: http.StatusOK, body: `{"choices":[]}`, wantErr: "no choices"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			}))
			defer srv.Close()

			c := NewClient(Config{BaseURL: srv.URL}, slog.New(slog.NewTextHandler(io.Discard, nil)))
			_, err := c.Complete(context.Background(), []byte{1}, "p")
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}
