package report

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ollama/ollama/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewOllamaGenerator_Invalid(t *testing.T) {
	_, err := NewOllamaGenerator("localhost:11434", "llama3.2", nil)
	assert.Error(t, err)

	_, err = NewOllamaGenerator("http://localhost:11434", "", nil)
	assert.Error(t, err)

	_, err = NewOllamaGenerator("http://localhost:11434/api/chat", "llama3.2", nil)
	assert.NoError(t, err)
}

func TestOllamaGenerator_Generate(t *testing.T) {
	var got api.ChatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/chat", r.URL.Path)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"model":"test","message":{"role":"assistant","content":"## Report\n\nReplace the board."},"done":true}`))
	}))
	defer srv.Close()

	g, err := NewOllamaGenerator(srv.URL, "test", srv.Client())
	require.NoError(t, err)

	md, err := g.Generate(context.Background(),
		Request{Label: "short", Confidence: 0.8, LatencyMS: int64Ptr(7), ImageID: "img-3"})
	require.NoError(t, err)

	assert.Equal(t, "## Report\n\nReplace the board.", md)
	assert.Equal(t, "test", got.Model)
	require.NotNil(t, got.Stream)
	assert.False(t, *got.Stream)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, "system", got.Messages[0].Role)
	assert.Contains(t, got.Messages[1].Content, "Prediction: short")
	assert.Contains(t, got.Messages[1].Content, "Confidence: 80.0%")
	assert.Contains(t, got.Messages[1].Content, "Inference latency: 7 ms")
	assert.Contains(t, got.Messages[1].Content, "Image: img-3")
}

func TestOllamaGenerator_Errors(t *testing.T) {
	tests := map[string]http.HandlerFunc{
		"server error": func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, `{"error":"model not found"}`, http.StatusNotFound)
		},
		"empty content": func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"model":"test","message":{"role":"assistant","content":""},"done":true}`))
		},
	}

	for name, handler := range tests {
		t.Run(name, func(t *testing.T) {
			srv := httptest.NewServer(handler)
			defer srv.Close()

			g, err := NewOllamaGenerator(srv.URL, "test", srv.Client())
			require.NoError(t, err)

			_, err = g.Generate(context.Background(), Request{Label: "short", Confidence: 0.5})
			assert.Error(t, err)
		})
	}
}

func TestService_OllamaFallback(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	g, err := NewOllamaGenerator(srv.URL, "test", srv.Client())
	require.NoError(t, err)
	s := quietService(g, 50*time.Millisecond)

	req := Request{Label: "open", Confidence: 0.66}
	resp := s.Report(context.Background(), req)

	assert.Equal(t, SourceTemplate, resp.Source)
	assert.Equal(t, Template(req), resp.Markdown)
}
