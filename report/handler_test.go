package report

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func serve(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHandler_Healthz(t *testing.T) {
	rec := serve(t, NewHandler(quietService(nil, 0)), http.MethodGet, "/healthz", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestHandler_Report(t *testing.T) {
	h := NewHandler(quietService(nil, 0))

	rec := serve(t, h, http.MethodPost, "/report",
		`{"label":"short","confidence":0.95,"latency_ms":12,"image_id":"img-1"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var resp Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, SourceTemplate, resp.Source)
	assert.NotEmpty(t, resp.ReportID)
	assert.Contains(t, resp.Markdown, "**Prediction:** short")
	assert.Contains(t, resp.Markdown, "**Confidence:** 95.0%")
	assert.Contains(t, resp.Markdown, "**Latency:** 12 ms")
}

func TestHandler_ReportClassNameAlias(t *testing.T) {
	s := quietService(generatorFunc(func(_ context.Context, req Request) (string, error) {
		return "## " + req.Prediction(), nil
	}), 0)

	rec := serve(t, NewHandler(s), http.MethodPost, "/report", `{"class_name":"spur","confidence":0.5}`)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, SourceLLM, resp.Source)
	assert.Equal(t, "## spur", resp.Markdown)
}

func TestHandler_BadRequest(t *testing.T) {
	h := NewHandler(quietService(nil, 0))

	for name, body := range map[string]string{
		"malformed JSON":   `{"label":`,
		"missing label":    `{"confidence":0.5}`,
		"confidence range": `{"label":"short","confidence":95}`,
		"wrong type":       `{"label":"short","confidence":"high"}`,
		"too large":        `{"label":"` + strings.Repeat("a", maxRequestBytes) + `"}`,
	} {
		t.Run(name, func(t *testing.T) {
			rec := serve(t, h, http.MethodPost, "/report", body)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			var resp map[string]string
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.NotEmpty(t, resp["error"])
		})
	}
}

func TestHandler_MethodNotAllowed(t *testing.T) {
	rec := serve(t, NewHandler(quietService(nil, 0)), http.MethodGet, "/report", "")

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
