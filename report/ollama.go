package report

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/ollama/ollama/api"
)

// OllamaGenerator writes reports with a chat model served by Ollama.
type OllamaGenerator struct {
	client *api.Client
	model  string
}

// NewOllamaGenerator creates a generator for the Ollama server at serverURL. Any path in the URL
// (e.g. /api/chat) is ignored.
func NewOllamaGenerator(serverURL, model string, httpClient *http.Client) (*OllamaGenerator, error) {
	parsed, err := url.Parse(serverURL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("invalid URL %q: scheme and host are required", serverURL)
	}
	if model == "" {
		return nil, errors.New("model is required")
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	base := &url.URL{Scheme: parsed.Scheme, Host: parsed.Host}
	return &OllamaGenerator{client: api.NewClient(base, httpClient), model: model}, nil
}

// Generate asks the model for a Markdown report.
func (g *OllamaGenerator) Generate(ctx context.Context, req Request) (string, error) {
	stream := false
	chatReq := &api.ChatRequest{
		Model: g.model,
		Messages: []api.Message{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt(req)},
		},
		Stream:  &stream,
		Options: map[string]any{"temperature": 0.2},
	}

	var content strings.Builder
	err := g.client.Chat(ctx, chatReq, func(resp api.ChatResponse) error {
		content.WriteString(resp.Message.Content)
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("ollama chat error: %w", err)
	}
	if strings.TrimSpace(content.String()) == "" {
		return "", errors.New("empty response from ollama")
	}

	return content.String(), nil
}

const systemPrompt = "You are a quality engineer writing short inspection reports for printed" +
	" circuit boards. Answer in Markdown only, starting with a level-2 heading, and finish with a" +
	" \"Suggested Next Steps\" list of at most three items."

func userPrompt(req Request) string {
	var b strings.Builder
	fmt.Fprintf(&b, "A classifier inspected a PCB image.\nPrediction: %s\nConfidence: %.1f%%\n",
		req.Prediction(), req.Confidence*100)
	if req.LatencyMS != nil {
		fmt.Fprintf(&b, "Inference latency: %d ms\n", *req.LatencyMS)
	}
	if req.ImageID != "" {
		fmt.Fprintf(&b, "Image: %s\n", req.ImageID)
	}
	b.WriteString("Write the inspection report.")
	return b.String()
}
