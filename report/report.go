// Package report turns a PCB classification result into a Markdown inspection report.
//
// Reports are produced by an optional remote Generator. Whenever the generator is missing, fails,
// times out or returns nothing usable, the deterministic local template is used instead; a
// remote failure is never returned to the caller.
package report

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Sources of a report's Markdown.
const (
	SourceTemplate = "template"
	SourceLLM      = "llm"
)

// DefaultTimeout bounds a remote generation when the service is created with a zero timeout.
const DefaultTimeout = 10 * time.Second

// Request is a classification result to report on.
type Request struct {
	Label      string  `json:"label"`
	ClassName  string  `json:"class_name,omitempty"` // Alias of Label.
	Confidence float64 `json:"confidence"`           // In [0, 1].
	LatencyMS  *int64  `json:"latency_ms,omitempty"`
	ImageID    string  `json:"image_id,omitempty"`
}

// Prediction returns the predicted class, preferring Label over ClassName.
func (r Request) Prediction() string {
	if r.Label != "" {
		return r.Label
	}
	return r.ClassName
}

// Validate checks that the request names a class and has a confidence in [0, 1].
func (r Request) Validate() error {
	if strings.TrimSpace(r.Prediction()) == "" {
		return errors.New("label is required")
	}
	if r.Confidence < 0 || r.Confidence > 1 {
		return fmt.Errorf("confidence %v is outside [0, 1]", r.Confidence)
	}
	if r.LatencyMS != nil && *r.LatencyMS < 0 {
		return fmt.Errorf("latency_ms %d is negative", *r.LatencyMS)
	}
	return nil
}

// Response is a generated report.
type Response struct {
	ReportID string `json:"report_id"`
	Markdown string `json:"markdown"`
	Source   string `json:"source"`
}

// Generator produces report Markdown remotely.
type Generator interface {
	Generate(ctx context.Context, req Request) (string, error)
}

// Service produces reports, falling back to the local template.
type Service struct {
	generator Generator
	timeout   time.Duration
	logf      func(format string, v ...interface{})
}

// NewService creates a Service. A nil generator always uses the template; a non-positive timeout
// selects DefaultTimeout.
func NewService(generator Generator, timeout time.Duration) *Service {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Service{generator: generator, timeout: timeout, logf: log.Printf}
}

// SetLogger replaces the logger used for remote failures. nil mutes it.
func (s *Service) SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		f = func(string, ...interface{}) {}
	}
	s.logf = f
}

// Report builds the report for req. It never fails: any problem with the remote generator results
// in the template report.
func (s *Service) Report(ctx context.Context, req Request) Response {
	resp := Response{ReportID: uuid.NewString()}

	if s.generator != nil {
		md, err := s.generate(ctx, req)
		if err == nil {
			resp.Markdown = md
			resp.Source = SourceLLM
			return resp
		}
		s.logf("Warning: remote report generation failed, using template: %v", err)
	}

	resp.Markdown = Template(req)
	resp.Source = SourceTemplate
	return resp
}

// generate calls the generator under the service timeout and rejects empty output.
func (s *Service) generate(ctx context.Context, req Request) (md string, err error) {
	defer func() {
		if e := recover(); e != nil {
			err = fmt.Errorf("generator panicked: %v", e)
		}
	}()

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	md, err = s.generator.Generate(ctx, req)
	if err != nil {
		return "", err
	}
	if ctx.Err() != nil {
		return "", ctx.Err()
	}
	md = strings.TrimSpace(md)
	if md == "" {
		return "", errors.New("empty report from generator")
	}
	return md, nil
}

// Template renders the local report for req.
func Template(req Request) string {
	var b strings.Builder
	b.WriteString("## AI Report\n\n")
	fmt.Fprintf(&b, "**Prediction:** %s\n\n", req.Prediction())
	fmt.Fprintf(&b, "**Confidence:** %.1f%%\n\n", req.Confidence*100)
	if req.LatencyMS != nil {
		fmt.Fprintf(&b, "**Latency:** %d ms\n\n", *req.LatencyMS)
	}
	if req.ImageID != "" {
		fmt.Fprintf(&b, "**Image:** %s\n\n", req.ImageID)
	}
	b.WriteString("### Suggested Next Steps\n")
	b.WriteString("- Inspect batch\n- Flag unit for re-check\n- Document issue")
	return b.String()
}
