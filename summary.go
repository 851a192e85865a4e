package yolocrop

// Run summary and its JSON/HTML renderings.

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
)

// CropArtifact describes one written crop.
type CropArtifact struct {
	Split      string   `json:"split"`
	Class      string   `json:"class"`
	ClassIndex int      `json:"class_index"`
	Stem       string   `json:"stem"`
	Ordinal    int      `json:"ordinal"`
	Path       string   `json:"path"`
	Box        PixelBox `json:"-"`
	Width      int      `json:"width"`  // Of the written image, after any resizing.
	Height     int      `json:"height"` // Of the written image, after any resizing.
}

// Summary holds the outcome counters of a conversion run.
type Summary struct {
	Splits  []string `json:"splits"`
	Classes []string `json:"classes"`

	FilesSeen        int `json:"files_seen"`
	FilesProcessed   int `json:"files_processed"`
	FilesNoImage     int `json:"files_no_image"`     // Source image missing or undecodable.
	FilesParseFailed int `json:"files_parse_failed"` // Unreadable label file or ParseError.

	RecordsWritten      int `json:"records_written"`
	RecordsDegenerate   int `json:"records_degenerate"`
	LinesMalformed      int `json:"lines_malformed"` // Non-blank lines with fewer than 5 tokens.
	RecordsInvalidClass int `json:"records_invalid_class"`
	RecordsWriteFailed  int `json:"records_write_failed"`

	// Crops counts the written crops per split and class.
	Crops map[string]map[string]int `json:"crops"`

	// Artifacts lists every written crop, sorted by path.
	Artifacts []CropArtifact `json:"-"`
}

func newSummary(splits, classes []string) *Summary {
	s := &Summary{
		Splits:  append([]string(nil), splits...),
		Classes: append([]string(nil), classes...),
		Crops:   make(map[string]map[string]int, len(splits)),
	}
	for _, split := range splits {
		s.Crops[split] = make(map[string]int, len(classes))
	}
	return s
}

// Skipped is the number of records or lines that produced no crop without being an error.
func (s *Summary) Skipped() int {
	return s.RecordsDegenerate + s.LinesMalformed
}

// Errored is the number of records that failed.
func (s *Summary) Errored() int {
	return s.RecordsInvalidClass + s.RecordsWriteFailed
}

// add merges the outcome of a single label file.
func (s *Summary) add(r fileResult) {
	s.FilesSeen++
	switch r.outcome {
	case fileProcessed:
		s.FilesProcessed++
	case fileNoImage:
		s.FilesNoImage++
	case fileParseFailed:
		s.FilesParseFailed++
	}

	s.RecordsWritten += len(r.artifacts)
	s.RecordsDegenerate += r.degenerate
	s.LinesMalformed += r.malformed
	s.RecordsInvalidClass += r.invalidClass
	s.RecordsWriteFailed += r.writeFailed

	for _, a := range r.artifacts {
		perClass, ok := s.Crops[a.Split]
		if !ok {
			perClass = make(map[string]int)
			s.Crops[a.Split] = perClass
		}
		perClass[a.Class]++
	}
	s.Artifacts = append(s.Artifacts, r.artifacts...)
}

func (s *Summary) sortArtifacts() {
	sort.Slice(s.Artifacts, func(i, j int) bool {
		return s.Artifacts[i].Path < s.Artifacts[j].Path
	})
}

// Log writes the summary through Logf.
func (s *Summary) Log() {
	Logf("Label files: %d seen, %d processed, %d without usable image, %d failed to parse",
		s.FilesSeen, s.FilesProcessed, s.FilesNoImage, s.FilesParseFailed)
	Logf("Records: %d crops written, %d skipped (%d degenerate, %d malformed lines),"+
		" %d errored (%d invalid class, %d write failures)",
		s.RecordsWritten, s.Skipped(), s.RecordsDegenerate, s.LinesMalformed,
		s.Errored(), s.RecordsInvalidClass, s.RecordsWriteFailed)
	for _, split := range s.Splits {
		for _, class := range s.Classes {
			if n := s.Crops[split][class]; n > 0 {
				Logf("  %s/%s: %d", split, class, n)
			}
		}
	}
}

// WriteJSON writes the summary as indented JSON to path.
func (s *Summary) WriteJSON(path string) error {
	enc, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, append(enc, '\n'), 0644); err != nil {
		return fmt.Errorf("cannot write file %q: %w", path, err)
	}
	return nil
}

// RenderHTML writes a bar chart of crops per class, one series per split.
func (s *Summary) RenderHTML(w io.Writer) error {
	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Crop summary", Width: "100%", Height: "600px"}),
		charts.WithTitleOpts(opts.Title{
			Title: "Crops per class",
			Subtitle: fmt.Sprintf("written=%d skipped=%d errored=%d",
				s.RecordsWritten, s.Skipped(), s.Errored()),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
	)

	bar.SetXAxis(s.Classes)
	for _, split := range s.Splits {
		data := make([]opts.BarData, len(s.Classes))
		for i, class := range s.Classes {
			data[i] = opts.BarData{Value: s.Crops[split][class]}
		}
		bar.AddSeries(split, data, charts.WithLabelOpts(opts.Label{Show: opts.Bool(true), Position: "top"}))
	}

	page := components.NewPage()
	page.AddCharts(bar)
	return page.Render(w)
}

// WriteHTML renders the summary chart to path.
func (s *Summary) WriteHTML(path string) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("cannot create %q: %w", path, err)
	}
	defer closeWithErrCheck(f, &err)

	return s.RenderHTML(f)
}
