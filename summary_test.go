package yolocrop

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSummary() *Summary {
	s := newSummary([]string{"train", "valid"}, []string{"short", "open"})
	s.add(fileResult{
		outcome: fileProcessed,
		artifacts: []CropArtifact{
			{Split: "train", Class: "short", Path: "out/train/short/a_0.jpg"},
			{Split: "train", Class: "open", Path: "out/train/open/a_1.jpg"},
		},
		degenerate: 1,
		malformed:  2,
	})
	s.add(fileResult{outcome: fileNoImage})
	s.add(fileResult{outcome: fileParseFailed})
	s.add(fileResult{
		outcome:      fileProcessed,
		artifacts:    []CropArtifact{{Split: "valid", Class: "open", Path: "out/valid/open/b_0.jpg"}},
		invalidClass: 1,
		writeFailed:  1,
	})
	s.sortArtifacts()
	return s
}

func TestSummary_Counters(t *testing.T) {
	s := testSummary()

	assert.Equal(t, 4, s.FilesSeen)
	assert.Equal(t, 2, s.FilesProcessed)
	assert.Equal(t, 1, s.FilesNoImage)
	assert.Equal(t, 1, s.FilesParseFailed)
	assert.Equal(t, 3, s.RecordsWritten)
	assert.Equal(t, 3, s.Skipped())
	assert.Equal(t, 2, s.Errored())
	assert.Equal(t, map[string]map[string]int{
		"train": {"short": 1, "open": 1},
		"valid": {"open": 1},
	}, s.Crops)
	assert.Equal(t, "out/train/open/a_1.jpg", s.Artifacts[0].Path)
}

func TestSummary_Log(t *testing.T) {
	var lines []string
	prev := Logf
	SetLogger(func(format string, v ...interface{}) { lines = append(lines, format) })
	defer func() { Logf = prev }()

	testSummary().Log()

	// Two totals plus one line per non-empty split/class pair.
	assert.Len(t, lines, 5)
}

func TestSummary_WriteJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "summary.json")
	require.NoError(t, testSummary().WriteJSON(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var got map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, float64(3), got["records_written"])
	assert.Equal(t, float64(1), got["files_no_image"])
	assert.Equal(t, []interface{}{"train", "valid"}, got["splits"])
	assert.NotContains(t, got, "Artifacts")
}

func TestSummary_RenderHTML(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, testSummary().RenderHTML(&buf))

	html := buf.String()
	assert.Contains(t, html, "Crops per class")
	assert.Contains(t, html, "short")
	assert.Contains(t, html, "valid")
}

func TestSummary_WriteHTML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "summary.html")
	require.NoError(t, testSummary().WriteHTML(path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Positive(t, info.Size())

	assert.Error(t, testSummary().WriteHTML(filepath.Join(t.TempDir(), "missing", "summary.html")))
}
