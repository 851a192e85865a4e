package yolocrop

// YOLO annotation parsing.

import (
	"errors"
	"fmt"
	"iter"
	"math"
	"strconv"
	"strings"
)

// minTokens is the number of tokens in a YOLO box line: class cx cy w h.
const minTokens = 5

// Record is a single bounding box from a YOLO label file. Coordinates are fractions of the image
// width and height.
type Record struct {
	Class   int
	CX, CY  float64 // Box center.
	W, H    float64 // Box size.
	Ordinal int     // Zero-based line index within the label file.
}

// ParseAnnotations returns the records in the label file content, one per line with at least five
// whitespace-separated tokens. Shorter lines are skipped silently.
//
// The sequence ends after the first malformed line, which is yielded as a *ParseError with a
// 1-based line number and no path. Each range over the sequence scans content from the start.
func ParseAnnotations(content string) iter.Seq2[Record, error] {
	return func(yield func(Record, error) bool) {
		for i, line := range strings.Split(content, "\n") {
			tokens := strings.Fields(line)
			if len(tokens) < minTokens {
				continue
			}

			r, err := parseRecord(tokens)
			if err != nil {
				yield(Record{}, &ParseError{Line: i + 1, Err: err})
				return
			}
			r.Ordinal = i
			if !yield(r, nil) {
				return
			}
		}
	}
}

func parseRecord(tokens []string) (Record, error) {
	var r Record
	var err error

	if r.Class, err = strconv.Atoi(tokens[0]); err != nil {
		return r, fmt.Errorf("invalid class index %q", tokens[0])
	}

	values := [4]*float64{&r.CX, &r.CY, &r.W, &r.H}
	for i, v := range values {
		tok := tokens[i+1]
		if *v, err = strconv.ParseFloat(tok, 64); err != nil {
			return r, fmt.Errorf("invalid box value %q", tok)
		}
		if math.IsNaN(*v) || math.IsInf(*v, 0) {
			return r, fmt.Errorf("non-finite box value %q", tok)
		}
	}

	return r, nil
}

// readAnnotations collects all records of a label file. It also returns the number of non-blank
// lines that were skipped for having too few tokens. Any *ParseError gets path attached.
func readAnnotations(path, content string) (records []Record, malformed int, err error) {
	for r, perr := range ParseAnnotations(content) {
		if perr != nil {
			var pe *ParseError
			if errors.As(perr, &pe) {
				pe.Path = path
			}
			return nil, 0, perr
		}
		records = append(records, r)
	}

	for _, line := range strings.Split(content, "\n") {
		if n := len(strings.Fields(line)); n > 0 && n < minTokens {
			malformed++
		}
	}

	return records, malformed, nil
}
