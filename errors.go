package yolocrop

import (
	"errors"
	"fmt"
)

// ErrImageNotFound is wrapped by a DecodeError when no candidate source image exists for a stem.
var ErrImageNotFound = errors.New("no source image found")

// ConfigError reports a missing, unreadable or invalid class manifest. It is the only error that
// aborts a conversion run.
type ConfigError struct {
	Path string
	Err  error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid class manifest %q: %v", e.Path, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// ParseError reports a well-formed annotation line (at least five tokens) whose numeric tokens
// cannot be parsed. Line is 1-based.
type ParseError struct {
	Path string
	Line int
	Err  error
}

func (e *ParseError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("line %d: %v", e.Line, e.Err)
	}
	return fmt.Sprintf("%s:%d: %v", e.Path, e.Line, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// DecodeError reports a source image that is missing or cannot be decoded.
type DecodeError struct {
	Stem string
	Path string // Empty if no candidate file exists.
	Err  error
}

func (e *DecodeError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("image for %q: %v", e.Stem, e.Err)
	}
	return fmt.Sprintf("cannot decode %q: %v", e.Path, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// IOWriteError reports a crop that could not be persisted.
type IOWriteError struct {
	Path string
	Err  error
}

func (e *IOWriteError) Error() string {
	return fmt.Sprintf("cannot write %q: %v", e.Path, e.Err)
}

func (e *IOWriteError) Unwrap() error { return e.Err }
