package types

import (
	"errors"
	"fmt"
)

// Sentinel errors for common failure modes.
var (
	ErrElementNotFound    = errors.New("element not found")
	ErrBrowserUnavailable = errors.New("browser unavailable")
	ErrNoDatabase         = errors.New("database not connected")
	ErrTaskNotFound       = errors.New("task not found")
	ErrInvalidQuery       = errors.New("query must not be empty")
	ErrEmptyPage          = errors.New("empty page content")
)

// FetchError wraps errors that occur while driving the browser.
type FetchError struct {
	URL string
	Op  string
	Err error
}

func (e *FetchError) Error() string {
	if e.Op != "" {
		return fmt.Sprintf("fetch error for %s (%s): %v", e.URL, e.Op, e.Err)
	}
	return fmt.Sprintf("fetch error for %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// ParseError wraps errors that occur during parsing.
type ParseError struct {
	URL      string
	Selector string
	Err      error
}

func (e *ParseError) Error() string {
	if e.Selector == "" {
		return fmt.Sprintf("parse error for %s: %v", e.URL, e.Err)
	}
	return fmt.Sprintf("parse error for %s (selector=%q): %v", e.URL, e.Selector, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// StorageError wraps errors that occur during storage/export.
type StorageError struct {
	Backend string
	Op      string
	Err     error
}

func (e *StorageError) Error() string {
	if e.Op != "" {
		return fmt.Sprintf("storage error (%s %s): %v", e.Backend, e.Op, e.Err)
	}
	return fmt.Sprintf("storage error (%s): %v", e.Backend, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// PipelineError wraps errors that occur in the normalisation pipeline.
type PipelineError struct {
	Stage string
	Place *Place
	Err   error
}

func (e *PipelineError) Error() string {
	return fmt.Sprintf("pipeline error at stage %q: %v", e.Stage, e.Err)
}

func (e *PipelineError) Unwrap() error { return e.Err }
