// Package render turns filled help templates into PNG images with a headless
// browser, bounding concurrency and caching the results.
package render

import (
	"errors"
	"fmt"
)

// Kind classifies a render failure.
type Kind int

const (
	// Failed is any failure without a more specific kind.
	Failed Kind = iota
	// NotInstalled means the browser driver or executable is missing.
	NotInstalled
	// Timeout means the render did not finish within the render timeout.
	Timeout
	// Busy means no render slot became free within the render timeout.
	Busy
)

func (k Kind) String() string {
	switch k {
	case NotInstalled:
		return "not_installed"
	case Timeout:
		return "timeout"
	case Busy:
		return "busy"
	default:
		return "failed"
	}
}

// RenderError is returned for every failed render.
type RenderError struct {
	Kind Kind
	Err  error
}

func (e *RenderError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("render %s", e.Kind)
	}
	return fmt.Sprintf("render %s: %v", e.Kind, e.Err)
}

func (e *RenderError) Unwrap() error {
	return e.Err
}

// KindOf returns the kind of a render error, or Failed for other errors.
func KindOf(err error) Kind {
	var re *RenderError
	if errors.As(err, &re) {
		return re.Kind
	}
	return Failed
}

func wrap(kind Kind, err error) error {
	var re *RenderError
	if errors.As(err, &re) {
		return err
	}
	return &RenderError{Kind: kind, Err: err}
}
