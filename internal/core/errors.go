package core

import (
	"errors"
	"fmt"
)

var (
	ErrValidation = errors.New("validation error")
	ErrParse      = errors.New("parse error")
	ErrIO         = errors.New("io error")
)

// ValidationError reports missing or invalid user input. Nothing is written.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// ParseError reports a malformed store row or document structure.
// Line is 1-based and zero when the error is not tied to a line.
type ParseError struct {
	Source string
	Line   int
	Field  string
	Err    error
}

func (e *ParseError) Error() string {
	msg := "parse " + e.Source
	if e.Line > 0 {
		msg += fmt.Sprintf(" line %d", e.Line)
	}
	if e.Field != "" {
		msg += " field " + e.Field
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ParseError) Unwrap() error { return e.Err }

func (e *ParseError) Is(target error) bool { return target == ErrParse }

// IOError reports a file that could not be read or written.
type IOError struct {
	Op   string
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

func (e *IOError) Is(target error) bool { return target == ErrIO }
