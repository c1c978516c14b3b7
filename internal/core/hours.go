// Package core holds the screen-time domain types and input parsing.
//
// This file contains the parsing of user-entered numeric values and the
// clamping helper used by the weekly form.
package core

import (
	"errors"
	"math"
	"strconv"
	"strings"
)

const (
	MinHours = 0.0
	MaxHours = 24.0
)

var errNotNumber = errors.New("not a number")

// ParseHours converts a user-entered decimal string to a float.
//
// It accepts both dot (2.5) and comma (2,5) decimal separators. Empty input is a
// ValidationError, anything that is not a finite number is a ParseError.
//
// Examples:
//
//	ParseHours("2.5")  -> 2.5, nil
//	ParseHours(" 3,25 ") -> 3.25, nil
//	ParseHours("")     -> 0, *ValidationError
//	ParseHours("abc")  -> 0, *ParseError
func ParseHours(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, &ValidationError{Field: "hours", Reason: "required"}
	}
	// A single comma is a decimal separator; more than one is not a number.
	if strings.Count(s, ",") == 1 && !strings.Contains(s, ".") {
		s = strings.Replace(s, ",", ".", 1)
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, &ParseError{Source: "input", Field: "hours", Err: errNotNumber}
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, &ParseError{Source: "input", Field: "hours", Err: errNotNumber}
	}
	return v, nil
}

// ValidateHours rejects a value outside a single day.
func ValidateHours(v float64) error {
	if v < MinHours || v > MaxHours {
		return &ValidationError{
			Field:  "hours",
			Reason: "must be between " + FormatValue(MinHours) + " and " + FormatValue(MaxHours),
		}
	}
	return nil
}

// ClampHours bounds v to a single day.
func ClampHours(v float64) float64 {
	if v < MinHours {
		return MinHours
	}
	if v > MaxHours {
		return MaxHours
	}
	return v
}

// FormatValue renders a stored value without trailing zeros (5.5, 3, 0.25).
func FormatValue(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
