package core

import (
	"math"
	"strings"
	"unicode"
)

const (
	WriteAppend    WriteMode = "append"
	WriteOverwrite WriteMode = "overwrite"
)

const (
	MeasureValue = "value"
	MeasureHours = "hours"
)

type (
	WriteMode string

	// Record is one row of the survey store.
	Record struct {
		Category string
		Value    float64
	}

	// ActivityPoint is one entry of the activity document.
	ActivityPoint struct {
		Label    string
		Hours    float64
		Sessions int
	}

	// Schema pins the revision-specific choices that differ between data sets:
	// which JSON field carries the measure and how the survey form writes.
	Schema struct {
		MeasureField string
		WriteMode    WriteMode
	}
)

// StoreHeader is the header row of the flat store.
var StoreHeader = []string{"Category", "Value"}

// Weekdays are the fixed categories written by the weekly form.
var Weekdays = []string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday"}

// IsValid reports whether m is a known write mode.
func (m WriteMode) IsValid() bool {
	switch m {
	case WriteAppend, WriteOverwrite:
		return true
	default:
		return false
	}
}

func (m WriteMode) String() string {
	return string(m)
}

// IsValidMeasureField reports whether name is one of the supported measure fields.
func IsValidMeasureField(name string) bool {
	return name == MeasureValue || name == MeasureHours
}

func (s Schema) Validate() error {
	if !IsValidMeasureField(s.MeasureField) {
		return &ValidationError{Field: "measure_field", Reason: "must be \"value\" or \"hours\""}
	}
	if !s.WriteMode.IsValid() {
		return &ValidationError{Field: "write_mode", Reason: "must be \"append\" or \"overwrite\""}
	}
	return nil
}

func (r Record) Validate() error {
	if strings.TrimSpace(r.Category) == "" {
		return &ValidationError{Field: "category", Reason: "required"}
	}
	// The CSV reader folds "\r\n" inside a quoted field to "\n", so carriage
	// returns would not survive a write and reload.
	if strings.ContainsFunc(r.Category, isDisallowedControl) {
		return &ValidationError{Field: "category", Reason: "must not contain control characters"}
	}
	if math.IsNaN(r.Value) || math.IsInf(r.Value, 0) {
		return &ValidationError{Field: "value", Reason: "must be a finite number"}
	}
	return nil
}

func isDisallowedControl(c rune) bool {
	return unicode.IsControl(c) && c != '\t' && c != '\n'
}

// ValidateRecords validates every record, reporting the first failure.
func ValidateRecords(rs []Record) error {
	for _, r := range rs {
		if err := r.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// WeekRecords builds the seven weekday records in calendar order from hours keyed by day.
// Missing days are recorded as zero.
func WeekRecords(hours map[string]float64) []Record {
	out := make([]Record, 0, len(Weekdays))
	for _, day := range Weekdays {
		out = append(out, Record{Category: day, Value: hours[day]})
	}
	return out
}
