// Package document loads the static activity document:
//
//	{"data_points": [{"label": "Social", "hours": 2, "sessions": 4}, ...]}
//
// The name of the numeric measure differs between data set revisions ("value"
// or "hours"); the loader is told which one to expect and accepts nothing else.
// JSON and YAML encodings are supported, chosen by file extension.
package document

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"screentime/internal/core"
	"screentime/internal/store"
)

const rootKey = "data_points"

var _ store.DocumentLoader = (*Loader)(nil)

type Loader struct {
	path    string
	measure string
}

// NewLoader returns a loader for path that reads the measure from measureField.
func NewLoader(path, measureField string) (*Loader, error) {
	if !core.IsValidMeasureField(measureField) {
		return nil, &core.ValidationError{Field: "measure_field", Reason: fmt.Sprintf("unsupported %q", measureField)}
	}
	return &Loader{path: path, measure: measureField}, nil
}

// Path returns the document location.
func (l *Loader) Path() string {
	return l.path
}

// LoadDocument reads and parses the document. A missing file reports found=false.
func (l *Loader) LoadDocument(_ context.Context) ([]core.ActivityPoint, bool, error) {
	data, err := os.ReadFile(l.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, &core.IOError{Op: "read", Path: l.path, Err: err}
	}

	tree, err := decodeTree(data, l.path)
	if err != nil {
		return nil, false, err
	}
	points, err := Parse(tree, l.path, l.measure)
	if err != nil {
		return nil, false, err
	}
	return points, true, nil
}

func decodeTree(data []byte, path string) (any, error) {
	var tree any
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &tree); err != nil {
			return nil, &core.ParseError{Source: path, Err: err}
		}
	default:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.UseNumber()
		if err := dec.Decode(&tree); err != nil {
			return nil, &core.ParseError{Source: path, Err: err}
		}
		if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
			return nil, &core.ParseError{Source: path, Err: errors.New("unexpected data after the top-level value")}
		}
	}
	return tree, nil
}

// Parse converts a decoded document tree into activity points, in document order.
// source names the document in returned errors.
func Parse(tree any, source, measureField string) ([]core.ActivityPoint, error) {
	root, ok := tree.(map[string]any)
	if !ok {
		return nil, &core.ParseError{Source: source, Err: errors.New("document is not an object")}
	}
	raw, ok := root[rootKey]
	if !ok {
		return nil, &core.ParseError{Source: source, Field: rootKey, Err: errors.New("missing")}
	}
	items, ok := raw.([]any)
	if !ok {
		return nil, &core.ParseError{Source: source, Field: rootKey, Err: errors.New("not a list")}
	}

	points := make([]core.ActivityPoint, 0, len(items))
	for i, item := range items {
		field := func(name string) string { return fmt.Sprintf("%s[%d].%s", rootKey, i, name) }

		obj, ok := item.(map[string]any)
		if !ok {
			return nil, &core.ParseError{Source: source, Field: fmt.Sprintf("%s[%d]", rootKey, i), Err: errors.New("not an object")}
		}

		label, ok := obj["label"].(string)
		if !ok {
			return nil, &core.ParseError{Source: source, Field: field("label"), Err: errors.New("missing or not a string")}
		}

		rawMeasure, ok := obj[measureField]
		if !ok {
			return nil, &core.ParseError{Source: source, Field: field(measureField), Err: errors.New("missing")}
		}
		hours, err := toFloat(rawMeasure)
		if err != nil {
			return nil, &core.ParseError{Source: source, Field: field(measureField), Err: err}
		}

		sessions := 0
		if rawSessions, ok := obj["sessions"]; ok && rawSessions != nil {
			sessions, err = toInt(rawSessions)
			if err != nil {
				return nil, &core.ParseError{Source: source, Field: field("sessions"), Err: err}
			}
		}

		points = append(points, core.ActivityPoint{Label: label, Hours: hours, Sessions: sessions})
	}
	return points, nil
}

func toFloat(v any) (float64, error) {
	var f float64
	switch n := v.(type) {
	case json.Number:
		parsed, err := n.Float64()
		if err != nil {
			return 0, fmt.Errorf("%q is not a number", n.String())
		}
		f = parsed
	case float64:
		f = n
	case int:
		f = float64(n)
	case int64:
		f = float64(n)
	case uint64:
		f = float64(n)
	default:
		return 0, fmt.Errorf("%v is not a number", v)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("%v is not a finite number", v)
	}
	return f, nil
}

func toInt(v any) (int, error) {
	if n, ok := v.(json.Number); ok {
		if i, err := n.Int64(); err == nil {
			return int(i), nil
		}
	}
	f, err := toFloat(v)
	if err != nil {
		return 0, err
	}
	if f != math.Trunc(f) {
		return 0, fmt.Errorf("%v is not an integer", v)
	}
	return int(f), nil
}
