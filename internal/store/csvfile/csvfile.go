// Package csvfile implements the flat-file survey store: a comma-separated file
// with a Category,Value header and one record per row, in insertion order.
//
// All rows go through encoding/csv so categories containing commas, quotes or
// newlines survive a write/load round trip.
package csvfile

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"screentime/internal/core"
	"screentime/internal/store"
)

// Ensure interface conformance
var (
	_ store.RecordWriter = (*Store)(nil)
	_ store.RecordLoader = (*Store)(nil)
)

// Options tune how an existing file is read.
type Options struct {
	// AllowHeaderless accepts files written by the first survey revision,
	// which appended rows without ever writing a header.
	AllowHeaderless bool
}

type Store struct {
	mu   sync.Mutex
	path string
	opts Options
}

func New(path string, opts Options) *Store {
	return &Store{path: path, opts: opts}
}

// Path returns the file backing the store.
func (s *Store) Path() string {
	return s.path
}

// AppendRecord writes one row at the end of the file, creating the file with a
// header when it does not exist or is empty. The row is encoded in memory and
// handed to the file in a single write.
func (s *Store) AppendRecord(_ context.Context, r core.Record) (err error) {
	if err := r.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ensureDir(s.path); err != nil {
		return err
	}
	f, err := os.OpenFile(s.path, os.O_RDWR|os.O_APPEND|os.O_CREATE, 0o644)
	if err != nil {
		return &core.IOError{Op: "open", Path: s.path, Err: err}
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = &core.IOError{Op: "close", Path: s.path, Err: cerr}
		}
	}()

	info, err := f.Stat()
	if err != nil {
		return &core.IOError{Op: "stat", Path: s.path, Err: err}
	}

	var buf bytes.Buffer
	if info.Size() == 0 {
		if err := encodeRows(&buf, [][]string{core.StoreHeader}); err != nil {
			return err
		}
	} else if missing, err := missingTrailingNewline(f, info.Size()); err != nil {
		return &core.IOError{Op: "read", Path: s.path, Err: err}
	} else if missing {
		buf.WriteByte('\n')
	}
	if err := encodeRows(&buf, [][]string{encodeRecord(r)}); err != nil {
		return err
	}

	if _, err := f.Write(buf.Bytes()); err != nil {
		return &core.IOError{Op: "write", Path: s.path, Err: err}
	}
	return nil
}

// ReplaceAllRecords rewrites the whole file with the header followed by rs.
// The new content is written to a temporary file that is renamed over the store,
// so readers see either the old or the new content.
func (s *Store) ReplaceAllRecords(_ context.Context, rs []core.Record) error {
	if err := core.ValidateRecords(rs); err != nil {
		return err
	}

	rows := make([][]string, 0, len(rs)+1)
	rows = append(rows, core.StoreHeader)
	for _, r := range rs {
		rows = append(rows, encodeRecord(r))
	}
	var buf bytes.Buffer
	if err := encodeRows(&buf, rows); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ensureDir(s.path); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(s.path), "."+filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return &core.IOError{Op: "create", Path: s.path, Err: err}
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		cleanup()
		return &core.IOError{Op: "write", Path: tmpName, Err: err}
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		cleanup()
		return &core.IOError{Op: "sync", Path: tmpName, Err: err}
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return &core.IOError{Op: "close", Path: tmpName, Err: err}
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		cleanup()
		return &core.IOError{Op: "chmod", Path: tmpName, Err: err}
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		cleanup()
		return &core.IOError{Op: "rename", Path: s.path, Err: err}
	}
	return nil
}

// LoadRecords reads the file in order. A missing or zero-length file is not an
// error: it reports found=false.
func (s *Store) LoadRecords(_ context.Context) ([]core.Record, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.Open(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, &core.IOError{Op: "open", Path: s.path, Err: err}
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, false, &core.IOError{Op: "stat", Path: s.path, Err: err}
	}
	if info.Size() == 0 {
		return nil, false, nil
	}

	records, err := Decode(f, s.path, s.opts)
	if err != nil {
		return nil, false, err
	}
	return records, true, nil
}

// Decode parses a header row followed by Category,Value rows. source names the
// input in returned errors.
func Decode(r io.Reader, source string, opts Options) ([]core.Record, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	records := []core.Record{}
	first := true
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			var csvErr *csv.ParseError
			if errors.As(err, &csvErr) {
				return nil, &core.ParseError{Source: source, Line: csvErr.Line, Err: csvErr.Err}
			}
			return nil, &core.IOError{Op: "read", Path: source, Err: err}
		}
		line, _ := cr.FieldPos(0)

		if first {
			first = false
			if len(row) > 0 {
				row[0] = strings.TrimPrefix(row[0], "\ufeff")
			}
			if isHeader(row) {
				continue
			}
			if !opts.AllowHeaderless || len(row) != 2 || !isNumber(row[1]) {
				return nil, &core.ParseError{
					Source: source,
					Line:   line,
					Field:  "header",
					Err:    fmt.Errorf("expected %q, got %q", strings.Join(core.StoreHeader, ","), strings.Join(row, ",")),
				}
			}
		}

		rec, perr := decodeRecord(row)
		if perr != nil {
			perr.Source = source
			perr.Line = line
			return nil, perr
		}
		records = append(records, rec)
	}
	return records, nil
}

func decodeRecord(row []string) (core.Record, *core.ParseError) {
	if len(row) != len(core.StoreHeader) {
		return core.Record{}, &core.ParseError{Err: fmt.Errorf("expected %d fields, got %d", len(core.StoreHeader), len(row))}
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(row[1]), 64)
	if err != nil {
		return core.Record{}, &core.ParseError{Field: "Value", Err: fmt.Errorf("%q is not a number", row[1])}
	}
	return core.Record{Category: row[0], Value: v}, nil
}

func encodeRecord(r core.Record) []string {
	return []string{r.Category, core.FormatValue(r.Value)}
}

func encodeRows(w io.Writer, rows [][]string) error {
	cw := csv.NewWriter(w)
	if err := cw.WriteAll(rows); err != nil {
		return fmt.Errorf("encode rows: %w", err)
	}
	return nil
}

func isHeader(row []string) bool {
	if len(row) != len(core.StoreHeader) {
		return false
	}
	for i, h := range core.StoreHeader {
		if strings.TrimSpace(row[i]) != h {
			return false
		}
	}
	return true
}

func isNumber(s string) bool {
	_, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	return err == nil
}

func missingTrailingNewline(f *os.File, size int64) (bool, error) {
	last := make([]byte, 1)
	if _, err := f.ReadAt(last, size-1); err != nil {
		return false, err
	}
	return last[0] != '\n', nil
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return &core.IOError{Op: "mkdir", Path: dir, Err: err}
	}
	return nil
}
