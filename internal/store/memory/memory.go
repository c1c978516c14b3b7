package memory

import (
	"context"
	"log/slog"
	"sync"

	"screentime/internal/core"
	"screentime/internal/store"
	"screentime/internal/store/csvfile"
)

var (
	_ store.RecordWriter = (*Store)(nil)
	_ store.RecordLoader = (*Store)(nil)
)

// Store keeps records in process memory. It never reports an absent store once
// something has been written.
type Store struct {
	mu      sync.Mutex
	items   []core.Record
	written bool
}

func New(seed []core.Record) *Store {
	s := &Store{}
	if len(seed) > 0 {
		s.items = append([]core.Record(nil), seed...)
		s.written = true
	}
	return s
}

// NewFromFile seeds the store from a CSV store file. A missing or unreadable
// seed leaves the store empty.
func NewFromFile(path string) *Store {
	recs, found, err := csvfile.New(path, csvfile.Options{AllowHeaderless: true}).LoadRecords(context.Background())
	if err != nil {
		slog.Warn("Ignoring unreadable seed file", "path", path, "error", err)
		return New(nil)
	}
	if !found {
		return New(nil)
	}
	return New(recs)
}

// AppendRecord stores the record at the end.
func (s *Store) AppendRecord(_ context.Context, r core.Record) error {
	if err := r.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = append(s.items, r)
	s.written = true
	return nil
}

// ReplaceAllRecords swaps the contents for a copy of rs.
func (s *Store) ReplaceAllRecords(_ context.Context, rs []core.Record) error {
	if err := core.ValidateRecords(rs); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = append([]core.Record{}, rs...)
	s.written = true
	return nil
}

// LoadRecords returns a copy of the records in insertion order.
func (s *Store) LoadRecords(_ context.Context) ([]core.Record, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.written {
		return nil, false, nil
	}
	return append([]core.Record{}, s.items...), true, nil
}
