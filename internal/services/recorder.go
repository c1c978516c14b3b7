package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"screentime/internal/amqp"
	"screentime/internal/core"
	"screentime/internal/observability"
	"screentime/internal/store"
)

// EventPublisher hands record events to the broker.
type EventPublisher interface {
	PublishRecordEvent(ctx context.Context, ev *amqp.RecordEvent) error
}

// Recorder is the write side of the survey: it validates input, writes to the
// configured store, then announces the change.
type Recorder struct {
	writer    store.RecordWriter
	publisher EventPublisher
	mode      core.WriteMode

	mu       sync.Mutex
	onChange []func()
}

// NewRecorder returns a recorder writing through writer. publisher may be nil.
func NewRecorder(writer store.RecordWriter, publisher EventPublisher, mode core.WriteMode) *Recorder {
	if !mode.IsValid() {
		mode = core.WriteAppend
	}
	return &Recorder{writer: writer, publisher: publisher, mode: mode}
}

// Mode reports which survey form the recorder serves.
func (r *Recorder) Mode() core.WriteMode {
	return r.mode
}

// OnChange registers fn to run after every successful write.
func (r *Recorder) OnChange(fn func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onChange = append(r.onChange, fn)
}

// Append writes a single record at the end of the store.
func (r *Recorder) Append(ctx context.Context, rec core.Record) error {
	err := r.writer.AppendRecord(ctx, rec)
	observability.RecordWrite("append", 1, err)
	if err != nil {
		return fmt.Errorf("append record: %w", err)
	}

	slog.InfoContext(ctx, "Record appended", "category", rec.Category, "value", rec.Value)
	r.afterWrite(ctx, amqp.NewAppendedEvent(rec))
	return nil
}

// ReplaceWeek overwrites the store with one record per weekday. Hours are
// clamped to [core.MinHours, core.MaxHours]; missing days are written as 0.
func (r *Recorder) ReplaceWeek(ctx context.Context, hours map[string]float64) ([]core.Record, error) {
	clamped := make(map[string]float64, len(hours))
	for day, h := range hours {
		clamped[day] = core.ClampHours(h)
	}
	week := core.WeekRecords(clamped)
	if err := r.ReplaceAll(ctx, week); err != nil {
		return nil, err
	}
	return week, nil
}

// ReplaceAll overwrites the store with rs.
func (r *Recorder) ReplaceAll(ctx context.Context, rs []core.Record) error {
	err := r.writer.ReplaceAllRecords(ctx, rs)
	observability.RecordWrite("replace", len(rs), err)
	if err != nil {
		return fmt.Errorf("replace records: %w", err)
	}

	slog.InfoContext(ctx, "Records replaced", "count", len(rs))
	r.afterWrite(ctx, amqp.NewReplacedEvent(rs))
	return nil
}

func (r *Recorder) afterWrite(ctx context.Context, ev *amqp.RecordEvent) {
	r.mu.Lock()
	hooks := append([]func(){}, r.onChange...)
	r.mu.Unlock()
	for _, fn := range hooks {
		fn()
	}

	// The write already succeeded; a lost event only delays the mirror.
	if r.publisher == nil {
		return
	}
	err := r.publisher.PublishRecordEvent(ctx, ev)
	observability.RecordPublish(string(ev.Kind), err)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to publish record event",
			"kind", ev.Kind, "records", len(ev.Records), "error", err)
	}
}

// IsInputError reports whether err was caused by the caller's input rather
// than by the store.
func IsInputError(err error) bool {
	return errors.Is(err, core.ErrValidation) || errors.Is(err, core.ErrParse)
}
