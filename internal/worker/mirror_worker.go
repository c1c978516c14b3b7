package worker

import (
	"context"
	"fmt"
	"log/slog"

	"screentime/internal/amqp"
	"screentime/internal/observability"
	"screentime/internal/store"
)

// MirrorWorker applies record events from the broker to a second store.
type MirrorWorker struct {
	mirror store.RecordWriter
}

func NewMirrorWorker(mirror store.RecordWriter) *MirrorWorker {
	return &MirrorWorker{mirror: mirror}
}

// HandleRecordEvent processes a single record event from AMQP
func (w *MirrorWorker) HandleRecordEvent(ctx context.Context, msg *amqp.RecordEvent) error {
	slog.InfoContext(ctx, "Processing record event",
		"id", msg.ID,
		"kind", msg.Kind,
		"records", len(msg.Records),
		"timestamp", msg.Timestamp)

	var err error
	switch msg.Kind {
	case amqp.EventAppended:
		for _, r := range msg.CoreRecords() {
			if err = w.mirror.AppendRecord(ctx, r); err != nil {
				err = fmt.Errorf("append to mirror: %w", err)
				break
			}
		}
	case amqp.EventReplaced:
		if err = w.mirror.ReplaceAllRecords(ctx, msg.CoreRecords()); err != nil {
			err = fmt.Errorf("replace mirror: %w", err)
		}
	default:
		err = fmt.Errorf("unknown event kind %q", msg.Kind)
	}

	observability.RecordMirror(string(msg.Kind), err)
	if err != nil {
		return err
	}

	slog.InfoContext(ctx, "Mirrored record event", "kind", msg.Kind, "records", len(msg.Records))
	return nil
}
