package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"screentime/internal/core"
)

type EventKind string

const (
	EventAppended EventKind = "appended"
	EventReplaced EventKind = "replaced"
)

// EventRecord is the wire form of a survey record.
type EventRecord struct {
	Category string  `json:"category"`
	Value    float64 `json:"value"`
}

// RecordEvent announces a successful write to the primary store. Appended events
// carry the one new record; replaced events carry the full new contents.
type RecordEvent struct {
	ID        string        `json:"id"`
	Kind      EventKind     `json:"kind"`
	Records   []EventRecord `json:"records"`
	Timestamp time.Time     `json:"timestamp"`
}

func NewAppendedEvent(r core.Record) *RecordEvent {
	return newRecordEvent(EventAppended, []core.Record{r})
}

func NewReplacedEvent(rs []core.Record) *RecordEvent {
	return newRecordEvent(EventReplaced, rs)
}

func newRecordEvent(kind EventKind, rs []core.Record) *RecordEvent {
	records := make([]EventRecord, len(rs))
	for i, r := range rs {
		records[i] = EventRecord{Category: r.Category, Value: r.Value}
	}
	return &RecordEvent{ID: uuid.NewString(), Kind: kind, Records: records, Timestamp: time.Now()}
}

// CoreRecords converts the payload back into domain records.
func (m *RecordEvent) CoreRecords() []core.Record {
	out := make([]core.Record, len(m.Records))
	for i, r := range m.Records {
		out[i] = core.Record{Category: r.Category, Value: r.Value}
	}
	return out
}

// ToJSON converts the message to JSON bytes
func (m *RecordEvent) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// RecordEventFromJSON decodes a message and checks its kind and shape.
func RecordEventFromJSON(data []byte) (*RecordEvent, error) {
	var msg RecordEvent
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	switch msg.Kind {
	case EventAppended:
		if len(msg.Records) != 1 {
			return nil, fmt.Errorf("appended event carries %d records, want 1", len(msg.Records))
		}
	case EventReplaced:
	default:
		return nil, fmt.Errorf("unknown event kind %q", msg.Kind)
	}
	return &msg, nil
}
