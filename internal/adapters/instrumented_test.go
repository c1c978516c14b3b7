package adapters

import (
	"context"
	"errors"
	"testing"

	"screentime/internal/core"
	"screentime/internal/store/memory"
)

type docStub struct {
	points []core.ActivityPoint
	found  bool
	err    error
}

func (d docStub) LoadDocument(context.Context) ([]core.ActivityPoint, bool, error) {
	return d.points, d.found, d.err
}

func TestInstrumentedRecords(t *testing.T) {
	ctx := context.Background()
	a := NewInstrumentedRecords(memory.New([]core.Record{{Category: "Monday", Value: 2}}))
	recs, found, err := a.LoadRecords(ctx)
	if err != nil || !found || len(recs) != 1 {
		t.Fatalf("LoadRecords() = %v, %v, %v", recs, found, err)
	}

	a = NewInstrumentedRecords(memory.New(nil))
	if _, found, err := a.LoadRecords(ctx); err != nil || found {
		t.Fatalf("empty store: found=%v err=%v", found, err)
	}
}

func TestInstrumentedDocumentPassesThrough(t *testing.T) {
	ctx := context.Background()
	want := errors.New("boom")

	a := NewInstrumentedDocument(docStub{err: want})
	if _, _, err := a.LoadDocument(ctx); !errors.Is(err, want) {
		t.Fatalf("error not passed through: %v", err)
	}

	a = NewInstrumentedDocument(docStub{points: []core.ActivityPoint{{Label: "Games", Hours: 1}}, found: true})
	points, found, err := a.LoadDocument(ctx)
	if err != nil || !found || len(points) != 1 {
		t.Fatalf("LoadDocument() = %v, %v, %v", points, found, err)
	}
}
