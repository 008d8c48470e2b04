package audit

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/afetops/coordcore/core/model"
)

func sampleRecord(ts time.Time, disaster uuid.UUID) Record {
	team := uuid.New()
	return Record{
		Timestamp:  ts,
		DisasterID: disaster,
		RequestID:  uuid.New(),
		TeamID:     &team,
		ActorID:    uuid.New(),
		ActorRole:  model.RoleCoordinator,
		From:       model.RequestPending,
		To:         model.RequestAssigned,
		Auto:       true,
	}
}

func testStore(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()
	disaster := uuid.New()
	other := uuid.New()
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		if err := s.Append(ctx, sampleRecord(base.Add(time.Duration(i)*time.Minute), disaster)); err != nil {
			t.Fatalf("append: %v", err)
		}
	}
	if err := s.Append(ctx, sampleRecord(base, other)); err != nil {
		t.Fatalf("append: %v", err)
	}

	got, err := s.Search(ctx, Query{DisasterID: disaster})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 records, got %d", len(got))
	}
	for _, r := range got {
		if r.DisasterID != disaster {
			t.Fatalf("record for wrong disaster %s", r.DisasterID)
		}
	}

	got, err = s.Search(ctx, Query{Start: base.Add(time.Minute)})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 records after start filter, got %d", len(got))
	}

	got, err = s.Search(ctx, Query{Limit: 1})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected limit 1, got %d", len(got))
	}
}

func TestJSONLStore(t *testing.T) {
	s, err := NewJSONLStore(filepath.Join(t.TempDir(), "audit.jsonl"))
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	defer func() { _ = s.Close() }()
	testStore(t, s)
}

func TestRotatingJSONLStore(t *testing.T) {
	s, err := NewRotatingJSONLStore(filepath.Join(t.TempDir(), "audit.jsonl"), 1, 2, 1)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	defer func() { _ = s.Close() }()
	testStore(t, s)
}

func TestSQLiteStore(t *testing.T) {
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "audit.db"))
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	defer func() { _ = s.Close() }()
	testStore(t, s)
}

func TestSQLiteStoreOrdering(t *testing.T) {
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "audit.db"))
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	defer func() { _ = s.Close() }()
	ctx := context.Background()
	d := uuid.New()
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	for _, off := range []time.Duration{2 * time.Minute, 0, time.Minute} {
		if err := s.Append(ctx, sampleRecord(base.Add(off), d)); err != nil {
			t.Fatalf("append: %v", err)
		}
	}
	got, err := s.Search(ctx, Query{})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3, got %d", len(got))
	}
	for i := 1; i < len(got); i++ {
		if got[i].Timestamp.Before(got[i-1].Timestamp) {
			t.Fatalf("records out of order at %d", i)
		}
	}
}
