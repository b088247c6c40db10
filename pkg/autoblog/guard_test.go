package autoblog

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
)

type stubCounter struct {
	count int64
	err   error
	from  time.Time
	to    time.Time
}

func (s *stubCounter) CountAutoPublishedBetween(ctx context.Context, ownerID uuid.UUID, from, to time.Time) (int64, error) {
	s.from = from
	s.to = to
	return s.count, s.err
}

func TestDayGuardReportsExistingPublish(t *testing.T) {
	counter := &stubCounter{count: 1}
	guard := NewDayGuard(counter, time.UTC)

	published, err := guard.HasPublishedToday(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !published {
		t.Fatal("expected published=true for count 1")
	}
}

func TestDayGuardQueriesTheLocalCalendarDay(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Fatalf("load location: %v", err)
	}

	counter := &stubCounter{}
	guard := NewDayGuard(counter, loc)
	// 03:30 UTC is still the previous evening in New York.
	guard.now = func() time.Time {
		return time.Date(2024, 6, 15, 3, 30, 0, 0, time.UTC)
	}

	if _, err := guard.HasPublishedToday(context.Background(), uuid.New()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	wantFrom := time.Date(2024, 6, 14, 0, 0, 0, 0, loc)
	if !counter.from.Equal(wantFrom) {
		t.Fatalf("expected window start %v, got %v", wantFrom, counter.from)
	}
	if !counter.to.Equal(wantFrom.AddDate(0, 0, 1)) {
		t.Fatalf("expected window end %v, got %v", wantFrom.AddDate(0, 0, 1), counter.to)
	}
}

func TestDayGuardPropagatesStoreErrors(t *testing.T) {
	storeErr := errors.New("connection refused")
	guard := NewDayGuard(&stubCounter{err: storeErr}, time.UTC)

	_, err := guard.HasPublishedToday(context.Background(), uuid.New())
	if !errors.Is(err, storeErr) {
		t.Fatalf("expected wrapped store error, got %v", err)
	}
}
