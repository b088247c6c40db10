package autoblog

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// PublishedPostCounter is the read-only store query the guard needs: how
// many auto-generated posts the owner published inside [from, to).
type PublishedPostCounter interface {
	CountAutoPublishedBetween(ctx context.Context, ownerID uuid.UUID, from, to time.Time) (int64, error)
}

// DayGuard answers whether an owner's auto post already went out during the
// current calendar day in the pipeline's operating time zone. A store error
// propagates unchanged: the pipeline fails closed rather than risking a
// duplicate publish.
type DayGuard struct {
	posts PublishedPostCounter
	loc   *time.Location
	now   func() time.Time
}

func NewDayGuard(posts PublishedPostCounter, loc *time.Location) *DayGuard {
	if loc == nil {
		loc = time.UTC
	}
	return &DayGuard{posts: posts, loc: loc, now: time.Now}
}

func (g *DayGuard) HasPublishedToday(ctx context.Context, ownerID uuid.UUID) (bool, error) {
	from, to := g.dayWindow()

	count, err := g.posts.CountAutoPublishedBetween(ctx, ownerID, from, to)
	if err != nil {
		return false, fmt.Errorf("check published posts for owner %s: %w", ownerID, err)
	}

	return count > 0, nil
}

// dayWindow returns [midnight, next midnight) in the guard's location.
func (g *DayGuard) dayWindow() (time.Time, time.Time) {
	now := g.now().In(g.loc)
	from := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, g.loc)
	return from, from.AddDate(0, 0, 1)
}
