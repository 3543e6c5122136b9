package booking

import (
	"context"
	"sort"
	"time"

	"venue-booking/internal/model"
)

// Calendar answers day-level availability questions.  It is read-only:
// expired holds are filtered out by the query itself (lazy expiry
// visibility) rather than cleaned up here, so a pile of abandoned holds
// never makes free days look taken.
type Calendar struct {
	store Store
	now   func() time.Time
}

// NewCalendar builds a Calendar over the store.
func NewCalendar(store Store, now func() time.Time) *Calendar {
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &Calendar{store: store, now: now}
}

// Unavailable returns the sorted union of booked days, live-held days
// and blackout days inside the range.
func (c *Calendar) Unavailable(ctx context.Context, r model.DateRange) ([]time.Time, error) {
	view := c.store.Reader()
	booked, err := view.BookedDays(ctx, r)
	if err != nil {
		return nil, err
	}
	held, err := view.HeldDays(ctx, r, c.now())
	if err != nil {
		return nil, err
	}
	blacked, err := view.BlackoutDays(ctx, r)
	if err != nil {
		return nil, err
	}

	seen := make(map[time.Time]struct{}, len(booked)+len(held)+len(blacked))
	out := make([]time.Time, 0, len(seen))
	for _, group := range [][]time.Time{booked, held, blacked} {
		for _, d := range group {
			d = model.Day(d)
			if _, ok := seen[d]; !ok {
				seen[d] = struct{}{}
				out = append(out, d)
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out, nil
}

// CheckRangeFree reports whether every day in the range is available.
// When it is not, the conflicting days are returned so the caller can
// show the customer exactly what is in the way.
func (c *Calendar) CheckRangeFree(ctx context.Context, r model.DateRange) (bool, []time.Time, error) {
	taken, err := c.Unavailable(ctx, r)
	if err != nil {
		return false, nil, err
	}
	return len(taken) == 0, taken, nil
}
