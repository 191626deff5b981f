package sync

import (
	"context"
	"fmt"
)

// Hydrate loads the last saved snapshot into the stores through their Set
// transitions, so TotalRevenue is recomputed from the restored bookings rather
// than trusted from disk.
//
// The wishlist and booking views are restored only when the snapshot was
// saved for the engine's current account; otherwise just the public tour
// list is. Hydrate reports whether everything was restored, which is false
// when no snapshot exists yet or it belongs to another account.
func (e *Engine) Hydrate(ctx context.Context) (bool, error) {
	if e.snap == nil {
		return false, nil
	}
	empty, err := e.snap.IsEmpty(ctx)
	if err != nil {
		return false, fmt.Errorf("checking snapshot: %w", err)
	}
	if empty {
		e.log.Debug("no snapshot saved yet, starting with empty caches")
		return false, nil
	}

	s, err := e.snap.Load(ctx)
	if err != nil {
		return false, fmt.Errorf("loading snapshot: %w", err)
	}

	e.stores.Tours.Set(s.Tours)
	if account := e.Account(); s.Account != account {
		e.log.Info("cached account data belongs to another session, discarded",
			"saved_at", s.SavedAt, "tours", len(s.Tours))
		return false, nil
	}

	e.stores.Wishlist.Set(s.Wishlist)
	e.stores.Bookings.SetAll(s.Bookings)
	e.stores.Bookings.SetUserBookings(s.UserBookings)

	if revenue := e.stores.Bookings.State().TotalRevenue; revenue != s.TotalRevenue {
		e.log.Debug("stored revenue differs from recomputed value",
			"stored", s.TotalRevenue, "recomputed", revenue)
	}
	e.log.Info("hydrated caches from snapshot",
		"saved_at", s.SavedAt,
		"tours", len(s.Tours),
		"bookings", len(s.Bookings),
		"user_bookings", len(s.UserBookings),
		"wishlist", len(s.Wishlist))
	return true, nil
}
