// Package sync keeps the local caches of toursync in step with the remote
// API. The stores in package store never retry and never persist anything;
// this package adds both.
//
// The package contains three main components:
//
//   - [Engine] runs the polling loop: each pass refreshes every cache,
//     re-dispatching failed fetches with backoff, and saves a snapshot.
//   - [Engine.Hydrate] loads the last saved snapshot into the stores at startup.
//   - [Engine.BookTour] books a tour and drops it from the wishlist.
package sync

import (
	"context"

	"github.com/njoerd114/toursync/internal/model"
	"github.com/njoerd114/toursync/internal/snapshot"
	"github.com/njoerd114/toursync/internal/store"
)

// TourCache is the tour store as seen by the engine.
// Implemented by [store.Tours].
type TourCache interface {
	State() store.TourState
	Subscribe(fn func(store.TourState)) (cancel func())
	Set(tours []model.Tour)
	FetchAll(ctx context.Context) error
	FetchByID(ctx context.Context, id int64) (*model.Tour, error)
}

// WishlistCache is the wishlist store as seen by the engine.
// Implemented by [store.Wishlist].
type WishlistCache interface {
	State() store.WishlistState
	Subscribe(fn func(store.WishlistState)) (cancel func())
	Set(items []model.WishlistItem)
	Contains(tourID int64) bool
	FetchFromBackend(ctx context.Context, token string) error
	RemoveFromBackend(ctx context.Context, tourID int64, token string) error
}

// BookingCache is the booking store as seen by the engine.
// Implemented by [store.Bookings].
type BookingCache interface {
	State() store.BookingState
	Subscribe(fn func(store.BookingState)) (cancel func())
	SetAll(list []model.Booking)
	SetUserBookings(list []model.Booking)
	FetchAllFromBackend(ctx context.Context, token string) error
	FetchUserBookingsFromBackend(ctx context.Context, token string) error
	Create(ctx context.Context, req model.BookingRequest, token string) (*model.Booking, error)
}

// Stores bundles the three caches an [Engine] drives.
type Stores struct {
	Tours    TourCache
	Wishlist WishlistCache
	Bookings BookingCache
}

// SnapshotStore persists cache contents between runs.
// Implemented by [snapshot.Store].
type SnapshotStore interface {
	Save(ctx context.Context, snap *snapshot.Snapshot) error
	Load(ctx context.Context) (*snapshot.Snapshot, error)
	IsEmpty(ctx context.Context) (bool, error)
}
