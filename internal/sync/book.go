package sync

import (
	"context"
	"errors"
	"fmt"

	"github.com/njoerd114/toursync/internal/model"
)

// ErrNotSignedIn is returned by operations that need a bearer token when the
// engine has none.
var ErrNotSignedIn = errors.New("not signed in")

// BookTour books tourID for the given date and party size. The tour comes
// from the cache, or is fetched when it is not cached yet. When the tour was
// wishlisted it is then removed from the wishlist; that is a separate
// request, and its failure is logged without undoing the booking.
func (e *Engine) BookTour(ctx context.Context, tourID int64, travelDate string, guests int, paymentMethod string) (*model.Booking, error) {
	if e.token == "" {
		return nil, ErrNotSignedIn
	}

	tour, ok := e.stores.Tours.State().Find(tourID)
	if !ok {
		fetched, err := e.stores.Tours.FetchByID(ctx, tourID)
		if err != nil {
			return nil, fmt.Errorf("looking up tour %d: %w", tourID, err)
		}
		tour = *fetched
	}

	req, err := model.NewBookingRequest(&tour, travelDate, guests, paymentMethod)
	if err != nil {
		return nil, err
	}

	booking, err := e.stores.Bookings.Create(ctx, *req, e.token)
	if err != nil {
		return nil, fmt.Errorf("booking tour %d: %w", tourID, err)
	}
	e.log.Info("booked tour", "tour_id", tourID, "booking_id", booking.ID,
		"travel_date", booking.TravelDate, "guests", booking.Guests, "total", booking.TotalAmount)

	if e.stores.Wishlist.Contains(tourID) {
		if err := e.stores.Wishlist.RemoveFromBackend(ctx, tourID, e.token); err != nil {
			e.log.Warn("booked tour could not be removed from wishlist", "tour_id", tourID, "error", err)
		}
	}
	return booking, nil
}
