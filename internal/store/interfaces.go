package store

import (
	"context"

	"github.com/njoerd114/toursync/internal/model"
)

// TourAPI is the subset of the remote API used by [Tours].
// Implemented by [remote.Client].
type TourAPI interface {
	ListTours(ctx context.Context) ([]model.Tour, error)
	GetTour(ctx context.Context, id int64) (*model.Tour, error)
	CreateTour(ctx context.Context, t model.Tour, token string) (*model.Tour, error)
	UpdateTour(ctx context.Context, t model.Tour, token string) (*model.Tour, error)
	DeleteTour(ctx context.Context, id int64, token string) error
}

// WishlistAPI is the subset of the remote API used by [Wishlist].
// Implemented by [remote.Client].
type WishlistAPI interface {
	ListWishlist(ctx context.Context, token string) ([]model.WishlistItem, error)
	AddWishlist(ctx context.Context, tourID int64, token string) error
	RemoveWishlist(ctx context.Context, tourID int64, token string) error
}

// BookingAPI is the subset of the remote API used by [Bookings].
// Implemented by [remote.Client].
type BookingAPI interface {
	ListAllBookings(ctx context.Context, token string) ([]model.Booking, error)
	ListMyBookings(ctx context.Context, token string) ([]model.Booking, error)
	CreateBooking(ctx context.Context, in model.BookingRequest, token string) (*model.Booking, error)
	UpdateBookingStatus(ctx context.Context, id int64, status model.PaymentStatus, token string) (*model.Booking, error)
	DeleteBooking(ctx context.Context, id int64, token string) error
}

func tourKey(t *model.Tour) int64             { return t.ID }
func bookingKey(b *model.Booking) int64       { return b.ID }
func wishlistKey(w *model.WishlistItem) int64 { return w.ID }
