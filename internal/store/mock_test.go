package store

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"

	"github.com/njoerd114/toursync/internal/model"
	"github.com/njoerd114/toursync/internal/remote"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// --- Mock API ----------------------------------------------------------------

// mockAPI implements TourAPI, WishlistAPI, and BookingAPI. Each hook, when
// set, replaces the default in-memory behaviour of the matching call.
type mockAPI struct {
	mu sync.Mutex

	tours    []model.Tour
	wishlist []model.WishlistItem
	all      []model.Booking
	mine     []model.Booking
	nextID   int64

	err error // returned by every call when set

	listTours    func(ctx context.Context) ([]model.Tour, error)
	listWishlist func(ctx context.Context) ([]model.WishlistItem, error)

	calls []string
}

func (m *mockAPI) record(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, name)
	return m.err
}

func (m *mockAPI) ListTours(ctx context.Context) ([]model.Tour, error) {
	if err := m.record("ListTours"); err != nil {
		return nil, err
	}
	if m.listTours != nil {
		return m.listTours(ctx)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]model.Tour(nil), m.tours...), nil
}

func (m *mockAPI) GetTour(_ context.Context, id int64) (*model.Tour, error) {
	if err := m.record("GetTour"); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.tours {
		if t.ID == id {
			return &t, nil
		}
	}
	return nil, &remote.Error{Op: "get tour", Status: 404, Message: "Tour not found"}
}

func (m *mockAPI) CreateTour(_ context.Context, t model.Tour, _ string) (*model.Tour, error) {
	if err := m.record("CreateTour"); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	t.ID = 100 + m.nextID
	m.tours = append(m.tours, t)
	return &t, nil
}

func (m *mockAPI) UpdateTour(_ context.Context, t model.Tour, _ string) (*model.Tour, error) {
	if err := m.record("UpdateTour"); err != nil {
		return nil, err
	}
	return &t, nil
}

func (m *mockAPI) DeleteTour(_ context.Context, _ int64, _ string) error {
	return m.record("DeleteTour")
}

func (m *mockAPI) ListWishlist(ctx context.Context, _ string) ([]model.WishlistItem, error) {
	if err := m.record("ListWishlist"); err != nil {
		return nil, err
	}
	if m.listWishlist != nil {
		return m.listWishlist(ctx)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]model.WishlistItem(nil), m.wishlist...), nil
}

func (m *mockAPI) AddWishlist(_ context.Context, tourID int64, _ string) error {
	if err := m.record("AddWishlist"); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.wishlist = append(m.wishlist, model.WishlistItem{ID: tourID, Title: "server copy"})
	return nil
}

func (m *mockAPI) RemoveWishlist(_ context.Context, tourID int64, _ string) error {
	if err := m.record("RemoveWishlist"); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.wishlist[:0]
	for _, it := range m.wishlist {
		if it.ID != tourID {
			kept = append(kept, it)
		}
	}
	m.wishlist = kept
	return nil
}

func (m *mockAPI) ListAllBookings(_ context.Context, _ string) ([]model.Booking, error) {
	if err := m.record("ListAllBookings"); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]model.Booking(nil), m.all...), nil
}

func (m *mockAPI) ListMyBookings(_ context.Context, _ string) ([]model.Booking, error) {
	if err := m.record("ListMyBookings"); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]model.Booking(nil), m.mine...), nil
}

func (m *mockAPI) CreateBooking(_ context.Context, in model.BookingRequest, _ string) (*model.Booking, error) {
	if err := m.record("CreateBooking"); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	return &model.Booking{
		ID:            m.nextID,
		TourID:        in.TourID,
		TravelDate:    in.TravelDate,
		EndDate:       in.EndDate,
		Guests:        in.Guests,
		TotalAmount:   in.TotalAmount,
		PaymentStatus: model.PaymentUnpaid,
		PaymentMethod: in.PaymentMethod,
	}, nil
}

func (m *mockAPI) UpdateBookingStatus(_ context.Context, id int64, status model.PaymentStatus, _ string) (*model.Booking, error) {
	if err := m.record("UpdateBookingStatus"); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, b := range m.all {
		if b.ID == id {
			b.PaymentStatus = status
			return &b, nil
		}
	}
	return nil, &remote.Error{Op: "update booking status", Status: 404, Message: "Booking not found"}
}

func (m *mockAPI) DeleteBooking(_ context.Context, _ int64, _ string) error {
	return m.record("DeleteBooking")
}

var errNetwork = &remote.Error{Op: "fetch tours", Message: "dial tcp: connection refused", Err: errors.New("connection refused")}
