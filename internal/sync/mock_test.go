package sync

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/njoerd114/toursync/internal/model"
	"github.com/njoerd114/toursync/internal/remote"
	"github.com/njoerd114/toursync/internal/snapshot"
	"github.com/njoerd114/toursync/internal/store"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func signToken(t *testing.T, role string, exp time.Time) string {
	t.Helper()
	claims := jwt.MapClaims{"sub": "user@example.com", "role": role, "exp": exp.Unix()}
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("signing token: %v", err)
	}
	return s
}

// --- Mock remote API ---------------------------------------------------------

type mockAPI struct {
	mu sync.Mutex

	tours    map[int64]model.Tour
	order    []int64
	wishlist []model.WishlistItem
	all      []model.Booking
	mine     []model.Booking
	nextID   int64

	failures map[string]int   // remaining failures per call name
	errs     map[string]error // error returned while failures remain
	calls    map[string]int
}

func newMockAPI(tours ...model.Tour) *mockAPI {
	m := &mockAPI{
		tours:    make(map[int64]model.Tour),
		failures: make(map[string]int),
		errs:     make(map[string]error),
		calls:    make(map[string]int),
		nextID:   1000,
	}
	for _, t := range tours {
		m.tours[t.ID] = t
		m.order = append(m.order, t.ID)
	}
	return m
}

// failNext makes the next n calls of name fail with err.
func (m *mockAPI) failNext(name string, n int, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures[name] = n
	m.errs[name] = err
}

func (m *mockAPI) enter(name string) error {
	m.calls[name]++
	if m.failures[name] > 0 {
		m.failures[name]--
		return m.errs[name]
	}
	return nil
}

func (m *mockAPI) callCount(name string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[name]
}

func (m *mockAPI) ListTours(_ context.Context) ([]model.Tour, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("ListTours"); err != nil {
		return nil, err
	}
	out := make([]model.Tour, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, m.tours[id])
	}
	return out, nil
}

func (m *mockAPI) GetTour(_ context.Context, id int64) (*model.Tour, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("GetTour"); err != nil {
		return nil, err
	}
	t, ok := m.tours[id]
	if !ok {
		return nil, &remote.Error{Op: "get tour", Status: 404, Message: "Tour not found"}
	}
	return &t, nil
}

func (m *mockAPI) CreateTour(_ context.Context, t model.Tour, _ string) (*model.Tour, error) {
	return &t, nil
}

func (m *mockAPI) UpdateTour(_ context.Context, t model.Tour, _ string) (*model.Tour, error) {
	return &t, nil
}

func (m *mockAPI) DeleteTour(_ context.Context, _ int64, _ string) error { return nil }

func (m *mockAPI) ListWishlist(_ context.Context, _ string) ([]model.WishlistItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("ListWishlist"); err != nil {
		return nil, err
	}
	return append([]model.WishlistItem(nil), m.wishlist...), nil
}

func (m *mockAPI) AddWishlist(_ context.Context, tourID int64, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("AddWishlist"); err != nil {
		return err
	}
	m.wishlist = append(m.wishlist, model.WishlistItem{ID: tourID})
	return nil
}

func (m *mockAPI) RemoveWishlist(_ context.Context, tourID int64, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("RemoveWishlist"); err != nil {
		return err
	}
	kept := make([]model.WishlistItem, 0, len(m.wishlist))
	for _, it := range m.wishlist {
		if it.ID != tourID {
			kept = append(kept, it)
		}
	}
	m.wishlist = kept
	return nil
}

func (m *mockAPI) ListAllBookings(_ context.Context, _ string) ([]model.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("ListAllBookings"); err != nil {
		return nil, err
	}
	return append([]model.Booking(nil), m.all...), nil
}

func (m *mockAPI) ListMyBookings(_ context.Context, _ string) ([]model.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("ListMyBookings"); err != nil {
		return nil, err
	}
	return append([]model.Booking(nil), m.mine...), nil
}

func (m *mockAPI) CreateBooking(_ context.Context, in model.BookingRequest, _ string) (*model.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("CreateBooking"); err != nil {
		return nil, err
	}
	m.nextID++
	b := model.Booking{
		ID:            m.nextID,
		TourID:        in.TourID,
		TravelDate:    in.TravelDate,
		EndDate:       in.EndDate,
		Guests:        in.Guests,
		TotalAmount:   in.TotalAmount,
		PaymentStatus: model.PaymentUnpaid,
		PaymentMethod: in.PaymentMethod,
	}
	m.all = append(m.all, b)
	m.mine = append(m.mine, b)
	return &b, nil
}

func (m *mockAPI) UpdateBookingStatus(_ context.Context, id int64, status model.PaymentStatus, _ string) (*model.Booking, error) {
	return &model.Booking{ID: id, PaymentStatus: status}, nil
}

func (m *mockAPI) DeleteBooking(_ context.Context, _ int64, _ string) error { return nil }

func newStores(api *mockAPI) (Stores, *store.Tours, *store.Wishlist, *store.Bookings) {
	log := discardLogger()
	t := store.NewTours(api, log)
	w := store.NewWishlist(api, log)
	b := store.NewBookings(api, log)
	return Stores{Tours: t, Wishlist: w, Bookings: b}, t, w, b
}

// --- Mock snapshot store -----------------------------------------------------

type mockSnapshots struct {
	mu    sync.Mutex
	saved *snapshot.Snapshot
	saves int
	err   error
}

func (m *mockSnapshots) Save(_ context.Context, snap *snapshot.Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.saves++
	cp := *snap
	m.saved = &cp
	return nil
}

func (m *mockSnapshots) Load(_ context.Context) (*snapshot.Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saved == nil {
		return &snapshot.Snapshot{}, nil
	}
	cp := *m.saved
	return &cp, nil
}

func (m *mockSnapshots) IsEmpty(_ context.Context) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saved == nil, nil
}
