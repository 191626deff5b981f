package sync

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/njoerd114/toursync/internal/model"
	"github.com/njoerd114/toursync/internal/remote"
)

func TestBookTour_NotSignedIn(t *testing.T) {
	stores, _, _, _ := newStores(newMockAPI(sampleTours()...))
	e := NewEngine(stores, nil, "", time.Minute, discardLogger())

	if _, err := e.BookTour(context.Background(), 1, "2026-07-30", 2, ""); !errors.Is(err, ErrNotSignedIn) {
		t.Errorf("err = %v, want ErrNotSignedIn", err)
	}
}

func TestBookTour_FetchesUncachedTour(t *testing.T) {
	api := newMockAPI(sampleTours()...)
	stores, tours, _, bookings := newStores(api)
	e := NewEngine(stores, nil, signToken(t, "USER", time.Now().Add(time.Hour)), time.Minute, discardLogger())

	b, err := e.BookTour(context.Background(), 1, "2026-07-30", 2, "")
	if err != nil {
		t.Fatalf("BookTour: %v", err)
	}

	if api.callCount("GetTour") != 1 {
		t.Error("uncached tour not fetched")
	}
	if _, ok := tours.State().Find(1); !ok {
		t.Error("fetched tour not cached")
	}
	if b.EndDate != "2026-08-04" || b.TotalAmount != 2400 || b.PaymentMethod != model.DefaultPaymentMethod {
		t.Errorf("booking = %+v", b)
	}
	bs := bookings.State()
	if len(bs.UserBookings) != 1 || bs.UserBookings[0].ID != b.ID {
		t.Errorf("UserBookings = %+v", bs.UserBookings)
	}
}

func TestBookTour_UsesCachedTour(t *testing.T) {
	api := newMockAPI(sampleTours()...)
	stores, tours, _, _ := newStores(api)
	tours.Set(sampleTours())
	e := NewEngine(stores, nil, signToken(t, "USER", time.Now().Add(time.Hour)), time.Minute, discardLogger())

	if _, err := e.BookTour(context.Background(), 2, "2026-07-30", 1, "PayPal"); err != nil {
		t.Fatal(err)
	}
	if api.callCount("GetTour") != 0 {
		t.Error("cached tour fetched again")
	}
}

func TestBookTour_RemovesFromWishlist(t *testing.T) {
	api := newMockAPI(sampleTours()...)
	api.wishlist = []model.WishlistItem{{ID: 1}, {ID: 2}}
	stores, _, wishlist, _ := newStores(api)
	e := NewEngine(stores, nil, signToken(t, "USER", time.Now().Add(time.Hour)), time.Minute, discardLogger())
	ctx := context.Background()
	if err := wishlist.FetchFromBackend(ctx, e.token); err != nil {
		t.Fatal(err)
	}

	if _, err := e.BookTour(ctx, 1, "2026-07-30", 1, ""); err != nil {
		t.Fatal(err)
	}

	if wishlist.Contains(1) {
		t.Error("booked tour still wishlisted")
	}
	if !wishlist.Contains(2) {
		t.Error("unrelated wishlist entry removed")
	}
}

func TestBookTour_WishlistFailureKeepsBooking(t *testing.T) {
	api := newMockAPI(sampleTours()...)
	api.failNext("RemoveWishlist", 1, errUnavailable)
	stores, _, wishlist, bookings := newStores(api)
	wishlist.AddLocal(model.WishlistItem{ID: 1})
	e := NewEngine(stores, nil, signToken(t, "USER", time.Now().Add(time.Hour)), time.Minute, discardLogger())

	b, err := e.BookTour(context.Background(), 1, "2026-07-30", 1, "")
	if err != nil {
		t.Fatalf("BookTour: %v", err)
	}
	if b == nil || len(bookings.State().UserBookings) != 1 {
		t.Error("booking lost after wishlist failure")
	}
	if !wishlist.Contains(1) {
		t.Error("wishlist entry dropped despite failed remove")
	}
}

func TestBookTour_InvalidRequest(t *testing.T) {
	api := newMockAPI(sampleTours()...)
	stores, _, _, _ := newStores(api)
	e := NewEngine(stores, nil, signToken(t, "USER", time.Now().Add(time.Hour)), time.Minute, discardLogger())

	_, err := e.BookTour(context.Background(), 1, "2026-07-30", 9, "")
	if !errors.Is(err, model.ErrGroupTooLarge) {
		t.Errorf("err = %v, want ErrGroupTooLarge", err)
	}
	if api.callCount("CreateBooking") != 0 {
		t.Error("invalid booking sent to server")
	}
}

func TestBookTour_ServerErrorKeepsCause(t *testing.T) {
	api := newMockAPI(sampleTours()...)
	api.failNext("CreateBooking", 1, &remote.Error{Op: "create booking", Status: 409, Message: "tour is full"})
	stores, tours, _, _ := newStores(api)
	tours.Set(sampleTours())
	e := NewEngine(stores, nil, signToken(t, "USER", time.Now().Add(time.Hour)), time.Minute, discardLogger())

	_, err := e.BookTour(context.Background(), 1, "2026-07-30", 2, "")
	var re *remote.Error
	if !errors.As(err, &re) || re.Status != 409 {
		t.Fatalf("err = %v, want wrapped *remote.Error with status 409", err)
	}
	if remote.Message(err) != "tour is full" {
		t.Errorf("Message = %q", remote.Message(err))
	}
}
