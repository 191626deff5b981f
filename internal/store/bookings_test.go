package store

import (
	"context"
	"math"
	"testing"

	"github.com/njoerd114/toursync/internal/model"
)

func booking(id int64, amount float64, status model.PaymentStatus) model.Booking {
	return model.Booking{ID: id, TourID: 1, TotalAmount: amount, PaymentStatus: status}
}

func assertRevenueInvariant(t *testing.T, s BookingState) {
	t.Helper()
	if want := paidRevenue(s.Bookings); math.Abs(s.TotalRevenue-want) > 1e-9 {
		t.Errorf("TotalRevenue = %v, paid sum = %v", s.TotalRevenue, want)
	}
}

func TestBookings_AddPaidThenRefund(t *testing.T) {
	b := NewBookings(&mockAPI{}, discardLogger())

	b.Add(booking(1, 100, model.PaymentPaid))
	if got := b.State().TotalRevenue; got != 100 {
		t.Fatalf("after add TotalRevenue = %v, want 100", got)
	}

	b.Update(booking(1, 100, model.PaymentRefunded))
	if got := b.State().TotalRevenue; got != 0 {
		t.Errorf("after refund TotalRevenue = %v, want 0", got)
	}
}

func TestBookings_RevenueInvariant(t *testing.T) {
	b := NewBookings(&mockAPI{}, discardLogger())

	steps := []func(){
		func() { b.Add(booking(1, 100, model.PaymentPaid)) },
		func() { b.Add(booking(2, 250, model.PaymentUnpaid)) },
		func() { b.Update(booking(2, 250, model.PaymentPaid)) },
		func() { b.Update(booking(1, 100, model.PaymentRefunded)) },
		func() { b.Update(booking(9, 999, model.PaymentPaid)) }, // absent, ignored
		func() {
			b.SetAll([]model.Booking{
				booking(3, 40, model.PaymentPaid),
				booking(4, 60, model.PaymentPaid),
				booking(5, 80, model.PaymentUnpaid),
			})
		},
		func() { b.Add(booking(6, 10, model.PaymentPaid)) },
		func() { b.Update(booking(5, 80, model.PaymentPaid)) },
		func() { b.Update(booking(3, 40, model.PaymentPaid)) }, // paid to paid
	}
	for i, step := range steps {
		step()
		s := b.State()
		assertRevenueInvariant(t, s)
		if t.Failed() {
			t.Fatalf("invariant broken after step %d", i)
		}
	}
	if got := b.State().TotalRevenue; got != 190 {
		t.Errorf("TotalRevenue = %v, want 190", got)
	}
}

func TestBookings_RemoveDoesNotAdjustRevenue(t *testing.T) {
	b := NewBookings(&mockAPI{}, discardLogger())
	b.SetAll([]model.Booking{
		booking(1, 100, model.PaymentPaid),
		booking(2, 50, model.PaymentPaid),
	})
	assertRevenueInvariant(t, b.State())

	b.Remove(1)

	s := b.State()
	if len(s.Bookings) != 1 {
		t.Fatalf("Bookings = %+v", s.Bookings)
	}
	// Removal keeps the removed booking's amount in the aggregate.
	if s.TotalRevenue != 150 {
		t.Errorf("TotalRevenue = %v, want 150 (unchanged by remove)", s.TotalRevenue)
	}
	if paidRevenue(s.Bookings) == s.TotalRevenue {
		t.Error("expected the aggregate to diverge from the paid sum after remove")
	}
}

func TestBookings_AmountChangeOnPaidNotResynced(t *testing.T) {
	b := NewBookings(&mockAPI{}, discardLogger())
	b.Add(booking(1, 100, model.PaymentPaid))

	b.Update(booking(1, 130, model.PaymentPaid))

	if got := b.State().TotalRevenue; got != 100 {
		t.Errorf("TotalRevenue = %v, want 100 (only status transitions adjust it)", got)
	}
}

func TestBookings_FullReplaceDeduplicates(t *testing.T) {
	api := &mockAPI{all: []model.Booking{booking(1, 100, model.PaymentPaid)}}
	b := NewBookings(api, discardLogger())

	b.Add(booking(1, 100, model.PaymentPaid))
	if err := b.FetchAllFromBackend(context.Background(), "tok"); err != nil {
		t.Fatal(err)
	}

	s := b.State()
	if len(s.Bookings) != 1 || s.TotalRevenue != 100 {
		t.Errorf("Bookings = %+v, TotalRevenue = %v", s.Bookings, s.TotalRevenue)
	}
}

func TestBookings_UserBookingsSeparateFromRevenue(t *testing.T) {
	api := &mockAPI{mine: []model.Booking{booking(7, 500, model.PaymentPaid)}}
	b := NewBookings(api, discardLogger())

	if err := b.FetchUserBookingsFromBackend(context.Background(), "tok"); err != nil {
		t.Fatal(err)
	}

	s := b.State()
	if len(s.UserBookings) != 1 {
		t.Fatalf("UserBookings = %+v", s.UserBookings)
	}
	if s.TotalRevenue != 0 || len(s.Bookings) != 0 {
		t.Errorf("user fetch touched admin view: %+v, revenue %v", s.Bookings, s.TotalRevenue)
	}
}

func TestBookings_FetchFailureLeavesCache(t *testing.T) {
	api := &mockAPI{}
	b := NewBookings(api, discardLogger())
	b.SetAll([]model.Booking{booking(1, 100, model.PaymentPaid)})

	api.err = errNetwork
	if err := b.FetchAllFromBackend(context.Background(), "tok"); err == nil {
		t.Fatal("expected error")
	}

	s := b.State()
	if len(s.Bookings) != 1 || s.TotalRevenue != 100 {
		t.Errorf("cache changed: %+v, revenue %v", s.Bookings, s.TotalRevenue)
	}
	if s.Error != "dial tcp: connection refused" || s.Loading() {
		t.Errorf("op state = %+v", s.OpState)
	}
}

func TestBookings_CreateAddsToBothViews(t *testing.T) {
	b := NewBookings(&mockAPI{}, discardLogger())
	req := model.BookingRequest{TourID: 1, TravelDate: "2026-07-30", EndDate: "2026-08-03", Guests: 2, TotalAmount: 500}

	created, err := b.Create(context.Background(), req, "tok")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	s := b.State()
	if len(s.Bookings) != 1 || s.Bookings[0].ID != created.ID {
		t.Errorf("Bookings = %+v", s.Bookings)
	}
	if len(s.UserBookings) != 1 || s.UserBookings[0].ID != created.ID {
		t.Errorf("UserBookings = %+v", s.UserBookings)
	}
	if s.TotalRevenue != 0 {
		t.Errorf("unpaid booking counted: %v", s.TotalRevenue)
	}
}

func TestBookings_UpdateStatusAdjustsRevenue(t *testing.T) {
	api := &mockAPI{all: []model.Booking{booking(1, 300, model.PaymentUnpaid)}}
	b := NewBookings(api, discardLogger())
	ctx := context.Background()
	if err := b.FetchAllFromBackend(ctx, "tok"); err != nil {
		t.Fatal(err)
	}
	b.SetUserBookings([]model.Booking{booking(1, 300, model.PaymentUnpaid)})

	if _, err := b.UpdateStatus(ctx, 1, model.PaymentPaid, "tok"); err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}

	s := b.State()
	if s.TotalRevenue != 300 {
		t.Errorf("TotalRevenue = %v, want 300", s.TotalRevenue)
	}
	if s.UserBookings[0].PaymentStatus != model.PaymentPaid {
		t.Errorf("user view not updated: %+v", s.UserBookings[0])
	}
}

func TestBookings_DeleteRemovesFromBothViews(t *testing.T) {
	b := NewBookings(&mockAPI{}, discardLogger())
	b.SetAll([]model.Booking{booking(1, 100, model.PaymentPaid)})
	b.SetUserBookings([]model.Booking{booking(1, 100, model.PaymentPaid)})

	if err := b.Delete(context.Background(), 1, "tok"); err != nil {
		t.Fatal(err)
	}

	s := b.State()
	if len(s.Bookings) != 0 || len(s.UserBookings) != 0 {
		t.Errorf("booking still cached: %+v / %+v", s.Bookings, s.UserBookings)
	}
	if s.TotalRevenue != 100 {
		t.Errorf("TotalRevenue = %v, want 100 (delete does not adjust)", s.TotalRevenue)
	}
}

func TestReviseRevenue(t *testing.T) {
	paid := booking(1, 100, model.PaymentPaid)
	unpaid := booking(1, 80, model.PaymentUnpaid)

	tests := []struct {
		name          string
		before, after *model.Booking
		want          float64
	}{
		{"insert paid", nil, &paid, 100},
		{"insert unpaid", nil, &unpaid, 0},
		{"unpaid to paid", &unpaid, &paid, 100},
		{"paid to unpaid subtracts old amount", &paid, &unpaid, -100},
		{"paid to paid", &paid, &paid, 0},
		{"no after", &paid, nil, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := reviseRevenue(0, tt.before, tt.after); got != tt.want {
				t.Errorf("reviseRevenue = %v, want %v", got, tt.want)
			}
		})
	}
}
