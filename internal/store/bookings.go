package store

import (
	"context"
	"log/slog"

	"github.com/njoerd114/toursync/internal/model"
	"github.com/njoerd114/toursync/internal/remote"
)

// BookingState holds the admin view of all bookings, the signed-in user's
// own bookings, and the revenue aggregate over the admin view.
type BookingState struct {
	Bookings     []model.Booking
	UserBookings []model.Booking

	// TotalRevenue is the sum of TotalAmount over paid entries of Bookings.
	// Remove does not adjust it, and neither does an amount change on a
	// booking that stays paid.
	TotalRevenue float64

	OpState

	allFence  uint64
	userFence uint64
}

// BookingEvent is a transition of the booking cache.
type BookingEvent interface{ bookingEvent() }

type (
	BookingOpStarted struct{}

	// BookingOpFailed rejects an operation. Exactly one of AllSeq and UserSeq
	// is set for a fenced fetch; both are 0 otherwise.
	BookingOpFailed struct {
		AllSeq  uint64
		UserSeq uint64
		Message string
	}

	AllBookingsFetched struct {
		Seq      uint64
		Bookings []model.Booking
	}

	UserBookingsFetched struct {
		Seq      uint64
		Bookings []model.Booking
	}

	// BookingCreated resolves a confirmed create. The booking joins both the
	// admin view and the user's own list.
	BookingCreated struct{ Booking model.Booking }

	// BookingStatusChanged resolves a confirmed status update in both views.
	BookingStatusChanged struct{ Booking model.Booking }

	// BookingDeleted resolves a confirmed delete in both views.
	BookingDeleted struct{ ID int64 }

	BookingsSet         struct{ Bookings []model.Booking }
	UserBookingsSet     struct{ Bookings []model.Booking }
	BookingAdded        struct{ Booking model.Booking }
	BookingUpdated      struct{ Booking model.Booking }
	BookingRemoved      struct{ ID int64 }
	BookingErrorCleared struct{}
)

func (BookingOpStarted) bookingEvent()     {}
func (BookingOpFailed) bookingEvent()      {}
func (AllBookingsFetched) bookingEvent()   {}
func (UserBookingsFetched) bookingEvent()  {}
func (BookingCreated) bookingEvent()       {}
func (BookingStatusChanged) bookingEvent() {}
func (BookingDeleted) bookingEvent()       {}
func (BookingsSet) bookingEvent()          {}
func (UserBookingsSet) bookingEvent()      {}
func (BookingAdded) bookingEvent()         {}
func (BookingUpdated) bookingEvent()       {}
func (BookingRemoved) bookingEvent()       {}
func (BookingErrorCleared) bookingEvent()  {}

// paidRevenue sums TotalAmount over paid bookings.
func paidRevenue(list []model.Booking) float64 {
	var total float64
	for i := range list {
		if list[i].PaymentStatus.IsPaid() {
			total += list[i].TotalAmount
		}
	}
	return total
}

// reviseRevenue adjusts total for a single booking going from before to
// after. A nil before is an insert; a nil after leaves total alone. Only a
// transition into or out of paid moves the total.
func reviseRevenue(total float64, before, after *model.Booking) float64 {
	if after == nil {
		return total
	}
	wasPaid := before != nil && before.PaymentStatus.IsPaid()
	isPaid := after.PaymentStatus.IsPaid()
	switch {
	case isPaid && !wasPaid:
		return total + after.TotalAmount
	case wasPaid && !isPaid:
		return total - before.TotalAmount
	}
	return total
}

func (s BookingState) withAll(list []model.Booking) BookingState {
	s.Bookings = cloneList(list)
	s.TotalRevenue = paidRevenue(s.Bookings)
	return s
}

func (s BookingState) withAdded(b model.Booking) BookingState {
	s.Bookings = appended(s.Bookings, b)
	s.TotalRevenue = reviseRevenue(s.TotalRevenue, nil, &b)
	return s
}

func (s BookingState) withUpdated(b model.Booking) BookingState {
	next, prev := replace(s.Bookings, b, bookingKey)
	if prev == nil {
		return s
	}
	s.Bookings = next
	s.TotalRevenue = reviseRevenue(s.TotalRevenue, prev, &b)
	return s
}

// ReduceBookings returns the booking state that follows ev. s is not
// modified.
func ReduceBookings(s BookingState, ev BookingEvent) BookingState {
	switch e := ev.(type) {
	case BookingOpStarted:
		s.OpState = s.started()

	case BookingOpFailed:
		switch {
		case e.AllSeq != 0 && !admits(s.allFence, e.AllSeq),
			e.UserSeq != 0 && !admits(s.userFence, e.UserSeq):
			s.OpState = s.superseded()
			return s
		}
		s.allFence = advance(s.allFence, e.AllSeq)
		s.userFence = advance(s.userFence, e.UserSeq)
		s.OpState = s.rejected(e.Message)

	case AllBookingsFetched:
		if !admits(s.allFence, e.Seq) {
			s.OpState = s.superseded()
			break
		}
		s.allFence = advance(s.allFence, e.Seq)
		s = s.withAll(e.Bookings)
		s.OpState = s.fulfilled()

	case UserBookingsFetched:
		if !admits(s.userFence, e.Seq) {
			s.OpState = s.superseded()
			break
		}
		s.userFence = advance(s.userFence, e.Seq)
		s.UserBookings = cloneList(e.Bookings)
		s.OpState = s.fulfilled()

	case BookingCreated:
		s = s.withAdded(e.Booking)
		s.UserBookings = appended(s.UserBookings, e.Booking)
		s.OpState = s.fulfilled()

	case BookingStatusChanged:
		s = s.withUpdated(e.Booking)
		s.UserBookings, _ = replace(s.UserBookings, e.Booking, bookingKey)
		s.OpState = s.fulfilled()

	case BookingDeleted:
		s.Bookings = without(s.Bookings, e.ID, bookingKey)
		s.UserBookings = without(s.UserBookings, e.ID, bookingKey)
		s.OpState = s.fulfilled()

	case BookingsSet:
		s = s.withAll(e.Bookings)

	case UserBookingsSet:
		s.UserBookings = cloneList(e.Bookings)

	case BookingAdded:
		s = s.withAdded(e.Booking)

	case BookingUpdated:
		s = s.withUpdated(e.Booking)

	case BookingRemoved:
		s.Bookings = without(s.Bookings, e.ID, bookingKey)

	case BookingErrorCleared:
		s.Error = ""
	}
	return s
}

// Bookings is the booking store handle. Create one with [NewBookings].
type Bookings struct {
	api BookingAPI
	log *slog.Logger
	h   handle[BookingState, BookingEvent]
}

// NewBookings creates an empty booking store backed by api.
func NewBookings(api BookingAPI, logger *slog.Logger) *Bookings {
	b := &Bookings{api: api, log: logger}
	b.h.reduce = ReduceBookings
	b.h.clone = func(s BookingState) BookingState {
		s.Bookings = cloneList(s.Bookings)
		s.UserBookings = cloneList(s.UserBookings)
		return s
	}
	return b
}

// State returns a copy of the current state.
func (b *Bookings) State() BookingState {
	return b.h.current()
}

// Subscribe registers fn to receive a copy of the state after every
// transition. See [Tours.Subscribe].
func (b *Bookings) Subscribe(fn func(BookingState)) (cancel func()) {
	return b.h.subs.add(fn)
}

// Dispatch applies an arbitrary event.
func (b *Bookings) Dispatch(ev BookingEvent) BookingState {
	return b.h.dispatch(ev)
}

// SetAll replaces the admin view and recomputes TotalRevenue from it.
func (b *Bookings) SetAll(list []model.Booking) { b.h.dispatch(BookingsSet{Bookings: list}) }

// SetUserBookings replaces the user's own bookings.
func (b *Bookings) SetUserBookings(list []model.Booking) {
	b.h.dispatch(UserBookingsSet{Bookings: list})
}

// Add appends a booking to the admin view, counting it towards revenue when
// it is paid.
func (b *Bookings) Add(bk model.Booking) { b.h.dispatch(BookingAdded{Booking: bk}) }

// Update replaces the booking with the same ID in the admin view. Unknown IDs
// are ignored.
func (b *Bookings) Update(bk model.Booking) { b.h.dispatch(BookingUpdated{Booking: bk}) }

// Remove drops a booking from the admin view. TotalRevenue is left as is.
func (b *Bookings) Remove(id int64) { b.h.dispatch(BookingRemoved{ID: id}) }

// ClearError clears the recorded failure message.
func (b *Bookings) ClearError() { b.h.dispatch(BookingErrorCleared{}) }

// FetchAllFromBackend replaces the admin view with every booking on the
// server. It requires an administrator token.
func (b *Bookings) FetchAllFromBackend(ctx context.Context, token string) error {
	seq := b.h.begin(BookingOpStarted{})
	list, err := b.api.ListAllBookings(ctx, token)
	if err != nil {
		b.log.Debug("booking list fetch failed", "view", "all", "error", err)
		b.h.dispatch(BookingOpFailed{AllSeq: seq, Message: remote.Message(err)})
		return err
	}
	b.h.dispatch(AllBookingsFetched{Seq: seq, Bookings: list})
	return nil
}

// FetchUserBookingsFromBackend replaces the user's own bookings.
func (b *Bookings) FetchUserBookingsFromBackend(ctx context.Context, token string) error {
	seq := b.h.begin(BookingOpStarted{})
	list, err := b.api.ListMyBookings(ctx, token)
	if err != nil {
		b.log.Debug("booking list fetch failed", "view", "mine", "error", err)
		b.h.dispatch(BookingOpFailed{UserSeq: seq, Message: remote.Message(err)})
		return err
	}
	b.h.dispatch(UserBookingsFetched{Seq: seq, Bookings: list})
	return nil
}

// Create books a tour on the server and adds the confirmed booking to both
// views.
func (b *Bookings) Create(ctx context.Context, req model.BookingRequest, token string) (*model.Booking, error) {
	b.h.dispatch(BookingOpStarted{})
	created, err := b.api.CreateBooking(ctx, req, token)
	if err != nil {
		b.h.dispatch(BookingOpFailed{Message: remote.Message(err)})
		return nil, err
	}
	b.h.dispatch(BookingCreated{Booking: *created})
	return created, nil
}

// UpdateStatus changes a booking's payment status on the server and applies
// the confirmed booking to both views.
func (b *Bookings) UpdateStatus(ctx context.Context, id int64, status model.PaymentStatus, token string) (*model.Booking, error) {
	b.h.dispatch(BookingOpStarted{})
	updated, err := b.api.UpdateBookingStatus(ctx, id, status, token)
	if err != nil {
		b.h.dispatch(BookingOpFailed{Message: remote.Message(err)})
		return nil, err
	}
	b.h.dispatch(BookingStatusChanged{Booking: *updated})
	return updated, nil
}

// Delete deletes a booking on the server and drops it from both views.
// TotalRevenue is left as is.
func (b *Bookings) Delete(ctx context.Context, id int64, token string) error {
	b.h.dispatch(BookingOpStarted{})
	if err := b.api.DeleteBooking(ctx, id, token); err != nil {
		b.h.dispatch(BookingOpFailed{Message: remote.Message(err)})
		return err
	}
	b.h.dispatch(BookingDeleted{ID: id})
	return nil
}
