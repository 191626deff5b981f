package model

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"
)

// DateLayout is the wire format of travel and end dates.
const DateLayout = "2006-01-02"

// DefaultPaymentMethod is used when a booking request does not name one.
const DefaultPaymentMethod = "Credit Card"

// PaymentStatus is the payment state of a booking. The vocabulary is owned by
// the server; only PaymentPaid carries meaning for the revenue aggregate.
type PaymentStatus string

const (
	PaymentUnpaid   PaymentStatus = "unpaid"
	PaymentPaid     PaymentStatus = "paid"
	PaymentRefunded PaymentStatus = "refunded"
)

// IsPaid reports whether the status counts towards revenue.
func (s PaymentStatus) IsPaid() bool {
	return s == PaymentPaid
}

// Booking is a reservation of a tour by a user. TotalAmount is fixed at
// creation time and never recomputed from the tour's current price.
type Booking struct {
	ID            int64         `json:"id"`
	TourID        int64         `json:"tourId"`
	TravelDate    string        `json:"travelDate"`
	EndDate       string        `json:"endDate"`
	Guests        int           `json:"guests"`
	TotalAmount   float64       `json:"totalAmount"`
	PaymentStatus PaymentStatus `json:"paymentStatus"`
	PaymentMethod string        `json:"paymentMethod"`
	UserID        int64         `json:"userId,omitempty"`
}

// ContentHash returns a SHA-256 hex digest over the booking's fields.
func (b *Booking) ContentHash() string {
	h := sha256.New()
	_, _ = fmt.Fprintf(h, "%d|%d|%s|%s|%d|%g|%s|%s|%d",
		b.ID, b.TourID, b.TravelDate, b.EndDate, b.Guests, b.TotalAmount,
		b.PaymentStatus, b.PaymentMethod, b.UserID)
	return hex.EncodeToString(h.Sum(nil))
}

// BookingRequest is the payload sent to create a booking.
type BookingRequest struct {
	TourID        int64   `json:"tourId"`
	TravelDate    string  `json:"travelDate"`
	EndDate       string  `json:"endDate"`
	Guests        int     `json:"guests"`
	TotalAmount   float64 `json:"totalAmount"`
	PaymentMethod string  `json:"paymentMethod"`
}

// Validation errors returned by NewBookingRequest.
var (
	ErrInvalidGuests     = errors.New("guests must be at least 1")
	ErrGroupTooLarge     = errors.New("guests exceed the tour's maximum group size")
	ErrInvalidTravelDate = errors.New("travel date must be formatted as YYYY-MM-DD")
)

// NewBookingRequest builds the create payload for booking tour on travelDate
// for the given number of guests. The end date is travelDate plus the tour's
// duration (a zero duration counts as one day) and the total is the tour's
// current price times guests.
func NewBookingRequest(tour *Tour, travelDate string, guests int, paymentMethod string) (*BookingRequest, error) {
	if guests < 1 {
		return nil, ErrInvalidGuests
	}
	if tour.MaxGroupSize > 0 && guests > tour.MaxGroupSize {
		return nil, fmt.Errorf("%w: %d > %d", ErrGroupTooLarge, guests, tour.MaxGroupSize)
	}
	start, err := time.Parse(DateLayout, travelDate)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidTravelDate, travelDate)
	}

	days := tour.Duration
	if days <= 0 {
		days = 1
	}
	if paymentMethod == "" {
		paymentMethod = DefaultPaymentMethod
	}

	return &BookingRequest{
		TourID:        tour.ID,
		TravelDate:    travelDate,
		EndDate:       start.AddDate(0, 0, days).Format(DateLayout),
		Guests:        guests,
		TotalAmount:   tour.Price * float64(guests),
		PaymentMethod: paymentMethod,
	}, nil
}
