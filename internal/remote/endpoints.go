package remote

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/njoerd114/toursync/internal/model"
)

// Remote operations and their default failure messages.
var (
	opRegister      = operation{"register", "Registration failed"}
	opLogin         = operation{"login", "Login failed"}
	opUpdateProfile = operation{"update profile", "Failed to update profile"}

	opListTours  = operation{"list tours", "Failed to fetch tours"}
	opGetTour    = operation{"get tour", "Failed to fetch tour"}
	opCreateTour = operation{"create tour", "Failed to create tour"}
	opUpdateTour = operation{"update tour", "Failed to update tour"}
	opDeleteTour = operation{"delete tour", "Failed to delete tour"}

	opListWishlist   = operation{"list wishlist", "Failed to fetch wishlist"}
	opAddWishlist    = operation{"add to wishlist", "Failed to add to wishlist"}
	opRemoveWishlist = operation{"remove from wishlist", "Failed to remove from wishlist"}

	opCreateBooking       = operation{"create booking", "Failed to create booking"}
	opListMyBookings      = operation{"list my bookings", "Failed to fetch bookings"}
	opListAllBookings     = operation{"list all bookings", "Failed to fetch all bookings"}
	opUpdateBookingStatus = operation{"update booking status", "Failed to update booking status"}
	opDeleteBooking       = operation{"delete booking", "Failed to delete booking"}

	opListMyReviews = operation{"list my reviews", "Failed to fetch reviews"}
	opCreateReview  = operation{"create review", "Failed to create review"}
	opUpdateReview  = operation{"update review", "Failed to update review"}
	opDeleteReview  = operation{"delete review", "Failed to delete review"}
)

func idPath(prefix string, id int64) string {
	return prefix + "/" + strconv.FormatInt(id, 10)
}

// --- Auth & profile ----------------------------------------------------------

// RegisterRequest is the payload for creating an account.
type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginRequest is the payload for signing in.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthResponse is returned by register and login.
type AuthResponse struct {
	Token string `json:"token"`
	ID    int64  `json:"id,omitempty"`
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
	Role  string `json:"role,omitempty"`
}

// Profile holds the editable user profile fields.
type Profile struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone,omitempty"`
}

// Register creates an account. No token is required.
func (c *Client) Register(ctx context.Context, in RegisterRequest) (*AuthResponse, error) {
	var out AuthResponse
	err := c.call(ctx, request{op: opRegister, method: http.MethodPost, path: "/api/auth/register", body: in}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Login exchanges credentials for a bearer token. No token is required.
func (c *Client) Login(ctx context.Context, in LoginRequest) (*AuthResponse, error) {
	var out AuthResponse
	err := c.call(ctx, request{op: opLogin, method: http.MethodPost, path: "/api/auth/login", body: in}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateProfile saves the signed-in user's profile.
func (c *Client) UpdateProfile(ctx context.Context, in Profile, token string) (*Profile, error) {
	var out Profile
	err := c.call(ctx, request{op: opUpdateProfile, method: http.MethodPut, path: "/api/user/profile", token: token, body: in}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// --- Tours -------------------------------------------------------------------

// ListTours returns every tour. No token is required.
func (c *Client) ListTours(ctx context.Context) ([]model.Tour, error) {
	return callList[model.Tour](ctx, c, request{op: opListTours, method: http.MethodGet, path: "/api/tours"})
}

// GetTour returns a single tour. No token is required.
func (c *Client) GetTour(ctx context.Context, id int64) (*model.Tour, error) {
	var out model.Tour
	err := c.call(ctx, request{op: opGetTour, method: http.MethodGet, path: idPath("/api/tours", id)}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateTour creates a tour and returns it with its server-assigned ID.
// Requires an administrator token.
func (c *Client) CreateTour(ctx context.Context, t model.Tour, token string) (*model.Tour, error) {
	var out model.Tour
	err := c.call(ctx, request{op: opCreateTour, method: http.MethodPost, path: "/api/tours", token: token, body: t}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateTour replaces tour t.ID. Requires an administrator token.
func (c *Client) UpdateTour(ctx context.Context, t model.Tour, token string) (*model.Tour, error) {
	var out model.Tour
	err := c.call(ctx, request{op: opUpdateTour, method: http.MethodPut, path: idPath("/api/tours", t.ID), token: token, body: t}, &out)
	if err != nil {
		return nil, err
	}
	if out.ID == 0 {
		out = t
	}
	return &out, nil
}

// DeleteTour deletes a tour. Requires an administrator token.
func (c *Client) DeleteTour(ctx context.Context, id int64, token string) error {
	return c.call(ctx, request{op: opDeleteTour, method: http.MethodDelete, path: idPath("/api/tours", id), token: token}, nil)
}

// --- Wishlist ----------------------------------------------------------------

// ListWishlist returns the signed-in user's saved tours as wishlist items.
func (c *Client) ListWishlist(ctx context.Context, token string) ([]model.WishlistItem, error) {
	tours, err := callList[model.Tour](ctx, c, request{op: opListWishlist, method: http.MethodGet, path: "/api/wishlist/my-wishlist", token: token})
	if err != nil {
		return nil, err
	}
	items := make([]model.WishlistItem, 0, len(tours))
	for i := range tours {
		items = append(items, model.WishlistItemFromTour(&tours[i]))
	}
	return items, nil
}

// AddWishlist saves tourID to the signed-in user's wishlist.
func (c *Client) AddWishlist(ctx context.Context, tourID int64, token string) error {
	q := url.Values{"tourId": {strconv.FormatInt(tourID, 10)}}
	return c.call(ctx, request{op: opAddWishlist, method: http.MethodPost, path: "/api/wishlist/add-current", query: q, token: token}, nil)
}

// RemoveWishlist removes tourID from the signed-in user's wishlist.
func (c *Client) RemoveWishlist(ctx context.Context, tourID int64, token string) error {
	q := url.Values{"tourId": {strconv.FormatInt(tourID, 10)}}
	return c.call(ctx, request{op: opRemoveWishlist, method: http.MethodDelete, path: "/api/wishlist/remove-current", query: q, token: token}, nil)
}

// --- Bookings ----------------------------------------------------------------

// CreateBooking books a tour for the signed-in user.
func (c *Client) CreateBooking(ctx context.Context, in model.BookingRequest, token string) (*model.Booking, error) {
	var out model.Booking
	err := c.call(ctx, request{op: opCreateBooking, method: http.MethodPost, path: "/api/bookings", token: token, body: in}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// ListMyBookings returns the signed-in user's bookings.
func (c *Client) ListMyBookings(ctx context.Context, token string) ([]model.Booking, error) {
	return callList[model.Booking](ctx, c, request{op: opListMyBookings, method: http.MethodGet, path: "/api/bookings/my-bookings", token: token})
}

// ListAllBookings returns every booking. Requires an administrator token.
func (c *Client) ListAllBookings(ctx context.Context, token string) ([]model.Booking, error) {
	return callList[model.Booking](ctx, c, request{op: opListAllBookings, method: http.MethodGet, path: "/api/bookings", token: token})
}

// UpdateBookingStatus sets the payment status of booking id and returns the
// updated booking.
func (c *Client) UpdateBookingStatus(ctx context.Context, id int64, status model.PaymentStatus, token string) (*model.Booking, error) {
	q := url.Values{"status": {string(status)}}
	var out model.Booking
	err := c.call(ctx, request{op: opUpdateBookingStatus, method: http.MethodPut, path: idPath("/api/bookings", id) + "/status", query: q, token: token}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteBooking deletes booking id.
func (c *Client) DeleteBooking(ctx context.Context, id int64, token string) error {
	return c.call(ctx, request{op: opDeleteBooking, method: http.MethodDelete, path: idPath("/api/bookings", id), token: token}, nil)
}

// --- Reviews -----------------------------------------------------------------

// ListMyReviews returns the signed-in user's reviews.
func (c *Client) ListMyReviews(ctx context.Context, token string) ([]model.Review, error) {
	return callList[model.Review](ctx, c, request{op: opListMyReviews, method: http.MethodGet, path: "/api/reviews/my-reviews", token: token})
}

// CreateReview posts a review.
func (c *Client) CreateReview(ctx context.Context, in model.Review, token string) (*model.Review, error) {
	var out model.Review
	err := c.call(ctx, request{op: opCreateReview, method: http.MethodPost, path: "/api/reviews", token: token, body: in}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateReview replaces review id.
func (c *Client) UpdateReview(ctx context.Context, id int64, in model.Review, token string) (*model.Review, error) {
	var out model.Review
	err := c.call(ctx, request{op: opUpdateReview, method: http.MethodPut, path: idPath("/api/reviews", id), token: token, body: in}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteReview deletes review id.
func (c *Client) DeleteReview(ctx context.Context, id int64, token string) error {
	return c.call(ctx, request{op: opDeleteReview, method: http.MethodDelete, path: idPath("/api/reviews", id), token: token}, nil)
}
