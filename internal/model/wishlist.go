package model

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// WishlistItem is a saved tour. The display fields are captured when the
// item is added and do not follow later edits of the tour.
type WishlistItem struct {
	ID          int64   `json:"id"` // tour ID
	Title       string  `json:"title"`
	Price       float64 `json:"price"`
	Image       string  `json:"image"`
	Destination string  `json:"destination"`
	Duration    int     `json:"duration"`
}

// ContentHash returns a SHA-256 hex digest over the item's display fields.
func (w *WishlistItem) ContentHash() string {
	h := sha256.New()
	_, _ = fmt.Fprintf(h, "%d|%s|%g|%s|%s|%d",
		w.ID, w.Title, w.Price, w.Image, w.Destination, w.Duration)
	return hex.EncodeToString(h.Sum(nil))
}

// WishlistItemFromTour snapshots the display fields of t.
func WishlistItemFromTour(t *Tour) WishlistItem {
	return WishlistItem{
		ID:          t.ID,
		Title:       t.Title,
		Price:       t.Price,
		Image:       t.ImageRef(),
		Destination: t.Destination,
		Duration:    t.Duration,
	}
}

// Review is a user's review of a tour. Reviews are not cached; they are only
// exchanged with the remote API.
type Review struct {
	ID      int64  `json:"id,omitempty"`
	TourID  int64  `json:"tourId"`
	Rating  int    `json:"rating"`
	Comment string `json:"comment"`
}
