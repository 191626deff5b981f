// Package model defines the entity types mirrored by the local caches: tours,
// bookings, wishlist items, and the payloads exchanged with the remote API.
package model

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

// placeholderImage is shown for tours the server returned without any image.
const placeholderImage = "https://via.placeholder.com/960x480?text=Tour"

// Difficulty grades how demanding a tour is.
type Difficulty string

const (
	DifficultyEasy      Difficulty = "easy"
	DifficultyModerate  Difficulty = "moderate"
	DifficultyDifficult Difficulty = "difficult"
)

// Valid reports whether d is one of the known difficulty levels.
func (d Difficulty) Valid() bool {
	switch d {
	case DifficultyEasy, DifficultyModerate, DifficultyDifficult:
		return true
	default:
		return false
	}
}

// Tour is a tour listing as returned by the remote API. The cache never
// originates a tour ID; tours are created and edited by administrators on
// the server.
type Tour struct {
	ID           int64      `json:"id"`
	Title        string     `json:"title"`
	Destination  string     `json:"destination"`
	Price        float64    `json:"price"`
	Duration     int        `json:"duration"` // days
	MaxGroupSize int        `json:"maxGroupSize"`
	Category     string     `json:"category"`
	Difficulty   Difficulty `json:"difficulty"`
	Rating       float64    `json:"rating"`
	ReviewCount  int        `json:"reviewCount"`
	Description  string     `json:"description"`
	Included     []string   `json:"included,omitempty"`

	// The server has used three different field names for the picture over
	// time; ImageRef picks whichever is set.
	Image     string `json:"image,omitempty"`
	ImageURL  string `json:"imageUrl,omitempty"`
	TourImage string `json:"tourImage,omitempty"`
}

// ImageRef returns the tour's picture reference, falling back to a
// placeholder when none is set.
func (t *Tour) ImageRef() string {
	for _, s := range []string{t.TourImage, t.ImageURL, t.Image} {
		if s != "" {
			return s
		}
	}
	return placeholderImage
}

// Matches reports whether the tour passes a free-text query (title or
// destination, case-insensitive) and an optional category filter.
func (t *Tour) Matches(query, category string) bool {
	if category != "" && !strings.EqualFold(t.Category, category) {
		return false
	}
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return true
	}
	return strings.Contains(strings.ToLower(t.Title), q) ||
		strings.Contains(strings.ToLower(t.Destination), q)
}

// ContentHash returns a SHA-256 hex digest over the fields a user can see.
// Two tours with the same hash render identically.
func (t *Tour) ContentHash() string {
	h := sha256.New()
	_, _ = fmt.Fprintf(h, "%d|%s|%s|%g|%d|%d|%s|%s|%g|%d|%s|%s|%s",
		t.ID, t.Title, t.Destination, t.Price, t.Duration, t.MaxGroupSize,
		t.Category, t.Difficulty, t.Rating, t.ReviewCount, t.Description,
		strings.Join(t.Included, "\x1f"), t.ImageRef())
	return hex.EncodeToString(h.Sum(nil))
}
