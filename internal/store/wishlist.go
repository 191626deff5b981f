package store

import (
	"context"
	"log/slog"

	"github.com/njoerd114/toursync/internal/model"
	"github.com/njoerd114/toursync/internal/remote"
)

// WishlistState is the wishlist cache, a set of items keyed by tour ID.
type WishlistState struct {
	Items []model.WishlistItem
	OpState

	fetchFence uint64
}

// Contains reports whether the tour with the given ID is wishlisted.
func (s WishlistState) Contains(tourID int64) bool {
	return indexOf(s.Items, tourID, wishlistKey) >= 0
}

// WishlistEvent is a transition of the wishlist cache.
type WishlistEvent interface{ wishlistEvent() }

type (
	WishlistOpStarted struct{}

	WishlistOpFailed struct {
		Seq     uint64
		Message string
	}

	// WishlistFetched replaces the whole cache with a fetched list.
	WishlistFetched struct {
		Seq   uint64
		Items []model.WishlistItem
	}

	// WishlistAddConfirmed resolves a backend add. The cache is not touched;
	// the item shows up with the next fetch.
	WishlistAddConfirmed struct{ TourID int64 }

	// WishlistRemoveConfirmed resolves a backend remove and drops the item.
	WishlistRemoveConfirmed struct{ TourID int64 }

	WishlistItemAdded    struct{ Item model.WishlistItem }
	WishlistItemRemoved  struct{ TourID int64 }
	WishlistCleared      struct{}
	WishlistSet          struct{ Items []model.WishlistItem }
	WishlistErrorCleared struct{}
)

func (WishlistOpStarted) wishlistEvent()       {}
func (WishlistOpFailed) wishlistEvent()        {}
func (WishlistFetched) wishlistEvent()         {}
func (WishlistAddConfirmed) wishlistEvent()    {}
func (WishlistRemoveConfirmed) wishlistEvent() {}
func (WishlistItemAdded) wishlistEvent()       {}
func (WishlistItemRemoved) wishlistEvent()     {}
func (WishlistCleared) wishlistEvent()         {}
func (WishlistSet) wishlistEvent()             {}
func (WishlistErrorCleared) wishlistEvent()    {}

// ReduceWishlist returns the wishlist state that follows ev. s is not
// modified.
func ReduceWishlist(s WishlistState, ev WishlistEvent) WishlistState {
	switch e := ev.(type) {
	case WishlistOpStarted:
		s.OpState = s.started()

	case WishlistOpFailed:
		if !admits(s.fetchFence, e.Seq) {
			s.OpState = s.superseded()
			break
		}
		s.fetchFence = advance(s.fetchFence, e.Seq)
		s.OpState = s.rejected(e.Message)

	case WishlistFetched:
		if !admits(s.fetchFence, e.Seq) {
			s.OpState = s.superseded()
			break
		}
		s.fetchFence = advance(s.fetchFence, e.Seq)
		s.Items = dedupe(e.Items)
		s.OpState = s.fulfilled()

	case WishlistAddConfirmed:
		s.OpState = s.fulfilled()

	case WishlistRemoveConfirmed:
		s.Items = without(s.Items, e.TourID, wishlistKey)
		s.OpState = s.fulfilled()

	case WishlistItemAdded:
		if !s.Contains(e.Item.ID) {
			s.Items = appended(s.Items, e.Item)
		}

	case WishlistItemRemoved:
		s.Items = without(s.Items, e.TourID, wishlistKey)

	case WishlistCleared:
		s.Items = []model.WishlistItem{}

	case WishlistSet:
		s.Items = dedupe(e.Items)

	case WishlistErrorCleared:
		s.Error = ""
	}
	return s
}

// dedupe copies items, keeping the first entry per tour ID.
func dedupe(items []model.WishlistItem) []model.WishlistItem {
	out := make([]model.WishlistItem, 0, len(items))
	for _, it := range items {
		if indexOf(out, it.ID, wishlistKey) < 0 {
			out = append(out, it)
		}
	}
	return out
}

// Wishlist is the wishlist store handle. Create one with [NewWishlist].
//
// Two mutation paths coexist. AddLocal and RemoveLocal change the cache
// immediately and never touch the network. The Backend methods call the
// server first; AddToBackend leaves the cache alone on success while
// RemoveFromBackend also drops the item locally.
type Wishlist struct {
	api WishlistAPI
	log *slog.Logger
	h   handle[WishlistState, WishlistEvent]
}

// NewWishlist creates an empty wishlist store backed by api.
func NewWishlist(api WishlistAPI, logger *slog.Logger) *Wishlist {
	w := &Wishlist{api: api, log: logger}
	w.h.reduce = ReduceWishlist
	w.h.clone = func(s WishlistState) WishlistState {
		s.Items = cloneList(s.Items)
		return s
	}
	return w
}

// State returns a copy of the current state.
func (w *Wishlist) State() WishlistState {
	return w.h.current()
}

// Subscribe registers fn to receive a copy of the state after every
// transition. See [Tours.Subscribe].
func (w *Wishlist) Subscribe(fn func(WishlistState)) (cancel func()) {
	return w.h.subs.add(fn)
}

// Dispatch applies an arbitrary event.
func (w *Wishlist) Dispatch(ev WishlistEvent) WishlistState {
	return w.h.dispatch(ev)
}

// Contains reports whether the tour is currently wishlisted.
func (w *Wishlist) Contains(tourID int64) bool {
	return w.h.current().Contains(tourID)
}

// AddLocal inserts item unless an item with the same ID is already present.
func (w *Wishlist) AddLocal(item model.WishlistItem) {
	w.h.dispatch(WishlistItemAdded{Item: item})
}

// RemoveLocal drops the item with the given tour ID, if any.
func (w *Wishlist) RemoveLocal(tourID int64) {
	w.h.dispatch(WishlistItemRemoved{TourID: tourID})
}

// Clear empties the cache.
func (w *Wishlist) Clear() { w.h.dispatch(WishlistCleared{}) }

// Set replaces the cache without a remote call.
func (w *Wishlist) Set(items []model.WishlistItem) { w.h.dispatch(WishlistSet{Items: items}) }

// ClearError clears the recorded failure message.
func (w *Wishlist) ClearError() { w.h.dispatch(WishlistErrorCleared{}) }

// FetchFromBackend replaces the cache with the server's wishlist.
func (w *Wishlist) FetchFromBackend(ctx context.Context, token string) error {
	seq := w.h.begin(WishlistOpStarted{})
	items, err := w.api.ListWishlist(ctx, token)
	if err != nil {
		w.log.Debug("wishlist fetch failed", "error", err)
		w.h.dispatch(WishlistOpFailed{Seq: seq, Message: remote.Message(err)})
		return err
	}
	w.h.dispatch(WishlistFetched{Seq: seq, Items: items})
	return nil
}

// AddToBackend adds the tour to the server-side wishlist. The local cache is
// not updated; call FetchFromBackend to pick up the new entry.
func (w *Wishlist) AddToBackend(ctx context.Context, tourID int64, token string) error {
	w.h.dispatch(WishlistOpStarted{})
	if err := w.api.AddWishlist(ctx, tourID, token); err != nil {
		w.h.dispatch(WishlistOpFailed{Message: remote.Message(err)})
		return err
	}
	w.h.dispatch(WishlistAddConfirmed{TourID: tourID})
	return nil
}

// RemoveFromBackend removes the tour from the server-side wishlist and, on
// success, from the local cache.
func (w *Wishlist) RemoveFromBackend(ctx context.Context, tourID int64, token string) error {
	w.h.dispatch(WishlistOpStarted{})
	if err := w.api.RemoveWishlist(ctx, tourID, token); err != nil {
		w.h.dispatch(WishlistOpFailed{Message: remote.Message(err)})
		return err
	}
	w.h.dispatch(WishlistRemoveConfirmed{TourID: tourID})
	return nil
}
