package store

import (
	"context"
	"log/slog"

	"github.com/njoerd114/toursync/internal/model"
	"github.com/njoerd114/toursync/internal/remote"
)

// TourState is the tour cache.
type TourState struct {
	Tours            []model.Tour
	SearchQuery      string
	SelectedCategory string
	OpState

	listFence uint64
}

// Filtered returns the cached tours matching the search query and category.
func (s TourState) Filtered() []model.Tour {
	out := make([]model.Tour, 0, len(s.Tours))
	for i := range s.Tours {
		if s.Tours[i].Matches(s.SearchQuery, s.SelectedCategory) {
			out = append(out, s.Tours[i])
		}
	}
	return out
}

// Find returns the cached tour with the given ID.
func (s TourState) Find(id int64) (model.Tour, bool) {
	if i := indexOf(s.Tours, id, tourKey); i >= 0 {
		return s.Tours[i], true
	}
	return model.Tour{}, false
}

// TourEvent is a transition of the tour cache.
type TourEvent interface{ tourEvent() }

type (
	// TourOpStarted marks the start of a remote operation.
	TourOpStarted struct{}

	// TourOpFailed rejects an operation. Seq is the fence of a list fetch,
	// or 0 for operations that are not fenced.
	TourOpFailed struct {
		Seq     uint64
		Message string
	}

	// ToursFetched fulfils a list fetch by replacing the whole cache.
	ToursFetched struct {
		Seq   uint64
		Tours []model.Tour
	}

	// TourFetched fulfils a single-tour fetch by upserting the result.
	TourFetched struct{ Tour model.Tour }

	// TourCreated, TourSaved, and TourRemoved fulfil confirmed admin actions.
	TourCreated struct{ Tour model.Tour }
	TourSaved   struct{ Tour model.Tour }
	TourRemoved struct{ ID int64 }

	// Local mutations, applied without an operation in flight.
	ToursSet         struct{ Tours []model.Tour }
	TourAdded        struct{ Tour model.Tour }
	TourUpdated      struct{ Tour model.Tour }
	TourDeleted      struct{ ID int64 }
	SearchQuerySet   struct{ Query string }
	CategorySelected struct{ Category string }
	TourErrorCleared struct{}
)

func (TourOpStarted) tourEvent()    {}
func (TourOpFailed) tourEvent()     {}
func (ToursFetched) tourEvent()     {}
func (TourFetched) tourEvent()      {}
func (TourCreated) tourEvent()      {}
func (TourSaved) tourEvent()        {}
func (TourRemoved) tourEvent()      {}
func (ToursSet) tourEvent()         {}
func (TourAdded) tourEvent()        {}
func (TourUpdated) tourEvent()      {}
func (TourDeleted) tourEvent()      {}
func (SearchQuerySet) tourEvent()   {}
func (CategorySelected) tourEvent() {}
func (TourErrorCleared) tourEvent() {}

// ReduceTours returns the tour state that follows ev. s is not modified.
func ReduceTours(s TourState, ev TourEvent) TourState {
	switch e := ev.(type) {
	case TourOpStarted:
		s.OpState = s.started()

	case TourOpFailed:
		if !admits(s.listFence, e.Seq) {
			s.OpState = s.superseded()
			break
		}
		s.listFence = advance(s.listFence, e.Seq)
		s.OpState = s.rejected(e.Message)

	case ToursFetched:
		if !admits(s.listFence, e.Seq) {
			s.OpState = s.superseded()
			break
		}
		s.listFence = advance(s.listFence, e.Seq)
		s.Tours = cloneList(e.Tours)
		s.OpState = s.fulfilled()

	case TourFetched:
		s.Tours = upsert(s.Tours, e.Tour, tourKey)
		s.OpState = s.fulfilled()

	case TourCreated:
		s.Tours = appended(s.Tours, e.Tour)
		s.OpState = s.fulfilled()

	case TourSaved:
		s.Tours, _ = replace(s.Tours, e.Tour, tourKey)
		s.OpState = s.fulfilled()

	case TourRemoved:
		s.Tours = without(s.Tours, e.ID, tourKey)
		s.OpState = s.fulfilled()

	case ToursSet:
		s.Tours = cloneList(e.Tours)

	case TourAdded:
		s.Tours = appended(s.Tours, e.Tour)

	case TourUpdated:
		s.Tours, _ = replace(s.Tours, e.Tour, tourKey)

	case TourDeleted:
		s.Tours = without(s.Tours, e.ID, tourKey)

	case SearchQuerySet:
		s.SearchQuery = e.Query

	case CategorySelected:
		s.SelectedCategory = e.Category

	case TourErrorCleared:
		s.Error = ""
	}
	return s
}

// Tours is the tour store handle. Create one with [NewTours].
type Tours struct {
	api TourAPI
	log *slog.Logger
	h   handle[TourState, TourEvent]
}

// NewTours creates an empty tour store backed by api.
func NewTours(api TourAPI, logger *slog.Logger) *Tours {
	t := &Tours{api: api, log: logger}
	t.h.reduce = ReduceTours
	t.h.clone = func(s TourState) TourState {
		s.Tours = cloneList(s.Tours)
		return s
	}
	return t
}

// State returns a copy of the current state.
func (t *Tours) State() TourState {
	return t.h.current()
}

// Subscribe registers fn to receive a copy of the state after every
// transition, in transition order. fn runs on a dispatching goroutine outside
// the store's lock; a dispatch made from fn is delivered after fn returns.
// The returned function removes the subscription.
func (t *Tours) Subscribe(fn func(TourState)) (cancel func()) {
	return t.h.subs.add(fn)
}

// Dispatch applies an arbitrary event. It is the escape hatch for consumers
// that compose their own transitions; the named methods cover normal use.
func (t *Tours) Dispatch(ev TourEvent) TourState {
	return t.h.dispatch(ev)
}

// FetchAll replaces the cache with the server's tour list. On failure the
// cache is left untouched and the error message is recorded.
func (t *Tours) FetchAll(ctx context.Context) error {
	seq := t.h.begin(TourOpStarted{})
	tours, err := t.api.ListTours(ctx)
	if err != nil {
		t.log.Debug("tour list fetch failed", "error", err)
		t.h.dispatch(TourOpFailed{Seq: seq, Message: remote.Message(err)})
		return err
	}
	t.h.dispatch(ToursFetched{Seq: seq, Tours: tours})
	return nil
}

// FetchByID fetches a single tour and upserts it: an existing entry with the
// same ID is replaced in place, otherwise the tour is appended.
func (t *Tours) FetchByID(ctx context.Context, id int64) (*model.Tour, error) {
	t.h.dispatch(TourOpStarted{})
	tour, err := t.api.GetTour(ctx, id)
	if err != nil {
		t.h.dispatch(TourOpFailed{Message: remote.Message(err)})
		return nil, err
	}
	t.h.dispatch(TourFetched{Tour: *tour})
	return tour, nil
}

// Create creates a tour on the server and, once confirmed, appends it.
func (t *Tours) Create(ctx context.Context, tour model.Tour, token string) (*model.Tour, error) {
	t.h.dispatch(TourOpStarted{})
	created, err := t.api.CreateTour(ctx, tour, token)
	if err != nil {
		t.h.dispatch(TourOpFailed{Message: remote.Message(err)})
		return nil, err
	}
	t.h.dispatch(TourCreated{Tour: *created})
	return created, nil
}

// Save updates a tour on the server and, once confirmed, replaces the cached
// entry.
func (t *Tours) Save(ctx context.Context, tour model.Tour, token string) (*model.Tour, error) {
	t.h.dispatch(TourOpStarted{})
	saved, err := t.api.UpdateTour(ctx, tour, token)
	if err != nil {
		t.h.dispatch(TourOpFailed{Message: remote.Message(err)})
		return nil, err
	}
	t.h.dispatch(TourSaved{Tour: *saved})
	return saved, nil
}

// Remove deletes a tour on the server and, once confirmed, drops it from the
// cache. Bookings that reference the tour are left alone.
func (t *Tours) Remove(ctx context.Context, id int64, token string) error {
	t.h.dispatch(TourOpStarted{})
	if err := t.api.DeleteTour(ctx, id, token); err != nil {
		t.h.dispatch(TourOpFailed{Message: remote.Message(err)})
		return err
	}
	t.h.dispatch(TourRemoved{ID: id})
	return nil
}

// Set replaces the cache without a remote call.
func (t *Tours) Set(tours []model.Tour) { t.h.dispatch(ToursSet{Tours: tours}) }

// Add appends a tour the server already confirmed.
func (t *Tours) Add(tour model.Tour) { t.h.dispatch(TourAdded{Tour: tour}) }

// Update replaces the cached tour with the same ID; absent IDs are ignored.
func (t *Tours) Update(tour model.Tour) { t.h.dispatch(TourUpdated{Tour: tour}) }

// Delete drops the cached tour with the given ID.
func (t *Tours) Delete(id int64) { t.h.dispatch(TourDeleted{ID: id}) }

// SetSearchQuery sets the free-text filter used by [TourState.Filtered].
func (t *Tours) SetSearchQuery(q string) { t.h.dispatch(SearchQuerySet{Query: q}) }

// SetCategory sets the category filter used by [TourState.Filtered].
func (t *Tours) SetCategory(c string) { t.h.dispatch(CategorySelected{Category: c}) }

// ClearError clears the recorded failure message.
func (t *Tours) ClearError() { t.h.dispatch(TourErrorCleared{}) }
