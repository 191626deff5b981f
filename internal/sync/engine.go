package sync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/njoerd114/toursync/internal/model"
	"github.com/njoerd114/toursync/internal/remote"
	"github.com/njoerd114/toursync/internal/snapshot"
	"github.com/njoerd114/toursync/internal/store"
)

const (
	otelScope      = "toursync/sync"
	spanRefresh    = "sync.refresh"
	metricFetches  = "toursync.sync.fetches"
	metricFailures = "toursync.sync.failures"
	metricChanged  = "toursync.sync.entries.changed"

	attrStore = "store"
)

// Cache names used in logs, span attributes, and metric attributes.
const (
	CacheTours        = "tours"
	CacheWishlist     = "wishlist"
	CacheUserBookings = "user_bookings"
	CacheAllBookings  = "all_bookings"
)

// Stats summarizes one refresh pass.
type Stats struct {
	Fetched int            // caches refreshed successfully
	Failed  int            // caches whose refresh failed after retries
	Changed map[string]int // entries added, removed, or modified, per cache
	Skipped []string       // caches not refreshed (no token, or not an admin)
}

// TotalChanged sums Changed over all caches.
func (s Stats) TotalChanged() int {
	var n int
	for _, c := range s.Changed {
		n += c
	}
	return n
}

// Engine refreshes the caches on a fixed interval. Create one with
// [NewEngine] and start it with [Engine.Run].
type Engine struct {
	stores       Stores
	snap         SnapshotStore
	token        string
	session      *remote.Session
	pollInterval time.Duration
	attempts     int
	log          *slog.Logger
	now          func() time.Time

	// OTel instruments, always non-nil (no-op when telemetry is disabled).
	tracer      trace.Tracer
	cntFetches  metric.Int64Counter
	cntFailures metric.Int64Counter
	cntChanged  metric.Int64Counter
}

// NewEngine creates an Engine. snap may be nil, in which case nothing is
// persisted. An empty token restricts refreshes to the public tour list; a
// token whose claims carry the admin role also refreshes the all-bookings
// view.
func NewEngine(stores Stores, snap SnapshotStore, token string, pollInterval time.Duration, logger *slog.Logger) *Engine {
	tracer := otel.Tracer(otelScope)
	meter := otel.Meter(otelScope)

	mustCounter := func(name, desc string) metric.Int64Counter {
		c, err := meter.Int64Counter(name, metric.WithDescription(desc))
		if err != nil {
			logger.Error("creating OTel counter", "name", name, "error", err)
			return noop.Int64Counter{}
		}
		return c
	}

	e := &Engine{
		stores:       stores,
		snap:         snap,
		token:        token,
		pollInterval: pollInterval,
		attempts:     defaultMaxAttempts,
		log:          logger,
		now:          time.Now,

		tracer:      tracer,
		cntFetches:  mustCounter(metricFetches, "Number of successful cache refreshes"),
		cntFailures: mustCounter(metricFailures, "Number of cache refreshes that failed after retries"),
		cntChanged:  mustCounter(metricChanged, "Number of cache entries added, removed, or modified by a refresh"),
	}

	if token != "" {
		s, err := remote.ParseSession(token)
		if err != nil {
			logger.Warn("token is not a readable JWT, admin views disabled", "error", err)
		} else {
			e.session = s
		}
	}
	return e
}

// Session returns the decoded token claims, or nil when no readable token was
// configured.
func (e *Engine) Session() *remote.Session { return e.session }

// signedIn reports whether the engine acts for an account: a token is
// configured and its exp claim, if readable, has not passed.
func (e *Engine) signedIn() bool {
	if e.token == "" {
		return false
	}
	return e.session == nil || !e.session.Expired(e.now())
}

// Account identifies the account the private views belong to, or "" when
// the engine is signed out.
func (e *Engine) Account() string {
	if !e.signedIn() {
		return ""
	}
	return remote.AccountID(e.token)
}

// refresh is one cache refresh within a pass.
type refresh struct {
	name   string
	fetch  func(ctx context.Context) error
	hashes func() map[int64]string
}

func (e *Engine) plan() (refreshes []refresh, skipped []string) {
	refreshes = append(refreshes, refresh{
		name:   CacheTours,
		fetch:  e.stores.Tours.FetchAll,
		hashes: e.tourHashes,
	})

	if e.token != "" && !e.signedIn() {
		e.log.Warn("token has expired, run setup to sign in again", "expired_at", e.session.ExpiresAt)
	}
	if !e.signedIn() {
		return refreshes, []string{CacheWishlist, CacheUserBookings, CacheAllBookings}
	}

	refreshes = append(refreshes,
		refresh{
			name:   CacheWishlist,
			fetch:  func(ctx context.Context) error { return e.stores.Wishlist.FetchFromBackend(ctx, e.token) },
			hashes: e.wishlistHashes,
		},
		refresh{
			name:   CacheUserBookings,
			fetch:  func(ctx context.Context) error { return e.stores.Bookings.FetchUserBookingsFromBackend(ctx, e.token) },
			hashes: e.userBookingHashes,
		},
	)
	if e.session == nil || !e.session.IsAdmin() {
		return refreshes, []string{CacheAllBookings}
	}
	refreshes = append(refreshes, refresh{
		name:   CacheAllBookings,
		fetch:  func(ctx context.Context) error { return e.stores.Bookings.FetchAllFromBackend(ctx, e.token) },
		hashes: e.allBookingHashes,
	})
	return refreshes, nil
}

// RunOnce performs a single refresh pass and returns. Caches are refreshed
// concurrently; a failure in one does not stop the others. The returned error
// joins every cache's final failure.
func (e *Engine) RunOnce(ctx context.Context) (Stats, error) {
	ctx, span := e.tracer.Start(ctx, spanRefresh)
	defer span.End()

	refreshes, skipped := e.plan()
	stats := Stats{Changed: make(map[string]int, len(refreshes)), Skipped: skipped}

	var (
		mu   sync.Mutex
		errs []error
		g    errgroup.Group
	)
	for _, r := range refreshes {
		g.Go(func() error {
			before := r.hashes()
			err := Retry(ctx, e.attempts, func() error { return r.fetch(ctx) })
			attrs := metric.WithAttributes(attribute.String(attrStore, r.name))

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				stats.Failed++
				errs = append(errs, fmt.Errorf("refreshing %s: %w", r.name, err))
				e.cntFailures.Add(ctx, 1, attrs)
				e.log.Error("refresh failed", "store", r.name, "error", remote.Message(err))
				return nil
			}
			changed := diffHashes(before, r.hashes())
			stats.Fetched++
			stats.Changed[r.name] = changed
			e.cntFetches.Add(ctx, 1, attrs)
			if changed > 0 {
				e.cntChanged.Add(ctx, int64(changed), attrs)
			}
			e.log.Debug("refreshed", "store", r.name, "changed", changed)
			return nil
		})
	}
	_ = g.Wait()

	if stats.Fetched > 0 {
		if err := e.Persist(ctx); err != nil {
			errs = append(errs, err)
		}
	}

	span.SetAttributes(
		attribute.Int("sync.fetched", stats.Fetched),
		attribute.Int("sync.failed", stats.Failed),
		attribute.Int("sync.changed", stats.TotalChanged()),
	)
	err := errors.Join(errs...)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "refresh incomplete")
	}
	return stats, err
}

// Run performs an immediate pass, then one pass per poll interval. It blocks
// until ctx is cancelled.
func (e *Engine) Run(ctx context.Context) error {
	ticker := time.NewTicker(e.pollInterval)
	defer ticker.Stop()

	unwatch := e.watch()
	defer unwatch()

	e.pass(ctx, "initial refresh")
	for {
		select {
		case <-ctx.Done():
			e.log.Info("sync engine shutting down")
			return ctx.Err()
		case <-ticker.C:
			e.pass(ctx, "refresh")
		}
	}
}

func (e *Engine) pass(ctx context.Context, what string) {
	stats, err := e.RunOnce(ctx)
	if err != nil && ctx.Err() == nil {
		e.log.Error(what+" incomplete", "fetched", stats.Fetched, "failed", stats.Failed, "error", err)
		return
	}
	if n := stats.TotalChanged(); n > 0 {
		e.log.Info(what+" applied changes", "changed", n)
	}
}

// watch subscribes to the stores and logs failed operations and movements
// of the paid revenue total, including those caused outside a refresh pass.
// The returned function removes the subscriptions.
func (e *Engine) watch() (cancel func()) {
	var (
		tourOps, wishlistOps, bookingOps opWatch
		revenue                          = e.stores.Bookings.State().TotalRevenue
	)
	cancels := []func(){
		e.stores.Tours.Subscribe(func(s store.TourState) {
			tourOps.observe(e.log, CacheTours, s.OpState)
		}),
		e.stores.Wishlist.Subscribe(func(s store.WishlistState) {
			wishlistOps.observe(e.log, CacheWishlist, s.OpState)
		}),
		e.stores.Bookings.Subscribe(func(s store.BookingState) {
			bookingOps.observe(e.log, "bookings", s.OpState)
			if s.TotalRevenue != revenue {
				e.log.Info("paid revenue changed", "from", revenue, "to", s.TotalRevenue)
				revenue = s.TotalRevenue
			}
		}),
	}
	return func() {
		for _, c := range cancels {
			c()
		}
	}
}

// opWatch remembers the last operation status seen for one store.
type opWatch struct{ last store.Status }

func (w *opWatch) observe(log *slog.Logger, name string, op store.OpState) {
	if op.LastOp == store.StatusRejected && w.last != store.StatusRejected {
		log.Debug("store operation rejected", "store", name, "error", op.Error)
	}
	w.last = op.LastOp
}

// Persist saves the current cache contents to the snapshot store. It is a
// no-op when the engine has none.
func (e *Engine) Persist(ctx context.Context) error {
	if e.snap == nil {
		return nil
	}
	if err := e.snap.Save(ctx, e.capture()); err != nil {
		return fmt.Errorf("saving snapshot: %w", err)
	}
	return nil
}

// capture builds a snapshot of the current cache contents. Signed out, only
// the public tour list is kept.
func (e *Engine) capture() *snapshot.Snapshot {
	snap := &snapshot.Snapshot{
		Tours:   e.stores.Tours.State().Tours,
		Account: e.Account(),
		SavedAt: e.now(),
	}
	if !e.signedIn() {
		return snap
	}
	bs := e.stores.Bookings.State()
	snap.Bookings = bs.Bookings
	snap.UserBookings = bs.UserBookings
	snap.Wishlist = e.stores.Wishlist.State().Items
	snap.TotalRevenue = bs.TotalRevenue
	return snap
}

func (e *Engine) tourHashes() map[int64]string {
	tours := e.stores.Tours.State().Tours
	m := make(map[int64]string, len(tours))
	for i := range tours {
		m[tours[i].ID] = tours[i].ContentHash()
	}
	return m
}

func (e *Engine) wishlistHashes() map[int64]string {
	items := e.stores.Wishlist.State().Items
	m := make(map[int64]string, len(items))
	for i := range items {
		m[items[i].ID] = items[i].ContentHash()
	}
	return m
}

func (e *Engine) userBookingHashes() map[int64]string {
	return bookingHashes(e.stores.Bookings.State().UserBookings)
}

func (e *Engine) allBookingHashes() map[int64]string {
	return bookingHashes(e.stores.Bookings.State().Bookings)
}

func bookingHashes(list []model.Booking) map[int64]string {
	m := make(map[int64]string, len(list))
	for i := range list {
		m[list[i].ID] = list[i].ContentHash()
	}
	return m
}

// diffHashes counts IDs that were added, removed, or whose hash changed.
func diffHashes(before, after map[int64]string) int {
	n := 0
	for id, h := range after {
		if prev, ok := before[id]; !ok || prev != h {
			n++
		}
	}
	for id := range before {
		if _, ok := after[id]; !ok {
			n++
		}
	}
	return n
}
