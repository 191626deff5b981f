// Package snapshot persists the last reconciled contents of the tour,
// booking, and wishlist caches in SQLite so a fresh process can show data
// before its first fetch completes.
//
// Only this package may open or query the database. All other packages receive
// a [*Store] and call its methods.
package snapshot

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite driver

	"github.com/njoerd114/toursync/internal/model"
)

const schema = `
CREATE TABLE IF NOT EXISTS tours (
    position INTEGER PRIMARY KEY,
    id       INTEGER NOT NULL,
    payload  TEXT    NOT NULL
);

CREATE TABLE IF NOT EXISTS bookings (
    view     TEXT    NOT NULL,
    position INTEGER NOT NULL,
    id       INTEGER NOT NULL,
    payload  TEXT    NOT NULL,
    PRIMARY KEY (view, position)
);

CREATE TABLE IF NOT EXISTS wishlist_items (
    position INTEGER PRIMARY KEY,
    id       INTEGER NOT NULL,
    payload  TEXT    NOT NULL
);

CREATE TABLE IF NOT EXISTS meta (
    key   TEXT PRIMARY KEY,
    value TEXT NOT NULL
);
`

// Booking views stored in the bookings table.
const (
	viewAll  = "all"
	viewMine = "mine"
)

const (
	metaRevenue = "total_revenue"
	metaSavedAt = "saved_at"
	metaAccount = "account"
)

// Snapshot is the persisted contents of all caches. Entries keep the order
// they had in their store.
type Snapshot struct {
	Tours        []model.Tour
	Bookings     []model.Booking // admin view
	UserBookings []model.Booking
	Wishlist     []model.WishlistItem

	// TotalRevenue is informational. Hydration recomputes the aggregate from
	// Bookings.
	TotalRevenue float64

	// Account identifies the session the private views (wishlist and both
	// booking views) were fetched for. Empty when they were saved signed out.
	Account string

	SavedAt time.Time
}

// Store is the SQLite-backed snapshot repository.
type Store struct {
	db *sql.DB
}

// DefaultDBPath returns the default path for the cache database:
// ~/.local/share/toursync/cache.db
func DefaultDBPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolving home directory: %w", err)
	}
	return filepath.Join(home, ".local", "share", "toursync", "cache.db"), nil
}

// Open opens (or creates) the SQLite database at path, applies the schema, and
// configures WAL mode.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("creating cache directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("opening database %q: %w", path, err)
	}

	// Single writer to avoid SQLITE_BUSY under WAL.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("applying schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close releases the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Save replaces the stored snapshot with snap in a single transaction.
func (s *Store) Save(ctx context.Context, snap *Snapshot) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	for _, table := range []string{"tours", "bookings", "wishlist_items", "meta"} {
		if _, err = tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("clearing %s: %w", table, err)
		}
	}

	if err = insertRows(ctx, tx, `INSERT INTO tours (position, id, payload) VALUES (?, ?, ?)`,
		snap.Tours, func(t *model.Tour) int64 { return t.ID }); err != nil {
		return fmt.Errorf("saving tours: %w", err)
	}
	bookingID := func(b *model.Booking) int64 { return b.ID }
	if err = insertRows(ctx, tx, `INSERT INTO bookings (view, position, id, payload) VALUES ('`+viewAll+`', ?, ?, ?)`,
		snap.Bookings, bookingID); err != nil {
		return fmt.Errorf("saving bookings: %w", err)
	}
	if err = insertRows(ctx, tx, `INSERT INTO bookings (view, position, id, payload) VALUES ('`+viewMine+`', ?, ?, ?)`,
		snap.UserBookings, bookingID); err != nil {
		return fmt.Errorf("saving user bookings: %w", err)
	}
	if err = insertRows(ctx, tx, `INSERT INTO wishlist_items (position, id, payload) VALUES (?, ?, ?)`,
		snap.Wishlist, func(w *model.WishlistItem) int64 { return w.ID }); err != nil {
		return fmt.Errorf("saving wishlist: %w", err)
	}

	savedAt := snap.SavedAt
	if savedAt.IsZero() {
		savedAt = time.Now()
	}
	meta := map[string]string{
		metaRevenue: strconv.FormatFloat(snap.TotalRevenue, 'f', -1, 64),
		metaSavedAt: savedAt.UTC().Format(time.RFC3339Nano),
		metaAccount: snap.Account,
	}
	for k, v := range meta {
		if _, err = tx.ExecContext(ctx, `INSERT INTO meta (key, value) VALUES (?, ?)`, k, v); err != nil {
			return fmt.Errorf("saving %s: %w", k, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("committing snapshot: %w", err)
	}
	return nil
}

// Load returns the stored snapshot. An empty database yields an empty
// snapshot with a zero SavedAt.
func (s *Store) Load(ctx context.Context) (*Snapshot, error) {
	var (
		snap Snapshot
		err  error
	)
	if snap.Tours, err = queryRows[model.Tour](ctx, s.db,
		`SELECT payload FROM tours ORDER BY position`); err != nil {
		return nil, fmt.Errorf("loading tours: %w", err)
	}
	if snap.Bookings, err = queryRows[model.Booking](ctx, s.db,
		`SELECT payload FROM bookings WHERE view = ? ORDER BY position`, viewAll); err != nil {
		return nil, fmt.Errorf("loading bookings: %w", err)
	}
	if snap.UserBookings, err = queryRows[model.Booking](ctx, s.db,
		`SELECT payload FROM bookings WHERE view = ? ORDER BY position`, viewMine); err != nil {
		return nil, fmt.Errorf("loading user bookings: %w", err)
	}
	if snap.Wishlist, err = queryRows[model.WishlistItem](ctx, s.db,
		`SELECT payload FROM wishlist_items ORDER BY position`); err != nil {
		return nil, fmt.Errorf("loading wishlist: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `SELECT key, value FROM meta`)
	if err != nil {
		return nil, fmt.Errorf("loading meta: %w", err)
	}
	defer func() { _ = rows.Close() }()
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, fmt.Errorf("scanning meta row: %w", err)
		}
		switch k {
		case metaRevenue:
			snap.TotalRevenue, _ = strconv.ParseFloat(v, 64)
		case metaSavedAt:
			snap.SavedAt, _ = time.Parse(time.RFC3339Nano, v)
		case metaAccount:
			snap.Account = v
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("loading meta: %w", err)
	}
	return &snap, nil
}

// ClearPrivate drops the wishlist, both booking views, and the revenue total,
// keeping the public tour list. Used when the configured account changes.
func (s *Store) ClearPrivate(ctx context.Context) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	for _, q := range []string{
		`DELETE FROM bookings`,
		`DELETE FROM wishlist_items`,
		`UPDATE meta SET value = '0' WHERE key = '` + metaRevenue + `'`,
		`UPDATE meta SET value = '' WHERE key = '` + metaAccount + `'`,
	} {
		if _, err = tx.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("clearing private views: %w", err)
		}
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("committing clear: %w", err)
	}
	return nil
}

// IsEmpty reports whether no snapshot has been saved yet.
func (s *Store) IsEmpty(ctx context.Context) (bool, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM meta WHERE key = ?`, metaSavedAt).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("checking if snapshot is empty: %w", err)
	}
	return count == 0, nil
}

// --- helpers -----------------------------------------------------------------

func insertRows[T any](ctx context.Context, tx *sql.Tx, q string, items []T, id func(*T) int64) error {
	if len(items) == 0 {
		return nil
	}
	stmt, err := tx.PrepareContext(ctx, q)
	if err != nil {
		return err
	}
	defer func() { _ = stmt.Close() }()

	for i := range items {
		payload, err := json.Marshal(&items[i])
		if err != nil {
			return fmt.Errorf("encoding entry id=%d: %w", id(&items[i]), err)
		}
		if _, err := stmt.ExecContext(ctx, i, id(&items[i]), string(payload)); err != nil {
			return fmt.Errorf("inserting entry id=%d: %w", id(&items[i]), err)
		}
	}
	return nil
}

func queryRows[T any](ctx context.Context, db *sql.DB, q string, args ...any) ([]T, error) {
	rows, err := db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	out := []T{}
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		var v T
		if err := json.Unmarshal([]byte(payload), &v); err != nil {
			return nil, fmt.Errorf("decoding row: %w", err)
		}
		out = append(out, v)
	}
	return out, rows.Err()
}
