package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"time"

	"github.com/njoerd114/toursync/internal/config"
	"github.com/njoerd114/toursync/internal/logging"
	"github.com/njoerd114/toursync/internal/remote"
	"github.com/njoerd114/toursync/internal/snapshot"
	"github.com/njoerd114/toursync/internal/store"
	syncp "github.com/njoerd114/toursync/internal/sync"
	"github.com/njoerd114/toursync/internal/telemetry"
)

// commonFlags are accepted by every command that talks to the API.
type commonFlags struct {
	cfgPath *string
	verbose *bool

	// quiet lowers the default level to Warn for commands that print tables.
	quiet bool
}

func addCommonFlags(fs *flag.FlagSet) commonFlags {
	defaultCfg, _ := config.DefaultPath()
	return commonFlags{
		cfgPath: fs.String("config", defaultCfg, "path to config.yaml"),
		verbose: fs.Bool("verbose", false, "enable debug logging"),
	}
}

// app holds the wired components shared by the subcommands.
type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	client   *remote.Client
	tours    *store.Tours
	wishlist *store.Wishlist
	bookings *store.Bookings
	snap     *snapshot.Store
	engine   *syncp.Engine

	// hydrated is true when the snapshot held data for the configured account.
	hydrated bool

	closers []func()
}

// openApp loads the config, builds the logger, telemetry, API client, stores,
// and snapshot store, hydrates the stores from the last snapshot, and creates
// the sync engine.
func openApp(ctx context.Context, f commonFlags) (_ *app, err error) {
	a := &app{}
	defer func() {
		if err != nil {
			a.Close()
		}
	}()

	cfg, err := config.Load(*f.cfgPath)
	if err != nil {
		return nil, fmt.Errorf("loading config from %q: %w\n\nRun 'toursync setup' to create one", *f.cfgPath, err)
	}
	a.cfg = cfg

	// --- Logger --------------------------------------------------------------

	level := slog.LevelInfo
	if f.quiet {
		level = slog.LevelWarn
	}
	if *f.verbose {
		level = slog.LevelDebug
	}
	logger, logCloser := logging.New(logging.Options{Level: level, File: cfg.LogFile})
	a.logger = logger
	a.closers = append(a.closers, func() { _ = logCloser.Close() })
	slog.SetDefault(logger)

	logger.Info("config loaded",
		"api_url", cfg.APIURL,
		"poll_interval", cfg.PollInterval,
		"signed_in", cfg.Token != "",
	)

	// --- Telemetry (optional) ------------------------------------------------

	if telCfg, ok := telemetry.FromConfig(cfg.Telemetry); ok {
		telCfg.ServiceVersion = version
		shutdownTel, err := telemetry.Setup(ctx, telCfg)
		if err != nil {
			logger.Error("telemetry setup failed, continuing without telemetry", "error", err)
		} else {
			logger.Info("telemetry enabled", "endpoint", telCfg.OTLPEndpoint)
			a.closers = append(a.closers, func() {
				flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := shutdownTel(flushCtx); err != nil {
					logger.Error("telemetry shutdown error", "error", err)
				}
			})
		}
	}

	// --- API client and stores -----------------------------------------------

	client, err := remote.NewClient(cfg.APIURL,
		remote.WithTimeout(cfg.RequestTimeout),
		remote.WithRateLimit(cfg.RequestsPerSecond),
		remote.WithLogger(logger),
	)
	if err != nil {
		return nil, fmt.Errorf("creating API client: %w", err)
	}
	a.client = client
	a.tours = store.NewTours(client, logger)
	a.wishlist = store.NewWishlist(client, logger)
	a.bookings = store.NewBookings(client, logger)
	stores := syncp.Stores{Tours: a.tours, Wishlist: a.wishlist, Bookings: a.bookings}

	// --- Snapshot DB ---------------------------------------------------------

	dbPath := cfg.CachePath
	if dbPath == "" {
		if dbPath, err = snapshot.DefaultDBPath(); err != nil {
			return nil, fmt.Errorf("resolving cache path: %w", err)
		}
	}
	snap, err := snapshot.Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening cache at %q: %w", dbPath, err)
	}
	a.snap = snap
	a.closers = append(a.closers, func() {
		if closeErr := snap.Close(); closeErr != nil {
			logger.Error("closing cache DB", "error", closeErr)
		}
	})
	logger.Debug("cache DB opened", "path", dbPath)

	a.engine = syncp.NewEngine(stores, snap, cfg.Token, cfg.PollInterval, logger)
	if a.hydrated, err = a.engine.Hydrate(ctx); err != nil {
		// A corrupt snapshot only costs a cold start.
		logger.Warn("could not restore cached data", "error", err)
	}
	return a, nil
}

// Close releases everything openApp acquired, in reverse order.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

// refresh runs a pass when asked to, or when the cache held nothing for the
// current account.
func (a *app) refresh(ctx context.Context, force bool) {
	if !force && a.hydrated {
		return
	}
	if _, err := a.engine.RunOnce(ctx); err != nil {
		a.logger.Warn("refresh incomplete, showing cached data", "error", err)
	}
}

// requireToken fails with a hint when the config carries no token.
func (a *app) requireToken() (string, error) {
	if a.cfg.Token == "" {
		return "", fmt.Errorf("%w; run 'toursync setup' to sign in", syncp.ErrNotSignedIn)
	}
	return a.cfg.Token, nil
}
