// toursync keeps a local, offline-readable cache of a tour-booking account:
// the tour catalogue, the user's wishlist and bookings, and for
// administrators every booking together with the paid revenue total.
//
// Usage:
//
//	toursync setup                              # interactive first-run wizard
//	toursync daemon [--config <path>]           # refresh caches on an interval
//	toursync sync-once [--config <path>]        # single refresh pass then exit
//	toursync status                             # show config, session, and cache state
//	toursync tours [--search q] [--category c]  # list cached tours
//	toursync wishlist [add|remove <tour-id>]    # show or edit the wishlist
//	toursync book --tour <id> --date YYYY-MM-DD # book a tour
//	toursync bookings [--all]                   # list bookings
//	toursync booking-status <id> <status>       # change a payment status (admin)
//	toursync version                            # print version
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/njoerd114/toursync/internal/config"
	"github.com/njoerd114/toursync/internal/logging"
	"github.com/njoerd114/toursync/internal/remote"
	"github.com/njoerd114/toursync/internal/setup"
	"github.com/njoerd114/toursync/internal/snapshot"
)

// version is set at build time via -ldflags "-X main.version=..."
var version = "dev"

func main() {
	if err := run(); err != nil {
		slog.Error("fatal error", "error", err)
		os.Exit(1)
	}
}

// run dispatches to the appropriate subcommand.
func run() error {
	if len(os.Args) < 2 {
		return printUsage()
	}

	cmd, args := os.Args[1], os.Args[2:]
	switch cmd {
	case "setup":
		return runSetup(args)
	case "daemon":
		return runSync(args, true)
	case "sync-once":
		return runSync(args, false)
	case "status":
		return runStatus(args)
	case "tours":
		return runTours(args)
	case "wishlist":
		return runWishlist(args)
	case "book":
		return runBook(args)
	case "bookings":
		return runBookings(args)
	case "booking-status":
		return runBookingStatus(args)
	case "version":
		fmt.Println("toursync", version)
		return nil
	case "help", "-h", "--help":
		return printUsage()
	}
	return fmt.Errorf("unknown command %q; run 'toursync' for usage", cmd)
}

// printUsage shows help and suggests setup if no config exists.
func printUsage() error {
	cfgPath, _ := config.DefaultPath()
	_, cfgErr := os.Stat(cfgPath)

	fmt.Fprintln(os.Stderr, "toursync: offline cache for your tour bookings")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Usage:")
	fmt.Fprintln(os.Stderr, "  toursync setup                         Interactive first-run wizard")
	fmt.Fprintln(os.Stderr, "  toursync daemon [--config ...]          Refresh caches continuously")
	fmt.Fprintln(os.Stderr, "  toursync sync-once [--config ...]       Single refresh pass then exit")
	fmt.Fprintln(os.Stderr, "  toursync status                         Show config, session, and cache state")
	fmt.Fprintln(os.Stderr, "  toursync tours [--search q] [--category c] [--refresh]")
	fmt.Fprintln(os.Stderr, "  toursync wishlist [add|remove <tour-id>]")
	fmt.Fprintln(os.Stderr, "  toursync book --tour <id> --date YYYY-MM-DD [--guests n] [--payment method]")
	fmt.Fprintln(os.Stderr, "  toursync bookings [--all] [--refresh]")
	fmt.Fprintln(os.Stderr, "  toursync booking-status <booking-id> <status>")
	fmt.Fprintln(os.Stderr, "  toursync version                        Print version")
	fmt.Fprintln(os.Stderr, "")

	if cfgErr != nil {
		fmt.Fprintln(os.Stderr, "No config file found. Run 'toursync setup' to get started.")
	}

	os.Exit(1)
	return nil // unreachable
}

// runSetup launches the interactive setup wizard.
func runSetup(args []string) error {
	fs := flag.NewFlagSet("setup", flag.ExitOnError)
	defaultCfg, _ := config.DefaultPath()
	cfgPath := fs.String("config", defaultCfg, "path to config.yaml")
	if err := fs.Parse(args); err != nil {
		return err
	}

	logger, closer := logging.New(logging.Options{Level: slog.LevelWarn, DisableOTel: true})
	defer closer.Close()
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	factory := func(baseURL string) (setup.Authenticator, error) {
		return remote.NewClient(baseURL, remote.WithLogger(logger))
	}
	var before string
	if old, err := config.Load(*cfgPath); err == nil {
		before = remote.AccountID(old.Token)
	}

	wiz := setup.NewWizard(os.Stdin, os.Stdout, *cfgPath, factory, logger)
	cfg, err := wiz.Run(ctx)
	if err != nil || cfg == nil {
		return err
	}
	if remote.AccountID(cfg.Token) == before {
		return nil
	}
	return clearAccountCache(ctx, cfg.CachePath)
}

// clearAccountCache drops the wishlist and bookings cached for a previous
// account, keeping the public tour list.
func clearAccountCache(ctx context.Context, path string) error {
	if path == "" {
		var err error
		if path, err = snapshot.DefaultDBPath(); err != nil {
			return fmt.Errorf("resolving cache path: %w", err)
		}
	}
	snap, err := snapshot.Open(path)
	if err != nil {
		return fmt.Errorf("opening cache at %q: %w", path, err)
	}
	defer snap.Close()
	if err := snap.ClearPrivate(ctx); err != nil {
		return fmt.Errorf("clearing cached account data: %w", err)
	}
	return nil
}

// runSync handles both "daemon" and "sync-once" subcommands.
func runSync(args []string, daemon bool) error {
	fs := flag.NewFlagSet("sync", flag.ExitOnError)
	common := addCommonFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	a, err := openApp(ctx, common)
	if err != nil {
		return err
	}
	defer a.Close()

	if !daemon {
		a.logger.Info("running single refresh pass")
		stats, err := a.engine.RunOnce(ctx)
		a.logger.Info("refresh complete",
			"fetched", stats.Fetched,
			"failed", stats.Failed,
			"changed", stats.TotalChanged(),
			"skipped", stats.Skipped,
		)
		return err
	}

	a.logger.Info("daemon starting", "poll_interval", a.cfg.PollInterval)
	if err := a.engine.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("sync engine: %w", err)
	}
	a.logger.Info("shutdown complete")
	return nil
}
