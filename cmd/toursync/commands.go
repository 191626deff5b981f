package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/njoerd114/toursync/internal/config"
	"github.com/njoerd114/toursync/internal/model"
	"github.com/njoerd114/toursync/internal/remote"
	"github.com/njoerd114/toursync/internal/snapshot"
)

// runStatus prints the config, session, and cache state without touching
// the network.
func runStatus(args []string) error {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	defaultCfg, _ := config.DefaultPath()
	cfgPath := fs.String("config", defaultCfg, "path to config.yaml")
	if err := fs.Parse(args); err != nil {
		return err
	}

	fmt.Println("toursync status")
	fmt.Println("───────────────")

	cfg, loadErr := config.Load(*cfgPath)
	switch {
	case loadErr == nil:
		fmt.Printf("  Config:    %s ✓\n", *cfgPath)
		fmt.Printf("  API:       %s\n", cfg.APIURL)
		fmt.Printf("  Poll:      %s\n", cfg.PollInterval)
		printSession(cfg)
	case errors.Is(loadErr, os.ErrNotExist):
		fmt.Printf("  Config:    not found (%s)\n", *cfgPath)
	default:
		fmt.Printf("  Config:    %s (invalid: %v)\n", *cfgPath, loadErr)
	}

	dbPath := ""
	if cfg != nil {
		dbPath = cfg.CachePath
	}
	if dbPath == "" {
		dbPath, _ = snapshot.DefaultDBPath()
	}
	info, err := os.Stat(dbPath)
	if err != nil {
		fmt.Printf("  Cache:     not found\n")
		return nil
	}
	fmt.Printf("  Cache:     %s (%s)\n", dbPath, humanSize(info.Size()))

	snap, err := snapshot.Open(dbPath)
	if err != nil {
		fmt.Printf("  Cache:     unreadable (%v)\n", err)
		return nil
	}
	defer snap.Close()

	s, err := snap.Load(context.Background())
	if err != nil {
		fmt.Printf("  Cache:     unreadable (%v)\n", err)
		return nil
	}
	if s.SavedAt.IsZero() {
		fmt.Printf("  Saved:     never\n")
		return nil
	}
	fmt.Printf("  Saved:     %s (%s ago)\n", s.SavedAt.Local().Format(time.RFC1123), time.Since(s.SavedAt).Round(time.Second))
	fmt.Printf("  Tours:     %d\n", len(s.Tours))
	fmt.Printf("  Wishlist:  %d\n", len(s.Wishlist))
	fmt.Printf("  Bookings:  %d mine", len(s.UserBookings))
	if len(s.Bookings) > 0 {
		fmt.Printf(", %d total, revenue %.2f", len(s.Bookings), s.TotalRevenue)
	}
	fmt.Println()
	return nil
}

func printSession(cfg *config.Config) {
	if cfg.Token == "" {
		fmt.Printf("  Account:   signed out\n")
		return
	}
	sess, err := remote.ParseSession(cfg.Token)
	if err != nil {
		fmt.Printf("  Account:   %s (token unreadable)\n", cfg.Email)
		return
	}
	role := sess.Role
	if role == "" {
		role = "user"
	}
	fmt.Printf("  Account:   %s (%s)\n", cfg.Email, role)
	switch {
	case sess.ExpiresAt.IsZero():
	case sess.Expired(time.Now()):
		fmt.Printf("  Token:     expired %s, run 'toursync setup'\n", sess.ExpiresAt.Local().Format(time.RFC1123))
	default:
		fmt.Printf("  Token:     expires %s\n", sess.ExpiresAt.Local().Format(time.RFC1123))
	}
}

// runTours lists cached tours, optionally filtered.
func runTours(args []string) error {
	fs := flag.NewFlagSet("tours", flag.ExitOnError)
	common := addCommonFlags(fs)
	common.quiet = true
	search := fs.String("search", "", "case-insensitive title or destination filter")
	category := fs.String("category", "", "category filter")
	refresh := fs.Bool("refresh", false, "refresh from the API before listing")
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

	a.refresh(ctx, *refresh)
	a.tours.SetSearchQuery(*search)
	a.tours.SetCategory(*category)

	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTITLE\tDESTINATION\tDAYS\tPRICE\tCATEGORY\tRATING\t")
	for _, t := range a.tours.State().Filtered() {
		mark := ""
		if a.wishlist.Contains(t.ID) {
			mark = " ♥"
		}
		fmt.Fprintf(tw, "%d\t%s%s\t%s\t%d\t%.2f\t%s\t%.1f\t\n",
			t.ID, t.Title, mark, t.Destination, t.Duration, t.Price, t.Category, t.Rating)
	}
	return tw.Flush()
}

// runWishlist shows the wishlist, or adds or removes a tour.
func runWishlist(args []string) error {
	action := "list"
	if len(args) > 0 && (args[0] == "add" || args[0] == "remove" || args[0] == "list") {
		action, args = args[0], args[1:]
	}

	fs := flag.NewFlagSet("wishlist", flag.ExitOnError)
	common := addCommonFlags(fs)
	common.quiet = true
	if err := fs.Parse(args); err != nil {
		return err
	}

	var tourID int64
	if action != "list" {
		if fs.NArg() != 1 {
			return fmt.Errorf("usage: toursync wishlist %s <tour-id>", action)
		}
		id, err := strconv.ParseInt(fs.Arg(0), 10, 64)
		if err != nil {
			return fmt.Errorf("invalid tour id %q", fs.Arg(0))
		}
		tourID = id
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	a, err := openApp(ctx, common)
	if err != nil {
		return err
	}
	defer a.Close()

	token, err := a.requireToken()
	if err != nil {
		return err
	}

	switch action {
	case "add":
		if err := a.wishlist.AddToBackend(ctx, tourID, token); err != nil {
			return fmt.Errorf("adding tour %d: %w", tourID, err)
		}
		// The add response carries no item; reload to pick it up.
		if err := a.wishlist.FetchFromBackend(ctx, token); err != nil {
			a.logger.Warn("could not reload wishlist", "error", remote.Message(err))
		}
		fmt.Printf("✓ Tour %d added to wishlist\n", tourID)
	case "remove":
		if err := a.wishlist.RemoveFromBackend(ctx, tourID, token); err != nil {
			return fmt.Errorf("removing tour %d: %w", tourID, err)
		}
		fmt.Printf("✓ Tour %d removed from wishlist\n", tourID)
	default:
		if err := a.wishlist.FetchFromBackend(ctx, token); err != nil {
			a.logger.Warn("could not refresh wishlist, showing cached data", "error", remote.Message(err))
		}
		tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tTITLE\tDESTINATION\tDAYS\tPRICE\t")
		for _, it := range a.wishlist.State().Items {
			fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%.2f\t\n", it.ID, it.Title, it.Destination, it.Duration, it.Price)
		}
		if err := tw.Flush(); err != nil {
			return err
		}
	}
	return a.engine.Persist(ctx)
}

// runBook books a tour for the signed-in user.
func runBook(args []string) error {
	fs := flag.NewFlagSet("book", flag.ExitOnError)
	common := addCommonFlags(fs)
	common.quiet = true
	tourID := fs.Int64("tour", 0, "tour ID")
	date := fs.String("date", "", "travel date (YYYY-MM-DD)")
	guests := fs.Int("guests", 1, "number of travellers")
	payment := fs.String("payment", model.DefaultPaymentMethod, "payment method")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *tourID == 0 || *date == "" {
		return fmt.Errorf("usage: toursync book --tour <id> --date YYYY-MM-DD [--guests n]")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	a, err := openApp(ctx, common)
	if err != nil {
		return err
	}
	defer a.Close()

	if _, err := a.requireToken(); err != nil {
		return err
	}
	b, err := a.engine.BookTour(ctx, *tourID, *date, *guests, *payment)
	if err != nil {
		return err
	}
	fmt.Printf("✓ Booking %d confirmed: tour %d, %s to %s, %d guest(s), total %.2f (%s)\n",
		b.ID, b.TourID, b.TravelDate, b.EndDate, b.Guests, b.TotalAmount, b.PaymentStatus)
	return a.engine.Persist(ctx)
}

// runBookings lists the user's bookings, or every booking for an admin.
func runBookings(args []string) error {
	fs := flag.NewFlagSet("bookings", flag.ExitOnError)
	common := addCommonFlags(fs)
	common.quiet = true
	all := fs.Bool("all", false, "list every booking with the paid revenue total (admin)")
	refresh := fs.Bool("refresh", false, "refresh from the API before listing")
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

	if _, err := a.requireToken(); err != nil {
		return err
	}
	if *all {
		if s := a.engine.Session(); s == nil || !s.IsAdmin() {
			return errors.New("--all requires an administrator account")
		}
	}
	a.refresh(ctx, *refresh)

	st := a.bookings.State()
	list := st.UserBookings
	if *all {
		list = st.Bookings
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTOUR\tFROM\tTO\tGUESTS\tTOTAL\tPAYMENT\t")
	for _, b := range list {
		title := strconv.FormatInt(b.TourID, 10)
		if t, ok := a.tours.State().Find(b.TourID); ok {
			title = t.Title
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%d\t%.2f\t%s\t\n",
			b.ID, title, b.TravelDate, b.EndDate, b.Guests, b.TotalAmount, b.PaymentStatus)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	if *all {
		fmt.Printf("\nPaid revenue: %.2f\n", st.TotalRevenue)
	}
	if st.Error != "" {
		fmt.Fprintf(os.Stderr, "\n⚠ last request failed: %s\n", st.Error)
	}
	return nil
}

// runBookingStatus changes the payment status of a booking (admin).
func runBookingStatus(args []string) error {
	fs := flag.NewFlagSet("booking-status", flag.ExitOnError)
	common := addCommonFlags(fs)
	common.quiet = true
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 2 {
		return fmt.Errorf("usage: toursync booking-status <booking-id> <%s|%s|%s>",
			model.PaymentUnpaid, model.PaymentPaid, model.PaymentRefunded)
	}
	id, err := strconv.ParseInt(fs.Arg(0), 10, 64)
	if err != nil {
		return fmt.Errorf("invalid booking id %q", fs.Arg(0))
	}
	status := model.PaymentStatus(fs.Arg(1))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	a, err := openApp(ctx, common)
	if err != nil {
		return err
	}
	defer a.Close()

	token, err := a.requireToken()
	if err != nil {
		return err
	}
	before := a.bookings.State().TotalRevenue
	b, err := a.bookings.UpdateStatus(ctx, id, status, token)
	if err != nil {
		return fmt.Errorf("updating booking %d: %w", id, err)
	}
	after := a.bookings.State().TotalRevenue
	fmt.Printf("✓ Booking %d is now %s\n", b.ID, b.PaymentStatus)
	if after != before {
		fmt.Printf("  Paid revenue: %.2f → %.2f\n", before, after)
	}
	return a.engine.Persist(ctx)
}

// humanSize returns a human-readable file size string.
func humanSize(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
