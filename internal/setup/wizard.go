package setup

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/njoerd114/toursync/internal/config"
	"github.com/njoerd114/toursync/internal/remote"
)

// Authenticator exchanges credentials for a bearer token.
// Implemented by [remote.Client].
type Authenticator interface {
	Login(ctx context.Context, in remote.LoginRequest) (*remote.AuthResponse, error)
	Register(ctx context.Context, in remote.RegisterRequest) (*remote.AuthResponse, error)
}

// AuthFactory builds an [Authenticator] for the API at baseURL.
type AuthFactory func(baseURL string) (Authenticator, error)

// Account choices offered in step 2.
const (
	accountLogin = iota
	accountRegister
	accountAnonymous
)

// Wizard guides the user through first-run configuration.
type Wizard struct {
	prompt  *Prompter
	logger  *slog.Logger
	w       io.Writer
	auth    AuthFactory
	cfgPath string
}

// NewWizard creates a Wizard wired to the given I/O and logger. The config
// is written to cfgPath.
func NewWizard(r io.Reader, w io.Writer, cfgPath string, auth AuthFactory, logger *slog.Logger) *Wizard {
	return &Wizard{
		prompt:  NewPrompter(r, w),
		logger:  logger,
		w:       w,
		auth:    auth,
		cfgPath: cfgPath,
	}
}

// Run executes the interactive setup wizard and returns the config it wrote,
// or nil when the user kept an existing file.
func (wiz *Wizard) Run(ctx context.Context) (*config.Config, error) {
	fmt.Fprintf(wiz.w, "\nWelcome to toursync setup!\n")
	fmt.Fprintf(wiz.w, "This wizard connects toursync to your tour-booking account.\n\n")

	if _, statErr := os.Stat(wiz.cfgPath); statErr == nil {
		fmt.Fprintf(wiz.w, "  Existing config found at %s\n", wiz.cfgPath)
		if !wiz.prompt.Confirm("Overwrite existing configuration?", false) {
			fmt.Fprintf(wiz.w, "\n  Keeping existing config.\n")
			return nil, nil
		}
		fmt.Fprintf(wiz.w, "\n")
	}

	// Step 1: API location.
	fmt.Fprintf(wiz.w, "Step 1/4: API\n")
	apiURL := wiz.prompt.String("API URL", "http://localhost:8080")
	client, err := wiz.auth(apiURL)
	if err != nil {
		return nil, fmt.Errorf("invalid API URL: %w", err)
	}
	fmt.Fprintf(wiz.w, "\n")

	// Step 2: Account.
	fmt.Fprintf(wiz.w, "Step 2/4: Account\n")
	auth, err := wiz.signIn(ctx, client)
	if err != nil {
		return nil, err
	}
	fmt.Fprintf(wiz.w, "\n")

	// Step 3: Poll interval.
	fmt.Fprintf(wiz.w, "Step 3/4: Poll Interval\n")
	pollInterval := wiz.prompt.Duration("How often to refresh the caches?", 30*time.Second, 10*time.Second, 5*time.Minute)
	fmt.Fprintf(wiz.w, "\n")

	// Step 4: Write config.
	fmt.Fprintf(wiz.w, "Step 4/4: Save Configuration\n")
	cfg := &config.Config{
		APIURL:       apiURL,
		PollInterval: pollInterval,
	}
	if auth != nil {
		cfg.Token = auth.Token
		cfg.Email = auth.Email
	}
	if err := cfg.Write(wiz.cfgPath); err != nil {
		return nil, fmt.Errorf("writing config: %w", err)
	}
	fmt.Fprintf(wiz.w, "  ✓ Config written to %s\n\n", wiz.cfgPath)

	fmt.Fprintf(wiz.w, "Setup complete!\n")
	fmt.Fprintf(wiz.w, "  Sync once:  toursync sync-once\n")
	fmt.Fprintf(wiz.w, "  Run daemon: toursync daemon\n")
	fmt.Fprintf(wiz.w, "  Status:     toursync status\n\n")
	return cfg, nil
}

// signIn walks the account step. A nil response means the user chose to stay
// signed out.
func (wiz *Wizard) signIn(ctx context.Context, client Authenticator) (*remote.AuthResponse, error) {
	choice, err := wiz.prompt.Select("How do you want to connect?", []string{
		"Sign in to an existing account",
		"Create a new account",
		"Stay signed out (public tours only)",
	})
	if err != nil {
		return nil, fmt.Errorf("selecting account option: %w", err)
	}

	var resp *remote.AuthResponse
	switch choice {
	case accountAnonymous:
		fmt.Fprintf(wiz.w, "  Continuing without an account.\n")
		return nil, nil
	case accountRegister:
		name := wiz.prompt.String("Name", "")
		email := wiz.prompt.String("Email", "")
		password := wiz.prompt.Secret("Password")
		fmt.Fprintf(wiz.w, "  Creating account...")
		resp, err = client.Register(ctx, remote.RegisterRequest{Name: name, Email: email, Password: password})
		if resp != nil && resp.Email == "" {
			resp.Email = email
		}
	default:
		email := wiz.prompt.String("Email", "")
		password := wiz.prompt.Secret("Password")
		fmt.Fprintf(wiz.w, "  Signing in...")
		resp, err = client.Login(ctx, remote.LoginRequest{Email: email, Password: password})
		if resp != nil && resp.Email == "" {
			resp.Email = email
		}
	}
	if err != nil {
		fmt.Fprintf(wiz.w, " ✗\n")
		wiz.logger.Debug("authentication failed", "error", err)
		return nil, fmt.Errorf("%w\n\n  Check the URL and credentials, then try again", err)
	}
	if resp.Token == "" {
		fmt.Fprintf(wiz.w, " ✗\n")
		return nil, fmt.Errorf("server returned no token")
	}
	fmt.Fprintf(wiz.w, " ✓\n")

	if s, perr := remote.ParseSession(resp.Token); perr == nil {
		if s.IsAdmin() {
			fmt.Fprintf(wiz.w, "  Signed in as administrator; all bookings will be cached.\n")
		}
		if !s.ExpiresAt.IsZero() {
			fmt.Fprintf(wiz.w, "  Token expires %s\n", s.ExpiresAt.Local().Format(time.RFC1123))
		}
	}
	return resp, nil
}
