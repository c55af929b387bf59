package main

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/feedboard/feedboard/internal/auth"
	"github.com/feedboard/feedboard/internal/board"
	"github.com/feedboard/feedboard/internal/config"
	"github.com/feedboard/feedboard/internal/oauth"
	"github.com/feedboard/feedboard/internal/store"

	"filippo.io/csrf"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Embeds the migration files INTO the go bin

//go:embed migrations/*.sql
var migrationsDir embed.FS

func main() {
	// Load config first so we can set log level
	cfg, err := config.LoadConfig()
	if err != nil {
		// Fallback logger before config is available
		slog.Error("fatal", "err", err)
		os.Exit(1)
	}

	// Include source location in log entries at debug level only.
	addSrc := cfg.LogLevel == slog.LevelDebug

	// Set up slog to output as json with configured level
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level:     cfg.LogLevel,
		AddSource: addSrc,
	})))

	// Cancel ctx on SIGINT/SIGTERM; run() shuts down when ctx is done.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// run() is a separate func so deferred closes (ps, rdb) always execute before os.Exit.
	if err := run(ctx, cfg, nil); err != nil {
		slog.Error("fatal", "err", err)
		os.Exit(1)
	}
}

// run holds all server logic and returns error instead of calling os.Exit,
// so deferred resource cleanup (ps.Close, rdb.Close) always runs.
// Shuts down when ctx is cancelled (signal handling is the caller's concern).
// If ready is non-nil, the server's base URL is sent on it once the listener is bound.
func run(ctx context.Context, cfg *config.Config, ready chan<- string) error {
	// Create new postgres store, return errors if any
	ps, err := store.NewPostgresStore(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to set up postgres store: %w", err)
	}
	// Close at end of run func
	defer ps.Close()

	// Run database migrations
	migrationsFS, err := fs.Sub(migrationsDir, "migrations")
	if err != nil {
		return fmt.Errorf("failed to access embedded migrations: %w", err)
	}
	if err := ps.Migrate(ctx, migrationsFS); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	// Redis is optional. Without it the admin key is not rate limited
	// and OAuth states are only checked against the cookie.
	var (
		rl auth.RateLimiter   = store.NoopRedis{}
		sl auth.StateLedger   = store.NoopRedis{}
		rs auth.HealthChecker = store.NoopRedis{}
	)
	if cfg.RedisURL != "" {
		rdb, err := store.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("failed to set up redis client: %w", err)
		}
		defer rdb.Close()

		limiter := store.NewRedisRateLimiter(rdb)
		rl, rs = limiter, limiter
		sl = store.NewRedisStateLedger(rdb)
	} else {
		slog.Warn("REDIS_URL not set; admin key rate limiting and state replay checks disabled")
	}

	sessions, err := auth.NewSessionCodec(cfg.SessionSecret, cfg.CookieSecure(), cfg.SessionTTL)
	if err != nil {
		return fmt.Errorf("failed to set up session codec: %w", err)
	}

	pages, err := board.NewPages()
	if err != nil {
		return fmt.Errorf("failed to load page templates: %w", err)
	}

	if cfg.AdminKeyIsDefault {
		slog.Warn("ADMIN_KEY not set; using the built-in development key")
	}

	provider := newProvider(ctx, cfg)

	ah := &auth.AuthHandler{
		PS:       ps,
		RL:       rl,
		SL:       sl,
		RS:       rs,
		Provider: provider,
		Sessions: sessions,
		State:    &auth.StateGuard{Secure: cfg.CookieSecure()},
		AdminKey: cfg.AdminKey,
		AdminPolicy: store.RateLimit{
			MaxAttempts: cfg.RateAdminMax,
			Window:      cfg.RateAdminWindow,
			LockoutTTL:  cfg.RateAdminLockout,
		},
	}
	bh := &board.Handler{
		PS:                ps,
		Sessions:          ah,
		Pages:             pages,
		LoginEnabled:      provider != nil,
		AdminKeyIsDefault: cfg.AdminKeyIsDefault,
	}

	// Bind listener; ":0" picks a free port (useful in tests).
	ln, err := net.Listen("tcp", ":"+cfg.Port)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}

	server := &http.Server{
		Handler:           buildRouter(ah, bh),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Start server in a goroutine; run() continues past this.
	errCh := make(chan error, 1)
	go func() {
		slog.Info("feedboard listening", "addr", ln.Addr().String(), "base_url", cfg.AppBaseURL)
		// Send error only if server stops for a reason other than explicit shutdown.
		if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// Signal readiness to caller (used by tests; nil in production).
	if ready != nil {
		ready <- "http://" + ln.Addr().String()
	}

	// Wait for server error or shutdown signal from ctx.
	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}

	slog.Info("shutting down server...")
	// Stop accepting, let in-flight requests finish, give up after 30s.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown error: %w", err)
	}

	slog.Info("server stopped")
	return nil
}

// newProvider builds the Linux DO provider, or returns nil (login disabled)
// when settings are missing. Missing settings are not fatal so the board
// stays readable while login is being configured.
func newProvider(ctx context.Context, cfg *config.Config) oauth.Provider {
	if missing := cfg.LinuxDoMissing(); len(missing) > 0 {
		slog.Warn("linux do login disabled", "missing", missing)
		return nil
	}

	lcfg := oauth.LinuxDoConfig{
		ClientID:     cfg.LinuxDoClientID,
		ClientSecret: cfg.LinuxDoClientSecret,
		AuthURL:      cfg.LinuxDoAuthURL,
		TokenURL:     cfg.LinuxDoTokenURL,
		UserinfoURL:  cfg.LinuxDoUserinfoURL,
		BaseURL:      cfg.AppBaseURL,
		Timeout:      cfg.OAuthTimeout,
	}

	if cfg.LinuxDoIssuer != "" {
		dctx, cancel := context.WithTimeout(ctx, cfg.OAuthTimeout)
		ep, err := oauth.Discover(dctx, cfg.LinuxDoIssuer)
		cancel()
		if err != nil {
			// Explicit endpoint URLs may still cover everything.
			slog.Warn("linux do discovery failed", "issuer", cfg.LinuxDoIssuer, "error", err)
		} else {
			ep.Fill(&lcfg)
		}
	}

	p, err := oauth.NewLinuxDoProvider(lcfg)
	if err != nil {
		slog.Warn("linux do login disabled", "error", err)
		return nil
	}
	slog.Info("linux do login enabled", "redirect_url", p.RedirectURL())
	return p
}

// buildRouter wires all routes and middleware.
// Called from run() and from smoke tests.
func buildRouter(ah *auth.AuthHandler, bh *board.Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	// Admin key limits key on the peer saved here, not on forwarded headers.
	r.Use(auth.RememberPeer)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(board.SecurityHeaders)
	// Rejects cross-origin form posts (Sec-Fetch-Site / Origin checks).
	r.Use(csrf.New().Handler)
	// Every later handler reads the session from context.
	r.Use(ah.LoadSession)

	r.Get("/health", ah.CheckHealth)

	r.Get("/login", ah.OAuthRedirect)
	r.Get(oauth.CallbackPath, ah.OAuthCallback)
	r.Get("/logout", ah.HandleLogout)
	r.Get("/admin", bh.AdminPage)
	r.Post("/admin", ah.AdminLogin)

	r.Get("/", bh.Home)
	r.Get("/square", bh.Square)
	r.Get("/square/{id}", bh.Detail)
	r.With(ah.RequireAdmin).Post("/square/{id}/reply", bh.CreateReply)
	r.Get("/new", bh.NewForm)
	r.Post("/new", bh.CreateFeedback)
	r.With(ah.RequireUser).Get("/me", bh.Mine)

	return r
}
