package web

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/dsautocare/site/internal/captcha"
	"github.com/dsautocare/site/internal/config"
	"github.com/dsautocare/site/internal/notify"
	"github.com/dsautocare/site/internal/store"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

//go:embed content/*.md
var contentFS embed.FS

// Deps are the collaborators the site handlers need.
type Deps struct {
	Store    store.Store
	Verifier captcha.Verifier
	Notifier notify.Notifier
	Config   *config.Config
}

// NewHandler builds the routed, middleware-wrapped handler for the site.
func NewHandler(deps Deps, version string) (http.Handler, error) {
	// Create sub-FS for templates (strip "templates/" prefix)
	templateSub, err := fs.Sub(templateFS, "templates")
	if err != nil {
		return nil, fmt.Errorf("template sub-FS: %w", err)
	}

	// Create sub-FS for static files (strip "static/" prefix)
	staticSub, err := fs.Sub(staticFS, "static")
	if err != nil {
		return nil, fmt.Errorf("static sub-FS: %w", err)
	}

	renderer := NewRenderer(templateSub, version)

	pages, err := loadContent(renderer, contentFS)
	if err != nil {
		return nil, err
	}

	cfg := deps.Config
	if cfg == nil {
		cfg = config.DefaultConfig()
	}

	h := &Handlers{
		store:    deps.Store,
		verifier: deps.Verifier,
		notifier: deps.Notifier,
		cfg:      cfg,
		renderer: renderer,
		pages:    pages,
	}

	mux := http.NewServeMux()

	// Routes using Go 1.22+ pattern syntax
	mux.HandleFunc("GET /{$}", h.HandleHome)
	mux.HandleFunc("GET /services", h.HandleServices)
	mux.HandleFunc("GET /contact", h.HandleContactForm)
	mux.HandleFunc("GET /thanks", h.HandleThanks)
	mux.HandleFunc("GET /healthz", h.HandleHealth)

	limiter := NewRateLimiter(cfg.ContactRatePerMinute, cfg.TrustProxy)
	submit := limiter.Middleware(http.HandlerFunc(h.HandleContactSubmit))
	mux.Handle("POST /contact", submit)
	// The first version of the site posted the form to the home page.
	mux.Handle("POST /{$}", submit)

	admin := func(fn http.HandlerFunc) http.Handler {
		return basicAuth(cfg.AdminUser, cfg.AdminPassword, renderer)(sameOrigin(fn))
	}
	mux.Handle("GET /admin", admin(h.HandleAdmin))
	mux.Handle("GET /admin/export.csv", admin(h.HandleExport))
	mux.Handle("GET /admin/submissions/{id}", admin(h.HandleDetail))
	mux.Handle("POST /admin/submissions/{id}/{action}", admin(h.HandleAction))
	mux.Handle("POST /admin/clear-inbox", admin(h.HandleClearInbox))

	// Static file server
	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServerFS(staticSub)))

	// Outermost first: every request gets an id before it is logged.
	var handler http.Handler = mux
	handler = securityHeaders(handler)
	handler = recoverPanic(handler)
	handler = logRequests(handler)
	handler = requestID(handler)
	return handler, nil
}

// NewServer creates and configures the HTTP server for the site.
func NewServer(deps Deps, version, bind string, port int) (*http.Server, error) {
	handler, err := NewHandler(deps, version)
	if err != nil {
		return nil, err
	}
	return &http.Server{
		Addr:              fmt.Sprintf("%s:%d", bind, port),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}, nil
}

// Run starts the HTTP server and handles graceful shutdown on SIGINT/SIGTERM.
func Run(srv *http.Server) error {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	slog.Info("site running", "addr", "http://"+srv.Addr)

	if strings.HasPrefix(srv.Addr, "0.0.0.0:") || strings.HasPrefix(srv.Addr, ":") || strings.Contains(srv.Addr, "::") {
		slog.Warn("server is binding to all interfaces", "addr", srv.Addr)
	}

	select {
	case err := <-errCh:
		return err
	case <-sigCh:
		slog.Info("shutting down")
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(ctx)
	}
}
