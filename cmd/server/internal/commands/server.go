package commands

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"filippo.io/csrf"
	"github.com/klauspost/compress/gzhttp"
	"github.com/rs/cors"
	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"
	"github.com/wolfeidau/parking/internal/api"
	"github.com/wolfeidau/parking/internal/assets"
	"github.com/wolfeidau/parking/internal/auth"
	"github.com/wolfeidau/parking/internal/guard"
	httpmiddleware "github.com/wolfeidau/parking/internal/http"
	"github.com/wolfeidau/parking/internal/logger"
	"github.com/wolfeidau/parking/internal/seed"
	"github.com/wolfeidau/parking/internal/store"
	memorystore "github.com/wolfeidau/parking/internal/store/memory"
	postgresstore "github.com/wolfeidau/parking/internal/store/postgres"
	"github.com/wolfeidau/parking/internal/telemetry"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const shutdownTimeout = 10 * time.Second

type ServerCmd struct {
	// Server configuration
	Listen string `help:"HTTP server listen address" default:"0.0.0.0:8080" env:"PARKING_LISTEN"`
	Cert   string `help:"path to TLS cert file, serves plain HTTP when unset" default:"" env:"PARKING_TLS_CERT"`
	Key    string `help:"path to TLS key file, serves plain HTTP when unset" default:"" env:"PARKING_TLS_KEY"`

	// CORS configuration
	CORSOrigins []string `help:"allowed CORS origins for API requests" default:"http://localhost:8080" env:"PARKING_CORS_ORIGINS"`

	// Token configuration
	TokenSecret string        `help:"secret key for HMAC signing of access tokens (at least 32 bytes)" env:"PARKING_TOKEN_SECRET" required:""`
	TokenTTL    time.Duration `help:"access token TTL" default:"24h" env:"PARKING_TOKEN_TTL"`

	// Navigation guard
	GuardVerifyToken bool `help:"verify the token cookie before trusting it on page navigation" default:"false" env:"PARKING_GUARD_VERIFY_TOKEN"`

	// UI configuration
	UI UIFlags `embed:"" prefix:"ui-"`

	// Telemetry
	Tracing          bool    `help:"enable tracing and metrics export" default:"false" env:"PARKING_TRACING"`
	TraceSampleRatio float64 `help:"fraction of traces to keep" default:"1" env:"PARKING_TRACE_SAMPLE_RATIO"`

	// Store configuration
	StoreType     string             `help:"store type (memory or postgres)" default:"memory" env:"PARKING_STORE_TYPE" enum:"memory,postgres"`
	PostgresStore PostgresStoreFlags `embed:"" prefix:"postgres-"`
	Seed          SeedFlags          `embed:"" prefix:"seed-"`
}

type UIFlags struct {
	Pages     string `help:"glob of page entry points to bundle" default:"ui/pages/*.ts" env:"PARKING_UI_PAGES"`
	Templates string `help:"directory of HTML templates" default:"templates" env:"PARKING_UI_TEMPLATES"`
	Output    string `help:"directory for bundled assets, relative to the working directory, always served under /public/" default:"public" env:"PARKING_UI_OUTPUT"`
}

type PostgresStoreFlags struct {
	// Connection Configuration
	ConnString string `help:"PostgreSQL connection string" env:"POSTGRES_CONNECTION_STRING"`

	// Connection Pool Configuration
	MaxConns            int32 `help:"maximum number of connections in pool" default:"20"`
	MinConns            int32 `help:"minimum number of connections in pool" default:"5"`
	MaxConnLifetime     int32 `help:"maximum connection lifetime in seconds" default:"3600"`
	MaxConnIdleTime     int32 `help:"maximum connection idle time in seconds" default:"1800"`
	StartupRetryTimeout int32 `help:"seconds to keep retrying the first connection" default:"30"`

	// Migration Configuration
	AutoMigrate bool `help:"run database migrations on startup" default:"false" env:"PARKING_POSTGRES_AUTO_MIGRATE"`
}

type SeedFlags struct {
	AdminEmail    string `help:"email of the bootstrap admin account" default:"admin@parking.com" env:"PARKING_ADMIN_EMAIL"`
	AdminPassword string `help:"password of the bootstrap admin account, only used when it is created" default:"admin123" env:"PARKING_ADMIN_PASSWORD"`
	File          string `help:"YAML file of additional users to create" default:"" env:"PARKING_SEED_FILE"`
}

func (c *ServerCmd) Validate() error {
	if len(c.TokenSecret) < 32 {
		return errors.New("token secret must be at least 32 bytes (256 bits) for HMAC-SHA256")
	}
	if (c.Cert == "") != (c.Key == "") {
		return errors.New("TLS certificate and key must be provided together (--cert and --key)")
	}
	if c.StoreType == "postgres" && c.PostgresStore.ConnString == "" {
		return errors.New("PostgreSQL connection string is required (--postgres-conn-string or POSTGRES_CONNECTION_STRING)")
	}
	return nil
}

func (c *ServerCmd) Run(globals *Globals) error {
	log := logger.Setup(globals.Debug)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	zlog.Logger = log
	ctx = log.WithContext(ctx)

	log.Info().Str("version", globals.Version).Bool("debug", globals.Debug).Msg("Starting server")

	// Setup telemetry if enabled
	if c.Tracing {
		log.Info().Msg("Tracing is enabled")
		shutdown, err := telemetry.InitTelemetry(ctx, telemetry.Config{
			ServiceName: "parking-server",
			Version:     globals.Version,
			SampleRatio: c.TraceSampleRatio,
		})
		if err != nil {
			log.Warn().Err(err).Msg("Failed to initialize telemetry, continuing without metrics")
			shutdown = telemetry.Noop
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdown(shutdownCtx); err != nil {
				log.Error().Err(err).Msg("Failed to shutdown telemetry")
			}
		}()
	}

	// Create the stores based on store type
	var (
		users   store.UserStore
		parking store.ParkingStore
	)

	switch c.StoreType {
	case "postgres":
		poolCfg := &postgresstore.PoolConfig{
			ConnString:          c.PostgresStore.ConnString,
			MaxConns:            c.PostgresStore.MaxConns,
			MinConns:            c.PostgresStore.MinConns,
			MaxConnLifetime:     c.PostgresStore.MaxConnLifetime,
			MaxConnIdleTime:     c.PostgresStore.MaxConnIdleTime,
			StartupRetryTimeout: c.PostgresStore.StartupRetryTimeout,
		}
		pool, err := postgresstore.NewPool(ctx, poolCfg)
		if err != nil {
			return fmt.Errorf("failed to create connection pool: %w", err)
		}
		defer pool.Close()

		// Run migrations if enabled
		if c.PostgresStore.AutoMigrate {
			if err := postgresstore.Migrate(ctx, pool); err != nil {
				return fmt.Errorf("failed to run migrations: %w", err)
			}
			log.Info().Msg("Database migrations completed")
		}

		users = postgresstore.NewUserStore(pool)
		parking = postgresstore.NewParkingStore(pool)
		log.Info().Msg("Using PostgreSQL stores")

	default:
		users = memorystore.NewUserStore()
		parking = memorystore.NewParkingStore()
		log.Info().Msg("Using in-memory stores")
	}

	err := seed.Run(ctx, users, parking, seed.Config{
		AdminEmail:    c.Seed.AdminEmail,
		AdminPassword: c.Seed.AdminPassword,
		File:          c.Seed.File,
	})
	if err != nil {
		return fmt.Errorf("failed to seed store: %w", err)
	}

	tokens, err := auth.NewTokenIssuer([]byte(c.TokenSecret), c.TokenTTL)
	if err != nil {
		return fmt.Errorf("failed to create token issuer: %w", err)
	}

	// Build assets for UI
	assetsCfg := assets.DefaultConfig()
	assetsCfg.EntryPointGlob = c.UI.Pages
	assetsCfg.TemplateDir = c.UI.Templates
	assetsCfg.OutputDir = c.UI.Output
	assetsCfg.MetafilePath = c.UI.Output + "/meta.json"
	assetsCfg.Minify = !globals.Debug

	pipeline, err := assets.New(assetsCfg)
	if err != nil {
		return fmt.Errorf("failed to load assets pipeline: %w", err)
	}
	if err = pipeline.Build(); err != nil {
		return fmt.Errorf("failed to build js assets: %w", err)
	}

	navigator := guard.NewNavigator()
	if c.GuardVerifyToken {
		navigator = navigator.WithVerifier(tokens)
		log.Info().Msg("Navigation guard verifies token cookies")
	}

	handler, err := newHandler(handlerConfig{
		log:           log,
		users:         users,
		parking:       parking,
		tokens:        tokens,
		pipeline:      pipeline,
		navigator:     navigator,
		corsOrigins:   c.CORSOrigins,
		secureCookies: c.Cert != "",
	})
	if err != nil {
		return err
	}

	if c.Tracing {
		handler = otelhttp.NewHandler(handler, "parking-server")
	}

	return serve(ctx, configureHTTPServer(c.Listen, handler), c.Cert, c.Key)
}

type handlerConfig struct {
	log           zerolog.Logger
	users         store.UserStore
	parking       store.ParkingStore
	tokens        *auth.TokenIssuer
	pipeline      *assets.Pipeline
	navigator     *guard.Navigator
	corsOrigins   []string
	secureCookies bool
}

// pages maps each guarded route to the page rendered for it.
var pages = map[guard.Route]assets.Page{
	guard.RouteLogin:          {Template: "login", Title: "Login", EntryPoint: "ui/pages/login.ts"},
	guard.RouteAdminDashboard: {Template: "dashboard", Title: "Admin Dashboard", EntryPoint: "ui/pages/dashboard.ts"},
	guard.RouteUserDashboard:  {Template: "dashboard", Title: "User Dashboard", EntryPoint: "ui/pages/dashboard.ts"},
}

func newHandler(cfg handlerConfig) (http.Handler, error) {
	mux := http.NewServeMux()

	// Serve static assets
	mux.Handle(cfg.pipeline.PublicPath(), cfg.pipeline.Files())

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok"))
	})

	// JSON API
	mux.Handle("/api/", api.NewHandler(cfg.users, cfg.parking, cfg.tokens).WithSecureCookies(cfg.secureCookies).Routes())

	// Guarded pages, the server side twin of the browser router guard
	pageHandlers := make(map[guard.Route]http.Handler, len(pages))
	for _, route := range guard.Routes() {
		render, err := cfg.pipeline.Handler(pages[route], pageContext(route))
		if err != nil {
			return nil, fmt.Errorf("failed to create %s page: %w", route, err)
		}
		pageHandlers[route] = cfg.navigator.Middleware(route)(render)
	}
	mux.Handle("/", pageRouter(pageHandlers))

	// Cross-origin protection for every state changing request, the CORS
	// origins allowed to call the API are trusted
	protection := csrf.New()
	for _, origin := range cfg.corsOrigins {
		if origin == "*" {
			continue
		}
		if err := protection.AddTrustedOrigin(origin); err != nil {
			return nil, fmt.Errorf("failed to trust CORS origin: %w", err)
		}
	}

	apiHandler := withCORS(cfg.corsOrigins, protection.HandlerWithFailHandler(mux, http.HandlerFunc(crossOriginRejected)))
	pagesHandler := protection.Handler(mux)

	// API routes get CORS, HTML routes don't
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if isAPIRoute(r.URL.Path) {
			apiHandler.ServeHTTP(w, r)
		} else {
			pagesHandler.ServeHTTP(w, r)
		}
	})

	requests := logger.NewHTTPRequests(cfg.log)
	return httpmiddleware.ClientIPMiddleware(requests.Middleware(gzhttp.GzipHandler(handler))), nil
}

// pageRouter resolves the request path to a guarded route, tolerating a
// trailing slash, and hands it to that route's handler.
func pageRouter(handlers map[guard.Route]http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		route, ok := guard.RouteForPath(r.URL.Path)
		if !ok {
			http.NotFound(w, r)
			return
		}

		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			w.Header().Set("Allow", "GET, HEAD")
			http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
			return
		}

		handlers[route].ServeHTTP(w, r)
	})
}

func crossOriginRejected(w http.ResponseWriter, r *http.Request) {
	zerolog.Ctx(r.Context()).Warn().
		Str("origin", r.Header.Get("Origin")).
		Str("client_ip", httpmiddleware.ClientIPFromContext(r.Context())).
		Msg("Rejected cross-origin request")
	httpmiddleware.WriteError(w, http.StatusForbidden, "Cross-origin request rejected", httpmiddleware.CodeForbidden)
}

func pageContext(route guard.Route) func(r *http.Request) any {
	return func(r *http.Request) any {
		session, _ := guard.SessionFromContext(r.Context())
		return map[string]string{
			"route":       string(route),
			"fingerprint": guard.Fingerprint(session.Token),
		}
	}
}

// isAPIRoute returns true if the path is an API route that needs CORS
func isAPIRoute(path string) bool {
	return strings.HasPrefix(path, "/api/")
}

// withCORS adds CORS support to the JSON API.
func withCORS(allowedOrigins []string, h http.Handler) http.Handler {
	middleware := cors.New(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true, // Required for cookie-based authentication
	})
	return middleware.Handler(h)
}

// serve runs srv until ctx is cancelled, then drains in-flight requests.
func serve(ctx context.Context, srv *http.Server, cert, key string) error {
	log := zerolog.Ctx(ctx)

	errCh := make(chan error, 1)
	go func() {
		var err error
		if cert != "" {
			log.Info().Str("addr", srv.Addr).Msg("Starting HTTPS server")
			err = srv.ListenAndServeTLS(cert, key)
		} else {
			log.Info().Str("addr", srv.Addr).Msg("Starting HTTP server")
			err = srv.ListenAndServe()
		}
		if !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("Shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}

	return <-errCh
}
