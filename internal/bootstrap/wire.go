// Package bootstrap wires the engine's ports to concrete adapters and
// assembles the *http.Server the binary in api/cmd runs. Deps exists so
// tests can inject fakes for every external dependency without the
// wiring logic itself changing.
package bootstrap

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/kestrelauth/authn-engine/internal/application/auth"
	"github.com/kestrelauth/authn-engine/internal/audit"
	"github.com/kestrelauth/authn-engine/internal/config"
	"github.com/kestrelauth/authn-engine/internal/infrastructure/configcache"
	"github.com/kestrelauth/authn-engine/internal/infrastructure/identityprovider"
	"github.com/kestrelauth/authn-engine/internal/infrastructure/memory"
	"github.com/kestrelauth/authn-engine/internal/infrastructure/messaging/rabbitmq"
	"github.com/kestrelauth/authn-engine/internal/infrastructure/postgres"
	infraredis "github.com/kestrelauth/authn-engine/internal/infrastructure/redis"
	"github.com/kestrelauth/authn-engine/internal/infrastructure/security"
	"github.com/kestrelauth/authn-engine/internal/logger"
	"github.com/kestrelauth/authn-engine/internal/transport/http/handlers"
	"github.com/kestrelauth/authn-engine/internal/transport/http/middleware"
	"github.com/kestrelauth/authn-engine/internal/transport/http/router"
)

/*
========================
 Public entry (prod)
========================
*/

func NewServer() (*http.Server, func(), error) {
	return newServer(defaultDeps())
}

// NewServerWithDeps allows injecting dependencies for testing.
func NewServerWithDeps(deps Deps) (*http.Server, func(), error) {
	return newServer(deps)
}

/*
========================
 Dependency injection
========================
*/

// Deps lets tests substitute every side-effecting construction step
// (DB/Redis/broker dialing, router assembly) while exercising the same
// wiring logic production runs through. NewDB/NewRedis return nil
// without error to mean "not configured", not "failed".
type Deps struct {
	LoadConfig func() (*config.Config, error)

	NewDB        func(dsn string) (*sql.DB, error)
	NewMemory    func() auth.Storage
	NewRedis     func(addr, password string, db int) *infraredis.Client
	NewPublisher func(url string) (auth.EventPublisher, error)
	NewRouter    func(router.Deps) (http.Handler, error)
}

func runCleanup(fns []func()) {
	for i := len(fns) - 1; i >= 0; i-- {
		fns[i]()
	}
}

/*
========================
 Core bootstrap logic
========================
*/

func newServer(deps Deps) (*http.Server, func(), error) {
	logger.Init()

	cfg, err := deps.LoadConfig()
	if err != nil {
		return nil, nil, err
	}

	var cleanupFns []func()
	cleanup := func() { runCleanup(cleanupFns) }

	// 1) storage: Postgres if DBAddr is set, else the in-memory adapter
	// (local development, tests). Either way it's wrapped in the config
	// cache (C5).
	var storage auth.Storage
	var sqlDB *sql.DB
	if cfg.DBAddr != "" {
		sqlDB, err = deps.NewDB(cfg.DBAddr)
		if err != nil {
			cleanup()
			return nil, nil, err
		}
		cleanupFns = append(cleanupFns, func() { _ = sqlDB.Close() })
		if err := postgres.EnsureSchema(context.Background(), sqlDB); err != nil {
			cleanup()
			return nil, nil, err
		}
		storage = postgres.New(sqlDB)
		logger.Logger.Info().Msg("using postgres storage")
	} else {
		storage = deps.NewMemory()
		logger.Logger.Warn().Msg("DB_ADDR not set; using in-memory storage")
	}
	cachedStorage := configcache.New(storage, cfg.ConfigCacheRefreshInterval)

	// 2) redis (best-effort: rate limiting and OAuth state degrade
	// gracefully rather than block startup).
	var redisCli *infraredis.Client
	if cfg.RedisAddr != "" && deps.NewRedis != nil {
		c := deps.NewRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		pingErr := c.Ping(ctx)
		cancel()
		if pingErr != nil {
			logger.Logger.Warn().Err(pingErr).Msg("redis unavailable; rate limiting and oauth state disabled")
		} else {
			redisCli = c
			logger.Logger.Info().Msg("redis connected")
		}
	}
	stateStore := infraredis.NewOAuthStateStore(redisCli, cfg.OAuthStateTTL)
	fwLimiter := infraredis.NewFixedWindowLimiter(redisCli)

	// 3) identity providers
	var providers []auth.IdentityProvider
	if cfg.GlobusConfigured() {
		globus, err := identityprovider.NewGlobusProvider(identityprovider.Config{
			Name:             "globus",
			LoginBaseURL:     cfg.GlobusLoginBaseURL,
			APIBaseURL:       cfg.GlobusAPIBaseURL,
			ClientID:         cfg.GlobusClientID,
			ClientSecret:     cfg.GlobusClientSecret,
			ImageURI:         cfg.GlobusImageURI,
			LoginRedirectURL: cfg.GlobusLoginRedirectURL,
			LinkRedirectURL:  cfg.GlobusLinkRedirectURL,
		})
		if err != nil {
			cleanup()
			return nil, nil, err
		}
		providers = append(providers, globus)
		logger.Logger.Info().Msg("globus identity provider configured")
	}
	if cfg.GoogleConfigured() {
		google, err := identityprovider.NewGoogleProvider(identityprovider.Config{
			Name:             "google",
			ClientID:         cfg.GoogleClientID,
			ClientSecret:     cfg.GoogleClientSecret,
			ImageURI:         cfg.GoogleImageURI,
			LoginRedirectURL: cfg.GoogleLoginRedirectURL,
			LinkRedirectURL:  cfg.GoogleLinkRedirectURL,
		})
		if err != nil {
			cleanup()
			return nil, nil, err
		}
		providers = append(providers, google)
		logger.Logger.Info().Msg("google identity provider configured")
	}
	registry := identityprovider.NewRegistry(providers...)

	// 4) event publisher (rabbitmq, falling back to a logging no-op in
	// dev when the broker is unreachable)
	pub, err := deps.NewPublisher(cfg.RabbitURL)
	if err != nil {
		if cfg.Env == "dev" {
			logger.Logger.Warn().Err(err).Msg("rabbitmq unavailable; using noop publisher")
			pub = memory.NewNoopPublisher()
		} else {
			cleanup()
			return nil, nil, err
		}
	} else if c, ok := pub.(interface{ Close() error }); ok {
		cleanupFns = append(cleanupFns, func() { _ = c.Close() })
	}

	// 5) crypto + engine
	crypto := security.NewPBKDF2Crypto(security.DefaultIterations)
	engine := auth.New(cachedStorage, crypto, registry, pub)
	engine = engine.WithAudit(audit.New(logger.Logger).Log)

	// 6) seed ROOT
	if cfg.RootInitPassword != "" {
		if err := engine.CreateRoot(context.Background(), []byte(cfg.RootInitPassword)); err != nil {
			cleanup()
			return nil, nil, err
		}
		logger.Logger.Info().Msg("root account ensured")
	}

	// 7) handlers
	var dbPinger handlers.Pinger
	if sqlDB != nil {
		dbPinger = sqlDB
	}
	healthH := handlers.NewHealthHandler(dbPinger)
	localH := handlers.NewLocalHandler(engine)
	adminH := handlers.NewAdminHandler(engine)
	tokenH := handlers.NewTokenHandler(engine)

	var oauthH *handlers.OAuthHandler
	if len(providers) > 0 && redisCli != nil {
		oauthH = handlers.NewOAuthHandler(engine, registry, cachedStorage, stateStore)
	}

	rl := func(key string, limit int, window time.Duration) func(http.Handler) http.Handler {
		if fwLimiter == nil {
			return nil
		}
		return middleware.RateLimitFixedWindow(fwLimiter, middleware.FixedWindowConfig{
			RouteKey: key,
			Limit:    limit,
			Window:   window,
		})
	}

	routerDeps := router.Deps{
		Health:     healthH,
		Local:      localH,
		Admin:      adminH,
		Token:      tokenH,
		RLLogin:    rl("auth.login", 10, time.Minute),
		RLPassword: rl("auth.password.change", 10, time.Minute),
		RLAdmin:    rl("auth.admin", 60, time.Minute),
		RLOAuth:    rl("auth.oauth", 30, time.Minute),
	}
	if oauthH != nil {
		routerDeps.OAuth = oauthH
	}

	mux, err := deps.NewRouter(routerDeps)
	if err != nil {
		cleanup()
		return nil, nil, err
	}

	srv := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      mux,
		ReadTimeout:  cfg.HTTPReadTimeout,
		WriteTimeout: cfg.HTTPWriteTimeout,
		IdleTimeout:  cfg.HTTPIdleTimeout,
	}

	return srv, cleanup, nil
}

/*
========================
 Default deps (prod)
========================
*/

func defaultDeps() Deps {
	return Deps{
		LoadConfig:   config.Load,
		NewDB:        postgres.NewDB,
		NewMemory:    func() auth.Storage { return memory.New() },
		NewRedis:     infraredis.New,
		NewPublisher: func(url string) (auth.EventPublisher, error) { return rabbitmq.NewPublisher(url) },
		NewRouter:    router.New,
	}
}
