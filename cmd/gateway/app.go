package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"

	"github.com/sendrelay/smsgw/internal/auth/apikey"
	"github.com/sendrelay/smsgw/internal/authz"
	"github.com/sendrelay/smsgw/internal/config"
	"github.com/sendrelay/smsgw/internal/gateway"
	"github.com/sendrelay/smsgw/internal/health"
	"github.com/sendrelay/smsgw/internal/middleware"
	"github.com/sendrelay/smsgw/internal/observability"
	"github.com/sendrelay/smsgw/internal/router"
	"github.com/sendrelay/smsgw/internal/transform"
	"github.com/sendrelay/smsgw/internal/upstream"
)

// application holds all gateway components.
type application struct {
	config        *config.GatewayConfig
	logger        observability.Logger
	metrics       *observability.Metrics
	tracer        *observability.Tracer
	healthChecker *health.Checker
	rateLimiter   *middleware.KeyRateLimiter
	redisClient   *redis.Client

	mainServer    *http.Server
	metricsServer *http.Server
}

// newApplication wires all components from the configuration.
func newApplication(cfg *config.GatewayConfig, logger observability.Logger) *application {
	metrics := observability.NewMetrics("smsgw")
	metrics.SetBuildInfo(version, gitCommit, buildTime)

	tracer, err := observability.NewTracer(observability.TracerConfig{
		ServiceName:  "smsgw",
		Enabled:      cfg.Tracing.Enabled,
		OTLPEndpoint: cfg.Tracing.OTLPEndpoint,
		SamplingRate: cfg.Tracing.SamplingRate,
	})
	if err != nil {
		logger.Fatal("failed to initialize tracer", observability.Error(err))
	}

	app := &application{
		config:  cfg,
		logger:  logger,
		metrics: metrics,
		tracer:  tracer,
	}

	store := app.buildKeyStore()

	validator, err := apikey.NewValidator(store,
		apikey.WithHashAlgorithm(cfg.Auth.HashAlgorithm),
		apikey.WithValidatorLogger(logger),
		apikey.WithValidatorMetrics(apikey.NewMetricsWithRegisterer("smsgw", metrics.Registry())),
	)
	if err != nil {
		logger.Fatal("failed to create API key validator", observability.Error(err))
	}

	table := app.buildRouteTable()

	rateLimiterOpts := []middleware.KeyRateLimiterOption{
		middleware.WithRateLimiterLogger(logger),
		middleware.WithRateLimiterMetrics(metrics),
	}
	if ttl := cfg.RateLimit.KeyTTL.Duration(); ttl > 0 {
		rateLimiterOpts = append(rateLimiterOpts, middleware.WithKeyTTL(ttl))
	}
	app.rateLimiter = middleware.NewKeyRateLimiter(
		cfg.RateLimit.DefaultRPS, cfg.RateLimit.DefaultBurst, rateLimiterOpts...)

	gw := gateway.New(table,
		gateway.WithLogger(logger),
		gateway.WithGate(authz.NewGate(
			authz.WithGateLogger(logger),
			authz.WithGateMetrics(authz.NewMetricsWithRegisterer("smsgw", metrics.Registry())),
		)),
		gateway.WithTransformer(transform.NewTransformer(
			transform.WithTransformerLogger(logger),
		)),
		gateway.WithRouteRateLimiter(app.rateLimiter),
	)
	handler := gateway.NewHandler(gw, logger)

	app.healthChecker = health.NewChecker(version, table.Len)

	app.mainServer = &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      app.buildMiddlewareChain(handler, validator),
		ReadTimeout:  cfg.Server.ReadTimeout.Duration(),
		WriteTimeout: cfg.Server.WriteTimeout.Duration(),
		IdleTimeout:  cfg.Server.IdleTimeout.Duration(),
	}

	app.metricsServer = &http.Server{
		Addr:         cfg.Metrics.Address,
		Handler:      app.buildAdminMux(handler),
		ReadTimeout:  cfg.Server.ReadTimeout.Duration(),
		WriteTimeout: cfg.Server.WriteTimeout.Duration(),
	}

	return app
}

// buildKeyStore creates the configured API key store.
func (app *application) buildKeyStore() apikey.Store {
	cfg := app.config

	if cfg.Auth.Store == config.StoreRedis {
		app.redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Auth.Redis.Address,
			Password: cfg.Auth.Redis.Password,
			DB:       cfg.Auth.Redis.DB,
		})

		opts := []apikey.RedisStoreOption{apikey.WithRedisLogger(app.logger)}
		if cfg.Auth.Redis.KeyPrefix != "" {
			opts = append(opts, apikey.WithRedisKeyPrefix(cfg.Auth.Redis.KeyPrefix))
		}

		app.logger.Info("using redis API key store",
			observability.String("address", cfg.Auth.Redis.Address),
		)
		return apikey.NewRedisStore(app.redisClient, opts...)
	}

	store := apikey.NewMemoryStore()

	keys := make([]*apikey.APIKey, 0, len(cfg.Auth.Keys))
	for _, kc := range cfg.Auth.Keys {
		keys = append(keys, &apikey.APIKey{
			ID:          kc.ID,
			UserID:      kc.UserID,
			Name:        kc.Name,
			SecretHash:  kc.SecretHash,
			Permissions: kc.Permissions,
			RateLimit:   kc.RateLimit,
			Enabled:     kc.Enabled,
			ExpiresAt:   kc.ExpiresAt,
		})
	}
	store.LoadKeys(keys)

	app.logger.Info("using in-memory API key store",
		observability.Int("keys", store.Count()),
	)
	return store
}

// buildRouteTable creates upstream clients and registers all configured
// routes.
func (app *application) buildRouteTable() *router.Table {
	clients := make(map[string]*upstream.Client, len(app.config.Upstreams))
	for _, up := range app.config.Upstreams {
		opts := []upstream.ClientOption{
			upstream.WithClientLogger(app.logger),
			upstream.WithClientMetrics(app.metrics),
		}
		if up.Timeout.Duration() > 0 {
			opts = append(opts, upstream.WithHTTPClient(&http.Client{
				Timeout: up.Timeout.Duration(),
			}))
		}
		if up.Breaker.Threshold > 0 {
			opts = append(opts, upstream.WithBreakerSettings(
				up.Breaker.Threshold, up.Breaker.Timeout.Duration()))
		}
		clients[up.Name] = upstream.NewClient(up.Name, up.URL, opts...)
	}

	table := router.NewTable(router.WithTableMetrics(
		router.NewMetricsWithRegisterer("smsgw", app.metrics.Registry())))
	for _, route := range app.config.Routes {
		client := clients[route.Upstream]
		if _, ok := table.Lookup(route.Method, route.Pattern); ok {
			app.logger.Warn("duplicate route in config, replacing earlier entry",
				observability.String("method", route.Method),
				observability.String("pattern", route.Pattern),
			)
		}
		table.Register(router.Mapping{
			Method:              route.Method,
			Pattern:             route.Pattern,
			Handler:             client.Handler(route.UpstreamPath),
			RequiredPermissions: route.Permissions,
			RateLimit:           route.RateLimit,
		})
	}

	return table
}

// buildMiddlewareChain wraps the gateway handler, outermost last.
func (app *application) buildMiddlewareChain(handler http.Handler, validator apikey.Validator) http.Handler {
	h := handler

	h = middleware.RateLimit(app.rateLimiter)(h)
	h = middleware.Logging(app.logger)(h)
	h = middleware.Auth(validator, app.logger)(h)
	h = observability.MetricsMiddleware(app.metrics)(h)
	h = middleware.RequestID()(h)
	h = middleware.Recovery(app.logger)(h)

	return h
}

// buildAdminMux serves metrics, probes, and the route listing.
func (app *application) buildAdminMux(handler *gateway.Handler) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", app.metrics.Handler())
	mux.HandleFunc("/health", app.healthChecker.HealthHandler())
	mux.HandleFunc("/ready", app.healthChecker.ReadinessHandler())
	mux.HandleFunc("/live", app.healthChecker.LivenessHandler())
	mux.HandleFunc("/routes", handler.DocsHandler())
	return mux
}

// run starts both servers and blocks until a shutdown signal arrives.
func (app *application) run() {
	if app.redisClient != nil {
		app.healthChecker.RegisterCheck("redis", app.redisCheck)
	}

	go func() {
		app.logger.Info("starting admin server",
			observability.String("address", app.metricsServer.Addr),
		)
		if err := app.metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			app.logger.Error("admin server error", observability.Error(err))
		}
	}()

	go func() {
		app.logger.Info("starting gateway server",
			observability.String("address", app.mainServer.Addr),
		)
		if err := app.mainServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			app.logger.Fatal("gateway server error", observability.Error(err))
		}
	}()

	app.waitForShutdown()
}

// redisCheck reports whether the Redis key store is reachable.
func (app *application) redisCheck() health.Check {
	ctx, cancel := context.WithTimeout(context.Background(), app.config.Server.ReadTimeout.Duration())
	defer cancel()

	if err := app.redisClient.Ping(ctx).Err(); err != nil {
		return health.Check{Status: health.StatusUnhealthy, Message: err.Error()}
	}
	return health.Check{Status: health.StatusHealthy}
}

// waitForShutdown blocks on SIGINT/SIGTERM and drains both servers.
func (app *application) waitForShutdown() {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	app.logger.Info("received shutdown signal", observability.String("signal", sig.String()))

	shutdownCtx, cancel := context.WithTimeout(context.Background(), app.config.Server.ShutdownTimeout.Duration())
	defer cancel()

	if err := app.mainServer.Shutdown(shutdownCtx); err != nil {
		app.logger.Error("failed to stop gateway server gracefully", observability.Error(err))
	}

	if err := app.metricsServer.Shutdown(shutdownCtx); err != nil {
		app.logger.Error("failed to stop admin server gracefully", observability.Error(err))
	}

	app.rateLimiter.Stop()

	if app.redisClient != nil {
		if err := app.redisClient.Close(); err != nil {
			app.logger.Error("failed to close redis client", observability.Error(err))
		}
	}

	if err := app.tracer.Shutdown(shutdownCtx); err != nil {
		app.logger.Error("failed to shutdown tracer", observability.Error(err))
	}

	app.logger.Info("gateway stopped")
}
