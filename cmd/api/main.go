package main

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/extra/redisotel/v9"
	redis "github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/noah-isme/pos-gateway/internal/auth"
	"github.com/noah-isme/pos-gateway/internal/cart"
	"github.com/noah-isme/pos-gateway/internal/catalog"
	"github.com/noah-isme/pos-gateway/internal/chat"
	"github.com/noah-isme/pos-gateway/internal/checkout"
	"github.com/noah-isme/pos-gateway/internal/common"
	"github.com/noah-isme/pos-gateway/internal/config"
	"github.com/noah-isme/pos-gateway/internal/events"
	"github.com/noah-isme/pos-gateway/internal/health"
	"github.com/noah-isme/pos-gateway/internal/notify"
	"github.com/noah-isme/pos-gateway/internal/obs"
	"github.com/noah-isme/pos-gateway/internal/pricing"
	"github.com/noah-isme/pos-gateway/internal/ratelimit"
	"github.com/noah-isme/pos-gateway/internal/resilience"
	"github.com/noah-isme/pos-gateway/internal/supplier"
	"github.com/noah-isme/pos-gateway/internal/upstream"
)

// version is overridden at build time via -ldflags "-X main.version=...".
var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logFormat := envOrDefault("OBS_LOG_FORMAT", "json")
	logLevel := envOrDefault("OBS_LOG_LEVEL", "info")
	logger := obs.NewLogger(logFormat, logLevel).With().Str("env", cfg.AppEnv).Logger()

	metricsNamespace := envOrDefault("OBS_METRICS_NAMESPACE", "pos")
	metricsEnabled := envBool("OBS_ENABLE_PROMETHEUS", true)
	obs.MustRegisterDomainMetrics(metricsNamespace, nil)

	tracingEnabled := envBool("OBS_ENABLE_TRACING", true)
	if tracingEnabled {
		sampling := envFloat("OBS_TRACING_SAMPLING_RATIO", 1.0)
		shutdown, err := obs.InitTracer(context.Background(), obs.TracingConfig{
			ServiceName:    "pos-gateway",
			ServiceVersion: version,
			Endpoint:       envOrDefault("OBS_OTLP_ENDPOINT", ""),
			Exporter:       envOrDefault("OBS_TRACING_EXPORTER", "otlp"),
			SamplingRatio:  sampling,
			Environment:    cfg.AppEnv,
		})
		if err != nil {
			logger.Error().Err(err).Msg("initialise tracing")
			tracingEnabled = false
		} else {
			defer func() {
				ctx := context.Background()
				if err := shutdown(ctx); err != nil {
					logger.Error().Err(err).Msg("shutdown tracer")
				}
			}()
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse redis url")
	}
	redisClient := redis.NewClient(redisOpts)
	if err := redisotel.InstrumentTracing(redisClient); err != nil {
		logger.Error().Err(err).Msg("instrument redis tracing")
	}
	if metricsEnabled {
		if err := redisotel.InstrumentMetrics(redisClient); err != nil {
			logger.Error().Err(err).Msg("instrument redis metrics")
		}
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Error().Err(err).Msg("close redis")
		}
	}()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Fatal().Err(err).Msg("ping redis")
	}

	breaker := resilience.NewBreaker(cfg.CircuitMinRequests, cfg.CircuitFailureRate, cfg.CircuitOpenFor).
		WithTarget("inventory", &logger)
	upstreamHTTP := resilience.HTTPClient{
		Client:      &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)},
		Breaker:     breaker,
		BaseBackoff: cfg.RetryBaseBackoff,
		MaxAttempts: cfg.RetryMaxAttempts,
		Jitter:      cfg.RetryJitterPercent,
		Timeout:     cfg.UpstreamTimeout,
		Target:      "inventory",
		Logger:      &logger,
	}
	inventory := upstream.New(cfg.UpstreamBaseURL, upstreamHTTP, logger)

	catalogService, err := catalog.NewService(catalog.ServiceConfig{
		Source:       inventory,
		Cache:        catalog.NewCache(redisClient, cfg.CatalogCacheTTL),
		DefaultLimit: cfg.CatalogDefaultLimit,
		MaxLimit:     cfg.CatalogMaxLimit,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("initialise catalog service")
	}
	catalogHandler := catalog.NewHandler(catalogService)
	supplierHandler := supplier.NewHandler(inventory)

	verifier := auth.NewVerifier(cfg.JWTSecret)
	authMiddleware := auth.Middleware{Verifier: verifier}
	authHandler := auth.NewHandler(inventory)

	idem := common.Idem{R: redisClient, TTL: cfg.IdempotencyTTL}

	cartStore := cart.NewStore(cfg.CartTTL)
	go cartStore.Janitor(context.Background(), time.Minute)
	cartHandler := &cart.Handler{
		Store:    cartStore,
		Products: catalogService,
		Currency: cfg.CurrencyCode,
	}

	pricingHandler := &pricing.Handler{}

	taskClient := asynq.NewClient(asynq.RedisClientOpt{
		Addr:     redisOpts.Addr,
		Username: redisOpts.Username,
		Password: redisOpts.Password,
		DB:       redisOpts.DB,
	})
	defer func() {
		if err := taskClient.Close(); err != nil {
			logger.Error().Err(err).Msg("close task client")
		}
	}()
	receipts := notify.Enqueuer{
		Client:   taskClient,
		MaxRetry: cfg.ReceiptMaxRetry,
		Logger:   logger,
	}

	bus := &events.Bus{
		Notifiers: []events.Notifier{
			events.NotifierFunc(func(_ context.Context, event events.Event) error {
				logger.Info().
					Str("topic", event.Topic).
					Str("aggregate_id", event.AggregateID).
					Msg("event_emitted")
				return nil
			}),
		},
	}

	checkoutSvc := &checkout.Service{
		Sales:    inventory,
		Bus:      bus,
		Receipts: receipts,
		Currency: cfg.CurrencyCode,
		Logger:   logger,
	}
	checkoutHandler := &checkout.Handler{Store: cartStore, Service: checkoutSvc}
	salesHandler := &checkout.HistoryHandler{Source: inventory}

	var chatPrimary chat.Provider
	if cfg.ChatAPIKey != "" {
		chatPrimary = &chat.OpenAIProvider{
			BaseURL: cfg.ChatBaseURL,
			APIKey:  cfg.ChatAPIKey,
			Model:   cfg.ChatModel,
			HTTP:    upstreamHTTP,
		}
	}
	chatHandler := &chat.Handler{
		Primary:  chatPrimary,
		Fallback: chat.KeywordProvider{},
		Logger:   logger,
	}

	chatLimiter, err := ratelimit.New(redisClient, "ratelimit:chat", cfg.ChatRPM)
	if err != nil {
		logger.Fatal().Err(err).Msg("initialise chat rate limiter")
	}
	loginLimiter, err := ratelimit.New(redisClient, "ratelimit:login", cfg.LoginRPM)
	if err != nil {
		logger.Fatal().Err(err).Msg("initialise login rate limiter")
	}
	limitErrLog := func(err error) {
		logger.Warn().Err(err).Msg("rate_limit_store_error")
	}
	chatLimit := ratelimit.Middleware{Limiter: chatLimiter, OnError: limitErrLog}
	loginLimit := ratelimit.Middleware{Limiter: loginLimiter, OnError: limitErrLog}

	var httpMetrics *obs.HTTPMetrics
	if metricsEnabled {
		buckets := obs.ParseBucketsCSV(envOrDefault("OBS_METRICS_BUCKETS_MS", ""))
		httpMetrics = obs.NewHTTPMetrics(metricsNamespace, buckets, nil)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(obs.RoutePatternMiddleware)
	if tracingEnabled {
		r.Use(obs.TracingMiddleware)
	}
	if metricsEnabled && httpMetrics != nil {
		r.Use(obs.HTTPObs{Metrics: httpMetrics}.Middleware)
	}
	r.Use(obs.RequestLogger{Logger: logger}.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins(cfg),
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Idempotency-Key"},
		ExposedHeaders:   []string{"Link", "X-RateLimit-Remaining"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	if metricsEnabled {
		r.Handle("/metrics", promhttp.Handler())
	}
	pprofEnabled := envBool("OBS_ENABLE_PPROF", true)
	if pprofEnabled {
		user := envOrDefault("SECURE_PPROF_BASIC_AUTH_USER", "")
		pass := envOrDefault("SECURE_PPROF_BASIC_AUTH_PASS", "")
		r.Mount("/debug/pprof", protectPprof(newPprofMux(), user, pass))
	}

	healthHandler := health.Handler{
		Checker: health.Probes{
			Redis:       redisClient,
			HTTP:        &http.Client{Timeout: envDurationMillis("HEALTH_READY_UPSTREAM_TIMEOUT_MS", 1000)},
			UpstreamURL: cfg.UpstreamBaseURL,
		},
		RedisTimeout:    envDurationMillis("HEALTH_READY_REDIS_TIMEOUT_MS", 300),
		UpstreamTimeout: envDurationMillis("HEALTH_READY_UPSTREAM_TIMEOUT_MS", 1000),
	}
	r.Get("/health/live", healthHandler.Live)
	r.Get("/health/ready", healthHandler.Ready)

	r.Route("/api/v1", func(v chi.Router) {
		v.Route("/auth", func(a chi.Router) {
			a.With(loginLimit.Handle).Post("/login", authHandler.Login)
			a.Post("/register", authHandler.Register)
			a.With(authMiddleware.RequireAuth).Get("/me", authHandler.Me)
		})

		// reads don't reject unauthenticated callers here, but the caller's
		// token must reach the inventory service, which does
		v.Group(func(reads chi.Router) {
			reads.Use(authMiddleware.Authenticate)
			reads.Get("/products", catalogHandler.List)
			reads.Get("/products/search", catalogHandler.Search)
			reads.Get("/products/barcode/{barcode}", catalogHandler.GetByBarcode)
			reads.Get("/products/{id}", catalogHandler.Get)
			reads.Get("/categories", catalogHandler.Categories)
		})

		v.Group(func(protected chi.Router) {
			protected.Use(authMiddleware.RequireAuth)

			protected.Post("/products", catalogHandler.Create)
			protected.Put("/products/{id}", catalogHandler.Update)
			protected.Delete("/products/{id}", catalogHandler.Delete)

			protected.Post("/categories", catalogHandler.CreateCategory)
			protected.Put("/categories/{id}", catalogHandler.UpdateCategory)
			protected.Delete("/categories/{id}", catalogHandler.DeleteCategory)

			protected.Get("/suppliers", supplierHandler.List)
			protected.Post("/suppliers", supplierHandler.Create)
			protected.Get("/suppliers/{id}", supplierHandler.Get)
			protected.Put("/suppliers/{id}", supplierHandler.Update)
			protected.Delete("/suppliers/{id}", supplierHandler.Delete)

			protected.Get("/sales", salesHandler.List)
			protected.Get("/sales/{id}", salesHandler.Get)
		})

		v.Route("/carts", func(c chi.Router) {
			c.Use(authMiddleware.Authenticate)
			c.Post("/", cartHandler.Create)
			c.Route("/{id}", func(one chi.Router) {
				one.Get("/", cartHandler.Get)
				one.Delete("/", cartHandler.Clear)
				one.Post("/items", cartHandler.AddItem)
				one.Patch("/items/{productId}", cartHandler.UpdateItem)
				one.Delete("/items/{productId}", cartHandler.RemoveItem)
				one.With(idem.Middleware, authMiddleware.RequireAuth).Post("/checkout", checkoutHandler.Checkout)
			})
		})

		v.Post("/pricing/recalculate", pricingHandler.Recalculate)
		v.With(chatLimit.Handle).Post("/chat", chatHandler.Respond)
	})

	srv := &http.Server{
		Addr:    cfg.HTTPAddr(),
		Handler: r,
	}

	go func() {
		logger.Info().Str("addr", srv.Addr).Msg("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server exited unexpectedly")
		}
	}()

	stopCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-stopCtx.Done()

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancelShutdown()
	logger.Info().Msg("server stopping")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("shutdown server")
	}
}

func allowedOrigins(cfg *config.Config) []string {
	if len(cfg.CORSAllowedOrigins) == 0 {
		return []string{"*"}
	}
	return cfg.CORSAllowedOrigins
}

func envOrDefault(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		trimmed := strings.TrimSpace(val)
		if trimmed != "" {
			return trimmed
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if val, ok := os.LookupEnv(key); ok {
		switch strings.ToLower(strings.TrimSpace(val)) {
		case "1", "t", "true", "yes", "on":
			return true
		case "0", "f", "false", "no", "off":
			return false
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if val, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.ParseFloat(strings.TrimSpace(val), 64); err == nil {
			return parsed
		}
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if val, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.Atoi(strings.TrimSpace(val)); err == nil {
			return parsed
		}
	}
	return fallback
}

func envDurationMillis(key string, fallback int) time.Duration {
	return time.Duration(envInt(key, fallback)) * time.Millisecond
}

func newPprofMux() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", pprof.Index)
	mux.HandleFunc("/cmdline", pprof.Cmdline)
	mux.HandleFunc("/profile", pprof.Profile)
	mux.HandleFunc("/symbol", pprof.Symbol)
	mux.HandleFunc("/trace", pprof.Trace)
	mux.Handle("/allocs", pprof.Handler("allocs"))
	mux.Handle("/block", pprof.Handler("block"))
	mux.Handle("/goroutine", pprof.Handler("goroutine"))
	mux.Handle("/heap", pprof.Handler("heap"))
	mux.Handle("/mutex", pprof.Handler("mutex"))
	mux.Handle("/threadcreate", pprof.Handler("threadcreate"))
	return mux
}

func protectPprof(handler http.Handler, user, pass string) http.Handler {
	user = strings.TrimSpace(user)
	pass = strings.TrimSpace(pass)
	if user == "" {
		return handler
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, p, ok := r.BasicAuth()
		if !ok ||
			subtle.ConstantTimeCompare([]byte(u), []byte(user)) != 1 ||
			subtle.ConstantTimeCompare([]byte(p), []byte(pass)) != 1 {
			w.Header().Set("WWW-Authenticate", `Basic realm="pprof"`)
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		handler.ServeHTTP(w, r)
	})
}
