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

	"github.com/noah-isme/kasir-bff/internal/cart"
	"github.com/noah-isme/kasir-bff/internal/checkout"
	"github.com/noah-isme/kasir-bff/internal/common"
	"github.com/noah-isme/kasir-bff/internal/config"
	"github.com/noah-isme/kasir-bff/internal/dashboard"
	"github.com/noah-isme/kasir-bff/internal/health"
	"github.com/noah-isme/kasir-bff/internal/intake"
	"github.com/noah-isme/kasir-bff/internal/obs"
	"github.com/noah-isme/kasir-bff/internal/printjob"
	"github.com/noah-isme/kasir-bff/internal/ratelimit"
	"github.com/noah-isme/kasir-bff/internal/security"
	"github.com/noah-isme/kasir-bff/internal/session"
	"github.com/noah-isme/kasir-bff/internal/upstream"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logFormat := envOrDefault("OBS_LOG_FORMAT", "json")
	logLevel := envOrDefault("OBS_LOG_LEVEL", "info")
	logger := obs.NewLogger(logFormat, logLevel).With().Str("env", cfg.AppEnv).Logger()

	metricsNamespace := envOrDefault("OBS_METRICS_NAMESPACE", "kasir")
	metricsEnabled := envBool("OBS_ENABLE_PROMETHEUS", true)
	obs.MustRegisterDomainMetrics(metricsNamespace, nil)

	tracingEnabled := envBool("OBS_ENABLE_TRACING", false)
	if tracingEnabled {
		shutdown, err := obs.InitTracer(context.Background(), obs.TracingConfig{
			ServiceName:   "kasir-bff",
			Endpoint:      envOrDefault("OBS_OTLP_ENDPOINT", ""),
			SamplingRatio: envFloat("OBS_TRACING_SAMPLING_RATIO", 1.0),
			Environment:   cfg.AppEnv,
		})
		if err != nil {
			logger.Error().Err(err).Msg("initialise tracing")
			tracingEnabled = false
		} else {
			defer func() {
				if err := shutdown(context.Background()); err != nil {
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
	if tracingEnabled {
		if err := redisotel.InstrumentTracing(redisClient); err != nil {
			logger.Error().Err(err).Msg("instrument redis tracing")
		}
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

	apiServer := upstream.New(cfg.UpstreamBaseURL, cfg.UpstreamTimeout)
	apiServer.HTTP.Breaker.WithLogger(logger)

	var printQueue *asynq.Client
	if cfg.PrinterURL != "" {
		printQueue = asynq.NewClient(asynq.RedisClientOpt{
			Addr:     redisOpts.Addr,
			Password: redisOpts.Password,
			DB:       redisOpts.DB,
		})
		defer func() {
			if err := printQueue.Close(); err != nil {
				logger.Error().Err(err).Msg("close print queue client")
			}
		}()
	}

	cartStore := &cart.Store{R: redisClient, TTL: cfg.CartTTL}
	cartHandler := &cart.Handler{Store: cartStore, MemberDiscountBps: cfg.MemberDiscountBps}
	intakeHandler := intake.NewHandler(apiServer)
	checkoutHandler := &checkout.Handler{
		Carts:    cartStore,
		Upstream: apiServer,
		Printer:  &printjob.Enqueuer{Client: printQueue, Logger: logger},
		Logger:   logger,
	}
	dashboardHandler := &dashboard.Handler{
		Upstream: apiServer,
		R:        redisClient,
		TTL:      cfg.DashboardCacheTTL,
		Logger:   logger,
	}
	sessionHandler := &session.Handler{
		Upstream:   apiServer,
		CookieName: cfg.AuthCookieName,
		CookieTTL:  cfg.AuthCookieTTL,
		Domain:     cfg.CookieDomain,
		Secure:     cfg.CookieSecure,
		SameSite:   cfg.CookieSameSite,
	}
	sessionMW := session.Middleware{CookieName: cfg.AuthCookieName}
	idem := common.Idem{R: redisClient, TTL: cfg.IdempotencyTTL}
	loginLimit := ratelimit.Handler{
		Limiter: ratelimit.Limiter{Client: redisClient},
		Config:  ratelimit.Config{Key: ratelimit.LoginKey, Window: cfg.LoginRateWindow, Max: cfg.LoginRateMax},
		OnError: func(err error) {
			logger.Warn().Err(err).Msg("login rate limiter")
		},
	}

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
		r.Use(obs.HTTPMetricsMiddleware(httpMetrics))
	}
	r.Use(obs.RequestLogger{Logger: logger}.Middleware)
	r.Use(security.Headers{
		Enable:     envBool("SECURE_HEADERS", true),
		EnableHSTS: envBool("SECURE_HSTS", false),
	}.Middleware)
	r.Use(security.BodyLimit{Max: int64(envInt("SECURE_MAX_BODY_BYTES", 1<<20))}.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins(cfg),
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Content-Type", "Idempotency-Key", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	if metricsEnabled {
		r.Handle("/metrics", promhttp.Handler())
	}
	if envBool("OBS_ENABLE_PPROF", false) {
		user := envOrDefault("SECURE_PPROF_BASIC_AUTH_USER", "")
		pass := envOrDefault("SECURE_PPROF_BASIC_AUTH_PASS", "")
		r.Mount("/debug/pprof", protectPprof(newPprofMux(), user, pass))
	}

	healthHandler := health.Handler{
		Checker: health.Probes{
			Redis:       redisClient,
			UpstreamURL: cfg.UpstreamBaseURL,
		},
		RedisTimeout:    envDurationMillis("HEALTH_READY_REDIS_TIMEOUT_MS", 300),
		UpstreamTimeout: envDurationMillis("HEALTH_READY_UPSTREAM_TIMEOUT_MS", 500),
	}
	r.Get("/health/live", healthHandler.Live)
	r.Get("/health/ready", healthHandler.Ready)

	r.Route("/api/v1", func(v chi.Router) {
		v.Route("/auth", func(a chi.Router) {
			a.With(loginLimit.Middleware).Post("/login", sessionHandler.Login)
			a.Post("/logout", sessionHandler.Logout)
		})

		v.Group(func(protected chi.Router) {
			protected.Use(sessionMW.Require)

			protected.Get("/products", apiServer.List("/products", 10))
			protected.Get("/stock", apiServer.List("/stock", 10))
			protected.Get("/customers", apiServer.List("/customers", 10))
			protected.Get("/suppliers", apiServer.List("/suppliers", 10))
			protected.Get("/transactions", apiServer.List("/transactions", 10))
			protected.Get("/stock-movements", apiServer.List("/stock-movements", 10))

			protected.Post("/customers", apiServer.Forward(http.MethodPost, "/customers"))
			protected.Put("/customers/{id}", apiServer.Forward(http.MethodPut, "/customers/{id}"))
			protected.Delete("/customers/{id}", apiServer.Forward(http.MethodDelete, "/customers/{id}"))
			protected.Post("/suppliers", apiServer.Forward(http.MethodPost, "/suppliers"))
			protected.Put("/suppliers/{id}", apiServer.Forward(http.MethodPut, "/suppliers/{id}"))
			protected.Delete("/suppliers/{id}", apiServer.Forward(http.MethodDelete, "/suppliers/{id}"))

			protected.Post("/stock/{id}/add", apiServer.Forward(http.MethodPost, "/stock/{id}/add"))
			protected.Put("/stock/{id}/expired", apiServer.Forward(http.MethodPut, "/stock/{id}/expired"))
			protected.Put("/stock/{id}/supplier-return", apiServer.Forward(http.MethodPut, "/stock/{id}/supplier-return"))

			protected.Get("/dashboard", dashboardHandler.Get)

			protected.Post("/intake/preview", intakeHandler.Preview)
			protected.Post("/products", intakeHandler.Submit)

			protected.Route("/cart", func(c chi.Router) {
				c.Get("/", cartHandler.Get)
				c.Post("/items", cartHandler.AddItem)
				c.Patch("/items/{lineId}", cartHandler.UpdateItem)
				c.Delete("/items/{lineId}", cartHandler.RemoveItem)
				c.Put("/customer", cartHandler.SetCustomer)
				c.Delete("/customer", cartHandler.ClearCustomer)
				c.Delete("/", cartHandler.Clear)
			})

			protected.With(idem.Middleware).Post("/transactions", checkoutHandler.Submit)
		})
	})

	srv := &http.Server{
		Addr:    cfg.HTTPAddr(),
		Handler: r,
	}

	stopCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		<-stopCtx.Done()
		health.SetReady(false)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("shutdown http server")
		}
	}()

	logger.Info().Str("addr", srv.Addr).Str("upstream", cfg.UpstreamBaseURL).Msg("server starting")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal().Err(err).Msg("server exited unexpectedly")
	}
	logger.Info().Msg("server shutdown complete")
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
	mux.Handle("/goroutine", pprof.Handler("goroutine"))
	mux.Handle("/heap", pprof.Handler("heap"))
	mux.Handle("/mutex", pprof.Handler("mutex"))
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
		if !ok || subtle.ConstantTimeCompare([]byte(u), []byte(user)) != 1 || subtle.ConstantTimeCompare([]byte(p), []byte(pass)) != 1 {
			w.Header().Set("WWW-Authenticate", "Basic realm=restricted")
			http.Error(w, "unauthorised", http.StatusUnauthorized)
			return
		}
		handler.ServeHTTP(w, r)
	})
}
