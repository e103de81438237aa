package app

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	limiter "github.com/ulule/limiter/v3"

	"github.com/noah-isme/toko-quotation/internal/common"
	"github.com/noah-isme/toko-quotation/internal/config"
	"github.com/noah-isme/toko-quotation/internal/db"
	"github.com/noah-isme/toko-quotation/internal/health"
	"github.com/noah-isme/toko-quotation/internal/obs"
	"github.com/noah-isme/toko-quotation/internal/pricing"
	"github.com/noah-isme/toko-quotation/internal/quotation"
	"github.com/noah-isme/toko-quotation/internal/ratelimit"
	"github.com/noah-isme/toko-quotation/internal/security"
	"github.com/noah-isme/toko-quotation/internal/voucher"
)

// Dependencies enumerates the shared infrastructure the API and worker are wired from.
type Dependencies struct {
	Config     *config.Config
	Logger     zerolog.Logger
	DB         *pgxpool.Pool
	Redis      *redis.Client
	TaskClient *asynq.Client

	HTTPMetrics *obs.HTTPMetrics
	Tracing     bool
	// Metrics serves /metrics when set.
	Metrics http.Handler
	// Debug is mounted under /debug/pprof when set.
	Debug http.Handler

	HealthDBTimeout    time.Duration
	HealthRedisTimeout time.Duration
	Now                func() time.Time
}

// NewLimiterStore wires a rate limiter store backed by Redis.
func NewLimiterStore(rdb *redis.Client) (limiter.Store, error) {
	return ratelimit.NewStore(rdb, ratelimit.DefaultPrefix)
}

// RunMigrations applies the embedded schema to databaseURL.
func RunMigrations(databaseURL string) error {
	return db.Up(databaseURL)
}

// NewQuotationService builds the quotation service shared by the API and worker.
func NewQuotationService(d Dependencies) *quotation.Service {
	cfg := d.Config
	logger := d.Logger.With().Str("component", "quotation").Logger()
	svc := &quotation.Service{
		Store:          quotation.NewStore(d.DB),
		Cache:          quotation.NewCache(d.Redis, cfg.QuotationCacheTTL),
		Engine:         pricing.NewEngine(cfg.Currency),
		Vouchers:       &voucher.Service{Store: voucher.NewStore(d.DB), Now: d.Now},
		DefaultTax:     cfg.DefaultTax,
		NumberTemplate: cfg.QuotationNumberTemplate,
		Validity:       cfg.QuotationValidity,
		Now:            d.Now,
		Logger:         &logger,
	}
	if d.TaskClient != nil {
		svc.Scheduler = quotation.AsynqScheduler{Client: d.TaskClient, Queue: cfg.TaskQueue}
	}
	return svc
}

// NewRouter assembles the HTTP surface: middleware chain, health, metrics and /api/v1.
func NewRouter(d Dependencies) (http.Handler, error) {
	cfg := d.Config
	store, err := NewLimiterStore(d.Redis)
	if err != nil {
		return nil, err
	}
	lim, err := ratelimit.New(cfg.RateLimit, store)
	if err != nil {
		return nil, err
	}

	svc := NewQuotationService(d)
	quotations := &quotation.Handler{Svc: svc, DefaultPerPage: cfg.QuotationPageSize}
	idem := common.Idem{R: d.Redis, TTL: cfg.IdempotencyTTL}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(obs.RoutePatternMiddleware)
	if d.Tracing {
		r.Use(obs.TracingMiddleware)
	}
	if d.HTTPMetrics != nil {
		r.Use(obs.HTTPObs{Metrics: d.HTTPMetrics}.Middleware)
	}
	r.Use(obs.RequestLogger{Logger: d.Logger}.Middleware)
	r.Use(security.Headers{Enable: true, EnableHSTS: cfg.AppEnv == "production", NoStore: true}.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins(cfg),
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "Idempotency-Key", "X-Request-Id"},
		ExposedHeaders: []string{"Location", "X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset"},
		MaxAge:         300,
	}))

	if d.Metrics != nil {
		r.Handle("/metrics", d.Metrics)
	}
	if d.Debug != nil {
		r.Mount("/debug/pprof", d.Debug)
	}

	healthHandler := health.Handler{
		Checker:      health.Deps{DB: d.DB, Redis: d.Redis},
		DBTimeout:    d.HealthDBTimeout,
		RedisTimeout: d.HealthRedisTimeout,
	}
	r.Get("/health/live", healthHandler.Live)
	r.Get("/health/ready", healthHandler.Ready)

	r.Route("/api/v1", func(v chi.Router) {
		v.Use(ratelimit.Handler{
			Limiter: lim,
			OnError: func(err error) { d.Logger.Warn().Err(err).Msg("rate limiter unavailable") },
		}.Middleware)
		v.Use(security.BodyLimit{Max: cfg.BodyLimitBytes}.Middleware)

		v.Route("/quotations", func(q chi.Router) {
			q.Post("/preview", quotations.Preview)
			q.With(idem.Middleware).Post("/", quotations.Create)
			q.Get("/", quotations.List)
			q.Get("/{id}", quotations.Get)
			q.With(idem.Middleware).Patch("/{id}/status", quotations.UpdateStatus)
		})
	})
	return r, nil
}

func allowedOrigins(cfg *config.Config) []string {
	if len(cfg.CORSAllowedOrigins) == 0 {
		return []string{"*"}
	}
	return cfg.CORSAllowedOrigins
}
