package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	redisclient "github.com/hackgods/appointment-lookup/internal/redis"
)

type RouterConfig struct {
	Service       Lookuper
	Limiter       redisclient.Limiter // nil disables throttling
	TrustProxy    bool                // throttle on forwarded client IP
	PgPool        Pinger
	Redis         *redis.Client
	Logger        zerolog.Logger
	LookupTimeout time.Duration
	Env           string
	Version       string
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(cfg.Logger))
	r.Use(RecoverMiddleware(cfg.Logger))

	health := NewHealthHandler(cfg.PgPool, cfg.Redis, cfg.Env, cfg.Version)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)

	r.Method(http.MethodGet, "/appointments/lookup", &lookupHandler{
		svc:        cfg.Service,
		limiter:    cfg.Limiter,
		trustProxy: cfg.TrustProxy,
		timeout:    cfg.LookupTimeout,
		logger:     cfg.Logger,
	})

	return r
}
