package main

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	jwttoken "github.com/DFE-Digital/teaching-record-system-sub005/internal/jwt_token"
	"github.com/DFE-Digital/teaching-record-system-sub005/internal/platform/config"
	platformmetrics "github.com/DFE-Digital/teaching-record-system-sub005/internal/platform/metrics"
	"github.com/DFE-Digital/teaching-record-system-sub005/internal/reconcile/handler"
	"github.com/DFE-Digital/teaching-record-system-sub005/pkg/platform/middleware/auth"
	"github.com/DFE-Digital/teaching-record-system-sub005/pkg/platform/middleware/metadata"
	"github.com/DFE-Digital/teaching-record-system-sub005/pkg/platform/middleware/request"
)

const readScope = "batches:read"

func newRouter(
	cfg config.Config,
	log *slog.Logger,
	results handler.Results,
	batches handler.BatchLister,
	tasks handler.TaskLister,
	httpMetrics *platformmetrics.Metrics,
	gatherer prometheus.Gatherer,
) http.Handler {
	r := chi.NewRouter()
	r.Use(request.RequestID)
	r.Use(metadata.ClientMetadata)
	r.Use(request.Logger(log))
	r.Use(httpMetrics.Middleware)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	tokens := jwttoken.NewJWTServiceAdapter(
		jwttoken.NewJWTService(cfg.Server.JWTSigningKey, cfg.Server.JWTIssuer, cfg.Server.JWTAudience),
	)
	r.Group(func(r chi.Router) {
		r.Use(auth.RequireAuth(tokens, log))
		r.Use(auth.RequireScope(readScope, log))
		handler.New(results, batches, tasks, log).Register(r)
	})
	return r
}
