// Quota Ledger - Event-Sourced Usage Accounting Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/quotaledger

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger/v2"

	"github.com/tomtom215/quotaledger/internal/middleware"
)

// Router builds the chi handler tree for the quota ledger's HTTP API.
type Router struct {
	handler *Handler
}

// NewRouter returns a Router that dispatches to handler.
func NewRouter(handler *Handler) *Router {
	return &Router{handler: handler}
}

// chiMiddleware adapts an http.HandlerFunc-style middleware to chi's
// func(http.Handler) http.Handler so it can be passed to r.Use().
func chiMiddleware(mw func(http.HandlerFunc) http.HandlerFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return mw(next.ServeHTTP)
	}
}

// Setup configures every route and returns the resulting http.Handler.
func (router *Router) Setup() http.Handler {
	r := chi.NewRouter()

	r.Use(chiMiddleware(middleware.RequestID))
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST"},
		AllowedHeaders: []string{"Content-Type", "Idempotency-Key"},
		MaxAge:         300,
	}))

	r.Route("/v1/accounts", func(r chi.Router) {
		r.Use(httprate.LimitByIP(120, time.Minute))
		r.Use(chiMiddleware(middleware.PrometheusMetrics))

		r.Post("/", router.handler.CreateAccount)

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", router.handler.GetAccount)
			r.Get("/events", router.handler.ListEvents)
			r.Post("/usage", router.handler.RecordUsage)
			r.Post("/suspend", router.handler.SuspendAccount)
			r.Post("/reinstate", router.handler.ReinstateAccount)
		})
	})

	r.Handle("/metrics", promhttp.Handler())
	r.Get("/swagger/doc.json", serveOpenAPISpec)
	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
		httpSwagger.DeepLinking(true),
	))

	return r
}
