// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package transport exposes the plugin host over HTTP, websockets and MQTT.
package transport

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/relabs-tech/accelerometer_bridge/internal/plugin"
)

// Router serves plugin calls, event streams, health and metrics.
type Router struct {
	router   chi.Router
	host     *plugin.Host
	gatherer prometheus.Gatherer
	log      zerolog.Logger
}

func NewRouter(host *plugin.Host, gatherer prometheus.Gatherer, log zerolog.Logger) *Router {
	r := &Router{
		router:   chi.NewRouter(),
		host:     host,
		gatherer: gatherer,
		log:      log,
	}

	r.router.Use(middleware.Recoverer)
	r.router.Get("/health", r.health)
	r.router.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	r.router.Get("/plugins", r.listPlugins)
	r.router.Post("/plugins/{plugin}/{method}", r.call)
	r.router.Get("/plugins/{plugin}/events", r.events)

	return r
}

func (r *Router) Handler() http.Handler {
	return r.router
}

// Start serves on addr until ctx is cancelled.
func (r *Router) Start(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           r.router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	r.log.Info().Str("addr", addr).Msg("web server listening")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (r *Router) health(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusNoContent)
}

func (r *Router) listPlugins(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"plugins": r.host.Names()}, r.log)
}

func (r *Router) call(w http.ResponseWriter, req *http.Request) {
	name := chi.URLParam(req, "plugin")
	method := chi.URLParam(req, "method")

	p, ok := r.host.Plugin(name)
	if !ok {
		writeJSON(w, http.StatusNotFound, plugin.Reject("unknown plugin "+name), r.log)
		return
	}
	if _, ok := p.Methods()[method]; !ok {
		writeJSON(w, http.StatusNotFound, plugin.Reject("unknown method "+method), r.log)
		return
	}

	c := plugin.Call{Method: method}
	body, err := io.ReadAll(io.LimitReader(req.Body, 64<<10))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, plugin.Reject("failed to read request body"), r.log)
		return
	}
	if len(body) > 0 {
		if err := json.Unmarshal(body, &c.Data); err != nil {
			writeJSON(w, http.StatusBadRequest, plugin.Reject("request body must be a JSON object"), r.log)
			return
		}
	}

	res := r.host.Dispatch(req.Context(), name, c)
	status := http.StatusOK
	if !res.OK() {
		status = http.StatusUnprocessableEntity
	}
	writeJSON(w, status, res, r.log)
}

func writeJSON(w http.ResponseWriter, status int, v any, log zerolog.Logger) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("json encode error")
	}
}
