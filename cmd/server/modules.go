package main

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/JaimeStill/dispatch/internal/api"
	"github.com/JaimeStill/dispatch/internal/config"
	"github.com/JaimeStill/dispatch/internal/infrastructure"
	"github.com/JaimeStill/dispatch/pkg/handlers"
	"github.com/JaimeStill/dispatch/pkg/module"
)

const readinessTimeout = 2 * time.Second

type Modules struct {
	API *module.Module
}

func NewModules(infra *infrastructure.Infrastructure, cfg *config.Config) (*Modules, error) {
	apiModule, err := api.NewModule(cfg, infra)
	if err != nil {
		return nil, err
	}

	return &Modules{API: apiModule}, nil
}

func (m *Modules) Mount(router *module.Router) {
	router.Mount(m.API)
}

type status struct {
	Status string `json:"status"`
	Reason string `json:"reason,omitempty"`
}

func buildRouter(infra *infrastructure.Infrastructure) *module.Router {
	router := module.NewRouter()

	router.HandleNative("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		handlers.RespondJSON(w, http.StatusOK, status{Status: "ok"})
	})

	router.HandleNative("GET /readyz", func(w http.ResponseWriter, r *http.Request) {
		if !infra.Lifecycle.Ready() {
			handlers.RespondJSON(w, http.StatusServiceUnavailable, status{Status: "not ready", Reason: "starting"})
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
		defer cancel()

		if err := infra.Database.Ping(ctx); err != nil {
			handlers.RespondJSON(w, http.StatusServiceUnavailable, status{Status: "not ready", Reason: err.Error()})
			return
		}

		handlers.RespondJSON(w, http.StatusOK, status{Status: "ready"})
	})

	metrics := promhttp.HandlerFor(infra.Registry, promhttp.HandlerOpts{})
	router.HandleNative("GET /metrics", metrics.ServeHTTP)

	return router
}
