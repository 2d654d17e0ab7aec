package main

import (
	"encoding/json"
	"net/http"

	"github.com/JaimeStill/caduceus/internal/api"
	"github.com/JaimeStill/caduceus/internal/config"
	"github.com/JaimeStill/caduceus/internal/infrastructure"
	"github.com/JaimeStill/caduceus/pkg/module"
)

type Modules struct {
	API *module.Module
}

func NewModules(infra *infrastructure.Infrastructure, cfg *config.Config) (*Modules, error) {
	apiModule, err := api.NewModule(cfg, infra)
	if err != nil {
		return nil, err
	}

	return &Modules{
		API: apiModule,
	}, nil
}

func (m *Modules) Mount(router *module.Router) {
	router.Mount(m.API)
}

func buildRouter(infra *infrastructure.Infrastructure) *module.Router {
	router := module.NewRouter()

	router.HandleNative("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		writeStatus(w, http.StatusOK, map[string]any{"status": "ok"})
	})

	router.HandleNative("GET /readyz", func(w http.ResponseWriter, r *http.Request) {
		if !infra.Lifecycle.Ready() {
			writeStatus(w, http.StatusServiceUnavailable, map[string]any{
				"status":  "not ready",
				"pending": infra.Lifecycle.Pending(),
			})
			return
		}
		writeStatus(w, http.StatusOK, map[string]any{"status": "ready"})
	})

	router.Handle("GET /metrics", infra.Metrics.Handler())

	return router
}

func writeStatus(w http.ResponseWriter, status int, body map[string]any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
