package api_test

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/JaimeStill/caduceus/internal/api"
	"github.com/JaimeStill/caduceus/internal/config"
	"github.com/JaimeStill/caduceus/internal/infrastructure"
)

func setup(t *testing.T) (*config.Config, *infrastructure.Infrastructure) {
	t.Helper()

	orig, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	if err := os.Chdir(t.TempDir()); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	t.Cleanup(func() { os.Chdir(orig) })

	t.Setenv("CADUCEUS_CORS_ENABLED", "true")
	t.Setenv("CADUCEUS_CORS_ORIGINS", "http://localhost:3000")

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("config.Load() error = %v", err)
	}

	infra, err := infrastructure.NewWithLogger(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("infrastructure.New() error = %v", err)
	}
	return cfg, infra
}

func TestNewModule(t *testing.T) {
	cfg, infra := setup(t)

	m, err := api.NewModule(cfg, infra)
	if err != nil {
		t.Fatalf("NewModule() error = %v", err)
	}
	if m.Prefix() != "/api" {
		t.Errorf("prefix: got %s, want /api", m.Prefix())
	}
}

func TestModuleRoutes(t *testing.T) {
	cfg, infra := setup(t)

	m, err := api.NewModule(cfg, infra)
	if err != nil {
		t.Fatalf("NewModule() error = %v", err)
	}

	tests := []struct {
		name   string
		method string
		path   string
		want   int
	}{
		{"unknown session", "GET", "/api/generations/missing", http.StatusNotFound},
		{"invalid session id", "GET", "/api/generations/bad%20id", http.StatusBadRequest},
		{"method not allowed", "DELETE", "/api/generations/missing", http.StatusMethodNotAllowed},
		{"unknown route", "GET", "/api/documents", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(tt.method, tt.path, nil)
			req.Header.Set("Origin", "http://localhost:3000")
			m.Serve(rec, req)

			if rec.Code != tt.want {
				t.Errorf("status: got %d, want %d", rec.Code, tt.want)
			}
			if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:3000" {
				t.Errorf("allow-origin: got %q", got)
			}
		})
	}
}
