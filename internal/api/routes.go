package api

import (
	"net/http"

	"github.com/JaimeStill/caduceus/internal/generation"
	"github.com/JaimeStill/caduceus/pkg/routes"
)

func registerRoutes(mux *http.ServeMux, domain *Domain, runtime *Runtime) {
	routes.Register(
		mux,
		generation.NewHandler(
			domain.Generation,
			runtime.Progress,
			runtime.Logger,
			runtime.MaxBodySize,
		).Routes(),
	)
}
