package routes_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/JaimeStill/caduceus/pkg/routes"
)

func ok(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func TestRegisterHandlers(t *testing.T) {
	mux := http.NewServeMux()

	routes.Register(mux, routes.Group{
		Prefix: "/generations",
		Routes: []routes.Route{
			{Method: "POST", Pattern: "", Handler: ok},
			{Method: "GET", Pattern: "/{session}", Handler: ok},
		},
	})

	tests := []struct {
		name   string
		method string
		path   string
		want   int
	}{
		{"create", "POST", "/generations", http.StatusOK},
		{"inspect", "GET", "/generations/abc", http.StatusOK},
		{"wrong method", "DELETE", "/generations/abc", http.StatusMethodNotAllowed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(tt.method, tt.path, nil)
			mux.ServeHTTP(rec, req)

			if rec.Code != tt.want {
				t.Errorf("status: got %d, want %d", rec.Code, tt.want)
			}
		})
	}
}

func TestNestedGroupsInheritMiddleware(t *testing.T) {
	mux := http.NewServeMux()

	var calls []string
	tag := func(name string) func(http.Handler) http.Handler {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				calls = append(calls, name)
				next.ServeHTTP(w, r)
			})
		}
	}

	routes.Register(mux, routes.Group{
		Prefix:     "/api",
		Middleware: []func(http.Handler) http.Handler{tag("outer")},
		Children: []routes.Group{
			{
				Prefix:     "/v1",
				Middleware: []func(http.Handler) http.Handler{tag("inner")},
				Routes:     []routes.Route{{Method: "GET", Pattern: "/items", Handler: ok}},
			},
		},
	})

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest("GET", "/api/v1/items", nil))

	if rec.Code != http.StatusOK {
		t.Errorf("nested route: got %d, want 200", rec.Code)
	}
	if len(calls) != 2 || calls[0] != "outer" || calls[1] != "inner" {
		t.Errorf("middleware order: got %v, want [outer inner]", calls)
	}
}
