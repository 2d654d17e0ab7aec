package module_test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/JaimeStill/caduceus/pkg/module"
)

func TestNewInvalidPrefixPanics(t *testing.T) {
	tests := []struct {
		name   string
		prefix string
	}{
		{"empty", ""},
		{"no leading slash", "api"},
		{"nested path", "/api/v1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			defer func() {
				if r := recover(); r == nil {
					t.Error("expected panic for invalid prefix")
				}
			}()
			module.New(tt.prefix, http.NewServeMux())
		})
	}
}

func TestServePrefixStripping(t *testing.T) {
	tests := []struct {
		name string
		path string
		want string
	}{
		{"sub path", "/api/generations/abc", "/generations/abc"},
		{"root", "/api", "/"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var received string
			mux := http.NewServeMux()
			mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
				received = r.URL.Path
			})

			m := module.New("/api", mux)
			m.Serve(httptest.NewRecorder(), httptest.NewRequest("GET", tt.path, nil))

			if received != tt.want {
				t.Errorf("inner path: got %s, want %s", received, tt.want)
			}
		})
	}
}

func TestModuleMiddlewareBuiltOnce(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /", func(w http.ResponseWriter, r *http.Request) {})

	m := module.New("/api", mux)

	var builds, calls int
	m.Use(func(next http.Handler) http.Handler {
		builds++
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls++
			next.ServeHTTP(w, r)
		})
	})

	for range 3 {
		m.Serve(httptest.NewRecorder(), httptest.NewRequest("GET", "/api", nil))
	}

	if builds != 1 {
		t.Errorf("middleware builds: got %d, want 1", builds)
	}
	if calls != 3 {
		t.Errorf("middleware calls: got %d, want 3", calls)
	}
}

func TestRouterDispatch(t *testing.T) {
	apiMux := http.NewServeMux()
	apiMux.HandleFunc("GET /generations", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("api"))
	})

	router := module.NewRouter()
	router.Mount(module.New("/api", apiMux))
	router.HandleNative("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("healthy"))
	})
	router.Handle("GET /metrics", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("metrics"))
	}))

	tests := []struct {
		name     string
		path     string
		wantBody string
	}{
		{"api module", "/api/generations", "api"},
		{"trailing slash", "/api/generations/", "api"},
		{"native func", "/healthz", "healthy"},
		{"native handler", "/metrics", "metrics"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest("GET", tt.path, nil))

			body, _ := io.ReadAll(rec.Result().Body)
			if string(body) != tt.wantBody {
				t.Errorf("body: got %q, want %q", body, tt.wantBody)
			}
		})
	}
}
