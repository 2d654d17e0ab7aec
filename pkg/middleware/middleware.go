// Package middleware provides the HTTP middleware stack and the middleware
// shared by every module.
package middleware

import (
	"net/http"
	"slices"
)

// Func wraps a handler.
type Func = func(http.Handler) http.Handler

// System manages an ordered stack of HTTP middleware. The first middleware
// added is the outermost.
type System interface {
	Use(mws ...Func)
	Apply(handler http.Handler) http.Handler
}

type stack struct {
	mws []Func
}

// New creates an empty middleware System.
func New() System {
	return &stack{}
}

func (s *stack) Use(mws ...Func) {
	s.mws = append(s.mws, mws...)
}

func (s *stack) Apply(handler http.Handler) http.Handler {
	for _, mw := range slices.Backward(s.mws) {
		handler = mw(handler)
	}
	return handler
}
