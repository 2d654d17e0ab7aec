package api

import (
	"github.com/JaimeStill/caduceus/internal/config"
	"github.com/JaimeStill/caduceus/internal/generation"
)

// Domain holds all domain systems that comprise the API.
type Domain struct {
	Generation generation.System
}

// NewDomain creates all domain systems from the API runtime.
func NewDomain(cfg *config.Config, runtime *Runtime) *Domain {
	return &Domain{
		Generation: runtime.Generation(cfg),
	}
}
