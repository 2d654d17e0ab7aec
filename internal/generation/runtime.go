package generation

import (
	"context"
	"log/slog"
	"time"

	"github.com/JaimeStill/caduceus/internal/progress"
	"github.com/JaimeStill/caduceus/internal/provider"
	"github.com/JaimeStill/caduceus/internal/sessions"
	"github.com/JaimeStill/caduceus/internal/stages"
)

// Provider call purposes reported to the Observer.
const (
	PurposeStage       = "stage"
	PurposeSummary     = "summary"
	PurposeIntegration = "integration"
)

// Run outcomes reported to the Observer.
const (
	OutcomeComplete = "complete"
	OutcomeFailed   = "failed"
	OutcomeFallback = "fallback"
)

// Observer receives timing data from runs. Implementations must be safe for
// concurrent use.
type Observer interface {
	ProviderCall(purpose string, d time.Duration, err error)
	StageCompleted(stage string, d time.Duration)
	RunFinished(outcome string, d time.Duration)
}

type noopObserver struct{}

func (noopObserver) ProviderCall(string, time.Duration, error) {}
func (noopObserver) StageCompleted(string, time.Duration)      {}
func (noopObserver) RunFinished(string, time.Duration)         {}

// Params holds the provider parameters of each call purpose.
type Params struct {
	Stage       provider.Params
	Summary     provider.Params
	Integration provider.Params
}

// ParamsFromProvider derives call parameters from provider configuration.
// Stage and integration calls request JSON objects; summaries are plain text.
func ParamsFromProvider(cfg *provider.Config) Params {
	return Params{
		Stage: provider.Params{
			Model:          cfg.Model,
			Temperature:    cfg.Temperature,
			ResponseFormat: provider.FormatJSONObject,
			MaxTokens:      cfg.StageMaxTokens,
		},
		Summary: provider.Params{
			Model:          cfg.Model,
			Temperature:    cfg.Temperature,
			ResponseFormat: provider.FormatText,
			MaxTokens:      cfg.SummaryMaxTokens,
		},
		Integration: provider.Params{
			Model:          cfg.Model,
			Temperature:    cfg.IntegrationTemperature,
			ResponseFormat: provider.FormatJSONObject,
			MaxTokens:      cfg.IntegrationMaxTokens,
		},
	}
}

// Runtime bundles the dependencies a run requires. It is constructed by
// higher-level composition code from infrastructure and domain systems.
// Progress and Observer may be nil.
type Runtime struct {
	Provider provider.Provider
	Registry *stages.Registry
	Sessions sessions.Store
	Progress progress.Emitter
	Observer Observer
	Params   Params
	Logger   *slog.Logger
}

func (rt *Runtime) emitter() progress.Emitter {
	if rt.Progress == nil {
		return progress.Discard
	}
	return guardedEmitter{next: rt.Progress, logger: rt.Logger}
}

// guardedEmitter keeps a panicking emitter from aborting the run.
type guardedEmitter struct {
	next   progress.Emitter
	logger *slog.Logger
}

func (g guardedEmitter) EmitProgress(correlationID, sessionID string, info progress.Info) {
	g.safely(func() { g.next.EmitProgress(correlationID, sessionID, info) })
}

func (g guardedEmitter) EmitError(correlationID, sessionID, message string) {
	g.safely(func() { g.next.EmitError(correlationID, sessionID, message) })
}

func (g guardedEmitter) EmitComplete(correlationID, sessionID string, fields []string) {
	g.safely(func() { g.next.EmitComplete(correlationID, sessionID, fields) })
}

func (g guardedEmitter) safely(fn func()) {
	defer func() {
		if r := recover(); r != nil && g.logger != nil {
			g.logger.Error("progress emitter panicked", "panic", r)
		}
	}()
	fn()
}

func (rt *Runtime) observer() Observer {
	if rt.Observer == nil {
		return noopObserver{}
	}
	return rt.Observer
}

func (rt *Runtime) complete(ctx context.Context, purpose string, messages []provider.Message, params provider.Params) (string, error) {
	start := time.Now()
	resp, err := rt.Provider.Complete(ctx, messages, params)
	rt.observer().ProviderCall(purpose, time.Since(start), err)
	if err != nil {
		return "", err
	}
	return resp.Content, nil
}
