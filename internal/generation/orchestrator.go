// Package generation drafts a multi-field document through a sequence of
// stage calls, carrying context between stages, persisting resumable
// progress after every stage and reconciling the draft in a final
// integration pass.
package generation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/JaimeStill/caduceus/internal/progress"
	"github.com/JaimeStill/caduceus/internal/protocol"
	"github.com/JaimeStill/caduceus/internal/sessions"
	"github.com/JaimeStill/caduceus/internal/stages"
)

const (
	integrationStage   = "Integração Final"
	failureSaveTimeout = 10 * time.Second
)

// Request starts or continues a run. An empty SessionID starts a new
// session; an empty CorrelationID defaults to the session id.
type Request struct {
	Subject       protocol.Subject `json:"subject"`
	Instructions  string           `json:"instructions,omitempty"`
	SessionID     string           `json:"session_id,omitempty"`
	CorrelationID string           `json:"correlation_id,omitempty"`
}

// System runs staged generation.
type System interface {
	// Generate runs every incomplete stage of the session, then the
	// integration pass. Failures are returned as *RunError.
	Generate(ctx context.Context, req Request) (*protocol.Document, error)
	// Resume continues an existing session. It returns sessions.ErrNotFound
	// when the session is absent or expired.
	Resume(ctx context.Context, sessionID string, subject protocol.Subject) (*protocol.Document, error)
	// Session returns the persisted state of a session.
	Session(ctx context.Context, sessionID string) (*protocol.Session, error)
}

type orchestrator struct {
	rt         *Runtime
	cfg        *Config
	executor   *Executor
	summarizer *Summarizer
	integrator *Integrator
	logger     *slog.Logger
}

// New creates the generation system.
func New(cfg *Config, rt *Runtime) System {
	return &orchestrator{
		rt:         rt,
		cfg:        cfg,
		executor:   NewExecutor(rt),
		summarizer: NewSummarizer(rt, cfg.SummaryTruncate),
		integrator: NewIntegrator(rt, cfg.IntegrationTruncate),
		logger:     rt.Logger.With("system", "generation"),
	}
}

func (o *orchestrator) Generate(ctx context.Context, req Request) (*protocol.Document, error) {
	if err := req.Subject.Validate(); err != nil {
		return nil, err
	}

	if req.SessionID == "" {
		req.SessionID = uuid.NewString()
	} else if err := sessions.ValidateID(req.SessionID); err != nil {
		return nil, err
	}

	if req.CorrelationID == "" {
		req.CorrelationID = req.SessionID
	}

	session, err := o.rt.Sessions.Load(ctx, req.SessionID)
	switch {
	case errors.Is(err, sessions.ErrNotFound):
		session = protocol.NewSession(req.SessionID)
	case err != nil:
		return nil, fmt.Errorf("load session %s: %w", req.SessionID, err)
	}

	r := &run{
		o:       o,
		req:     req,
		session: session,
		acc:     protocol.Hydrate(session.Fields),
		started: time.Now(),
		logger: o.logger.With(
			"session_id", req.SessionID,
			"correlation_id", req.CorrelationID,
		),
	}

	return r.execute(ctx)
}

func (o *orchestrator) Resume(ctx context.Context, sessionID string, subject protocol.Subject) (*protocol.Document, error) {
	if _, err := o.Session(ctx, sessionID); err != nil {
		return nil, err
	}
	return o.Generate(ctx, Request{Subject: subject, SessionID: sessionID})
}

func (o *orchestrator) Session(ctx context.Context, sessionID string) (*protocol.Session, error) {
	if err := sessions.ValidateID(sessionID); err != nil {
		return nil, err
	}
	return o.rt.Sessions.Load(ctx, sessionID)
}

// ResumeIndex returns the stage index a run over acc starts from.
func ResumeIndex(strategy string, reg *stages.Registry, acc *protocol.Accumulator) int {
	switch strategy {
	case ResumeAverage:
		if acc.Len() == 0 {
			return 0
		}
		average := float64(len(reg.Fields())) / float64(reg.Len())
		return min(int(float64(acc.Len())/average), reg.Len())
	default:
		for i := range reg.Len() {
			if !stageComplete(reg.Stage(i), acc) {
				return i
			}
		}
		return reg.Len()
	}
}

func stageComplete(stage stages.Stage, acc *protocol.Accumulator) bool {
	for _, key := range stage.Keys() {
		if !acc.Has(key) {
			return false
		}
	}
	return true
}

// run is the state of one Generate call.
type run struct {
	o       *orchestrator
	req     Request
	session *protocol.Session
	acc     *protocol.Accumulator
	state   State
	started time.Time
	logger  *slog.Logger
}

func (r *run) execute(ctx context.Context) (*protocol.Document, error) {
	reg := r.o.rt.Registry

	start := ResumeIndex(r.o.cfg.ResumeStrategy, reg, r.acc)
	if r.acc.Len() > 0 {
		r.logger.InfoContext(ctx, "resuming generation", "stage_index", start, "fields", r.acc.Len())
	}

	for i := start; i < reg.Len(); i++ {
		stage := reg.Stage(i)
		if stageComplete(stage, r.acc) {
			continue
		}
		if err := r.runStage(ctx, i, stage); err != nil {
			return nil, r.fail(ctx, stage.ID, err)
		}
	}

	warnings, err := r.integrate(ctx)
	if err != nil {
		return nil, r.fail(ctx, "integration", err)
	}

	r.state = Validated
	if problems := ValidateDocument(reg, r.acc.Snapshot()); len(problems) > 0 {
		return nil, r.fail(ctx, "validation", &SchemaValidationError{Problems: problems})
	}

	r.state = Complete
	if err := r.save(ctx); err != nil {
		r.logger.WarnContext(ctx, "final session save failed", "error", err)
	}

	fields := r.acc.Keys()
	r.o.rt.emitter().EmitComplete(r.req.CorrelationID, r.req.SessionID, fields)

	outcome := OutcomeComplete
	if len(warnings) > 0 {
		outcome = OutcomeFallback
	}
	r.o.rt.observer().RunFinished(outcome, time.Since(r.started))

	r.logger.InfoContext(ctx, "generation complete",
		"fields", len(fields),
		"warnings", len(warnings),
		"duration", time.Since(r.started).String(),
	)

	return &protocol.Document{
		SessionID:   r.req.SessionID,
		Fields:      r.acc.Snapshot(),
		Confidence:  r.o.cfg.Confidence,
		Warnings:    warnings,
		CompletedAt: time.Now().UTC(),
	}, nil
}

func (r *run) runStage(ctx context.Context, i int, stage stages.Stage) error {
	rt := r.o.rt
	began := time.Now()
	r.state = StageRunning

	r.emitProgress(i, stage.Name, fmt.Sprintf("Gerando %s (Seções %s)...", stage.Name, strings.Join(stage.Keys(), ", ")))

	var summary string
	if i > 0 {
		cached, ok := r.session.Summary(i)
		if ok {
			summary = cached
		} else {
			r.emitProgress(i, stage.Name, fmt.Sprintf("Preparando contexto para %s...", stage.Name))

			s, err := r.o.summarizer.Summarize(ctx, r.req.Subject, r.acc)
			if err != nil {
				return err
			}
			r.session.SetSummary(i, s)
			summary = s
		}
	}

	fragment, err := r.o.executor.Execute(ctx, stage, StageRequest{
		Subject:      r.req.Subject,
		Accumulator:  r.acc,
		Summary:      summary,
		Instructions: r.req.Instructions,
	})
	if err != nil {
		return err
	}

	if err := r.acc.Merge(fragment); err != nil {
		return err
	}

	if err := r.save(ctx); err != nil {
		return fmt.Errorf("save session: %w", err)
	}

	rt.observer().StageCompleted(stage.ID, time.Since(began))
	r.logger.InfoContext(ctx, "stage complete",
		"stage", stage.ID,
		"fields", strings.Join(fragment.Keys(), ","),
		"total_fields", r.acc.Len(),
	)
	return nil
}

// integrate replaces the draft with the integration output. When the pass
// fails and the fallback policy is enabled, the draft is kept and a warning
// is returned instead of an error.
func (r *run) integrate(ctx context.Context) ([]string, error) {
	reg := r.o.rt.Registry
	r.state = Integrating

	r.o.rt.emitter().EmitProgress(r.req.CorrelationID, r.req.SessionID, progress.Info{
		StageIndex:      reg.Len(),
		TotalStages:     reg.Len() + 1,
		Stage:           integrationStage,
		FieldsCompleted: r.acc.Keys(),
		TotalFields:     len(reg.Fields()),
		Message:         "Realizando verificação de consistência e integração final...",
	})

	warnings := []string{}

	integrated, err := r.o.integrator.Integrate(ctx, r.req.Subject, r.acc)
	if err == nil {
		err = r.acc.Replace(integrated)
	}
	if err != nil {
		if !r.o.cfg.IntegrationFallback {
			return nil, err
		}
		r.logger.WarnContext(ctx, "integration failed; keeping pre-integration draft", "error", err)
		warnings = append(warnings, fmt.Sprintf("integration pass failed, returning pre-integration draft: %v", err))
	}

	return warnings, nil
}

func (r *run) emitProgress(i int, stage, message string) {
	reg := r.o.rt.Registry
	r.o.rt.emitter().EmitProgress(r.req.CorrelationID, r.req.SessionID, progress.Info{
		StageIndex:      i,
		TotalStages:     reg.Len(),
		Stage:           stage,
		FieldsCompleted: r.acc.Keys(),
		TotalFields:     len(reg.Fields()),
		Message:         message,
	})
}

func (r *run) save(ctx context.Context) error {
	r.session.Capture(r.acc)
	return r.o.rt.Sessions.Save(ctx, r.req.SessionID, r.session)
}

// fail preserves the session, emits an error event and wraps err as a
// RunError. The save outlives a cancelled ctx so a timed-out run stays
// resumable.
func (r *run) fail(ctx context.Context, stage string, err error) error {
	phase := r.state
	r.state = Failed

	saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), failureSaveTimeout)
	defer cancel()

	if saveErr := r.save(saveCtx); saveErr != nil {
		r.logger.ErrorContext(ctx, "session save after failure failed", "error", saveErr)
	}

	runErr := &RunError{
		SessionID:   r.req.SessionID,
		FieldsSoFar: r.acc.Keys(),
		Stage:       stage,
		Phase:       phase,
		Resumable:   resumable(phase, err),
		Err:         err,
	}

	r.o.rt.emitter().EmitError(r.req.CorrelationID, r.req.SessionID, err.Error())
	r.o.rt.observer().RunFinished(OutcomeFailed, time.Since(r.started))

	r.logger.ErrorContext(ctx, "generation failed",
		"stage", stage,
		"phase", phase.String(),
		"fields", len(runErr.FieldsSoFar),
		"error", err,
	)

	return runErr
}

// resumable reports whether a failure can be continued with Resume. Only
// stage failures qualify; integration and schema failures are fatal.
func resumable(phase State, err error) bool {
	if phase == Integrating || phase == Validated {
		return false
	}
	return !errors.Is(err, protocol.ErrDuplicateField)
}
