package generation

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/JaimeStill/caduceus/internal/progress"
	"github.com/JaimeStill/caduceus/internal/protocol"
	"github.com/JaimeStill/caduceus/internal/render"
	"github.com/JaimeStill/caduceus/pkg/handlers"
	"github.com/JaimeStill/caduceus/pkg/routes"
)

const pingInterval = 15 * time.Second

// Handler provides HTTP endpoints for generation runs and their progress.
type Handler struct {
	sys         System
	hub         *progress.Hub
	logger      *slog.Logger
	maxBodySize int64
}

// ResumeRequest is the body of the resume endpoint.
type ResumeRequest struct {
	Subject protocol.Subject `json:"subject"`
}

// FailureResponse is written for a failed run. It tells the caller whether
// and how to resume.
type FailureResponse struct {
	Error       string   `json:"error"`
	SessionID   string   `json:"session_id"`
	Stage       string   `json:"stage"`
	Phase       string   `json:"phase"`
	Resumable   bool     `json:"resumable"`
	FieldsSoFar []string `json:"fields_so_far"`
}

// NewHandler creates a Handler. hub may be nil, in which case the events
// endpoint responds 404.
func NewHandler(sys System, hub *progress.Hub, logger *slog.Logger, maxBodySize int64) *Handler {
	return &Handler{
		sys:         sys,
		hub:         hub,
		logger:      logger.With("handler", "generations"),
		maxBodySize: maxBodySize,
	}
}

// Routes returns the route group definition for generation endpoints.
func (h *Handler) Routes() routes.Group {
	return routes.Group{
		Prefix: "/generations",
		Routes: []routes.Route{
			{Method: "POST", Pattern: "", Handler: h.Generate},
			{Method: "GET", Pattern: "/events", Handler: h.Events},
			{Method: "GET", Pattern: "/events/{correlation}", Handler: h.Events},
			{Method: "GET", Pattern: "/{session}", Handler: h.Session},
			{Method: "POST", Pattern: "/{session}/resume", Handler: h.Resume},
		},
	}
}

// Generate runs a generation to completion and returns the document.
// ?format=html renders the document instead of returning JSON.
func (h *Handler) Generate(w http.ResponseWriter, r *http.Request) {
	var req Request
	if err := handlers.DecodeJSON(w, r, h.maxBodySize, &req); err != nil {
		handlers.RespondError(w, h.logger, handlers.DecodeStatus(err), err)
		return
	}

	doc, err := h.sys.Generate(r.Context(), req)
	h.respondRun(w, r, req.Subject, doc, err)
}

// Resume continues a persisted session.
func (h *Handler) Resume(w http.ResponseWriter, r *http.Request) {
	var req ResumeRequest
	if err := handlers.DecodeJSON(w, r, h.maxBodySize, &req); err != nil {
		handlers.RespondError(w, h.logger, handlers.DecodeStatus(err), err)
		return
	}

	doc, err := h.sys.Resume(r.Context(), r.PathValue("session"), req.Subject)
	h.respondRun(w, r, req.Subject, doc, err)
}

// Session returns the persisted state of a session.
func (h *Handler) Session(w http.ResponseWriter, r *http.Request) {
	session, err := h.sys.Session(r.Context(), r.PathValue("session"))
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, session)
}

// Events streams progress events as server-sent events. With a correlation
// id the stream ends after that run's complete or error event; without one
// it carries every run until the client disconnects.
func (h *Handler) Events(w http.ResponseWriter, r *http.Request) {
	if h.hub == nil {
		handlers.RespondError(w, h.logger, http.StatusNotFound, errors.New("progress events are not available"))
		return
	}

	correlationID := r.PathValue("correlation")

	sub := h.hub.Subscribe(correlationID)
	defer sub.Close()

	stream, err := handlers.NewEventStream(w)
	if err != nil {
		h.logger.Error("event stream failed", "error", err)
		return
	}

	ping := time.NewTicker(pingInterval)
	defer ping.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-ping.C:
			if err := stream.Ping(); err != nil {
				return
			}
		case e, ok := <-sub.C:
			if !ok {
				return
			}
			if err := stream.Send(string(e.Type), e); err != nil {
				h.logger.Debug("event stream closed", "correlation_id", correlationID, "error", err)
				return
			}
			if correlationID != progress.All && e.Type != protocol.EventProgress {
				return
			}
		}
	}
}

func (h *Handler) respondRun(w http.ResponseWriter, r *http.Request, subject protocol.Subject, doc *protocol.Document, err error) {
	if err != nil {
		status := MapHTTPStatus(err)

		var runErr *RunError
		if !errors.As(err, &runErr) {
			handlers.RespondError(w, h.logger, status, err)
			return
		}

		h.logger.Warn("generation failed", "status", status, "error", err)
		handlers.RespondJSON(w, status, FailureResponse{
			Error:       runErr.Err.Error(),
			SessionID:   runErr.SessionID,
			Stage:       runErr.Stage,
			Phase:       runErr.Phase.String(),
			Resumable:   runErr.Resumable,
			FieldsSoFar: runErr.FieldsSoFar,
		})
		return
	}

	if r.URL.Query().Get("format") == "html" {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if err := render.HTML(w, subject.Condition, doc); err != nil {
			h.logger.Error("render failed", "session_id", doc.SessionID, "error", err)
		}
		return
	}

	handlers.RespondJSON(w, http.StatusOK, doc)
}
