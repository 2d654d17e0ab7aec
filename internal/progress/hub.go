package progress

import (
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/JaimeStill/caduceus/internal/protocol"
)

// All subscribes to events of every correlation id.
const All = ""

// Subscription is a buffered stream of events. Events that arrive while the
// buffer is full are dropped for this subscriber only.
type Subscription struct {
	C <-chan protocol.ProgressEvent

	ch   chan protocol.ProgressEvent
	key  string
	hub  *Hub
	once sync.Once
}

// Close detaches the subscription and closes its channel.
func (s *Subscription) Close() {
	s.once.Do(func() {
		s.hub.remove(s)
	})
}

// Hub is the in-process Emitter. It converts notifications into
// ProgressEvents, delivers them to local subscribers and hands them to an
// optional forwarder for cross-process delivery.
type Hub struct {
	mu              sync.RWMutex
	subs            map[string]map[*Subscription]struct{}
	buffer          int
	secondsPerField int
	forward         func(protocol.ProgressEvent)
	now             func() time.Time
	logger          *slog.Logger
}

// NewHub creates a hub from cfg.
func NewHub(cfg *Config, logger *slog.Logger) *Hub {
	return &Hub{
		subs:            make(map[string]map[*Subscription]struct{}),
		buffer:          cfg.BufferSize,
		secondsPerField: cfg.SecondsPerField,
		now:             time.Now,
		logger:          logger.With("system", "progress"),
	}
}

// Subscribe returns a subscription for events of correlationID, or for
// every event when correlationID is All.
func (h *Hub) Subscribe(correlationID string) *Subscription {
	ch := make(chan protocol.ProgressEvent, h.buffer)
	s := &Subscription{C: ch, ch: ch, key: correlationID, hub: h}

	h.mu.Lock()
	defer h.mu.Unlock()

	set, ok := h.subs[correlationID]
	if !ok {
		set = make(map[*Subscription]struct{})
		h.subs[correlationID] = set
	}
	set[s] = struct{}{}
	return s
}

// Subscribers returns the number of open subscriptions.
func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	n := 0
	for _, set := range h.subs {
		n += len(set)
	}
	return n
}

func (h *Hub) remove(s *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if set, ok := h.subs[s.key]; ok {
		delete(set, s)
		if len(set) == 0 {
			delete(h.subs, s.key)
		}
	}
	close(s.ch)
}

// SetForwarder installs fn to receive every locally emitted event.
// Events delivered through Deliver are not forwarded.
func (h *Hub) SetForwarder(fn func(protocol.ProgressEvent)) {
	h.mu.Lock()
	h.forward = fn
	h.mu.Unlock()
}

func (h *Hub) EmitProgress(correlationID, sessionID string, info Info) {
	h.publish(progressEvent(correlationID, sessionID, info, h.secondsPerField, h.now()))
}

func (h *Hub) EmitError(correlationID, sessionID, message string) {
	h.publish(protocol.ProgressEvent{
		CorrelationID: correlationID,
		SessionID:     sessionID,
		Type:          protocol.EventError,
		Message:       "Erro na geração do protocolo",
		Error:         message,
		Timestamp:     h.now().UTC(),
	})
}

func (h *Hub) EmitComplete(correlationID, sessionID string, fields []string) {
	h.publish(protocol.ProgressEvent{
		CorrelationID:   correlationID,
		SessionID:       sessionID,
		Type:            protocol.EventComplete,
		FieldsCompleted: slices.Clone(fields),
		Message:         "Protocolo gerado com sucesso",
		Percentage:      100,
		Timestamp:       h.now().UTC(),
	})
}

func (h *Hub) publish(e protocol.ProgressEvent) {
	h.Deliver(e)

	h.mu.RLock()
	fn := h.forward
	h.mu.RUnlock()

	if fn != nil {
		h.safely(func() { fn(e) })
	}
}

// Deliver fans e out to local subscribers of its correlation id and to
// subscribers of All. It never blocks.
func (h *Hub) Deliver(e protocol.ProgressEvent) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, key := range deliveryKeys(e.CorrelationID) {
		for s := range h.subs[key] {
			select {
			case s.ch <- e:
			default:
				h.logger.Warn(
					"dropping progress event; subscriber buffer full",
					"correlation_id", e.CorrelationID,
					"type", e.Type,
				)
			}
		}
	}
}

func deliveryKeys(correlationID string) []string {
	if correlationID == All {
		return []string{All}
	}
	return []string{correlationID, All}
}

func (h *Hub) safely(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			h.logger.Error("progress forwarder panicked", "panic", r)
		}
	}()
	fn()
}
