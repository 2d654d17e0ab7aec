// Package providertest provides a scripted provider double for tests.
package providertest

import (
	"context"
	"errors"
	"sync"

	"github.com/JaimeStill/caduceus/internal/provider"
)

// ErrExhausted is returned when a sequential script has no reply left.
var ErrExhausted = errors.New("providertest: script exhausted")

// Call records one Complete invocation.
type Call struct {
	Messages []provider.Message
	Params   provider.Params
}

// System returns the content of the first system message.
func (c Call) System() string {
	for _, m := range c.Messages {
		if m.Role == provider.RoleSystem {
			return m.Content
		}
	}
	return ""
}

// User returns the content of the last user message.
func (c Call) User() string {
	for i := len(c.Messages) - 1; i >= 0; i-- {
		if c.Messages[i].Role == provider.RoleUser {
			return c.Messages[i].Content
		}
	}
	return ""
}

// Reply is a scripted outcome: either content or an error.
type Reply struct {
	Content string
	Err     error
}

// Provider is a scripted provider.Provider that records every call.
type Provider struct {
	mu      sync.Mutex
	calls   []Call
	replies []Reply
	fn      func(Call) (string, error)
}

// New returns a provider that answers calls with the replies in order.
func New(replies ...Reply) *Provider {
	return &Provider{replies: replies}
}

// Func returns a provider that answers each call with fn.
func Func(fn func(Call) (string, error)) *Provider {
	return &Provider{fn: fn}
}

// Complete records the call and returns the scripted outcome.
func (p *Provider) Complete(ctx context.Context, messages []provider.Message, params provider.Params) (*provider.Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	call := Call{
		Messages: append([]provider.Message(nil), messages...),
		Params:   params,
	}

	p.mu.Lock()
	index := len(p.calls)
	p.calls = append(p.calls, call)
	fn := p.fn
	var reply Reply
	if fn == nil {
		if index < len(p.replies) {
			reply = p.replies[index]
		} else {
			reply = Reply{Err: ErrExhausted}
		}
	}
	p.mu.Unlock()

	if fn != nil {
		content, err := fn(call)
		reply = Reply{Content: content, Err: err}
	}

	if reply.Err != nil {
		return nil, reply.Err
	}

	return &provider.Response{
		Content:      reply.Content,
		Model:        "scripted",
		FinishReason: "stop",
	}, nil
}

// Calls returns a copy of the recorded calls.
func (p *Provider) Calls() []Call {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Call(nil), p.calls...)
}

// Count returns the number of recorded calls.
func (p *Provider) Count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.calls)
}

// CountWhere returns the number of recorded calls matching pred.
func (p *Provider) CountWhere(pred func(Call) bool) int {
	p.mu.Lock()
	defer p.mu.Unlock()

	n := 0
	for _, c := range p.calls {
		if pred(c) {
			n++
		}
	}
	return n
}
