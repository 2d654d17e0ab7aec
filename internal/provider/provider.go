// Package provider defines the text-generation boundary used by staged
// generation and an OpenAI-compatible implementation of it.
package provider

import (
	"context"
	"errors"
)

// Role identifies the author of a chat message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ResponseFormat constrains the shape of the completion.
type ResponseFormat string

const (
	FormatText       ResponseFormat = "text"
	FormatJSONObject ResponseFormat = "json_object"
)

// Message is a single chat message.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Params configures one completion call. A zero Model selects the provider
// default; a zero MaxTokens leaves the limit to the provider.
type Params struct {
	Model          string
	Temperature    float64
	ResponseFormat ResponseFormat
	MaxTokens      int
}

// Usage reports token accounting for a completion.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Response is the text produced by a completion call.
type Response struct {
	Content      string `json:"content"`
	Model        string `json:"model"`
	FinishReason string `json:"finish_reason"`
	Usage        Usage  `json:"usage"`
}

// Provider produces a completion for an ordered list of messages.
// Implementations must be safe for concurrent use.
type Provider interface {
	Complete(ctx context.Context, messages []Message, params Params) (*Response, error)
}

// Sentinel errors for provider operations.
var (
	ErrEmptyResponse   = errors.New("provider returned no content")
	ErrRequestFailed   = errors.New("provider request failed")
	ErrUnknownProvider = errors.New("unknown provider")
)

// System builds a system message.
func System(content string) Message {
	return Message{Role: RoleSystem, Content: content}
}

// User builds a user message.
func User(content string) Message {
	return Message{Role: RoleUser, Content: content}
}
