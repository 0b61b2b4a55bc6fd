// Package backend talks to chat-completion servers: Ollama's native API and any
// OpenAI-compatible endpoint.
package backend

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
)

// Message roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// Message is one conversation turn. Name is set on tool messages.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
	Name    string `json:"name,omitempty"`
}

// Backend generates assistant text for a conversation.
type Backend interface {
	Chat(ctx context.Context, model string, messages []Message, opts Options) (string, error)
	// Ping checks the server is reachable. It returns ErrUnreachable when it is not.
	Ping(ctx context.Context) error
}

// ErrUnreachable reports a backend that cannot be contacted at all.
var ErrUnreachable = errors.New("backend unreachable")

// ErrorKind classifies a failed call.
type ErrorKind string

// Error kinds.
const (
	ErrorNetwork      ErrorKind = "network"
	ErrorTimeout      ErrorKind = "timeout"
	ErrorAuth         ErrorKind = "auth"
	ErrorRateLimit    ErrorKind = "rate_limit"
	ErrorInvalidInput ErrorKind = "invalid_input"
	ErrorNotFound     ErrorKind = "not_found"
	ErrorServer       ErrorKind = "server"
	ErrorResponse     ErrorKind = "bad_response"
	ErrorUnknown      ErrorKind = "unknown"
)

// CallError is a per-call failure. It fails one test, never the run.
type CallError struct {
	Kind    ErrorKind
	Model   string
	Status  int
	Message string
	Err     error
}

func (e *CallError) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.Status != 0 {
		return fmt.Sprintf("%s: %s (status %d): %s", e.Model, e.Kind, e.Status, msg)
	}
	return fmt.Sprintf("%s: %s: %s", e.Model, e.Kind, msg)
}

func (e *CallError) Unwrap() error { return e.Err }

func classifyStatus(status int) ErrorKind {
	switch {
	case status == 401 || status == 403:
		return ErrorAuth
	case status == 404:
		return ErrorNotFound
	case status == 408:
		return ErrorTimeout
	case status == 429:
		return ErrorRateLimit
	case status >= 500:
		return ErrorServer
	case status >= 400:
		return ErrorInvalidInput
	default:
		return ErrorUnknown
	}
}

func classifyErr(err error) ErrorKind {
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrorTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return ErrorTimeout
		}
		return ErrorNetwork
	}
	lower := strings.ToLower(err.Error())
	switch {
	case strings.Contains(lower, "timeout") || strings.Contains(lower, "deadline"):
		return ErrorTimeout
	case strings.Contains(lower, "connection") || strings.Contains(lower, "refused") || strings.Contains(lower, "no such host"):
		return ErrorNetwork
	default:
		return ErrorUnknown
	}
}
