// Package llm defines the analysis capability consumed by the pipeline and
// the tagged error classification produced at the provider boundary.
package llm

import (
	"context"
	"errors"
	"fmt"
)

// Message is a single turn sent to the model.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Client is the injected LLM capability. Implementations classify provider
// failures into *Error before returning; downstream code never inspects
// provider-specific messages or status codes.
type Client interface {
	Complete(ctx context.Context, system string, messages []Message, maxTokens int) (string, error)
}

// ErrorKind enumerates the failure classes a provider call can produce.
type ErrorKind int

const (
	// KindGeneric covers anything not classified below: unexpected status
	// codes, malformed response bodies, transport errors.
	KindGeneric ErrorKind = iota
	// KindTimeout means the call exceeded its deadline.
	KindTimeout
	// KindRateLimit means provider capacity was exhausted (HTTP 429).
	KindRateLimit
	// KindAuthentication means the credential was rejected (HTTP 401/403).
	KindAuthentication
)

func (k ErrorKind) String() string {
	switch k {
	case KindTimeout:
		return "timeout"
	case KindRateLimit:
		return "rate_limit"
	case KindAuthentication:
		return "authentication"
	default:
		return "generic"
	}
}

// Error is a classified provider failure.
type Error struct {
	Kind ErrorKind
	// RetryAfter is the provider-suggested wait in seconds for rate-limit
	// failures; zero when the provider gave none.
	RetryAfter int
	Message    string
	Err        error
}

func (e *Error) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("llm %s: %s", e.Kind, e.Message)
	}
	if e.Err != nil {
		return fmt.Sprintf("llm %s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("llm %s", e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

// Retryable reports whether the failure class is worth another attempt.
// Only timeouts and rate limits qualify.
func (e *Error) Retryable() bool {
	return e.Kind == KindTimeout || e.Kind == KindRateLimit
}

// AsError extracts a classified *Error from err, if one is present.
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}
