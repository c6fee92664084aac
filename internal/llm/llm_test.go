package llm

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorKind_String(t *testing.T) {
	cases := map[ErrorKind]string{
		KindGeneric:        "generic",
		KindTimeout:        "timeout",
		KindRateLimit:      "rate_limit",
		KindAuthentication: "authentication",
	}
	for kind, want := range cases {
		if kind.String() != want {
			t.Errorf("kind %d: got %q, want %q", kind, kind.String(), want)
		}
	}
}

func TestError_Retryable(t *testing.T) {
	retryable := []ErrorKind{KindTimeout, KindRateLimit}
	for _, k := range retryable {
		if !(&Error{Kind: k}).Retryable() {
			t.Errorf("%s should be retryable", k)
		}
	}
	terminal := []ErrorKind{KindGeneric, KindAuthentication}
	for _, k := range terminal {
		if (&Error{Kind: k}).Retryable() {
			t.Errorf("%s should not be retryable", k)
		}
	}
}

func TestAsError_UnwrapsThroughChain(t *testing.T) {
	inner := &Error{Kind: KindRateLimit, RetryAfter: 5}
	wrapped := fmt.Errorf("analyze chunk 3: %w", inner)

	got, ok := AsError(wrapped)
	if !ok {
		t.Fatal("expected to find *Error in chain")
	}
	if got.Kind != KindRateLimit || got.RetryAfter != 5 {
		t.Errorf("unexpected error: %+v", got)
	}
}

func TestAsError_PlainError(t *testing.T) {
	if _, ok := AsError(errors.New("plain")); ok {
		t.Error("plain error must not classify")
	}
}
