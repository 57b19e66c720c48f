package pipeline

import (
	"errors"
	"fmt"
)

// Kind classifies a pipeline failure and drives the retry policy.
type Kind int

const (
	// KindUnexpected covers anything not produced by a known stage failure.
	KindUnexpected Kind = iota
	// KindNetwork is a feed transport or status error. Retryable.
	KindNetwork
	// KindMalformedFeed is an XML syntax or schema violation, including
	// non-numeric quantity or price. Retried under the current policy.
	KindMalformedFeed
	// KindLLM is a chat-completion transport or response-shape error.
	KindLLM
	// KindPersistence is a storage write error.
	KindPersistence
)

func (k Kind) String() string {
	switch k {
	case KindNetwork:
		return "network"
	case KindMalformedFeed:
		return "malformed_feed"
	case KindLLM:
		return "llm"
	case KindPersistence:
		return "persistence"
	default:
		return "unexpected"
	}
}

// Retryable reports whether the orchestrator's bounded retry loop applies.
// Only feed fetch and parse failures qualify.
func (k Kind) Retryable() bool {
	return k == KindNetwork || k == KindMalformedFeed
}

// Error ties a stage failure to its kind.
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func wrapKind(kind Kind, err error) *Error {
	return &Error{Kind: kind, Err: err}
}

// KindOf extracts the failure kind from err, defaulting to unexpected.
func KindOf(err error) Kind {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return KindUnexpected
}
