package chatbot

import (
	"errors"
	"fmt"
)

// Kind tags the closed set of pipeline failures.
type Kind string

const (
	// KindNotFound marks operations on an unknown session.
	KindNotFound Kind = "not_found"
	// KindExtractionFailed marks a source document that yielded no text.
	KindExtractionFailed Kind = "extraction_failed"
	// KindEmbeddingFailed marks an embedding-provider call failure.
	KindEmbeddingFailed Kind = "embedding_failed"
	// KindGenerationFailed marks a completion-provider call failure.
	KindGenerationFailed Kind = "generation_failed"
	// KindIndexFailed marks a vector-index upsert/query/delete failure.
	KindIndexFailed Kind = "index_failed"
)

// Error is a pipeline failure carrying structured context alongside the
// wrapped cause. The core never retries; the error surfaces as-is.
type Error struct {
	Kind      Kind
	SessionID string
	Provider  string
	Err       error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s (session %s", e.Kind, e.SessionID)
	if e.Provider != "" {
		msg += ", provider " + e.Provider
	}
	msg += ")"
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf returns the failure kind of err, or "" for non-pipeline errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
