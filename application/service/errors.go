package service

import (
	"errors"
	"fmt"
)

// ErrClientClosed indicates the client has been closed.
var ErrClientClosed = errors.New("finsight: client is closed")

// ErrorKind classifies a failure crossing the service boundary so
// callers can render precise messages instead of a generic error.
type ErrorKind string

// Error kinds.
const (
	// KindConfiguration is fatal at startup and never recovered, e.g. a
	// dimension mismatch or a missing credential.
	KindConfiguration ErrorKind = "configuration"

	// KindFetch marks a document source failure. Recorded per filing,
	// retried on the next ingestion run, never blocks other filings.
	KindFetch ErrorKind = "fetch"

	// KindEmbedding marks an embedding provider failure after retries.
	// During ingestion the chunk stays unembedded and is retried later;
	// for a live query the request fails as retrieval unavailable.
	KindEmbedding ErrorKind = "embedding"

	// KindRetrieval marks a vector store failure during a live query.
	KindRetrieval ErrorKind = "retrieval"

	// KindGeneration marks a generation provider failure, distinct from
	// retrieval so callers can tell "no relevant data" from "model
	// unavailable".
	KindGeneration ErrorKind = "generation"
)

// Error wraps a cause with its kind and the operation that failed.
type Error struct {
	kind ErrorKind
	op   string
	err  error
}

// NewError creates a kinded Error.
func NewError(kind ErrorKind, op string, err error) *Error {
	return &Error{kind: kind, op: op, err: err}
}

// ConfigurationError wraps err as a configuration failure.
func ConfigurationError(op string, err error) *Error {
	return NewError(KindConfiguration, op, err)
}

// FetchError wraps err as a document source failure.
func FetchError(op string, err error) *Error {
	return NewError(KindFetch, op, err)
}

// EmbeddingError wraps err as an embedding provider failure.
func EmbeddingError(op string, err error) *Error {
	return NewError(KindEmbedding, op, err)
}

// RetrievalError wraps err as a vector store failure.
func RetrievalError(op string, err error) *Error {
	return NewError(KindRetrieval, op, err)
}

// GenerationError wraps err as a generation provider failure.
func GenerationError(op string, err error) *Error {
	return NewError(KindGeneration, op, err)
}

// Kind returns the error kind.
func (e *Error) Kind() ErrorKind { return e.kind }

// Op returns the operation that failed.
func (e *Error) Op() string { return e.op }

func (e *Error) Error() string {
	if e.err == nil {
		return fmt.Sprintf("%s: %s failed", e.kind, e.op)
	}
	return fmt.Sprintf("%s: %s: %v", e.kind, e.op, e.err)
}

// Unwrap returns the cause.
func (e *Error) Unwrap() error { return e.err }

// IsKind reports whether err carries the given kind anywhere in its
// chain.
func IsKind(err error, kind ErrorKind) bool {
	var se *Error
	if !errors.As(err, &se) {
		return false
	}
	return se.kind == kind
}
