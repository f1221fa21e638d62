package apperrors

import (
	"errors"
	"fmt"
)

// Kind classifies a failure of the synchronization pipeline.
type Kind string

const (
	// KindGenerationExhausted means a unique field could not be generated within the retry bound.
	KindGenerationExhausted Kind = "GenerationExhausted"
	// KindWriteRejected means the store rejected the data itself (constraint violation).
	KindWriteRejected Kind = "WriteRejected"
	// KindConnectionLost means the transport to a store failed.
	KindConnectionLost Kind = "ConnectionLost"
	// KindTimeout means a store call exceeded its per-call deadline.
	KindTimeout Kind = "Timeout"
	// KindProjectionDeferred means a dependency is not yet visible in the target store.
	KindProjectionDeferred Kind = "ProjectionDeferred"
	// KindUnknown is any error that was not classified.
	KindUnknown Kind = "Unknown"
)

// Retriable reports whether errors of this kind may succeed on a later attempt.
func (k Kind) Retriable() bool {
	return k == KindConnectionLost || k == KindTimeout
}

// SyncError is the error type returned by generators, writers and projectors.
type SyncError struct {
	Kind   Kind
	Store  string
	Entity string
	// Index is the position of the offending item in its batch, -1 when not applicable.
	Index int
	Err   error
}

func (e *SyncError) Error() string {
	msg := string(e.Kind)
	if e.Store != "" {
		msg += " [" + e.Store + "]"
	}
	if e.Entity != "" {
		msg += " " + e.Entity
	}
	if e.Index >= 0 {
		msg += fmt.Sprintf(" #%d", e.Index)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *SyncError) Unwrap() error {
	return e.Err
}

// NewSyncError creates a SyncError with no batch index.
func NewSyncError(kind Kind, store, entity string, err error) *SyncError {
	return &SyncError{Kind: kind, Store: store, Entity: entity, Index: -1, Err: err}
}

// AtIndex records the batch position of the offending item.
func (e *SyncError) AtIndex(i int) *SyncError {
	e.Index = i
	return e
}

// KindOf returns the Kind of the first SyncError in err's chain, or KindUnknown.
func KindOf(err error) Kind {
	var se *SyncError
	if errors.As(err, &se) {
		return se.Kind
	}
	return KindUnknown
}

// IsRetriable reports whether err carries a retriable kind.
func IsRetriable(err error) bool {
	return KindOf(err).Retriable()
}

// RejectedIndex returns the offending batch index of a WriteRejected error.
func RejectedIndex(err error) (int, bool) {
	var se *SyncError
	if errors.As(err, &se) && se.Kind == KindWriteRejected && se.Index >= 0 {
		return se.Index, true
	}
	return -1, false
}
