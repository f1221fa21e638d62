package apperrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOfThroughWrapping(t *testing.T) {
	base := NewSyncError(KindTimeout, "search", "session", errors.New("deadline"))
	wrapped := fmt.Errorf("index sessions: %w", base)

	assert.Equal(t, KindTimeout, KindOf(wrapped))
	assert.True(t, IsRetriable(wrapped))
	assert.Equal(t, KindUnknown, KindOf(errors.New("plain")))
	assert.False(t, IsRetriable(errors.New("plain")))
}

func TestRetriableKinds(t *testing.T) {
	assert.True(t, KindConnectionLost.Retriable())
	assert.True(t, KindTimeout.Retriable())
	assert.False(t, KindWriteRejected.Retriable())
	assert.False(t, KindGenerationExhausted.Retriable())
	assert.False(t, KindProjectionDeferred.Retriable())
}

func TestRejectedIndex(t *testing.T) {
	err := NewSyncError(KindWriteRejected, "relational", "student", errors.New("duplicate")).AtIndex(3)

	idx, ok := RejectedIndex(fmt.Errorf("batch: %w", err))
	assert.True(t, ok)
	assert.Equal(t, 3, idx)
	assert.Equal(t, "WriteRejected [relational] student #3: duplicate", err.Error())

	_, ok = RejectedIndex(NewSyncError(KindConnectionLost, "relational", "student", nil))
	assert.False(t, ok)
}

func TestCustomErrorUnwrap(t *testing.T) {
	err := NewResourceNotFoundError("run 42 not found")
	assert.True(t, errors.Is(err, ErrResourceNotFound))
	assert.Equal(t, "run 42 not found", err.Error())
	assert.False(t, errors.Is(err, ErrValidationFailed))

	verr := NewValidationError("unknown store \"ledger\"", nil)
	assert.ErrorIs(t, verr, ErrValidationFailed)
	assert.Equal(t, `unknown store "ledger"`, verr.Error())
}
