package errors_test

import (
	"context"
	stderrors "errors"
	"testing"

	"github.com/paveg/dispatch/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDispatchError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *errors.DispatchError
		expected string
	}{
		{
			name: "Error with index",
			err: &errors.DispatchError{
				Op:      "execute",
				Index:   7,
				Message: "task failed",
			},
			expected: "execute operation failed at index 7: task failed",
		},
		{
			name: "Error without index",
			err: &errors.DispatchError{
				Op:      "New",
				Index:   errors.NoIndex,
				Message: "task must not be nil",
			},
			expected: "New operation failed: task must not be nil",
		},
		{
			name: "Error with cause",
			err: &errors.DispatchError{
				Op:      "execute",
				Index:   2,
				Message: "task failed",
				Cause:   stderrors.New("disk full"),
			},
			expected: "execute operation failed at index 2: task failed: disk full",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.err.Error())
		})
	}
}

func TestDispatchError_Unwrap(t *testing.T) {
	cause := stderrors.New("underlying error")
	err := errors.NewTaskError(3, cause)

	assert.Equal(t, cause, err.Unwrap())
	assert.ErrorIs(t, err, cause)
}

func TestDispatchError_Is(t *testing.T) {
	t.Run("sentinel matches any index", func(t *testing.T) {
		err := errors.NewTaskError(42, stderrors.New("boom"))
		assert.ErrorIs(t, err, errors.ErrTaskFailed)
		assert.NotErrorIs(t, err, errors.ErrFinished)
	})

	t.Run("indexed target matches only same index", func(t *testing.T) {
		err1 := errors.NewTaskError(1, nil)
		err2 := errors.NewTaskError(1, nil)
		err3 := errors.NewTaskError(2, nil)

		assert.True(t, err1.Is(err2))
		assert.False(t, err1.Is(err3))
		assert.False(t, err1.Is(stderrors.New("different error")))
	})
}

func TestNewPanicError(t *testing.T) {
	t.Run("non-error value", func(t *testing.T) {
		err := errors.NewPanicError(5, "nil map write")

		assert.Equal(t, 5, err.Index)
		assert.ErrorIs(t, err, errors.ErrTaskFailed)
		assert.Contains(t, err.Error(), "panic: nil map write")
	})

	t.Run("error value keeps chain", func(t *testing.T) {
		cause := stderrors.New("row out of range")
		err := errors.NewPanicError(0, cause)

		assert.ErrorIs(t, err, cause)
	})
}

func TestNewInterruptedError(t *testing.T) {
	err := errors.NewInterruptedError(context.Canceled)

	require.ErrorIs(t, err, errors.ErrInterrupted)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, "run operation failed: round interrupted: context canceled", err.Error())
}

func TestNewInvalidInputError(t *testing.T) {
	err := errors.NewInvalidInputError("New", "count must be non-negative, got -1")

	assert.Equal(t, "New", err.Op)
	assert.Equal(t, errors.NoIndex, err.Index)
	assert.Equal(t, "New operation failed: count must be non-negative, got -1", err.Error())
}

func TestPredefinedErrors(t *testing.T) {
	assert.Equal(t, "run", errors.ErrFinished.Op)
	assert.Equal(t, "dispatcher is finished", errors.ErrFinished.Message)

	assert.Equal(t, "run", errors.ErrInterrupted.Op)
	assert.Equal(t, "round interrupted", errors.ErrInterrupted.Message)

	assert.Equal(t, "execute", errors.ErrTaskFailed.Op)
	assert.Equal(t, "task failed", errors.ErrTaskFailed.Message)
}

func TestClassifiers(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		interrupted bool
		finished    bool
		taskFailed  bool
	}{
		{"nil", nil, false, false, false},
		{"plain", stderrors.New("boom"), false, false, false},
		{"finished", errors.ErrFinished, false, true, false},
		{"interrupted by context", errors.NewInterruptedError(context.Canceled), true, false, false},
		{"interrupted by finish", errors.NewInterruptedError(errors.ErrFinished), true, false, false},
		{"task failure", errors.NewTaskError(3, stderrors.New("boom")), false, false, true},
		{"panic", errors.NewPanicError(0, "oops"), false, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.interrupted, errors.IsInterrupted(tt.err))
			assert.Equal(t, tt.finished, errors.IsFinished(tt.err))
			assert.Equal(t, tt.taskFailed, errors.IsTaskFailed(tt.err))
		})
	}
}

func TestTaskIndex(t *testing.T) {
	index, ok := errors.TaskIndex(errors.NewTaskError(42, stderrors.New("boom")))
	assert.True(t, ok)
	assert.Equal(t, 42, index)

	index, ok = errors.TaskIndex(errors.ErrFinished)
	assert.False(t, ok)
	assert.Equal(t, errors.NoIndex, index)

	_, ok = errors.TaskIndex(stderrors.New("plain"))
	assert.False(t, ok)
}
