package errors

import (
	stderrors "errors"
)

// IsInterrupted reports whether err stems from a round cut short by
// cancellation or teardown.
func IsInterrupted(err error) bool {
	return stderrors.Is(err, ErrInterrupted)
}

// IsFinished reports whether err was returned for a round requested after
// teardown.
func IsFinished(err error) bool {
	return stderrors.Is(err, ErrFinished) && !IsInterrupted(err)
}

// IsTaskFailed reports whether err carries a failed task index.
func IsTaskFailed(err error) bool {
	return stderrors.Is(err, ErrTaskFailed)
}

// TaskIndex extracts the failing index from a task error.
func TaskIndex(err error) (int, bool) {
	var de *DispatchError
	if !stderrors.As(err, &de) || de.Index == NoIndex {
		return NoIndex, false
	}
	return de.Index, true
}
