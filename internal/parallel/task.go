package parallel

// Task is the unit of work a Dispatcher fans out across its workers.
//
// Execute performs the work for one index. It may be called concurrently
// from several workers with distinct indices and in any order, so a task
// shared between workers must make Execute safe for concurrent use.
// A non-nil error marks the index as failed.
//
// Cleanup releases per-worker resources. It is called exactly once per
// worker when the dispatcher is torn down.
type Task interface {
	Execute(index int) error
	Cleanup()
}

// TaskFuncs adapts a pair of functions to the Task interface. Either field
// may be nil.
type TaskFuncs struct {
	ExecuteFn func(index int) error
	CleanupFn func()
}

// Execute calls ExecuteFn.
func (t TaskFuncs) Execute(index int) error {
	if t.ExecuteFn == nil {
		return nil
	}
	return t.ExecuteFn(index)
}

// Cleanup calls CleanupFn.
func (t TaskFuncs) Cleanup() {
	if t.CleanupFn != nil {
		t.CleanupFn()
	}
}

// IndexFunc adapts an infallible loop body with no per-worker resources.
type IndexFunc func(index int)

// Execute calls f(index).
func (f IndexFunc) Execute(index int) error {
	f(index)
	return nil
}

// Cleanup does nothing.
func (IndexFunc) Cleanup() {}
