package types

// Result is the outcome of a best-effort side effect: directory sync,
// local persistence, platform notification display. Callers never branch on
// it for control flow, but it keeps the failure observable instead of
// swallowing it.
type Result struct {
	Op  string
	Err error
}

// Attempt runs fn and wraps its error in a Result labelled op.
func Attempt(op string, fn func() error) Result {
	return Result{Op: op, Err: fn()}
}

// OK reports whether the side effect succeeded.
func (r Result) OK() bool { return r.Err == nil }

// Log records a failed Result at warn level and returns it unchanged.
func (r Result) Log(logger Logger) Result {
	if r.Err != nil && logger != nil {
		logger.Warn("best-effort operation failed",
			"op", r.Op,
			"error", r.Err.Error(),
		)
	}
	return r
}
