package client

// Response is the outcome of one load: either a success value or a
// *WebError, never both.
type Response[S, E any] struct {
	value S
	err   *WebError[E]
}

// Success wraps v.
func Success[S, E any](v S) Response[S, E] {
	return Response[S, E]{value: v}
}

// Failure wraps err. A nil err is treated as KindOther.
func Failure[S, E any](err *WebError[E]) Response[S, E] {
	if err == nil {
		err = Other[E]()
	}
	return Response[S, E]{err: err}
}

// ResponseFrom returns Success(v) when ok, Failure(fallback) otherwise.
func ResponseFrom[S, E any](v S, ok bool, fallback *WebError[E]) Response[S, E] {
	if !ok {
		return Failure[S](fallback)
	}
	return Success[S, E](v)
}

// OK reports whether r holds a success value.
func (r Response[S, E]) OK() bool { return r.err == nil }

// Value returns the success value.
func (r Response[S, E]) Value() (S, bool) {
	if r.err != nil {
		var zero S
		return zero, false
	}
	return r.value, true
}

// Err returns the failure, or nil on success.
func (r Response[S, E]) Err() *WebError[E] { return r.err }
