package client

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"maps"
	"net/http"
)

// Method is the HTTP method of a [Resource].
type Method string

const (
	MethodGet    Method = http.MethodGet
	MethodPost   Method = http.MethodPost
	MethodPut    Method = http.MethodPut
	MethodDelete Method = http.MethodDelete
)

// Resource describes one endpoint call: where it lives, how it is sent,
// and how its success (S) and structured error (E) bodies are decoded.
// A Resource is immutable once built and safe to share between goroutines.
type Resource[S, E any] struct {
	path          Path
	method        Method
	headers       map[string]string
	params        map[string]any
	decodeSuccess func([]byte) (S, bool)
	decodeError   func([]byte) (E, bool)
}

// NewResource builds a Resource with explicit decoders.
// The method defaults to POST.
func NewResource[S, E any](path string, decodeSuccess func([]byte) (S, bool), decodeError func([]byte) (E, bool), optFns ...ResourceOption) Resource[S, E] {
	opts := resourceOpts{method: MethodPost}
	for _, opt := range optFns {
		opt(&opts)
	}

	return Resource[S, E]{
		path:          NewPath(path),
		method:        opts.method,
		headers:       opts.headers,
		params:        opts.params,
		decodeSuccess: decodeSuccess,
		decodeError:   decodeError,
	}
}

// NewJSONResource builds a Resource whose bodies are JSON documents.
// The method defaults to GET, and Accept and Content-Type are set to
// "application/json" unless [WithoutDefaultHeaders] is given. A body that
// fails to decode is reported as absent.
func NewJSONResource[S, E any](path string, optFns ...ResourceOption) Resource[S, E] {
	opts := resourceOpts{method: MethodGet}
	for _, opt := range optFns {
		opt(&opts)
	}

	if !opts.noDefaultHeaders {
		if opts.headers == nil {
			opts.headers = make(map[string]string, 2)
		}
		opts.headers["Accept"] = "application/json"
		opts.headers["Content-Type"] = "application/json"
	}

	return Resource[S, E]{
		path:          NewPath(path),
		method:        opts.method,
		headers:       opts.headers,
		params:        opts.params,
		decodeSuccess: jsonDecoder[S](opts),
		decodeError:   jsonDecoder[E](opts),
	}
}

// jsonDecoder returns a decode func for T. The whole body must be a
// single JSON value.
func jsonDecoder[T any](opts resourceOpts) func([]byte) (T, bool) {
	return func(b []byte) (T, bool) {
		var v T

		d := json.NewDecoder(bytes.NewReader(b))
		if opts.useJSONNum {
			d.UseNumber()
		}
		if opts.disallowUnknownFields {
			d.DisallowUnknownFields()
		}

		var zero T
		if err := d.Decode(&v); err != nil {
			return zero, false
		}
		if _, err := d.Token(); !errors.Is(err, io.EOF) {
			return zero, false
		}

		return v, true
	}
}

// Path returns the resource path.
func (r Resource[S, E]) Path() Path { return r.path }

// Method returns the HTTP method.
func (r Resource[S, E]) Method() Method { return r.method }

// Headers returns a copy of the resource headers.
func (r Resource[S, E]) Headers() map[string]string { return maps.Clone(r.headers) }

// Params returns a copy of the resource params.
func (r Resource[S, E]) Params() map[string]any { return maps.Clone(r.params) }

// DecodeSuccess decodes b as a success body.
func (r Resource[S, E]) DecodeSuccess(b []byte) (S, bool) {
	if r.decodeSuccess == nil {
		var zero S
		return zero, false
	}
	return r.decodeSuccess(b)
}

// DecodeError decodes b as a structured error body.
func (r Resource[S, E]) DecodeError(b []byte) (E, bool) {
	if r.decodeError == nil {
		var zero E
		return zero, false
	}
	return r.decodeError(b)
}

// MergeParams returns a copy of r with common merged into its params.
// Keys already present on r win.
func (r Resource[S, E]) MergeParams(common map[string]any) Resource[S, E] {
	if len(common) == 0 {
		return r
	}

	merged := make(map[string]any, len(common)+len(r.params))
	maps.Copy(merged, common)
	maps.Copy(merged, r.params)

	cpy := r
	cpy.params = merged

	return cpy
}
