package client

import (
	"errors"
	"fmt"
)

var (
	// ErrNoInternetConnection is wrapped when no request was attempted
	// because the network is unreachable.
	ErrNoInternetConnection = errors.New("no internet connection")
	// ErrUnauthorized is wrapped when the server responds with 401 Unauthorized.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrCustom is wrapped when the server returned a decodable error body.
	ErrCustom = errors.New("server error")
	// ErrOther is wrapped for every other failure.
	ErrOther = errors.New("request failed")
)

// Kind enumerates the closed set of load failures.
type Kind int

const (
	KindOther Kind = iota
	KindNoInternetConnection
	KindUnauthorized
	KindCustom
)

func (k Kind) String() string {
	switch k {
	case KindNoInternetConnection:
		return "no_internet_connection"
	case KindUnauthorized:
		return "unauthorized"
	case KindCustom:
		return "custom"
	default:
		return "other"
	}
}

// WebError is the failure returned by a load. Custom is only meaningful
// when Kind is KindCustom.
type WebError[E any] struct {
	Kind   Kind
	Custom E
}

// NoInternetConnection returns a KindNoInternetConnection error.
func NoInternetConnection[E any]() *WebError[E] { return &WebError[E]{Kind: KindNoInternetConnection} }

// Unauthorized returns a KindUnauthorized error.
func Unauthorized[E any]() *WebError[E] { return &WebError[E]{Kind: KindUnauthorized} }

// Custom returns a KindCustom error carrying v.
func Custom[E any](v E) *WebError[E] { return &WebError[E]{Kind: KindCustom, Custom: v} }

// Other returns a KindOther error.
func Other[E any]() *WebError[E] { return &WebError[E]{Kind: KindOther} }

func (e *WebError[E]) Error() string {
	if e.Kind == KindCustom {
		return fmt.Sprintf("%v: %+v", ErrCustom, e.Custom)
	}
	return e.Unwrap().Error()
}

// Unwrap returns the sentinel matching e.Kind.
func (e *WebError[E]) Unwrap() error {
	switch e.Kind {
	case KindNoInternetConnection:
		return ErrNoInternetConnection
	case KindUnauthorized:
		return ErrUnauthorized
	case KindCustom:
		return ErrCustom
	default:
		return ErrOther
	}
}
