package client

import (
	"errors"
	"fmt"
	"time"
)

// maxBodySize caps the amount of response body read by a load. Larger
// bodies are reported as KindOther.
const maxBodySize = 10 << 20 // 10MB

// maxErrBodySize caps the amount of response body kept in an
// [UnexpectedStatusError].
const maxErrBodySize = 4 << 10 // 4KB

// refreshTimeout bounds the token renewal started by Build.
const refreshTimeout = 30 * time.Second

const (
	headerRequestID     = "X-Request-ID"
	headerAuthorization = "Authorization"
	tracerName          = "github.com/megaganjotsingh/GSWebServiceHelper/client"
)

// Indicator shows and hides a loading indicator on behalf of a load.
// Show receives the caller's opaque hint and returns a handle that is
// passed back to Hide once the load finished.
type Indicator interface {
	Show(hint any) any
	Hide(handle any)
}

// ErrUnexpectedStatusCode is the sentinel error wrapped by [UnexpectedStatusError].
var ErrUnexpectedStatusCode = errors.New("unexpected status code")

// UnexpectedStatusError is returned by [Client.RequestData] when the
// server responds with a non-2xx status.
type UnexpectedStatusError struct {
	StatusCode int
	Body       string
	Err        error
}

func (e *UnexpectedStatusError) Error() string {
	return fmt.Sprintf("%v: %d, body: %s", e.Err, e.StatusCode, e.Body)
}

func (e *UnexpectedStatusError) Unwrap() error {
	return e.Err
}
