// Package gsweb exposes the client builder and the JSON error payload
// most services return.
package gsweb

import (
	"github.com/megaganjotsingh/GSWebServiceHelper/client"
)

// User facing messages returned by [Alert].
const (
	AlertNoInternetConnection = "The internet connection is lost"
	AlertSomethingWentWrong   = "Something went wrong"
)

// APIError is the structured error body {"message": "..."}.
type APIError struct {
	Message string `json:"message"`
}

// Resource is a JSON resource whose error body is an [APIError].
type Resource[S any] = client.Resource[S, APIError]

// Response is the outcome of loading a [Resource].
type Response[S any] = client.Response[S, APIError]

// WebError is the failure of loading a [Resource].
type WebError = client.WebError[APIError]

// NewClient instantiates a new *Client for baseURL with the provided options.
// If not specified, the default http.Client and http.Transport are used.
func NewClient(baseURL string, opts ...client.Option) (*client.Client, error) {
	return client.Build(baseURL, opts...)
}

// NewResource builds a GET JSON resource decoding S on success and
// [APIError] otherwise.
func NewResource[S any](path string, opts ...client.ResourceOption) Resource[S] {
	return client.NewJSONResource[S, APIError](path, opts...)
}

// Alert returns the message to show the user for err. Unauthorized
// failures return "" since they are handled by signing in again.
func Alert(err *WebError) string {
	if err == nil {
		return ""
	}

	switch err.Kind {
	case client.KindNoInternetConnection:
		return AlertNoInternetConnection
	case client.KindUnauthorized:
		return ""
	case client.KindCustom:
		if err.Custom.Message != "" {
			return err.Custom.Message
		}
		return AlertSomethingWentWrong
	default:
		return AlertSomethingWentWrong
	}
}
