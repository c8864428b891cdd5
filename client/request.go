package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"net/http"
	"net/url"
	"slices"
)

// BuildURL resolves res against base. The resource path is appended to
// the base path, and query items carried by the resource path are merged
// into the base query. For GET and DELETE every param is added as a query
// item. A base or path that cannot be parsed yields an empty URL, which
// fails when dispatched.
func BuildURL[S, E any](base string, res Resource[S, E]) *url.URL {
	u, err := url.Parse(base)
	if err != nil {
		return &url.URL{}
	}

	rp, err := url.Parse(res.path.Absolute())
	if err != nil {
		return &url.URL{}
	}

	u.Path = NewPath(u.Path).Appending(NewPath(rp.Path)).Absolute()
	u.RawPath = ""

	query := u.Query()
	for k, vs := range rp.Query() {
		for _, v := range vs {
			query.Add(k, v)
		}
	}

	switch res.method {
	case MethodGet, MethodDelete:
		for _, k := range slices.Sorted(maps.Keys(res.params)) {
			query.Add(k, fmt.Sprint(res.params[k]))
		}
	}

	u.RawQuery = query.Encode()

	return u
}

// BuildRequest instantiates the *http.Request for res. When queryParams is
// true no body is sent; otherwise POST and PUT carry the JSON encoding of
// the params.
func BuildRequest[S, E any](ctx context.Context, base string, res Resource[S, E], queryParams bool) (*http.Request, error) {
	u := BuildURL(base, res)

	var body io.Reader
	if !queryParams && (res.method == MethodPost || res.method == MethodPut) {
		params := res.params
		if params == nil {
			params = map[string]any{}
		}

		b, err := json.Marshal(params)
		if err != nil {
			return nil, fmt.Errorf("encoding request payload: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, string(res.method), u.String(), body)
	if err != nil {
		return nil, fmt.Errorf("instantiating request: %w", err)
	}

	for k, v := range res.headers {
		req.Header.Set(k, v)
	}

	return req, nil
}
