// Package client loads typed resources from a JSON web service.
//
// # Building a Client
//
// Use [Build] to create a [Client] for a base address with functional options:
//
//	c, err := client.Build("https://api.example.com/v1",
//		client.WithTimeout(10 * time.Second),
//		client.WithUserAgent("myapp/1.0"),
//		client.WithCredentials(store),
//	)
//
// # Describing Resources
//
// A [Resource] bundles the path, method, headers, params and the decoders
// for the success body S and the structured error body E:
//
//	type user struct{ Name string `json:"name"` }
//	type apiErr struct{ Message string `json:"message"` }
//
//	res := client.NewJSONResource[user, apiErr]("users/42")
//
// # Loading
//
// [Load] is asynchronous. The completion runs on the client's dispatcher,
// one at a time, exactly once per load:
//
//	task := client.Load(ctx, c, res, func(r client.Response[user, apiErr]) {
//		if u, ok := r.Value(); ok { ... }
//		switch err := r.Err(); err.Kind { ... }
//	})
//
// [Fetch] blocks until the [Response] is available.
//
// Failures are reported as a [WebError]: no internet connection,
// unauthorized (HTTP 401), a decoded custom error body, or other.
package client
