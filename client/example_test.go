package client_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"time"

	"github.com/megaganjotsingh/GSWebServiceHelper/client"
	"github.com/megaganjotsingh/GSWebServiceHelper/reach"
)

func ExampleBuild() {
	c, err := client.Build("https://api.example.com",
		client.WithTimeout(10*time.Second),
		client.WithUserAgent("example/1.0"),
	)
	if err != nil {
		fmt.Println("error:", err)
		return
	}

	fmt.Println(c.BaseURL())
	// Output: https://api.example.com
}

func ExampleNewPath() {
	p := client.NewPath("/a/b").Appending(client.NewPath("c/d/"))

	fmt.Println(p.Absolute())
	// Output: /a/b/c/d
}

func ExampleBuildURL() {
	res := client.NewJSONResource[struct{}, struct{}]("users",
		client.WithParam("page", 2),
		client.WithParam("sort", "name"),
	)

	fmt.Println(client.BuildURL("https://api.example.com/v1", res))
	// Output: https://api.example.com/v1/users?page=2&sort=name
}

func ExampleFetch() {
	type user struct {
		Name string `json:"name"`
	}
	type apiErr struct {
		Message string `json:"message"`
	}

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"name":"alice"}`)
	}))
	defer ts.Close()

	c, err := client.Build(ts.URL)
	if err != nil {
		fmt.Println("error:", err)
		return
	}

	r := client.Fetch(context.Background(), c, client.NewJSONResource[user, apiErr]("users/1"))
	if u, ok := r.Value(); ok {
		fmt.Println(u.Name)
	}
	// Output: alice
}

func ExampleLoad_offline() {
	c, err := client.Build("https://api.example.com",
		client.WithReachability(reach.Static(reach.Offline)),
	)
	if err != nil {
		fmt.Println("error:", err)
		return
	}

	done := make(chan struct{})
	task := client.Load(context.Background(), c, client.NewJSONResource[struct{}, struct{}]("ping"),
		func(r client.Response[struct{}, struct{}]) {
			fmt.Println(r.Err().Kind)
			close(done)
		},
	)
	<-done

	fmt.Println(task == nil)
	// Output:
	// no_internet_connection
	// true
}
