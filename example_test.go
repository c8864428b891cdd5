package gsweb_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"time"

	gsweb "github.com/megaganjotsingh/GSWebServiceHelper"
	"github.com/megaganjotsingh/GSWebServiceHelper/client"
)

func ExampleNewClient() {
	type greeting struct {
		Msg string `json:"msg"`
	}

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, `{"msg":"hello"}`)
	}))
	defer ts.Close()

	c, err := gsweb.NewClient(ts.URL, client.WithTimeout(5*time.Second))
	if err != nil {
		fmt.Println("build error:", err)
		return
	}

	r := client.Fetch(context.Background(), c, gsweb.NewResource[greeting]("greet"))
	if g, ok := r.Value(); ok {
		fmt.Println(g.Msg)
	}
	// Output: hello
}

func ExampleAlert() {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		fmt.Fprint(w, `{"message":"name already taken"}`)
	}))
	defer ts.Close()

	c, err := gsweb.NewClient(ts.URL)
	if err != nil {
		fmt.Println("build error:", err)
		return
	}

	r := client.Fetch(context.Background(), c, gsweb.NewResource[struct{}]("users",
		client.WithMethod(client.MethodPost),
		client.WithParam("name", "alice"),
	))
	fmt.Println(gsweb.Alert(r.Err()))
	// Output: name already taken
}
