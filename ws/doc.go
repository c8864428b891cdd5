// Package ws maintains a persistent websocket connection and reports its
// lifecycle and incoming frames to a [Delegate].
//
//	conn, err := ws.New("wss://api.example.com/live",
//		ws.WithDelegate(d),
//		ws.WithCredentials(store),
//	)
//	if err := conn.Connect(ctx); err != nil { ... }
//	conn.SendText(`{"subscribe":"orders"}`)
//	...
//	conn.Disconnect()
//
// A single receive loop runs per connection. Delegate methods are invoked
// one at a time, in order, on a queue owned by the connection. There is no
// automatic reconnect: after a failure call Connect again.
package ws
