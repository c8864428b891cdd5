package ws

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

// ErrHandshake is wrapped by [HandshakeError].
var ErrHandshake = errors.New("websocket handshake failed")

// Socket is an established websocket. *websocket.Conn satisfies it.
type Socket interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	WriteControl(messageType int, data []byte, deadline time.Time) error
	Close() error
}

// Dialer opens a Socket to url.
type Dialer interface {
	DialContext(ctx context.Context, url string, header http.Header) (Socket, error)
}

// DialerFunc adapts a function into a Dialer.
type DialerFunc func(ctx context.Context, url string, header http.Header) (Socket, error)

func (f DialerFunc) DialContext(ctx context.Context, url string, header http.Header) (Socket, error) {
	return f(ctx, url, header)
}

// HandshakeError is returned when the server answers the upgrade request
// with a plain HTTP response.
type HandshakeError struct {
	StatusCode int
	Err        error
}

func (e *HandshakeError) Error() string {
	return fmt.Sprintf("%v: status %d", e.Err, e.StatusCode)
}

func (e *HandshakeError) Unwrap() error {
	return e.Err
}

// GorillaDialer dials with a gorilla [websocket.Dialer]. The zero value
// uses [websocket.DefaultDialer].
type GorillaDialer struct {
	Dialer *websocket.Dialer
}

func (g GorillaDialer) DialContext(ctx context.Context, url string, header http.Header) (Socket, error) {
	d := g.Dialer
	if d == nil {
		d = websocket.DefaultDialer
	}

	conn, resp, err := d.DialContext(ctx, url, header)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		if errors.Is(err, websocket.ErrBadHandshake) && resp != nil {
			return nil, &HandshakeError{StatusCode: resp.StatusCode, Err: ErrHandshake}
		}
		return nil, fmt.Errorf("dialing %s: %w", url, err)
	}

	return conn, nil
}
