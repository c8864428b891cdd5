package ws

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/megaganjotsingh/GSWebServiceHelper/auth"
	"github.com/megaganjotsingh/GSWebServiceHelper/client/dispatch"
	"github.com/megaganjotsingh/GSWebServiceHelper/client/throttle"
	"github.com/megaganjotsingh/GSWebServiceHelper/metrics"
)

var (
	// ErrNotConnected is reported for sends on a connection that is not open.
	ErrNotConnected = errors.New("websocket not connected")
	// ErrAlreadyConnected is returned by Connect while a session is active.
	ErrAlreadyConnected = errors.New("websocket already connected")
)

// State is the lifecycle state of a [Connection].
type State int32

const (
	StateIdle State = iota
	StateConnecting
	StateOpen
	StateClosing
	StateClosed
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateClosing:
		return "closing"
	case StateClosed:
		return "closed"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

type delegateRef struct {
	d Delegate
}

// Connection is a persistent websocket to one URL. It is safe for
// concurrent use.
type Connection struct {
	url          string
	dialer       Dialer
	header       http.Header
	creds        auth.Store
	logger       *slog.Logger
	metrics      *metrics.Recorder
	limiter      *throttle.Limiter
	closeTimeout time.Duration

	delegate atomic.Pointer[delegateRef]
	events   *dispatch.Queue
	writes   *dispatch.Queue

	mu         sync.Mutex
	state      State
	socket     Socket
	cancelDial context.CancelFunc
	closeTimer *time.Timer
}

// New returns an idle Connection to url. Nothing is dialed until
// [Connection.Connect].
func New(url string, optFns ...Option) (*Connection, error) {
	if url == "" {
		return nil, errors.New("url must not be empty")
	}

	var opts options
	for _, opt := range optFns {
		if err := opt(&opts); err != nil {
			return nil, fmt.Errorf("applying connection option: %w", err)
		}
	}

	c := &Connection{
		url:          url,
		dialer:       GorillaDialer{},
		header:       opts.header,
		creds:        opts.creds,
		logger:       slog.Default(),
		metrics:      opts.metrics,
		limiter:      opts.limiter,
		closeTimeout: DefaultCloseTimeout,
	}

	if opts.dialer != nil {
		c.dialer = opts.dialer
	}

	if opts.logger != nil {
		c.logger = opts.logger
	}

	if opts.closeTimeout > 0 {
		c.closeTimeout = opts.closeTimeout
	}

	if c.limiter == nil && opts.send != nil {
		l, err := throttle.New(opts.send.RPS, opts.send.Burst, func() *slog.Logger { return c.logger })
		if err != nil {
			return nil, fmt.Errorf("configuring send limit: %w", err)
		}
		c.limiter = l
	}

	c.events = dispatch.New(c.logger)
	c.writes = dispatch.New(c.logger)
	c.SetDelegate(opts.delegate)

	return c, nil
}

// URL returns the address the connection dials.
func (c *Connection) URL() string { return c.url }

// State reports the current lifecycle state.
func (c *Connection) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.state
}

// SetDelegate replaces the delegate. A nil d silences events.
func (c *Connection) SetDelegate(d Delegate) {
	if d == nil {
		c.delegate.Store(nil)
		return
	}
	c.delegate.Store(&delegateRef{d: d})
}

// Delegate returns the current delegate, or nil.
func (c *Connection) Delegate() Delegate {
	if ref := c.delegate.Load(); ref != nil {
		return ref.d
	}
	return nil
}

// Connect starts a session and returns immediately. ctx bounds the
// handshake only. The outcome is reported to the delegate.
func (c *Connection) Connect(ctx context.Context) error {
	c.mu.Lock()
	switch c.state {
	case StateIdle, StateClosed, StateFailed:
	default:
		c.mu.Unlock()
		return ErrAlreadyConnected
	}

	ctx, cancel := context.WithCancel(ctx)
	c.state = StateConnecting
	c.cancelDial = cancel
	c.mu.Unlock()

	go c.dial(ctx, cancel)

	return nil
}

// Disconnect closes an open session with a going-away close frame, or
// aborts a handshake in progress. It returns immediately; the delegate
// receives OnDisconnected once the session is gone.
func (c *Connection) Disconnect() {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.state {
	case StateConnecting:
		c.state = StateClosing
		if c.cancelDial != nil {
			c.cancelDial()
		}

	case StateOpen:
		c.state = StateClosing
		sock := c.socket
		timeout := c.closeTimeout
		c.closeTimer = time.AfterFunc(timeout, func() {
			c.logger.Debug("websocket close timed out, dropping socket", "url", c.url)
			sock.Close()
		})

		c.enqueueWrite(func() {
			msg := websocket.FormatCloseMessage(websocket.CloseGoingAway, "")
			if err := sock.WriteControl(websocket.CloseMessage, msg, time.Now().Add(timeout)); err != nil {
				c.logger.Debug("failed to write close frame", "error", err, "url", c.url)
				sock.Close()
			}
		})
	}
}

// SendText sends text as a text frame. It returns immediately; failures
// are reported to the delegate's OnError.
func (c *Connection) SendText(text string) {
	c.send(websocket.TextMessage, []byte(text))
}

// SendBinary sends data as a binary frame. It returns immediately;
// failures are reported to the delegate's OnError.
func (c *Connection) SendBinary(data []byte) {
	c.send(websocket.BinaryMessage, bytes.Clone(data))
}

func (c *Connection) send(messageType int, data []byte) {
	kind := frameKind(messageType)

	// Accepted sends are queued ahead of any later close frame, so they
	// are written even when Disconnect follows right away.
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateOpen {
		c.emitError(fmt.Errorf("sending %s frame: %w", kind, ErrNotConnected))
		return
	}

	c.enqueueWrite(func() {
		c.mu.Lock()
		sock := c.socket
		c.mu.Unlock()

		if sock == nil {
			c.emitError(fmt.Errorf("sending %s frame: %w", kind, ErrNotConnected))
			return
		}

		if c.limiter != nil {
			if err := c.limiter.Wait(context.Background(), "ws "+kind); err != nil {
				c.emitError(fmt.Errorf("sending %s frame: %w", kind, err))
				return
			}
		}

		if err := sock.WriteMessage(messageType, data); err != nil {
			c.metrics.RecordConnectionError("send")
			c.emitError(fmt.Errorf("sending %s frame: %w", kind, err))
			return
		}

		c.metrics.RecordFrame("out", kind)
	})
}

func (c *Connection) dial(ctx context.Context, cancel context.CancelFunc) {
	defer cancel()

	sock, err := c.dialer.DialContext(ctx, c.url, c.handshakeHeader())

	c.mu.Lock()
	c.cancelDial = nil
	aborted := c.state == StateClosing

	switch {
	case aborted:
		c.state = StateClosed
		c.mu.Unlock()
		if sock != nil {
			sock.Close()
		}
		c.logger.Debug("websocket handshake aborted", "url", c.url)
		c.emit(func(d Delegate) { d.OnDisconnected(c, nil) })
		return

	case err != nil:
		c.state = StateFailed
		c.mu.Unlock()
		c.metrics.RecordConnectionError("dial")
		c.logger.Error("failed to connect websocket", "error", err, "url", c.url)
		c.emitError(err)
		return
	}

	c.state = StateOpen
	c.socket = sock
	c.mu.Unlock()

	c.metrics.SetConnectionOpen(true)
	c.logger.Info("websocket connected", "url", c.url)
	c.emit(func(d Delegate) { d.OnConnected(c) })

	c.receive(sock)
}

// receive reads frames until the socket fails. Only one read is ever
// outstanding, and nothing reads after an error.
func (c *Connection) receive(sock Socket) {
	defer c.metrics.SetConnectionOpen(false)

	for {
		messageType, p, err := sock.ReadMessage()
		if err != nil {
			c.finish(sock, err)
			return
		}

		switch messageType {
		case websocket.TextMessage:
			c.metrics.RecordFrame("in", "text")
			text := string(p)
			c.emit(func(d Delegate) { d.OnMessage(c, text) })
		case websocket.BinaryMessage:
			c.metrics.RecordFrame("in", "binary")
			c.emit(func(d Delegate) { d.OnData(c, p) })
		}
	}
}

// finish ends the session after the receive loop observed err.
func (c *Connection) finish(sock Socket, err error) {
	c.mu.Lock()
	closing := c.state == StateClosing
	c.socket = nil
	if c.closeTimer != nil {
		c.closeTimer.Stop()
		c.closeTimer = nil
	}

	var closeErr *websocket.CloseError
	isClose := errors.As(err, &closeErr)

	switch {
	case closing, isClose && (closeErr.Code == websocket.CloseNormalClosure || closeErr.Code == websocket.CloseGoingAway):
		c.state = StateClosed
		c.mu.Unlock()
		sock.Close()
		c.logger.Info("websocket disconnected", "url", c.url)
		c.emit(func(d Delegate) { d.OnDisconnected(c, nil) })

	case isClose:
		c.state = StateFailed
		c.mu.Unlock()
		sock.Close()
		c.metrics.RecordConnectionError("receive")
		c.logger.Warn("websocket closed by peer", "code", closeErr.Code, "reason", closeErr.Text, "url", c.url)
		c.emitError(err)
		c.emit(func(d Delegate) { d.OnDisconnected(c, err) })

	default:
		c.state = StateFailed
		c.mu.Unlock()
		sock.Close()
		c.metrics.RecordConnectionError("receive")
		c.logger.Error("failed to receive websocket frame", "error", err, "url", c.url)
		c.emitError(err)
	}
}

func (c *Connection) handshakeHeader() http.Header {
	h := c.header.Clone()
	if h == nil {
		h = make(http.Header)
	}

	if c.creds != nil && h.Get("Authorization") == "" {
		if token, ok := c.creds.BearerToken(); ok && token != "" {
			h.Set("Authorization", auth.AuthorizationValue(token))
		}
	}

	return h
}

func (c *Connection) enqueueWrite(fn func()) {
	if err := c.writes.Dispatch(fn); err != nil {
		c.logger.Error("failed to queue websocket write", "error", err)
	}
}

func (c *Connection) emitError(err error) {
	c.emit(func(d Delegate) { d.OnError(c, err) })
}

// emit delivers an event on the connection's event queue. The delegate is
// resolved at delivery time.
func (c *Connection) emit(fn func(Delegate)) {
	if err := c.events.Dispatch(func() {
		if d := c.Delegate(); d != nil {
			fn(d)
		}
	}); err != nil {
		c.logger.Error("failed to queue websocket event", "error", err)
	}
}

func frameKind(messageType int) string {
	if messageType == websocket.BinaryMessage {
		return "binary"
	}
	return "text"
}
