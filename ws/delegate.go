package ws

import "weak"

// Delegate receives connection events. Methods are called one at a time
// on the connection's event queue and should not block for long.
type Delegate interface {
	OnConnected(c *Connection)
	// OnDisconnected reports the end of a session. err is nil for an
	// orderly close and the peer's *websocket.CloseError otherwise.
	OnDisconnected(c *Connection, err error)
	OnError(c *Connection, err error)
	OnMessage(c *Connection, text string)
	OnData(c *Connection, data []byte)
}

// Funcs is a Delegate built from optional funcs. Nil fields are skipped.
type Funcs struct {
	Connected    func(c *Connection)
	Disconnected func(c *Connection, err error)
	Error        func(c *Connection, err error)
	Message      func(c *Connection, text string)
	Data         func(c *Connection, data []byte)
}

func (f Funcs) OnConnected(c *Connection) {
	if f.Connected != nil {
		f.Connected(c)
	}
}

func (f Funcs) OnDisconnected(c *Connection, err error) {
	if f.Disconnected != nil {
		f.Disconnected(c, err)
	}
}

func (f Funcs) OnError(c *Connection, err error) {
	if f.Error != nil {
		f.Error(c, err)
	}
}

func (f Funcs) OnMessage(c *Connection, text string) {
	if f.Message != nil {
		f.Message(c, text)
	}
}

func (f Funcs) OnData(c *Connection, data []byte) {
	if f.Data != nil {
		f.Data(c, data)
	}
}

// Weak returns a Delegate that refers to d without keeping it alive.
// Once d has been garbage collected its events are dropped.
func Weak[T any, PT interface {
	*T
	Delegate
}](d PT) Delegate {
	return weakDelegate[T, PT]{ptr: weak.Make((*T)(d))}
}

type weakDelegate[T any, PT interface {
	*T
	Delegate
}] struct {
	ptr weak.Pointer[T]
}

func (w weakDelegate[T, PT]) get() (Delegate, bool) {
	p := w.ptr.Value()
	if p == nil {
		return nil, false
	}
	return PT(p), true
}

func (w weakDelegate[T, PT]) OnConnected(c *Connection) {
	if d, ok := w.get(); ok {
		d.OnConnected(c)
	}
}

func (w weakDelegate[T, PT]) OnDisconnected(c *Connection, err error) {
	if d, ok := w.get(); ok {
		d.OnDisconnected(c, err)
	}
}

func (w weakDelegate[T, PT]) OnError(c *Connection, err error) {
	if d, ok := w.get(); ok {
		d.OnError(c, err)
	}
}

func (w weakDelegate[T, PT]) OnMessage(c *Connection, text string) {
	if d, ok := w.get(); ok {
		d.OnMessage(c, text)
	}
}

func (w weakDelegate[T, PT]) OnData(c *Connection, data []byte) {
	if d, ok := w.get(); ok {
		d.OnData(c, data)
	}
}
