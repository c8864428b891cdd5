// Package reach reports network reachability to the client before every
// request is dispatched.
package reach

import (
	"context"
	"net"
	"sync"
	"time"
)

// Status is the current reachability of the network.
type Status int

const (
	Unknown Status = iota
	Offline
	WWAN
	WiFi
)

func (s Status) String() string {
	switch s {
	case Offline:
		return "offline"
	case WWAN:
		return "wwan"
	case WiFi:
		return "wifi"
	default:
		return "unknown"
	}
}

// Online reports whether requests may be attempted.
func (s Status) Online() bool {
	return s == WWAN || s == WiFi
}

// Checker is queried synchronously before every load.
type Checker interface {
	Status() Status
}

// Static is a Checker that always reports itself.
type Static Status

func (s Static) Status() Status { return Status(s) }

// Func adapts a function into a Checker.
type Func func() Status

func (f Func) Status() Status { return f() }

// dialFunc matches net.Dialer.DialContext.
type dialFunc func(ctx context.Context, network, addr string) (net.Conn, error)

// Probe is a Checker that dials a TCP address and caches the outcome
// for ttl. Hosts without a cellular modem report WiFi for any reachable
// network.
type Probe struct {
	addr    string
	timeout time.Duration
	ttl     time.Duration
	dial    dialFunc

	mu      sync.Mutex
	last    Status
	checked time.Time
}

// NewProbe returns a Probe for addr ("host:port"). Zero timeout and ttl
// default to 2s and 5s.
func NewProbe(addr string, timeout, ttl time.Duration) *Probe {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	if ttl <= 0 {
		ttl = 5 * time.Second
	}

	d := net.Dialer{Timeout: timeout}

	return &Probe{
		addr:    addr,
		timeout: timeout,
		ttl:     ttl,
		dial:    d.DialContext,
	}
}

// Status dials addr unless a result younger than ttl is cached.
func (p *Probe) Status() Status {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.checked.IsZero() && time.Since(p.checked) < p.ttl {
		return p.last
	}

	if p.addr == "" {
		p.last, p.checked = Unknown, time.Now()
		return p.last
	}

	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()

	conn, err := p.dial(ctx, "tcp", p.addr)
	if err != nil {
		p.last = Offline
	} else {
		conn.Close()
		p.last = WiFi
	}
	p.checked = time.Now()

	return p.last
}
