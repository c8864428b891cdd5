package reach

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"
)

func TestStatus_Online(t *testing.T) {
	testCases := []struct {
		status Status
		online bool
		name   string
	}{
		{status: Unknown, online: false, name: "unknown"},
		{status: Offline, online: false, name: "offline"},
		{status: WWAN, online: true, name: "wwan"},
		{status: WiFi, online: true, name: "wifi"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.status.Online(); got != tc.online {
				t.Errorf("exp online %v, got %v", tc.online, got)
			}
			if got := tc.status.String(); got != tc.name {
				t.Errorf("exp name %q, got %q", tc.name, got)
			}
			if got := Static(tc.status).Status(); got != tc.status {
				t.Errorf("exp static %v, got %v", tc.status, got)
			}
		})
	}
}

func TestProbe_Status(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			conn.Close()
		}
	}()

	t.Run("reachable", func(t *testing.T) {
		p := NewProbe(ln.Addr().String(), time.Second, time.Minute)
		if got := p.Status(); got != WiFi {
			t.Errorf("exp %v, got %v", WiFi, got)
		}
	})

	t.Run("unreachable and cached", func(t *testing.T) {
		var dials int
		p := NewProbe("example.invalid:80", time.Second, time.Minute)
		p.dial = func(ctx context.Context, network, addr string) (net.Conn, error) {
			dials++
			return nil, errors.New("no route to host")
		}

		for range 3 {
			if got := p.Status(); got != Offline {
				t.Errorf("exp %v, got %v", Offline, got)
			}
		}
		if dials != 1 {
			t.Errorf("exp 1 dial within ttl, got %d", dials)
		}
	})

	t.Run("empty address", func(t *testing.T) {
		p := NewProbe("", 0, 0)
		if got := p.Status(); got != Unknown {
			t.Errorf("exp %v, got %v", Unknown, got)
		}
	})
}
