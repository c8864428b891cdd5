package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"

	"github.com/megaganjotsingh/GSWebServiceHelper/ws"
)

func newListenCmd(root *rootFlags) *cobra.Command {
	var (
		send []string
		once bool
	)

	cmd := &cobra.Command{
		Use:   "listen",
		Short: "Print frames from the websocket endpoint",
		Long: `Connect to websocket.url and print every frame until interrupted
or the server closes the connection.

Example:
  gsweb listen
  gsweb listen --send '{"subscribe":"orders"}'
  gsweb listen --send ping --once`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := loadStack(root, newLogger(cmd.ErrOrStderr(), root.verbose))
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			s.serveMetrics(ctx)

			out := cmd.OutOrStdout()
			done := make(chan error, 1)

			conn, err := s.connection(listener{out: out, send: send, once: once, done: done})
			if err != nil {
				return fmt.Errorf("failed to create connection: %w", err)
			}

			if err := conn.Connect(ctx); err != nil {
				return err
			}

			select {
			case err := <-done:
				return err
			case <-ctx.Done():
				fmt.Fprintln(out, noticeColor("disconnecting"))
				conn.Disconnect()
				return <-done
			}
		},
	}

	cmd.Flags().StringArrayVar(&send, "send", nil, "Text frame to send once connected (repeatable)")
	cmd.Flags().BoolVar(&once, "once", false, "Disconnect after the first incoming frame")

	return cmd
}

// listener prints connection events. done receives the session outcome.
type listener struct {
	out  io.Writer
	send []string
	once bool
	done chan<- error
}

func (l listener) OnConnected(c *ws.Connection) {
	fmt.Fprintln(l.out, okColor("connected to %s", c.URL()))
	for _, text := range l.send {
		c.SendText(text)
	}
}

func (l listener) OnDisconnected(_ *ws.Connection, err error) {
	if err != nil {
		l.finish(fmt.Errorf("connection closed: %w", err))
		return
	}
	fmt.Fprintln(l.out, noticeColor("disconnected"))
	l.finish(nil)
}

func (l listener) OnError(c *ws.Connection, err error) {
	fmt.Fprintln(l.out, errorColor("error: %v", err))

	// A peer close is followed by OnDisconnected, which ends the session.
	var closeErr *websocket.CloseError
	if errors.As(err, &closeErr) {
		return
	}

	switch c.State() {
	case ws.StateFailed, ws.StateClosed:
		l.finish(err)
	}
}

func (l listener) OnMessage(c *ws.Connection, text string) {
	fmt.Fprintln(l.out, inFrameColor("< %s", text))
	if l.once {
		c.Disconnect()
	}
}

func (l listener) OnData(c *ws.Connection, data []byte) {
	fmt.Fprintln(l.out, inFrameColor("< %d bytes", len(data)))
	if l.once {
		c.Disconnect()
	}
}

func (l listener) finish(err error) {
	select {
	case l.done <- err:
	default:
	}
}
