// Package feed consumes the multicast market-data stream. Each datagram
// carries one binary message; top-of-book and trade messages go to the
// registered handler, anything else is counted and dropped.
package feed

import (
	"errors"
	"fmt"
	"net"
	"time"

	"go.uber.org/zap"

	"github.com/mxprobe/mxprobe/internal/protocol"
	"github.com/mxprobe/mxprobe/internal/transport"
)

// Handler receives each decoded market-data message.
type Handler func(protocol.Response)

// Options configure a multicast subscription.
type Options struct {
	// Group is the multicast group address.
	Group string

	Port int

	// Interface names the NIC to join on; empty lets the kernel pick.
	Interface string

	Logger *zap.SugaredLogger
}

// Stats counts feed activity.
type Stats struct {
	Packets uint64 // datagrams read
	Ticks   uint64 // top-of-book and trade messages dispatched
	Ignored uint64 // valid messages of other kinds
	Errors  uint64 // undecodable datagrams
}

// Listener reads market-data datagrams from one packet socket. Like the
// rest of the client it serves a single control flow; only Close may be
// called from another goroutine, to interrupt a blocked read.
type Listener struct {
	pc      net.PacketConn
	log     *zap.SugaredLogger
	handler Handler
	stats   Stats
	buf     []byte
}

// Listen joins the configured multicast group and returns a listener.
func Listen(opts *Options) (*Listener, error) {
	group := net.ParseIP(opts.Group)
	if group == nil {
		return nil, fmt.Errorf("bad multicast group %q", opts.Group)
	}

	conn, err := transport.ListenMulticast(group, opts.Port, opts.Interface)
	if err != nil {
		return nil, err
	}
	return NewListener(conn, opts.Logger), nil
}

// NewListener wraps an already-open packet socket. Tests use it to feed
// plain unicast UDP through the same path.
func NewListener(pc net.PacketConn, log *zap.SugaredLogger) *Listener {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Listener{
		pc:  pc,
		log: log,
		buf: make([]byte, 64*1024),
	}
}

// OnTick registers the handler invoked for each market-data message.
func (l *Listener) OnTick(h Handler) {
	l.handler = h
}

// Stats returns a snapshot of the counters.
func (l *Listener) Stats() Stats {
	return l.stats
}

// Recv waits up to timeout for one market-data message, reading datagrams
// until a tick arrives. A zero timeout polls. No tick within the window
// returns (nil, nil).
func (l *Listener) Recv(timeout time.Duration) (protocol.Response, error) {
	if timeout <= 0 {
		timeout = time.Millisecond
	}
	deadline := time.Now().Add(timeout)

	for {
		l.pc.SetReadDeadline(deadline)
		resp, err := l.read()
		if err != nil {
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				return nil, nil
			}
			return nil, err
		}
		if resp != nil {
			return resp, nil
		}
		if time.Now().After(deadline) {
			return nil, nil
		}
	}
}

// Run dispatches ticks until the socket is closed. Close from another
// goroutine is the way to stop it; that shutdown returns nil.
func (l *Listener) Run() error {
	l.pc.SetReadDeadline(time.Time{})
	for {
		if _, err := l.read(); err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			return err
		}
	}
}

// read consumes one datagram, dispatching any tick it carries. It returns
// nil when the datagram was dropped.
func (l *Listener) read() (protocol.Response, error) {
	n, _, err := l.pc.ReadFrom(l.buf)
	if err != nil {
		return nil, err
	}
	l.stats.Packets++

	resp, err := protocol.DecodeResponse(l.buf[:n])
	if err != nil {
		l.stats.Errors++
		l.log.Debugw("dropping datagram", "error", err, "bytes", n)
		return nil, nil
	}

	switch resp.(type) {
	case protocol.TopOfBook, protocol.Trade:
		l.stats.Ticks++
		if l.handler != nil {
			l.handler(resp)
		}
		return resp, nil
	default:
		// The feed should only carry market data; anything else is noise.
		l.stats.Ignored++
		return nil, nil
	}
}

// Close releases the socket.
func (l *Listener) Close() error {
	return l.pc.Close()
}
