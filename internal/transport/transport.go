// Package transport carries protocol payloads over a stream or datagram
// socket. Stream connections run every payload through length-prefix
// framing; datagram connections map one payload to one packet.
package transport

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/mxprobe/mxprobe/internal/framing"
)

// Mode selects how the connection reaches the engine.
type Mode int

const (
	// ModeAuto attempts a stream connect, then falls back to datagram.
	ModeAuto Mode = iota
	// ModeStream is a framed TCP connection.
	ModeStream
	// ModeDatagram is a UDP exchange with a remembered endpoint.
	ModeDatagram
)

func (m Mode) String() string {
	switch m {
	case ModeStream:
		return "stream"
	case ModeDatagram:
		return "datagram"
	default:
		return "auto"
	}
}

// ParseMode reads a mode name, accepting tcp and udp as aliases.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "auto", "":
		return ModeAuto, nil
	case "stream", "tcp":
		return ModeStream, nil
	case "datagram", "udp":
		return ModeDatagram, nil
	default:
		return ModeAuto, fmt.Errorf("unknown transport mode %q", s)
	}
}

var (
	// ErrNotConnected reports an operation before a successful Connect.
	ErrNotConnected = errors.New("transport not connected")

	// ErrFailed reports an operation after an unrecoverable fault. Only a
	// fresh Connect clears it.
	ErrFailed = errors.New("transport in failed state")
)

// Reads with an already-expired deadline fail before the socket is
// checked, so a zero (poll) timeout uses this minimal deadline instead.
const pollGrace = time.Millisecond

// Options configure a connection attempt.
type Options struct {
	Mode        Mode
	DialTimeout time.Duration
	MaxPayload  int // frame payload ceiling for stream mode
}

// DefaultOptions returns the standard connection options.
func DefaultOptions() *Options {
	return &Options{
		Mode:        ModeAuto,
		DialTimeout: 5 * time.Second,
		MaxPayload:  framing.DefaultMaxPayload,
	}
}

// Transport is one connection to the engine. It is exclusively owned by a
// single session; nothing here is safe for concurrent use.
type Transport struct {
	mode    Mode // resolved ModeStream or ModeDatagram
	conn    net.Conn
	framer  *framing.Framer
	readBuf []byte
	failed  bool
}

// Connect resolves host and opens a connection on the requested port. A nil
// opts selects DefaultOptions. With ModeAuto a failed stream dial falls back
// to a datagram socket bound to the resolved endpoint; datagram mode has no
// handshake, so its connect cannot observe an unreachable peer.
func Connect(host string, port int, opts *Options) (*Transport, error) {
	if opts == nil {
		opts = DefaultOptions()
	}

	ip, err := ResolveHost(host)
	if err != nil {
		return nil, err
	}
	addr := net.JoinHostPort(ip.String(), strconv.Itoa(port))

	t := &Transport{readBuf: make([]byte, 64*1024)}

	switch opts.Mode {
	case ModeStream:
		if err := t.dialStream(addr, opts); err != nil {
			return nil, err
		}
	case ModeDatagram:
		if err := t.dialDatagram(addr); err != nil {
			return nil, err
		}
	default:
		if serr := t.dialStream(addr, opts); serr != nil {
			if derr := t.dialDatagram(addr); derr != nil {
				return nil, fmt.Errorf("stream connect failed (%v), datagram fallback: %w", serr, derr)
			}
		}
	}

	return t, nil
}

func (t *Transport) dialStream(addr string, opts *Options) error {
	conn, err := net.DialTimeout("tcp", addr, opts.DialTimeout)
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", addr, err)
	}

	if tcpConn, ok := conn.(*net.TCPConn); ok {
		tcpConn.SetNoDelay(true)
		tcpConn.SetKeepAlive(true)
		tcpConn.SetKeepAlivePeriod(30 * time.Second)
	}

	t.conn = conn
	t.mode = ModeStream
	t.framer = framing.New(opts.MaxPayload)
	t.failed = false
	return nil
}

func (t *Transport) dialDatagram(addr string) error {
	udpAddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return fmt.Errorf("failed to resolve %s: %w", addr, err)
	}

	conn, err := net.DialUDP("udp", nil, udpAddr)
	if err != nil {
		return fmt.Errorf("failed to open datagram socket for %s: %w", addr, err)
	}

	t.conn = conn
	t.mode = ModeDatagram
	t.framer = nil
	t.failed = false
	return nil
}

// Mode returns the resolved transport mode.
func (t *Transport) Mode() Mode {
	return t.mode
}

// Connected reports whether the socket is open.
func (t *Transport) Connected() bool {
	return t.conn != nil
}

// Failed reports whether an unrecoverable fault has been latched.
func (t *Transport) Failed() bool {
	return t.failed
}

// RemoteAddr returns the peer address, or empty before Connect.
func (t *Transport) RemoteAddr() string {
	if t.conn == nil {
		return ""
	}
	return t.conn.RemoteAddr().String()
}

// Send writes one protocol payload. Stream mode frames it first; datagram
// mode sends it as a single packet. Framing and write faults latch the
// failed state.
func (t *Transport) Send(payload []byte) error {
	if t.conn == nil {
		return ErrNotConnected
	}
	if t.failed {
		return ErrFailed
	}

	data := payload
	if t.mode == ModeStream {
		frame, err := t.framer.EncodeFrame(payload)
		if err != nil {
			t.failed = true
			return err
		}
		data = frame
	}

	if err := t.writeAll(data); err != nil {
		t.failed = true
		return err
	}
	return nil
}

// writeAll keeps writing until the whole buffer is on the wire.
func (t *Transport) writeAll(data []byte) error {
	for len(data) > 0 {
		n, err := t.conn.Write(data)
		if err != nil {
			return fmt.Errorf("write: %w", err)
		}
		data = data[n:]
	}
	return nil
}

// Recv returns the next payload. A zero timeout polls; a positive timeout
// blocks up to that duration. No data within the timeout returns (nil, nil),
// which is a normal outcome rather than an error. Stream mode serves from
// already-buffered bytes before touching the socket.
func (t *Transport) Recv(timeout time.Duration) ([]byte, error) {
	if t.conn == nil {
		return nil, ErrNotConnected
	}
	if t.failed {
		return nil, ErrFailed
	}

	if t.mode == ModeDatagram {
		return t.recvDatagram(timeout)
	}
	return t.recvStream(timeout)
}

func (t *Transport) recvStream(timeout time.Duration) ([]byte, error) {
	if payload, err := t.extract(); payload != nil || err != nil {
		return payload, err
	}

	if timeout <= 0 {
		timeout = pollGrace
	}
	deadline := time.Now().Add(timeout)

	for {
		t.conn.SetReadDeadline(deadline)
		n, err := t.conn.Read(t.readBuf)
		if n > 0 {
			if aerr := t.framer.Append(t.readBuf[:n]); aerr != nil {
				t.failed = true
				return nil, aerr
			}
			if payload, xerr := t.extract(); payload != nil || xerr != nil {
				return payload, xerr
			}
		}
		if err != nil {
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				return nil, nil
			}
			t.failed = true
			return nil, fmt.Errorf("read: %w", err)
		}
	}
}

func (t *Transport) recvDatagram(timeout time.Duration) ([]byte, error) {
	if timeout <= 0 {
		timeout = pollGrace
	}
	t.conn.SetReadDeadline(time.Now().Add(timeout))

	n, err := t.conn.Read(t.readBuf)
	if err != nil {
		var ne net.Error
		if errors.As(err, &ne) && ne.Timeout() {
			return nil, nil
		}
		t.failed = true
		return nil, fmt.Errorf("read: %w", err)
	}

	payload := make([]byte, n)
	copy(payload, t.readBuf[:n])
	return payload, nil
}

// extract pulls the next complete frame out of the accumulation buffer,
// latching the failed state on framing errors.
func (t *Transport) extract() ([]byte, error) {
	payload, err := t.framer.TryExtract()
	if err != nil {
		t.failed = true
		return nil, err
	}
	return payload, nil
}

// Disconnect closes the socket and discards framing state. It is safe to
// call repeatedly.
func (t *Transport) Disconnect() error {
	if t.conn == nil {
		return nil
	}

	err := t.conn.Close()
	t.conn = nil
	if t.framer != nil {
		t.framer.Reset()
	}
	t.failed = false
	return err
}
