// Package session sequences order-entry requests over one transport,
// assigns client order ids, dispatches decoded responses to a registered
// handler, and keeps latency statistics. A Session owns its transport,
// framing buffer and codec outright and serves a single control flow;
// nothing here is safe for concurrent use.
package session

import (
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/mxprobe/mxprobe/internal/protocol"
	"github.com/mxprobe/mxprobe/internal/transport"
)

const (
	// ProbeSymbol is the reserved symbol carried by encoding probes.
	ProbeSymbol = "PROBE"

	// ProbeOrderID marks probe orders, outside the auto-assigned range.
	ProbeOrderID = 0xFFFFFFFF

	probeDrainRounds  = 8
	probeDrainTimeout = 100 * time.Millisecond
)

var (
	// ErrNotConnected reports a send or receive outside StateConnected.
	ErrNotConnected = errors.New("session not connected")

	// ErrProbe reports a failed encoding probe: no reply within the probe
	// timeout, or a reply matching neither encoding. Fatal for the connect
	// attempt; the caller may reconnect.
	ErrProbe = errors.New("encoding probe failed")
)

// State tracks the session lifecycle. StateError is entered on any
// unrecoverable transport fault and left only by an explicit reconnect.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	StateError
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateError:
		return "error"
	default:
		return "disconnected"
	}
}

// Handler receives every decoded response the session processes.
type Handler func(protocol.Response)

// Options configure a session.
type Options struct {
	Host string
	Port int

	// User is stamped on every outgoing order and cancel.
	User uint32

	Mode transport.Mode

	// Encoding pins the wire encoding. EncodingUndetermined asks the
	// session to detect it: probing on stream transports, binary on
	// datagram transports.
	Encoding protocol.Encoding

	DialTimeout  time.Duration
	ProbeTimeout time.Duration

	// RecvRetries caps RecvAll iterations so a flooding peer cannot hold
	// the caller indefinitely.
	RecvRetries int

	// MaxPayload is the stream frame ceiling.
	MaxPayload int

	Logger *zap.SugaredLogger
}

// DefaultOptions returns the standard session options for an endpoint.
func DefaultOptions(host string, port int) *Options {
	return &Options{
		Host:         host,
		Port:         port,
		User:         1,
		Mode:         transport.ModeAuto,
		Encoding:     protocol.EncodingUndetermined,
		DialTimeout:  5 * time.Second,
		ProbeTimeout: 2 * time.Second,
		RecvRetries:  100,
	}
}

// Session is one client conversation with a matching engine.
type Session struct {
	opts *Options
	log  *zap.SugaredLogger

	tr      *transport.Transport
	codec   protocol.Codec
	state   State
	handler Handler

	nextID   uint32
	lastSend time.Time // zero when no send awaits its latency pairing
	stats    Stats
}

// New returns a disconnected session. A nil opts panics early rather than
// limping along; nil logger selects a no-op logger.
func New(opts *Options) *Session {
	if opts == nil {
		panic("session: nil options")
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Session{
		opts:   opts,
		log:    log,
		state:  StateDisconnected,
		nextID: 1,
	}
}

// OnResponse registers the handler invoked for each decoded response.
func (s *Session) OnResponse(h Handler) {
	s.handler = h
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	return s.state
}

// Encoding returns the active wire encoding, or EncodingUndetermined
// before a connect has latched one.
func (s *Session) Encoding() protocol.Encoding {
	if s.codec == nil {
		return protocol.EncodingUndetermined
	}
	return s.codec.Encoding()
}

// Stats returns a snapshot of the running counters.
func (s *Session) Stats() Stats {
	return s.stats
}

// TransportMode returns the resolved transport mode, meaningful once
// connected.
func (s *Session) TransportMode() transport.Mode {
	if s.tr == nil {
		return s.opts.Mode
	}
	return s.tr.Mode()
}

// Connect opens the transport and latches the wire encoding. Unless the
// caller pinned one, stream connections probe the server and classify its
// first reply; datagram connections default to binary. The latched
// encoding holds for the connection's lifetime. Connect may be called
// again after a disconnect or a fault to start over.
func (s *Session) Connect() error {
	if s.tr != nil {
		s.tr.Disconnect()
		s.tr = nil
	}
	s.state = StateConnecting
	s.lastSend = time.Time{}

	tr, err := transport.Connect(s.opts.Host, s.opts.Port, &transport.Options{
		Mode:        s.opts.Mode,
		DialTimeout: s.opts.DialTimeout,
		MaxPayload:  s.opts.MaxPayload,
	})
	if err != nil {
		s.state = StateDisconnected
		return fmt.Errorf("connect %s:%d: %w", s.opts.Host, s.opts.Port, err)
	}
	s.tr = tr

	enc := s.opts.Encoding
	if enc == protocol.EncodingUndetermined {
		if tr.Mode() == transport.ModeStream {
			enc, err = s.probeEncoding()
			if err != nil {
				tr.Disconnect()
				s.tr = nil
				s.state = StateDisconnected
				return err
			}
		} else {
			// Datagram peers cannot be probed without a handshake.
			enc = protocol.EncodingBinary
		}
	}
	s.codec = protocol.CodecFor(enc)
	s.state = StateConnected

	s.log.Infow("connected",
		"peer", tr.RemoteAddr(),
		"transport", tr.Mode().String(),
		"encoding", enc.String(),
	)
	return nil
}

// probeEncoding sends a throwaway order in binary form, classifies the
// first reply bytes, then flushes the engine and swallows the trailing
// replies so the probe leaves no residue.
func (s *Session) probeEncoding() (protocol.Encoding, error) {
	probe, err := protocol.EncodeNewOrder(protocol.NewOrder{
		User:    s.opts.User,
		Symbol:  ProbeSymbol,
		Price:   1,
		Qty:     1,
		Side:    protocol.Buy,
		OrderID: ProbeOrderID,
	})
	if err != nil {
		return protocol.EncodingUndetermined, err
	}
	if err := s.tr.Send(probe); err != nil {
		return protocol.EncodingUndetermined, fmt.Errorf("%w: %v", ErrProbe, err)
	}

	reply, err := s.tr.Recv(s.opts.ProbeTimeout)
	if err != nil {
		return protocol.EncodingUndetermined, fmt.Errorf("%w: %v", ErrProbe, err)
	}
	if reply == nil {
		return protocol.EncodingUndetermined, fmt.Errorf("%w: no reply within %v", ErrProbe, s.opts.ProbeTimeout)
	}

	enc := protocol.DetectEncoding(reply)
	if enc == protocol.EncodingUndetermined {
		return protocol.EncodingUndetermined, fmt.Errorf("%w: unclassifiable reply % X", ErrProbe, reply[:min(len(reply), 8)])
	}
	s.log.Debugw("probe classified", "encoding", enc.String())

	flush, err := protocol.CodecFor(enc).EncodeRequest(protocol.Flush{})
	if err != nil {
		return protocol.EncodingUndetermined, err
	}
	if err := s.tr.Send(flush); err != nil {
		return protocol.EncodingUndetermined, fmt.Errorf("%w: %v", ErrProbe, err)
	}
	for i := 0; i < probeDrainRounds; i++ {
		data, err := s.tr.Recv(probeDrainTimeout)
		if err != nil {
			return protocol.EncodingUndetermined, fmt.Errorf("%w: %v", ErrProbe, err)
		}
		if data == nil {
			break
		}
	}

	return enc, nil
}

// Disconnect closes the transport. Counters survive for inspection.
func (s *Session) Disconnect() error {
	s.state = StateDisconnected
	s.lastSend = time.Time{}
	if s.tr == nil {
		return nil
	}
	err := s.tr.Disconnect()
	s.tr = nil
	return err
}

// SendOrder submits a limit order and returns the client order id it was
// sent under. An orderID of zero auto-assigns the next id in the session's
// strictly increasing sequence. An attempted id is never reused, even when
// the send fails.
func (s *Session) SendOrder(symbol string, price, qty uint32, side protocol.Side, orderID uint32) (uint32, error) {
	if s.state != StateConnected {
		return 0, ErrNotConnected
	}

	id := orderID
	if id == 0 {
		id = s.nextID
		s.nextID++
	}

	err := s.send(protocol.NewOrder{
		User:    s.opts.User,
		Symbol:  symbol,
		Price:   price,
		Qty:     qty,
		Side:    side,
		OrderID: id,
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

// SendCancel asks the engine to remove one of this user's orders.
func (s *Session) SendCancel(orderID uint32) error {
	if s.state != StateConnected {
		return ErrNotConnected
	}
	return s.send(protocol.Cancel{User: s.opts.User, OrderID: orderID})
}

// SendFlush asks the engine to clear every book.
func (s *Session) SendFlush() error {
	if s.state != StateConnected {
		return ErrNotConnected
	}
	return s.send(protocol.Flush{})
}

// send encodes and transmits one request. Encode rejections surface
// without touching the wire or the connection state; transport faults
// push the session into StateError.
func (s *Session) send(req protocol.Request) error {
	data, err := s.codec.EncodeRequest(req)
	if err != nil {
		return err
	}
	if err := s.tr.Send(data); err != nil {
		s.state = StateError
		s.log.Errorw("send failed", "request", protocol.KindName(req.Kind()), "error", err)
		return err
	}

	s.stats.Sent++
	s.lastSend = time.Now()
	return nil
}

// Poll drains every currently available response without blocking and
// returns how many were dispatched.
func (s *Session) Poll() int {
	if s.state != StateConnected {
		return 0
	}

	count := 0
	for {
		data, err := s.tr.Recv(0)
		if err != nil {
			s.state = StateError
			s.log.Errorw("receive failed", "error", err)
			return count
		}
		if data == nil {
			return count
		}
		if s.process(data) != nil {
			count++
		}
	}
}

// Recv waits up to timeout for exactly one response. A quiet connection
// returns (nil, nil); corrupt payloads are counted and skipped without
// consuming the caller's one response.
func (s *Session) Recv(timeout time.Duration) (protocol.Response, error) {
	if s.state != StateConnected {
		return nil, ErrNotConnected
	}

	deadline := time.Now().Add(timeout)
	for {
		remain := time.Duration(0)
		if timeout > 0 {
			remain = time.Until(deadline)
			if remain < 0 {
				remain = 0
			}
		}

		data, err := s.tr.Recv(remain)
		if err != nil {
			s.state = StateError
			s.log.Errorw("receive failed", "error", err)
			return nil, err
		}
		if data == nil {
			return nil, nil
		}
		if resp := s.process(data); resp != nil {
			return resp, nil
		}
		// Decode failure: keep consuming within the deadline.
		if timeout > 0 && time.Now().After(deadline) {
			return nil, nil
		}
	}
}

// RecvAll drains already-buffered responses immediately, then keeps
// receiving with the given timeout until a wait comes back empty or the
// retry cap is reached. It returns the number of responses dispatched.
func (s *Session) RecvAll(timeout time.Duration) int {
	count := s.Poll()

	retries := s.opts.RecvRetries
	if retries <= 0 {
		retries = 1
	}
	for i := 0; i < retries; i++ {
		resp, err := s.Recv(timeout)
		if err != nil || resp == nil {
			break
		}
		count++
	}
	return count
}

// process decodes one payload, updates counters and latency, and hands the
// response to the handler. Decode failures are absorbed: counted, logged
// and dropped, leaving the connection alone.
func (s *Session) process(data []byte) protocol.Response {
	resp, err := s.codec.DecodeResponse(data)
	if err != nil {
		s.stats.DecodeErrors++
		s.log.Debugw("discarding payload", "error", err, "bytes", len(data))
		return nil
	}

	s.stats.Received++
	if !s.lastSend.IsZero() {
		s.stats.Latency.Record(time.Since(s.lastSend))
		s.lastSend = time.Time{}
	}
	if s.handler != nil {
		s.handler(resp)
	}
	return resp
}
