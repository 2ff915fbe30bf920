// Package enginetest runs a small in-process matching engine for exercising
// clients against real sockets. It speaks the order-entry protocol over
// framed TCP and raw UDP on the same port, accepts binary and text requests
// interchangeably, and answers in one configured encoding, the way a real
// engine deployment does.
package enginetest

import (
	"fmt"
	"net"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/mxprobe/mxprobe/internal/framing"
	"github.com/mxprobe/mxprobe/internal/protocol"
)

// Options configure the stub engine.
type Options struct {
	// Port fixes the listening port; zero picks an ephemeral one.
	Port int

	// Encoding selects the response encoding. Defaults to binary.
	Encoding protocol.Encoding

	// EmitTopOfBook appends best-level updates after book mutations.
	EmitTopOfBook bool

	// MaxPayload is the stream frame ceiling.
	MaxPayload int

	Logger *zap.SugaredLogger
}

// Engine is a listening stub matching engine. Close it when done.
type Engine struct {
	opts  *Options
	log   *zap.SugaredLogger
	codec protocol.Codec

	ln net.Listener
	pc *net.UDPConn

	mu    sync.Mutex
	books map[string]*book
	conns map[net.Conn]struct{}

	wg sync.WaitGroup
}

// Start listens on a loopback port, serving framed TCP and raw UDP. A nil
// opts runs a binary-encoding engine with defaults.
func Start(opts *Options) (*Engine, error) {
	if opts == nil {
		opts = &Options{}
	}
	enc := opts.Encoding
	if enc == protocol.EncodingUndetermined {
		enc = protocol.EncodingBinary
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop().Sugar()
	}

	ln, err := net.Listen("tcp", fmt.Sprintf("127.0.0.1:%d", opts.Port))
	if err != nil {
		return nil, err
	}
	port := ln.Addr().(*net.TCPAddr).Port

	pc, err := net.ListenUDP("udp4", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: port})
	if err != nil {
		ln.Close()
		return nil, err
	}

	e := &Engine{
		opts:  opts,
		log:   log,
		codec: protocol.CodecFor(enc),
		ln:    ln,
		pc:    pc,
		books: make(map[string]*book),
		conns: make(map[net.Conn]struct{}),
	}

	e.wg.Add(2)
	go func() {
		defer e.wg.Done()
		e.serveStream()
	}()
	go func() {
		defer e.wg.Done()
		e.serveDatagram()
	}()

	return e, nil
}

// Host returns the loopback address the engine listens on.
func (e *Engine) Host() string {
	return "127.0.0.1"
}

// Port returns the shared TCP and UDP port.
func (e *Engine) Port() int {
	return e.ln.Addr().(*net.TCPAddr).Port
}

// Close stops the listeners and tears down every open connection.
func (e *Engine) Close() {
	e.ln.Close()
	e.pc.Close()

	e.mu.Lock()
	for conn := range e.conns {
		conn.Close()
	}
	e.mu.Unlock()

	e.wg.Wait()
}

func (e *Engine) serveStream() {
	for {
		conn, err := e.ln.Accept()
		if err != nil {
			return
		}

		e.mu.Lock()
		e.conns[conn] = struct{}{}
		e.mu.Unlock()

		e.wg.Add(1)
		go func() {
			defer e.wg.Done()
			e.handleConn(conn)
		}()
	}
}

func (e *Engine) handleConn(conn net.Conn) {
	defer func() {
		conn.Close()
		e.mu.Lock()
		delete(e.conns, conn)
		e.mu.Unlock()
	}()

	f := framing.New(e.opts.MaxPayload)
	buf := make([]byte, 32*1024)

	for {
		conn.SetReadDeadline(time.Now().Add(30 * time.Second))
		n, err := conn.Read(buf)
		if n > 0 {
			if aerr := f.Append(buf[:n]); aerr != nil {
				e.log.Debugw("closing connection", "error", aerr)
				return
			}
			for {
				payload, xerr := f.TryExtract()
				if xerr != nil {
					e.log.Debugw("closing connection", "error", xerr)
					return
				}
				if payload == nil {
					break
				}
				if !e.respondStream(conn, f, e.handle(payload)) {
					return
				}
			}
		}
		if err != nil {
			return
		}
	}
}

func (e *Engine) respondStream(conn net.Conn, f *framing.Framer, responses []protocol.Response) bool {
	for _, resp := range responses {
		data, err := e.codec.EncodeResponse(resp)
		if err != nil {
			// Text engines have no reject line; drop it like they do.
			e.log.Debugw("skipping response", "error", err)
			continue
		}
		frame, err := f.EncodeFrame(data)
		if err != nil {
			e.log.Debugw("skipping response", "error", err)
			continue
		}
		conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
		if _, err := conn.Write(frame); err != nil {
			return false
		}
	}
	return true
}

func (e *Engine) serveDatagram() {
	buf := make([]byte, 64*1024)
	for {
		n, addr, err := e.pc.ReadFromUDP(buf)
		if err != nil {
			return
		}
		for _, resp := range e.handle(buf[:n]) {
			data, err := e.codec.EncodeResponse(resp)
			if err != nil {
				continue
			}
			e.pc.WriteToUDP(data, addr)
		}
	}
}

// handle decodes one request payload in whichever encoding it arrived in
// and runs it through the books.
func (e *Engine) handle(payload []byte) []protocol.Response {
	var req protocol.Request
	var err error
	if len(payload) > 0 && payload[0] == protocol.Magic {
		req, err = protocol.DecodeRequest(payload)
	} else {
		req, err = protocol.ParseRequest(payload)
	}
	if err != nil {
		e.log.Debugw("ignoring unreadable request", "error", err)
		return nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	switch m := req.(type) {
	case protocol.NewOrder:
		return e.newOrder(m)
	case protocol.Cancel:
		return e.cancel(m)
	case protocol.Flush:
		return e.flush()
	default:
		return nil
	}
}

func (e *Engine) newOrder(o protocol.NewOrder) []protocol.Response {
	if o.Symbol == "" {
		return nil
	}
	if o.Qty == 0 {
		return []protocol.Response{protocol.Reject{
			Symbol: o.Symbol, User: o.User, OrderID: o.OrderID, Reason: protocol.RejectInvalidQty,
		}}
	}
	if e.liveOrder(o.User, o.OrderID) {
		return []protocol.Response{protocol.Reject{
			Symbol: o.Symbol, User: o.User, OrderID: o.OrderID, Reason: protocol.RejectDuplicateID,
		}}
	}

	out := []protocol.Response{protocol.Ack{Symbol: o.Symbol, User: o.User, OrderID: o.OrderID}}

	b := e.book(o.Symbol)
	trades, rest := b.match(o.Symbol, o)
	out = append(out, trades...)
	if rest > 0 {
		b.insert(o.Side, &resting{user: o.User, id: o.OrderID, price: o.Price, qty: rest})
	}

	return append(out, e.bookUpdate(o.Symbol)...)
}

func (e *Engine) cancel(c protocol.Cancel) []protocol.Response {
	// Unknown cancels are ignored, not rejected.
	for _, symbol := range e.symbols() {
		b := e.books[symbol]
		if !b.remove(c.User, c.OrderID) {
			continue
		}
		out := []protocol.Response{protocol.CancelAck{Symbol: symbol, User: c.User, OrderID: c.OrderID}}
		out = append(out, e.bookUpdate(symbol)...)
		if b.empty() {
			delete(e.books, symbol)
		}
		return out
	}
	return nil
}

func (e *Engine) flush() []protocol.Response {
	var out []protocol.Response
	for _, symbol := range e.symbols() {
		b := e.books[symbol]
		for _, o := range b.bids {
			out = append(out, protocol.CancelAck{Symbol: symbol, User: o.user, OrderID: o.id})
		}
		for _, o := range b.asks {
			out = append(out, protocol.CancelAck{Symbol: symbol, User: o.user, OrderID: o.id})
		}
	}
	e.books = make(map[string]*book)
	return out
}

func (e *Engine) book(symbol string) *book {
	b, ok := e.books[symbol]
	if !ok {
		b = &book{}
		e.books[symbol] = b
	}
	return b
}

func (e *Engine) symbols() []string {
	out := make([]string, 0, len(e.books))
	for symbol := range e.books {
		out = append(out, symbol)
	}
	sort.Strings(out)
	return out
}

func (e *Engine) liveOrder(user, id uint32) bool {
	for _, b := range e.books {
		if b.holds(user, id) {
			return true
		}
	}
	return false
}

// bookUpdate reports both best levels of a symbol when enabled.
func (e *Engine) bookUpdate(symbol string) []protocol.Response {
	if !e.opts.EmitTopOfBook {
		return nil
	}
	b := e.book(symbol)
	bidPrice, bidQty := b.top(protocol.Buy)
	askPrice, askQty := b.top(protocol.Sell)
	return []protocol.Response{
		protocol.TopOfBook{Symbol: symbol, Side: protocol.Buy, Price: bidPrice, Qty: bidQty},
		protocol.TopOfBook{Symbol: symbol, Side: protocol.Sell, Price: askPrice, Qty: askQty},
	}
}
