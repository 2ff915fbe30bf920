// Package framing restores message boundaries on a byte-oriented stream.
// Each frame is a 4-byte big-endian payload length followed by the payload.
package framing

import (
	"encoding/binary"
	"errors"
	"fmt"
)

const (
	// HeaderSize is the length prefix width in bytes.
	HeaderSize = 4

	// DefaultMaxPayload bounds a single frame's payload.
	DefaultMaxPayload = 64 * 1024
)

var (
	// ErrPayloadTooLarge reports a frame above the configured maximum,
	// on either the read or the write path.
	ErrPayloadTooLarge = errors.New("frame payload exceeds maximum")

	// ErrBufferFull reports that appending would overflow the
	// accumulation buffer.
	ErrBufferFull = errors.New("frame buffer full")
)

// Framer accumulates raw reads and extracts complete frames. The read side
// walks header -> payload -> ready: with no pending length it parses a
// header, then waits until the declared payload is fully buffered. A Framer
// belongs to exactly one connection and is not safe for concurrent use.
type Framer struct {
	maxPayload int
	buf        []byte // buffered unconsumed bytes, fixed capacity
	pending    int    // declared payload length, -1 while awaiting a header
}

// New returns a Framer enforcing the given payload ceiling. A maxPayload
// of zero or less selects DefaultMaxPayload. The accumulation buffer holds
// two maximum frames, enough for one complete frame plus a partial next.
func New(maxPayload int) *Framer {
	if maxPayload <= 0 {
		maxPayload = DefaultMaxPayload
	}
	return &Framer{
		maxPayload: maxPayload,
		buf:        make([]byte, 0, 2*(HeaderSize+maxPayload)),
		pending:    -1,
	}
}

// MaxPayload returns the configured payload ceiling.
func (f *Framer) MaxPayload() int {
	return f.maxPayload
}

// Buffered returns how many unconsumed bytes are currently held.
func (f *Framer) Buffered() int {
	return len(f.buf)
}

// Append copies newly read bytes into the accumulation buffer. It fails
// with ErrBufferFull rather than growing past the fixed capacity.
func (f *Framer) Append(data []byte) error {
	if len(f.buf)+len(data) > cap(f.buf) {
		return fmt.Errorf("%w: %d buffered + %d incoming exceeds %d",
			ErrBufferFull, len(f.buf), len(data), cap(f.buf))
	}
	f.buf = append(f.buf, data...)
	return nil
}

// TryExtract returns the next complete payload, or (nil, nil) when the
// buffered bytes do not yet form one. A declared length above the maximum
// returns ErrPayloadTooLarge. Extraction consumes only the frame's own
// bytes; any following partial frame stays buffered. A complete frame with
// an empty payload returns a non-nil empty slice.
func (f *Framer) TryExtract() ([]byte, error) {
	if f.pending < 0 {
		if len(f.buf) < HeaderSize {
			return nil, nil
		}
		declared := int(binary.BigEndian.Uint32(f.buf))
		if declared > f.maxPayload {
			return nil, fmt.Errorf("%w: declared %d bytes, maximum %d",
				ErrPayloadTooLarge, declared, f.maxPayload)
		}
		f.consume(HeaderSize)
		f.pending = declared
	}

	if len(f.buf) < f.pending {
		return nil, nil
	}

	payload := make([]byte, f.pending)
	copy(payload, f.buf)
	f.consume(f.pending)
	f.pending = -1
	return payload, nil
}

// EncodeFrame prefixes a payload with its big-endian length, applying the
// same ceiling as the read path.
func (f *Framer) EncodeFrame(payload []byte) ([]byte, error) {
	if len(payload) > f.maxPayload {
		return nil, fmt.Errorf("%w: payload %d bytes, maximum %d",
			ErrPayloadTooLarge, len(payload), f.maxPayload)
	}

	frame := make([]byte, HeaderSize+len(payload))
	binary.BigEndian.PutUint32(frame, uint32(len(payload)))
	copy(frame[HeaderSize:], payload)
	return frame, nil
}

// Reset discards all buffered bytes and pending state, for reuse after a
// reconnect.
func (f *Framer) Reset() {
	f.buf = f.buf[:0]
	f.pending = -1
}

// consume drops n leading bytes and shifts the remainder to the front,
// preserving the buffer's capacity.
func (f *Framer) consume(n int) {
	kept := copy(f.buf, f.buf[n:])
	f.buf = f.buf[:kept]
}
