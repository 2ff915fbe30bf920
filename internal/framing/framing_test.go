package framing

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"
)

func frame(t *testing.T, f *Framer, payload []byte) []byte {
	t.Helper()
	data, err := f.EncodeFrame(payload)
	if err != nil {
		t.Fatalf("Failed to encode frame: %v", err)
	}
	return data
}

func TestEncodeFrameLayout(t *testing.T) {
	f := New(0)

	data := frame(t, f, []byte{0xAA, 0xBB, 0xCC})
	want := []byte{0x00, 0x00, 0x00, 0x03, 0xAA, 0xBB, 0xCC}
	if !bytes.Equal(data, want) {
		t.Errorf("Expected % X, got % X", want, data)
	}
}

func TestSingleFrameRoundTrip(t *testing.T) {
	f := New(0)
	payload := []byte("hello")

	if err := f.Append(frame(t, f, payload)); err != nil {
		t.Fatalf("Failed to append: %v", err)
	}

	got, err := f.TryExtract()
	if err != nil {
		t.Fatalf("Failed to extract: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Errorf("Expected %q, got %q", payload, got)
	}

	// Nothing else buffered.
	got, err = f.TryExtract()
	if err != nil || got != nil {
		t.Errorf("Expected no more frames, got %v, %v", got, err)
	}
	if f.Buffered() != 0 {
		t.Errorf("Expected empty buffer, got %d bytes", f.Buffered())
	}
}

func TestChunkedDeliveryAnyBoundary(t *testing.T) {
	// N frames fed through arbitrary chunk sizes, including one byte at a
	// time, must come out as exactly N payloads, bit-identical and in order.
	payloads := [][]byte{
		[]byte("a"),
		[]byte("second payload"),
		{},
		bytes.Repeat([]byte{0x5A}, 300),
		[]byte("tail"),
	}

	f := New(1024)
	var wire []byte
	for _, p := range payloads {
		wire = append(wire, frame(t, f, p)...)
	}

	for _, chunkSize := range []int{1, 2, 3, 5, 7, 16, len(wire)} {
		f := New(1024)
		var got [][]byte

		for start := 0; start < len(wire); start += chunkSize {
			end := start + chunkSize
			if end > len(wire) {
				end = len(wire)
			}
			if err := f.Append(wire[start:end]); err != nil {
				t.Fatalf("chunk %d: failed to append: %v", chunkSize, err)
			}
			for {
				payload, err := f.TryExtract()
				if err != nil {
					t.Fatalf("chunk %d: failed to extract: %v", chunkSize, err)
				}
				if payload == nil {
					break
				}
				got = append(got, payload)
			}
		}

		if len(got) != len(payloads) {
			t.Fatalf("chunk %d: expected %d payloads, got %d", chunkSize, len(payloads), len(got))
		}
		for i := range payloads {
			if !bytes.Equal(got[i], payloads[i]) {
				t.Errorf("chunk %d: payload %d: expected % X, got % X", chunkSize, i, payloads[i], got[i])
			}
		}
	}
}

func TestPartialFrameRetained(t *testing.T) {
	f := New(0)
	first := frame(t, f, []byte("first"))
	second := frame(t, f, []byte("second"))

	// One read carrying a whole frame plus part of the next.
	combined := append(append([]byte{}, first...), second[:3]...)
	if err := f.Append(combined); err != nil {
		t.Fatalf("Failed to append: %v", err)
	}

	got, err := f.TryExtract()
	if err != nil {
		t.Fatalf("Failed to extract: %v", err)
	}
	if string(got) != "first" {
		t.Errorf("Expected 'first', got %q", got)
	}

	// The partial second frame must still be buffered.
	if got, err := f.TryExtract(); err != nil || got != nil {
		t.Errorf("Expected incomplete, got %v, %v", got, err)
	}

	if err := f.Append(second[3:]); err != nil {
		t.Fatalf("Failed to append remainder: %v", err)
	}
	got, err = f.TryExtract()
	if err != nil {
		t.Fatalf("Failed to extract: %v", err)
	}
	if string(got) != "second" {
		t.Errorf("Expected 'second', got %q", got)
	}
}

func TestDeclaredLengthAboveMaximum(t *testing.T) {
	f := New(16)

	header := make([]byte, HeaderSize)
	binary.BigEndian.PutUint32(header, 17)
	if err := f.Append(header); err != nil {
		t.Fatalf("Failed to append: %v", err)
	}

	if _, err := f.TryExtract(); !errors.Is(err, ErrPayloadTooLarge) {
		t.Errorf("Expected ErrPayloadTooLarge, got %v", err)
	}
}

func TestCorruptLengthNeverOverflows(t *testing.T) {
	f := New(16)

	header := make([]byte, HeaderSize)
	binary.BigEndian.PutUint32(header, 0xFFFFFFFF)
	if err := f.Append(header); err != nil {
		t.Fatalf("Failed to append: %v", err)
	}

	if _, err := f.TryExtract(); !errors.Is(err, ErrPayloadTooLarge) {
		t.Errorf("Expected ErrPayloadTooLarge, got %v", err)
	}
}

func TestEncodeFrameAboveMaximum(t *testing.T) {
	f := New(8)

	if _, err := f.EncodeFrame(make([]byte, 9)); !errors.Is(err, ErrPayloadTooLarge) {
		t.Errorf("Expected ErrPayloadTooLarge, got %v", err)
	}
}

func TestAppendOverflow(t *testing.T) {
	f := New(8)
	capacity := 2 * (HeaderSize + 8)

	if err := f.Append(make([]byte, capacity)); err != nil {
		t.Fatalf("Failed to fill buffer: %v", err)
	}
	if err := f.Append([]byte{0x00}); !errors.Is(err, ErrBufferFull) {
		t.Errorf("Expected ErrBufferFull, got %v", err)
	}
}

func TestEmptyPayloadFrame(t *testing.T) {
	f := New(0)

	if err := f.Append(frame(t, f, nil)); err != nil {
		t.Fatalf("Failed to append: %v", err)
	}

	payload, err := f.TryExtract()
	if err != nil {
		t.Fatalf("Failed to extract: %v", err)
	}
	if payload == nil {
		t.Fatal("Expected a complete empty payload, got incomplete")
	}
	if len(payload) != 0 {
		t.Errorf("Expected empty payload, got %d bytes", len(payload))
	}
}

func TestResetDiscardsState(t *testing.T) {
	f := New(0)

	if err := f.Append(frame(t, f, []byte("stale"))[:6]); err != nil {
		t.Fatalf("Failed to append: %v", err)
	}
	f.Reset()

	if f.Buffered() != 0 {
		t.Errorf("Expected empty buffer after reset, got %d bytes", f.Buffered())
	}
	if got, err := f.TryExtract(); err != nil || got != nil {
		t.Errorf("Expected nothing after reset, got %v, %v", got, err)
	}
}

func BenchmarkFrameExtract(b *testing.B) {
	f := New(0)
	data, err := f.EncodeFrame(bytes.Repeat([]byte{0xA5}, 34))
	if err != nil {
		b.Fatalf("Failed to encode: %v", err)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if err := f.Append(data); err != nil {
			b.Fatalf("Failed to append: %v", err)
		}
		if _, err := f.TryExtract(); err != nil {
			b.Fatalf("Failed to extract: %v", err)
		}
	}
}
