package protocol

import (
	"bytes"
	"errors"
	"testing"
)

func TestEncodeNewOrderLayout(t *testing.T) {
	o := NewOrder{User: 1, Symbol: "IBM", Price: 100, Qty: 50, Side: Buy, OrderID: 42}

	data, err := EncodeNewOrder(o)
	if err != nil {
		t.Fatalf("Failed to encode: %v", err)
	}

	want := []byte{
		0xA5, 0x01, // magic, kind
		0x00, 0x00, 0x00, 0x01, // user
		'I', 'B', 'M', 0, 0, 0, 0, 0, // symbol, zero padded
		0x00, 0x00, 0x00, 0x64, // price
		0x00, 0x00, 0x00, 0x32, // qty
		'B',                    // side
		0x00, 0x00, 0x00, 0x2A, // order id
	}
	if !bytes.Equal(data, want) {
		t.Errorf("Expected % X, got % X", want, data)
	}
}

func TestEncodeCancelLayout(t *testing.T) {
	data, err := EncodeCancel(Cancel{User: 7, OrderID: 9})
	if err != nil {
		t.Fatalf("Failed to encode: %v", err)
	}

	want := []byte{0xA5, 0x02, 0, 0, 0, 7, 0, 0, 0, 9}
	if !bytes.Equal(data, want) {
		t.Errorf("Expected % X, got % X", want, data)
	}
}

func TestEncodeFlushLayout(t *testing.T) {
	data, err := EncodeFlush()
	if err != nil {
		t.Fatalf("Failed to encode: %v", err)
	}
	if !bytes.Equal(data, []byte{0xA5, 0x03}) {
		t.Errorf("Expected A5 03, got % X", data)
	}
}

func TestRequestRoundTrip(t *testing.T) {
	requests := []Request{
		NewOrder{User: 1, Symbol: "IBM", Price: 10000, Qty: 50, Side: Buy, OrderID: 1},
		NewOrder{User: 4294967295, Symbol: "AAPLCORP", Price: 4294967295, Qty: 4294967295, Side: Sell, OrderID: 4294967295},
		Cancel{User: 12, OrderID: 34},
		Flush{},
	}

	for _, req := range requests {
		data, err := BinaryCodec{}.EncodeRequest(req)
		if err != nil {
			t.Fatalf("Failed to encode %v: %v", req, err)
		}

		got, err := DecodeRequest(data)
		if err != nil {
			t.Fatalf("Failed to decode %v: %v", req, err)
		}
		if got != req {
			t.Errorf("Expected %v, got %v", req, got)
		}
	}
}

func TestResponseRoundTrip(t *testing.T) {
	responses := []Response{
		Ack{Symbol: "IBM", User: 1, OrderID: 2},
		CancelAck{Symbol: "VAL", User: 3, OrderID: 4},
		Trade{Symbol: "IBM", BuyUser: 1, BuyOrderID: 10, SellUser: 2, SellOrderID: 20, Price: 100, Qty: 50},
		TopOfBook{Symbol: "IBM", Side: Buy, Price: 100, Qty: 50},
		TopOfBook{Symbol: "IBM", Side: Sell, Price: 0, Qty: 0},
		Reject{Symbol: "IBM", User: 5, OrderID: 6, Reason: RejectInvalidQty},
	}

	for _, resp := range responses {
		data, err := BinaryCodec{}.EncodeResponse(resp)
		if err != nil {
			t.Fatalf("Failed to encode %v: %v", resp, err)
		}

		got, err := DecodeResponse(data)
		if err != nil {
			t.Fatalf("Failed to decode %v: %v", resp, err)
		}
		if got != resp {
			t.Errorf("Expected %v, got %v", resp, got)
		}
	}
}

func TestRecordSizes(t *testing.T) {
	cases := []struct {
		name string
		data func() ([]byte, error)
		want int
	}{
		{"NewOrder", func() ([]byte, error) {
			return EncodeNewOrder(NewOrder{User: 1, Symbol: "X", Price: 1, Qty: 1, Side: Buy, OrderID: 1})
		}, NewOrderSize},
		{"Cancel", func() ([]byte, error) { return EncodeCancel(Cancel{User: 1, OrderID: 1}) }, CancelSize},
		{"Flush", EncodeFlush, FlushSize},
		{"Ack", func() ([]byte, error) { return EncodeAck(Ack{Symbol: "X", User: 1, OrderID: 1}) }, AckSize},
		{"Trade", func() ([]byte, error) {
			return EncodeTrade(Trade{Symbol: "X", BuyUser: 1, BuyOrderID: 1, SellUser: 2, SellOrderID: 2, Price: 1, Qty: 1})
		}, TradeSize},
		{"TopOfBook", func() ([]byte, error) {
			return EncodeTopOfBook(TopOfBook{Symbol: "X", Side: Buy, Price: 1, Qty: 1})
		}, TopOfBookSize},
		{"Reject", func() ([]byte, error) {
			return EncodeReject(Reject{Symbol: "X", User: 1, OrderID: 1, Reason: RejectUnknownOrder})
		}, RejectSize},
	}

	for _, tc := range cases {
		data, err := tc.data()
		if err != nil {
			t.Fatalf("%s: failed to encode: %v", tc.name, err)
		}
		if len(data) != tc.want {
			t.Errorf("%s: expected %d bytes, got %d", tc.name, tc.want, len(data))
		}
	}
}

func TestEncodeNewOrderRejectsBadArgs(t *testing.T) {
	cases := []struct {
		name  string
		order NewOrder
	}{
		{"zero quantity", NewOrder{User: 1, Symbol: "IBM", Price: 10, Qty: 0, Side: Buy, OrderID: 1}},
		{"empty symbol", NewOrder{User: 1, Symbol: "", Price: 10, Qty: 5, Side: Buy, OrderID: 1}},
		{"oversized symbol", NewOrder{User: 1, Symbol: "TOOLONGSYM", Price: 10, Qty: 5, Side: Buy, OrderID: 1}},
		{"bad side", NewOrder{User: 1, Symbol: "IBM", Price: 10, Qty: 5, Side: 'X', OrderID: 1}},
	}

	for _, tc := range cases {
		data, err := EncodeNewOrder(tc.order)
		if err == nil {
			t.Errorf("%s: expected encode error", tc.name)
		}
		if !errors.Is(err, ErrEncode) {
			t.Errorf("%s: expected ErrEncode, got %v", tc.name, err)
		}
		if len(data) != 0 {
			t.Errorf("%s: expected zero bytes on failure, got %d", tc.name, len(data))
		}
	}
}

func TestDecodeResponseErrors(t *testing.T) {
	ack, err := EncodeAck(Ack{Symbol: "IBM", User: 1, OrderID: 2})
	if err != nil {
		t.Fatalf("Failed to encode: %v", err)
	}

	cases := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"single byte", []byte{Magic}},
		{"bad magic", append([]byte{0x00}, ack[1:]...)},
		{"unknown kind", []byte{Magic, 0x7F, 0, 0}},
		{"truncated ack", ack[:AckSize-3]},
	}

	for _, tc := range cases {
		_, err := DecodeResponse(tc.data)
		if err == nil {
			t.Errorf("%s: expected decode error", tc.name)
			continue
		}
		if !errors.Is(err, ErrDecode) {
			t.Errorf("%s: expected ErrDecode, got %v", tc.name, err)
		}
	}
}

func TestDecodeTopOfBookAcceptsBothSizes(t *testing.T) {
	padded, err := EncodeTopOfBook(TopOfBook{Symbol: "IBM", Side: Sell, Price: 200, Qty: 10})
	if err != nil {
		t.Fatalf("Failed to encode: %v", err)
	}
	if len(padded) != TopOfBookSize {
		t.Fatalf("Expected %d bytes, got %d", TopOfBookSize, len(padded))
	}

	want := TopOfBook{Symbol: "IBM", Side: Sell, Price: 200, Qty: 10}

	for _, data := range [][]byte{padded, padded[:TopOfBookShortSize]} {
		got, err := DecodeResponse(data)
		if err != nil {
			t.Fatalf("Failed to decode %d-byte record: %v", len(data), err)
		}
		if got != want {
			t.Errorf("Expected %v, got %v", want, got)
		}
	}
}

func TestSymbolStopsAtZeroByte(t *testing.T) {
	data, err := EncodeAck(Ack{Symbol: "AB", User: 1, OrderID: 1})
	if err != nil {
		t.Fatalf("Failed to encode: %v", err)
	}

	// Garbage after the terminating zero must not leak into the symbol.
	copy(data[2:2+SymbolWidth], []byte{'A', 'B', 0, 'Z', 'Z', 'Z', 'Z', 'Z'})

	got, err := DecodeResponse(data)
	if err != nil {
		t.Fatalf("Failed to decode: %v", err)
	}
	ack, ok := got.(Ack)
	if !ok {
		t.Fatalf("Expected Ack, got %T", got)
	}
	if ack.Symbol != "AB" {
		t.Errorf("Expected symbol 'AB', got '%s'", ack.Symbol)
	}
}

func TestFullWidthSymbolRoundTrip(t *testing.T) {
	o := NewOrder{User: 1, Symbol: "ABCDEFGH", Price: 1, Qty: 1, Side: Buy, OrderID: 1}

	data, err := EncodeNewOrder(o)
	if err != nil {
		t.Fatalf("Failed to encode: %v", err)
	}

	got, err := DecodeRequest(data)
	if err != nil {
		t.Fatalf("Failed to decode: %v", err)
	}
	if got != o {
		t.Errorf("Expected %v, got %v", o, got)
	}
}

func BenchmarkEncodeNewOrder(b *testing.B) {
	o := NewOrder{User: 1, Symbol: "IBM", Price: 10000, Qty: 50, Side: Buy, OrderID: 1}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := EncodeNewOrder(o); err != nil {
			b.Fatalf("Failed to encode: %v", err)
		}
	}
}

func BenchmarkDecodeTrade(b *testing.B) {
	data, err := EncodeTrade(Trade{Symbol: "IBM", BuyUser: 1, BuyOrderID: 10, SellUser: 2, SellOrderID: 20, Price: 100, Qty: 50})
	if err != nil {
		b.Fatalf("Failed to encode: %v", err)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := DecodeResponse(data); err != nil {
			b.Fatalf("Failed to decode: %v", err)
		}
	}
}
