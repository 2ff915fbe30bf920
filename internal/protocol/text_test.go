package protocol

import (
	"errors"
	"testing"
)

func TestFormatNewOrder(t *testing.T) {
	o := NewOrder{User: 1, Symbol: "IBM", Price: 10000, Qty: 50, Side: Buy, OrderID: 3}

	line, err := FormatNewOrder(o)
	if err != nil {
		t.Fatalf("Failed to format: %v", err)
	}
	if string(line) != "N, 1, IBM, 10000, 50, B, 3\n" {
		t.Errorf("Unexpected line: %q", line)
	}
}

func TestTextRequestRoundTrip(t *testing.T) {
	requests := []Request{
		NewOrder{User: 1, Symbol: "IBM", Price: 10000, Qty: 50, Side: Buy, OrderID: 1},
		NewOrder{User: 2, Symbol: "VAL", Price: 9, Qty: 1, Side: Sell, OrderID: 101},
		Cancel{User: 12, OrderID: 34},
		Flush{},
	}

	for _, req := range requests {
		line, err := TextCodec{}.EncodeRequest(req)
		if err != nil {
			t.Fatalf("Failed to format %v: %v", req, err)
		}

		got, err := ParseRequest(line)
		if err != nil {
			t.Fatalf("Failed to parse %q: %v", line, err)
		}
		if got != req {
			t.Errorf("Expected %v, got %v", req, got)
		}
	}
}

func TestTextResponseRoundTrip(t *testing.T) {
	// Text responses carry no symbol, so round-trip values leave it empty.
	responses := []Response{
		Ack{User: 1, OrderID: 2},
		CancelAck{User: 3, OrderID: 4},
		Trade{BuyUser: 1, BuyOrderID: 10, SellUser: 2, SellOrderID: 20, Price: 100, Qty: 50},
		TopOfBook{Side: Buy, Price: 100, Qty: 50},
		TopOfBook{Side: Sell},
	}

	for _, resp := range responses {
		line, err := TextCodec{}.EncodeResponse(resp)
		if err != nil {
			t.Fatalf("Failed to format %v: %v", resp, err)
		}

		got, err := ParseResponse(line)
		if err != nil {
			t.Fatalf("Failed to parse %q: %v", line, err)
		}
		if got != resp {
			t.Errorf("Expected %v, got %v", resp, got)
		}
	}
}

func TestParseResponseLineForms(t *testing.T) {
	cases := []struct {
		line string
		want Response
	}{
		{"A, 1, 2\n", Ack{User: 1, OrderID: 2}},
		{"A,1,2\n", Ack{User: 1, OrderID: 2}},
		{"A, 1, 2\r\n", Ack{User: 1, OrderID: 2}},
		{"C, 8, 9\n", CancelAck{User: 8, OrderID: 9}},
		{"T, 1, 10, 2, 20, 100, 50\n", Trade{BuyUser: 1, BuyOrderID: 10, SellUser: 2, SellOrderID: 20, Price: 100, Qty: 50}},
		{"B, B, 100, 50\n", TopOfBook{Side: Buy, Price: 100, Qty: 50}},
		{"B, S, -, -\n", TopOfBook{Side: Sell}},
	}

	for _, tc := range cases {
		got, err := ParseResponse([]byte(tc.line))
		if err != nil {
			t.Fatalf("Failed to parse %q: %v", tc.line, err)
		}
		if got != tc.want {
			t.Errorf("%q: expected %v, got %v", tc.line, tc.want, got)
		}
	}
}

func TestParseDashMeansZero(t *testing.T) {
	got, err := ParseResponse([]byte("B, B, -, -\n"))
	if err != nil {
		t.Fatalf("Failed to parse: %v", err)
	}

	top, ok := got.(TopOfBook)
	if !ok {
		t.Fatalf("Expected TopOfBook, got %T", got)
	}
	if top.Price != 0 || top.Qty != 0 {
		t.Errorf("Expected zero price and qty, got %d and %d", top.Price, top.Qty)
	}
}

func TestCancelLineDispatch(t *testing.T) {
	// The same C line is a Cancel on the request side and a CancelAck on
	// the response side.
	line := []byte("C, 5, 6\n")

	req, err := ParseRequest(line)
	if err != nil {
		t.Fatalf("Failed to parse request: %v", err)
	}
	if _, ok := req.(Cancel); !ok {
		t.Errorf("Expected Cancel, got %T", req)
	}

	resp, err := ParseResponse(line)
	if err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
	if _, ok := resp.(CancelAck); !ok {
		t.Errorf("Expected CancelAck, got %T", resp)
	}
}

func TestParseResponseErrors(t *testing.T) {
	cases := []struct {
		name string
		line string
	}{
		{"empty line", "\n"},
		{"unknown leader", "X, 1, 2\n"},
		{"too few fields", "A, 1\n"},
		{"non-numeric field", "A, 1, abc\n"},
		{"bad side", "B, Q, 1, 1\n"},
		{"reject has no text form", "R, 1, 2\n"},
	}

	for _, tc := range cases {
		_, err := ParseResponse([]byte(tc.line))
		if err == nil {
			t.Errorf("%s: expected parse error", tc.name)
			continue
		}
		if !errors.Is(err, ErrDecode) {
			t.Errorf("%s: expected ErrDecode, got %v", tc.name, err)
		}
	}
}

func TestFormatNewOrderRejectsBadArgs(t *testing.T) {
	cases := []struct {
		name  string
		order NewOrder
	}{
		{"zero quantity", NewOrder{User: 1, Symbol: "IBM", Qty: 0, Side: Buy}},
		{"empty symbol", NewOrder{User: 1, Symbol: "", Qty: 5, Side: Buy}},
		{"oversized symbol", NewOrder{User: 1, Symbol: "WAYTOOLONG", Qty: 5, Side: Buy}},
	}

	for _, tc := range cases {
		if _, err := FormatNewOrder(tc.order); !errors.Is(err, ErrEncode) {
			t.Errorf("%s: expected ErrEncode, got %v", tc.name, err)
		}
	}
}

func TestTextRejectUnsupported(t *testing.T) {
	_, err := TextCodec{}.EncodeResponse(Reject{Symbol: "IBM", User: 1, OrderID: 2})
	if !errors.Is(err, ErrEncode) {
		t.Errorf("Expected ErrEncode, got %v", err)
	}
}
