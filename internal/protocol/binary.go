package protocol

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// Binary wire format
//
// Every message is a fixed-size record:
// [1 byte: Magic][1 byte: Kind][fixed fields...]
//
// All multi-byte integers are big-endian. Symbol fields are 8 bytes,
// left-justified and zero-padded; decoding stops at the first zero byte.
//
// Kind values:
//   0x01 = NewOrder   (request)
//   0x02 = Cancel     (request)
//   0x03 = Flush      (request)
//   0x10 = Ack        (response)
//   0x11 = CancelAck  (response)
//   0x12 = Trade      (response)
//   0x13 = TopOfBook  (response)
//   0x14 = Reject     (response)
//
// Record layouts (sizes include magic and kind):
//
// NewOrder  (27): user(u32) symbol(8) price(u32) qty(u32) side(1) order(u32)
// Cancel    (10): user(u32) order(u32)
// Flush      (2): no fields
// Ack       (18): symbol(8) user(u32) order(u32)
// CancelAck (18): symbol(8) user(u32) order(u32)
// Trade     (34): symbol(8) buyUser(u32) buyOrder(u32) sellUser(u32) sellOrder(u32) price(u32) qty(u32)
// TopOfBook (20): symbol(8) side(1) price(u32) qty(u32) pad(1)
// Reject    (19): symbol(8) user(u32) order(u32) reason(1)
//
// Some engine builds emit TopOfBook without the trailing pad byte; decoding
// accepts both 19 and 20 bytes, encoding always writes the padded form.

const (
	// Magic is the sentinel first byte of every binary message.
	Magic byte = 0xA5

	// Request kinds
	KindNewOrder byte = 0x01
	KindCancel   byte = 0x02
	KindFlush    byte = 0x03

	// Response kinds
	KindAck       byte = 0x10
	KindCancelAck byte = 0x11
	KindTrade     byte = 0x12
	KindTopOfBook byte = 0x13
	KindReject    byte = 0x14

	// SymbolWidth is the fixed on-wire width of a symbol field.
	SymbolWidth = 8

	// Record sizes in bytes.
	NewOrderSize       = 27
	CancelSize         = 10
	FlushSize          = 2
	AckSize            = 18
	CancelAckSize      = 18
	TradeSize          = 34
	TopOfBookSize      = 20
	TopOfBookShortSize = 19
	RejectSize         = 19
)

// KindName returns a printable name for a kind byte.
func KindName(kind byte) string {
	switch kind {
	case KindNewOrder:
		return "NewOrder"
	case KindCancel:
		return "Cancel"
	case KindFlush:
		return "Flush"
	case KindAck:
		return "Ack"
	case KindCancelAck:
		return "CancelAck"
	case KindTrade:
		return "Trade"
	case KindTopOfBook:
		return "TopOfBook"
	case KindReject:
		return "Reject"
	default:
		return fmt.Sprintf("Kind(0x%02X)", kind)
	}
}

func checkSymbol(symbol string) error {
	if symbol == "" {
		return fmt.Errorf("%w: empty symbol", ErrEncode)
	}
	if len(symbol) > SymbolWidth {
		return fmt.Errorf("%w: symbol %q exceeds %d bytes", ErrEncode, symbol, SymbolWidth)
	}
	return nil
}

// symbolString reads a zero-padded symbol field, stopping at the first NUL.
func symbolString(src []byte) string {
	if i := bytes.IndexByte(src, 0); i >= 0 {
		src = src[:i]
	}
	return string(src)
}

func shortBuffer(kind byte, want, got int) error {
	return fmt.Errorf("%w: %s needs %d bytes, have %d", ErrDecode, KindName(kind), want, got)
}

// EncodeNewOrder encodes a NewOrder request into its 27-byte wire form.
func EncodeNewOrder(o NewOrder) ([]byte, error) {
	if err := checkSymbol(o.Symbol); err != nil {
		return nil, err
	}
	if o.Qty == 0 {
		return nil, fmt.Errorf("%w: zero quantity", ErrEncode)
	}
	if !o.Side.Valid() {
		return nil, fmt.Errorf("%w: bad side 0x%02X", ErrEncode, byte(o.Side))
	}

	buf := make([]byte, NewOrderSize)
	pos := 0
	buf[pos] = Magic
	pos++
	buf[pos] = KindNewOrder
	pos++
	binary.BigEndian.PutUint32(buf[pos:], o.User)
	pos += 4
	copy(buf[pos:pos+SymbolWidth], o.Symbol)
	pos += SymbolWidth
	binary.BigEndian.PutUint32(buf[pos:], o.Price)
	pos += 4
	binary.BigEndian.PutUint32(buf[pos:], o.Qty)
	pos += 4
	buf[pos] = byte(o.Side)
	pos++
	binary.BigEndian.PutUint32(buf[pos:], o.OrderID)

	return buf, nil
}

// EncodeCancel encodes a Cancel request into its 10-byte wire form.
func EncodeCancel(c Cancel) ([]byte, error) {
	buf := make([]byte, CancelSize)
	pos := 0
	buf[pos] = Magic
	pos++
	buf[pos] = KindCancel
	pos++
	binary.BigEndian.PutUint32(buf[pos:], c.User)
	pos += 4
	binary.BigEndian.PutUint32(buf[pos:], c.OrderID)

	return buf, nil
}

// EncodeFlush encodes a Flush request into its 2-byte wire form.
func EncodeFlush() ([]byte, error) {
	return []byte{Magic, KindFlush}, nil
}

// EncodeAck encodes an Ack response into its 18-byte wire form.
func EncodeAck(a Ack) ([]byte, error) {
	return encodeOrderAck(KindAck, a.Symbol, a.User, a.OrderID)
}

// EncodeCancelAck encodes a CancelAck response into its 18-byte wire form.
func EncodeCancelAck(c CancelAck) ([]byte, error) {
	return encodeOrderAck(KindCancelAck, c.Symbol, c.User, c.OrderID)
}

// Ack and CancelAck share one layout and differ only in kind.
func encodeOrderAck(kind byte, symbol string, user, orderID uint32) ([]byte, error) {
	if err := checkSymbol(symbol); err != nil {
		return nil, err
	}

	buf := make([]byte, AckSize)
	pos := 0
	buf[pos] = Magic
	pos++
	buf[pos] = kind
	pos++
	copy(buf[pos:pos+SymbolWidth], symbol)
	pos += SymbolWidth
	binary.BigEndian.PutUint32(buf[pos:], user)
	pos += 4
	binary.BigEndian.PutUint32(buf[pos:], orderID)

	return buf, nil
}

// EncodeTrade encodes a Trade response into its 34-byte wire form.
func EncodeTrade(t Trade) ([]byte, error) {
	if err := checkSymbol(t.Symbol); err != nil {
		return nil, err
	}

	buf := make([]byte, TradeSize)
	pos := 0
	buf[pos] = Magic
	pos++
	buf[pos] = KindTrade
	pos++
	copy(buf[pos:pos+SymbolWidth], t.Symbol)
	pos += SymbolWidth
	binary.BigEndian.PutUint32(buf[pos:], t.BuyUser)
	pos += 4
	binary.BigEndian.PutUint32(buf[pos:], t.BuyOrderID)
	pos += 4
	binary.BigEndian.PutUint32(buf[pos:], t.SellUser)
	pos += 4
	binary.BigEndian.PutUint32(buf[pos:], t.SellOrderID)
	pos += 4
	binary.BigEndian.PutUint32(buf[pos:], t.Price)
	pos += 4
	binary.BigEndian.PutUint32(buf[pos:], t.Qty)

	return buf, nil
}

// EncodeTopOfBook encodes a TopOfBook response into its 20-byte wire form.
func EncodeTopOfBook(b TopOfBook) ([]byte, error) {
	if err := checkSymbol(b.Symbol); err != nil {
		return nil, err
	}
	if !b.Side.Valid() {
		return nil, fmt.Errorf("%w: bad side 0x%02X", ErrEncode, byte(b.Side))
	}

	buf := make([]byte, TopOfBookSize)
	pos := 0
	buf[pos] = Magic
	pos++
	buf[pos] = KindTopOfBook
	pos++
	copy(buf[pos:pos+SymbolWidth], b.Symbol)
	pos += SymbolWidth
	buf[pos] = byte(b.Side)
	pos++
	binary.BigEndian.PutUint32(buf[pos:], b.Price)
	pos += 4
	binary.BigEndian.PutUint32(buf[pos:], b.Qty)
	// Trailing pad byte stays zero.

	return buf, nil
}

// EncodeReject encodes a Reject response into its 19-byte wire form.
func EncodeReject(r Reject) ([]byte, error) {
	if err := checkSymbol(r.Symbol); err != nil {
		return nil, err
	}

	buf := make([]byte, RejectSize)
	pos := 0
	buf[pos] = Magic
	pos++
	buf[pos] = KindReject
	pos++
	copy(buf[pos:pos+SymbolWidth], r.Symbol)
	pos += SymbolWidth
	binary.BigEndian.PutUint32(buf[pos:], r.User)
	pos += 4
	binary.BigEndian.PutUint32(buf[pos:], r.OrderID)
	pos += 4
	buf[pos] = byte(r.Reason)

	return buf, nil
}

// DecodeRequest parses one binary request record.
func DecodeRequest(data []byte) (Request, error) {
	if len(data) < FlushSize {
		return nil, fmt.Errorf("%w: request shorter than %d bytes", ErrDecode, FlushSize)
	}
	if data[0] != Magic {
		return nil, fmt.Errorf("%w: bad magic 0x%02X", ErrDecode, data[0])
	}

	switch data[1] {
	case KindNewOrder:
		return decodeNewOrder(data)
	case KindCancel:
		return decodeCancel(data)
	case KindFlush:
		return Flush{}, nil
	default:
		return nil, fmt.Errorf("%w: unknown request kind 0x%02X", ErrDecode, data[1])
	}
}

func decodeNewOrder(data []byte) (Request, error) {
	if len(data) < NewOrderSize {
		return nil, shortBuffer(KindNewOrder, NewOrderSize, len(data))
	}

	o := NewOrder{}
	pos := 2
	o.User = binary.BigEndian.Uint32(data[pos:])
	pos += 4
	o.Symbol = symbolString(data[pos : pos+SymbolWidth])
	pos += SymbolWidth
	o.Price = binary.BigEndian.Uint32(data[pos:])
	pos += 4
	o.Qty = binary.BigEndian.Uint32(data[pos:])
	pos += 4
	o.Side = Side(data[pos])
	pos++
	o.OrderID = binary.BigEndian.Uint32(data[pos:])

	if !o.Side.Valid() {
		return nil, fmt.Errorf("%w: bad side 0x%02X", ErrDecode, byte(o.Side))
	}
	return o, nil
}

func decodeCancel(data []byte) (Request, error) {
	if len(data) < CancelSize {
		return nil, shortBuffer(KindCancel, CancelSize, len(data))
	}

	c := Cancel{}
	pos := 2
	c.User = binary.BigEndian.Uint32(data[pos:])
	pos += 4
	c.OrderID = binary.BigEndian.Uint32(data[pos:])

	return c, nil
}

// DecodeResponse parses one binary response record.
func DecodeResponse(data []byte) (Response, error) {
	if len(data) < FlushSize {
		return nil, fmt.Errorf("%w: response shorter than %d bytes", ErrDecode, FlushSize)
	}
	if data[0] != Magic {
		return nil, fmt.Errorf("%w: bad magic 0x%02X", ErrDecode, data[0])
	}

	switch data[1] {
	case KindAck, KindCancelAck:
		return decodeOrderAck(data[1], data)
	case KindTrade:
		return decodeTrade(data)
	case KindTopOfBook:
		return decodeTopOfBook(data)
	case KindReject:
		return decodeReject(data)
	default:
		return nil, fmt.Errorf("%w: unknown response kind 0x%02X", ErrDecode, data[1])
	}
}

func decodeOrderAck(kind byte, data []byte) (Response, error) {
	if len(data) < AckSize {
		return nil, shortBuffer(kind, AckSize, len(data))
	}

	pos := 2
	symbol := symbolString(data[pos : pos+SymbolWidth])
	pos += SymbolWidth
	user := binary.BigEndian.Uint32(data[pos:])
	pos += 4
	orderID := binary.BigEndian.Uint32(data[pos:])

	if kind == KindCancelAck {
		return CancelAck{Symbol: symbol, User: user, OrderID: orderID}, nil
	}
	return Ack{Symbol: symbol, User: user, OrderID: orderID}, nil
}

func decodeTrade(data []byte) (Response, error) {
	if len(data) < TradeSize {
		return nil, shortBuffer(KindTrade, TradeSize, len(data))
	}

	t := Trade{}
	pos := 2
	t.Symbol = symbolString(data[pos : pos+SymbolWidth])
	pos += SymbolWidth
	t.BuyUser = binary.BigEndian.Uint32(data[pos:])
	pos += 4
	t.BuyOrderID = binary.BigEndian.Uint32(data[pos:])
	pos += 4
	t.SellUser = binary.BigEndian.Uint32(data[pos:])
	pos += 4
	t.SellOrderID = binary.BigEndian.Uint32(data[pos:])
	pos += 4
	t.Price = binary.BigEndian.Uint32(data[pos:])
	pos += 4
	t.Qty = binary.BigEndian.Uint32(data[pos:])

	return t, nil
}

func decodeTopOfBook(data []byte) (Response, error) {
	// Both the padded and unpadded layouts are accepted.
	if len(data) < TopOfBookShortSize {
		return nil, shortBuffer(KindTopOfBook, TopOfBookShortSize, len(data))
	}

	b := TopOfBook{}
	pos := 2
	b.Symbol = symbolString(data[pos : pos+SymbolWidth])
	pos += SymbolWidth
	b.Side = Side(data[pos])
	pos++
	b.Price = binary.BigEndian.Uint32(data[pos:])
	pos += 4
	b.Qty = binary.BigEndian.Uint32(data[pos:])

	if !b.Side.Valid() {
		return nil, fmt.Errorf("%w: bad side 0x%02X", ErrDecode, byte(b.Side))
	}
	return b, nil
}

func decodeReject(data []byte) (Response, error) {
	if len(data) < RejectSize {
		return nil, shortBuffer(KindReject, RejectSize, len(data))
	}

	r := Reject{}
	pos := 2
	r.Symbol = symbolString(data[pos : pos+SymbolWidth])
	pos += SymbolWidth
	r.User = binary.BigEndian.Uint32(data[pos:])
	pos += 4
	r.OrderID = binary.BigEndian.Uint32(data[pos:])
	pos += 4
	r.Reason = RejectReason(data[pos])

	return r, nil
}
