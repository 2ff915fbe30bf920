// Package protocol defines the typed order-entry messages exchanged with a
// matching engine and the two wire encodings that carry them: a fixed-layout
// binary form and a comma-separated text form.
package protocol

import (
	"errors"
	"fmt"
)

var (
	// ErrEncode reports caller arguments that violate protocol constraints.
	// Nothing is written to the wire when an encode fails.
	ErrEncode = errors.New("encode rejected")

	// ErrDecode reports malformed or unrecognized wire bytes.
	ErrDecode = errors.New("decode failed")
)

// Side marks which half of the book an order or quote belongs to.
type Side byte

const (
	Buy  Side = 'B'
	Sell Side = 'S'
)

// Valid reports whether s is one of the two wire side markers.
func (s Side) Valid() bool {
	return s == Buy || s == Sell
}

func (s Side) String() string {
	switch s {
	case Buy:
		return "buy"
	case Sell:
		return "sell"
	default:
		return fmt.Sprintf("side(0x%02X)", byte(s))
	}
}

// RejectReason explains why the engine refused a request.
type RejectReason byte

const (
	RejectUnspecified   RejectReason = 0x00
	RejectInvalidQty    RejectReason = 0x01
	RejectInvalidSymbol RejectReason = 0x02
	RejectUnknownOrder  RejectReason = 0x03
	RejectDuplicateID   RejectReason = 0x04
)

func (r RejectReason) String() string {
	switch r {
	case RejectUnspecified:
		return "unspecified"
	case RejectInvalidQty:
		return "invalid quantity"
	case RejectInvalidSymbol:
		return "invalid symbol"
	case RejectUnknownOrder:
		return "unknown order"
	case RejectDuplicateID:
		return "duplicate order id"
	default:
		return fmt.Sprintf("reason(0x%02X)", byte(r))
	}
}

// Request is a message sent by a client to the matching engine.
// The set is closed: NewOrder, Cancel and Flush.
type Request interface {
	Kind() byte
	isRequest()
}

// Response is a message sent by the matching engine back to a client.
// The set is closed: Ack, CancelAck, Trade, TopOfBook and Reject.
type Response interface {
	Kind() byte
	isResponse()
}

// NewOrder enters a limit order into the book.
// An OrderID of zero asks the session layer to assign one.
type NewOrder struct {
	User    uint32
	Symbol  string
	Price   uint32
	Qty     uint32
	Side    Side
	OrderID uint32
}

// Cancel removes a resting order identified by its owner and id.
type Cancel struct {
	User    uint32
	OrderID uint32
}

// Flush clears every book on the engine. It carries no payload.
type Flush struct{}

// Ack confirms that an order was accepted into the book.
type Ack struct {
	Symbol  string
	User    uint32
	OrderID uint32
}

// CancelAck confirms that an order was removed from the book.
type CancelAck struct {
	Symbol  string
	User    uint32
	OrderID uint32
}

// Trade reports a two-sided fill.
type Trade struct {
	Symbol      string
	BuyUser     uint32
	BuyOrderID  uint32
	SellUser    uint32
	SellOrderID uint32
	Price       uint32
	Qty         uint32
}

// TopOfBook reports the best resting price and quantity on one side.
// A quantity of zero means the side is empty; the price is then meaningless.
type TopOfBook struct {
	Symbol string
	Side   Side
	Price  uint32
	Qty    uint32
}

// Reject reports a refused request together with a reason code.
type Reject struct {
	Symbol  string
	User    uint32
	OrderID uint32
	Reason  RejectReason
}

func (NewOrder) Kind() byte { return KindNewOrder }
func (NewOrder) isRequest() {}

func (Cancel) Kind() byte { return KindCancel }
func (Cancel) isRequest() {}

func (Flush) Kind() byte { return KindFlush }
func (Flush) isRequest() {}

func (Ack) Kind() byte  { return KindAck }
func (Ack) isResponse() {}

func (CancelAck) Kind() byte  { return KindCancelAck }
func (CancelAck) isResponse() {}

func (Trade) Kind() byte  { return KindTrade }
func (Trade) isResponse() {}

func (TopOfBook) Kind() byte  { return KindTopOfBook }
func (TopOfBook) isResponse() {}

func (Reject) Kind() byte  { return KindReject }
func (Reject) isResponse() {}

func (o NewOrder) String() string {
	return fmt.Sprintf("new-order %s %s %d@%d user=%d order=%d",
		o.Symbol, o.Side, o.Qty, o.Price, o.User, o.OrderID)
}

func (c Cancel) String() string {
	return fmt.Sprintf("cancel user=%d order=%d", c.User, c.OrderID)
}

func (Flush) String() string { return "flush" }

func (a Ack) String() string {
	if a.Symbol == "" {
		return fmt.Sprintf("ack user=%d order=%d", a.User, a.OrderID)
	}
	return fmt.Sprintf("ack %s user=%d order=%d", a.Symbol, a.User, a.OrderID)
}

func (c CancelAck) String() string {
	if c.Symbol == "" {
		return fmt.Sprintf("cancel-ack user=%d order=%d", c.User, c.OrderID)
	}
	return fmt.Sprintf("cancel-ack %s user=%d order=%d", c.Symbol, c.User, c.OrderID)
}

func (t Trade) String() string {
	if t.Symbol == "" {
		return fmt.Sprintf("trade %d@%d buy=%d/%d sell=%d/%d",
			t.Qty, t.Price, t.BuyUser, t.BuyOrderID, t.SellUser, t.SellOrderID)
	}
	return fmt.Sprintf("trade %s %d@%d buy=%d/%d sell=%d/%d",
		t.Symbol, t.Qty, t.Price, t.BuyUser, t.BuyOrderID, t.SellUser, t.SellOrderID)
}

func (b TopOfBook) String() string {
	if b.Qty == 0 {
		if b.Symbol == "" {
			return fmt.Sprintf("top %s -", b.Side)
		}
		return fmt.Sprintf("top %s %s -", b.Symbol, b.Side)
	}
	if b.Symbol == "" {
		return fmt.Sprintf("top %s %d@%d", b.Side, b.Qty, b.Price)
	}
	return fmt.Sprintf("top %s %s %d@%d", b.Symbol, b.Side, b.Qty, b.Price)
}

func (r Reject) String() string {
	return fmt.Sprintf("reject %s user=%d order=%d: %s", r.Symbol, r.User, r.OrderID, r.Reason)
}
