package protocol

import (
	"fmt"
	"strconv"
	"strings"
)

// Text wire format
//
// One ASCII line per message, comma-separated fields, newline-terminated.
// Fields may carry leading whitespace, which decoding strips.
//
// Requests:
//   N, user, symbol, price, qty, side, order
//   C, user, order
//   F
//
// Responses:
//   A, user, order
//   C, user, order
//   T, buyUser, buyOrder, sellUser, sellOrder, price, qty
//   B, side, price, qty
//
// The leading field alone selects the kind, so the C line is a Cancel when
// read as a request and a CancelAck when read as a response. Text responses
// carry no symbol; decoded messages leave it empty. An empty book side is
// written as "B, side, -, -" and a literal "-" decodes to zero. Reject has
// no text form.

// FormatNewOrder renders a NewOrder request as a text line.
func FormatNewOrder(o NewOrder) ([]byte, error) {
	if err := checkSymbol(o.Symbol); err != nil {
		return nil, err
	}
	if o.Qty == 0 {
		return nil, fmt.Errorf("%w: zero quantity", ErrEncode)
	}
	if !o.Side.Valid() {
		return nil, fmt.Errorf("%w: bad side 0x%02X", ErrEncode, byte(o.Side))
	}
	return []byte(fmt.Sprintf("N, %d, %s, %d, %d, %c, %d\n",
		o.User, o.Symbol, o.Price, o.Qty, byte(o.Side), o.OrderID)), nil
}

// FormatCancel renders a Cancel request as a text line.
func FormatCancel(c Cancel) ([]byte, error) {
	return []byte(fmt.Sprintf("C, %d, %d\n", c.User, c.OrderID)), nil
}

// FormatFlush renders a Flush request as a text line.
func FormatFlush() ([]byte, error) {
	return []byte("F\n"), nil
}

// FormatAck renders an Ack response as a text line.
func FormatAck(a Ack) ([]byte, error) {
	return []byte(fmt.Sprintf("A, %d, %d\n", a.User, a.OrderID)), nil
}

// FormatCancelAck renders a CancelAck response as a text line.
func FormatCancelAck(c CancelAck) ([]byte, error) {
	return []byte(fmt.Sprintf("C, %d, %d\n", c.User, c.OrderID)), nil
}

// FormatTrade renders a Trade response as a text line.
func FormatTrade(t Trade) ([]byte, error) {
	return []byte(fmt.Sprintf("T, %d, %d, %d, %d, %d, %d\n",
		t.BuyUser, t.BuyOrderID, t.SellUser, t.SellOrderID, t.Price, t.Qty)), nil
}

// FormatTopOfBook renders a TopOfBook response as a text line.
// An empty side (zero quantity) renders its price and quantity as "-".
func FormatTopOfBook(b TopOfBook) ([]byte, error) {
	if !b.Side.Valid() {
		return nil, fmt.Errorf("%w: bad side 0x%02X", ErrEncode, byte(b.Side))
	}
	if b.Qty == 0 {
		return []byte(fmt.Sprintf("B, %c, -, -\n", byte(b.Side))), nil
	}
	return []byte(fmt.Sprintf("B, %c, %d, %d\n", byte(b.Side), b.Price, b.Qty)), nil
}

// splitFields splits a line on commas and trims each field, which also
// drops the trailing newline or CRLF.
func splitFields(line []byte) []string {
	fields := strings.Split(string(line), ",")
	for i := range fields {
		fields[i] = strings.TrimSpace(fields[i])
	}
	return fields
}

func parseU32(field string) (uint32, error) {
	v, err := strconv.ParseUint(field, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("%w: field %q is not a u32", ErrDecode, field)
	}
	return uint32(v), nil
}

// parseLevel parses a TopOfBook price or quantity, where "-" means zero.
func parseLevel(field string) (uint32, error) {
	if field == "-" {
		return 0, nil
	}
	return parseU32(field)
}

func parseSide(field string) (Side, error) {
	if len(field) != 1 || !Side(field[0]).Valid() {
		return 0, fmt.Errorf("%w: bad side %q", ErrDecode, field)
	}
	return Side(field[0]), nil
}

func fieldCount(leader string, fields []string, want int) error {
	if len(fields) < want {
		return fmt.Errorf("%w: %s line needs %d fields, have %d", ErrDecode, leader, want, len(fields))
	}
	return nil
}

// ParseRequest parses one text request line.
func ParseRequest(line []byte) (Request, error) {
	fields := splitFields(line)
	if len(fields) == 0 || fields[0] == "" {
		return nil, fmt.Errorf("%w: empty line", ErrDecode)
	}

	switch fields[0][0] {
	case 'N':
		if err := fieldCount("N", fields, 7); err != nil {
			return nil, err
		}
		o := NewOrder{Symbol: fields[2]}
		var err error
		if o.User, err = parseU32(fields[1]); err != nil {
			return nil, err
		}
		if o.Price, err = parseU32(fields[3]); err != nil {
			return nil, err
		}
		if o.Qty, err = parseU32(fields[4]); err != nil {
			return nil, err
		}
		if o.Side, err = parseSide(fields[5]); err != nil {
			return nil, err
		}
		if o.OrderID, err = parseU32(fields[6]); err != nil {
			return nil, err
		}
		return o, nil

	case 'C':
		if err := fieldCount("C", fields, 3); err != nil {
			return nil, err
		}
		c := Cancel{}
		var err error
		if c.User, err = parseU32(fields[1]); err != nil {
			return nil, err
		}
		if c.OrderID, err = parseU32(fields[2]); err != nil {
			return nil, err
		}
		return c, nil

	case 'F':
		return Flush{}, nil

	default:
		return nil, fmt.Errorf("%w: unknown request line %q", ErrDecode, fields[0])
	}
}

// ParseResponse parses one text response line.
func ParseResponse(line []byte) (Response, error) {
	fields := splitFields(line)
	if len(fields) == 0 || fields[0] == "" {
		return nil, fmt.Errorf("%w: empty line", ErrDecode)
	}

	switch fields[0][0] {
	case 'A':
		if err := fieldCount("A", fields, 3); err != nil {
			return nil, err
		}
		a := Ack{}
		var err error
		if a.User, err = parseU32(fields[1]); err != nil {
			return nil, err
		}
		if a.OrderID, err = parseU32(fields[2]); err != nil {
			return nil, err
		}
		return a, nil

	case 'C':
		if err := fieldCount("C", fields, 3); err != nil {
			return nil, err
		}
		c := CancelAck{}
		var err error
		if c.User, err = parseU32(fields[1]); err != nil {
			return nil, err
		}
		if c.OrderID, err = parseU32(fields[2]); err != nil {
			return nil, err
		}
		return c, nil

	case 'T':
		if err := fieldCount("T", fields, 7); err != nil {
			return nil, err
		}
		t := Trade{}
		var err error
		if t.BuyUser, err = parseU32(fields[1]); err != nil {
			return nil, err
		}
		if t.BuyOrderID, err = parseU32(fields[2]); err != nil {
			return nil, err
		}
		if t.SellUser, err = parseU32(fields[3]); err != nil {
			return nil, err
		}
		if t.SellOrderID, err = parseU32(fields[4]); err != nil {
			return nil, err
		}
		if t.Price, err = parseU32(fields[5]); err != nil {
			return nil, err
		}
		if t.Qty, err = parseU32(fields[6]); err != nil {
			return nil, err
		}
		return t, nil

	case 'B':
		if err := fieldCount("B", fields, 4); err != nil {
			return nil, err
		}
		b := TopOfBook{}
		var err error
		if b.Side, err = parseSide(fields[1]); err != nil {
			return nil, err
		}
		if b.Price, err = parseLevel(fields[2]); err != nil {
			return nil, err
		}
		if b.Qty, err = parseLevel(fields[3]); err != nil {
			return nil, err
		}
		return b, nil

	default:
		return nil, fmt.Errorf("%w: unknown response line %q", ErrDecode, fields[0])
	}
}
