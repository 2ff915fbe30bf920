package enginetest

import (
	"sort"

	"github.com/mxprobe/mxprobe/internal/protocol"
)

type resting struct {
	user  uint32
	id    uint32
	price uint32
	qty   uint32
}

// book holds one symbol's resting orders. Bids sort by descending price,
// asks by ascending price, arrival order within a level.
type book struct {
	bids []*resting
	asks []*resting
}

func (b *book) insert(side protocol.Side, o *resting) {
	if side == protocol.Buy {
		i := sort.Search(len(b.bids), func(i int) bool { return b.bids[i].price < o.price })
		b.bids = append(b.bids, nil)
		copy(b.bids[i+1:], b.bids[i:])
		b.bids[i] = o
		return
	}
	i := sort.Search(len(b.asks), func(i int) bool { return b.asks[i].price > o.price })
	b.asks = append(b.asks, nil)
	copy(b.asks[i+1:], b.asks[i:])
	b.asks[i] = o
}

// remove drops the order owned by (user, id) from either side.
func (b *book) remove(user, id uint32) bool {
	for i, o := range b.bids {
		if o.user == user && o.id == id {
			b.bids = append(b.bids[:i], b.bids[i+1:]...)
			return true
		}
	}
	for i, o := range b.asks {
		if o.user == user && o.id == id {
			b.asks = append(b.asks[:i], b.asks[i+1:]...)
			return true
		}
	}
	return false
}

func (b *book) holds(user, id uint32) bool {
	for _, o := range b.bids {
		if o.user == user && o.id == id {
			return true
		}
	}
	for _, o := range b.asks {
		if o.user == user && o.id == id {
			return true
		}
	}
	return false
}

func (b *book) empty() bool {
	return len(b.bids) == 0 && len(b.asks) == 0
}

// top aggregates the best level on one side: best price and the total
// quantity resting at it. A zero quantity marks an empty side.
func (b *book) top(side protocol.Side) (price, qty uint32) {
	level := b.bids
	if side == protocol.Sell {
		level = b.asks
	}
	if len(level) == 0 {
		return 0, 0
	}
	price = level[0].price
	for _, o := range level {
		if o.price != price {
			break
		}
		qty += o.qty
	}
	return price, qty
}

// match crosses an incoming order against the opposite side, consuming
// resting quantity at resting prices. It returns the trades in execution
// order and the incoming order's unfilled remainder.
func (b *book) match(symbol string, o protocol.NewOrder) ([]protocol.Response, uint32) {
	var trades []protocol.Response
	rest := o.Qty

	if o.Side == protocol.Buy {
		for rest > 0 && len(b.asks) > 0 && b.asks[0].price <= o.Price {
			best := b.asks[0]
			fill := min(rest, best.qty)
			trades = append(trades, protocol.Trade{
				Symbol:      symbol,
				BuyUser:     o.User,
				BuyOrderID:  o.OrderID,
				SellUser:    best.user,
				SellOrderID: best.id,
				Price:       best.price,
				Qty:         fill,
			})
			best.qty -= fill
			rest -= fill
			if best.qty == 0 {
				b.asks = b.asks[1:]
			}
		}
		return trades, rest
	}

	for rest > 0 && len(b.bids) > 0 && b.bids[0].price >= o.Price {
		best := b.bids[0]
		fill := min(rest, best.qty)
		trades = append(trades, protocol.Trade{
			Symbol:      symbol,
			BuyUser:     best.user,
			BuyOrderID:  best.id,
			SellUser:    o.User,
			SellOrderID: o.OrderID,
			Price:       best.price,
			Qty:         fill,
		})
		best.qty -= fill
		rest -= fill
		if best.qty == 0 {
			b.bids = b.bids[1:]
		}
	}
	return trades, rest
}
