package scenario

import (
	"math/rand"
)

func u64(n uint64) *uint64 { return &n }
func u32(n uint32) *uint32 { return &n }

// NoMatch rests two orders on opposite sides with a spread between them.
func NoMatch() *Scenario {
	return &Scenario{
		Name:        "no-match",
		Description: "two non-crossing orders rest without trading",
		Steps: []Step{
			{Op: OpOrder, Side: "buy", Symbol: "IBM", Price: 99, Qty: 10},
			{Op: OpOrder, Side: "sell", Symbol: "IBM", Price: 101, Qty: 10},
			{Op: OpDrain},
			{Op: OpFlush},
			{Op: OpDrain},
		},
		Expect: &Expect{
			Acks:       u64(2),
			CancelAcks: u64(2),
			Trades:     u64(0),
			Rejects:    u64(0),
		},
	}
}

// FullMatch crosses two equal orders and expects one trade at the resting
// price.
func FullMatch() *Scenario {
	return &Scenario{
		Name:        "full-match",
		Description: "a crossing buy fully fills a resting sell",
		Steps: []Step{
			{Op: OpOrder, Side: "sell", Symbol: "IBM", Price: 100, Qty: 10},
			{Op: OpDrain},
			{Op: OpOrder, Side: "buy", Symbol: "IBM", Price: 100, Qty: 10},
			{Op: OpDrain},
		},
		Expect: &Expect{
			Acks:       u64(2),
			CancelAcks: u64(0),
			Trades:     u64(1),
			Rejects:    u64(0),
			TradePrice: u32(100),
			TradeQty:   u32(10),
		},
	}
}

// CancelRoundTrip rests one order and cancels it.
func CancelRoundTrip() *Scenario {
	return &Scenario{
		Name:        "cancel",
		Description: "a resting order is cancelled by id",
		Steps: []Step{
			{Op: OpOrder, Side: "buy", Symbol: "IBM", Price: 100, Qty: 10},
			{Op: OpDrain},
			{Op: OpCancel, Ref: 1},
			{Op: OpDrain},
		},
		Expect: &Expect{
			Acks:       u64(1),
			CancelAcks: u64(1),
			Trades:     u64(0),
			Rejects:    u64(0),
		},
	}
}

// SweepOptions parameterise the generated load scenario. Zero values take
// the defaults below.
type SweepOptions struct {
	Orders             int
	Rate               int // orders per second; zero runs unthrottled
	Symbols            []string
	MinPrice, MaxPrice uint32
	MinQty, MaxQty     uint32
	Seed               int64
}

// DefaultSweepOptions returns the standard sweep parameters.
func DefaultSweepOptions() *SweepOptions {
	return &SweepOptions{
		Orders:   100,
		Symbols:  []string{"IBM", "AAPL", "MSFT", "ORCL"},
		MinPrice: 90,
		MaxPrice: 110,
		MinQty:   1,
		MaxQty:   100,
		Seed:     42,
	}
}

// Sweep generates a randomised load scenario. The same seed produces the
// same step list, so a run can be replayed exactly. Orders cross or rest
// as the randomness falls; only the ack count is asserted.
func Sweep(opts *SweepOptions) *Scenario {
	if opts == nil {
		opts = DefaultSweepOptions()
	}
	def := DefaultSweepOptions()
	if opts.Orders <= 0 {
		opts.Orders = def.Orders
	}
	if len(opts.Symbols) == 0 {
		opts.Symbols = def.Symbols
	}
	if opts.MaxPrice < opts.MinPrice || opts.MaxPrice == 0 {
		opts.MinPrice, opts.MaxPrice = def.MinPrice, def.MaxPrice
	}
	if opts.MinQty == 0 {
		opts.MinQty = def.MinQty
	}
	if opts.MaxQty < opts.MinQty {
		opts.MaxQty = def.MaxQty
	}

	rng := rand.New(rand.NewSource(opts.Seed))
	span := func(lo, hi uint32) uint32 {
		return lo + uint32(rng.Int63n(int64(hi-lo)+1))
	}

	waitMS := 0
	if opts.Rate > 0 {
		waitMS = 1000 / opts.Rate
	}

	steps := make([]Step, 0, 2*opts.Orders+3)
	for i := 0; i < opts.Orders; i++ {
		side := "buy"
		if rng.Intn(2) == 1 {
			side = "sell"
		}
		steps = append(steps, Step{
			Op:     OpOrder,
			Side:   side,
			Symbol: opts.Symbols[rng.Intn(len(opts.Symbols))],
			Price:  span(opts.MinPrice, opts.MaxPrice),
			Qty:    span(opts.MinQty, opts.MaxQty),
		})
		if waitMS > 0 && i < opts.Orders-1 {
			steps = append(steps, Step{Op: OpWait, MS: waitMS})
		}
	}
	steps = append(steps,
		Step{Op: OpDrain, MS: 500},
		Step{Op: OpFlush},
		Step{Op: OpDrain, MS: 500},
	)

	return &Scenario{
		Name:        "sweep",
		Description: "randomised order load with a deterministic seed",
		Steps:       steps,
		Expect: &Expect{
			Acks: u64(uint64(opts.Orders)),
		},
	}
}
