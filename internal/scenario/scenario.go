// Package scenario defines scripted conformance and load runs against a
// matching engine: a scenario is a step list with optional expectations,
// a registry holds the built-in and file-loaded scenarios, and a runner
// drives them through one session and reports what came back.
package scenario

import (
	"errors"
	"fmt"
	"strings"

	"github.com/mxprobe/mxprobe/internal/protocol"
)

// ErrScenario reports an invalid scenario definition.
var ErrScenario = errors.New("invalid scenario")

// Step ops.
const (
	OpOrder  = "order"
	OpCancel = "cancel"
	OpFlush  = "flush"
	OpWait   = "wait"
	OpDrain  = "drain"
)

// Step is one scripted action. Which fields matter depends on Op:
// order uses Side, Symbol, Price, Qty and optionally ID; cancel targets
// an explicit ID or the Ref'th order step; wait and drain use MS.
type Step struct {
	Op     string `toml:"op"`
	Side   string `toml:"side"`
	Symbol string `toml:"symbol"`
	Price  uint32 `toml:"price"`
	Qty    uint32 `toml:"qty"`

	// ID forces a client order id on order steps and names the cancel
	// target on cancel steps. Zero means auto-assign / use Ref.
	ID uint32 `toml:"id"`

	// Ref points a cancel at the id assigned to the Nth order step,
	// 1-based. Zero targets the most recent order.
	Ref int `toml:"ref"`

	// MS is the wait duration or the drain timeout in milliseconds.
	MS int `toml:"ms"`
}

// Expect lists the response counts a scenario must produce. Nil fields are
// unchecked; a present zero asserts absence. TradePrice and TradeQty apply
// to every observed trade.
type Expect struct {
	Acks       *uint64 `toml:"acks"`
	CancelAcks *uint64 `toml:"cancel_acks"`
	Trades     *uint64 `toml:"trades"`
	Tops       *uint64 `toml:"tops"`
	Rejects    *uint64 `toml:"rejects"`

	TradePrice *uint32 `toml:"trade_price"`
	TradeQty   *uint32 `toml:"trade_qty"`
}

// Scenario is a named step list with optional expectations.
type Scenario struct {
	Name        string  `toml:"name"`
	Description string  `toml:"description"`
	Steps       []Step  `toml:"steps"`
	Expect      *Expect `toml:"expect"`
}

// Validate checks the step list before a scenario is registered or run.
func (s *Scenario) Validate() error {
	if s.Name == "" {
		return fmt.Errorf("%w: missing name", ErrScenario)
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("%w: %s has no steps", ErrScenario, s.Name)
	}

	orders := 0
	for i, step := range s.Steps {
		switch step.Op {
		case OpOrder:
			orders++
			if _, err := ParseSide(step.Side); err != nil {
				return fmt.Errorf("%w: %s step %d: %v", ErrScenario, s.Name, i+1, err)
			}
			if step.Symbol == "" {
				return fmt.Errorf("%w: %s step %d: missing symbol", ErrScenario, s.Name, i+1)
			}
		case OpCancel:
			if step.ID == 0 && step.Ref > orders {
				return fmt.Errorf("%w: %s step %d: ref %d exceeds %d order steps", ErrScenario, s.Name, i+1, step.Ref, orders)
			}
			if step.ID == 0 && step.Ref == 0 && orders == 0 {
				return fmt.Errorf("%w: %s step %d: cancel before any order", ErrScenario, s.Name, i+1)
			}
		case OpFlush, OpDrain:
		case OpWait:
			if step.MS <= 0 {
				return fmt.Errorf("%w: %s step %d: wait needs ms", ErrScenario, s.Name, i+1)
			}
		default:
			return fmt.Errorf("%w: %s step %d: unknown op %q", ErrScenario, s.Name, i+1, step.Op)
		}
	}
	return nil
}

// ParseSide reads a step side, accepting long and single-letter forms.
func ParseSide(s string) (protocol.Side, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "b", "buy":
		return protocol.Buy, nil
	case "s", "sell":
		return protocol.Sell, nil
	default:
		return 0, fmt.Errorf("unknown side %q", s)
	}
}
