package scenario

import (
	"errors"
	"reflect"
	"testing"

	"github.com/mxprobe/mxprobe/internal/protocol"
)

func TestValidateRejectsBadScenarios(t *testing.T) {
	cases := []struct {
		name     string
		scenario Scenario
	}{
		{"missing name", Scenario{Steps: []Step{{Op: OpFlush}}}},
		{"no steps", Scenario{Name: "empty"}},
		{"unknown op", Scenario{Name: "x", Steps: []Step{{Op: "frob"}}}},
		{"bad side", Scenario{Name: "x", Steps: []Step{{Op: OpOrder, Side: "hold", Symbol: "IBM", Qty: 1}}}},
		{"missing symbol", Scenario{Name: "x", Steps: []Step{{Op: OpOrder, Side: "buy", Qty: 1}}}},
		{"cancel before order", Scenario{Name: "x", Steps: []Step{{Op: OpCancel}}}},
		{"ref out of range", Scenario{Name: "x", Steps: []Step{
			{Op: OpOrder, Side: "buy", Symbol: "IBM", Qty: 1},
			{Op: OpCancel, Ref: 2},
		}}},
		{"wait without ms", Scenario{Name: "x", Steps: []Step{{Op: OpWait}}}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if err := tc.scenario.Validate(); !errors.Is(err, ErrScenario) {
				t.Errorf("Expected ErrScenario, got %v", err)
			}
		})
	}
}

func TestValidateAcceptsBuiltins(t *testing.T) {
	for _, s := range []*Scenario{NoMatch(), FullMatch(), CancelRoundTrip(), Sweep(nil)} {
		if err := s.Validate(); err != nil {
			t.Errorf("Builtin %s failed validation: %v", s.Name, err)
		}
	}
}

func TestParseSide(t *testing.T) {
	cases := []struct {
		in   string
		want protocol.Side
		ok   bool
	}{
		{"buy", protocol.Buy, true},
		{"B", protocol.Buy, true},
		{" Sell ", protocol.Sell, true},
		{"s", protocol.Sell, true},
		{"hold", 0, false},
		{"", 0, false},
	}

	for _, tc := range cases {
		side, err := ParseSide(tc.in)
		if tc.ok && (err != nil || side != tc.want) {
			t.Errorf("ParseSide(%q): expected %v, got %v (%v)", tc.in, tc.want, side, err)
		}
		if !tc.ok && err == nil {
			t.Errorf("ParseSide(%q): expected error", tc.in)
		}
	}
}

func TestSweepIsDeterministic(t *testing.T) {
	a := Sweep(&SweepOptions{Orders: 10, Seed: 7})
	b := Sweep(&SweepOptions{Orders: 10, Seed: 7})

	if !reflect.DeepEqual(a.Steps, b.Steps) {
		t.Error("Expected identical step lists for the same seed")
	}

	c := Sweep(&SweepOptions{Orders: 10, Seed: 8})
	if reflect.DeepEqual(a.Steps, c.Steps) {
		t.Error("Expected a different seed to produce different steps")
	}
}

func TestSweepShape(t *testing.T) {
	s := Sweep(&SweepOptions{Orders: 5, Rate: 100, Seed: 1, MinPrice: 90, MaxPrice: 110, MinQty: 1, MaxQty: 50})

	orders, waits := 0, 0
	for _, step := range s.Steps {
		switch step.Op {
		case OpOrder:
			orders++
			if step.Price < 90 || step.Price > 110 {
				t.Errorf("Order price %d outside range", step.Price)
			}
			if step.Qty < 1 || step.Qty > 50 {
				t.Errorf("Order qty %d outside range", step.Qty)
			}
		case OpWait:
			waits++
			if step.MS != 10 {
				t.Errorf("Expected 10ms waits at rate 100, got %d", step.MS)
			}
		}
	}
	if orders != 5 {
		t.Errorf("Expected 5 order steps, got %d", orders)
	}
	if waits != 4 {
		t.Errorf("Expected a wait between each pair of orders, got %d", waits)
	}
	if s.Expect == nil || s.Expect.Acks == nil || *s.Expect.Acks != 5 {
		t.Error("Expected sweep to assert its ack count")
	}

	last := s.Steps[len(s.Steps)-1]
	if last.Op != OpDrain {
		t.Errorf("Expected a trailing drain, got %q", last.Op)
	}
}
