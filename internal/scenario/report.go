package scenario

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/mxprobe/mxprobe/internal/session"
)

// Counts aggregates responses by kind.
type Counts struct {
	Acks       uint64 `json:"acks"`
	CancelAcks uint64 `json:"cancel_acks"`
	Trades     uint64 `json:"trades"`
	Tops       uint64 `json:"tops"`
	Rejects    uint64 `json:"rejects"`
}

// Check is one scored expectation.
type Check struct {
	Name   string `json:"name"`
	Want   string `json:"want"`
	Got    string `json:"got"`
	Passed bool   `json:"passed"`
}

// Report is the outcome of one scenario run.
type Report struct {
	RunID    string        `json:"run_id"`
	Scenario string        `json:"scenario"`
	Started  time.Time     `json:"started"`
	Elapsed  time.Duration `json:"elapsed_ns"`

	Sent         uint64 `json:"sent"`
	Received     uint64 `json:"received"`
	DecodeErrors uint64 `json:"decode_errors"`
	Counts       Counts `json:"counts"`

	// Latency carries the session's running aggregate, which equals this
	// run's when the session is fresh.
	Latency session.LatencyStats `json:"latency"`

	Checks []Check `json:"checks,omitempty"`
	Passed bool    `json:"passed"`
}

func newReport(sc *Scenario, started time.Time, before, after session.Stats, t *tally) *Report {
	rep := &Report{
		RunID:        uuid.NewString(),
		Scenario:     sc.Name,
		Started:      started,
		Elapsed:      time.Since(started),
		Sent:         after.Sent - before.Sent,
		Received:     after.Received - before.Received,
		DecodeErrors: after.DecodeErrors - before.DecodeErrors,
		Counts:       t.counts,
		Latency:      after.Latency,
		Passed:       true,
	}
	rep.evaluate(sc.Expect, t)
	return rep
}

func (rep *Report) evaluate(exp *Expect, t *tally) {
	if exp == nil {
		return
	}

	count := func(name string, want *uint64, got uint64) {
		if want == nil {
			return
		}
		rep.addCheck(name, strconv.FormatUint(*want, 10), strconv.FormatUint(got, 10), got == *want)
	}
	count("acks", exp.Acks, t.counts.Acks)
	count("cancel acks", exp.CancelAcks, t.counts.CancelAcks)
	count("trades", exp.Trades, t.counts.Trades)
	count("tops", exp.Tops, t.counts.Tops)
	count("rejects", exp.Rejects, t.counts.Rejects)

	if exp.TradePrice != nil {
		rep.checkTrades("trade price", *exp.TradePrice, t, func(i int) uint32 { return t.trades[i].Price })
	}
	if exp.TradeQty != nil {
		rep.checkTrades("trade qty", *exp.TradeQty, t, func(i int) uint32 { return t.trades[i].Qty })
	}
}

// checkTrades asserts one trade field across every observed trade.
func (rep *Report) checkTrades(name string, want uint32, t *tally, field func(int) uint32) {
	got := "none"
	ok := true
	for i := range t.trades {
		v := field(i)
		got = strconv.FormatUint(uint64(v), 10)
		if v != want {
			ok = false
			break
		}
	}
	rep.addCheck(name, strconv.FormatUint(uint64(want), 10), got, ok)
}

func (rep *Report) addCheck(name, want, got string, passed bool) {
	rep.Checks = append(rep.Checks, Check{Name: name, Want: want, Got: got, Passed: passed})
	if !passed {
		rep.Passed = false
	}
}

// Render writes the human-readable report.
func (rep *Report) Render(w io.Writer) {
	fmt.Fprintf(w, "scenario %s  run %s\n", rep.Scenario, rep.RunID)
	fmt.Fprintf(w, "  sent %d  received %d  decode errors %d  elapsed %v\n",
		rep.Sent, rep.Received, rep.DecodeErrors, rep.Elapsed.Round(time.Microsecond))
	fmt.Fprintf(w, "  acks %d  cancel acks %d  trades %d  tops %d  rejects %d\n",
		rep.Counts.Acks, rep.Counts.CancelAcks, rep.Counts.Trades, rep.Counts.Tops, rep.Counts.Rejects)
	if rep.Latency.Count > 0 {
		fmt.Fprintf(w, "  latency min %v  avg %v  max %v  over %d samples\n",
			rep.Latency.Min.Round(time.Microsecond),
			rep.Latency.Avg().Round(time.Microsecond),
			rep.Latency.Max.Round(time.Microsecond),
			rep.Latency.Count)
	}
	for _, c := range rep.Checks {
		mark := "ok"
		if !c.Passed {
			mark = "FAIL"
		}
		fmt.Fprintf(w, "  check %-12s want %-8s got %-8s %s\n", c.Name, c.Want, c.Got, mark)
	}
	verdict := "PASS"
	if !rep.Passed {
		verdict = "FAIL"
	}
	fmt.Fprintf(w, "  result %s\n", verdict)
}

// WriteJSON stores the report at path.
func (rep *Report) WriteJSON(path string) error {
	data, err := json.MarshalIndent(rep, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}
