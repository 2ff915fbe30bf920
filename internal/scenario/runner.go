package scenario

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/mxprobe/mxprobe/internal/protocol"
	"github.com/mxprobe/mxprobe/internal/session"
)

const defaultDrain = 250 * time.Millisecond

// RunnerOptions configure a runner.
type RunnerOptions struct {
	// Drain bounds drain steps without an explicit ms and the final drain
	// after the last step.
	Drain time.Duration

	Logger *zap.SugaredLogger
}

// Runner drives scenarios through one connected session. It owns the
// session's response handler while a run is in flight.
type Runner struct {
	sess  *session.Session
	log   *zap.SugaredLogger
	drain time.Duration
}

// NewRunner wraps a session. A nil opts takes the defaults.
func NewRunner(sess *session.Session, opts *RunnerOptions) *Runner {
	if opts == nil {
		opts = &RunnerOptions{}
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	drain := opts.Drain
	if drain <= 0 {
		drain = defaultDrain
	}
	return &Runner{sess: sess, log: log, drain: drain}
}

// tally counts responses by kind as the session dispatches them.
type tally struct {
	counts Counts
	trades []protocol.Trade
}

func (t *tally) add(resp protocol.Response) {
	switch m := resp.(type) {
	case protocol.Ack:
		t.counts.Acks++
	case protocol.CancelAck:
		t.counts.CancelAcks++
	case protocol.Trade:
		t.counts.Trades++
		t.trades = append(t.trades, m)
	case protocol.TopOfBook:
		t.counts.Tops++
	case protocol.Reject:
		t.counts.Rejects++
	}
}

// Run executes every step, drains the session one last time, and scores
// the expectations. A step that cannot be sent aborts the run with an
// error; expectation misses produce a failed report instead.
func (r *Runner) Run(sc *Scenario) (*Report, error) {
	if err := sc.Validate(); err != nil {
		return nil, err
	}
	if r.sess.State() != session.StateConnected {
		return nil, session.ErrNotConnected
	}

	t := &tally{}
	r.sess.OnResponse(t.add)
	defer r.sess.OnResponse(nil)

	before := r.sess.Stats()
	started := time.Now()
	r.log.Infow("scenario started", "scenario", sc.Name, "steps", len(sc.Steps))

	var orderIDs []uint32
	for i, step := range sc.Steps {
		if err := r.step(sc, i, step, &orderIDs); err != nil {
			return nil, err
		}
	}
	r.sess.RecvAll(r.drain)

	after := r.sess.Stats()
	rep := newReport(sc, started, before, after, t)
	r.log.Infow("scenario finished",
		"scenario", sc.Name,
		"run", rep.RunID,
		"passed", rep.Passed,
		"received", rep.Received,
	)
	return rep, nil
}

func (r *Runner) step(sc *Scenario, i int, step Step, orderIDs *[]uint32) error {
	switch step.Op {
	case OpOrder:
		side, err := ParseSide(step.Side)
		if err != nil {
			return fmt.Errorf("%s step %d: %w", sc.Name, i+1, err)
		}
		id, err := r.sess.SendOrder(step.Symbol, step.Price, step.Qty, side, step.ID)
		if err != nil {
			return fmt.Errorf("%s step %d: %w", sc.Name, i+1, err)
		}
		*orderIDs = append(*orderIDs, id)

	case OpCancel:
		id := step.ID
		if id == 0 {
			ids := *orderIDs
			if step.Ref > 0 {
				id = ids[step.Ref-1]
			} else {
				id = ids[len(ids)-1]
			}
		}
		if err := r.sess.SendCancel(id); err != nil {
			return fmt.Errorf("%s step %d: %w", sc.Name, i+1, err)
		}

	case OpFlush:
		if err := r.sess.SendFlush(); err != nil {
			return fmt.Errorf("%s step %d: %w", sc.Name, i+1, err)
		}

	case OpWait:
		time.Sleep(time.Duration(step.MS) * time.Millisecond)

	case OpDrain:
		d := r.drain
		if step.MS > 0 {
			d = time.Duration(step.MS) * time.Millisecond
		}
		r.sess.RecvAll(d)
	}
	return nil
}
