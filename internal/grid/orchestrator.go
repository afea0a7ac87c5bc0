package grid

import (
	errs "github.com/Iron-Ham/mandelgrid/internal/errors"
	"github.com/Iron-Ham/mandelgrid/internal/logging"
	"github.com/Iron-Ham/mandelgrid/internal/protocol"
	"github.com/Iron-Ham/mandelgrid/internal/worker"
)

// SafetyCap bounds the total iterations any single point may accumulate
// across passes. Points still un-escaped at the cap are finalized as not
// observed to escape; hitting the cap is not an error.
const SafetyCap = 10_000_000

// TaskRunner is the slice of the worker pool the orchestrator drives.
type TaskRunner interface {
	Submit(worker.Task)
	Collect() map[worker.Coord]worker.Result
}

// Event reports the state of the adaptive loop after one pass.
type Event struct {
	Pass      int
	Budget    int // per-point budget submitted this pass
	Submitted int
	Escaped   int // cumulative escaped points
	Remaining int
	Done      bool
}

// Orchestrator runs the adaptive multi-pass loop: every pass submits the
// still-unresolved points with a doubled budget, continuing each orbit from
// its stored z. Passes are barriers; pass k+1 is built only from fully
// folded pass-k results.
type Orchestrator struct {
	pool     TaskRunner
	log      *logging.Logger
	radius   string
	initial  int
	observer func(Event)
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithObserver registers a progress callback, invoked after each pass and
// once more with Done set. The callback runs on the orchestrator goroutine.
func WithObserver(fn func(Event)) Option {
	return func(o *Orchestrator) { o.observer = fn }
}

// New builds an orchestrator submitting to pool. radius is the escape
// radius in base-32 literal form; initial is the pass-1 iteration budget.
func New(pool TaskRunner, radius string, initial int, log *logging.Logger, opts ...Option) (*Orchestrator, error) {
	if initial < 1 {
		return nil, errs.NewDomainError("initial_budget", initial, errs.ErrIterationRange)
	}
	if log == nil {
		log = logging.Nop()
	}
	o := &Orchestrator{
		pool:    pool,
		log:     log,
		radius:  radius,
		initial: initial,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o, nil
}

// Run advances g until every point escaped or the safety cap would be
// exceeded. Grid state is folded in place after every pass, so even on a
// worker failure the points computed so far keep their results.
func (o *Orchestrator) Run(g *Grid) error {
	budget := o.initial
	total := 0 // iterations a never-escaping point has accumulated

	for pass := 1; ; pass++ {
		pending := o.pending(g)
		if len(pending) == 0 {
			break
		}
		if total+budget > SafetyCap {
			o.log.Info("safety cap reached, finalizing survivors",
				"pass", pass, "unescaped", len(pending), "total_iterations", total)
			break
		}

		log := o.log.WithPass(pass)
		log.Info("submitting pass", "points", len(pending), "budget", budget)

		for _, p := range pending {
			o.pool.Submit(worker.Task{
				X: p.X, Y: p.Y,
				Request: protocol.Request{
					Precision: int(g.Precision),
					ZRe:       p.ZRe, ZIm: p.ZIm,
					CRe: p.CRe, CIm: p.CIm,
					MaxIter: budget,
					Radius:  o.radius,
				},
			})
		}

		results := o.pool.Collect()
		var failed []error
		for _, p := range pending {
			r, ok := results[worker.Coord{X: p.X, Y: p.Y}]
			if !ok {
				failed = append(failed, errs.Wrapf(errs.ErrBadResponse, "no result for (%d,%d)", p.X, p.Y))
				continue
			}
			if r.Err != nil {
				failed = append(failed, errs.Wrapf(r.Err, "point (%d,%d)", p.X, p.Y))
				continue
			}
			p.ZRe, p.ZIm = r.Response.ZRe, r.Response.ZIm
			p.Iterations += r.Response.Iterations
			p.Escaped = r.Response.Escaped
		}

		escaped := g.Res*g.Res - g.Unescaped()
		log.Info("pass folded", "escaped_total", escaped, "remaining", g.Unescaped(), "failures", len(failed))
		o.emit(Event{
			Pass: pass, Budget: budget,
			Submitted: len(pending),
			Escaped:   escaped,
			Remaining: g.Unescaped(),
		})

		if len(failed) > 0 {
			return errs.Join(failed...)
		}

		total += budget
		budget *= 2
	}

	o.emit(Event{
		Escaped:   g.Res*g.Res - g.Unescaped(),
		Remaining: g.Unescaped(),
		Done:      true,
	})
	return nil
}

// pending returns pointers to the points still in play.
func (o *Orchestrator) pending(g *Grid) []*Point {
	var out []*Point
	for i := range g.Points {
		if !g.Points[i].Escaped {
			out = append(out, &g.Points[i])
		}
	}
	return out
}

func (o *Orchestrator) emit(ev Event) {
	if o.observer != nil {
		o.observer(ev)
	}
}
