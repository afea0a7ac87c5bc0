package grid

import (
	"math/big"
	"testing"

	errs "github.com/Iron-Ham/mandelgrid/internal/errors"
	"github.com/Iron-Ham/mandelgrid/internal/kernel"
	"github.com/Iron-Ham/mandelgrid/internal/logging"
	"github.com/Iron-Ham/mandelgrid/internal/numeric"
	"github.com/Iron-Ham/mandelgrid/internal/protocol"
	"github.com/Iron-Ham/mandelgrid/internal/worker"
)

// scriptedRunner serves every submitted task through a canned function,
// preserving the pool's batch semantics without any workers.
type scriptedRunner struct {
	serve func(worker.Task) worker.Result
	tasks []worker.Task
}

func (s *scriptedRunner) Submit(t worker.Task) { s.tasks = append(s.tasks, t) }

func (s *scriptedRunner) Collect() map[worker.Coord]worker.Result {
	out := make(map[worker.Coord]worker.Result, len(s.tasks))
	for _, t := range s.tasks {
		r := s.serve(t)
		r.X, r.Y = t.X, t.Y
		out[worker.Coord{X: t.X, Y: t.Y}] = r
	}
	s.tasks = nil
	return out
}

// localRunner runs each task through the iteration kernel in-process,
// mirroring what the engine peer does on the other side of the pipe.
type localRunner struct {
	t     *testing.T
	tasks []worker.Task
}

func (l *localRunner) Submit(t worker.Task) { l.tasks = append(l.tasks, t) }

func (l *localRunner) Collect() map[worker.Coord]worker.Result {
	out := make(map[worker.Coord]worker.Result, len(l.tasks))
	for _, task := range l.tasks {
		out[worker.Coord{X: task.X, Y: task.Y}] = l.serve(task)
	}
	l.tasks = nil
	return out
}

func (l *localRunner) serve(task worker.Task) worker.Result {
	req := task.Request
	prec := uint(req.Precision)
	parse := func(lit string) *big.Float {
		v, err := numeric.Parse(lit, prec)
		if err != nil {
			l.t.Fatalf("operand %q: %v", lit, err)
		}
		return v
	}
	z := kernel.Complex{Re: parse(req.ZRe), Im: parse(req.ZIm)}
	c := kernel.Complex{Re: parse(req.CRe), Im: parse(req.CIm)}
	res := kernel.Iterate(z, c, req.MaxIter, parse(req.Radius))
	return worker.Result{
		X: task.X, Y: task.Y,
		Response: protocol.Response{
			Escaped:    res.Escaped,
			ZRe:        numeric.Format(res.Z.Re),
			ZIm:        numeric.Format(res.Z.Im),
			Iterations: res.Iterations,
		},
	}
}

func TestOrchestratorResolvesEscapingGrid(t *testing.T) {
	// Every c in this rectangle has |c| well beyond the radius, so pass 1
	// resolves the whole grid.
	b := mustBounds(t, "-3", "0", "-2.g", "0.g")
	g, err := Generate(b, 2)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	var events []Event
	o, err := New(&localRunner{t: t}, "2", 5, logging.Nop(), WithObserver(func(ev Event) {
		events = append(events, ev)
	}))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := o.Run(g); err != nil {
		t.Fatalf("Run: %v", err)
	}

	for i := range g.Points {
		p := &g.Points[i]
		if !p.Escaped {
			t.Errorf("(%d,%d) did not escape", p.X, p.Y)
		}
		if p.Iterations < 1 {
			t.Errorf("(%d,%d) iterations = %d", p.X, p.Y, p.Iterations)
		}
	}
	if len(events) != 2 {
		t.Fatalf("got %d events, want pass + done", len(events))
	}
	if events[0].Pass != 1 || events[0].Budget != 5 || events[0].Submitted != 4 {
		t.Errorf("pass event = %+v", events[0])
	}
	if !events[1].Done || events[1].Remaining != 0 || events[1].Escaped != 4 {
		t.Errorf("done event = %+v", events[1])
	}
}

func TestOrchestratorContinuesAcrossPasses(t *testing.T) {
	// A single point at c = 0.5, which escapes at exactly iteration 5. With
	// a starting budget of 1 the orbit must be resumed across three passes
	// (budgets 1, 2, 4) to get there.
	b := mustBounds(t, "0.g", "0", "0.g", "0")
	g, err := Generate(b, 1)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	var budgets []int
	o, err := New(&localRunner{t: t}, "2", 1, logging.Nop(), WithObserver(func(ev Event) {
		if !ev.Done {
			budgets = append(budgets, ev.Budget)
		}
	}))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := o.Run(g); err != nil {
		t.Fatalf("Run: %v", err)
	}

	p := g.At(0, 0)
	if !p.Escaped {
		t.Fatal("point should escape")
	}
	if p.Iterations != 5 {
		t.Errorf("iterations = %d, want 5", p.Iterations)
	}
	want := []int{1, 2, 4}
	if len(budgets) != len(want) {
		t.Fatalf("budgets = %v, want %v", budgets, want)
	}
	for i := range want {
		if budgets[i] != want[i] {
			t.Fatalf("budgets = %v, want %v", budgets, want)
		}
	}
}

func TestOrchestratorSafetyCap(t *testing.T) {
	b := mustBounds(t, "0", "0", "0", "0")
	g, err := Generate(b, 1)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	// The peer never observes an escape; it just burns the full budget.
	runner := &scriptedRunner{serve: func(task worker.Task) worker.Result {
		return worker.Result{Response: protocol.Response{
			Escaped:    false,
			ZRe:        task.Request.ZRe,
			ZIm:        task.Request.ZIm,
			Iterations: task.Request.MaxIter,
		}}
	}}

	var passes int
	o, err := New(runner, "2", 4_000_000, logging.Nop(), WithObserver(func(ev Event) {
		if !ev.Done {
			passes++
		}
	}))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := o.Run(g); err != nil {
		t.Fatalf("Run: %v", err)
	}

	// Pass 1 spends 4,000,000; the doubled pass-2 budget would push the
	// total past the cap, so the survivor is finalized un-escaped.
	if passes != 1 {
		t.Errorf("passes = %d, want 1", passes)
	}
	p := g.At(0, 0)
	if p.Escaped {
		t.Error("capped point must not be marked escaped")
	}
	if p.Iterations != 4_000_000 {
		t.Errorf("iterations = %d, want 4000000", p.Iterations)
	}
}

func TestOrchestratorSurfacesWorkerFailure(t *testing.T) {
	b := mustBounds(t, "-3", "0", "-2.g", "0")
	g, err := Generate(b, 2)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	runner := &scriptedRunner{serve: func(task worker.Task) worker.Result {
		if task.X == 0 && task.Y == 0 {
			return worker.Result{Err: errs.NewWorkerError(1, errs.ErrWorkerExited, false)}
		}
		return worker.Result{Response: protocol.Response{
			Escaped: true, ZRe: "-3", ZIm: "0", Iterations: 1,
		}}
	}}

	o, err := New(runner, "2", 10, logging.Nop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	runErr := o.Run(g)
	if !errs.Is(runErr, errs.ErrWorkerExited) {
		t.Fatalf("Run error = %v, want ErrWorkerExited", runErr)
	}

	// The failure aborts the run but leaves the other points' results alone.
	if g.At(0, 0).Escaped {
		t.Error("failed point must stay unresolved")
	}
	for _, c := range [][2]int{{1, 0}, {0, 1}, {1, 1}} {
		if p := g.At(c[0], c[1]); !p.Escaped || p.Iterations != 1 {
			t.Errorf("(%d,%d) lost its folded result: %+v", c[0], c[1], p)
		}
	}
}

func TestOrchestratorRejectsBadBudget(t *testing.T) {
	if _, err := New(&scriptedRunner{}, "2", 0, logging.Nop()); err == nil {
		t.Error("zero initial budget should be rejected")
	}
}
