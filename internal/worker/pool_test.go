package worker

import (
	"fmt"
	"testing"

	errs "github.com/Iron-Ham/mandelgrid/internal/errors"
	"github.com/Iron-Ham/mandelgrid/internal/logging"
)

// loopbackSpawner backs every pool slot with an in-process protocol peer.
func loopbackSpawner(t *testing.T) SpawnFunc {
	t.Helper()
	return func(id int) (*Worker, error) {
		return newLoopback(t, id), nil
	}
}

// flakySpawner gives slot 0 a peer that dies on its first request and every
// other slot a healthy loopback peer.
func flakySpawner(t *testing.T) SpawnFunc {
	t.Helper()
	return func(id int) (*Worker, error) {
		if id == 0 {
			return newDeadPeer(t, id), nil
		}
		return newLoopback(t, id), nil
	}
}

func TestPoolBatch(t *testing.T) {
	p, err := NewPool(3, loopbackSpawner(t), logging.Nop())
	if err != nil {
		t.Fatalf("NewPool: %v", err)
	}
	defer p.Close()

	const n = 12
	for i := 0; i < n; i++ {
		p.Submit(Task{X: i, Y: i * 2, Request: calRequest("-3", 10)})
	}
	results := p.Collect()

	if len(results) != n {
		t.Fatalf("got %d results, want %d", len(results), n)
	}
	for i := 0; i < n; i++ {
		r, ok := results[Coord{X: i, Y: i * 2}]
		if !ok {
			t.Fatalf("missing result for (%d,%d)", i, i*2)
		}
		if r.Err != nil {
			t.Errorf("(%d,%d): %v", i, i*2, r.Err)
		}
		if !r.Response.Escaped || r.Response.Iterations != 1 {
			t.Errorf("(%d,%d): resp %+v", i, i*2, r.Response)
		}
	}
}

func TestPoolSecondBatchReusesWorkers(t *testing.T) {
	p, err := NewPool(2, loopbackSpawner(t), logging.Nop())
	if err != nil {
		t.Fatalf("NewPool: %v", err)
	}
	defer p.Close()

	for batch := 0; batch < 3; batch++ {
		for i := 0; i < 5; i++ {
			p.Submit(Task{X: i, Y: batch, Request: calRequest("0", 4)})
		}
		results := p.Collect()
		if len(results) != 5 {
			t.Fatalf("batch %d: got %d results", batch, len(results))
		}
		for c, r := range results {
			if r.Err != nil || r.Response.Escaped || r.Response.Iterations != 4 {
				t.Errorf("batch %d %v: %+v err=%v", batch, c, r.Response, r.Err)
			}
		}
	}
}

func TestPoolRetriesOnDeadWorker(t *testing.T) {
	p, err := NewPool(2, flakySpawner(t), logging.Nop())
	if err != nil {
		t.Fatalf("NewPool: %v", err)
	}
	defer p.Close()

	const n = 8
	for i := 0; i < n; i++ {
		p.Submit(Task{X: i, Y: 0, Request: calRequest("-3", 10)})
	}
	results := p.Collect()

	if len(results) != n {
		t.Fatalf("got %d results, want %d", len(results), n)
	}
	// Worker 0 kills at most one task's first attempt; the survivor serves
	// every task, so the whole batch still succeeds.
	for c, r := range results {
		if r.Err != nil {
			t.Errorf("%v: %v", c, r.Err)
		}
		if !r.Response.Escaped {
			t.Errorf("%v: resp %+v", c, r.Response)
		}
	}
}

func TestPoolAllWorkersDead(t *testing.T) {
	spawn := func(id int) (*Worker, error) {
		return newDeadPeer(t, id), nil
	}
	p, err := NewPool(1, spawn, logging.Nop())
	if err != nil {
		t.Fatalf("NewPool: %v", err)
	}
	defer p.Close()

	for i := 0; i < 4; i++ {
		p.Submit(Task{X: i, Y: 0, Request: calRequest("0", 5)})
	}
	results := p.Collect() // must not hang

	if len(results) != 4 {
		t.Fatalf("got %d results, want 4", len(results))
	}
	for c, r := range results {
		if r.Err == nil {
			t.Errorf("%v: expected an error once every worker died", c)
		}
	}
}

func TestPoolRefusedRequestIsNotRetried(t *testing.T) {
	p, err := NewPool(2, loopbackSpawner(t), logging.Nop())
	if err != nil {
		t.Fatalf("NewPool: %v", err)
	}
	defer p.Close()

	p.Submit(Task{X: 0, Y: 0, Request: calRequest("-3", -1)})
	p.Submit(Task{X: 1, Y: 0, Request: calRequest("-3", 10)})
	results := p.Collect()

	bad := results[Coord{X: 0, Y: 0}]
	if !errs.Is(bad.Err, errs.ErrRequestRefused) {
		t.Errorf("refused task error = %v, want ErrRequestRefused", bad.Err)
	}
	good := results[Coord{X: 1, Y: 0}]
	if good.Err != nil || !good.Response.Escaped {
		t.Errorf("good task: %+v err=%v", good.Response, good.Err)
	}
}

func TestPoolSpawnFailureClosesStarted(t *testing.T) {
	var started []*Worker
	spawn := func(id int) (*Worker, error) {
		if id == 2 {
			return nil, fmt.Errorf("engine binary missing")
		}
		wk := newLoopback(t, id)
		started = append(started, wk)
		return wk, nil
	}

	if _, err := NewPool(3, spawn, logging.Nop()); err == nil {
		t.Fatal("expected NewPool to fail")
	}
	for _, wk := range started {
		if _, err := wk.Call(calRequest("0", 1)); !errs.Is(err, errs.ErrWorkerClosed) {
			t.Errorf("worker %d should be closed after spawn failure, got %v", wk.ID(), err)
		}
	}
}

func TestPoolCloseIdempotent(t *testing.T) {
	p, err := NewPool(2, loopbackSpawner(t), logging.Nop())
	if err != nil {
		t.Fatalf("NewPool: %v", err)
	}
	if err := p.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := p.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
}
