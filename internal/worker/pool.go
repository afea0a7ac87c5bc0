package worker

import (
	"runtime"
	"sync"

	errs "github.com/Iron-Ham/mandelgrid/internal/errors"
	"github.com/Iron-Ham/mandelgrid/internal/logging"
	"github.com/Iron-Ham/mandelgrid/internal/protocol"
)

// Coord identifies a grid point.
type Coord struct {
	X, Y int
}

// Task asks the pool to advance one grid point. Tasks are value types,
// consumed exactly once by exactly one worker (twice if the first worker
// dies mid-call).
type Task struct {
	X, Y    int
	Request protocol.Request

	// attempts counts failed deliveries; the pool retries a task once.
	attempts int
}

// Result answers one Task. Err is non-nil when the task could not be served:
// the peer refused the request, or every delivery attempt hit a dead worker.
type Result struct {
	X, Y     int
	Response protocol.Response
	Err      error
}

// DefaultSize is the default worker count: one per available execution unit.
func DefaultSize() int { return runtime.NumCPU() }

// Pool distributes tasks across a fixed set of workers. Submit enqueues
// tasks for the current batch; Collect blocks until the whole batch has
// results. The zero ordering guarantee is deliberate: any worker may serve
// any task, and results arrive in completion order.
type Pool struct {
	log     *logging.Logger
	workers []*Worker
	wg      sync.WaitGroup

	mu      sync.Mutex
	cond    *sync.Cond
	queue   []Task
	results map[Coord]Result
	pending int
	live    int
	closed  bool
}

// NewPool spawns size workers (DefaultSize when size <= 0) and starts one
// dispatch goroutine per worker. On spawn failure the already-started
// workers are closed before the error returns.
func NewPool(size int, spawn SpawnFunc, log *logging.Logger) (*Pool, error) {
	if size <= 0 {
		size = DefaultSize()
	}
	if log == nil {
		log = logging.Nop()
	}

	p := &Pool{
		log:     log,
		results: make(map[Coord]Result),
		live:    size,
	}
	p.cond = sync.NewCond(&p.mu)

	for i := 0; i < size; i++ {
		wk, err := spawn(i)
		if err != nil {
			for _, started := range p.workers {
				started.Close()
			}
			return nil, errs.Wrapf(err, "spawning worker %d", i)
		}
		p.workers = append(p.workers, wk)
	}

	for _, wk := range p.workers {
		p.wg.Add(1)
		go p.dispatch(wk)
	}
	p.log.Info("worker pool started", "workers", size)
	return p, nil
}

// Size returns the number of workers the pool started with.
func (p *Pool) Size() int { return len(p.workers) }

// Submit enqueues one task for the current batch.
func (p *Pool) Submit(t Task) {
	p.mu.Lock()
	defer p.mu.Unlock()

	t.attempts = 0
	p.pending++
	if p.live == 0 {
		// Nobody left to serve it; fail fast instead of stranding Collect.
		p.recordLocked(Result{
			X: t.X, Y: t.Y,
			Err: errs.NewWorkerError(-1, errs.ErrWorkerExited, false),
		})
		p.cond.Broadcast()
		return
	}
	p.queue = append(p.queue, t)
	p.cond.Broadcast()
}

// Collect blocks until every submitted task of the current batch has a
// result, then returns the results keyed by coordinate and resets the batch.
func (p *Pool) Collect() map[Coord]Result {
	p.mu.Lock()
	defer p.mu.Unlock()

	for p.pending > 0 {
		p.cond.Wait()
	}
	out := p.results
	p.results = make(map[Coord]Result)
	return out
}

// Close drains the queue, stops the dispatchers and closes every worker
// (EXIT handshake included). Close is idempotent.
func (p *Pool) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	p.cond.Broadcast()
	p.mu.Unlock()

	p.wg.Wait()

	var firstErr error
	for _, wk := range p.workers {
		if err := wk.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// dispatch is the per-worker loop: claim a task, call the peer, record the
// outcome. A retryable failure requeues the task (first attempt only),
// retires the worker and ends the loop.
func (p *Pool) dispatch(wk *Worker) {
	defer p.wg.Done()

	for {
		p.mu.Lock()
		for len(p.queue) == 0 && !p.closed {
			p.cond.Wait()
		}
		if len(p.queue) == 0 {
			p.mu.Unlock()
			return
		}
		task := p.queue[0]
		p.queue = p.queue[1:]
		p.mu.Unlock()

		resp, err := wk.Call(task.Request)

		if err != nil && errs.IsRetryable(err) {
			p.log.Warn("worker failed mid-call, retiring it",
				"worker_id", wk.ID(), "x", task.X, "y", task.Y, "error", err)
			p.mu.Lock()
			if task.attempts == 0 {
				task.attempts++
				p.queue = append(p.queue, task)
			} else {
				p.recordLocked(Result{X: task.X, Y: task.Y, Err: err})
			}
			p.live--
			if p.live == 0 {
				p.failQueuedLocked()
			}
			p.cond.Broadcast()
			p.mu.Unlock()
			return
		}

		p.mu.Lock()
		p.recordLocked(Result{X: task.X, Y: task.Y, Response: resp, Err: err})
		p.cond.Broadcast()
		p.mu.Unlock()
	}
}

// recordLocked stores one result. Callers hold p.mu.
func (p *Pool) recordLocked(r Result) {
	p.results[Coord{X: r.X, Y: r.Y}] = r
	p.pending--
}

// failQueuedLocked fails every still-queued task; called when the last
// worker dies so Collect never blocks on work nobody can serve. Callers
// hold p.mu.
func (p *Pool) failQueuedLocked() {
	for _, task := range p.queue {
		p.recordLocked(Result{
			X: task.X, Y: task.Y,
			Err: errs.NewWorkerError(-1, errs.ErrWorkerExited, false),
		})
	}
	p.queue = nil
}
