package worker

import (
	"bufio"
	"io"
	"strings"
	"sync"

	errs "github.com/Iron-Ham/mandelgrid/internal/errors"
	"github.com/Iron-Ham/mandelgrid/internal/logging"
	"github.com/Iron-Ham/mandelgrid/internal/protocol"
)

// Worker owns one live engine peer and serializes request/response exchanges
// over its stream. All methods are safe for concurrent use; concurrent calls
// queue on the internal mutex.
type Worker struct {
	id      int
	log     *logging.Logger
	release func() error

	mu     sync.Mutex
	w      io.Writer
	r      *bufio.Reader
	closed bool
	// broken marks a desynchronized or dead stream. A broken worker refuses
	// further calls and skips the EXIT handshake on Close.
	broken bool
}

// New wires a Worker over an established duplex stream: requests are written
// to w, responses read from r. release is invoked once on Close to free the
// peer (wait for the process, close pipes); it may be nil.
func New(id int, w io.Writer, r io.Reader, release func() error, log *logging.Logger) *Worker {
	if log == nil {
		log = logging.Nop()
	}
	return &Worker{
		id:      id,
		log:     log.WithWorker(id),
		release: release,
		w:       w,
		r:       bufio.NewReaderSize(r, 64*1024),
	}
}

// ID returns the pool slot of this worker.
func (wk *Worker) ID() int { return wk.id }

// Call sends one request and blocks until the matching response arrives.
// For verbose requests the CAL_STEP lines are drained and discarded; the
// summary line is returned either way.
//
// Errors are typed: a refused request (BAD_CMD) is a non-retryable
// WorkerError and leaves the worker usable; a dead or desynchronized stream
// is a retryable WorkerError and poisons the worker.
func (wk *Worker) Call(req protocol.Request) (protocol.Response, error) {
	wk.mu.Lock()
	defer wk.mu.Unlock()

	if wk.closed || wk.broken {
		return protocol.Response{}, errs.NewWorkerError(wk.id, errs.ErrWorkerClosed, false)
	}

	if _, err := io.WriteString(wk.w, req.Encode()+"\n"); err != nil {
		wk.broken = true
		return protocol.Response{}, errs.NewWorkerError(wk.id, errs.Join(errs.ErrWorkerExited, err), true)
	}

	for {
		line, err := wk.readLine()
		if err != nil {
			wk.broken = true
			return protocol.Response{}, errs.NewWorkerError(wk.id, errs.Join(errs.ErrWorkerExited, err), true)
		}

		if strings.HasPrefix(line, "CAL_STEP ") {
			if req.Verbose {
				continue
			}
			wk.broken = true
			return protocol.Response{}, errs.NewWorkerError(wk.id, errs.ErrBadResponse, true)
		}

		resp, err := protocol.ParseResponse(line)
		switch {
		case err == nil:
			return resp, nil
		case errs.Is(err, errs.ErrRequestRefused):
			// The peer examined the request and refused it; the stream is
			// still in sync.
			return protocol.Response{}, errs.NewWorkerError(wk.id, err, false)
		default:
			wk.broken = true
			return protocol.Response{}, errs.NewWorkerError(wk.id, err, true)
		}
	}
}

// Close performs the EXIT handshake (unless the stream is already broken)
// and releases the peer. Close is idempotent.
func (wk *Worker) Close() error {
	wk.mu.Lock()
	defer wk.mu.Unlock()

	if wk.closed {
		return nil
	}
	wk.closed = true

	if !wk.broken {
		if _, err := io.WriteString(wk.w, protocol.CmdExit+"\n"); err == nil {
			ack, err := wk.readLine()
			if err != nil || ack != protocol.CmdExit {
				wk.log.Warn("unexpected EXIT acknowledgment", "ack", ack, "error", err)
			}
		}
	}

	if wk.release != nil {
		return wk.release()
	}
	return nil
}

// readLine reads one newline-terminated response line, without the newline.
func (wk *Worker) readLine() (string, error) {
	line, err := wk.r.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}
