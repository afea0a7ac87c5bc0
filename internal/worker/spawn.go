package worker

import (
	"context"
	"os"
	"os/exec"

	errs "github.com/Iron-Ham/mandelgrid/internal/errors"
	"github.com/Iron-Ham/mandelgrid/internal/logging"
)

// SpawnFunc creates the worker for one pool slot.
type SpawnFunc func(id int) (*Worker, error)

// ProcessSpawner returns a SpawnFunc that launches the given command for
// each pool slot and wires the worker over its stdin/stdout pipes. The
// peer's stderr passes through to ours so engine diagnostics stay visible.
//
// Pipes, not a pty: the wire protocol depends on clean byte-stream
// semantics, and terminal line discipline would corrupt framing.
func ProcessSpawner(ctx context.Context, log *logging.Logger, path string, args ...string) SpawnFunc {
	return func(id int) (*Worker, error) {
		cmd := exec.CommandContext(ctx, path, args...)
		cmd.Stderr = os.Stderr

		stdin, err := cmd.StdinPipe()
		if err != nil {
			return nil, errs.Wrap(err, "opening engine stdin")
		}
		stdout, err := cmd.StdoutPipe()
		if err != nil {
			return nil, errs.Wrap(err, "opening engine stdout")
		}
		if err := cmd.Start(); err != nil {
			return nil, errs.Wrapf(err, "starting engine %q", path)
		}

		release := func() error {
			// Closing stdin unblocks the peer's read loop if the EXIT
			// handshake never happened.
			stdin.Close()
			return cmd.Wait()
		}
		return New(id, stdin, stdout, release, log), nil
	}
}

// SelfSpawner launches the current executable with the given subcommand
// arguments, which is how the pool runs the bundled engine without
// depending on an external binary.
func SelfSpawner(ctx context.Context, log *logging.Logger, args ...string) (SpawnFunc, error) {
	self, err := os.Executable()
	if err != nil {
		return nil, errs.Wrap(err, "resolving own executable")
	}
	return ProcessSpawner(ctx, log, self, args...), nil
}
