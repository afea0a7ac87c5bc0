// Package worker manages persistent engine peer processes and distributes
// grid tasks across them.
//
// A [Worker] owns exactly one live protocol peer. The underlying stream is
// strictly request-then-response with no request identifiers, so a mutex
// serializes all calls on one worker; interleaving two requests would
// desynchronize the stream permanently. Across workers, calls proceed
// independently.
//
// A [Pool] holds a fixed set of workers and a claim-based task queue. Tasks
// are submitted per batch; Collect blocks until every task of the batch has
// a result. A task whose worker dies mid-call is retried once on another
// worker; a second failure surfaces in the task's Result. The dead worker
// is retired and the batch completes on the remaining workers, so the pool
// never hangs on a dead peer.
package worker
