// Copyright 2022 CeresDB Project Authors. Licensed under Apache-2.0.

package locator

import (
	"context"

	"golang.org/x/time/rate"
)

// yieldBatch is how many entries a bulk clone/rescan processes before it
// checks in with the scheduler. It mirrors the seastar convention of
// yielding every fixed number of iterations rather than on a wall-clock
// timer, so the cost stays proportional to ring size, not wall time.
const yieldBatch = 128

// yielder gives bulk O(N) walks (clone, rescan, pending-range rebuild) a
// cooperative checkpoint: every yieldBatch entries it calls into
// golang.org/x/time/rate, which both gives the Go scheduler a chance to
// run another goroutine and honors ctx cancellation mid-walk. It is the
// same repurposing server/limiter.FlowLimiter does for request pacing,
// aimed here at loop pacing instead of request pacing.
type yielder struct {
	limiter *rate.Limiter
	n       int
}

func newYielder() *yielder {
	// A very high rate with burst 1 means Wait almost never actually
	// sleeps; its value is the ctx-aware scheduling point, not throttling.
	return &yielder{limiter: rate.NewLimiter(rate.Limit(1e6), 1)}
}

// tick should be called once per entry processed by a bulk walk. It is a
// no-op except every yieldBatch calls, when it yields to the scheduler
// and returns ctx.Err() if the walk has been cancelled.
func (y *yielder) tick(ctx context.Context) error {
	y.n++
	if y.n%yieldBatch != 0 {
		return nil
	}
	return y.limiter.Wait(ctx)
}
