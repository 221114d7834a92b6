package probe

import (
	"context"
	"time"
)

// RetryChecker wraps another Checker and re-probes on failure. The shop
// occasionally serves transient errors under load, so one retry usually
// settles the real state.
type RetryChecker struct {
	Inner    Checker
	Attempts int
	Backoff  time.Duration
}

func (r *RetryChecker) Check(ctx context.Context, target string) Result {
	attempts := r.Attempts
	if attempts < 1 {
		attempts = 1
	}
	var last Result
	for i := 0; i < attempts; i++ {
		last = r.Inner.Check(ctx, target)
		if last.OK {
			return last
		}
		if i < attempts-1 {
			select {
			case <-ctx.Done():
				last.Message = ctx.Err().Error()
				return last
			case <-time.After(r.Backoff):
			}
		}
	}
	// annotate message so the log shows it was a retry series
	last.Message = last.Message + " (after retries)"
	return last
}
