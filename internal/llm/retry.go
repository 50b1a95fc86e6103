package llm

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"time"

	"github.com/sethvargo/go-retry"
)

// Policy bounds one capability call.
type Policy struct {
	Timeout time.Duration
	Retries uint64
	Backoff time.Duration
}

// DefaultPolicy returns a per-attempt timeout of 30s with one retry.
func DefaultPolicy() Policy {
	return Policy{Timeout: 30 * time.Second, Retries: 1, Backoff: 250 * time.Millisecond}
}

// Retrying wraps a capability with a per-attempt timeout and a bounded
// retry on transient failures. It is separate from the critic loop's
// correction attempts.
type Retrying struct {
	next   Capability
	policy Policy
	logger *slog.Logger
}

var _ Capability = (*Retrying)(nil)

// WithRetry wraps next. A nil logger discards output.
func WithRetry(next Capability, policy Policy, logger *slog.Logger) *Retrying {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if policy.Backoff <= 0 {
		policy.Backoff = DefaultPolicy().Backoff
	}
	return &Retrying{next: next, policy: policy, logger: logger}
}

// Propose implements Capability.
func (r *Retrying) Propose(ctx context.Context, kind PromptKind, payload any) (string, error) {
	var out string
	attempt := 0
	backoff := retry.WithMaxRetries(r.policy.Retries, retry.NewConstant(r.policy.Backoff))

	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		actx, cancel := r.attemptContext(ctx)
		defer cancel()

		text, err := r.next.Propose(actx, kind, payload)
		if err == nil {
			out = text
			return nil
		}
		if ctx.Err() == nil && IsTransient(err) {
			r.logger.Warn("llm call failed, retrying", "kind", kind, "attempt", attempt, "error", err)
			return retry.RetryableError(err)
		}
		return err
	})
	return out, err
}

func (r *Retrying) attemptContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.policy.Timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, r.policy.Timeout)
}

// IsTransient reports whether err is worth retrying: timeouts, network
// failures, rate limiting and provider overload.
func IsTransient(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, io.ErrUnexpectedEOF) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var rateLimited interface{ IsRateLimitErr() bool }
	if errors.As(err, &rateLimited) && rateLimited.IsRateLimitErr() {
		return true
	}
	var overloaded interface{ IsOverloadedErr() bool }
	if errors.As(err, &overloaded) && overloaded.IsOverloadedErr() {
		return true
	}
	return false
}
