// Package engine submits candidate SQL to the warehouse as a dry run.
//
// Every call runs under a per-attempt timeout and is retried once on
// transient connection failures. Engine-reported errors are returned as
// *core.ExecutionError with an inferred kind.
package engine

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"strconv"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/leapstack-labs/leapquery/pkg/core"
)

// Querier runs a statement that returns rows. adapter.Adapter satisfies it.
type Querier interface {
	Query(ctx context.Context, sql string) (*core.Rows, error)
}

// Options configures an Engine.
type Options struct {
	Timeout time.Duration // per attempt; zero means no timeout
	Retries uint64        // retries on transient failure
	Backoff time.Duration
	Logger  *slog.Logger
}

// DefaultOptions returns a 10s timeout and one retry.
func DefaultOptions() Options {
	return Options{Timeout: 10 * time.Second, Retries: 1, Backoff: 200 * time.Millisecond}
}

// Engine is the dry-run collaborator of the validation cascade.
type Engine struct {
	q    Querier
	opts Options
}

// New creates an engine over q.
func New(q Querier, opts Options) *Engine {
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}
	if opts.Backoff <= 0 {
		opts.Backoff = DefaultOptions().Backoff
	}
	return &Engine{q: q, opts: opts}
}

// Explain asks the engine to plan sql without running it.
func (e *Engine) Explain(ctx context.Context, sql string) error {
	return e.run(ctx, "EXPLAIN "+sql, drain)
}

// ExecuteLimited runs sql capped at rowCap rows and returns the number
// of rows read.
func (e *Engine) ExecuteLimited(ctx context.Context, sql string, rowCap int) (int, error) {
	if rowCap <= 0 {
		rowCap = 1
	}
	limited := "SELECT * FROM (\n" + sql + "\n) AS limited LIMIT " + strconv.Itoa(rowCap)

	var n int
	err := e.run(ctx, limited, func(rows *core.Rows) error {
		n = 0
		for rows.Next() {
			n++
		}
		return rows.Err()
	})
	return n, err
}

func (e *Engine) run(ctx context.Context, sql string, consume func(*core.Rows) error) error {
	attempt := 0
	backoff := retry.WithMaxRetries(e.opts.Retries, retry.NewConstant(e.opts.Backoff))

	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		actx, cancel := e.attemptContext(ctx)
		defer cancel()

		err := e.once(actx, sql, consume)
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return err
		}
		if errors.Is(actx.Err(), context.DeadlineExceeded) {
			err = &timeoutError{limit: e.opts.Timeout}
		}
		if isTransient(err) {
			e.opts.Logger.Warn("engine call failed, retrying", "attempt", attempt, "error", err)
			return retry.RetryableError(err)
		}
		return err
	})
	if err == nil {
		return nil
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return ClassifyError(err)
}

func (e *Engine) once(ctx context.Context, sql string, consume func(*core.Rows) error) error {
	rows, err := e.q.Query(ctx, sql)
	if err != nil {
		return err
	}
	defer func() { _ = rows.Close() }()
	return consume(rows)
}

func (e *Engine) attemptContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if e.opts.Timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, e.opts.Timeout)
}

// isTransient reports connection-level failures worth one more try.
// Errors the engine reports about the statement itself are never retried.
func isTransient(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, driver.ErrBadConn) || errors.Is(err, io.ErrUnexpectedEOF) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

func drain(rows *core.Rows) error {
	for rows.Next() { //nolint:revive // rows are discarded
	}
	return rows.Err()
}

// timeoutError reports a statement that outlived its per-attempt timeout.
type timeoutError struct {
	limit time.Duration
}

func (e *timeoutError) Error() string {
	return fmt.Sprintf("statement did not finish within %s", e.limit)
}

func (e *timeoutError) Unwrap() error {
	return context.DeadlineExceeded
}
