// Package retry re-issues control-plane calls that were rejected for
// exceeding the request rate.
//
// The policy is linear: attempt n waits baseDelay*n before attempt n+1. There
// is no attempt ceiling; a caller that needs a bound cancels the context.
package retry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/aws/smithy-go"
	"github.com/google/uuid"

	"apigateway-importer/internal/journal"
)

// DefaultBaseDelay is used when no delay is configured.
const DefaultBaseDelay = 300 * time.Millisecond

var rateLimitCodes = map[string]bool{
	"TooManyRequestsException": true,
	"LimitExceededException":   true,
}

// IsRateLimited reports whether the control plane rejected a call for
// exceeding its request rate.
func IsRateLimited(err error) bool {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) && rateLimitCodes[apiErr.ErrorCode()] {
		return true
	}
	var status interface{ HTTPStatusCode() int }
	if errors.As(err, &status) && status.HTTPStatusCode() == http.StatusTooManyRequests {
		return true
	}
	return false
}

// Op names a remote call for logging and the journal.
type Op struct {
	Name   string // control-plane operation, e.g. createResource
	Target string // what it acts on, e.g. a resource path
	APIID  string
}

// SleepFunc waits for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Retrier wraps single remote calls. The base delay is fixed at construction.
type Retrier struct {
	baseDelay time.Duration
	logger    *slog.Logger
	recorder  journal.Recorder
	runID     uuid.UUID
	sleep     SleepFunc
	now       func() time.Time
}

// Option configures a Retrier
type Option func(*Retrier)

// WithLogger sets the logger for retry notices
func WithLogger(logger *slog.Logger) Option {
	return func(r *Retrier) { r.logger = logger }
}

// WithJournal records each call's final outcome under runID
func WithJournal(recorder journal.Recorder, runID uuid.UUID) Option {
	return func(r *Retrier) {
		r.recorder = recorder
		r.runID = runID
	}
}

// WithSleep replaces the wait between attempts
func WithSleep(sleep SleepFunc) Option {
	return func(r *Retrier) { r.sleep = sleep }
}

// New creates a retrier; a non-positive baseDelay selects DefaultBaseDelay.
func New(baseDelay time.Duration, opts ...Option) *Retrier {
	if baseDelay <= 0 {
		baseDelay = DefaultBaseDelay
	}
	r := &Retrier{
		baseDelay: baseDelay,
		logger:    slog.Default(),
		recorder:  journal.Nop{},
		sleep:     sleepContext,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// BaseDelay returns the configured delay unit.
func (r *Retrier) BaseDelay() time.Duration {
	return r.baseDelay
}

// Delay is the wait after the given failed attempt.
func (r *Retrier) Delay(attempt int) time.Duration {
	return r.baseDelay * time.Duration(attempt)
}

// Call invokes fn until it succeeds or fails for a reason other than rate
// limiting. Non-rate-limit errors are returned unchanged.
func Call[T any](ctx context.Context, r *Retrier, op Op, fn func(context.Context) (T, error)) (T, error) {
	start := r.now()
	for attempt := 1; ; attempt++ {
		out, err := fn(ctx)
		if err == nil {
			r.record(ctx, op, attempt, start, nil)
			return out, nil
		}
		if !IsRateLimited(err) {
			r.record(ctx, op, attempt, start, err)
			return out, err
		}

		delay := r.Delay(attempt)
		r.logger.Warn("rate limited, retrying",
			"operation", op.Name,
			"target", op.Target,
			"attempt", attempt,
			"delay", delay,
		)
		if serr := r.sleep(ctx, delay); serr != nil {
			err = fmt.Errorf("%s abandoned after %d attempts: %w", op.Name, attempt, serr)
			r.record(ctx, op, attempt, start, err)
			var zero T
			return zero, err
		}
	}
}

func (r *Retrier) record(ctx context.Context, op Op, attempts int, start time.Time, callErr error) {
	entry := journal.Entry{
		RunID:          r.runID,
		APIID:          op.APIID,
		Operation:      op.Name,
		Target:         op.Target,
		Attempts:       attempts,
		ElapsedSeconds: journal.Seconds(r.now().Sub(start)),
		Outcome:        journal.OutcomeSuccess,
		RecordedAt:     r.now().UTC(),
	}
	if callErr != nil {
		entry.Outcome = journal.OutcomeFailed
		entry.Error = callErr.Error()
	}
	// An abandoned call is still recorded once its context is done.
	if err := r.recorder.Record(context.WithoutCancel(ctx), entry); err != nil {
		r.logger.Warn("failed to record journal entry", "operation", op.Name, "error", err)
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
