package supervisor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/antoniostano/railbot/internal/observability"
	"github.com/antoniostano/railbot/internal/reliability"
)

const DefaultRestartDelay = 5 * time.Second

var ErrRunnerPanic = errors.New("runner panicked")

// Runner is a long-lived connection that returns when it fails.
type Runner interface {
	Run(ctx context.Context) error
}

type RunnerFunc func(ctx context.Context) error

func (f RunnerFunc) Run(ctx context.Context) error { return f(ctx) }

// Supervisor restarts a Runner after a fixed delay until ctx is canceled
// or the runner fails with a fatal error.
type Supervisor struct {
	delay   time.Duration
	log     *slog.Logger
	metrics *observability.Metrics
	isFatal func(error) bool
}

func New(delay time.Duration, metrics *observability.Metrics, log *slog.Logger) *Supervisor {
	if delay <= 0 {
		delay = DefaultRestartDelay
	}
	if log == nil {
		log = observability.Discard()
	}
	return &Supervisor{
		delay:   delay,
		log:     log,
		metrics: metrics,
		isFatal: reliability.IsFatalGatewayError,
	}
}

// Run blocks until ctx is done (returns nil) or a fatal error occurs
// (returns it).
func (s *Supervisor) Run(ctx context.Context, r Runner) error {
	for attempt := 1; ; attempt++ {
		if ctx.Err() != nil {
			return nil
		}
		err := s.runOnce(ctx, r)
		if ctx.Err() != nil {
			s.log.Info("supervisor stopping", "reason", ctx.Err())
			return nil
		}
		if err != nil && s.isFatal(err) {
			s.log.Error("fatal connection error, giving up", "err", err)
			return err
		}
		s.log.Warn("connection lost, restarting", "attempt", attempt, "delay", s.delay, "err", err)
		if s.metrics != nil {
			s.metrics.GatewayRestarts.Inc()
		}

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(s.delay):
		}
	}
}

func (s *Supervisor) runOnce(ctx context.Context, r Runner) (err error) {
	defer func() {
		if p := recover(); p != nil {
			s.log.Error("runner panic", "panic", p, "stack", string(debug.Stack()))
			err = fmt.Errorf("%w: %v", ErrRunnerPanic, p)
		}
	}()
	return r.Run(ctx)
}
