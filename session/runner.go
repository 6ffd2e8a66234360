// Package session owns run exclusivity and the wall-clock bound on a run.
// The extractor itself is reentrant; this is the caller that makes sure only
// one run is in flight and that a run that overstays is abandoned.
package session

import (
	"context"
	"errors"
	"time"

	"trademe-analyzer/extractor"
	"trademe-analyzer/models"
	"trademe-analyzer/utils"
)

// ErrRunInProgress is returned when a run is requested while another is active.
var ErrRunInProgress = errors.New("session: an analysis is already running")

// Engine is the run entry point the Runner guards.
type Engine interface {
	Run(ctx context.Context, host extractor.Host, nav extractor.Navigator, params extractor.Params) (*models.AnalysisResult, error)
}

// Runner serializes runs and enforces the run timeout.
type Runner struct {
	engine  Engine
	timeout time.Duration
	logger  *utils.Logger

	running chan struct{}
}

// NewRunner guards engine. A non-positive timeout disables the bound.
func NewRunner(engine Engine, timeout time.Duration, logger *utils.Logger) *Runner {
	return &Runner{
		engine:  engine,
		timeout: timeout,
		logger:  logger,
		running: make(chan struct{}, 1),
	}
}

// Busy reports whether a run is in flight.
func (r *Runner) Busy() bool {
	return len(r.running) > 0
}

// Run starts a run unless one is already active. When the timeout elapses
// first, the run's eventual result is discarded and a timeout error returned.
func (r *Runner) Run(ctx context.Context, host extractor.Host, nav extractor.Navigator, params extractor.Params) (*models.AnalysisResult, error) {
	select {
	case r.running <- struct{}{}:
	default:
		return nil, ErrRunInProgress
	}

	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	type outcome struct {
		result *models.AnalysisResult
		err    error
	}
	done := make(chan outcome, 1)
	go func() {
		// The slot is released only once the engine has actually returned,
		// and before the outcome is handed back.
		var out outcome
		defer func() {
			<-r.running
			done <- out
		}()
		out.result, out.err = r.engine.Run(ctx, host, nav, params)
	}()

	select {
	case out := <-done:
		if errors.Is(out.err, context.DeadlineExceeded) || (out.err != nil && ctx.Err() == context.DeadlineExceeded) {
			return nil, r.timedOut(out.err)
		}
		if extractor.IsKind(out.err, extractor.KindCommunication) {
			r.logger.Warn("[session] result lost in delivery: %v", out.err)
		}
		return out.result, out.err
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, r.timedOut(ctx.Err())
		}
		return nil, ctx.Err()
	}
}

func (r *Runner) timedOut(cause error) error {
	r.logger.Error("[session] run abandoned after %v", r.timeout)
	return extractor.NewTimeoutError(cause)
}
