// Package runner executes one worker function over an ordered list of descriptors
// with a bounded number of calls in flight.
//
// Slots are refilled as soon as a call returns, so at most K calls are running at any
// time and the next descriptor never waits for the rest of a "batch". Results are
// stored by input position. The first worker error aborts the run.
package runner

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/input-output-hk/catalyst-forge-libs/aws/s3kit/errors"
)

// DefaultConcurrency is the number of slots used when none is configured.
const DefaultConcurrency = 1

var (
	// ErrInvalidConcurrency is returned when the concurrency is below one.
	ErrInvalidConcurrency = fmt.Errorf("runner: concurrency must be at least 1: %w", errors.ErrInvalidInput)

	// ErrNilWorker is returned when no worker function is given.
	ErrNilWorker = fmt.Errorf("runner: worker cannot be nil: %w", errors.ErrInvalidInput)
)

// Worker processes a single descriptor.
type Worker[D, R any] func(ctx context.Context, descriptor D) (R, error)

// Observer is notified when a slot is taken and released.
// Calls arrive from multiple goroutines.
type Observer interface {
	Started(index int)
	Finished(index int, err error, elapsed time.Duration)
}

type config struct {
	concurrency int
	observer    Observer
	logger      zerolog.Logger
	name        string
}

// Option configures a run.
type Option func(*config)

// WithConcurrency sets the maximum number of worker calls in flight.
func WithConcurrency(n int) Option {
	return func(c *config) {
		c.concurrency = n
	}
}

// WithObserver registers an observer for slot usage.
func WithObserver(o Observer) Option {
	return func(c *config) {
		c.observer = o
	}
}

// WithLogger sets the logger used for run level events.
func WithLogger(l zerolog.Logger) Option {
	return func(c *config) {
		c.logger = l
	}
}

// WithName labels the run in log output.
func WithName(name string) Option {
	return func(c *config) {
		c.name = name
	}
}

// Run calls worker once per descriptor with at most the configured number of calls in
// flight and returns the results in input order.
//
// An empty descriptor list returns an empty slice without calling the worker. When a
// worker fails, no further descriptors are started, calls still in flight see their
// context cancelled, and Run returns a *errors.BatchError for the failing index once
// they have returned. Partial results are never returned.
func Run[D, R any](ctx context.Context, descriptors []D, worker Worker[D, R], opts ...Option) ([]R, error) {
	cfg := config{
		concurrency: DefaultConcurrency,
		logger:      zerolog.Nop(),
		name:        "batch",
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	if cfg.concurrency < 1 {
		return nil, ErrInvalidConcurrency
	}
	if worker == nil {
		return nil, ErrNilWorker
	}

	results := make([]R, len(descriptors))
	if len(descriptors) == 0 {
		return results, nil
	}

	start := time.Now()
	cfg.logger.Debug().
		Str("run", cfg.name).
		Int("items", len(descriptors)).
		Int("concurrency", cfg.concurrency).
		Msg("starting batch")

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.concurrency)

	for i := range descriptors {
		// Stop scheduling once a failure or cancellation has been observed.
		if gctx.Err() != nil {
			break
		}

		g.Go(func() error {
			// The slot may have been granted after another call failed.
			if err := gctx.Err(); err != nil {
				return err
			}

			if cfg.observer != nil {
				cfg.observer.Started(i)
			}
			callStart := time.Now()

			result, err := worker(gctx, descriptors[i])

			if cfg.observer != nil {
				cfg.observer.Finished(i, err, time.Since(callStart))
			}
			if err != nil {
				return &errors.BatchError{Index: i, Err: err}
			}

			results[i] = result
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		var be *errors.BatchError
		if errors.As(err, &be) {
			cfg.logger.Warn().
				Err(be.Err).
				Str("run", cfg.name).
				Int("index", be.Index).
				Dur("duration", time.Since(start)).
				Msg("batch aborted")
		}
		return nil, err
	}

	// A cancelled parent context can stop scheduling without any call failing.
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	cfg.logger.Debug().
		Str("run", cfg.name).
		Int("items", len(descriptors)).
		Dur("duration", time.Since(start)).
		Msg("batch complete")

	return results, nil
}
