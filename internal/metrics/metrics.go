// Package metrics records s3kit operation outcomes with Prometheus collectors.
//
// A nil *Recorder is valid and records nothing, so callers never need to check
// whether metrics were configured.
package metrics

import (
	stderrors "errors"
	"fmt"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/input-output-hk/catalyst-forge-libs/aws/s3kit/errors"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3kit/internal/operations/list"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3kit/internal/runner"
)

const namespace = "s3kit"

// OutcomeSuccess labels operations that returned no error.
const OutcomeSuccess = "success"

var (
	_ runner.Observer   = (*Recorder)(nil)
	_ list.PageRecorder = (*Recorder)(nil)
)

// Recorder owns the s3kit collectors.
type Recorder struct {
	operations *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	inflight   prometheus.Gauge
	pages      prometheus.Counter
}

// New creates the collectors and registers them with reg.
// Collectors already registered by another Recorder on the same registry are reused.
// A nil reg returns a nil Recorder.
func New(reg prometheus.Registerer) (*Recorder, error) {
	if reg == nil {
		return nil, nil
	}

	r := &Recorder{
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "operations_total",
			Help:      "Storage operations by operation and outcome.",
		}, []string{"op", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "operation_duration_seconds",
			Help:      "Storage operation latency.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 12),
		}, []string{"op"}),
		inflight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "batch_inflight",
			Help:      "Batch worker calls currently running.",
		}),
		pages: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "list_pages_total",
			Help:      "Listing pages fetched.",
		}),
	}

	var err error
	if r.operations, err = register(reg, r.operations); err != nil {
		return nil, err
	}
	if r.duration, err = register(reg, r.duration); err != nil {
		return nil, err
	}
	if r.inflight, err = register(reg, r.inflight); err != nil {
		return nil, err
	}
	if r.pages, err = register(reg, r.pages); err != nil {
		return nil, err
	}

	return r, nil
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if stderrors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, fmt.Errorf("register metrics: %w", err)
	}
	return c, nil
}

// Outcome returns the label value recorded for err.
func Outcome(err error) string {
	if err == nil {
		return OutcomeSuccess
	}
	return strings.ToLower(string(errors.CodeOf(err)))
}

// Observe records one finished operation.
func (r *Recorder) Observe(op string, err error, elapsed time.Duration) {
	if r == nil {
		return
	}
	r.operations.WithLabelValues(op, Outcome(err)).Inc()
	r.duration.WithLabelValues(op).Observe(elapsed.Seconds())
}

// Started implements runner.Observer.
func (r *Recorder) Started(int) {
	if r == nil {
		return
	}
	r.inflight.Inc()
}

// Finished implements runner.Observer.
func (r *Recorder) Finished(int, error, time.Duration) {
	if r == nil {
		return
	}
	r.inflight.Dec()
}

// PageFetched implements list.PageRecorder.
func (r *Recorder) PageFetched(string, int) {
	if r == nil {
		return
	}
	r.pages.Inc()
}
