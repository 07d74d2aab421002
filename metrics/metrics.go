// Package metrics exposes Prometheus instrumentation for upload clients.
//
// A nil *Collector is valid and records nothing.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "s3upload"

// Attempt results.
const (
	AttemptSuccess   = "success"
	AttemptTransient = "transient"
	AttemptPermanent = "permanent"
	AttemptCancelled = "cancelled"
)

// OutcomeSuccess labels uploads that returned no error. Failed uploads are
// labelled with their error kind.
const OutcomeSuccess = "success"

// Collector holds the upload metrics of one or more clients.
type Collector struct {
	uploads  *prometheus.CounterVec
	attempts *prometheus.CounterVec
	retries  prometheus.Counter
	bytes    prometheus.Counter
	duration *prometheus.HistogramVec
}

// New creates a Collector and registers it with reg.
// If reg is nil, the metrics are created but not registered.
func New(reg prometheus.Registerer) *Collector {
	factory := promauto.With(reg)

	return &Collector{
		uploads: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "uploads_total",
				Help:      "Total PutObject calls by outcome",
			},
			[]string{"outcome"},
		),
		attempts: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "attempts_total",
				Help:      "Total transport attempts by result",
			},
			[]string{"result"},
		),
		retries: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "retries_total",
				Help:      "Total attempts made after a transient failure",
			},
		),
		bytes: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "uploaded_bytes_total",
				Help:      "Total payload bytes of successful uploads",
			},
		),
		duration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "upload_duration_seconds",
				Help:      "Wall time of PutObject calls, backoff included",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"outcome"},
		),
	}
}

// ObserveAttempt records the result of one transport attempt.
func (c *Collector) ObserveAttempt(result string) {
	if c == nil {
		return
	}
	c.attempts.WithLabelValues(result).Inc()
}

// ObserveRetry records that an attempt is about to follow a transient failure.
func (c *Collector) ObserveRetry() {
	if c == nil {
		return
	}
	c.retries.Inc()
}

// ObserveUpload records a finished PutObject call. size is only counted for
// successful uploads.
func (c *Collector) ObserveUpload(outcome string, size int64, d time.Duration) {
	if c == nil {
		return
	}
	c.uploads.WithLabelValues(outcome).Inc()
	c.duration.WithLabelValues(outcome).Observe(d.Seconds())
	if outcome == OutcomeSuccess && size > 0 {
		c.bytes.Add(float64(size))
	}
}
