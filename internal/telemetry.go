package internal

import (
	"errors"
	"time"

	"github.com/lychee-technology/classifieds"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics groups the prometheus collectors of the listing core. A nil
// *Metrics records nothing.
type Metrics struct {
	mutations          *prometheus.CounterVec
	mutationDuration   *prometheus.HistogramVec
	validationFailures *prometheus.CounterVec
	blobDeletes        *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them with reg when reg
// is not nil.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		mutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "classifieds",
			Name:      "mutations_total",
			Help:      "Listing, category and comment mutations by operation and outcome.",
		}, []string{"operation", "outcome"}),
		mutationDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "classifieds",
			Name:      "mutation_duration_seconds",
			Help:      "Duration of mutations by operation.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
		validationFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "classifieds",
			Name:      "attribute_validation_failures_total",
			Help:      "Rejected attribute submissions by error code.",
		}, []string{"code"}),
		blobDeletes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "classifieds",
			Name:      "blob_deletes_total",
			Help:      "Post-commit image deletions by outcome.",
		}, []string{"outcome"}),
	}

	if reg != nil {
		var err error
		if m.mutations, err = registerOrReuse(reg, m.mutations); err != nil {
			return nil, err
		}
		if m.mutationDuration, err = registerOrReuse(reg, m.mutationDuration); err != nil {
			return nil, err
		}
		if m.validationFailures, err = registerOrReuse(reg, m.validationFailures); err != nil {
			return nil, err
		}
		if m.blobDeletes, err = registerOrReuse(reg, m.blobDeletes); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// registerOrReuse registers c, or returns the collector already registered
// under the same name so several managers can share one registry.
func registerOrReuse[T prometheus.Collector](reg prometheus.Registerer, c T) (T, error) {
	if err := reg.Register(c); err != nil {
		var already prometheus.AlreadyRegisteredError
		if errors.As(err, &already) {
			if existing, ok := already.ExistingCollector.(T); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

// observeMutation records the outcome of a mutation started at start.
func (m *Metrics) observeMutation(operation string, start time.Time, err error) {
	if m == nil {
		return
	}
	m.mutationDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
	m.mutations.WithLabelValues(operation, outcomeOf(err)).Inc()
	if classifieds.IsValidation(err) {
		m.validationFailures.WithLabelValues(classifieds.ErrorCodeOf(err)).Inc()
	}
}

func (m *Metrics) observeBlobDelete(outcome string) {
	if m == nil {
		return
	}
	m.blobDeletes.WithLabelValues(outcome).Inc()
}

func outcomeOf(err error) string {
	if err == nil {
		return "ok"
	}
	return string(classifieds.ErrorTypeOf(err))
}
