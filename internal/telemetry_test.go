package internal

import (
	"errors"
	"testing"
	"time"

	"github.com/lychee-technology/classifieds"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsObserveMutationOutcomes(t *testing.T) {
	m, err := NewMetrics(prometheus.NewRegistry())
	require.NoError(t, err)

	start := time.Now()
	m.observeMutation("create_listing", start, nil)
	m.observeMutation("create_listing", start, classifieds.NewMissingRequiredAttributeError("year"))
	m.observeMutation("create_listing", start, classifieds.NewStorageError("insert", errors.New("down")))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.mutations.WithLabelValues("create_listing", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.mutations.WithLabelValues("create_listing", "validation")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.mutations.WithLabelValues("create_listing", "storage")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.validationFailures.WithLabelValues(classifieds.ErrCodeMissingRequiredAttribute)))
	assert.Equal(t, 1, testutil.CollectAndCount(m.mutationDuration))
}

func TestNewMetricsToleratesReregistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	first, err := NewMetrics(reg)
	require.NoError(t, err)
	second, err := NewMetrics(reg)
	require.NoError(t, err)

	second.observeBlobDelete("ok")
	assert.Equal(t, 1.0, testutil.ToFloat64(first.blobDeletes.WithLabelValues("ok")))
}

func TestNilMetricsRecordNothing(t *testing.T) {
	var m *Metrics
	m.observeMutation("delete_listing", time.Now(), nil)
	m.observeBlobDelete("ok")
}
