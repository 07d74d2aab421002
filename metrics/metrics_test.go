package metrics

import (
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollector(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := New(reg)

	c.ObserveAttempt(AttemptTransient)
	c.ObserveRetry()
	c.ObserveAttempt(AttemptSuccess)
	c.ObserveUpload(OutcomeSuccess, 1024, 250*time.Millisecond)
	c.ObserveAttempt(AttemptPermanent)
	c.ObserveUpload("TransportError.Permanent", 2048, time.Second)

	assert.Equal(t, 1.0, testutil.ToFloat64(c.attempts.WithLabelValues(AttemptTransient)))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.attempts.WithLabelValues(AttemptSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.attempts.WithLabelValues(AttemptPermanent)))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.retries))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.uploads.WithLabelValues(OutcomeSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.uploads.WithLabelValues("TransportError.Permanent")))
	assert.Equal(t, 1024.0, testutil.ToFloat64(c.bytes))

	expected := `
# HELP s3upload_uploaded_bytes_total Total payload bytes of successful uploads
# TYPE s3upload_uploaded_bytes_total counter
s3upload_uploaded_bytes_total 1024
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "s3upload_uploaded_bytes_total"))
	assert.Equal(t, 2, testutil.CollectAndCount(c.duration))
}

func TestCollector_Nil(t *testing.T) {
	var c *Collector
	assert.NotPanics(t, func() {
		c.ObserveAttempt(AttemptSuccess)
		c.ObserveRetry()
		c.ObserveUpload(OutcomeSuccess, 1, time.Millisecond)
	})
}

func TestNew_Unregistered(t *testing.T) {
	a := New(nil)
	b := New(nil)
	a.ObserveRetry()
	assert.Equal(t, 1.0, testutil.ToFloat64(a.retries))
	assert.Equal(t, 0.0, testutil.ToFloat64(b.retries))
}
