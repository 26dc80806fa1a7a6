package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_RegistersAll(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.Passages.WithLabelValues("created").Inc()
	m.Matches.WithLabelValues("matched").Inc()
	m.Violations.WithLabelValues("speeding").Inc()
	m.AlertsCreated.Add(2)
	m.AlertsResolved.Inc()
	m.SMSInbound.WithLabelValues("accepted").Inc()

	families, err := reg.Gather()
	require.NoError(t, err)
	assert.Len(t, families, 6)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.AlertsCreated))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Passages.WithLabelValues("created")))
}

func TestNew_DoubleRegistrationPanics(t *testing.T) {
	reg := prometheus.NewRegistry()
	New(reg)
	assert.Panics(t, func() { New(reg) })
}
