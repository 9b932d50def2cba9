package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestStatusClass(t *testing.T) {
	t.Parallel()

	require.Equal(t, "2xx", StatusClass(200))
	require.Equal(t, "4xx", StatusClass(401))
	require.Equal(t, "5xx", StatusClass(503))
	require.Equal(t, "error", StatusClass(0))
}

func TestNew_RegistersInGivenRegistry(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	m := New(reg)

	m.Refreshes.WithLabelValues(RefreshRotated).Inc()
	m.AuthRetries.Inc()
	m.BackendRequests.WithLabelValues("/auth/me", "2xx").Add(2)

	require.InDelta(t, 1, testutil.ToFloat64(m.Refreshes.WithLabelValues(RefreshRotated)), 0)
	require.InDelta(t, 1, testutil.ToFloat64(m.AuthRetries), 0)
	require.InDelta(t, 2, testutil.ToFloat64(m.BackendRequests.WithLabelValues("/auth/me", "2xx")), 0)

	// Повторная регистрация в том же реестре — паника promauto.
	require.Panics(t, func() { New(reg) })
}
