package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestConnectionLifecycleUpdatesGauge(t *testing.T) {
	t.Parallel()

	c := New()
	c.ConnectionOpened()
	c.ConnectionOpened()
	require.Equal(t, float64(2), testutil.ToFloat64(c.connectionsActive))

	c.ConnectionClosed()
	require.Equal(t, float64(1), testutil.ToFloat64(c.connectionsActive))
}

func TestCommandHandledObservesDuration(t *testing.T) {
	t.Parallel()

	c := New()
	c.CommandHandled("Parse", 5*time.Millisecond)

	count := testutil.CollectAndCount(c.commandDuration)
	require.Equal(t, 1, count)
}

func TestErrorSentIncrementsByCode(t *testing.T) {
	t.Parallel()

	c := New()
	c.ErrorSent("42601")
	c.ErrorSent("42601")

	require.Equal(t, float64(2), testutil.ToFloat64(c.errorsTotal.WithLabelValues("42601")))
}

func TestAuthFailedIncrementsCounter(t *testing.T) {
	t.Parallel()

	c := New()
	c.AuthFailed()
	require.Equal(t, float64(1), testutil.ToFloat64(c.authFailuresTotal))
}
