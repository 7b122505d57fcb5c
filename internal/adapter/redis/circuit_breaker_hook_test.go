package redis

import (
	"context"
	"errors"
	"testing"

	"github.com/failsafe-go/failsafe-go/circuitbreaker"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/pscheid92/pollbot/internal/adapter/metrics"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCircuitBreakerHook_OpensAfterFailures(t *testing.T) {
	m := metrics.NewStoreMetrics(prometheus.NewRegistry())
	hook := NewCircuitBreakerHook(m)

	calls := 0
	failing := hook.ProcessHook(func(context.Context, goredis.Cmder) error {
		calls++
		return errors.New("connection refused")
	})

	ctx := context.Background()
	for i := 0; i < 5; i++ {
		_ = failing(ctx, goredis.NewStatusCmd(ctx, "ping"))
	}
	require.Equal(t, circuitbreaker.OpenState, hook.State())

	err := failing(ctx, goredis.NewStatusCmd(ctx, "ping"))
	assert.ErrorIs(t, err, circuitbreaker.ErrOpen)
	assert.Equal(t, 5, calls, "open breaker must not reach redis")
	assert.Equal(t, 2.0, testutil.ToFloat64(m.CircuitState.WithLabelValues(backend)))
}

func TestCircuitBreakerHook_NilIsNotAFailure(t *testing.T) {
	hook := NewCircuitBreakerHook(nil)
	missing := hook.ProcessHook(func(context.Context, goredis.Cmder) error {
		return goredis.Nil
	})

	ctx := context.Background()
	for i := 0; i < 10; i++ {
		err := missing(ctx, goredis.NewStringCmd(ctx, "get", "k"))
		assert.ErrorIs(t, err, goredis.Nil)
	}
	assert.Equal(t, circuitbreaker.ClosedState, hook.State())
}

func TestMetricsHook_RecordsCommands(t *testing.T) {
	m := metrics.NewStoreMetrics(prometheus.NewRegistry())
	hook := NewMetricsHook(m)

	process := hook.ProcessHook(func(context.Context, goredis.Cmder) error { return nil })
	ctx := context.Background()
	require.NoError(t, process(ctx, goredis.NewStatusCmd(ctx, "ping")))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Operations.WithLabelValues(backend, "ping", "success")))
}
