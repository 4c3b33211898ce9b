package redis

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/pscheid92/timecapsule/internal/metrics"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
)

func TestMetricsHook_CountsByStatus(t *testing.T) {
	hook := &MetricsHook{}
	ctx := context.Background()

	success := testutil.ToFloat64(metrics.RedisOpsTotal.WithLabelValues("get", "success"))
	failure := testutil.ToFloat64(metrics.RedisOpsTotal.WithLabelValues("get", "error"))

	_ = hook.ProcessHook(failingProcess(nil))(ctx, goredis.NewStringCmd(ctx, "get", "a"))
	_ = hook.ProcessHook(failingProcess(goredis.Nil))(ctx, goredis.NewStringCmd(ctx, "get", "b"))
	_ = hook.ProcessHook(failingProcess(errors.New("boom")))(ctx, goredis.NewStringCmd(ctx, "get", "c"))

	assert.Equal(t, success+2, testutil.ToFloat64(metrics.RedisOpsTotal.WithLabelValues("get", "success")))
	assert.Equal(t, failure+1, testutil.ToFloat64(metrics.RedisOpsTotal.WithLabelValues("get", "error")))
}

func TestMetricsHook_PipelineCountedOnce(t *testing.T) {
	hook := &MetricsHook{}
	before := testutil.ToFloat64(metrics.RedisOpsTotal.WithLabelValues("pipeline", "success"))

	err := hook.ProcessPipelineHook(func(context.Context, []goredis.Cmder) error { return nil })(context.Background(), nil)

	assert.NoError(t, err)
	assert.Equal(t, before+1, testutil.ToFloat64(metrics.RedisOpsTotal.WithLabelValues("pipeline", "success")))
}
