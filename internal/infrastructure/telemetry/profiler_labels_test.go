package telemetry_test

import (
	"context"
	"runtime/pprof"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/hubcrm/backend/internal/infrastructure/telemetry"
)

func TestWithProfilingLabels(t *testing.T) {
	long := strings.Repeat("x", 200)
	var route, entity string
	var hasEmpty bool

	telemetry.WithProfilingLabels(context.Background(), map[string]string{
		telemetry.ProfilingLabelRoute:  long,
		telemetry.ProfilingLabelEntity: "quotes",
		telemetry.ProfilingLabelMethod: "",
	}, func(ctx context.Context) {
		route, _ = pprof.Label(ctx, telemetry.ProfilingLabelRoute)
		entity, _ = pprof.Label(ctx, telemetry.ProfilingLabelEntity)
		_, hasEmpty = pprof.Label(ctx, telemetry.ProfilingLabelMethod)
	})

	assert.Len(t, route, 128)
	assert.Equal(t, "quotes", entity)
	assert.False(t, hasEmpty)

	called := false
	telemetry.WithProfilingLabels(context.Background(), nil, func(context.Context) { called = true })
	assert.True(t, called)
}
