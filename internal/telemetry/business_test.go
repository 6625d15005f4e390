package telemetry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNewBusinessTracer(t *testing.T) {
	bt := NewBusinessTracer()
	require.NotNil(t, bt)
	require.NotNil(t, bt.tracer)
}

func TestTraceHistoryRequest(t *testing.T) {
	bt := NewBusinessTracer()

	ctx, span := bt.TraceHistoryRequest(context.Background(), "close", "daily", 2, 30)
	require.NotNil(t, ctx)
	require.NotNil(t, span)

	bt.RecordWindowMetrics(span, WindowMetrics{
		CacheHit:     true,
		PrefetchRows: 40,
		Corrections:  1,
		AssemblyTime: 3 * time.Millisecond,
	})
	span.End()
}

func TestTraceReconciliation(t *testing.T) {
	bt := NewBusinessTracer()

	ctx, span := bt.TraceReconciliation(context.Background(), "pricing", true)
	require.NotNil(t, ctx)
	require.NotNil(t, span)

	bt.RecordReconcileMetrics(span, ReconcileMetrics{
		BaselineRecords: 3,
		NovelDeltas:     1,
		Retroactive:     1,
		Overwrites:      1,
		MergeTime:       time.Millisecond,
	})
	span.End()
}

func TestTraceFeedFetch(t *testing.T) {
	bt := NewBusinessTracer()

	_, span := bt.TraceFeedFetch(context.Background(), "pricing", "deltas")
	bt.RecordFeedResult(span, 0, errors.New("connection refused"))
	span.End()

	_, span = bt.TraceFeedFetch(context.Background(), "pricing", "baseline")
	bt.RecordFeedResult(span, 12, nil)
	span.End()
}
