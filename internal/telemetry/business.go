package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// BusinessTracer provides utilities for tracing domain operations like
// history window assembly and point-in-time reconciliation.
type BusinessTracer struct {
	tracer trace.Tracer
}

// NewBusinessTracer creates a tracer scoped to domain operations.
func NewBusinessTracer() *BusinessTracer {
	return &BusinessTracer{tracer: Tracer("histwindow/business")}
}

// TraceHistoryRequest starts a span for one adjusted history window
// request.
func (bt *BusinessTracer) TraceHistoryRequest(ctx context.Context, field string, frequency string, assets int, windowSize int) (context.Context, trace.Span) {
	ctx, span := bt.tracer.Start(ctx, "history_request", trace.WithAttributes(
		attribute.String("field", field),
		attribute.String("frequency", frequency),
		attribute.Int("assets", assets),
		attribute.Int("window_size", windowSize),
	))
	return ctx, span
}

// WindowMetrics describes how a sliding window request was satisfied.
type WindowMetrics struct {
	CacheHit     bool
	PrefetchRows int
	Corrections  int
	AssemblyTime time.Duration
}

// RecordWindowMetrics records how a window was assembled onto a span.
func (bt *BusinessTracer) RecordWindowMetrics(span trace.Span, metrics WindowMetrics) {
	span.SetAttributes(
		attribute.Bool("cache_hit", metrics.CacheHit),
		attribute.Int("prefetch_rows", metrics.PrefetchRows),
		attribute.Int("corrections", metrics.Corrections),
		attribute.Int64("assembly_time_ms", metrics.AssemblyTime.Milliseconds()),
	)
}

// TraceReconciliation starts a span for one baseline/deltas merge.
func (bt *BusinessTracer) TraceReconciliation(ctx context.Context, dataset string, hasSids bool) (context.Context, trace.Span) {
	ctx, span := bt.tracer.Start(ctx, "pit_reconcile", trace.WithAttributes(
		attribute.String("dataset", dataset),
		attribute.Bool("has_sids", hasSids),
	))
	return ctx, span
}

// ReconcileMetrics describes the outcome of a reconciliation pass.
type ReconcileMetrics struct {
	BaselineRecords int
	NovelDeltas     int
	Retroactive     int
	Overwrites      int
	MergeTime       time.Duration
}

// RecordReconcileMetrics records reconciliation counters onto a span.
func (bt *BusinessTracer) RecordReconcileMetrics(span trace.Span, metrics ReconcileMetrics) {
	span.SetAttributes(
		attribute.Int("baseline_records", metrics.BaselineRecords),
		attribute.Int("novel_deltas", metrics.NovelDeltas),
		attribute.Int("retroactive_deltas", metrics.Retroactive),
		attribute.Int("overwrites", metrics.Overwrites),
		attribute.Int64("merge_time_ms", metrics.MergeTime.Milliseconds()),
	)
}

// TraceFeedFetch starts a span for one feed service call.
func (bt *BusinessTracer) TraceFeedFetch(ctx context.Context, dataset string, kind string) (context.Context, trace.Span) {
	ctx, span := bt.tracer.Start(ctx, "feed_fetch", trace.WithAttributes(
		attribute.String("dataset", dataset),
		attribute.String("kind", kind),
	))
	return ctx, span
}

// RecordFeedResult records the outcome of a feed fetch onto a span.
func (bt *BusinessTracer) RecordFeedResult(span trace.Span, records int, err error) {
	span.SetAttributes(attribute.Int("records", records))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
}
