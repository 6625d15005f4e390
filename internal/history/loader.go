package history

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel/codes"

	"github.com/irfndi/histwindow-go/internal/adjust"
	"github.com/irfndi/histwindow-go/internal/cache"
	"github.com/irfndi/histwindow-go/internal/calendar"
	"github.com/irfndi/histwindow-go/internal/models"
	"github.com/irfndi/histwindow-go/internal/telemetry"
	"github.com/irfndi/histwindow-go/internal/window"
)

const (
	// DailyPrefetchLength amortizes cache rebuilds across roughly two
	// months of daily queries for the same key.
	DailyPrefetchLength = 40

	// MinutePrefetchLength covers five regular sessions of minute bars.
	MinutePrefetchLength = 5 * 390
)

// BarReader supplies raw bar arrays for a date range. One array per
// requested field; rows are the calendar sessions in [start, end],
// columns follow the given sid order. A requested date without source
// coverage is a data-unavailable error.
type BarReader interface {
	LoadRawArrays(ctx context.Context, fields []models.Field, start, end time.Time, sids []int64) ([][][]float64, error)
}

// AdjustmentReader supplies corporate action events for one asset,
// ascending by effective date.
type AdjustmentReader interface {
	AdjustmentsForSid(ctx context.Context, kind models.AdjustmentKind, sid int64) ([]models.AdjustmentEvent, error)
}

// Loader serves sliding, adjustment-corrected history windows out of an
// expiring per-(asset-set, field, window-size) cache of prefetched
// cursors. One Loader per bar frequency; daily and minute loaders differ
// only in calendar and prefetch horizon.
type Loader struct {
	frequency   string
	cal         *calendar.Calendar
	bars        BarReader
	adjustments AdjustmentReader
	blocks      *cache.Expiring[*window.SlidingWindow]
	analytics   *cache.Analytics
	prefetch    int
	logger      *slog.Logger
	tracer      *telemetry.BusinessTracer
}

// NewDailyLoader creates a loader over daily sessions. adjustments and
// analytics may be nil.
func NewDailyLoader(cal *calendar.Calendar, bars BarReader, adjustments AdjustmentReader, analytics *cache.Analytics, logger *slog.Logger) *Loader {
	return newLoader("daily", cal, bars, adjustments, analytics, DailyPrefetchLength, logger)
}

// NewMinuteLoader creates a loader over minute bars.
func NewMinuteLoader(cal *calendar.Calendar, bars BarReader, adjustments AdjustmentReader, analytics *cache.Analytics, logger *slog.Logger) *Loader {
	return newLoader("minute", cal, bars, adjustments, analytics, MinutePrefetchLength, logger)
}

// NewLoader creates a loader with an explicit prefetch horizon in place
// of the frequency default.
func NewLoader(frequency string, cal *calendar.Calendar, bars BarReader, adjustments AdjustmentReader, analytics *cache.Analytics, prefetch int, logger *slog.Logger) *Loader {
	return newLoader(frequency, cal, bars, adjustments, analytics, prefetch, logger)
}

func newLoader(frequency string, cal *calendar.Calendar, bars BarReader, adjustments AdjustmentReader, analytics *cache.Analytics, prefetch int, logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{
		frequency:   frequency,
		cal:         cal,
		bars:        bars,
		adjustments: adjustments,
		blocks:      cache.NewExpiring[*window.SlidingWindow](),
		analytics:   analytics,
		prefetch:    prefetch,
		logger:      logger,
		tracer:      telemetry.NewBusinessTracer(),
	}
}

// History returns a len(dates) x len(sids) window of the field with every
// correction effective at or before dates[len-1] applied, values rounded
// to 3 decimals. dates must be a contiguous ascending run of calendar
// sessions; sessions before the earliest available source date come back
// as NaN for price fields and 0 for volume.
//
// Equivalent asset sets share a cached window regardless of order, so
// columns follow the sid order of the request that built it.
func (l *Loader) History(ctx context.Context, sids []int64, dates []time.Time, field models.Field) ([][]float64, error) {
	ctx, span := l.tracer.TraceHistoryRequest(ctx, field.String(), l.frequency, len(sids), len(dates))
	defer span.End()

	if err := l.validate(sids, dates, field); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	started := time.Now()
	block, stats, err := l.ensureSlidingWindow(ctx, sids, dates, field)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	l.tracer.RecordWindowMetrics(span, telemetry.WindowMetrics{
		CacheHit:     stats.cacheHit,
		PrefetchRows: stats.prefetchRows,
		Corrections:  stats.corrections,
		AssemblyTime: time.Since(started),
	})
	out, err := block.Get(l.endIndex(dates))
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	return out, nil
}

func (l *Loader) validate(sids []int64, dates []time.Time, field models.Field) error {
	if len(sids) == 0 {
		return ErrEmptyAssets
	}
	if len(dates) == 0 {
		return ErrEmptyDates
	}
	if _, err := models.ParseField(field.String()); err != nil {
		return fmt.Errorf("%w: %q", ErrBadField, field)
	}
	return l.validateDates(dates)
}

// validateDates checks the contiguity precondition. Dates preceding the
// earliest known session cannot be checked against the session list and
// only need to ascend; from the first covered date on, every date must be
// the next session.
func (l *Loader) validateDates(dates []time.Time) error {
	first := l.cal.FirstSession()
	prevLoc := -1
	for i, d := range dates {
		if i > 0 && !d.After(dates[i-1]) {
			return ErrNonContiguousDates
		}
		if d.Before(first) {
			continue
		}
		loc, err := l.cal.GetLoc(d)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrNonContiguousDates, err)
		}
		if prevLoc >= 0 && loc != prevLoc+1 {
			return ErrNonContiguousDates
		}
		prevLoc = loc
	}
	return nil
}

// endIndex maps the request end date to its calendar index; every date
// before the earliest session collapses to the virtual index -1, which is
// where a fully-filled window's frontier sits.
func (l *Loader) endIndex(dates []time.Time) int {
	end := dates[len(dates)-1]
	if end.Before(l.cal.FirstSession()) {
		return -1
	}
	// Validated as a session already.
	ix, _ := l.cal.GetLoc(end)
	return ix
}

// cacheKey builds a reproducible key from the deduplicated sorted sids,
// the field, and the window size. Equivalent but differently-ordered
// asset collections share an entry.
func cacheKey(sids []int64, field models.Field, size int) string {
	sorted := append([]int64(nil), sids...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	var sb strings.Builder
	var prev int64
	for i, sid := range sorted {
		if i > 0 && sid == prev {
			continue
		}
		if sb.Len() > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(strconv.FormatInt(sid, 10))
		prev = sid
	}
	return fmt.Sprintf("%s|%s|%d", sb.String(), field, size)
}

// buildStats captures how a window lookup was satisfied.
type buildStats struct {
	cacheHit     bool
	prefetchRows int
	corrections  int
}

func (l *Loader) ensureSlidingWindow(ctx context.Context, sids []int64, dates []time.Time, field models.Field) (*window.SlidingWindow, buildStats, error) {
	size := len(dates)
	key := cacheKey(sids, field, size)
	category := fmt.Sprintf("%s/%s", field, l.frequency)

	current := dates[size-1]
	block, err := l.blocks.Get(key, current)
	switch {
	case err == nil:
		l.recordLookup(category, nil)
		return block, buildStats{cacheHit: true}, nil
	case err == cache.ErrMissing, err == cache.ErrExpired:
		l.recordLookup(category, err)
	default:
		return nil, buildStats{}, err
	}

	block, stats, expiry, err := l.buildSlidingWindow(ctx, sids, dates, field)
	if err != nil {
		return nil, buildStats{}, err
	}
	l.blocks.Put(key, block, expiry)
	l.logger.Debug("rebuilt history window",
		"key", key,
		"frequency", l.frequency,
		"expiry", expiry,
	)
	return block, stats, nil
}

func (l *Loader) recordLookup(category string, err error) {
	if l.analytics == nil {
		return
	}
	switch err {
	case nil:
		l.analytics.RecordHit(category)
	case cache.ErrExpired:
		l.analytics.RecordExpired(category)
	default:
		l.analytics.RecordMiss(category)
	}
}

func (l *Loader) buildSlidingWindow(ctx context.Context, sids []int64, dates []time.Time, field models.Field) (*window.SlidingWindow, buildStats, time.Time, error) {
	size := len(dates)
	start, end := dates[0], dates[size-1]
	first := l.cal.FirstSession()

	// Requests reaching before the earliest source session get a leading
	// fill region and a negative index offset of the same length.
	calStart := 0
	fillRows := 0
	endIx := -1
	if start.Before(first) {
		for _, d := range dates {
			if d.Before(first) {
				fillRows++
			}
		}
		if !end.Before(first) {
			endIx, _ = l.cal.GetLoc(end)
		}
	} else {
		calStart, _ = l.cal.GetLoc(start)
		endIx, _ = l.cal.GetLoc(end)
	}
	offset := -fillRows

	prefetchEndIx := max(endIx, 0) + l.prefetch
	if last := l.cal.Len() - 1; prefetchEndIx > last {
		prefetchEndIx = last
	}
	prefetchEnd := l.cal.At(prefetchEndIx)
	fetchStart := l.cal.At(calStart)

	raw, err := l.bars.LoadRawArrays(ctx, []models.Field{field}, fetchStart, prefetchEnd, sids)
	if err != nil {
		return nil, buildStats{}, time.Time{}, err
	}
	buffer := raw[0]

	schedule := adjust.NewSchedule()
	if l.adjustments != nil {
		schedule, err = l.correctionsInRange(ctx, sids, fetchStart, prefetchEnd, calStart, fillRows, field)
		if err != nil {
			return nil, buildStats{}, time.Time{}, err
		}
	}

	if fillRows > 0 {
		buffer = prependFill(buffer, fillRows, len(sids), field)
	}

	stats := buildStats{prefetchRows: len(buffer)}
	for _, trigger := range schedule.Triggers() {
		stats.corrections += len(schedule[trigger])
	}

	cursor, err := window.NewCursor(buffer, schedule, size)
	if err != nil {
		return nil, buildStats{}, time.Time{}, err
	}
	block, err := window.NewSlidingWindow(cursor, calStart, offset)
	if err != nil {
		return nil, buildStats{}, time.Time{}, err
	}
	return block, stats, prefetchEnd, nil
}

// correctionsInRange builds the correction schedule for the prefetched
// region. Every correction back-adjusts rows [0, trigger-1] for one asset
// column: the effective date is the session the new ratio applies from,
// and all earlier data is restated in proportion. Events dated exactly at
// the region start are already reflected going forward and are skipped.
func (l *Loader) correctionsInRange(ctx context.Context, sids []int64, start, end time.Time, calStart, fillRows int, field models.Field) (adjust.Schedule, error) {
	schedule := adjust.NewSchedule()
	for col, sid := range sids {
		for _, kind := range models.AdjustmentKinds {
			if kind != models.KindSplit && !field.IsPrice() {
				continue
			}
			events, err := l.adjustments.AdjustmentsForSid(ctx, kind, sid)
			if err != nil {
				return nil, err
			}
			for _, ev := range events {
				if !ev.EffectiveDate.After(start) || ev.EffectiveDate.After(end) {
					continue
				}
				loc, err := l.cal.GetLoc(ev.EffectiveDate)
				if err != nil {
					return nil, fmt.Errorf("history: adjustment for sid %d: %w", sid, err)
				}
				ratio := ev.Ratio.InexactFloat64()
				if kind == models.KindSplit && !field.IsPrice() {
					// A 2-for-1 split halves prices but doubles
					// historical share counts.
					ratio = 1.0 / ratio
				}
				trigger := loc - calStart + fillRows
				schedule.Add(trigger, adjust.NewMultiply(0, trigger-1, col, col, ratio))
			}
		}
	}
	return schedule, nil
}

func prependFill(buffer [][]float64, fillRows, cols int, field models.Field) [][]float64 {
	fill := 0.0
	if field.IsPrice() {
		fill = math.NaN()
	}
	out := make([][]float64, 0, fillRows+len(buffer))
	for r := 0; r < fillRows; r++ {
		row := make([]float64, cols)
		for c := range row {
			row[c] = fill
		}
		out = append(out, row)
	}
	return append(out, buffer...)
}
