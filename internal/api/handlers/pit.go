package handlers

import (
	"context"
	"math"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/irfndi/histwindow-go/internal/adjust"
	"github.com/irfndi/histwindow-go/internal/calendar"
	"github.com/irfndi/histwindow-go/internal/feed"
	"github.com/irfndi/histwindow-go/internal/pit"
	"github.com/irfndi/histwindow-go/internal/telemetry"
)

// seedLookback bounds the extra knowledge-date range fetched so forward
// fill has a value at the start of the requested window.
const seedLookback = 90 * 24 * time.Hour

// TableFetcher is the feed surface the handler needs.
type TableFetcher interface {
	GetBaseline(ctx context.Context, dataset, column string, lower, upper time.Time) (*feed.TableResponse, error)
	GetDeltas(ctx context.Context, dataset, column string, lower, upper time.Time) (*feed.TableResponse, error)
}

// PitHandler serves densified point-in-time series reconciled from the
// feed service's sparse baseline and deltas tables.
type PitHandler struct {
	fetcher  TableFetcher
	cal      *calendar.Calendar
	registry *pit.Registry
	tracer   *telemetry.BusinessTracer
}

func NewPitHandler(fetcher TableFetcher, cal *calendar.Calendar, registry *pit.Registry) *PitHandler {
	return &PitHandler{
		fetcher:  fetcher,
		cal:      cal,
		registry: registry,
		tracer:   telemetry.NewBusinessTracer(),
	}
}

// OverwritePayload is one retroactive correction in wire form.
type OverwritePayload struct {
	TriggerRow int     `json:"trigger_row"`
	FirstRow   int     `json:"first_row"`
	LastRow    int     `json:"last_row"`
	FirstCol   int     `json:"first_col"`
	LastCol    int     `json:"last_col"`
	Value      float64 `json:"value"`
}

// SeriesResponse carries one reconciled column.
type SeriesResponse struct {
	Dataset    string             `json:"dataset"`
	Column     string             `json:"column"`
	Hash       string             `json:"hash"`
	Sids       []int64            `json:"sids"`
	Dates      []time.Time        `json:"dates"`
	Series     []*float64         `json:"series,omitempty"`
	Dense      [][]*float64       `json:"dense"`
	Overwrites []OverwritePayload `json:"overwrites"`
}

// GetSeries handles GET /api/v1/datasets/:dataset/:column/series.
func (h *PitHandler) GetSeries(c *gin.Context) {
	dataset := c.Param("dataset")
	column := c.Param("column")

	sids, err := parseSids(c.Query("sids"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	start, end, err := parseRange(c, "daily")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	lo, hi := h.cal.SliceIndexer(start, end)
	if lo >= hi {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no sessions in requested range"})
		return
	}
	dates := h.cal.Sessions(lo, hi)

	ctx := c.Request.Context()
	baseline, err := h.fetchTable(ctx, dataset, "baseline", func(ctx context.Context) (*feed.TableResponse, error) {
		return h.fetcher.GetBaseline(ctx, dataset, column, start.Add(-seedLookback), end)
	})
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	deltas, err := h.fetchTable(ctx, dataset, "deltas", func(ctx context.Context) (*feed.TableResponse, error) {
		return h.fetcher.GetDeltas(ctx, dataset, column, start, end)
	})
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}

	hash, _ := h.registry.Ensure(pit.Dataset{
		Name:    dataset,
		Columns: []string{column},
		HasSids: baseline.Table.HasSids,
	})

	records := trimToSeed(baseline.Table.Records, start, baseline.Table.HasSids)

	_, span := h.tracer.TraceReconciliation(ctx, dataset, baseline.Table.HasSids)
	merged := time.Now()
	result := pit.Reconcile(
		pit.Table{Records: records, HasSids: baseline.Table.HasSids},
		pit.Table{Records: deltas.Table.Records, HasSids: deltas.Table.HasSids},
		dates, sids,
	)
	overwrites := overwritePayloads(result.Overwrites)
	h.tracer.RecordReconcileMetrics(span, telemetry.ReconcileMetrics{
		BaselineRecords: result.BaselineRecords,
		NovelDeltas:     result.NovelDeltas,
		Retroactive:     result.Retroactive,
		Overwrites:      len(overwrites),
		MergeTime:       time.Since(merged),
	})
	span.End()

	resp := SeriesResponse{
		Dataset:    dataset,
		Column:     column,
		Hash:       hash,
		Sids:       sids,
		Dates:      dates,
		Dense:      nullableMatrix(result.Dense),
		Overwrites: overwrites,
	}
	if result.Series != nil {
		resp.Series = nullableRow(result.Series)
	}
	c.JSON(http.StatusOK, resp)
}

// fetchTable wraps one feed call in a span recording the row count.
func (h *PitHandler) fetchTable(ctx context.Context, dataset, kind string, fetch func(context.Context) (*feed.TableResponse, error)) (*feed.TableResponse, error) {
	ctx, span := h.tracer.TraceFeedFetch(ctx, dataset, kind)
	defer span.End()
	resp, err := fetch(ctx)
	records := 0
	if resp != nil {
		records = len(resp.Table.Records)
	}
	h.tracer.RecordFeedResult(span, records, err)
	return resp, err
}

// trimToSeed drops lookback records older than needed to seed forward
// fill at start: everything before the latest knowledge date that still
// covers every sid at start.
func trimToSeed(records []pit.Record, start time.Time, hasSids bool) []pit.Record {
	bound, ok := pit.FillQueryLowerBound(records, start, hasSids)
	if !ok {
		return records
	}
	out := make([]pit.Record, 0, len(records))
	for _, r := range records {
		if !r.Knowledge.Before(bound) {
			out = append(out, r)
		}
	}
	return out
}

func overwritePayloads(schedule adjust.Schedule) []OverwritePayload {
	out := make([]OverwritePayload, 0)
	for _, trigger := range schedule.Triggers() {
		for _, corr := range schedule[trigger] {
			out = append(out, OverwritePayload{
				TriggerRow: trigger,
				FirstRow:   corr.FirstRow,
				LastRow:    corr.LastRow,
				FirstCol:   corr.FirstCol,
				LastCol:    corr.LastCol,
				Value:      corr.Value,
			})
		}
	}
	return out
}

func nullableRow(values []float64) []*float64 {
	out := make([]*float64, len(values))
	for i := range values {
		if !math.IsNaN(values[i]) {
			v := values[i]
			out[i] = &v
		}
	}
	return out
}
