// Package pit merges sparse point-in-time tables into dense,
// forward-filled arrays without introducing lookahead bias.
//
// A baseline table holds the first known values; a deltas table holds
// restatements of them. Each record carries the date a fact pertains to
// (as-of) and the date it became knowable (knowledge). A delta that
// merely changes our most recently known value folds into the baseline;
// a delta that restates history some later value already superseded
// becomes a range overwrite against the densified output, packaged in the
// same schedule shape the adjusted window cursor consumes.
package pit

import (
	"math"
	"sort"
	"time"

	"github.com/irfndi/histwindow-go/internal/adjust"
	"github.com/irfndi/histwindow-go/internal/calendar"
)

// Record is one sparse observation. Knowledge must not precede AsOf; a
// violating record is a data error upstream, not repaired here. Sid is
// meaningful only when the owning table has a sid dimension.
type Record struct {
	AsOf      time.Time `json:"asof_date"`
	Knowledge time.Time `json:"timestamp"`
	Sid       int64     `json:"sid,omitempty"`
	Value     float64   `json:"value"`
}

// Table is an ordered-by-knowledge collection of records for one column.
type Table struct {
	Records []Record `json:"records"`
	HasSids bool     `json:"has_sids"`
}

// Result is the densified output for one column: one row per requested
// calendar date, forward-filled, plus the retroactive overwrites that a
// pure forward fill cannot express.
type Result struct {
	// Series is the canonical single buffer for tables without a sid
	// dimension; nil otherwise.
	Series []float64
	// Dense is len(dates) x len(sids). For sid-less tables every column
	// is the broadcast of Series.
	Dense [][]float64
	// Overwrites is keyed by the dense row at which each correction
	// becomes knowable.
	Overwrites adjust.Schedule

	// Merge counters, for observability.
	BaselineRecords int
	NovelDeltas     int
	Retroactive     int
}

// IsNovel reports whether a delta simply becomes the new latest known
// value: at most one baseline knowledge date falls between its as-of date
// (inclusive left) and its knowledge date (inclusive right), so no other
// baseline value learned in between would have superseded it.
// baselineKnowledge must be sorted ascending.
func IsNovel(baselineKnowledge []time.Time, d Record) bool {
	return calendar.SearchRight(baselineKnowledge, d.Knowledge)-
		calendar.SearchLeft(baselineKnowledge, d.AsOf) <= 1
}

// SplitNovelDeltas folds the novel deltas into the baseline, re-sorted by
// knowledge date, and returns the retroactive remainder. Deltas without a
// real as-of date are not corrections and are dropped.
func SplitNovelDeltas(baseline, deltas []Record) (merged, retroactive []Record) {
	baselineKnowledge := make([]time.Time, 0, len(baseline))
	for _, r := range baseline {
		baselineKnowledge = append(baselineKnowledge, r.Knowledge)
	}
	sort.Slice(baselineKnowledge, func(i, j int) bool {
		return baselineKnowledge[i].Before(baselineKnowledge[j])
	})

	merged = append([]Record(nil), baseline...)
	for _, d := range deltas {
		if d.AsOf.IsZero() {
			continue
		}
		if IsNovel(baselineKnowledge, d) {
			merged = append(merged, d)
		} else {
			retroactive = append(retroactive, d)
		}
	}
	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Knowledge.Before(merged[j].Knowledge)
	})
	sort.SliceStable(retroactive, func(i, j int) bool {
		return retroactive[i].Knowledge.Before(retroactive[j].Knowledge)
	})
	return merged, retroactive
}

// OverwriteFromDates builds the overwrite for one retroactive delta. The
// rectangle runs from the dense position of asOf through the row before
// the next strictly later as-of date present in sparseAsOf, or to the end
// of the dense range when there is none. Returns false when the delta
// covers no dense rows.
func OverwriteFromDates(asOf time.Time, denseDates, sparseAsOf []time.Time, firstCol, lastCol int, value float64) (adjust.Correction, bool) {
	if asOf.IsZero() {
		return adjust.Correction{}, false
	}
	firstRow := calendar.SearchLeft(denseDates, asOf)
	var lastRow int
	if nextIdx := calendar.SearchRight(sparseAsOf, asOf); nextIdx == len(sparseAsOf) {
		lastRow = len(denseDates) - 1
	} else {
		lastRow = calendar.SearchLeft(denseDates, sparseAsOf[nextIdx]) - 1
	}
	if firstRow > lastRow {
		return adjust.Correction{}, false
	}
	return adjust.NewOverwrite(firstRow, lastRow, firstCol, lastCol, value), true
}

// Reconcile merges a sparse baseline with its deltas over the requested
// dates and sids. For sid-less tables every requested asset sees the same
// macro series; deltas for sids outside the request are ignored.
func Reconcile(baseline, deltas Table, dates []time.Time, sids []int64) *Result {
	deltaRecords := deltas.Records
	if baseline.HasSids {
		deltaRecords = filterSids(deltaRecords, sids)
	}
	merged, retroactive := SplitNovelDeltas(baseline.Records, deltaRecords)

	// Overwrite boundaries come from the as-of dates the merged sparse
	// source actually contains.
	sparseAsOf := sortedAsOfDates(merged)

	res := &Result{
		Overwrites:      adjust.NewSchedule(),
		BaselineRecords: len(baseline.Records),
		NovelDeltas:     len(merged) - len(baseline.Records),
		Retroactive:     len(retroactive),
	}
	if baseline.HasSids {
		res.Dense = densifyWithSids(merged, dates, sids)
		colOf := make(map[int64]int, len(sids))
		for i, sid := range sids {
			colOf[sid] = i
		}
		for _, d := range lastInKnowledgeDay(retroactive, dates, true) {
			col, ok := colOf[d.Sid]
			if !ok {
				continue
			}
			addOverwrite(res.Overwrites, d, dates, sparseAsOf, col, col)
		}
	} else {
		res.Series = densifyNoSids(merged, dates)
		res.Dense = broadcast(res.Series, len(sids))
		for _, d := range lastInKnowledgeDay(retroactive, dates, false) {
			addOverwrite(res.Overwrites, d, dates, sparseAsOf, 0, len(sids)-1)
		}
	}
	return res
}

func addOverwrite(s adjust.Schedule, d Record, dates, sparseAsOf []time.Time, firstCol, lastCol int) {
	trigger := calendar.SearchLeft(dates, day(d.Knowledge))
	if trigger >= len(dates) {
		return
	}
	if corr, ok := OverwriteFromDates(d.AsOf, dates, sparseAsOf, firstCol, lastCol, d.Value); ok {
		s.Add(trigger, corr)
	}
}

func filterSids(records []Record, sids []int64) []Record {
	want := make(map[int64]struct{}, len(sids))
	for _, sid := range sids {
		want[sid] = struct{}{}
	}
	out := make([]Record, 0, len(records))
	for _, r := range records {
		if _, ok := want[r.Sid]; ok {
			out = append(out, r)
		}
	}
	return out
}

func sortedAsOfDates(records []Record) []time.Time {
	out := make([]time.Time, 0, len(records))
	for _, r := range records {
		if !r.AsOf.IsZero() {
			out = append(out, r.AsOf)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out
}

func day(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// lastInKnowledgeDay keeps, per (calendar day of knowledge, sid), only the
// latest record: several restatements learned within one day collapse to
// the final one. Input must be sorted by knowledge date.
func lastInKnowledgeDay(records []Record, dates []time.Time, hasSids bool) []Record {
	type key struct {
		pos int
		sid int64
	}
	last := make(map[key]Record)
	order := make([]key, 0, len(records))
	for _, r := range records {
		pos := calendar.SearchLeft(dates, day(r.Knowledge))
		k := key{pos: pos}
		if hasSids {
			k.sid = r.Sid
		}
		if _, seen := last[k]; !seen {
			order = append(order, k)
		}
		last[k] = r
	}
	sort.Slice(order, func(i, j int) bool {
		if order[i].pos != order[j].pos {
			return order[i].pos < order[j].pos
		}
		return order[i].sid < order[j].sid
	})
	out := make([]Record, 0, len(order))
	for _, k := range order {
		out = append(out, last[k])
	}
	return out
}

// densifyWithSids groups the merged records by (calendar day of
// knowledge, sid), keeps the last value per group, reindexes to the full
// requested calendar and forward fills per column.
func densifyWithSids(merged []Record, dates []time.Time, sids []int64) [][]float64 {
	colOf := make(map[int64]int, len(sids))
	for i, sid := range sids {
		colOf[sid] = i
	}
	dense := nanMatrix(len(dates), len(sids))
	for _, r := range merged {
		pos := calendar.SearchLeft(dates, day(r.Knowledge))
		if pos >= len(dates) {
			continue
		}
		col, ok := colOf[r.Sid]
		if !ok {
			continue
		}
		dense[pos][col] = r.Value
	}
	for col := 0; col < len(sids); col++ {
		prev := math.NaN()
		for row := range dense {
			if math.IsNaN(dense[row][col]) {
				dense[row][col] = prev
			} else {
				prev = dense[row][col]
			}
		}
	}
	return dense
}

func densifyNoSids(merged []Record, dates []time.Time) []float64 {
	series := make([]float64, len(dates))
	for i := range series {
		series[i] = math.NaN()
	}
	for _, r := range merged {
		pos := calendar.SearchLeft(dates, day(r.Knowledge))
		if pos >= len(dates) {
			continue
		}
		series[pos] = r.Value
	}
	prev := math.NaN()
	for i, v := range series {
		if math.IsNaN(v) {
			series[i] = prev
		} else {
			prev = v
		}
	}
	return series
}

func broadcast(series []float64, cols int) [][]float64 {
	out := make([][]float64, len(series))
	for i, v := range series {
		row := make([]float64, cols)
		for c := range row {
			row[c] = v
		}
		out[i] = row
	}
	return out
}

func nanMatrix(rows, cols int) [][]float64 {
	out := make([][]float64, rows)
	for r := range out {
		out[r] = make([]float64, cols)
		for c := range out[r] {
			out[r][c] = math.NaN()
		}
	}
	return out
}

// FillQueryLowerBound computes the knowledge date a range query must
// reach back to so that forward fill has a seed value at lower: the most
// recent knowledge date at or before lower, taken per sid and then at its
// minimum across sids so no asset starts the range unseeded. ok is false
// when nothing was knowable at lower.
func FillQueryLowerBound(records []Record, lower time.Time, hasSids bool) (time.Time, bool) {
	if !hasSids {
		var best time.Time
		for _, r := range records {
			if !r.Knowledge.After(lower) && r.Knowledge.After(best) {
				best = r.Knowledge
			}
		}
		return best, !best.IsZero()
	}
	perSid := make(map[int64]time.Time)
	for _, r := range records {
		if r.Knowledge.After(lower) {
			continue
		}
		if r.Knowledge.After(perSid[r.Sid]) {
			perSid[r.Sid] = r.Knowledge
		}
	}
	if len(perSid) == 0 {
		return time.Time{}, false
	}
	var min time.Time
	for _, t := range perSid {
		if min.IsZero() || t.Before(min) {
			min = t
		}
	}
	return min, true
}
