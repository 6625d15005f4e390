package pit

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/irfndi/histwindow-go/internal/adjust"
	"github.com/irfndi/histwindow-go/internal/window"
)

func jan(day int) time.Time {
	return time.Date(2014, time.January, day, 0, 0, 0, 0, time.UTC)
}

// Mon Jan 6 through Fri Jan 10, 2014.
func janWeek() []time.Time {
	return []time.Time{jan(6), jan(7), jan(8), jan(9), jan(10)}
}

func TestIsNovel(t *testing.T) {
	knowledge := []time.Time{jan(6), jan(7), jan(8)}

	tests := []struct {
		name  string
		delta Record
		novel bool
	}{
		{
			name:  "two values learned in between",
			delta: Record{AsOf: jan(6), Knowledge: jan(9)},
			novel: false,
		},
		{
			name:  "latest value restated next day",
			delta: Record{AsOf: jan(8), Knowledge: jan(9)},
			novel: true,
		},
		{
			name:  "same day restatement",
			delta: Record{AsOf: jan(8), Knowledge: jan(8)},
			novel: true,
		},
		{
			name:  "first value restated much later",
			delta: Record{AsOf: jan(6), Knowledge: jan(10)},
			novel: false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.novel, IsNovel(knowledge, tt.delta))
		})
	}
}

func TestSplitNovelDeltas(t *testing.T) {
	baseline := []Record{
		{AsOf: jan(4), Knowledge: jan(6), Value: 0},
		{AsOf: jan(5), Knowledge: jan(7), Value: 1},
		{AsOf: jan(6), Knowledge: jan(8), Value: 2},
	}
	deltas := []Record{
		{AsOf: jan(6), Knowledge: jan(9), Value: -1},
		{AsOf: jan(8), Knowledge: jan(9), Value: 3},
		{Knowledge: jan(9), Value: 99}, // no as-of date, dropped
	}

	merged, retroactive := SplitNovelDeltas(baseline, deltas)

	require.Len(t, merged, 4)
	assert.Equal(t, 3.0, merged[3].Value)
	for i := 1; i < len(merged); i++ {
		assert.False(t, merged[i].Knowledge.Before(merged[i-1].Knowledge))
	}

	require.Len(t, retroactive, 1)
	assert.Equal(t, -1.0, retroactive[0].Value)
	assert.Equal(t, jan(6), retroactive[0].AsOf)
}

func TestOverwriteFromDates(t *testing.T) {
	dense := janWeek()

	t.Run("bounded by next later as-of date", func(t *testing.T) {
		sparse := []time.Time{jan(4), jan(5), jan(6), jan(8)}
		corr, ok := OverwriteFromDates(jan(6), dense, sparse, 0, 1, -1)
		require.True(t, ok)
		assert.Equal(t, adjust.NewOverwrite(0, 1, 0, 1, -1), corr)
	})

	t.Run("equal as-of dates are skipped", func(t *testing.T) {
		sparse := []time.Time{jan(6), jan(6), jan(7)}
		corr, ok := OverwriteFromDates(jan(6), dense, sparse, 0, 0, 5)
		require.True(t, ok)
		assert.Equal(t, adjust.NewOverwrite(0, 0, 0, 0, 5), corr)
	})

	t.Run("no later as-of date runs to end", func(t *testing.T) {
		sparse := []time.Time{jan(6), jan(7), jan(8)}
		corr, ok := OverwriteFromDates(jan(8), dense, sparse, 0, 0, 7)
		require.True(t, ok)
		assert.Equal(t, adjust.NewOverwrite(2, 4, 0, 0, 7), corr)
	})

	t.Run("as-of past dense range covers nothing", func(t *testing.T) {
		sparse := []time.Time{jan(6)}
		_, ok := OverwriteFromDates(jan(13), dense, sparse, 0, 0, 1)
		assert.False(t, ok)
	})

	t.Run("zero as-of covers nothing", func(t *testing.T) {
		_, ok := OverwriteFromDates(time.Time{}, dense, nil, 0, 0, 1)
		assert.False(t, ok)
	})
}

func TestReconcileMacroSeries(t *testing.T) {
	dates := janWeek()
	baseline := Table{Records: []Record{
		{AsOf: jan(4), Knowledge: jan(6), Value: 0},
		{AsOf: jan(5), Knowledge: jan(7), Value: 1},
		{AsOf: jan(6), Knowledge: jan(8), Value: 2},
	}}
	deltas := Table{Records: []Record{
		{AsOf: jan(6), Knowledge: jan(9), Value: -1},
		{AsOf: jan(8), Knowledge: jan(9), Value: 3},
	}}
	sids := []int64{1, 2}

	res := Reconcile(baseline, deltas, dates, sids)

	// The novel delta lands in the series on its knowledge day and
	// forward fills past it.
	assert.Equal(t, []float64{0, 1, 2, 3, 3}, res.Series)
	require.Len(t, res.Dense, 5)
	for _, row := range res.Dense {
		require.Len(t, row, 2)
		assert.Equal(t, row[0], row[1])
	}

	// The retroactive delta restates the Jan 6 value, bounded by the
	// next later as-of date (Jan 8, from the folded-in novel delta),
	// and becomes knowable on Jan 9.
	require.Equal(t, []int{3}, res.Overwrites.Triggers())
	require.Len(t, res.Overwrites[3], 1)
	assert.Equal(t, adjust.NewOverwrite(0, 1, 0, 1, -1), res.Overwrites[3][0])
}

func TestReconcileDriftsThroughWindowCursor(t *testing.T) {
	dates := janWeek()
	baseline := Table{Records: []Record{
		{AsOf: jan(4), Knowledge: jan(6), Value: 0},
		{AsOf: jan(5), Knowledge: jan(7), Value: 1},
		{AsOf: jan(6), Knowledge: jan(8), Value: 2},
	}}
	deltas := Table{Records: []Record{
		{AsOf: jan(6), Knowledge: jan(9), Value: -1},
		{AsOf: jan(8), Knowledge: jan(9), Value: 3},
	}}

	res := Reconcile(baseline, deltas, dates, []int64{1})
	cur, err := window.NewCursor(res.Dense, res.Overwrites, 3)
	require.NoError(t, err)

	// Through Jan 8 nothing has been restated.
	got, err := cur.Seek(2)
	require.NoError(t, err)
	assert.Equal(t, [][]float64{{0}, {1}, {2}}, got)

	// On Jan 9 the restatement of Jan 6-7 becomes visible alongside
	// the novel value.
	got, err = cur.Seek(3)
	require.NoError(t, err)
	assert.Equal(t, [][]float64{{-1}, {2}, {3}}, got)
}

func TestReconcilePerAsset(t *testing.T) {
	dates := janWeek()
	baseline := Table{HasSids: true, Records: []Record{
		{Sid: 1, AsOf: jan(6), Knowledge: jan(6), Value: 1.0},
		{Sid: 1, AsOf: jan(7), Knowledge: jan(7), Value: 1.1},
		{Sid: 2, AsOf: jan(6), Knowledge: jan(6), Value: 2.0},
		{Sid: 2, AsOf: jan(8), Knowledge: jan(8), Value: 2.2},
	}}
	deltas := Table{Records: []Record{
		{Sid: 2, AsOf: jan(6), Knowledge: jan(9), Value: 9.9},
		{Sid: 7, AsOf: jan(6), Knowledge: jan(9), Value: -5}, // not requested
	}}
	sids := []int64{1, 2}

	res := Reconcile(baseline, deltas, dates, sids)

	assert.Nil(t, res.Series)
	want := [][]float64{
		{1.0, 2.0},
		{1.1, 2.0},
		{1.1, 2.2},
		{1.1, 2.2},
		{1.1, 2.2},
	}
	assert.Equal(t, want, res.Dense)

	// Only sid 2's delta survives the request filter, touching its
	// column alone.
	require.Equal(t, []int{3}, res.Overwrites.Triggers())
	require.Len(t, res.Overwrites[3], 1)
	assert.Equal(t, adjust.NewOverwrite(0, 0, 1, 1, 9.9), res.Overwrites[3][0])
}

func TestReconcileUnseededDatesStayNaN(t *testing.T) {
	dates := janWeek()
	baseline := Table{Records: []Record{
		{AsOf: jan(8), Knowledge: jan(8), Value: 4},
	}}

	res := Reconcile(baseline, Table{}, dates, []int64{1})

	assert.True(t, math.IsNaN(res.Series[0]))
	assert.True(t, math.IsNaN(res.Series[1]))
	assert.Equal(t, []float64{4, 4, 4}, res.Series[2:])
}

func TestLastInKnowledgeDay(t *testing.T) {
	dates := janWeek()
	records := []Record{
		{AsOf: jan(6), Knowledge: jan(9).Add(10 * time.Hour), Value: 1},
		{AsOf: jan(6), Knowledge: jan(9).Add(15 * time.Hour), Value: 2},
		{Sid: 1, AsOf: jan(7), Knowledge: jan(10), Value: 3},
	}

	collapsed := lastInKnowledgeDay(records, dates, false)
	require.Len(t, collapsed, 2)
	assert.Equal(t, 2.0, collapsed[0].Value)
	assert.Equal(t, 3.0, collapsed[1].Value)

	// With sids, same-day restatements of different assets both survive.
	perSid := lastInKnowledgeDay([]Record{
		{Sid: 1, AsOf: jan(6), Knowledge: jan(9), Value: 1},
		{Sid: 2, AsOf: jan(6), Knowledge: jan(9), Value: 2},
	}, dates, true)
	assert.Len(t, perSid, 2)
}

func TestFillQueryLowerBound(t *testing.T) {
	t.Run("macro series", func(t *testing.T) {
		records := []Record{
			{Knowledge: jan(6)},
			{Knowledge: jan(8)},
			{Knowledge: jan(10)},
		}
		got, ok := FillQueryLowerBound(records, jan(9), false)
		require.True(t, ok)
		assert.Equal(t, jan(8), got)

		_, ok = FillQueryLowerBound(records, jan(5), false)
		assert.False(t, ok)
	})

	t.Run("per asset takes the minimum across sids", func(t *testing.T) {
		records := []Record{
			{Sid: 1, Knowledge: jan(6)},
			{Sid: 1, Knowledge: jan(9)},
			{Sid: 2, Knowledge: jan(8)},
		}
		got, ok := FillQueryLowerBound(records, jan(9), true)
		require.True(t, ok)
		assert.Equal(t, jan(8), got)
	})
}
