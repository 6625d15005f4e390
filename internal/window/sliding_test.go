package window

import (
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/irfndi/histwindow-go/internal/adjust"
)

func newSliding(t *testing.T, buf [][]float64, s adjust.Schedule, size, calStart, offset int) *SlidingWindow {
	t.Helper()
	cursor, err := NewCursor(buf, s, size)
	require.NoError(t, err)
	w, err := NewSlidingWindow(cursor, calStart, offset)
	require.NoError(t, err)
	return w
}

func TestSlidingWindowTranslatesCalendarIndices(t *testing.T) {
	buf := [][]float64{{1}, {2}, {3}, {4}, {5}}
	w := newSliding(t, buf, nil, 2, 10, 0)

	// The initial window covers calendar indices [10, 11].
	got, err := w.Get(11)
	require.NoError(t, err)
	assert.Equal(t, [][]float64{{1}, {2}}, got)

	got, err = w.Get(13)
	require.NoError(t, err)
	assert.Equal(t, [][]float64{{3}, {4}}, got)
}

func TestSlidingWindowMemoizesLastResult(t *testing.T) {
	buf := [][]float64{{1}, {2}, {3}}
	w := newSliding(t, buf, nil, 2, 0, 0)

	first, err := w.Get(1)
	require.NoError(t, err)
	again, err := w.Get(1)
	require.NoError(t, err)

	assert.Equal(t, first, again)
	// Same slice, not a rebuilt copy: the repeated query did no seek work.
	assert.Equal(t, fmt.Sprintf("%p", first), fmt.Sprintf("%p", again))
}

func TestSlidingWindowMonotonicityContract(t *testing.T) {
	buf := [][]float64{{1}, {2}, {3}, {4}}
	w := newSliding(t, buf, nil, 1, 0, 0)

	_, err := w.Get(2)
	require.NoError(t, err)

	_, err = w.Get(1)
	assert.ErrorIs(t, err, ErrOutOfOrderSeek)
}

func TestSlidingWindowRoundsToThreeDecimals(t *testing.T) {
	s := adjust.NewSchedule()
	s.Add(1, adjust.NewMultiply(0, 0, 0, 0, 1.0/3.0))

	buf := [][]float64{{10}, {20}}
	w := newSliding(t, buf, s, 1, 0, 0)

	got, err := w.Get(1)
	require.NoError(t, err)
	assert.Equal(t, [][]float64{{20}}, got)

	// The adjusted row 0 is 10/3, rounded to 3 decimals.
	full := newSliding(t, [][]float64{{10}, {20}}, s, 2, 0, 0)
	got, err = full.Get(1)
	require.NoError(t, err)
	assert.Equal(t, [][]float64{{3.333}, {20}}, got)
}

func TestSlidingWindowReturnsCopies(t *testing.T) {
	buf := [][]float64{{1}, {2}, {3}}
	w := newSliding(t, buf, nil, 1, 0, 0)

	first, err := w.Get(0)
	require.NoError(t, err)
	retained := first[0][0]

	_, err = w.Get(2)
	require.NoError(t, err)
	assert.Equal(t, retained, first[0][0])
}

func TestSlidingWindowOffsetShiftsTranslation(t *testing.T) {
	// Two fill rows precede real data: a request starting two sessions
	// before the earliest source session uses offset = -2.
	nan := math.NaN()
	buf := [][]float64{{nan}, {nan}, {7}, {8}}
	w := newSliding(t, buf, nil, 3, 0, -2)

	// Calendar index 1 maps to buffer row 3: one fill row remains visible.
	got, err := w.Get(1)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.True(t, math.IsNaN(got[0][0]))
	assert.Equal(t, 7.0, got[1][0])
	assert.Equal(t, 8.0, got[2][0])
}
