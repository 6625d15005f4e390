package adjust

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func filled(rows, cols int, v float64) [][]float64 {
	buf := make([][]float64, rows)
	for r := range buf {
		buf[r] = make([]float64, cols)
		for c := range buf[r] {
			buf[r][c] = v
		}
	}
	return buf
}

func TestMultiplyApply(t *testing.T) {
	buf := filled(4, 3, 2)
	NewMultiply(1, 2, 0, 1, 3).Apply(buf)

	assert.Equal(t, [][]float64{
		{2, 2, 2},
		{6, 6, 2},
		{6, 6, 2},
		{2, 2, 2},
	}, buf)
}

func TestOverwriteApply(t *testing.T) {
	buf := filled(3, 2, 2)
	NewOverwrite(0, 1, 1, 1, 9).Apply(buf)

	assert.Equal(t, [][]float64{
		{2, 9},
		{2, 9},
		{2, 2},
	}, buf)
}

func TestMultiplyComposesWithPriorValues(t *testing.T) {
	buf := filled(2, 1, 2)
	NewMultiply(0, 1, 0, 0, 3).Apply(buf)
	NewMultiply(0, 0, 0, 0, 5).Apply(buf)

	assert.Equal(t, [][]float64{{30}, {6}}, buf)
}

func TestOverwriteDiscardsPriorValues(t *testing.T) {
	buf := filled(2, 1, 2)
	NewMultiply(0, 1, 0, 0, 3).Apply(buf)
	NewOverwrite(0, 0, 0, 0, 7).Apply(buf)

	assert.Equal(t, [][]float64{{7}, {6}}, buf)
}

func TestConstructorPanicsOnInvertedRanges(t *testing.T) {
	assert.Panics(t, func() { NewMultiply(2, 1, 0, 0, 1) })
	assert.Panics(t, func() { NewOverwrite(0, 0, 3, 2, 1) })
	assert.Panics(t, func() { NewMultiply(-1, 0, 0, 0, 1) })
	assert.Panics(t, func() { NewOverwrite(0, 0, -2, 0, 1) })
}

func TestCorrectionCheckBounds(t *testing.T) {
	c := NewMultiply(0, 3, 0, 1, 2)

	assert.NoError(t, c.CheckBounds(4, 2))
	assert.Error(t, c.CheckBounds(3, 2))
	assert.Error(t, c.CheckBounds(4, 1))
}

func TestScheduleAddPreservesAppendOrder(t *testing.T) {
	s := NewSchedule()
	first := NewMultiply(0, 0, 0, 0, 2)
	second := NewOverwrite(0, 0, 0, 0, 5)
	s.Add(3, first)
	s.Add(3, second)
	s.Add(1, first)

	require.Len(t, s[3], 2)
	assert.Equal(t, first, s[3][0])
	assert.Equal(t, second, s[3][1])
	assert.Equal(t, []int{1, 3}, s.Triggers())
}

func TestScheduleCheckBounds(t *testing.T) {
	s := NewSchedule()
	s.Add(2, NewMultiply(0, 1, 0, 0, 2))
	assert.NoError(t, s.CheckBounds(3, 1))

	bad := NewSchedule()
	bad.Add(3, NewMultiply(0, 1, 0, 0, 2))
	assert.Error(t, bad.CheckBounds(3, 1))

	badRect := NewSchedule()
	badRect.Add(1, NewMultiply(0, 2, 0, 0, 2))
	assert.Error(t, badRect.CheckBounds(2, 1))
}
