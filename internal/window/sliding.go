package window

import (
	"math"
)

// roundPlaces normalizes floating point noise introduced by adjustment
// multiplication. Downstream consumers compare and store window values, so
// the rounding is a deliberate lossy step, not an artifact.
const roundPlaces = 3

// SlidingWindow wraps a Cursor with calendar coordinate translation and a
// monotonicity contract: successive Get calls must present non-decreasing
// calendar indices. It memoizes the last materialized slice so repeated
// queries for an unchanged end date, the common case when several readers
// ask about the same simulated time, do no seek work.
type SlidingWindow struct {
	cursor       *Cursor
	calStart     int
	offset       int
	mostRecentIx int
	current      [][]float64
}

// NewSlidingWindow materializes the initial window of the cursor and
// records its calendar position. calStart is the calendar index of the
// buffer's first row; offset is negative when the request begins before
// the earliest available source session and shifts the translation by the
// number of leading fill rows.
func NewSlidingWindow(cursor *Cursor, calStart, offset int) (*SlidingWindow, error) {
	first, err := cursor.Seek(cursor.Size() - 1)
	if err != nil {
		return nil, err
	}
	return &SlidingWindow{
		cursor:       cursor,
		calStart:     calStart,
		offset:       offset,
		mostRecentIx: calStart + offset + cursor.Size() - 1,
		current:      roundCopy(first),
	}, nil
}

// Get returns the window ending at the calendar index endIx with all
// corrections triggered at or before it applied and values rounded.
// The returned rows are copies; later seeks never mutate them.
func (w *SlidingWindow) Get(endIx int) ([][]float64, error) {
	if endIx == w.mostRecentIx {
		return w.current, nil
	}
	target := endIx - w.calStart - w.offset
	raw, err := w.cursor.Seek(target)
	if err != nil {
		return nil, err
	}
	w.current = roundCopy(raw)
	w.mostRecentIx = endIx
	return w.current, nil
}

// MostRecentIx returns the last calendar index served.
func (w *SlidingWindow) MostRecentIx() int {
	return w.mostRecentIx
}

func roundCopy(rows [][]float64) [][]float64 {
	scale := math.Pow(10, roundPlaces)
	out := make([][]float64, len(rows))
	for r, row := range rows {
		dst := make([]float64, len(row))
		for i, v := range row {
			dst[i] = math.Round(v*scale) / scale
		}
		out[r] = dst
	}
	return out
}
