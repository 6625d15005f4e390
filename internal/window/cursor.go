package window

import (
	"errors"
	"fmt"

	"github.com/irfndi/histwindow-go/internal/adjust"
)

var (
	// ErrOutOfOrderSeek reports a seek target behind the cursor position.
	// The cursor cannot rewind; the caller violated the monotonicity
	// contract the loader depends on.
	ErrOutOfOrderSeek = errors.New("window: out of order seek")

	// ErrSeekPastEnd reports a seek target beyond the last buffer row.
	ErrSeekPastEnd = errors.New("window: seek past end of buffer")
)

// Cursor owns a raw time x asset buffer together with the correction
// schedule built for it. It exposes a forward-only position (the last row
// materialized) and lazily folds corrections into the buffer as the
// position advances past their trigger rows.
type Cursor struct {
	buffer   [][]float64
	schedule adjust.Schedule
	pending  []int // ascending trigger rows not yet applied
	size     int
	pos      int
}

// NewCursor creates a cursor over buffer with the given correction
// schedule and window size. The schedule is validated against the buffer
// shape up front so that Seek can never fail halfway through applying
// corrections.
func NewCursor(buffer [][]float64, schedule adjust.Schedule, size int) (*Cursor, error) {
	rows := len(buffer)
	if rows == 0 {
		return nil, fmt.Errorf("window: empty buffer")
	}
	cols := len(buffer[0])
	for r, row := range buffer {
		if len(row) != cols {
			return nil, fmt.Errorf("window: ragged buffer: row %d has %d columns, want %d", r, len(row), cols)
		}
	}
	if size < 1 || size > rows {
		return nil, fmt.Errorf("window: size %d outside [1, %d]", size, rows)
	}
	if schedule == nil {
		schedule = adjust.NewSchedule()
	}
	if err := schedule.CheckBounds(rows, cols); err != nil {
		return nil, fmt.Errorf("window: %w", err)
	}
	return &Cursor{
		buffer:   buffer,
		schedule: schedule,
		pending:  schedule.Triggers(),
		size:     size,
		pos:      size - 1,
	}, nil
}

// Size returns the window width.
func (c *Cursor) Size() int {
	return c.size
}

// Rows returns the number of buffer rows.
func (c *Cursor) Rows() int {
	return len(c.buffer)
}

// Pos returns the last row materialized.
func (c *Cursor) Pos() int {
	return c.pos
}

// Seek advances the cursor to target, folding in every still-pending
// correction whose trigger row is <= target, and returns the trailing
// window of width size ending at target. Rows are returned as views into
// the owned buffer and are only valid until the next Seek. Seeking to the
// current position re-returns the window without re-applying anything;
// seeking backwards or past the last row fails without mutating the
// buffer.
func (c *Cursor) Seek(target int) ([][]float64, error) {
	if target < c.pos {
		return nil, fmt.Errorf("%w: target %d behind position %d", ErrOutOfOrderSeek, target, c.pos)
	}
	if target >= len(c.buffer) {
		return nil, fmt.Errorf("%w: target %d, last row %d", ErrSeekPastEnd, target, len(c.buffer)-1)
	}
	for len(c.pending) > 0 && c.pending[0] <= target {
		trigger := c.pending[0]
		c.pending = c.pending[1:]
		for _, corr := range c.schedule[trigger] {
			corr.Apply(c.buffer)
		}
	}
	c.pos = target
	return c.buffer[target-c.size+1 : target+1], nil
}
