package adjust

import (
	"fmt"
	"sort"
)

// Op identifies how a correction combines with prior values.
type Op uint8

const (
	// OpMultiply composes with prior values by elementwise product.
	OpMultiply Op = iota
	// OpOverwrite replaces prior values elementwise.
	OpOverwrite
)

func (o Op) String() string {
	switch o {
	case OpMultiply:
		return "multiply"
	case OpOverwrite:
		return "overwrite"
	default:
		return fmt.Sprintf("op(%d)", uint8(o))
	}
}

// Correction is an immutable range-scoped operation over a closed
// (row, column) rectangle of a time x asset buffer. Rows index time with
// 0 as the earliest row of the owning buffer; columns index asset position
// within the request that built the buffer.
type Correction struct {
	FirstRow int
	LastRow  int
	FirstCol int
	LastCol  int
	Op       Op
	Value    float64
}

// NewMultiply creates a multiplicative correction. Inverted or negative
// ranges are a programming error and panic before any buffer is touched.
func NewMultiply(firstRow, lastRow, firstCol, lastCol int, value float64) Correction {
	return newCorrection(firstRow, lastRow, firstCol, lastCol, OpMultiply, value)
}

// NewOverwrite creates an overwriting correction. Inverted or negative
// ranges are a programming error and panic before any buffer is touched.
func NewOverwrite(firstRow, lastRow, firstCol, lastCol int, value float64) Correction {
	return newCorrection(firstRow, lastRow, firstCol, lastCol, OpOverwrite, value)
}

func newCorrection(firstRow, lastRow, firstCol, lastCol int, op Op, value float64) Correction {
	if firstRow < 0 || firstCol < 0 || firstRow > lastRow || firstCol > lastCol {
		panic(fmt.Sprintf(
			"invalid correction rectangle rows [%d, %d] cols [%d, %d]",
			firstRow, lastRow, firstCol, lastCol,
		))
	}
	return Correction{
		FirstRow: firstRow,
		LastRow:  lastRow,
		FirstCol: firstCol,
		LastCol:  lastCol,
		Op:       op,
		Value:    value,
	}
}

// CheckBounds verifies the rectangle fits a buffer of the given shape.
func (c Correction) CheckBounds(rows, cols int) error {
	if c.LastRow >= rows || c.LastCol >= cols {
		return fmt.Errorf(
			"correction rows [%d, %d] cols [%d, %d] out of bounds for %dx%d buffer",
			c.FirstRow, c.LastRow, c.FirstCol, c.LastCol, rows, cols,
		)
	}
	return nil
}

// Apply folds the correction into buf in place. Bounds must have been
// checked beforehand.
func (c Correction) Apply(buf [][]float64) {
	for r := c.FirstRow; r <= c.LastRow; r++ {
		row := buf[r]
		for col := c.FirstCol; col <= c.LastCol; col++ {
			if c.Op == OpOverwrite {
				row[col] = c.Value
			} else {
				row[col] *= c.Value
			}
		}
	}
}

func (c Correction) String() string {
	return fmt.Sprintf(
		"%s(first_row=%d, last_row=%d, first_col=%d, last_col=%d, value=%f)",
		c.Op, c.FirstRow, c.LastRow, c.FirstCol, c.LastCol, c.Value,
	)
}

// Schedule maps a trigger row index to the corrections that must be folded
// into the owning buffer once the cursor's exposed frontier reaches that
// row. Append order within a trigger row is application order; the cursor
// treats a handed-off Schedule as read-only.
type Schedule map[int][]Correction

// NewSchedule creates an empty Schedule.
func NewSchedule() Schedule {
	return make(Schedule)
}

// Add appends a correction to the trigger row's list, preserving order.
func (s Schedule) Add(trigger int, c Correction) {
	s[trigger] = append(s[trigger], c)
}

// Triggers returns the trigger rows in ascending order.
func (s Schedule) Triggers() []int {
	out := make([]int, 0, len(s))
	for trigger := range s {
		out = append(out, trigger)
	}
	sort.Ints(out)
	return out
}

// CheckBounds verifies every trigger lies inside [0, rows) and every
// correction rectangle fits a rows x cols buffer.
func (s Schedule) CheckBounds(rows, cols int) error {
	for trigger, corrections := range s {
		if trigger < 0 || trigger >= rows {
			return fmt.Errorf("trigger row %d outside buffer of %d rows", trigger, rows)
		}
		for _, c := range corrections {
			if err := c.CheckBounds(rows, cols); err != nil {
				return err
			}
		}
	}
	return nil
}
