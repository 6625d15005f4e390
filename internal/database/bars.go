package database

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/shopspring/decimal"

	"github.com/irfndi/histwindow-go/internal/calendar"
	"github.com/irfndi/histwindow-go/internal/models"
)

const selectBars = `
SELECT sid, session, open, high, low, close, volume
FROM ohlcv_bars
WHERE session >= $1 AND session <= $2 AND sid = ANY($3)
ORDER BY session, sid`

// BarRepository reads raw OHLCV arrays out of the ohlcv_bars table. Rows
// are shaped by the trading calendar: one row per session in the
// requested range, one column per requested sid.
type BarRepository struct {
	db  Querier
	cal *calendar.Calendar
}

func NewBarRepository(db Querier, cal *calendar.Calendar) *BarRepository {
	return &BarRepository{db: db, cal: cal}
}

// LoadRawArrays returns one sessions x sids matrix per requested field.
// Every (session, sid) cell must be covered by a stored bar; a gap is a
// data error, not a fillable hole.
func (r *BarRepository) LoadRawArrays(ctx context.Context, fields []models.Field, start, end time.Time, sids []int64) ([][][]float64, error) {
	lo, hi := r.cal.SliceIndexer(start, end)
	numRows := hi - lo
	if numRows <= 0 {
		return nil, fmt.Errorf("no sessions in range %s..%s", start.Format("2006-01-02"), end.Format("2006-01-02"))
	}

	colOf := make(map[int64]int, len(sids))
	for i, sid := range sids {
		colOf[sid] = i
	}

	out := make([][][]float64, len(fields))
	for f := range out {
		out[f] = nanMatrix(numRows, len(sids))
	}

	rows, err := r.db.Query(ctx, selectBars, start, end, sids)
	if err != nil {
		return nil, fmt.Errorf("load bars: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			sid     int64
			session time.Time
			open    decimal.Decimal
			high    decimal.Decimal
			low     decimal.Decimal
			cls     decimal.Decimal
			volume  decimal.Decimal
		)
		if err := rows.Scan(&sid, &session, &open, &high, &low, &cls, &volume); err != nil {
			return nil, fmt.Errorf("scan bar: %w", err)
		}
		loc, err := r.cal.GetLoc(session)
		if err != nil {
			return nil, fmt.Errorf("bar session outside calendar: %w", err)
		}
		col, ok := colOf[sid]
		if !ok {
			continue
		}
		bar := models.Bar{
			Sid: sid, Session: session,
			Open: open, High: high, Low: low, Close: cls, Volume: volume,
		}
		for f, field := range fields {
			out[f][loc-lo][col] = field.Value(&bar)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load bars: %w", err)
	}

	for f, field := range fields {
		for row := 0; row < numRows; row++ {
			for col, sid := range sids {
				if math.IsNaN(out[f][row][col]) {
					return nil, fmt.Errorf("no %s bar for sid %d on %s",
						field, sid, r.cal.At(lo+row).Format("2006-01-02"))
				}
			}
		}
	}
	return out, nil
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
