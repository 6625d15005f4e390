package database

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/irfndi/histwindow-go/internal/models"
)

const selectAdjustments = `
SELECT sid, kind, effective_date, ratio
FROM corporate_actions
WHERE sid = $1 AND kind = $2
ORDER BY effective_date`

// AdjustmentRepository reads corporate actions out of the
// corporate_actions table.
type AdjustmentRepository struct {
	db Querier
}

func NewAdjustmentRepository(db Querier) *AdjustmentRepository {
	return &AdjustmentRepository{db: db}
}

// AdjustmentsForSid returns one asset's adjustments of the given kind,
// ascending by effective date.
func (r *AdjustmentRepository) AdjustmentsForSid(ctx context.Context, kind models.AdjustmentKind, sid int64) ([]models.AdjustmentEvent, error) {
	rows, err := r.db.Query(ctx, selectAdjustments, sid, string(kind))
	if err != nil {
		return nil, fmt.Errorf("load adjustments: %w", err)
	}
	defer rows.Close()

	var events []models.AdjustmentEvent
	for rows.Next() {
		var (
			eventSid  int64
			kindName  string
			effective time.Time
			ratio     decimal.Decimal
		)
		if err := rows.Scan(&eventSid, &kindName, &effective, &ratio); err != nil {
			return nil, fmt.Errorf("scan adjustment: %w", err)
		}
		parsed, err := models.ParseAdjustmentKind(kindName)
		if err != nil {
			return nil, err
		}
		events = append(events, models.AdjustmentEvent{
			Sid:           eventSid,
			Kind:          parsed,
			EffectiveDate: effective,
			Ratio:         ratio,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load adjustments: %w", err)
	}
	return events, nil
}
