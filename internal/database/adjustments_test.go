package database

import (
	"context"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/irfndi/histwindow-go/internal/models"
)

func TestAdjustmentRepository_AdjustmentsForSid(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	first := time.Date(2014, 3, 3, 0, 0, 0, 0, time.UTC)
	second := time.Date(2014, 9, 8, 0, 0, 0, 0, time.UTC)
	rows := pgxmock.NewRows([]string{"sid", "kind", "effective_date", "ratio"}).
		AddRow(int64(7), "splits", first, decimal.NewFromFloat(0.5)).
		AddRow(int64(7), "splits", second, decimal.NewFromFloat(0.25))
	mock.ExpectQuery("SELECT sid, kind, effective_date, ratio").
		WithArgs(int64(7), "splits").
		WillReturnRows(rows)

	repo := NewAdjustmentRepository(mock)
	events, err := repo.AdjustmentsForSid(context.Background(), models.KindSplit, 7)
	require.NoError(t, err)

	require.Len(t, events, 2)
	assert.Equal(t, models.KindSplit, events[0].Kind)
	assert.Equal(t, first, events[0].EffectiveDate)
	assert.True(t, events[0].Ratio.Equal(decimal.NewFromFloat(0.5)))
	assert.Equal(t, second, events[1].EffectiveDate)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAdjustmentRepository_NoEvents(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	rows := pgxmock.NewRows([]string{"sid", "kind", "effective_date", "ratio"})
	mock.ExpectQuery("SELECT sid, kind, effective_date, ratio").
		WithArgs(int64(9), "dividends").
		WillReturnRows(rows)

	repo := NewAdjustmentRepository(mock)
	events, err := repo.AdjustmentsForSid(context.Background(), models.KindDividend, 9)
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestAdjustmentRepository_RejectsUnknownKind(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	rows := pgxmock.NewRows([]string{"sid", "kind", "effective_date", "ratio"}).
		AddRow(int64(7), "buybacks", time.Now(), decimal.NewFromInt(1))
	mock.ExpectQuery("SELECT sid, kind, effective_date, ratio").
		WithArgs(int64(7), "splits").
		WillReturnRows(rows)

	repo := NewAdjustmentRepository(mock)
	_, err = repo.AdjustmentsForSid(context.Background(), models.KindSplit, 7)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown adjustment kind")
}
