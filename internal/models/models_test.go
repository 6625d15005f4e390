package models

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseField(t *testing.T) {
	for _, f := range Fields {
		parsed, err := ParseField(f.String())
		require.NoError(t, err)
		assert.Equal(t, f, parsed)
	}

	_, err := ParseField("vwap")
	assert.ErrorContains(t, err, "unknown field")
}

func TestFieldIsPrice(t *testing.T) {
	assert.True(t, FieldOpen.IsPrice())
	assert.True(t, FieldClose.IsPrice())
	assert.False(t, FieldVolume.IsPrice())
}

func TestFieldValue(t *testing.T) {
	bar := &Bar{
		Open:   decimal.NewFromFloat(10.0),
		High:   decimal.NewFromFloat(12.5),
		Low:    decimal.NewFromFloat(9.5),
		Close:  decimal.NewFromFloat(11.0),
		Volume: decimal.NewFromInt(1000),
	}

	assert.Equal(t, 10.0, FieldOpen.Value(bar))
	assert.Equal(t, 12.5, FieldHigh.Value(bar))
	assert.Equal(t, 9.5, FieldLow.Value(bar))
	assert.Equal(t, 11.0, FieldClose.Value(bar))
	assert.Equal(t, 1000.0, FieldVolume.Value(bar))
}

func TestParseAdjustmentKind(t *testing.T) {
	for _, k := range AdjustmentKinds {
		parsed, err := ParseAdjustmentKind(string(k))
		require.NoError(t, err)
		assert.Equal(t, k, parsed)
	}

	_, err := ParseAdjustmentKind("buybacks")
	assert.ErrorContains(t, err, "unknown adjustment kind")
}
