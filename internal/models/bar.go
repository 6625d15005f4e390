package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Bar represents one OHLCV bar as stored, daily or minute resolution.
// Prices are kept as decimals in storage and converted to float64 at the
// windowing boundary.
type Bar struct {
	Sid       int64           `json:"sid" db:"sid"`
	Session   time.Time       `json:"session" db:"session"`
	Open      decimal.Decimal `json:"open" db:"open"`
	High      decimal.Decimal `json:"high" db:"high"`
	Low       decimal.Decimal `json:"low" db:"low"`
	Close     decimal.Decimal `json:"close" db:"close"`
	Volume    decimal.Decimal `json:"volume" db:"volume"`
	CreatedAt time.Time       `json:"created_at,omitempty" db:"created_at"`
}
