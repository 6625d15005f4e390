package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// AdjustmentKind identifies the corporate action family an adjustment
// ratio came from. The ratio is treated as a value-scaling multiplier for
// every kind; splits additionally invert for volume.
type AdjustmentKind string

const (
	KindSplit    AdjustmentKind = "splits"
	KindMerger   AdjustmentKind = "mergers"
	KindDividend AdjustmentKind = "dividends"
)

// AdjustmentKinds lists every kind in the order corrections are appended:
// mergers first, then dividends, then splits.
var AdjustmentKinds = []AdjustmentKind{KindMerger, KindDividend, KindSplit}

// ParseAdjustmentKind validates a kind name.
func ParseAdjustmentKind(name string) (AdjustmentKind, error) {
	switch k := AdjustmentKind(name); k {
	case KindSplit, KindMerger, KindDividend:
		return k, nil
	default:
		return "", fmt.Errorf("unknown adjustment kind %q", name)
	}
}

// AdjustmentEvent represents one corporate action: the session its ratio
// takes effect and the multiplier to restate all earlier data with.
type AdjustmentEvent struct {
	Sid           int64           `json:"sid" db:"sid"`
	Kind          AdjustmentKind  `json:"kind" db:"kind"`
	EffectiveDate time.Time       `json:"effective_date" db:"effective_date"`
	Ratio         decimal.Decimal `json:"ratio" db:"ratio"`
}
