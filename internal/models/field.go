package models

import "fmt"

// Field identifies one OHLCV bar column. The set is closed: unknown field
// names are rejected at the boundary instead of being dispatched
// dynamically.
type Field string

const (
	FieldOpen   Field = "open"
	FieldHigh   Field = "high"
	FieldLow    Field = "low"
	FieldClose  Field = "close"
	FieldVolume Field = "volume"
)

// Fields lists every valid field in column order.
var Fields = []Field{FieldOpen, FieldHigh, FieldLow, FieldClose, FieldVolume}

// fieldAccessors maps each field to its bar accessor. Built once at
// startup; doubling as the membership table for ParseField.
var fieldAccessors = map[Field]func(*Bar) float64{
	FieldOpen:   func(b *Bar) float64 { return b.Open.InexactFloat64() },
	FieldHigh:   func(b *Bar) float64 { return b.High.InexactFloat64() },
	FieldLow:    func(b *Bar) float64 { return b.Low.InexactFloat64() },
	FieldClose:  func(b *Bar) float64 { return b.Close.InexactFloat64() },
	FieldVolume: func(b *Bar) float64 { return b.Volume.InexactFloat64() },
}

// ParseField validates a field name.
func ParseField(name string) (Field, error) {
	f := Field(name)
	if _, ok := fieldAccessors[f]; !ok {
		return "", fmt.Errorf("unknown field %q", name)
	}
	return f, nil
}

// IsPrice reports whether the field carries prices rather than share
// counts. Price fields fill with NaN before data starts and take split
// ratios directly; volume fills with zero and takes reciprocal ratios.
func (f Field) IsPrice() bool {
	return f != FieldVolume
}

// Value extracts the field's column from a bar as float64.
func (f Field) Value(b *Bar) float64 {
	return fieldAccessors[f](b)
}

func (f Field) String() string {
	return string(f)
}
