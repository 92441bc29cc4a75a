package types

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

// FloatString is a number the API sends either as a JSON string ("0.02")
// or as a bare number. null decodes to zero.
type FloatString float64

func (f *FloatString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*f = 0
		return nil
	}

	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		s = string(b)
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return fmt.Errorf("invalid numeric value %s: %w", b, err)
	}
	*f = FloatString(d.InexactFloat64())
	return nil
}

// MarshalJSON writes the string form, as the API does.
func (f FloatString) MarshalJSON() ([]byte, error) {
	return json.Marshal(f.String())
}

func (f FloatString) String() string {
	return f.Decimal().String()
}

func (f FloatString) Decimal() decimal.Decimal {
	return decimal.NewFromFloat(float64(f))
}

func (f FloatString) Raw() float64 {
	return float64(f)
}
