package utils

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

var wireTolerance = decimal.New(1, -12)
var intTolerance = decimal.New(1, -3)

// FloatToWire renders x with at most 8 decimals and no trailing zeros, the
// form prices and sizes take on the wire. Values that cannot be represented
// at 8 decimals within 1e-12 are rejected rather than silently rounded.
func FloatToWire(x float64) (string, error) {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return "", fmt.Errorf("invalid float value: %v", x)
	}

	d := decimal.NewFromFloat(x)
	rounded := d.Round(8)

	if d.Sub(rounded).Abs().GreaterThan(wireTolerance) {
		return "", fmt.Errorf(
			"float precision loss: %v rounds to %s",
			x,
			rounded.String(),
		)
	}

	// decimal drops the sign of zero and trailing zeros on its own.
	return rounded.String(), nil
}

// FloatToInt scales x by 10^power and converts it to int64.
// Returns an error if the scaled value is not within 1e-3 of an integer,
// which prevents accidental precision loss when rounding.
func FloatToInt(x float64, power int64) (int64, error) {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return 0, fmt.Errorf("invalid float value: %v", x)
	}

	withDecimals := decimal.NewFromFloat(x).Shift(int32(power))
	rounded := withDecimals.Round(0)

	if rounded.Sub(withDecimals).Abs().GreaterThanOrEqual(intTolerance) {
		return 0, errors.New("float_to_int causes rounding")
	}

	return rounded.IntPart(), nil
}

// FloatToUsdInt converts a USD float to an int scaled by 1e6.
// Fails if the value cannot be represented precisely at 6 decimals.
func FloatToUsdInt(x float64) (int64, error) {
	return FloatToInt(x, 6)
}

// StringToFloat converts a string price to float64
func StringToFloat(s string) (float64, error) {
	return strconv.ParseFloat(s, 64)
}

// RoundToSigfig rounds x to n significant figures.
func RoundToSigfig(x float64, n int64) float64 {
	if x == 0 {
		return 0
	}
	d := math.Ceil(math.Log10(math.Abs(x)))
	power := float64(n) - d
	factor := math.Pow(10, power)
	return math.Round(x*factor) / factor
}

// RoundToDecimals rounds half to even at ndigits decimals. Negative ndigits
// round to tens, hundreds and so on.
func RoundToDecimals(x float64, ndigits int64) float64 {
	if ndigits >= 0 {
		factor := math.Pow(10, float64(ndigits))
		return math.RoundToEven(x*factor) / factor
	}

	factor := math.Pow(10, float64(-ndigits))
	return math.RoundToEven(x/factor) * factor
}

// GetDex extracts the dex name from a coin symbol such as "dex:COIN".
func GetDex(coin string) string {
	if i := strings.Index(coin, ":"); i != -1 {
		return coin[:i]
	}
	return ""
}
