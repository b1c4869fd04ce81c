package salesreport

import (
	"math"
	"strconv"

	"github.com/shopspring/decimal"
)

// exactDigits is enough fractional digits to carry the binary value of any
// monetary float64 past the point where a two-place tie could be decided.
const exactDigits = 40

// Round2 rounds the exact binary value of v to two decimal places, half away
// from zero. 1.005 is stored as 1.00499999..., so it becomes 1.00.
func Round2(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return v
	}
	exact := decimal.RequireFromString(strconv.FormatFloat(v, 'f', exactDigits, 64))
	return exact.Round(2).InexactFloat64()
}
