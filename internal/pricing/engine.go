package pricing

import (
	"errors"
	"strings"

	"github.com/noah-isme/sales-insight/internal/salesreport"
)

// ErrUnknownStrategy is returned by Lookup for unrecognised revenue strategy names.
var ErrUnknownStrategy = errors.New("unknown revenue strategy")

// StrategySimple names the default revenue strategy.
const StrategySimple = "simple"

// LineRevenue returns salePrice × qty reduced by a percentage discount.
func LineRevenue(salePrice float64, qty int, discountPct float64) float64 {
	multiplier := 1 - discountPct/100
	return salePrice * float64(qty) * multiplier
}

// Simple computes line revenue from the receipt line alone; the product card is not consulted.
type Simple struct{}

// Revenue implements salesreport.RevenueStrategy.
func (Simple) Revenue(item salesreport.Item, _ salesreport.Product) float64 {
	return LineRevenue(item.SalePrice, item.Quantity, item.Discount)
}

// Lookup resolves a revenue strategy by name. An empty name selects Simple.
func Lookup(name string) (salesreport.RevenueStrategy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", StrategySimple:
		return Simple{}, nil
	default:
		return nil, ErrUnknownStrategy
	}
}
