package bonus

import (
	"errors"
	"fmt"
	"strings"

	"github.com/noah-isme/sales-insight/internal/salesreport"
)

var (
	// ErrUnknownStrategy is returned by New for unrecognised bonus strategy names.
	ErrUnknownStrategy = errors.New("unknown bonus strategy")
	// ErrInvalidTier indicates a tier rate outside 0..10000 basis points.
	ErrInvalidTier = errors.New("bonus tier must be between 0 and 10000 bps")
)

// StrategyProfitTiers names the rank-tiered profit share strategy.
const StrategyProfitTiers = "profit-tiers"

// Tiers expresses the share of profit paid as bonus per rank band, in basis points.
type Tiers struct {
	TopBps     int32 // rank 0
	PodiumBps  int32 // ranks 1 and 2
	DefaultBps int32 // every other rank
	LastBps    int32 // the lowest ranked seller
}

// DefaultTiers returns 15% for the top seller, 10% for the next two, 5% for the rest and nothing for the last.
func DefaultTiers() Tiers {
	return Tiers{TopBps: 1500, PodiumBps: 1000, DefaultBps: 500, LastBps: 0}
}

// Validate ensures every tier is a valid percentage.
func (t Tiers) Validate() error {
	for name, bps := range map[string]int32{
		"top":     t.TopBps,
		"podium":  t.PodiumBps,
		"default": t.DefaultBps,
		"last":    t.LastBps,
	} {
		if bps < 0 || bps > 10000 {
			return fmt.Errorf("%w: %s=%d", ErrInvalidTier, name, bps)
		}
	}
	return nil
}

// Rate returns the basis points applied at rank out of total sellers.
// Bands are checked top, podium, last, default, so a lone seller is paid as the top seller
// and with two sellers the second one is on the podium.
func (t Tiers) Rate(rank, total int) int32 {
	switch {
	case rank == 0:
		return t.TopBps
	case rank == 1 || rank == 2:
		return t.PodiumBps
	case rank == total-1:
		return t.LastBps
	default:
		return t.DefaultBps
	}
}

// ByProfit pays a tiered share of the seller's profit.
type ByProfit struct {
	Tiers Tiers
}

// Bonus implements salesreport.BonusStrategy.
func (b ByProfit) Bonus(rank, total int, seller salesreport.SellerAggregate) float64 {
	bps := b.Tiers.Rate(rank, total)
	if bps == 0 {
		return 0
	}
	return seller.Profit * (float64(bps) / 10000)
}

// New resolves a bonus strategy by name. An empty name selects profit tiers.
func New(name string, tiers Tiers) (salesreport.BonusStrategy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", StrategyProfitTiers:
		if err := tiers.Validate(); err != nil {
			return nil, err
		}
		return ByProfit{Tiers: tiers}, nil
	default:
		return nil, ErrUnknownStrategy
	}
}
