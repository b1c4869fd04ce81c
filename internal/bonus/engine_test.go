package bonus

import (
	"errors"
	"testing"

	"github.com/noah-isme/sales-insight/internal/salesreport"
)

func TestDefaultTiersByRank(t *testing.T) {
	strategy := ByProfit{Tiers: DefaultTiers()}
	seller := salesreport.SellerAggregate{Profit: 1000}
	want := []float64{150, 100, 100, 50, 0}
	for rank, expected := range want {
		got := salesreport.Round2(strategy.Bonus(rank, len(want), seller))
		if got != expected {
			t.Fatalf("rank %d: expected %v, got %v", rank, expected, got)
		}
	}
}

func TestLoneSellerGetsTopBonus(t *testing.T) {
	got := ByProfit{Tiers: DefaultTiers()}.Bonus(0, 1, salesreport.SellerAggregate{Profit: 100})
	if salesreport.Round2(got) != 15 {
		t.Fatalf("expected 15, got %v", got)
	}
}

func TestSecondOfTwoIsOnPodium(t *testing.T) {
	got := ByProfit{Tiers: DefaultTiers()}.Bonus(1, 2, salesreport.SellerAggregate{Profit: 100})
	if salesreport.Round2(got) != 10 {
		t.Fatalf("expected 10, got %v", got)
	}
}

func TestLastSellerWithLossGetsZero(t *testing.T) {
	got := ByProfit{Tiers: DefaultTiers()}.Bonus(4, 5, salesreport.SellerAggregate{Profit: -250})
	if got != 0 {
		t.Fatalf("expected 0, got %v", got)
	}
}

func TestTierRatesMatchPercentages(t *testing.T) {
	tiers := DefaultTiers()
	profit := 123.45
	if got := (ByProfit{Tiers: tiers}).Bonus(0, 5, salesreport.SellerAggregate{Profit: profit}); got != profit*0.15 {
		t.Fatalf("expected %v, got %v", profit*0.15, got)
	}
	if got := (ByProfit{Tiers: tiers}).Bonus(3, 5, salesreport.SellerAggregate{Profit: profit}); got != profit*0.05 {
		t.Fatalf("expected %v, got %v", profit*0.05, got)
	}
}

func TestNew(t *testing.T) {
	s, err := New("", DefaultTiers())
	if err != nil {
		t.Fatalf("new default: %v", err)
	}
	if _, ok := s.(ByProfit); !ok {
		t.Fatalf("expected ByProfit, got %T", s)
	}
	if _, err := New("flat", DefaultTiers()); !errors.Is(err, ErrUnknownStrategy) {
		t.Fatalf("expected ErrUnknownStrategy, got %v", err)
	}
	bad := DefaultTiers()
	bad.PodiumBps = 12000
	if _, err := New(StrategyProfitTiers, bad); !errors.Is(err, ErrInvalidTier) {
		t.Fatalf("expected ErrInvalidTier, got %v", err)
	}
}
