package salesreport

// RevenueStrategy computes the revenue attributed to one receipt line.
type RevenueStrategy interface {
	Revenue(item Item, product Product) float64
}

// RevenueFunc adapts a plain function to RevenueStrategy.
type RevenueFunc func(item Item, product Product) float64

// Revenue calls f(item, product).
func (f RevenueFunc) Revenue(item Item, product Product) float64 {
	return f(item, product)
}

// BonusStrategy computes a seller's bonus from its 0-based rank among total sellers.
type BonusStrategy interface {
	Bonus(rank, total int, seller SellerAggregate) float64
}

// BonusFunc adapts a plain function to BonusStrategy.
type BonusFunc func(rank, total int, seller SellerAggregate) float64

// Bonus calls f(rank, total, seller).
func (f BonusFunc) Bonus(rank, total int, seller SellerAggregate) float64 {
	return f(rank, total, seller)
}

// Options bundles the strategies used by Analyze. Both are required.
type Options struct {
	Revenue RevenueStrategy
	Bonus   BonusStrategy
}

func (o *Options) complete() bool {
	if o.Revenue == nil || o.Bonus == nil {
		return false
	}
	if f, ok := o.Revenue.(RevenueFunc); ok && f == nil {
		return false
	}
	if f, ok := o.Bonus.(BonusFunc); ok && f == nil {
		return false
	}
	return true
}
