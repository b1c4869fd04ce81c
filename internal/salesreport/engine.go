package salesreport

import "sort"

// TopProductsLimit caps the number of products listed per seller.
const TopProductsLimit = 10

// Stats counts the receipts and lines applied or skipped during a run.
// Receipts and items that reference unknown sellers or SKUs are skipped, not rejected.
type Stats struct {
	Receipts        int `json:"receipts"`
	SkippedReceipts int `json:"skipped_receipts"`
	Items           int `json:"items"`
	SkippedItems    int `json:"skipped_items"`
}

// Analyze ranks sellers by profit and returns one row per input seller, most profitable first.
func Analyze(data *Dataset, opts *Options) ([]ReportRow, error) {
	rows, _, err := AnalyzeWithStats(data, opts)
	return rows, err
}

// AnalyzeWithStats behaves like Analyze and also reports how many records were skipped.
func AnalyzeWithStats(data *Dataset, opts *Options) ([]ReportRow, Stats, error) {
	if err := Validate(data, opts); err != nil {
		return nil, Stats{}, err
	}

	sellers, sellerIndex := indexSellers(data.Sellers)
	productIndex := indexProducts(data.Products)
	stats := fold(data.PurchaseRecords, sellerIndex, productIndex, opts.Revenue)

	rank(sellers)
	total := len(sellers)
	for i, seller := range sellers {
		seller.Bonus = opts.Bonus.Bonus(i, total, *seller)
	}

	rows := make([]ReportRow, 0, total)
	for _, seller := range sellers {
		rows = append(rows, seller.row())
	}
	return rows, stats, nil
}

// Validate checks the shape of the inputs and returns the first violation found.
func Validate(data *Dataset, opts *Options) error {
	switch {
	case data == nil:
		return ErrMissingData
	case len(data.Sellers) == 0:
		return ErrInvalidSellers
	case len(data.Products) == 0:
		return ErrInvalidProducts
	case len(data.PurchaseRecords) == 0:
		return ErrInvalidPurchaseRecords
	case opts == nil:
		return ErrInvalidOptions
	case !opts.complete():
		return ErrMissingStrategies
	}
	return nil
}

// indexSellers creates one aggregate per input seller. When ids repeat, the index
// resolves to the last aggregate with that id.
func indexSellers(sellers []Seller) ([]*SellerAggregate, map[string]*SellerAggregate) {
	list := make([]*SellerAggregate, 0, len(sellers))
	index := make(map[string]*SellerAggregate, len(sellers))
	for _, s := range sellers {
		agg := newAggregate(s)
		list = append(list, agg)
		index[s.ID] = agg
	}
	return list, index
}

// indexProducts maps SKU to product; the last duplicate wins.
func indexProducts(products []Product) map[string]Product {
	index := make(map[string]Product, len(products))
	for _, p := range products {
		index[p.SKU] = p
	}
	return index
}

func fold(records []PurchaseRecord, sellers map[string]*SellerAggregate, products map[string]Product, revenue RevenueStrategy) Stats {
	var stats Stats
	for _, receipt := range records {
		seller, ok := sellers[receipt.SellerID]
		if !ok {
			stats.SkippedReceipts++
			continue
		}
		stats.Receipts++
		seller.SalesCount++
		seller.Revenue += receipt.TotalAmount - receipt.TotalDiscount

		for _, item := range receipt.Items {
			product, ok := products[item.SKU]
			if !ok {
				stats.SkippedItems++
				continue
			}
			stats.Items++
			itemRevenue := revenue.Revenue(item, product)
			cost := product.PurchasePrice * float64(item.Quantity)
			seller.Profit += itemRevenue - cost
			seller.sold.add(item.SKU, item.Quantity)
		}
	}
	return stats
}

// rank orders sellers by profit descending; equal profits keep input order.
func rank(sellers []*SellerAggregate) {
	sort.SliceStable(sellers, func(i, j int) bool {
		return sellers[i].Profit > sellers[j].Profit
	})
}
