package dataset

import (
	"fmt"
	"math/rand/v2"

	"github.com/noah-isme/sales-insight/internal/pricing"
	"github.com/noah-isme/sales-insight/internal/salesreport"
)

// GenerateOptions controls the size and randomness of a generated sample dataset.
type GenerateOptions struct {
	Sellers         int
	Products        int
	Receipts        int
	MaxItems        int
	Seed            uint64
	UnknownSellerPc int // percentage of receipts pointing at a seller that does not exist
}

var (
	firstNames = []string{"Alexey", "Budi", "Siti", "Andi", "Dewi", "Eko", "Fajar", "Gita", "Hendra", "Indah"}
	lastNames  = []string{"Petrov", "Santoso", "Aminah", "Pratama", "Lestari", "Kurniawan", "Nugraha", "Pertiwi", "Wijaya", "Sari"}
	categories = []string{"Electronics", "Fashion", "Home & Living", "Beauty", "Sports", "Toys"}
)

// Generate builds a deterministic dataset for demos and load tests. The same options
// always yield the same dataset.
func Generate(opts GenerateOptions) *salesreport.Dataset {
	if opts.Sellers <= 0 {
		opts.Sellers = 5
	}
	if opts.Products <= 0 {
		opts.Products = 20
	}
	if opts.Receipts <= 0 {
		opts.Receipts = 200
	}
	if opts.MaxItems <= 0 {
		opts.MaxItems = 5
	}
	rng := rand.New(rand.NewPCG(opts.Seed, opts.Seed^0x9e3779b97f4a7c15))

	data := &salesreport.Dataset{
		Sellers:         make([]salesreport.Seller, 0, opts.Sellers),
		Products:        make([]salesreport.Product, 0, opts.Products),
		PurchaseRecords: make([]salesreport.PurchaseRecord, 0, opts.Receipts),
	}
	for i := 0; i < opts.Sellers; i++ {
		data.Sellers = append(data.Sellers, salesreport.Seller{
			ID:        fmt.Sprintf("seller_%d", i+1),
			FirstName: firstNames[i%len(firstNames)],
			LastName:  lastNames[(i/len(firstNames)+i)%len(lastNames)],
		})
	}
	for i := 0; i < opts.Products; i++ {
		data.Products = append(data.Products, salesreport.Product{
			SKU:           fmt.Sprintf("SKU_%03d", i+1),
			Name:          fmt.Sprintf("Product %d", i+1),
			Category:      categories[i%len(categories)],
			PurchasePrice: cents(5 + rng.Float64()*95),
		})
	}
	for i := 0; i < opts.Receipts; i++ {
		sellerID := data.Sellers[rng.IntN(len(data.Sellers))].ID
		if opts.UnknownSellerPc > 0 && rng.IntN(100) < opts.UnknownSellerPc {
			sellerID = fmt.Sprintf("seller_unknown_%d", i+1)
		}
		receipt := salesreport.PurchaseRecord{
			ReceiptID: fmt.Sprintf("receipt_%d", i+1),
			SellerID:  sellerID,
		}
		lines := 1 + rng.IntN(opts.MaxItems)
		for n := 0; n < lines; n++ {
			product := data.Products[rng.IntN(len(data.Products))]
			item := salesreport.Item{
				SKU:       product.SKU,
				Quantity:  1 + rng.IntN(10),
				SalePrice: cents(product.PurchasePrice * (1.1 + rng.Float64()*0.6)),
				Discount:  float64(rng.IntN(5) * 5),
			}
			gross := item.SalePrice * float64(item.Quantity)
			receipt.TotalAmount += gross
			receipt.TotalDiscount += gross - pricing.LineRevenue(item.SalePrice, item.Quantity, item.Discount)
			receipt.Items = append(receipt.Items, item)
		}
		receipt.TotalAmount = cents(receipt.TotalAmount)
		receipt.TotalDiscount = cents(receipt.TotalDiscount)
		data.PurchaseRecords = append(data.PurchaseRecords, receipt)
	}
	return data
}

func cents(v float64) float64 {
	return salesreport.Round2(v)
}
