package salesreport

// Seller identifies a salesperson whose receipts are attributed in a report.
type Seller struct {
	ID        string `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// Product is a catalog card carrying the purchase (cost) price of a SKU.
type Product struct {
	SKU           string  `json:"sku"`
	Name          string  `json:"name,omitempty"`
	Category      string  `json:"category,omitempty"`
	PurchasePrice float64 `json:"purchase_price"`
}

// Item is a single line of a receipt. Discount is a percentage between 0 and 100.
type Item struct {
	SKU       string  `json:"sku"`
	Quantity  int     `json:"quantity"`
	SalePrice float64 `json:"sale_price"`
	Discount  float64 `json:"discount"`
}

// PurchaseRecord is one receipt issued by a seller.
type PurchaseRecord struct {
	ReceiptID     string  `json:"receipt_id,omitempty"`
	SellerID      string  `json:"seller_id"`
	TotalAmount   float64 `json:"total_amount"`
	TotalDiscount float64 `json:"total_discount"`
	Items         []Item  `json:"items"`
}

// Dataset is a complete snapshot of the inputs for one analysis run.
type Dataset struct {
	Sellers         []Seller         `json:"sellers"`
	Products        []Product        `json:"products"`
	PurchaseRecords []PurchaseRecord `json:"purchase_records"`
}

// ProductQuantity pairs a SKU with the quantity a seller sold of it.
type ProductQuantity struct {
	SKU      string `json:"sku"`
	Quantity int    `json:"quantity"`
}

// ReportRow is the per-seller output of Analyze. Monetary fields are rounded to two decimals.
type ReportRow struct {
	SellerID    string            `json:"seller_id"`
	Name        string            `json:"name"`
	Revenue     float64           `json:"revenue"`
	Profit      float64           `json:"profit"`
	SalesCount  int               `json:"sales_count"`
	TopProducts []ProductQuantity `json:"top_products"`
	Bonus       float64           `json:"bonus"`
}

// SellerAggregate holds the running totals of one seller during an analysis run.
type SellerAggregate struct {
	ID         string
	Name       string
	Revenue    float64
	Profit     float64
	SalesCount int
	Bonus      float64

	sold tally
}

func newAggregate(s Seller) *SellerAggregate {
	return &SellerAggregate{
		ID:   s.ID,
		Name: s.FirstName + " " + s.LastName,
	}
}

// ProductsSold returns the SKU tally in first-accumulation order.
func (a SellerAggregate) ProductsSold() []ProductQuantity {
	return a.sold.list()
}

// Quantity returns the accumulated quantity sold for sku.
func (a SellerAggregate) Quantity(sku string) int {
	return a.sold.get(sku)
}

// TopProducts returns at most limit products ordered by quantity descending.
// Equal quantities keep their first-accumulation order.
func (a SellerAggregate) TopProducts(limit int) []ProductQuantity {
	return topProducts(a.sold.list(), limit)
}

func (a *SellerAggregate) row() ReportRow {
	return ReportRow{
		SellerID:    a.ID,
		Name:        a.Name,
		Revenue:     Round2(a.Revenue),
		Profit:      Round2(a.Profit),
		SalesCount:  a.SalesCount,
		TopProducts: a.TopProducts(TopProductsLimit),
		Bonus:       Round2(a.Bonus),
	}
}
