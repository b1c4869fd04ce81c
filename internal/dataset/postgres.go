package dataset

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/noah-isme/sales-insight/internal/salesreport"
)

// Querier is the subset of pgxpool.Pool needed to read a dataset.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// Copier is the subset of pgxpool.Pool needed to bulk load a dataset.
type Copier interface {
	CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error)
}

const (
	selectSellers  = `SELECT id, first_name, last_name FROM sellers ORDER BY position`
	selectProducts = `SELECT sku, name, category, purchase_price FROM products ORDER BY position`
	selectReceipts = `SELECT position, receipt_id, seller_id, total_amount, total_discount FROM receipts ORDER BY position`
	selectItems    = `SELECT receipt_position, sku, quantity, sale_price, discount FROM receipt_items ORDER BY receipt_position, line_no`
)

// PostgresSource reads the dataset from the sellers, products, receipts and receipt_items tables.
type PostgresSource struct {
	DB Querier
}

// Name identifies the source in logs and metrics.
func (s PostgresSource) Name() string { return "postgres" }

// Load reads every table in insertion order and assembles receipts with their lines.
func (s PostgresSource) Load(ctx context.Context) (*salesreport.Dataset, error) {
	if s.DB == nil {
		return nil, fmt.Errorf("dataset: postgres source not configured")
	}
	sellers, err := collect(ctx, s.DB, selectSellers, func(row pgx.CollectableRow) (salesreport.Seller, error) {
		var v salesreport.Seller
		err := row.Scan(&v.ID, &v.FirstName, &v.LastName)
		return v, err
	})
	if err != nil {
		return nil, fmt.Errorf("dataset: load sellers: %w", err)
	}
	products, err := collect(ctx, s.DB, selectProducts, func(row pgx.CollectableRow) (salesreport.Product, error) {
		var v salesreport.Product
		err := row.Scan(&v.SKU, &v.Name, &v.Category, &v.PurchasePrice)
		return v, err
	})
	if err != nil {
		return nil, fmt.Errorf("dataset: load products: %w", err)
	}
	type receipt struct {
		position int
		record   salesreport.PurchaseRecord
	}
	rows, err := collect(ctx, s.DB, selectReceipts, func(row pgx.CollectableRow) (receipt, error) {
		var v receipt
		err := row.Scan(&v.position, &v.record.ReceiptID, &v.record.SellerID, &v.record.TotalAmount, &v.record.TotalDiscount)
		return v, err
	})
	if err != nil {
		return nil, fmt.Errorf("dataset: load receipts: %w", err)
	}

	type line struct {
		receipt int
		item    salesreport.Item
	}
	lines, err := collect(ctx, s.DB, selectItems, func(row pgx.CollectableRow) (line, error) {
		var v line
		err := row.Scan(&v.receipt, &v.item.SKU, &v.item.Quantity, &v.item.SalePrice, &v.item.Discount)
		return v, err
	})
	if err != nil {
		return nil, fmt.Errorf("dataset: load receipt items: %w", err)
	}

	receipts := make([]salesreport.PurchaseRecord, len(rows))
	byPosition := make(map[int]int, len(rows))
	for i, r := range rows {
		receipts[i] = r.record
		receipts[i].Items = []salesreport.Item{}
		byPosition[r.position] = i
	}
	for _, l := range lines {
		if i, ok := byPosition[l.receipt]; ok {
			receipts[i].Items = append(receipts[i].Items, l.item)
		}
	}

	return &salesreport.Dataset{
		Sellers:         sellers,
		Products:        products,
		PurchaseRecords: receipts,
	}, nil
}

func collect[T any](ctx context.Context, db Querier, sql string, fn pgx.RowToFunc[T]) ([]T, error) {
	rows, err := db.Query(ctx, sql)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, fn)
}

// Import bulk loads data into empty tables. Every row is keyed by its position in
// the input, so repeated seller ids, SKUs and receipt ids are stored as given and
// Load returns the same dataset.
func Import(ctx context.Context, db Copier, data *salesreport.Dataset) error {
	if data == nil {
		return salesreport.ErrMissingData
	}
	sellerRows := make([][]any, 0, len(data.Sellers))
	for i, s := range data.Sellers {
		sellerRows = append(sellerRows, []any{i, s.ID, s.FirstName, s.LastName})
	}
	productRows := make([][]any, 0, len(data.Products))
	for i, p := range data.Products {
		productRows = append(productRows, []any{i, p.SKU, p.Name, p.Category, p.PurchasePrice})
	}
	receiptRows := make([][]any, 0, len(data.PurchaseRecords))
	var itemRows [][]any
	for i, r := range data.PurchaseRecords {
		receiptRows = append(receiptRows, []any{i, r.ReceiptID, r.SellerID, r.TotalAmount, r.TotalDiscount})
		for n, item := range r.Items {
			itemRows = append(itemRows, []any{i, n, item.SKU, item.Quantity, item.SalePrice, item.Discount})
		}
	}

	tables := []struct {
		name    string
		columns []string
		rows    [][]any
	}{
		{"sellers", []string{"position", "id", "first_name", "last_name"}, sellerRows},
		{"products", []string{"position", "sku", "name", "category", "purchase_price"}, productRows},
		{"receipts", []string{"position", "receipt_id", "seller_id", "total_amount", "total_discount"}, receiptRows},
		{"receipt_items", []string{"receipt_position", "line_no", "sku", "quantity", "sale_price", "discount"}, itemRows},
	}
	for _, t := range tables {
		if _, err := db.CopyFrom(ctx, pgx.Identifier{t.name}, t.columns, pgx.CopyFromRows(t.rows)); err != nil {
			return fmt.Errorf("dataset: import %s: %w", t.name, err)
		}
	}
	return nil
}
