// Package export renders seller report rows for files and downloads.
package export

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/noah-isme/sales-insight/internal/salesreport"
)

// Supported output formats.
const (
	FormatJSON = "json"
	FormatCSV  = "csv"
)

// ErrUnknownFormat is returned for formats other than json and csv.
var ErrUnknownFormat = errors.New("export: unknown format")

var csvHeader = []string{"rank", "seller_id", "name", "revenue", "profit", "sales_count", "bonus", "top_products"}

// Write renders rows in the named format.
func Write(w io.Writer, format string, rows []salesreport.ReportRow) error {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", FormatJSON:
		return WriteJSON(w, rows)
	case FormatCSV:
		return WriteCSV(w, rows)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

// ContentType returns the MIME type for format.
func ContentType(format string) string {
	if strings.EqualFold(strings.TrimSpace(format), FormatCSV) {
		return "text/csv; charset=utf-8"
	}
	return "application/json"
}

// WriteJSON writes rows as an indented JSON array. A nil slice is written as [].
func WriteJSON(w io.Writer, rows []salesreport.ReportRow) error {
	if rows == nil {
		rows = []salesreport.ReportRow{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(rows)
}

// WriteCSV writes one line per row in rank order. Top products are flattened as
// "sku:qty" pairs joined by ";".
func WriteCSV(w io.Writer, rows []salesreport.ReportRow) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for i, row := range rows {
		record := []string{
			strconv.Itoa(i + 1),
			row.SellerID,
			row.Name,
			money(row.Revenue),
			money(row.Profit),
			strconv.Itoa(row.SalesCount),
			money(row.Bonus),
			topProducts(row.TopProducts),
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func money(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func topProducts(list []salesreport.ProductQuantity) string {
	parts := make([]string, 0, len(list))
	for _, p := range list {
		parts = append(parts, p.SKU+":"+strconv.Itoa(p.Quantity))
	}
	return strings.Join(parts, ";")
}
