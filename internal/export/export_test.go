package export_test

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sales-insight/internal/export"
	"github.com/noah-isme/sales-insight/internal/salesreport"
)

var rows = []salesreport.ReportRow{
	{
		SellerID:    "seller_2",
		Name:        "Budi Santoso",
		Revenue:     1200.5,
		Profit:      300,
		SalesCount:  4,
		TopProducts: []salesreport.ProductQuantity{{SKU: "SKU_001", Quantity: 5}, {SKU: "SKU_009", Quantity: 2}},
		Bonus:       45,
	},
	{
		SellerID: "seller_1",
		Name:     "Alexey, Jr.",
		Revenue:  0,
		Profit:   -12.25,
	},
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, export.WriteCSV(&buf, rows))

	want := "rank,seller_id,name,revenue,profit,sales_count,bonus,top_products\n" +
		"1,seller_2,Budi Santoso,1200.5,300,4,45,SKU_001:5;SKU_009:2\n" +
		"2,seller_1,\"Alexey, Jr.\",0,-12.25,0,0,\n"
	require.Equal(t, want, buf.String())
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, export.WriteJSON(&buf, rows))

	var decoded []salesreport.ReportRow
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	require.Equal(t, "seller_2", decoded[0].SellerID)
	require.Equal(t, 45.0, decoded[0].Bonus)

	buf.Reset()
	require.NoError(t, export.WriteJSON(&buf, nil))
	require.JSONEq(t, "[]", buf.String())
}

func TestWriteFormat(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, export.Write(&buf, "CSV", rows[:1]))
	require.Contains(t, buf.String(), "SKU_001:5")

	require.ErrorIs(t, export.Write(&buf, "xml", rows), export.ErrUnknownFormat)
	require.Equal(t, "text/csv; charset=utf-8", export.ContentType("csv"))
	require.Equal(t, "application/json", export.ContentType(""))
}
