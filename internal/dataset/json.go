package dataset

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/noah-isme/sales-insight/internal/salesreport"
)

// Source loads a complete dataset snapshot for one analysis run.
type Source interface {
	Name() string
	Load(ctx context.Context) (*salesreport.Dataset, error)
}

// FileSource reads a JSON dataset document from disk on every Load.
type FileSource struct {
	Path string
}

// Name identifies the source in logs and metrics.
func (s FileSource) Name() string { return "file" }

// Load opens and decodes the configured file.
func (s FileSource) Load(ctx context.Context) (*salesreport.Dataset, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := os.Open(s.Path)
	if err != nil {
		return nil, fmt.Errorf("dataset: open %s: %w", s.Path, err)
	}
	defer f.Close()
	return Decode(f)
}

// Decode parses a JSON document with sellers, products and purchase_records arrays.
// A collection that is present but not an array is reported with the matching
// salesreport validation error, unless an earlier collection is already empty, in
// which case that earlier error wins as it would in salesreport.Validate. Absent or
// null collections decode to nil and are left for salesreport.Analyze to reject.
// Anything after the document is an error.
func Decode(r io.Reader) (*salesreport.Dataset, error) {
	dec := json.NewDecoder(r)
	var doc json.RawMessage
	if err := dec.Decode(&doc); err != nil {
		if err == io.EOF {
			return nil, salesreport.ErrMissingData
		}
		return nil, fmt.Errorf("dataset: decode: %w", err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, errors.New("dataset: decode: unexpected data after document")
	}
	doc = bytes.TrimSpace(doc)
	if len(doc) == 0 || bytes.Equal(doc, []byte("null")) {
		return nil, salesreport.ErrMissingData
	}
	if doc[0] != '{' {
		return nil, fmt.Errorf("%w: expected a JSON object", salesreport.ErrMissingData)
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(doc, &fields); err != nil {
		return nil, fmt.Errorf("dataset: decode: %w", err)
	}
	data := &salesreport.Dataset{}
	shapeErrs := []error{
		decodeList(fields["sellers"], &data.Sellers, salesreport.ErrInvalidSellers),
		decodeList(fields["products"], &data.Products, salesreport.ErrInvalidProducts),
		decodeList(fields["purchase_records"], &data.PurchaseRecords, salesreport.ErrInvalidPurchaseRecords),
	}
	earlier := []struct {
		present bool
		err     error
	}{
		{len(data.Sellers) > 0, salesreport.ErrInvalidSellers},
		{len(data.Products) > 0, salesreport.ErrInvalidProducts},
	}
	for i, err := range shapeErrs {
		if err == nil {
			continue
		}
		for _, prev := range earlier[:i] {
			if !prev.present {
				return nil, prev.err
			}
		}
		return nil, err
	}
	return data, nil
}

func decodeList[T any](raw json.RawMessage, dst *[]T, kind error) error {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil
	}
	if raw[0] != '[' {
		return fmt.Errorf("%w: expected an array", kind)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("%w: %v", kind, err)
	}
	return nil
}

// Encode writes data as an indented JSON document readable by Decode.
func Encode(w io.Writer, data *salesreport.Dataset) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(data)
}

// Fingerprint returns a stable SHA-256 digest of the dataset's JSON form.
func Fingerprint(data *salesreport.Dataset) (string, error) {
	payload, err := json.Marshal(data)
	if err != nil {
		return "", fmt.Errorf("dataset: fingerprint: %w", err)
	}
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:]), nil
}
