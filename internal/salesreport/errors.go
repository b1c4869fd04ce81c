package salesreport

import "errors"

var (
	// ErrMissingData is returned when no dataset is supplied.
	ErrMissingData = errors.New("sales data missing")
	// ErrInvalidSellers indicates the seller collection is absent or empty.
	ErrInvalidSellers = errors.New("invalid seller data")
	// ErrInvalidProducts indicates the product collection is absent or empty.
	ErrInvalidProducts = errors.New("invalid product data")
	// ErrInvalidPurchaseRecords indicates the purchase record collection is absent or empty.
	ErrInvalidPurchaseRecords = errors.New("invalid purchase record data")
	// ErrInvalidOptions is returned when no options bundle is supplied.
	ErrInvalidOptions = errors.New("invalid analysis options")
	// ErrMissingStrategies is returned when the revenue or bonus strategy is missing.
	ErrMissingStrategies = errors.New("revenue and bonus strategies are required")
)

// IsValidationError reports whether err is one of the input validation errors raised by Analyze.
func IsValidationError(err error) bool {
	for _, target := range []error{
		ErrMissingData,
		ErrInvalidSellers,
		ErrInvalidProducts,
		ErrInvalidPurchaseRecords,
		ErrInvalidOptions,
		ErrMissingStrategies,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
