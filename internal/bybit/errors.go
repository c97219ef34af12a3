package bybit

import (
	"errors"
	"fmt"
)

// Setting leverage to its current value fails with this code; it is a no-op,
// not an error, and callers are expected to tolerate it.
const leverageNotModifiedCode = 110043

// ErrOrderNotFound means a direct-by-ID query returned an empty list. The
// exchange should always know an order we placed, so this is not retryable.
var ErrOrderNotFound = errors.New("order not found by id")

// APIError is a non-zero retCode response from the exchange.
type APIError struct {
	RetCode int
	RetMsg  string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("bybit: retCode %d: %s", e.RetCode, e.RetMsg)
}

// IsLeverageNotModified reports whether err is the tolerated
// "leverage not modified" rejection.
func IsLeverageNotModified(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.RetCode == leverageNotModifiedCode
}
