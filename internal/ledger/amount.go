package ledger

import (
	"encoding/json"
	"errors"
	"fmt"
)

// AmountDecodeError translates a request body decode failure. An "amount"
// that is not an int64 (fractional, out of range, or not a number) becomes
// ErrInvalidAmount; anything else is returned unchanged.
func AmountDecodeError(err error) error {
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) && typeErr.Field == "amount" {
		return fmt.Errorf("%w: %s", ErrInvalidAmount, typeErr.Value)
	}
	return err
}
