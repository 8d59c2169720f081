package money

import (
	"fmt"
	"strings"

	"github.com/emekaobi/shortlet-payments/internal/domain/errors"
	"github.com/google/uuid"
)

// Amount is a monetary value in the smallest currency unit (kobo, cents).
// Money never crosses a boundary as a float.
type Amount struct {
	Minor    int64
	Currency string
}

// String returns a human-readable representation of the amount.
func (a Amount) String() string {
	whole := a.Minor / 100
	frac := a.Minor % 100
	if frac < 0 {
		frac = -frac
	}
	return fmt.Sprintf("%d.%02d %s", whole, frac, a.Currency)
}

// Validate checks that the amount is positive with a 3-letter ISO code.
func (a Amount) Validate() error {
	if a.Minor <= 0 {
		return errors.NewValidationError("amount_minor", "must be greater than 0")
	}
	if len(a.Currency) != 3 {
		return errors.NewValidationError("currency", "must be a 3-letter ISO code")
	}
	return nil
}

// Equal reports whether two amounts are the same value in the same
// currency. Currency comparison is case-insensitive; providers are not
// consistent about casing in verify payloads.
func (a Amount) Equal(b Amount) bool {
	return a.Minor == b.Minor && strings.EqualFold(a.Currency, b.Currency)
}

// MajorToMinor converts a major-unit value (e.g. naira) to minor units.
// Used only at provider boundaries that speak major units.
func MajorToMinor(major int64) int64 {
	return major * 100
}

// NewReference generates a payment reference unique per intent. The
// prefix keeps references greppable in provider dashboards.
func NewReference() string {
	return "slt_" + strings.ReplaceAll(uuid.New().String(), "-", "")
}
