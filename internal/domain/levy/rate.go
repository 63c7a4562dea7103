package levy

import (
	"fmt"

	"github.com/marketlevy/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Rate is an amount charged per payment period. Setups use it as the template
// rate and transactions use it to record what was collected for which period.
type Rate struct {
	Amount decimal.Decimal
	Period PaymentPeriod
}

// MoneyScale is the number of decimal places stored for amounts
const MoneyScale = 2

// NewRate validates and builds a Rate. Amounts must be positive and carry no
// more than MoneyScale decimal places; they are never rounded.
func NewRate(amount decimal.Decimal, period PaymentPeriod) (Rate, error) {
	if !amount.IsPositive() {
		return Rate{}, shared.NewValidationError("Amount must be greater than zero")
	}
	if !HasMoneyScale(amount) {
		return Rate{}, shared.NewValidationError(fmt.Sprintf("Amount cannot have more than %d decimal places", MoneyScale))
	}
	if !period.IsValid() {
		return Rate{}, shared.NewValidationError(fmt.Sprintf("Invalid payment period: %s", period))
	}
	return Rate{Amount: amount, Period: period}, nil
}

// HasMoneyScale reports whether d is representable in the stored scale.
// Trailing zeros are fine: 1.500 is 1.50.
func HasMoneyScale(d decimal.Decimal) bool {
	return d.Equal(d.Round(MoneyScale))
}

// Days returns the nominal length of the rate's period
func (r Rate) Days() int {
	return ConvertPeriodToDays(r.Period)
}

// FrequencyLabel renders the rate as "{days} days - {amount}", e.g. "7 days - 500.00"
func (r Rate) FrequencyLabel() string {
	return fmt.Sprintf("%d days - %s", r.Days(), r.Amount.StringFixed(2))
}

// Equals compares two rates by value
func (r Rate) Equals(other Rate) bool {
	return r.Period == other.Period && r.Amount.Equal(other.Amount)
}
