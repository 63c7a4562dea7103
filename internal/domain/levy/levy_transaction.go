package levy

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/marketlevy/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// AggregateTypeLevyTransaction is the aggregate type name for levy transactions
const AggregateTypeLevyTransaction = "LevyTransaction"

// TransactionStatus represents the state of a levy collection
type TransactionStatus string

const (
	TransactionStatusPending TransactionStatus = "PENDING"
	TransactionStatusPaid    TransactionStatus = "PAID"
	TransactionStatusUnpaid  TransactionStatus = "UNPAID"
	TransactionStatusFailed  TransactionStatus = "FAILED"
)

// IsValid checks if the status is a known value
func (s TransactionStatus) IsValid() bool {
	switch s {
	case TransactionStatusPending, TransactionStatusPaid, TransactionStatusUnpaid, TransactionStatusFailed:
		return true
	}
	return false
}

// IsOutstanding reports whether the amount still counts towards arrears
func (s TransactionStatus) IsOutstanding() bool {
	return s == TransactionStatusPending || s == TransactionStatusUnpaid || s == TransactionStatusFailed
}

// String returns the string representation of TransactionStatus
func (s TransactionStatus) String() string {
	return string(s)
}

// PaymentMethod represents how a levy was paid
type PaymentMethod string

const (
	PaymentMethodCash         PaymentMethod = "CASH"
	PaymentMethodBankTransfer PaymentMethod = "BANK_TRANSFER"
	PaymentMethodPOS          PaymentMethod = "POS"
	PaymentMethodMobileMoney  PaymentMethod = "MOBILE_MONEY"
	PaymentMethodUSSD         PaymentMethod = "USSD"
	PaymentMethodOther        PaymentMethod = "OTHER"
)

// IsValid checks if the payment method is a known value
func (m PaymentMethod) IsValid() bool {
	switch m {
	case PaymentMethodCash, PaymentMethodBankTransfer, PaymentMethodPOS,
		PaymentMethodMobileMoney, PaymentMethodUSSD, PaymentMethodOther:
		return true
	}
	return false
}

// String returns the string representation of PaymentMethod
func (m PaymentMethod) String() string {
	return string(m)
}

// ParsePaymentMethod normalizes client input such as "Cash" or "bank transfer"
func ParsePaymentMethod(s string) (PaymentMethod, bool) {
	norm := strings.ToUpper(strings.TrimSpace(s))
	norm = strings.NewReplacer("-", "_", " ", "_").Replace(norm)
	m := PaymentMethod(norm)
	return m, m.IsValid()
}

// LevyTransaction is a single collection event against a trader.
// Rows become immutable once paid.
type LevyTransaction struct {
	shared.BaseAggregateRoot
	TraderID             uuid.UUID
	MarketID             uuid.UUID
	CollectorID          uuid.UUID
	Rate                 Rate
	PaymentMethod        PaymentMethod
	Status               TransactionStatus
	PaymentDate          time.Time
	CollectionDate       *time.Time
	DueDate              *time.Time
	OccupancyType        OccupancyType
	TransactionReference string
	Incentive            *decimal.Decimal
	Notes                string
	IdempotencyKey       string
	QRPayload            string
}

// PaidTransactionParams holds everything needed to record a collection
type PaidTransactionParams struct {
	TraderID       uuid.UUID
	MarketID       uuid.UUID
	CollectorID    uuid.UUID
	Rate           Rate
	Method         PaymentMethod
	OccupancyType  OccupancyType
	Reference      string
	DueDate        *time.Time
	Incentive      *decimal.Decimal
	Notes          string
	IdempotencyKey string
	QRPayload      string
	Now            time.Time
}

// RecordPaidTransaction creates a transaction in the PAID state with payment
// and collection dates set to Now.
func RecordPaidTransaction(p PaidTransactionParams) (*LevyTransaction, error) {
	if p.TraderID == uuid.Nil {
		return nil, shared.NewValidationError("Trader ID cannot be empty")
	}
	if p.CollectorID == uuid.Nil {
		return nil, shared.NewValidationError("Collector ID cannot be empty")
	}
	rate, err := NewRate(p.Rate.Amount, p.Rate.Period)
	if err != nil {
		return nil, err
	}
	if !p.Method.IsValid() {
		return nil, shared.NewValidationError("Invalid payment method: " + p.Method.String())
	}
	if strings.TrimSpace(p.Reference) == "" {
		return nil, shared.NewValidationError("Transaction reference cannot be empty")
	}
	if p.Incentive != nil && p.Incentive.IsNegative() {
		return nil, shared.NewValidationError("Incentive cannot be negative")
	}
	if p.Incentive != nil && !HasMoneyScale(*p.Incentive) {
		return nil, shared.NewValidationError(fmt.Sprintf("Incentive cannot have more than %d decimal places", MoneyScale))
	}

	collected := p.Now
	tx := &LevyTransaction{
		BaseAggregateRoot:    shared.NewBaseAggregateRoot(p.Now),
		TraderID:             p.TraderID,
		MarketID:             p.MarketID,
		CollectorID:          p.CollectorID,
		Rate:                 rate,
		PaymentMethod:        p.Method,
		Status:               TransactionStatusPaid,
		PaymentDate:          p.Now,
		CollectionDate:       &collected,
		DueDate:              p.DueDate,
		OccupancyType:        p.OccupancyType,
		TransactionReference: strings.TrimSpace(p.Reference),
		Incentive:            p.Incentive,
		Notes:                strings.TrimSpace(p.Notes),
		IdempotencyKey:       p.IdempotencyKey,
		QRPayload:            p.QRPayload,
	}

	tx.AddDomainEvent(NewLevyPaymentRecordedEvent(tx))

	return tx, nil
}

// IsPaid reports whether the transaction has settled
func (t *LevyTransaction) IsPaid() bool {
	return t.Status == TransactionStatusPaid
}

// Amount is a shortcut for the collected amount
func (t *LevyTransaction) Amount() decimal.Decimal {
	return t.Rate.Amount
}

// MarkStatus moves an unsettled transaction to another unsettled state or to
// PAID. Paid transactions cannot change.
func (t *LevyTransaction) MarkStatus(status TransactionStatus, now time.Time) error {
	if t.IsPaid() {
		return shared.NewDomainError(shared.CodeInvalidState, "Paid transactions are immutable")
	}
	if !status.IsValid() {
		return shared.NewValidationError("Invalid transaction status: " + status.String())
	}
	t.Status = status
	if status == TransactionStatusPaid {
		t.CollectionDate = &now
	}
	t.Touch(now)
	return nil
}
