package levy

import (
	"time"

	"github.com/shopspring/decimal"
)

// BreakdownStatus summarizes a trader's standing
type BreakdownStatus string

const (
	BreakdownStatusOverdue  BreakdownStatus = "Overdue"
	BreakdownStatusPending  BreakdownStatus = "Pending"
	BreakdownStatusUpToDate BreakdownStatus = "Up to Date"
)

// OccupancyAmounts holds one amount bucket per occupancy type. Only the
// bucket of the trader's own occupancy type is ever filled.
type OccupancyAmounts struct {
	OpenSpace decimal.Decimal `json:"open_space"`
	Kiosk     decimal.Decimal `json:"kiosk"`
	Shop      decimal.Decimal `json:"shop"`
	Warehouse decimal.Decimal `json:"warehouse"`
}

func (o *OccupancyAmounts) set(occupancy OccupancyType, amount decimal.Decimal) {
	switch occupancy {
	case OccupancyOpenSpace:
		o.OpenSpace = amount
	case OccupancyKiosk:
		o.Kiosk = amount
	case OccupancyShop:
		o.Shop = amount
	case OccupancyWarehouse:
		o.Warehouse = amount
	}
}

// Breakdown is the amount a trader owes right now
type Breakdown struct {
	CurrentAmount    decimal.Decimal
	Arrears          decimal.Decimal
	TotalAmount      decimal.Decimal
	OverdueDays      int
	Status           BreakdownStatus
	OutstandingCount int
	ByOccupancy      OccupancyAmounts
	LastPaymentDate  *time.Time
	NextDueDate      *time.Time
}

// CalculateBreakdown combines the current period's charge with arrears from
// the trader's history. history must not contain setup records; it is walked
// once and not mutated.
//
// Outstanding means PENDING, UNPAID or FAILED. Status is Overdue when any
// outstanding row has a due date before today, Pending when any outstanding
// row exists, otherwise Up to Date. Overdue days are counted from the earliest
// outstanding due date.
func CalculateBreakdown(occupancy OccupancyType, setup *LevySetup, history []*LevyTransaction, now time.Time) Breakdown {
	today := StartOfDay(now)

	b := Breakdown{
		CurrentAmount: decimal.Zero,
		Arrears:       decimal.Zero,
		Status:        BreakdownStatusUpToDate,
	}
	if setup != nil {
		b.CurrentAmount = setup.Rate.Amount
	}

	var earliestDue *time.Time
	overdue := false

	for _, tx := range history {
		if tx == nil {
			continue
		}
		if tx.Status == TransactionStatusPaid {
			if b.LastPaymentDate == nil || tx.PaymentDate.After(*b.LastPaymentDate) {
				paid := tx.PaymentDate
				b.LastPaymentDate = &paid
			}
			continue
		}
		if !tx.Status.IsOutstanding() {
			continue
		}

		b.OutstandingCount++
		b.Arrears = b.Arrears.Add(tx.Rate.Amount)

		if tx.DueDate == nil {
			continue
		}
		due := StartOfDay(*tx.DueDate)
		if due.Before(today) {
			overdue = true
		}
		if earliestDue == nil || due.Before(*earliestDue) {
			earliestDue = &due
		}
	}

	b.TotalAmount = b.CurrentAmount.Add(b.Arrears)
	b.ByOccupancy.set(occupancy, b.TotalAmount)

	if earliestDue != nil {
		if days := DaysBetween(*earliestDue, today); days > 0 {
			b.OverdueDays = days
		}
	}

	switch {
	case overdue:
		b.Status = BreakdownStatusOverdue
	case b.OutstandingCount > 0:
		b.Status = BreakdownStatusPending
	}

	if setup != nil && b.LastPaymentDate != nil {
		next := ComputeNextDueDate(*b.LastPaymentDate, setup.Rate.Period)
		b.NextDueDate = &next
	}

	return b
}
