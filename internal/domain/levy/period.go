package levy

import (
	"strings"
	"time"
)

// PaymentPeriod is the billing cycle a levy rate applies to
type PaymentPeriod string

const (
	PeriodDaily      PaymentPeriod = "DAILY"
	PeriodWeekly     PaymentPeriod = "WEEKLY"
	PeriodBiWeekly   PaymentPeriod = "BI_WEEKLY"
	PeriodMonthly    PaymentPeriod = "MONTHLY"
	PeriodQuarterly  PaymentPeriod = "QUARTERLY"
	PeriodHalfYearly PaymentPeriod = "HALF_YEARLY"
	PeriodYearly     PaymentPeriod = "YEARLY"
)

// periodDays is the nominal length of each period. Used for labels and
// reporting only; due dates go through ComputeNextDueDate.
var periodDays = map[PaymentPeriod]int{
	PeriodDaily:      1,
	PeriodWeekly:     7,
	PeriodBiWeekly:   14,
	PeriodMonthly:    30,
	PeriodQuarterly:  90,
	PeriodHalfYearly: 180,
	PeriodYearly:     365,
}

// AllPaymentPeriods returns every supported period, shortest first
func AllPaymentPeriods() []PaymentPeriod {
	return []PaymentPeriod{
		PeriodDaily,
		PeriodWeekly,
		PeriodBiWeekly,
		PeriodMonthly,
		PeriodQuarterly,
		PeriodHalfYearly,
		PeriodYearly,
	}
}

// IsValid checks if the payment period is a known value
func (p PaymentPeriod) IsValid() bool {
	_, ok := periodDays[p]
	return ok
}

// String returns the string representation of PaymentPeriod
func (p PaymentPeriod) String() string {
	return string(p)
}

// ParsePaymentPeriod accepts the canonical value as well as the spellings
// clients tend to send ("BiWeekly", "half-yearly", "monthly").
func ParsePaymentPeriod(s string) (PaymentPeriod, bool) {
	norm := strings.ToUpper(strings.TrimSpace(s))
	norm = strings.NewReplacer("-", "_", " ", "_").Replace(norm)
	switch norm {
	case "BIWEEKLY":
		norm = string(PeriodBiWeekly)
	case "HALFYEARLY":
		norm = string(PeriodHalfYearly)
	}
	p := PaymentPeriod(norm)
	return p, p.IsValid()
}

// ConvertPeriodToDays returns the nominal day count of a period.
// Unknown periods fall back to the daily length.
func ConvertPeriodToDays(period PaymentPeriod) int {
	if days, ok := periodDays[period]; ok {
		return days
	}
	return periodDays[PeriodDaily]
}

// ComputeNextDueDate returns the date the next payment falls due after
// lastPaymentDate. Month based periods keep the day of month and clamp to the
// end of shorter months, so Jan 31 + Monthly is Feb 28 (Feb 29 in leap years).
// Unknown periods advance by one day.
func ComputeNextDueDate(lastPaymentDate time.Time, period PaymentPeriod) time.Time {
	switch period {
	case PeriodDaily:
		return lastPaymentDate.AddDate(0, 0, 1)
	case PeriodWeekly:
		return lastPaymentDate.AddDate(0, 0, 7)
	case PeriodBiWeekly:
		return lastPaymentDate.AddDate(0, 0, 14)
	case PeriodMonthly:
		return addMonthsClamped(lastPaymentDate, 1)
	case PeriodQuarterly:
		return addMonthsClamped(lastPaymentDate, 3)
	case PeriodHalfYearly:
		return addMonthsClamped(lastPaymentDate, 6)
	case PeriodYearly:
		return addMonthsClamped(lastPaymentDate, 12)
	default:
		return lastPaymentDate.AddDate(0, 0, 1)
	}
}

// IsPaymentDue reports whether a payment is due at now. A nil lastPayment
// means the trader has never paid, which makes the levy due immediately with
// today as the due date. Comparison is at date granularity.
func IsPaymentDue(lastPayment *time.Time, period PaymentPeriod, now time.Time) (bool, time.Time) {
	today := StartOfDay(now)
	if lastPayment == nil {
		return true, today
	}
	next := StartOfDay(ComputeNextDueDate(*lastPayment, period))
	return !today.Before(next), next
}

// StartOfDay truncates t to midnight in its own location
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// DaysBetween returns the whole calendar days from a to b (negative if b is
// before a). DST shifts are absorbed by rounding.
func DaysBetween(a, b time.Time) int {
	hours := StartOfDay(b).Sub(StartOfDay(a)).Hours()
	if hours >= 0 {
		return int(hours/24 + 0.5)
	}
	return -int(-hours/24 + 0.5)
}

// time.AddDate normalizes overflow (Jan 31 + 1 month is Mar 3), so the day is
// clamped to the last day of the target month first.
func addMonthsClamped(t time.Time, months int) time.Time {
	y, m, d := t.Date()
	firstOfTarget := time.Date(y, m+time.Month(months), 1, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
	lastDay := firstOfTarget.AddDate(0, 1, -1).Day()
	if d > lastDay {
		d = lastDay
	}
	return time.Date(firstOfTarget.Year(), firstOfTarget.Month(), d, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}
