package domain

import "math"

// Policy holds the circulation business constants. Values come from env
// config; the defaults mirror the desk rules the library runs on.
type Policy struct {
	FinePerDay            float64
	LoanPeriodDays        int
	MaxRenewals           int
	ReservationExpiryDays int
}

func DefaultPolicy() Policy {
	return Policy{
		FinePerDay:            0.50,
		LoanPeriodDays:        14,
		MaxRenewals:           2,
		ReservationExpiryDays: 7,
	}
}

// RoundCents rounds a dollar amount to two decimal places.
func RoundCents(v float64) float64 {
	return math.Round(v*100) / 100
}

// SettleBalance deducts a payment or waiver from a member's fine balance,
// rounded to cents and floored at zero. Overpayment never drives the
// balance negative.
func SettleBalance(balance, amount float64) float64 {
	b := RoundCents(balance - amount)
	if b < 0 {
		return 0
	}
	return b
}

// DaysOverdue returns how many calendar days past due a loan is as of
// today. Zero or negative means the loan is not overdue; a loan due today
// accrues nothing.
func DaysOverdue(dueDate, today Date) int {
	return DaysBetween(dueDate, today)
}

// OverdueFine computes the fine a loan has accrued as of today at the given
// per-day rate. Returns 0 when the loan is not overdue.
func OverdueFine(dueDate, today Date, finePerDay float64) float64 {
	days := DaysOverdue(dueDate, today)
	if days <= 0 {
		return 0
	}
	return RoundCents(float64(days) * finePerDay)
}

// DeriveBookStatus is the single status-transition function for books,
// applied after every mutation that touches quantity or the hold queue.
//
//   - Lost and Damaged are terminal administrative states and pass through.
//   - Any active reservation (Pending or Available) marks the title
//     Reserved, regardless of shelf quantity.
//   - Otherwise copies on the shelf mean Available, none means Loaned.
func DeriveBookStatus(current BookStatus, quantity int, hasActiveReservation bool) BookStatus {
	if current == BookLost || current == BookDamaged {
		return current
	}
	if hasActiveReservation {
		return BookReserved
	}
	if quantity > 0 {
		return BookAvailable
	}
	return BookLoaned
}
