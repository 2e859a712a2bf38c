package library

import (
	"errors"
	"math"
)

// "No new borrows while delinquent": a student holding any overdue loan or
// any unpaid fine cannot borrow again until the record is clean.
var (
	// ErrStudentHasOverdue - the student holds overdue books.
	ErrStudentHasOverdue = errors.New("student has overdue books")

	// ErrStudentHasUnpaidFines - the student has assessed, unsettled fines.
	ErrStudentHasUnpaidFines = errors.New("student has unpaid fines")

	// ErrNoUnpaidFines - payment attempted with nothing outstanding.
	ErrNoUnpaidFines = errors.New("no unpaid fines found")

	// ErrPaymentAmountMismatch - payment does not match the outstanding sum.
	ErrPaymentAmountMismatch = errors.New("payment amount does not match total outstanding fines")
)

// FineEpsilon is the tolerance when matching a payment against the
// outstanding fine total, in currency units.
const FineEpsilon = 0.01

// CheckDelinquency enforces the borrow policy given the student's overdue
// loan count and unpaid fine total. Checks run in policy order: overdue books
// first, then fines.
func CheckDelinquency(overdueCount int, unpaidFineTotal float64) error {
	if overdueCount > 0 {
		return ErrStudentHasOverdue
	}
	if unpaidFineTotal > 0 {
		return ErrStudentHasUnpaidFines
	}
	return nil
}

// PaymentMatches reports whether a tendered amount settles the outstanding
// total within FineEpsilon. The difference is compared in whole paise:
// a raw float64 comparison rejects a payment off by exactly one paisa,
// because 100.01 - 100.0 lands a hair above 0.01.
func PaymentMatches(amount, outstanding float64) bool {
	paise := math.Round(math.Abs(amount-outstanding) * 100)
	return paise <= FineEpsilon*100
}
