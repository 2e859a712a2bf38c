// Package library contains the library domain model for College Hub:
// the book catalog, loans, fine computation and the semester clearance rule.
// This is core business logic - there are no external dependencies here.
package library

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ══════════════════════════════════════════════════════════════════════════════
// ENUMS
// ══════════════════════════════════════════════════════════════════════════════

// BookStatus is the catalog-level availability state of a title.
type BookStatus string

const (
	// BookAvailable - at least one copy on the shelf.
	BookAvailable BookStatus = "available"
	// BookBorrowed - every copy is out.
	BookBorrowed BookStatus = "borrowed"
	// BookReserved - held for a reservation.
	BookReserved BookStatus = "reserved"
	// BookMaintenance - withdrawn for repair or review.
	BookMaintenance BookStatus = "maintenance"
)

// IsValid checks that the status is one of the known values.
func (s BookStatus) IsValid() bool {
	switch s {
	case BookAvailable, BookBorrowed, BookReserved, BookMaintenance:
		return true
	default:
		return false
	}
}

// Department is the academic department a title belongs to.
type Department string

const (
	DeptCSE     Department = "CSE"
	DeptEEE     Department = "EEE"
	DeptCivil   Department = "CIVIL"
	DeptMech    Department = "MECH"
	DeptECE     Department = "ECE"
	DeptGeneral Department = "GENERAL"
)

// IsValid checks that the department is one of the known values.
func (d Department) IsValid() bool {
	switch d {
	case DeptCSE, DeptEEE, DeptCivil, DeptMech, DeptECE, DeptGeneral:
		return true
	default:
		return false
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// MAIN ENTITY: BOOK
// ══════════════════════════════════════════════════════════════════════════════

// Book is a catalog entry. Invariant: TotalCopies >= AvailableCopies >= 0.
//
// AvailableCopies changes by exactly one per borrow/return, except for a copy
// returned as lost, which never re-enters availability. The conditional
// decrement that guards the last copy against concurrent borrows lives in the
// persistence layer.
type Book struct {
	// ID is the internal unique identifier (UUID in string form).
	ID string

	// Title, Author and ISBN identify the work.
	Title  string
	Author string
	ISBN   string

	// Department and Subject organize the catalog.
	Department Department
	Subject    string

	// TotalCopies is how many physical copies the library owns.
	TotalCopies int

	// AvailableCopies is how many copies are on the shelf right now.
	AvailableCopies int

	// Status is the catalog-level availability state.
	Status BookStatus

	// Price is the purchase cost of the book.
	Price float64

	// ReplacementCost is charged in full when a copy comes back lost or
	// damaged. This is the single source of truth for replacement charges.
	ReplacementCost float64

	// DailyFine is the fine per day past the due date.
	DailyFine float64

	// MaxBorrowDays is the loan period in days.
	MaxBorrowDays int

	// CreatedAt is when the record was created.
	CreatedAt time.Time

	// UpdatedAt is when the record was last updated.
	UpdatedAt time.Time
}

// ══════════════════════════════════════════════════════════════════════════════
// DOMAIN ERRORS
// ══════════════════════════════════════════════════════════════════════════════

var (
	// ErrInvalidTitle - empty title or author.
	ErrInvalidTitle = errors.New("invalid title: title and author are required")

	// ErrInvalidCopies - totalCopies < 1 or availableCopies outside [0, total].
	ErrInvalidCopies = errors.New("invalid copies: need totalCopies >= availableCopies >= 0 and totalCopies >= 1")

	// ErrInvalidPricing - negative fine, price or replacement cost.
	ErrInvalidPricing = errors.New("invalid pricing: amounts must be non-negative")

	// ErrInvalidBorrowDays - loan period shorter than one day.
	ErrInvalidBorrowDays = errors.New("invalid borrow period: must be at least 1 day")

	// ErrBookNotFound - book not found.
	ErrBookNotFound = errors.New("book not found")

	// ErrBookAlreadyExists - duplicate ISBN.
	ErrBookAlreadyExists = errors.New("book already exists")

	// ErrBookUnavailable - no copies on the shelf.
	ErrBookUnavailable = errors.New("book is not available for borrowing")
)

// Default pricing applied when the catalog entry does not specify values.
const (
	// DefaultDailyFine is the fine per overdue day.
	DefaultDailyFine = 10.0

	// DefaultMaxBorrowDays is the standard loan period.
	DefaultMaxBorrowDays = 30

	// replacementMarkup converts price to replacement cost when the latter
	// is not given explicitly.
	replacementMarkup = 1.5
)

// ══════════════════════════════════════════════════════════════════════════════
// FACTORY & VALIDATION
// ══════════════════════════════════════════════════════════════════════════════

// NewBookParams contains the parameters for adding a book to the catalog.
type NewBookParams struct {
	ID         string
	Title      string
	Author     string
	ISBN       string
	Department Department
	Subject    string

	TotalCopies int

	Price           float64
	ReplacementCost float64 // 0 means derive from Price
	DailyFine       float64 // 0 means DefaultDailyFine
	MaxBorrowDays   int     // 0 means DefaultMaxBorrowDays
}

// NewBook creates a catalog entry with full validation. All copies start on
// the shelf. Derived pricing is computed here, once, rather than by a hook on
// every save.
func NewBook(params NewBookParams) (*Book, error) {
	if params.ID == "" {
		return nil, errors.New("book id is required")
	}

	if strings.TrimSpace(params.Title) == "" || strings.TrimSpace(params.Author) == "" {
		return nil, ErrInvalidTitle
	}

	dept := params.Department
	if dept == "" {
		dept = DeptGeneral
	}
	if !dept.IsValid() {
		return nil, fmt.Errorf("invalid department: %s", params.Department)
	}

	if params.TotalCopies < 1 {
		return nil, ErrInvalidCopies
	}

	if params.Price < 0 || params.ReplacementCost < 0 || params.DailyFine < 0 {
		return nil, ErrInvalidPricing
	}

	replacement := params.ReplacementCost
	if replacement == 0 {
		replacement = params.Price * replacementMarkup
	}

	dailyFine := params.DailyFine
	if dailyFine == 0 {
		dailyFine = DefaultDailyFine
	}

	borrowDays := params.MaxBorrowDays
	if borrowDays == 0 {
		borrowDays = DefaultMaxBorrowDays
	}
	if borrowDays < 1 {
		return nil, ErrInvalidBorrowDays
	}

	now := time.Now().UTC()

	return &Book{
		ID:              params.ID,
		Title:           strings.TrimSpace(params.Title),
		Author:          strings.TrimSpace(params.Author),
		ISBN:            params.ISBN,
		Department:      dept,
		Subject:         params.Subject,
		TotalCopies:     params.TotalCopies,
		AvailableCopies: params.TotalCopies,
		Status:          BookAvailable,
		Price:           params.Price,
		ReplacementCost: replacement,
		DailyFine:       dailyFine,
		MaxBorrowDays:   borrowDays,
		CreatedAt:       now,
		UpdatedAt:       now,
	}, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// DOMAIN METHODS
// ══════════════════════════════════════════════════════════════════════════════

// HasAvailableCopy reports whether a borrow can proceed.
func (b *Book) HasAvailableCopy() bool {
	return b.AvailableCopies > 0 && b.Status != BookMaintenance
}

// TakeCopy removes one copy from the shelf, flipping status to borrowed when
// the last copy goes out. The persistence layer performs the equivalent
// conditional update atomically; this method keeps the in-memory entity
// consistent with it.
func (b *Book) TakeCopy() error {
	if b.AvailableCopies <= 0 {
		return ErrBookUnavailable
	}
	b.AvailableCopies--
	if b.AvailableCopies == 0 {
		b.Status = BookBorrowed
	}
	b.UpdatedAt = time.Now().UTC()
	return nil
}

// ReturnCopy puts one copy back on the shelf, capped at TotalCopies, and
// flips status back to available. Not called for copies returned as lost.
func (b *Book) ReturnCopy() {
	if b.AvailableCopies < b.TotalCopies {
		b.AvailableCopies++
	}
	if b.AvailableCopies > 0 && b.Status == BookBorrowed {
		b.Status = BookAvailable
	}
	b.UpdatedAt = time.Now().UTC()
}

// String returns a short representation for logging.
func (b *Book) String() string {
	return fmt.Sprintf("Book{ID: %s, Title: %q, Avail: %d/%d}",
		b.ID, b.Title, b.AvailableCopies, b.TotalCopies)
}
