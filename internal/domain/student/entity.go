// Package student contains the student domain model for College Hub.
// This is core business logic - there are no external dependencies here.
package student

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ══════════════════════════════════════════════════════════════════════════════
// VALUE OBJECTS
// ══════════════════════════════════════════════════════════════════════════════

// Semester represents an academic semester number (1-8).
type Semester int

// IsValid checks that the semester is within the programme range.
func (s Semester) IsValid() bool {
	return s >= 1 && s <= 8
}

// RegNumber represents a university registration number.
type RegNumber string

// IsValid checks the registration number is plausible.
func (r RegNumber) IsValid() bool {
	s := string(r)
	return len(s) >= 4 && len(s) <= 30 && !strings.ContainsAny(s, " \t\n\r")
}

// String returns the string representation of the registration number.
func (r RegNumber) String() string {
	return string(r)
}

// ══════════════════════════════════════════════════════════════════════════════
// ENUMS
// ══════════════════════════════════════════════════════════════════════════════

// NOCStatus is the state of a student's library No-Objection Certificate.
// Transitions: pending → approved (librarian action, eligibility re-checked at
// issue time), pending → rejected, rejected → pending (reopen).
type NOCStatus string

const (
	// NOCPending - no decision yet; the default for every student.
	NOCPending NOCStatus = "pending"
	// NOCApproved - NOC issued; the student owes nothing to the library.
	NOCApproved NOCStatus = "approved"
	// NOCRejected - NOC explicitly rejected; reversible back to pending.
	NOCRejected NOCStatus = "rejected"
)

// IsValid checks that the status is one of the known values.
func (s NOCStatus) IsValid() bool {
	switch s {
	case NOCPending, NOCApproved, NOCRejected:
		return true
	default:
		return false
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// MAIN ENTITY: STUDENT
// ══════════════════════════════════════════════════════════════════════════════

// Student is the central entity of the library-clearance workflow.
//
// TotalBooksIssued and TotalBooksReturned are cumulative across all semesters
// and feed the 80% clearance computation. LibraryCleared is derived state that
// is persisted for fast reads; it must only be true when the student has no
// active or overdue loan and no unpaid fine.
type Student struct {
	// ID is the internal unique identifier (UUID in string form).
	ID string

	// RegNumber is the university registration number.
	RegNumber RegNumber

	// Name is the student's full name.
	Name string

	// Email receives library notifications.
	Email string

	// CurrentSemester is the semester the student is enrolled in.
	CurrentSemester Semester

	// TotalBooksIssued counts every borrow across all semesters.
	TotalBooksIssued int

	// TotalBooksReturned counts every return across all semesters.
	// Invariant: TotalBooksReturned <= TotalBooksIssued.
	TotalBooksReturned int

	// NOCStatus is the current NOC decision state.
	NOCStatus NOCStatus

	// NOCIssuedAt is when the NOC was approved (zero when not approved).
	NOCIssuedAt time.Time

	// NOCIssuedBy is the identity of the issuing librarian.
	NOCIssuedBy string

	// LibraryCleared is the persisted derived clearance flag.
	LibraryCleared bool

	// CreatedAt is when the record was created.
	CreatedAt time.Time

	// UpdatedAt is when the record was last updated.
	UpdatedAt time.Time
}

// ══════════════════════════════════════════════════════════════════════════════
// DOMAIN ERRORS
// ══════════════════════════════════════════════════════════════════════════════

var (
	// ErrInvalidRegNumber - malformed registration number.
	ErrInvalidRegNumber = errors.New("invalid registration number")

	// ErrInvalidSemester - semester outside 1-8.
	ErrInvalidSemester = errors.New("invalid semester: must be between 1 and 8")

	// ErrInvalidName - empty or oversized name.
	ErrInvalidName = errors.New("invalid name: must be 1-100 chars")

	// ErrInvalidEmail - obviously malformed email.
	ErrInvalidEmail = errors.New("invalid email")

	// ErrReturnsExceedIssues - a return would push returned above issued.
	ErrReturnsExceedIssues = errors.New("returned count cannot exceed issued count")

	// ErrStudentNotFound - student not found.
	ErrStudentNotFound = errors.New("student not found")

	// ErrStudentAlreadyExists - duplicate registration number.
	ErrStudentAlreadyExists = errors.New("student already exists")

	// ErrNOCNotPending - NOC decision attempted from a non-pending state.
	ErrNOCNotPending = errors.New("noc status is not pending")

	// ErrNOCNotRejected - reopen attempted on a non-rejected NOC.
	ErrNOCNotRejected = errors.New("noc status is not rejected")
)

// ══════════════════════════════════════════════════════════════════════════════
// FACTORY & VALIDATION
// ══════════════════════════════════════════════════════════════════════════════

// NewStudentParams contains the parameters for creating a new student.
type NewStudentParams struct {
	ID              string
	RegNumber       RegNumber
	Name            string
	Email           string
	CurrentSemester Semester
}

// NewStudent creates a new student with full validation. New students start
// with a pending NOC and a clear library record.
func NewStudent(params NewStudentParams) (*Student, error) {
	if params.ID == "" {
		return nil, errors.New("student id is required")
	}

	if !params.RegNumber.IsValid() {
		return nil, ErrInvalidRegNumber
	}

	name := strings.TrimSpace(params.Name)
	if len(name) == 0 || len(name) > 100 {
		return nil, ErrInvalidName
	}

	if !strings.Contains(params.Email, "@") {
		return nil, ErrInvalidEmail
	}

	if !params.CurrentSemester.IsValid() {
		return nil, ErrInvalidSemester
	}

	now := time.Now().UTC()

	return &Student{
		ID:              params.ID,
		RegNumber:       params.RegNumber,
		Name:            name,
		Email:           params.Email,
		CurrentSemester: params.CurrentSemester,
		NOCStatus:       NOCPending,
		LibraryCleared:  true,
		CreatedAt:       now,
		UpdatedAt:       now,
	}, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// DOMAIN METHODS (Business Logic)
// ══════════════════════════════════════════════════════════════════════════════

// RecordBookIssued increments the cumulative issued counter. Borrowing a book
// always leaves the student not cleared until everything is returned and paid.
func (s *Student) RecordBookIssued() {
	s.TotalBooksIssued++
	s.LibraryCleared = false
	s.UpdatedAt = time.Now().UTC()
}

// RecordBookReturned increments the cumulative returned counter.
// The cleared flag is recomputed by the caller, which knows whether any loans
// or unpaid fines remain.
func (s *Student) RecordBookReturned() error {
	if s.TotalBooksReturned+1 > s.TotalBooksIssued {
		return ErrReturnsExceedIssues
	}
	s.TotalBooksReturned++
	s.UpdatedAt = time.Now().UTC()
	return nil
}

// SetCleared records the derived clearance flag.
func (s *Student) SetCleared(cleared bool) {
	s.LibraryCleared = cleared
	s.UpdatedAt = time.Now().UTC()
}

// ApproveNOC moves the NOC from pending to approved. Eligibility must have
// been re-checked by the caller immediately before this call.
func (s *Student) ApproveNOC(issuerID string, at time.Time) error {
	if s.NOCStatus != NOCPending {
		return ErrNOCNotPending
	}
	s.NOCStatus = NOCApproved
	s.NOCIssuedAt = at
	s.NOCIssuedBy = issuerID
	s.LibraryCleared = true
	s.UpdatedAt = time.Now().UTC()
	return nil
}

// RejectNOC moves the NOC from pending to rejected.
func (s *Student) RejectNOC() error {
	if s.NOCStatus != NOCPending {
		return ErrNOCNotPending
	}
	s.NOCStatus = NOCRejected
	s.UpdatedAt = time.Now().UTC()
	return nil
}

// ReopenNOC moves a rejected NOC back to pending.
func (s *Student) ReopenNOC() error {
	if s.NOCStatus != NOCRejected {
		return ErrNOCNotRejected
	}
	s.NOCStatus = NOCPending
	s.UpdatedAt = time.Now().UTC()
	return nil
}

// AdvanceSemester moves the student to the given semester. Clearance gating
// for semesters 5 and 7 is enforced by the registration workflow before this
// is called.
func (s *Student) AdvanceSemester(target Semester) error {
	if !target.IsValid() {
		return ErrInvalidSemester
	}
	if target <= s.CurrentSemester {
		return fmt.Errorf("target semester %d is not ahead of current %d", target, s.CurrentSemester)
	}
	s.CurrentSemester = target
	s.UpdatedAt = time.Now().UTC()
	return nil
}

// ReturnRatio returns the cumulative return ratio in [0,1]. With nothing
// issued the ratio is vacuously 1.
func (s *Student) ReturnRatio() float64 {
	if s.TotalBooksIssued == 0 {
		return 1
	}
	return float64(s.TotalBooksReturned) / float64(s.TotalBooksIssued)
}

// String returns a short representation for logging.
func (s *Student) String() string {
	return fmt.Sprintf("Student{ID: %s, Reg: %s, Sem: %d, NOC: %s}",
		s.ID, s.RegNumber, s.CurrentSemester, s.NOCStatus)
}

// Clone creates a copy of the student.
func (s *Student) Clone() *Student {
	if s == nil {
		return nil
	}
	clone := *s
	return &clone
}
