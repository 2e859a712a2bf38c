package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/campus-hub/college-hub/internal/domain/library"
)

// ══════════════════════════════════════════════════════════════════════════════
// LOAN REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// LoanRepository implements library.LoanRepository for PostgreSQL.
//
// The partial unique index idx_loans_outstanding_pair turns a concurrent
// duplicate borrow into a unique violation, surfaced here as
// ErrLoanAlreadyOutstanding.
type LoanRepository struct {
	conn *Connection
}

// NewLoanRepository creates a new LoanRepository.
func NewLoanRepository(conn *Connection) *LoanRepository {
	return &LoanRepository{conn: conn}
}

const loanColumns = `
	id, book_id, student_id, borrow_date, due_date, return_date,
	status, condition, renew_count,
	fine_amount, fine_paid, fine_payment_date, payment_mode, notes,
	created_at, updated_at
`

// Create records a new loan.
func (r *LoanRepository) Create(ctx context.Context, l *library.Loan) error {
	query := `
		INSERT INTO loans (
			id, book_id, student_id, borrow_date, due_date, return_date,
			status, condition, renew_count,
			fine_amount, fine_paid, fine_payment_date, payment_mode, notes,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	`

	_, err := r.conn.Exec(ctx, query,
		l.ID,
		l.BookID,
		l.StudentID,
		l.BorrowDate,
		l.DueDate,
		nullableTime(l.ReturnDate),
		string(l.Status),
		string(l.Condition),
		l.RenewCount,
		l.FineAmount,
		l.FinePaid,
		nullableTime(l.FinePaymentDate),
		l.PaymentMode,
		l.Notes,
		l.CreatedAt,
		l.UpdatedAt,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return library.ErrLoanAlreadyOutstanding
		}
		return fmt.Errorf("failed to create loan: %w", err)
	}

	return nil
}

// GetByID returns a loan by internal ID.
func (r *LoanRepository) GetByID(ctx context.Context, id string) (*library.Loan, error) {
	query := `SELECT ` + loanColumns + ` FROM loans WHERE id = $1`

	row := r.conn.QueryRow(ctx, query, id)
	return scanLoan(row)
}

// FindOutstanding returns the active or overdue loan for the pair.
func (r *LoanRepository) FindOutstanding(ctx context.Context, bookID, studentID string) (*library.Loan, error) {
	query := `SELECT ` + loanColumns + `
		FROM loans
		WHERE book_id = $1 AND student_id = $2 AND status IN ('active', 'overdue')`

	row := r.conn.QueryRow(ctx, query, bookID, studentID)
	return scanLoan(row)
}

// ListOutstandingByStudent returns every active or overdue loan of the student.
func (r *LoanRepository) ListOutstandingByStudent(ctx context.Context, studentID string) ([]*library.Loan, error) {
	query := `SELECT ` + loanColumns + `
		FROM loans
		WHERE student_id = $1 AND status IN ('active', 'overdue')
		ORDER BY due_date`

	return r.queryLoans(ctx, query, studentID)
}

// ListUnpaidFinesByStudent returns every loan with an assessed, unsettled fine.
func (r *LoanRepository) ListUnpaidFinesByStudent(ctx context.Context, studentID string) ([]*library.Loan, error) {
	query := `SELECT ` + loanColumns + `
		FROM loans
		WHERE student_id = $1 AND fine_amount > 0 AND fine_paid = FALSE
		ORDER BY created_at`

	return r.queryLoans(ctx, query, studentID)
}

// ListOverdue returns every loan currently in overdue status.
func (r *LoanRepository) ListOverdue(ctx context.Context) ([]*library.Loan, error) {
	query := `SELECT ` + loanColumns + `
		FROM loans
		WHERE status = 'overdue'
		ORDER BY student_id, due_date`

	return r.queryLoans(ctx, query)
}

// CountOverdueByStudent returns how many overdue loans the student holds.
func (r *LoanRepository) CountOverdueByStudent(ctx context.Context, studentID string) (int, error) {
	var count int
	err := r.conn.QueryRow(ctx,
		`SELECT COUNT(*) FROM loans WHERE student_id = $1 AND status = 'overdue'`,
		studentID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count overdue loans: %w", err)
	}
	return count, nil
}

// Update persists changes to a loan.
func (r *LoanRepository) Update(ctx context.Context, l *library.Loan) error {
	query := `
		UPDATE loans SET
			due_date = $1,
			return_date = $2,
			status = $3,
			condition = $4,
			renew_count = $5,
			fine_amount = $6,
			fine_paid = $7,
			fine_payment_date = $8,
			payment_mode = $9,
			notes = $10,
			updated_at = $11
		WHERE id = $12
	`

	result, err := r.conn.Exec(ctx, query,
		l.DueDate,
		nullableTime(l.ReturnDate),
		string(l.Status),
		string(l.Condition),
		l.RenewCount,
		l.FineAmount,
		l.FinePaid,
		nullableTime(l.FinePaymentDate),
		l.PaymentMode,
		l.Notes,
		time.Now().UTC(),
		l.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update loan: %w", err)
	}

	if result.RowsAffected() == 0 {
		return library.ErrLoanNotFound
	}

	return nil
}

// Delete removes a loan record.
func (r *LoanRepository) Delete(ctx context.Context, id string) error {
	result, err := r.conn.Exec(ctx, `DELETE FROM loans WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete loan: %w", err)
	}
	if result.RowsAffected() == 0 {
		return library.ErrLoanNotFound
	}
	return nil
}

// MarkOverdueBefore transitions every active loan past the cutoff to overdue
// and returns the affected loans. A single UPDATE makes the sweep idempotent:
// already-overdue loans no longer match.
func (r *LoanRepository) MarkOverdueBefore(ctx context.Context, cutoff time.Time) ([]*library.Loan, error) {
	query := `
		UPDATE loans SET
			status = 'overdue',
			updated_at = NOW()
		WHERE status = 'active' AND due_date < $1
		RETURNING ` + loanColumns

	return r.queryLoans(ctx, query, cutoff)
}

// SettleFines marks every unpaid fine of the student as paid in one
// transaction and returns the settled loans.
func (r *LoanRepository) SettleFines(ctx context.Context, studentID string, at time.Time, paymentMode string) ([]*library.Loan, error) {
	var settled []*library.Loan

	err := r.conn.WithTx(ctx, DefaultTxOptions(), func(tx pgx.Tx) error {
		query := `
			UPDATE loans SET
				fine_paid = TRUE,
				fine_payment_date = $1,
				payment_mode = $2,
				updated_at = NOW()
			WHERE student_id = $3 AND fine_amount > 0 AND fine_paid = FALSE
			RETURNING ` + loanColumns

		rows, err := tx.Query(ctx, query, at, paymentMode, studentID)
		if err != nil {
			return fmt.Errorf("failed to settle fines: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			l, err := scanLoan(rows)
			if err != nil {
				return err
			}
			settled = append(settled, l)
		}

		return rows.Err()
	})
	if err != nil {
		return nil, err
	}

	return settled, nil
}

// queryLoans runs a query returning loan rows.
func (r *LoanRepository) queryLoans(ctx context.Context, query string, args ...interface{}) ([]*library.Loan, error) {
	rows, err := r.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query loans: %w", err)
	}
	defer rows.Close()

	loans := make([]*library.Loan, 0)
	for rows.Next() {
		l, err := scanLoan(rows)
		if err != nil {
			return nil, err
		}
		loans = append(loans, l)
	}

	return loans, rows.Err()
}

// scanLoan scans a loan from a row.
func scanLoan(row pgx.Row) (*library.Loan, error) {
	var (
		l               library.Loan
		status          string
		condition       string
		returnDate      *time.Time
		finePaymentDate *time.Time
	)

	err := row.Scan(
		&l.ID,
		&l.BookID,
		&l.StudentID,
		&l.BorrowDate,
		&l.DueDate,
		&returnDate,
		&status,
		&condition,
		&l.RenewCount,
		&l.FineAmount,
		&l.FinePaid,
		&finePaymentDate,
		&l.PaymentMode,
		&l.Notes,
		&l.CreatedAt,
		&l.UpdatedAt,
	)
	if err != nil {
		if IsNoRows(err) {
			return nil, library.ErrLoanNotFound
		}
		return nil, fmt.Errorf("failed to scan loan: %w", err)
	}

	l.Status = library.LoanStatus(status)
	l.Condition = library.Condition(condition)
	if returnDate != nil {
		l.ReturnDate = *returnDate
	}
	if finePaymentDate != nil {
		l.FinePaymentDate = *finePaymentDate
	}

	return &l, nil
}
