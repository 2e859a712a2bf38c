package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/campus-hub/college-hub/internal/domain/library"
)

// ══════════════════════════════════════════════════════════════════════════════
// BOOK REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// BookRepository implements library.BookRepository for PostgreSQL.
type BookRepository struct {
	conn *Connection
}

// NewBookRepository creates a new BookRepository.
func NewBookRepository(conn *Connection) *BookRepository {
	return &BookRepository{conn: conn}
}

const bookColumns = `
	id, isbn, title, author, department, subject,
	total_copies, available_copies, status,
	price, replacement_cost, daily_fine, max_borrow_days,
	created_at, updated_at
`

// Create adds a catalog entry.
func (r *BookRepository) Create(ctx context.Context, b *library.Book) error {
	query := `
		INSERT INTO books (
			id, isbn, title, author, department, subject,
			total_copies, available_copies, status,
			price, replacement_cost, daily_fine, max_borrow_days,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`

	_, err := r.conn.Exec(ctx, query,
		b.ID,
		b.ISBN,
		b.Title,
		b.Author,
		string(b.Department),
		b.Subject,
		b.TotalCopies,
		b.AvailableCopies,
		string(b.Status),
		b.Price,
		b.ReplacementCost,
		b.DailyFine,
		b.MaxBorrowDays,
		b.CreatedAt,
		b.UpdatedAt,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return library.ErrBookAlreadyExists
		}
		return fmt.Errorf("failed to create book: %w", err)
	}

	return nil
}

// GetByID returns a book by internal ID.
func (r *BookRepository) GetByID(ctx context.Context, id string) (*library.Book, error) {
	query := `SELECT ` + bookColumns + ` FROM books WHERE id = $1`

	row := r.conn.QueryRow(ctx, query, id)
	return scanBook(row)
}

// Update persists changes to a catalog entry. Copy counters are updated only
// through TakeCopy and ReturnCopy.
func (r *BookRepository) Update(ctx context.Context, b *library.Book) error {
	query := `
		UPDATE books SET
			isbn = $1,
			title = $2,
			author = $3,
			department = $4,
			subject = $5,
			status = $6,
			price = $7,
			replacement_cost = $8,
			daily_fine = $9,
			max_borrow_days = $10,
			updated_at = $11
		WHERE id = $12
	`

	result, err := r.conn.Exec(ctx, query,
		b.ISBN,
		b.Title,
		b.Author,
		string(b.Department),
		b.Subject,
		string(b.Status),
		b.Price,
		b.ReplacementCost,
		b.DailyFine,
		b.MaxBorrowDays,
		time.Now().UTC(),
		b.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update book: %w", err)
	}

	if result.RowsAffected() == 0 {
		return library.ErrBookNotFound
	}

	return nil
}

// TakeCopy atomically decrements available copies if at least one copy is on
// the shelf. The WHERE clause is the guard: under concurrent borrows of the
// last copy, exactly one UPDATE matches and the rest report unavailable.
func (r *BookRepository) TakeCopy(ctx context.Context, bookID string) error {
	query := `
		UPDATE books SET
			available_copies = available_copies - 1,
			status = CASE WHEN available_copies - 1 = 0 THEN 'borrowed' ELSE status END,
			updated_at = NOW()
		WHERE id = $1 AND available_copies > 0 AND status != 'maintenance'
	`

	result, err := r.conn.Exec(ctx, query, bookID)
	if err != nil {
		return fmt.Errorf("failed to take copy: %w", err)
	}

	if result.RowsAffected() == 0 {
		// Distinguish a missing book from an empty shelf.
		var exists bool
		if err := r.conn.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM books WHERE id = $1)`, bookID).Scan(&exists); err != nil {
			return fmt.Errorf("failed to check book existence: %w", err)
		}
		if !exists {
			return library.ErrBookNotFound
		}
		return library.ErrBookUnavailable
	}

	return nil
}

// ReturnCopy atomically increments available copies, capped at total copies.
func (r *BookRepository) ReturnCopy(ctx context.Context, bookID string) error {
	query := `
		UPDATE books SET
			available_copies = available_copies + 1,
			status = CASE WHEN status = 'borrowed' THEN 'available' ELSE status END,
			updated_at = NOW()
		WHERE id = $1 AND available_copies < total_copies
	`

	result, err := r.conn.Exec(ctx, query, bookID)
	if err != nil {
		return fmt.Errorf("failed to return copy: %w", err)
	}

	if result.RowsAffected() == 0 {
		var exists bool
		if err := r.conn.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM books WHERE id = $1)`, bookID).Scan(&exists); err != nil {
			return fmt.Errorf("failed to check book existence: %w", err)
		}
		if !exists {
			return library.ErrBookNotFound
		}
		// Already at full capacity; nothing to do.
	}

	return nil
}

// scanBook scans a book from a row.
func scanBook(row pgx.Row) (*library.Book, error) {
	var (
		b          library.Book
		department string
		status     string
	)

	err := row.Scan(
		&b.ID,
		&b.ISBN,
		&b.Title,
		&b.Author,
		&department,
		&b.Subject,
		&b.TotalCopies,
		&b.AvailableCopies,
		&status,
		&b.Price,
		&b.ReplacementCost,
		&b.DailyFine,
		&b.MaxBorrowDays,
		&b.CreatedAt,
		&b.UpdatedAt,
	)
	if err != nil {
		if IsNoRows(err) {
			return nil, library.ErrBookNotFound
		}
		return nil, fmt.Errorf("failed to scan book: %w", err)
	}

	b.Department = library.Department(department)
	b.Status = library.BookStatus(status)

	return &b, nil
}
