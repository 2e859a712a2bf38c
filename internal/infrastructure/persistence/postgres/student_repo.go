package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/campus-hub/college-hub/internal/domain/student"
)

// ══════════════════════════════════════════════════════════════════════════════
// STUDENT REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// StudentRepository implements student.Repository for PostgreSQL.
type StudentRepository struct {
	conn *Connection
}

// NewStudentRepository creates a new StudentRepository.
func NewStudentRepository(conn *Connection) *StudentRepository {
	return &StudentRepository{conn: conn}
}

const studentColumns = `
	id, reg_number, name, email, current_semester,
	total_books_issued, total_books_returned,
	noc_status, noc_issued_at, noc_issued_by, library_cleared,
	created_at, updated_at
`

// Create creates a new student.
func (r *StudentRepository) Create(ctx context.Context, s *student.Student) error {
	query := `
		INSERT INTO students (
			id, reg_number, name, email, current_semester,
			total_books_issued, total_books_returned,
			noc_status, noc_issued_at, noc_issued_by, library_cleared,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`

	_, err := r.conn.Exec(ctx, query,
		s.ID,
		s.RegNumber.String(),
		s.Name,
		s.Email,
		int(s.CurrentSemester),
		s.TotalBooksIssued,
		s.TotalBooksReturned,
		string(s.NOCStatus),
		nullableTime(s.NOCIssuedAt),
		s.NOCIssuedBy,
		s.LibraryCleared,
		s.CreatedAt,
		s.UpdatedAt,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return student.ErrStudentAlreadyExists
		}
		return fmt.Errorf("failed to create student: %w", err)
	}

	return nil
}

// GetByID returns a student by internal ID.
func (r *StudentRepository) GetByID(ctx context.Context, id string) (*student.Student, error) {
	query := `SELECT ` + studentColumns + ` FROM students WHERE id = $1`

	row := r.conn.QueryRow(ctx, query, id)
	return scanStudent(row)
}

// GetByRegNumber returns a student by registration number.
func (r *StudentRepository) GetByRegNumber(ctx context.Context, reg student.RegNumber) (*student.Student, error) {
	query := `SELECT ` + studentColumns + ` FROM students WHERE reg_number = $1`

	row := r.conn.QueryRow(ctx, query, reg.String())
	return scanStudent(row)
}

// Update updates a student.
func (r *StudentRepository) Update(ctx context.Context, s *student.Student) error {
	query := `
		UPDATE students SET
			name = $1,
			email = $2,
			current_semester = $3,
			total_books_issued = $4,
			total_books_returned = $5,
			noc_status = $6,
			noc_issued_at = $7,
			noc_issued_by = $8,
			library_cleared = $9,
			updated_at = $10
		WHERE id = $11
	`

	result, err := r.conn.Exec(ctx, query,
		s.Name,
		s.Email,
		int(s.CurrentSemester),
		s.TotalBooksIssued,
		s.TotalBooksReturned,
		string(s.NOCStatus),
		nullableTime(s.NOCIssuedAt),
		s.NOCIssuedBy,
		s.LibraryCleared,
		time.Now().UTC(),
		s.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update student: %w", err)
	}

	if result.RowsAffected() == 0 {
		return student.ErrStudentNotFound
	}

	return nil
}

// ListByNOCStatus returns students filtered by NOC status.
func (r *StudentRepository) ListByNOCStatus(ctx context.Context, status student.NOCStatus, limit, offset int) ([]*student.Student, error) {
	query := `SELECT ` + studentColumns + `
		FROM students
		WHERE noc_status = $1
		ORDER BY reg_number
		LIMIT $2 OFFSET $3`

	rows, err := r.conn.Query(ctx, query, string(status), limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list students: %w", err)
	}
	defer rows.Close()

	students := make([]*student.Student, 0)
	for rows.Next() {
		s, err := scanStudent(rows)
		if err != nil {
			return nil, err
		}
		students = append(students, s)
	}

	return students, rows.Err()
}

// scanStudent scans a student from a row.
func scanStudent(row pgx.Row) (*student.Student, error) {
	var (
		s           student.Student
		regNumber   string
		semester    int
		nocStatus   string
		nocIssuedAt *time.Time
	)

	err := row.Scan(
		&s.ID,
		&regNumber,
		&s.Name,
		&s.Email,
		&semester,
		&s.TotalBooksIssued,
		&s.TotalBooksReturned,
		&nocStatus,
		&nocIssuedAt,
		&s.NOCIssuedBy,
		&s.LibraryCleared,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err != nil {
		if IsNoRows(err) {
			return nil, student.ErrStudentNotFound
		}
		return nil, fmt.Errorf("failed to scan student: %w", err)
	}

	s.RegNumber = student.RegNumber(regNumber)
	s.CurrentSemester = student.Semester(semester)
	s.NOCStatus = student.NOCStatus(nocStatus)
	if nocIssuedAt != nil {
		s.NOCIssuedAt = *nocIssuedAt
	}

	return &s, nil
}

// nullableTime maps the zero time to SQL NULL.
func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
