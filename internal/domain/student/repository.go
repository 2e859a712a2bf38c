package student

import "context"

// Repository defines persistence operations for students.
// Implementations live in infrastructure/persistence.
type Repository interface {
	// Create creates a new student. Returns ErrStudentAlreadyExists when the
	// registration number is taken.
	Create(ctx context.Context, s *Student) error

	// GetByID returns a student by internal ID.
	GetByID(ctx context.Context, id string) (*Student, error)

	// GetByRegNumber returns a student by university registration number.
	GetByRegNumber(ctx context.Context, reg RegNumber) (*Student, error)

	// Update persists changes to an existing student.
	Update(ctx context.Context, s *Student) error

	// ListByNOCStatus returns students filtered by NOC status, paginated.
	ListByNOCStatus(ctx context.Context, status NOCStatus, limit, offset int) ([]*Student, error)
}
