package postgres

// GetMigrations returns all embedded migrations.
func GetMigrations() []Migration {
	return []Migration{
		{
			Version: 1,
			Name:    "create_students",
			UpSQL:   migration001Up,
			DownSQL: migration001Down,
		},
		{
			Version: 2,
			Name:    "create_library",
			UpSQL:   migration002Up,
			DownSQL: migration002Down,
		},
		{
			Version: 3,
			Name:    "create_chat",
			UpSQL:   migration003Up,
			DownSQL: migration003Down,
		},
	}
}

const migration001Up = `
CREATE TABLE IF NOT EXISTS students (
	id TEXT PRIMARY KEY,
	reg_number TEXT NOT NULL UNIQUE,
	name TEXT NOT NULL,
	email TEXT NOT NULL,
	current_semester INTEGER NOT NULL CHECK (current_semester BETWEEN 1 AND 8),
	total_books_issued INTEGER NOT NULL DEFAULT 0,
	total_books_returned INTEGER NOT NULL DEFAULT 0,
	noc_status TEXT NOT NULL DEFAULT 'pending',
	noc_issued_at TIMESTAMP WITH TIME ZONE,
	noc_issued_by TEXT NOT NULL DEFAULT '',
	library_cleared BOOLEAN NOT NULL DEFAULT TRUE,
	created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
	CHECK (total_books_returned <= total_books_issued)
);

CREATE INDEX IF NOT EXISTS idx_students_noc_status ON students(noc_status);
`

const migration001Down = `
DROP TABLE IF EXISTS students;
`

const migration002Up = `
CREATE TABLE IF NOT EXISTS books (
	id TEXT PRIMARY KEY,
	isbn TEXT NOT NULL DEFAULT '',
	title TEXT NOT NULL,
	author TEXT NOT NULL DEFAULT '',
	department TEXT NOT NULL DEFAULT 'GENERAL',
	subject TEXT NOT NULL DEFAULT '',
	total_copies INTEGER NOT NULL CHECK (total_copies >= 0),
	available_copies INTEGER NOT NULL CHECK (available_copies >= 0),
	price NUMERIC(10,2) NOT NULL DEFAULT 0,
	replacement_cost NUMERIC(10,2) NOT NULL DEFAULT 0,
	daily_fine NUMERIC(10,2) NOT NULL DEFAULT 10,
	max_borrow_days INTEGER NOT NULL DEFAULT 30,
	status TEXT NOT NULL DEFAULT 'available',
	created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
	CHECK (available_copies <= total_copies)
);

CREATE TABLE IF NOT EXISTS loans (
	id TEXT PRIMARY KEY,
	book_id TEXT NOT NULL REFERENCES books(id),
	student_id TEXT NOT NULL REFERENCES students(id),
	borrow_date TIMESTAMP WITH TIME ZONE NOT NULL,
	due_date TIMESTAMP WITH TIME ZONE NOT NULL,
	return_date TIMESTAMP WITH TIME ZONE,
	status TEXT NOT NULL DEFAULT 'active',
	condition TEXT NOT NULL DEFAULT '',
	renew_count INTEGER NOT NULL DEFAULT 0,
	fine_amount NUMERIC(10,2) NOT NULL DEFAULT 0,
	fine_paid BOOLEAN NOT NULL DEFAULT FALSE,
	fine_payment_date TIMESTAMP WITH TIME ZONE,
	payment_mode TEXT NOT NULL DEFAULT '',
	notes TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
);

-- At most one outstanding loan per (student, book) pair. Concurrent borrows
-- of the same title by the same student collide here.
CREATE UNIQUE INDEX IF NOT EXISTS idx_loans_outstanding_pair
	ON loans(student_id, book_id)
	WHERE status IN ('active', 'overdue');

CREATE INDEX IF NOT EXISTS idx_loans_student_status ON loans(student_id, status);
CREATE INDEX IF NOT EXISTS idx_loans_due_date ON loans(due_date) WHERE status = 'active';
CREATE INDEX IF NOT EXISTS idx_loans_unpaid_fines
	ON loans(student_id)
	WHERE fine_amount > 0 AND fine_paid = FALSE;
`

const migration002Down = `
DROP TABLE IF EXISTS loans;
DROP TABLE IF EXISTS books;
`

const migration003Up = `
CREATE TABLE IF NOT EXISTS conversations (
	id TEXT PRIMARY KEY,
	pair_key TEXT NOT NULL UNIQUE,
	participants TEXT[] NOT NULL,
	last_message_content TEXT,
	last_message_sender TEXT,
	last_message_at TIMESTAMP WITH TIME ZONE,
	created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_conversations_participants
	ON conversations USING GIN (participants);
CREATE INDEX IF NOT EXISTS idx_conversations_updated_at
	ON conversations(updated_at DESC);

CREATE TABLE IF NOT EXISTS messages (
	id TEXT PRIMARY KEY,
	conversation_id TEXT NOT NULL REFERENCES conversations(id) ON DELETE CASCADE,
	sender_id TEXT NOT NULL,
	content TEXT NOT NULL,
	read_by TEXT[] NOT NULL DEFAULT '{}',
	created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_messages_conversation_created
	ON messages(conversation_id, created_at DESC);
`

const migration003Down = `
DROP TABLE IF EXISTS messages;
DROP TABLE IF EXISTS conversations;
`
