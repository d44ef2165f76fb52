// Package sqlite opens the SQLite backend: a single file on disk, no
// server process. The returned store is the shared sqlstore
// implementation configured for "?" placeholders.
package sqlite

import (
	"database/sql"
	"fmt"
	"net/url"

	"github.com/Masterminds/squirrel"

	"github.com/aanand-mishra/courses-api/internal/storage/sqlstore"

	// Blank import: registers the "sqlite3" driver with database/sql.
	_ "github.com/mattn/go-sqlite3"
)

const schema = `
CREATE TABLE IF NOT EXISTS courses (
	id   INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT    NOT NULL
);

CREATE TABLE IF NOT EXISTS students (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	name       TEXT    NOT NULL,
	birth_date TEXT
);

CREATE TABLE IF NOT EXISTS course_students (
	course_id  INTEGER NOT NULL REFERENCES courses(id)  ON DELETE CASCADE,
	student_id INTEGER NOT NULL REFERENCES students(id) ON DELETE CASCADE,
	PRIMARY KEY (course_id, student_id)
);

CREATE INDEX IF NOT EXISTS idx_course_students_student ON course_students(student_id);
CREATE INDEX IF NOT EXISTS idx_courses_name ON courses(name);
`

// New opens the SQLite database at path, creates the tables if they do
// not already exist, and returns a ready-to-use store.
func New(path string) (*sqlstore.Store, error) {
	// Foreign keys are off by default in SQLite; the busy timeout makes
	// a second writer wait instead of failing with SQLITE_BUSY.
	q := url.Values{}
	q.Set("_foreign_keys", "on")
	q.Set("_busy_timeout", "5000")
	q.Set("_txlock", "immediate")

	db, err := sql.Open("sqlite3", "file:"+path+"?"+q.Encode())
	if err != nil {
		return nil, fmt.Errorf("sqlite.New: open db: %w", err)
	}

	// SQLite allows one writer at a time. A single connection turns
	// concurrent requests into a queue rather than lock errors.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite.New: create tables: %w", err)
	}

	return sqlstore.New(db, squirrel.Question), nil
}
