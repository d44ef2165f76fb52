// Package postgres opens the Postgres backend through pgx's database/sql
// driver. The returned store is the shared sqlstore implementation
// configured for "$n" placeholders.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"

	"github.com/aanand-mishra/courses-api/internal/storage/sqlstore"

	// Registers the "pgx" driver with database/sql.
	_ "github.com/jackc/pgx/v5/stdlib"
)

const schema = `
CREATE TABLE IF NOT EXISTS courses (
	id   BIGSERIAL PRIMARY KEY,
	name TEXT      NOT NULL
);

CREATE TABLE IF NOT EXISTS students (
	id         BIGSERIAL PRIMARY KEY,
	name       TEXT      NOT NULL,
	birth_date DATE
);

CREATE TABLE IF NOT EXISTS course_students (
	course_id  BIGINT NOT NULL REFERENCES courses(id)  ON DELETE CASCADE,
	student_id BIGINT NOT NULL REFERENCES students(id) ON DELETE CASCADE,
	PRIMARY KEY (course_id, student_id)
);

CREATE INDEX IF NOT EXISTS idx_course_students_student ON course_students(student_id);
CREATE INDEX IF NOT EXISTS idx_courses_name ON courses(name);
`

// New connects to the database at dsn, verifies the connection and
// creates the tables if they do not already exist.
func New(ctx context.Context, dsn string) (*sqlstore.Store, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres.New: open db: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxIdleTime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("postgres.New: ping: %w", err)
	}

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("postgres.New: create tables: %w", err)
	}

	return sqlstore.New(db, squirrel.Dollar), nil
}
