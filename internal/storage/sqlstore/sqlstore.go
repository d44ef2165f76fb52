// Package sqlstore implements storage.Storage on top of database/sql.
//
// The SQL is built with squirrel so the same code runs against SQLite
// ("?" placeholders) and Postgres ("$1" placeholders). The driver
// packages (storage/sqlite, storage/postgres) open the connection,
// create the schema and hand the *sql.DB to New.
//
// Schema expected by this package:
//
//	courses(id, name)
//	students(id, name, birth_date)
//	course_students(course_id, student_id)  -- primary key (course_id, student_id)
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"

	"github.com/aanand-mishra/courses-api/internal/storage"
	"github.com/aanand-mishra/courses-api/internal/types"
)

// Store is the database/sql implementation of storage.Storage.
// A single *sql.DB is safe for concurrent use by multiple goroutines.
type Store struct {
	db *sql.DB
	sb squirrel.StatementBuilderType
}

var _ storage.Storage = (*Store)(nil)

// querier is satisfied by both *sql.DB and *sql.Tx so read helpers can
// run inside or outside a transaction.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// New wraps an open database whose schema is already in place.
func New(db *sql.DB, placeholder squirrel.PlaceholderFormat) *Store {
	return &Store{
		db: db,
		sb: squirrel.StatementBuilder.PlaceholderFormat(placeholder),
	}
}

// DB exposes the underlying pool, mainly for tests.
func (s *Store) DB() *sql.DB {
	return s.db
}

func (s *Store) Close() error {
	return s.db.Close()
}

// withTx runs fn in a transaction and commits if fn returns nil.
func (s *Store) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Courses
// ─────────────────────────────────────────────────────────────────────────────

func (s *Store) CreateCourse(ctx context.Context, name string, studentIDs []int64, maxStudents int) (types.Course, error) {
	var course types.Course

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		query, args, err := s.sb.Insert("courses").
			Columns("name").
			Values(name).
			Suffix("RETURNING id").
			ToSql()
		if err != nil {
			return fmt.Errorf("CreateCourse: build insert: %w", err)
		}

		var id int64
		if err := tx.QueryRowContext(ctx, query, args...).Scan(&id); err != nil {
			return fmt.Errorf("CreateCourse: insert: %w", err)
		}

		if err := s.replaceEnrollments(ctx, tx, id, studentIDs, maxStudents); err != nil {
			return fmt.Errorf("CreateCourse: %w", err)
		}

		course, err = s.getCourse(ctx, tx, id)
		return err
	})
	if err != nil {
		return types.Course{}, err
	}

	return course, nil
}

func (s *Store) GetCourseByID(ctx context.Context, id int64) (types.Course, error) {
	return s.getCourse(ctx, s.db, id)
}

func (s *Store) getCourse(ctx context.Context, q querier, id int64) (types.Course, error) {
	query, args, err := s.sb.Select("id", "name").
		From("courses").
		Where(squirrel.Eq{"id": id}).
		Limit(1).
		ToSql()
	if err != nil {
		return types.Course{}, fmt.Errorf("GetCourseByID: build query: %w", err)
	}

	var course types.Course
	err = q.QueryRowContext(ctx, query, args...).Scan(&course.ID, &course.Name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Course{}, fmt.Errorf("no course found with id %d: %w", id, storage.ErrNotFound)
		}
		return types.Course{}, fmt.Errorf("GetCourseByID: scan: %w", err)
	}

	enrollments, err := s.enrollments(ctx, q, []int64{id})
	if err != nil {
		return types.Course{}, fmt.Errorf("GetCourseByID: %w", err)
	}
	course.Students = studentsOf(enrollments, id)

	return course, nil
}

func (s *Store) GetCourses(ctx context.Context, filter types.CourseFilter) ([]types.Course, error) {
	sel := s.sb.Select("id", "name").From("courses").OrderBy("id ASC")
	if filter.ID != nil {
		sel = sel.Where(squirrel.Eq{"id": *filter.ID})
	}
	if filter.Name != nil {
		sel = sel.Where(squirrel.Eq{"name": *filter.Name})
	}

	query, args, err := sel.ToSql()
	if err != nil {
		return nil, fmt.Errorf("GetCourses: build query: %w", err)
	}

	courses, err := s.scanCourses(ctx, query, args)
	if err != nil {
		return nil, err
	}
	if len(courses) == 0 {
		return courses, nil
	}

	ids := make([]int64, len(courses))
	for i, c := range courses {
		ids[i] = c.ID
	}
	enrollments, err := s.enrollments(ctx, s.db, ids)
	if err != nil {
		return nil, fmt.Errorf("GetCourses: %w", err)
	}
	for i := range courses {
		courses[i].Students = studentsOf(enrollments, courses[i].ID)
	}

	return courses, nil
}

// scanCourses reads id/name rows. Rows are closed before it returns so
// the connection is free for the follow-up enrollment query.
func (s *Store) scanCourses(ctx context.Context, query string, args []any) ([]types.Course, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("GetCourses: query: %w", err)
	}
	defer rows.Close()

	courses := make([]types.Course, 0)
	for rows.Next() {
		var c types.Course
		if err := rows.Scan(&c.ID, &c.Name); err != nil {
			return nil, fmt.Errorf("GetCourses: scan row: %w", err)
		}
		courses = append(courses, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("GetCourses: rows iteration: %w", err)
	}

	return courses, nil
}

func (s *Store) UpdateCourseByID(ctx context.Context, id int64, name string, studentIDs []int64, maxStudents int) (types.Course, error) {
	var course types.Course

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		query, args, err := s.sb.Update("courses").
			Set("name", name).
			Where(squirrel.Eq{"id": id}).
			ToSql()
		if err != nil {
			return fmt.Errorf("UpdateCourseByID: build update: %w", err)
		}

		res, err := tx.ExecContext(ctx, query, args...)
		if err != nil {
			return fmt.Errorf("UpdateCourseByID: exec: %w", err)
		}
		if err := expectRow(res, "course", id); err != nil {
			return err
		}

		if err := s.replaceEnrollments(ctx, tx, id, studentIDs, maxStudents); err != nil {
			return fmt.Errorf("UpdateCourseByID: %w", err)
		}

		course, err = s.getCourse(ctx, tx, id)
		return err
	})
	if err != nil {
		return types.Course{}, err
	}

	return course, nil
}

func (s *Store) DeleteCourseByID(ctx context.Context, id int64) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		query, args, err := s.sb.Delete("course_students").
			Where(squirrel.Eq{"course_id": id}).
			ToSql()
		if err != nil {
			return fmt.Errorf("DeleteCourseByID: build delete enrollments: %w", err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("DeleteCourseByID: delete enrollments: %w", err)
		}

		query, args, err = s.sb.Delete("courses").
			Where(squirrel.Eq{"id": id}).
			ToSql()
		if err != nil {
			return fmt.Errorf("DeleteCourseByID: build delete: %w", err)
		}
		res, err := tx.ExecContext(ctx, query, args...)
		if err != nil {
			return fmt.Errorf("DeleteCourseByID: exec: %w", err)
		}
		return expectRow(res, "course", id)
	})
}

func (s *Store) CountCourses(ctx context.Context) (int64, error) {
	query, args, err := s.sb.Select("COUNT(*)").From("courses").ToSql()
	if err != nil {
		return 0, fmt.Errorf("CountCourses: build query: %w", err)
	}

	var n int64
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("CountCourses: scan: %w", err)
	}
	return n, nil
}

// replaceEnrollments swaps the course's student set for studentIDs,
// then recounts what was written. A count above maxStudents fails with
// storage.ErrEnrollmentLimit so the caller's transaction rolls back.
// maxStudents <= 0 disables the check.
func (s *Store) replaceEnrollments(ctx context.Context, tx *sql.Tx, courseID int64, studentIDs []int64, maxStudents int) error {
	ids := distinct(studentIDs)

	if err := s.checkStudentsExist(ctx, tx, ids); err != nil {
		return err
	}

	query, args, err := s.sb.Delete("course_students").
		Where(squirrel.Eq{"course_id": courseID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build clear enrollments: %w", err)
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("clear enrollments: %w", err)
	}

	if len(ids) > 0 {
		ins := s.sb.Insert("course_students").Columns("course_id", "student_id")
		for _, sid := range ids {
			ins = ins.Values(courseID, sid)
		}
		query, args, err = ins.ToSql()
		if err != nil {
			return fmt.Errorf("build insert enrollments: %w", err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("insert enrollments: %w", err)
		}
	}

	if maxStudents <= 0 {
		return nil
	}

	query, args, err = s.sb.Select("COUNT(*)").
		From("course_students").
		Where(squirrel.Eq{"course_id": courseID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build count enrollments: %w", err)
	}
	var n int
	if err := tx.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return fmt.Errorf("count enrollments: %w", err)
	}
	if n > maxStudents {
		return fmt.Errorf("course has %d students, the maximum is %d: %w", n, maxStudents, storage.ErrEnrollmentLimit)
	}

	return nil
}

// checkStudentsExist reports the first id (in request order) that has
// no students row.
func (s *Store) checkStudentsExist(ctx context.Context, q querier, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}

	query, args, err := s.sb.Select("id").
		From("students").
		Where(squirrel.Eq{"id": ids}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build student lookup: %w", err)
	}

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("student lookup: %w", err)
	}
	defer rows.Close()

	found := make(map[int64]bool, len(ids))
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return fmt.Errorf("student lookup: scan row: %w", err)
		}
		found[id] = true
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("student lookup: rows iteration: %w", err)
	}

	for _, id := range ids {
		if !found[id] {
			return fmt.Errorf("invalid student id %d: %w", id, storage.ErrUnknownStudent)
		}
	}
	return nil
}

// enrollments maps each of courseIDs to its student ids, ascending.
func (s *Store) enrollments(ctx context.Context, q querier, courseIDs []int64) (map[int64][]int64, error) {
	query, args, err := s.sb.Select("course_id", "student_id").
		From("course_students").
		Where(squirrel.Eq{"course_id": courseIDs}).
		OrderBy("course_id ASC", "student_id ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build enrollments query: %w", err)
	}

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("enrollments query: %w", err)
	}
	defer rows.Close()

	out := make(map[int64][]int64, len(courseIDs))
	for rows.Next() {
		var courseID, studentID int64
		if err := rows.Scan(&courseID, &studentID); err != nil {
			return nil, fmt.Errorf("enrollments: scan row: %w", err)
		}
		out[courseID] = append(out[courseID], studentID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("enrollments: rows iteration: %w", err)
	}

	return out, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Students
// ─────────────────────────────────────────────────────────────────────────────

func (s *Store) CreateStudent(ctx context.Context, name string, birthDate types.Date) (types.Student, error) {
	query, args, err := s.sb.Insert("students").
		Columns("name", "birth_date").
		Values(name, birthDate).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return types.Student{}, fmt.Errorf("CreateStudent: build insert: %w", err)
	}

	var id int64
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&id); err != nil {
		return types.Student{}, fmt.Errorf("CreateStudent: insert: %w", err)
	}

	return types.Student{ID: id, Name: name, BirthDate: birthDate}, nil
}

func (s *Store) GetStudentByID(ctx context.Context, id int64) (types.Student, error) {
	query, args, err := s.sb.Select("id", "name", "birth_date").
		From("students").
		Where(squirrel.Eq{"id": id}).
		Limit(1).
		ToSql()
	if err != nil {
		return types.Student{}, fmt.Errorf("GetStudentByID: build query: %w", err)
	}

	var student types.Student
	err = s.db.QueryRowContext(ctx, query, args...).Scan(&student.ID, &student.Name, &student.BirthDate)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Student{}, fmt.Errorf("no student found with id %d: %w", id, storage.ErrNotFound)
		}
		return types.Student{}, fmt.Errorf("GetStudentByID: scan: %w", err)
	}

	return student, nil
}

func (s *Store) GetStudents(ctx context.Context) ([]types.Student, error) {
	query, args, err := s.sb.Select("id", "name", "birth_date").
		From("students").
		OrderBy("id ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("GetStudents: build query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("GetStudents: query: %w", err)
	}
	defer rows.Close()

	students := make([]types.Student, 0)
	for rows.Next() {
		var student types.Student
		if err := rows.Scan(&student.ID, &student.Name, &student.BirthDate); err != nil {
			return nil, fmt.Errorf("GetStudents: scan row: %w", err)
		}
		students = append(students, student)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("GetStudents: rows iteration: %w", err)
	}

	return students, nil
}

func (s *Store) UpdateStudentByID(ctx context.Context, id int64, student types.Student) (types.Student, error) {
	query, args, err := s.sb.Update("students").
		Set("name", student.Name).
		Set("birth_date", student.BirthDate).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return types.Student{}, fmt.Errorf("UpdateStudentByID: build update: %w", err)
	}

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return types.Student{}, fmt.Errorf("UpdateStudentByID: exec: %w", err)
	}
	if err := expectRow(res, "student", id); err != nil {
		return types.Student{}, err
	}

	// Re-fetch so the caller sees exactly what is stored.
	return s.GetStudentByID(ctx, id)
}

func (s *Store) DeleteStudentByID(ctx context.Context, id int64) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		query, args, err := s.sb.Delete("course_students").
			Where(squirrel.Eq{"student_id": id}).
			ToSql()
		if err != nil {
			return fmt.Errorf("DeleteStudentByID: build delete enrollments: %w", err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("DeleteStudentByID: delete enrollments: %w", err)
		}

		query, args, err = s.sb.Delete("students").
			Where(squirrel.Eq{"id": id}).
			ToSql()
		if err != nil {
			return fmt.Errorf("DeleteStudentByID: build delete: %w", err)
		}
		res, err := tx.ExecContext(ctx, query, args...)
		if err != nil {
			return fmt.Errorf("DeleteStudentByID: exec: %w", err)
		}
		return expectRow(res, "student", id)
	})
}

// ─────────────────────────────────────────────────────────────────────────────
// helpers
// ─────────────────────────────────────────────────────────────────────────────

func expectRow(res sql.Result, kind string, id int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("no %s found with id %d: %w", kind, id, storage.ErrNotFound)
	}
	return nil
}

// studentsOf never returns nil, so an empty course encodes as [].
func studentsOf(enrollments map[int64][]int64, courseID int64) []int64 {
	if ids, ok := enrollments[courseID]; ok {
		return ids
	}
	return []int64{}
}

// distinct drops repeated ids, keeping first-seen order. The store does
// not rely on callers having deduplicated; a repeat would violate the
// join table's primary key.
func distinct(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
