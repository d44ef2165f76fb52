// Package storage defines the Storage interface that every database
// backend satisfies, plus the errors the backends report.
//
// Handlers and the course service depend only on this interface, so the
// SQLite and Postgres backends are interchangeable and tests can run
// against a throwaway SQLite file.
package storage

import (
	"context"
	"errors"

	"github.com/aanand-mishra/courses-api/internal/types"
)

var (
	// ErrNotFound is returned when the requested course or student does
	// not exist.
	ErrNotFound = errors.New("not found")

	// ErrUnknownStudent is returned when a course references a student
	// id that does not exist.
	ErrUnknownStudent = errors.New("unknown student")

	// ErrEnrollmentLimit is returned when a write would leave a course
	// with more students than the configured maximum. The write is
	// rolled back.
	ErrEnrollmentLimit = errors.New("enrollment limit exceeded")
)

// Storage is the database contract.
//
// Course writes (CreateCourse, UpdateCourse, DeleteCourse) each run in a
// single transaction: either every row change is committed or none is.
type Storage interface {
	// CreateCourse inserts a course and its student associations and
	// returns the stored record. maxStudents bounds the association
	// count checked inside the transaction.
	CreateCourse(ctx context.Context, name string, studentIDs []int64, maxStudents int) (types.Course, error)

	// GetCourseByID fetches one course. Returns ErrNotFound if absent.
	GetCourseByID(ctx context.Context, id int64) (types.Course, error)

	// GetCourses returns the courses matching filter, ordered by id.
	// Returns an empty slice (not nil) when nothing matches.
	GetCourses(ctx context.Context, filter types.CourseFilter) ([]types.Course, error)

	// UpdateCourseByID replaces a course's name and its whole student
	// set. Returns ErrNotFound if the course does not exist.
	UpdateCourseByID(ctx context.Context, id int64, name string, studentIDs []int64, maxStudents int) (types.Course, error)

	// DeleteCourseByID removes a course and its associations. Students
	// are left untouched. Returns ErrNotFound if absent.
	DeleteCourseByID(ctx context.Context, id int64) error

	// CountCourses returns the number of stored courses.
	CountCourses(ctx context.Context) (int64, error)

	// CreateStudent inserts a student and returns the stored record.
	CreateStudent(ctx context.Context, name string, birthDate types.Date) (types.Student, error)

	// GetStudentByID fetches one student. Returns ErrNotFound if absent.
	GetStudentByID(ctx context.Context, id int64) (types.Student, error)

	// GetStudents returns every student ordered by id.
	GetStudents(ctx context.Context) ([]types.Student, error)

	// UpdateStudentByID replaces a student's fields.
	UpdateStudentByID(ctx context.Context, id int64, student types.Student) (types.Student, error)

	// DeleteStudentByID removes a student and drops it from every
	// course it was enrolled in.
	DeleteStudentByID(ctx context.Context, id int64) error

	// Close releases the underlying connection pool.
	Close() error
}
