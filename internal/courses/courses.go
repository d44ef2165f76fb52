// Package courses is the course service: it validates course writes
// against the enrollment limit and delegates persistence to a
// storage.Storage.
package courses

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/go-playground/validator/v10"

	"github.com/aanand-mishra/courses-api/internal/storage"
	"github.com/aanand-mishra/courses-api/internal/types"
	"github.com/aanand-mishra/courses-api/internal/validate"
)

// TagMaxStudents is the validation tag reported when a course lists more
// students than the enrollment limit. Its Param is the limit.
const TagMaxStudents = "max_students"

// Service applies the enrollment limit to course writes.
type Service struct {
	store       storage.Storage
	maxStudents int
	validate    *validator.Validate
}

// NewService returns a Service enforcing maxStudents per course.
// maxStudents must be positive.
func NewService(store storage.Storage, maxStudents int) *Service {
	s := &Service{
		store:       store,
		maxStudents: maxStudents,
		validate:    validate.New(),
	}
	s.validate.RegisterStructValidation(s.validateEnrollment, types.Course{})
	return s
}

// validateEnrollment counts the course's distinct student ids. Callers
// normalise the list first, so len is the size of the proposed set.
func (s *Service) validateEnrollment(sl validator.StructLevel) {
	course := sl.Current().Interface().(types.Course)
	if len(course.Students) > s.maxStudents {
		sl.ReportError(course.Students, "students", "Students", TagMaxStudents, strconv.Itoa(s.maxStudents))
	}
}

// List returns the courses matching filter.
func (s *Service) List(ctx context.Context, filter types.CourseFilter) ([]types.Course, error) {
	return s.store.GetCourses(ctx, filter)
}

// Get returns one course or an error wrapping storage.ErrNotFound.
func (s *Service) Get(ctx context.Context, id int64) (types.Course, error) {
	return s.store.GetCourseByID(ctx, id)
}

// Create validates and stores a new course. A violation is returned as
// validator.ValidationErrors and nothing is written.
func (s *Service) Create(ctx context.Context, name string, studentIDs []int64) (types.Course, error) {
	course := types.Course{Name: name, Students: distinct(studentIDs)}
	if err := s.validate.Struct(course); err != nil {
		return types.Course{}, err
	}

	created, err := s.store.CreateCourse(ctx, course.Name, course.Students, s.maxStudents)
	if err != nil {
		return types.Course{}, fmt.Errorf("create course: %w", err)
	}

	slog.Debug("course stored",
		slog.Int64("id", created.ID),
		slog.Int("students", len(created.Students)))
	return created, nil
}

// Update replaces a course's name and its whole student set. The limit
// is checked against the proposed set, never against a delta.
func (s *Service) Update(ctx context.Context, id int64, name string, studentIDs []int64) (types.Course, error) {
	// A missing course is reported as such before the body is judged.
	if _, err := s.store.GetCourseByID(ctx, id); err != nil {
		return types.Course{}, fmt.Errorf("update course %d: %w", id, err)
	}

	course := types.Course{ID: id, Name: name, Students: distinct(studentIDs)}
	if err := s.validate.Struct(course); err != nil {
		return types.Course{}, err
	}

	updated, err := s.store.UpdateCourseByID(ctx, id, course.Name, course.Students, s.maxStudents)
	if err != nil {
		return types.Course{}, fmt.Errorf("update course %d: %w", id, err)
	}
	return updated, nil
}

// Delete removes a course; its students are kept.
func (s *Service) Delete(ctx context.Context, id int64) error {
	if err := s.store.DeleteCourseByID(ctx, id); err != nil {
		return fmt.Errorf("delete course %d: %w", id, err)
	}
	return nil
}

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
