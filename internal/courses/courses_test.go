package courses_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aanand-mishra/courses-api/internal/courses"
	"github.com/aanand-mishra/courses-api/internal/storage"
	"github.com/aanand-mishra/courses-api/internal/storage/sqlite"
	"github.com/aanand-mishra/courses-api/internal/types"
)

const maxStudents = 5

func setup(t *testing.T) (*courses.Service, storage.Storage, []int64) {
	t.Helper()
	store, err := sqlite.New(filepath.Join(t.TempDir(), "courses.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	ids := make([]int64, maxStudents+1)
	for i := range ids {
		s, err := store.CreateStudent(context.Background(), "s", types.NewDate(2001, time.May, i+1))
		require.NoError(t, err)
		ids[i] = s.ID
	}

	return courses.NewService(store, maxStudents), store, ids
}

func requireLimitViolation(t *testing.T, err error) {
	t.Helper()
	var verrs validator.ValidationErrors
	require.True(t, errors.As(err, &verrs), "expected validation errors, got %v", err)
	require.Len(t, verrs, 1)
	assert.Equal(t, courses.TagMaxStudents, verrs[0].Tag())
	assert.Equal(t, "students", verrs[0].Field())
	assert.Equal(t, "5", verrs[0].Param())
}

func TestCreateAtLimit(t *testing.T) {
	svc, store, ids := setup(t)

	c, err := svc.Create(context.Background(), "X", ids[:maxStudents])
	require.NoError(t, err)
	assert.Len(t, c.Students, maxStudents)

	n, err := store.CountCourses(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}

func TestCreateOverLimit(t *testing.T) {
	svc, store, ids := setup(t)

	_, err := svc.Create(context.Background(), "Y", ids)
	requireLimitViolation(t, err)

	n, err := store.CountCourses(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestCreateCountsDistinctIDs(t *testing.T) {
	svc, _, ids := setup(t)

	// Six entries, five distinct students.
	list := append([]int64{ids[0]}, ids[:maxStudents]...)
	c, err := svc.Create(context.Background(), "Dup", list)
	require.NoError(t, err)
	assert.Len(t, c.Students, maxStudents)
}

func TestCreateRequiresName(t *testing.T) {
	svc, _, _ := setup(t)

	_, err := svc.Create(context.Background(), "", nil)
	var verrs validator.ValidationErrors
	require.True(t, errors.As(err, &verrs))
	assert.Equal(t, "required", verrs[0].Tag())
	assert.Equal(t, "Name", verrs[0].Field())
}

func TestUpdateAgainstReplacementSet(t *testing.T) {
	svc, _, ids := setup(t)
	ctx := context.Background()

	c, err := svc.Create(ctx, "Course", ids[:maxStudents])
	require.NoError(t, err)

	// A full course can be replaced with a different full set.
	updated, err := svc.Update(ctx, c.ID, "Course", ids[1:])
	require.NoError(t, err)
	assert.ElementsMatch(t, ids[1:], updated.Students)

	_, err = svc.Update(ctx, c.ID, "Course", ids)
	requireLimitViolation(t, err)

	got, err := svc.Get(ctx, c.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, ids[1:], got.Students)
}

func TestUpdateMissingCourse(t *testing.T) {
	svc, _, _ := setup(t)

	_, err := svc.Update(context.Background(), 404, "nope", nil)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestUpdateMissingCourseOverLimit(t *testing.T) {
	svc, _, ids := setup(t)

	_, err := svc.Update(context.Background(), 404, "nope", ids)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestDelete(t *testing.T) {
	svc, store, ids := setup(t)
	ctx := context.Background()

	c, err := svc.Create(ctx, "Gone", ids[:2])
	require.NoError(t, err)
	other, err := svc.Create(ctx, "Stays", nil)
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, c.ID))

	_, err = svc.Get(ctx, c.ID)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	n, err := store.CountCourses(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	list, err := svc.List(ctx, types.CourseFilter{})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, other.ID, list[0].ID)

	assert.ErrorIs(t, svc.Delete(ctx, c.ID), storage.ErrNotFound)
}

func TestConcurrentUpdatesNeverExceedLimit(t *testing.T) {
	svc, store, ids := setup(t)
	ctx := context.Background()

	c, err := svc.Create(ctx, "Race", nil)
	require.NoError(t, err)

	errs := make(chan error, 2)
	go func() {
		_, err := svc.Update(ctx, c.ID, "Race", ids[:3])
		errs <- err
	}()
	go func() {
		_, err := svc.Update(ctx, c.ID, "Race", ids[3:])
		errs <- err
	}()
	require.NoError(t, <-errs)
	require.NoError(t, <-errs)

	got, err := store.GetCourseByID(ctx, c.ID)
	require.NoError(t, err)
	assert.LessOrEqual(t, len(got.Students), maxStudents)
	assert.True(t,
		assert.ObjectsAreEqual(ids[:3], got.Students) || assert.ObjectsAreEqual(ids[3:], got.Students),
		"course holds a mix of both updates: %v", got.Students)
}
