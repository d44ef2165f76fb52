package sqlstore_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aanand-mishra/courses-api/internal/storage"
	"github.com/aanand-mishra/courses-api/internal/storage/sqlite"
	"github.com/aanand-mishra/courses-api/internal/storage/sqlstore"
	"github.com/aanand-mishra/courses-api/internal/types"
)

func newStore(t *testing.T) *sqlstore.Store {
	t.Helper()
	store, err := sqlite.New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func makeStudents(t *testing.T, store *sqlstore.Store, n int) []int64 {
	t.Helper()
	ids := make([]int64, n)
	for i := range ids {
		s, err := store.CreateStudent(context.Background(), "student", types.NewDate(2000, time.January, i+1))
		require.NoError(t, err)
		ids[i] = s.ID
	}
	return ids
}

func TestCreateAndGetCourse(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	ids := makeStudents(t, store, 3)

	created, err := store.CreateCourse(ctx, "Go basics", []int64{ids[2], ids[0], ids[1]}, 5)
	require.NoError(t, err)
	assert.NotZero(t, created.ID)
	assert.Equal(t, "Go basics", created.Name)
	assert.Equal(t, ids, created.Students)

	got, err := store.GetCourseByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created, got)
}

func TestCreateCourseWithoutStudents(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)

	created, err := store.CreateCourse(ctx, "Empty", nil, 5)
	require.NoError(t, err)
	assert.NotNil(t, created.Students)
	assert.Empty(t, created.Students)
}

func TestCreateCourseCollapsesDuplicates(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	ids := makeStudents(t, store, 2)

	created, err := store.CreateCourse(ctx, "Dup", []int64{ids[0], ids[0], ids[1]}, 2)
	require.NoError(t, err)
	assert.Equal(t, ids, created.Students)
}

func TestGetCourseNotFound(t *testing.T) {
	_, err := newStore(t).GetCourseByID(context.Background(), 42)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestCreateCourseEnrollmentLimitRollsBack(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	ids := makeStudents(t, store, 3)

	_, err := store.CreateCourse(ctx, "Too big", ids, 2)
	assert.ErrorIs(t, err, storage.ErrEnrollmentLimit)

	n, err := store.CountCourses(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestCreateCourseUnknownStudentRollsBack(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	ids := makeStudents(t, store, 1)

	_, err := store.CreateCourse(ctx, "Ghost", []int64{ids[0], 999}, 5)
	require.ErrorIs(t, err, storage.ErrUnknownStudent)
	assert.Contains(t, err.Error(), "invalid student id 999")

	n, err := store.CountCourses(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestGetCoursesFilters(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)

	var created []types.Course
	for _, name := range []string{"alpha", "beta", "beta", "gamma"} {
		c, err := store.CreateCourse(ctx, name, nil, 5)
		require.NoError(t, err)
		created = append(created, c)
	}

	all, err := store.GetCourses(ctx, types.CourseFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 4)
	for i := range all {
		assert.Equal(t, created[i].ID, all[i].ID)
	}

	id := created[2].ID
	byID, err := store.GetCourses(ctx, types.CourseFilter{ID: &id})
	require.NoError(t, err)
	require.Len(t, byID, 1)
	assert.Equal(t, id, byID[0].ID)

	name := "beta"
	byName, err := store.GetCourses(ctx, types.CourseFilter{Name: &name})
	require.NoError(t, err)
	require.Len(t, byName, 2)
	assert.Equal(t, created[1].ID, byName[0].ID)
	assert.Equal(t, created[2].ID, byName[1].ID)

	missing := int64(12345)
	none, err := store.GetCourses(ctx, types.CourseFilter{ID: &missing})
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)

	both, err := store.GetCourses(ctx, types.CourseFilter{ID: &created[0].ID, Name: &name})
	require.NoError(t, err)
	assert.Empty(t, both)
}

func TestUpdateCourseReplacesStudents(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	ids := makeStudents(t, store, 4)

	c, err := store.CreateCourse(ctx, "Old", ids[:2], 3)
	require.NoError(t, err)

	updated, err := store.UpdateCourseByID(ctx, c.ID, "New", ids[1:], 3)
	require.NoError(t, err)
	assert.Equal(t, "New", updated.Name)
	assert.Equal(t, ids[1:], updated.Students)

	got, err := store.GetCourseByID(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, updated, got)
}

func TestUpdateCourseOverLimitKeepsPreviousState(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	ids := makeStudents(t, store, 4)

	c, err := store.CreateCourse(ctx, "Keep", ids[:2], 3)
	require.NoError(t, err)

	_, err = store.UpdateCourseByID(ctx, c.ID, "Changed", ids, 3)
	assert.ErrorIs(t, err, storage.ErrEnrollmentLimit)

	got, err := store.GetCourseByID(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, c, got)
}

func TestUpdateCourseNotFound(t *testing.T) {
	_, err := newStore(t).UpdateCourseByID(context.Background(), 7, "x", nil, 3)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestDeleteCourseKeepsStudents(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	ids := makeStudents(t, store, 2)

	c, err := store.CreateCourse(ctx, "Doomed", ids, 5)
	require.NoError(t, err)

	require.NoError(t, store.DeleteCourseByID(ctx, c.ID))

	_, err = store.GetCourseByID(ctx, c.ID)
	assert.ErrorIs(t, err, storage.ErrNotFound)
	assert.ErrorIs(t, store.DeleteCourseByID(ctx, c.ID), storage.ErrNotFound)

	students, err := store.GetStudents(ctx)
	require.NoError(t, err)
	assert.Len(t, students, 2)

	var rows int
	require.NoError(t, store.DB().QueryRow("SELECT COUNT(*) FROM course_students").Scan(&rows))
	assert.Zero(t, rows)
}

func TestDeleteStudentLeavesCourses(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	ids := makeStudents(t, store, 3)

	c, err := store.CreateCourse(ctx, "Members", ids, 5)
	require.NoError(t, err)

	require.NoError(t, store.DeleteStudentByID(ctx, ids[1]))

	got, err := store.GetCourseByID(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, []int64{ids[0], ids[2]}, got.Students)

	_, err = store.GetStudentByID(ctx, ids[1])
	assert.ErrorIs(t, err, storage.ErrNotFound)
	assert.ErrorIs(t, store.DeleteStudentByID(ctx, ids[1]), storage.ErrNotFound)
}

func TestStudentRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)

	created, err := store.CreateStudent(ctx, "Rakesh", types.NewDate(1999, time.March, 14))
	require.NoError(t, err)

	got, err := store.GetStudentByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Rakesh", got.Name)
	assert.Equal(t, "1999-03-14", got.BirthDate.String())

	updated, err := store.UpdateStudentByID(ctx, created.ID, types.Student{
		Name:      "Rakesh K",
		BirthDate: types.NewDate(1999, time.March, 15),
	})
	require.NoError(t, err)
	assert.Equal(t, created.ID, updated.ID)
	assert.Equal(t, "Rakesh K", updated.Name)
	assert.Equal(t, "1999-03-15", updated.BirthDate.String())

	_, err = store.UpdateStudentByID(ctx, 999, updated)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}
