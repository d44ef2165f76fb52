// Package student contains the HTTP handlers for the Student resource.
// These back the admin console's student browser; course membership is
// edited through the course endpoints.
package student

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/aanand-mishra/courses-api/internal/types"
	"github.com/aanand-mishra/courses-api/internal/utils/request"
	"github.com/aanand-mishra/courses-api/internal/utils/response"
	"github.com/aanand-mishra/courses-api/internal/validate"
)

// Store is the subset of storage.Storage the handlers need.
type Store interface {
	CreateStudent(ctx context.Context, name string, birthDate types.Date) (types.Student, error)
	GetStudentByID(ctx context.Context, id int64) (types.Student, error)
	GetStudents(ctx context.Context) ([]types.Student, error)
	UpdateStudentByID(ctx context.Context, id int64, student types.Student) (types.Student, error)
	DeleteStudentByID(ctx context.Context, id int64) error
}

// decodeStudent reads and validates a student body. On failure it has
// already written the 400 response.
func decodeStudent(w http.ResponseWriter, r *http.Request, v *validator.Validate) (types.Student, bool) {
	var student types.Student
	if err := request.DecodeJSON(r, &student); err != nil {
		response.WriteJSON(w, http.StatusBadRequest, response.GeneralError(err))
		return student, false
	}

	if err := v.Struct(student); err != nil {
		var validateErrs validator.ValidationErrors
		if errors.As(err, &validateErrs) {
			response.WriteJSON(w, http.StatusBadRequest, response.ValidationError(validateErrs))
		} else {
			response.WriteJSON(w, http.StatusBadRequest, response.GeneralError(err))
		}
		return student, false
	}

	return student, true
}

// ─────────────────────────────────────────────────────────────────────────────
// New handles POST /api/v1/students/
//
// Request body (JSON):
//
//	{ "name": "Rakesh", "birth_date": "2001-04-17" }
//
// Success response (201 Created): the stored student.
// ─────────────────────────────────────────────────────────────────────────────
func New(store Store) http.HandlerFunc {
	v := validate.New()

	return func(w http.ResponseWriter, r *http.Request) {
		slog.Info("creating a student")

		student, ok := decodeStudent(w, r, v)
		if !ok {
			return
		}

		created, err := store.CreateStudent(r.Context(), student.Name, student.BirthDate)
		if err != nil {
			response.Error(w, err)
			return
		}

		slog.Info("student created", slog.Int64("id", created.ID))
		response.WriteJSON(w, http.StatusCreated, created)
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// GetByID handles GET /api/v1/students/{id}/
// 400 for a non-integer id, 404 if the student does not exist.
// ─────────────────────────────────────────────────────────────────────────────
func GetByID(store Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := request.PathID(r)
		if err != nil {
			response.WriteJSON(w, http.StatusBadRequest, response.GeneralError(err))
			return
		}
		slog.Info("getting a student", slog.Int64("id", id))

		student, err := store.GetStudentByID(r.Context(), id)
		if err != nil {
			response.Error(w, err)
			return
		}

		response.WriteJSON(w, http.StatusOK, student)
	}
}

// GetList handles GET /api/v1/students/ and returns every student.
func GetList(store Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		slog.Info("getting all students")

		students, err := store.GetStudents(r.Context())
		if err != nil {
			response.Error(w, err)
			return
		}

		response.WriteJSON(w, http.StatusOK, students)
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Update handles PUT /api/v1/students/{id}/
// Replaces all fields; the body must pass the same rules as creation.
// ─────────────────────────────────────────────────────────────────────────────
func Update(store Store) http.HandlerFunc {
	v := validate.New()

	return func(w http.ResponseWriter, r *http.Request) {
		id, err := request.PathID(r)
		if err != nil {
			response.WriteJSON(w, http.StatusBadRequest, response.GeneralError(err))
			return
		}
		slog.Info("updating a student", slog.Int64("id", id))

		student, ok := decodeStudent(w, r, v)
		if !ok {
			return
		}

		updated, err := store.UpdateStudentByID(r.Context(), id, student)
		if err != nil {
			response.Error(w, err)
			return
		}

		slog.Info("student updated", slog.Int64("id", id))
		response.WriteJSON(w, http.StatusOK, updated)
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Delete handles DELETE /api/v1/students/{id}/
// The student is also dropped from every course that listed it.
// ─────────────────────────────────────────────────────────────────────────────
func Delete(store Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := request.PathID(r)
		if err != nil {
			response.WriteJSON(w, http.StatusBadRequest, response.GeneralError(err))
			return
		}
		slog.Info("deleting a student", slog.Int64("id", id))

		if err := store.DeleteStudentByID(r.Context(), id); err != nil {
			response.Error(w, err)
			return
		}

		slog.Info("student deleted", slog.Int64("id", id))
		w.WriteHeader(http.StatusNoContent)
	}
}
