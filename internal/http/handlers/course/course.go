// Package course contains the HTTP handlers for the Course resource.
//
// Each exported function is a factory: it receives the course service
// once at route registration and returns the handler that runs on every
// request.
//
//	router.HandleFunc("POST /api/v1/courses/{$}", course.New(svc))
package course

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/aanand-mishra/courses-api/internal/types"
	"github.com/aanand-mishra/courses-api/internal/utils/request"
	"github.com/aanand-mishra/courses-api/internal/utils/response"
)

// Service is the subset of courses.Service the handlers need.
type Service interface {
	List(ctx context.Context, filter types.CourseFilter) ([]types.Course, error)
	Get(ctx context.Context, id int64) (types.Course, error)
	Create(ctx context.Context, name string, studentIDs []int64) (types.Course, error)
	Update(ctx context.Context, id int64, name string, studentIDs []int64) (types.Course, error)
	Delete(ctx context.Context, id int64) error
}

// payload is the body accepted by POST and PUT.
//
//	{ "name": "Go basics", "students": [1, 2, 3] }
type payload struct {
	Name     string  `json:"name"`
	Students []int64 `json:"students"`
}

// ─────────────────────────────────────────────────────────────────────────────
// New handles POST /api/v1/courses/
//
// Success response (201 Created): the stored course.
//
//	{ "id": 1, "name": "Go basics", "students": [1, 2, 3] }
//
// Error responses:
//
//	400 Bad Request  empty body, malformed JSON, missing name,
//	                 unknown student id, or too many students
//	500 Internal     database error
//
// ─────────────────────────────────────────────────────────────────────────────
func New(svc Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		slog.Info("creating a course")

		var body payload
		if err := request.DecodeJSON(r, &body); err != nil {
			response.WriteJSON(w, http.StatusBadRequest, response.GeneralError(err))
			return
		}

		created, err := svc.Create(r.Context(), body.Name, body.Students)
		if err != nil {
			slog.Warn("course not created", slog.String("error", err.Error()))
			response.Error(w, err)
			return
		}

		slog.Info("course created", slog.Int64("id", created.ID))
		response.WriteJSON(w, http.StatusCreated, created)
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// GetByID handles GET /api/v1/courses/{id}/
//
// Error responses:
//
//	400 Bad Request  id is not a valid integer
//	404 Not Found    no such course
//
// ─────────────────────────────────────────────────────────────────────────────
func GetByID(svc Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := request.PathID(r)
		if err != nil {
			response.WriteJSON(w, http.StatusBadRequest, response.GeneralError(err))
			return
		}
		slog.Info("getting a course", slog.Int64("id", id))

		course, err := svc.Get(r.Context(), id)
		if err != nil {
			response.Error(w, err)
			return
		}

		response.WriteJSON(w, http.StatusOK, course)
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// GetList handles GET /api/v1/courses/
//
// Optional query parameters narrow the list by exact match:
//
//	?id=3        only the course with id 3 (or [])
//	?name=Go     every course named exactly "Go"
//
// Returns [] (not null) when nothing matches.
// ─────────────────────────────────────────────────────────────────────────────
func GetList(svc Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		filter, err := parseFilter(r)
		if err != nil {
			response.WriteJSON(w, http.StatusBadRequest, response.GeneralError(err))
			return
		}
		slog.Info("listing courses")

		courses, err := svc.List(r.Context(), filter)
		if err != nil {
			response.Error(w, err)
			return
		}

		response.WriteJSON(w, http.StatusOK, courses)
	}
}

func parseFilter(r *http.Request) (types.CourseFilter, error) {
	var filter types.CourseFilter

	id, ok, err := request.QueryID(r, "id")
	if err != nil {
		return filter, err
	}
	if ok {
		filter.ID = &id
	}

	if name := r.URL.Query().Get("name"); name != "" {
		filter.Name = &name
	}

	return filter, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Update handles PUT /api/v1/courses/{id}/
// Replaces the course's name and its whole student set.
//
// Error responses:
//
//	400 Bad Request  invalid id or body, unknown student, too many students
//	404 Not Found    no such course
//
// ─────────────────────────────────────────────────────────────────────────────
func Update(svc Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := request.PathID(r)
		if err != nil {
			response.WriteJSON(w, http.StatusBadRequest, response.GeneralError(err))
			return
		}
		slog.Info("updating a course", slog.Int64("id", id))

		var body payload
		if err := request.DecodeJSON(r, &body); err != nil {
			response.WriteJSON(w, http.StatusBadRequest, response.GeneralError(err))
			return
		}

		updated, err := svc.Update(r.Context(), id, body.Name, body.Students)
		if err != nil {
			slog.Warn("course not updated",
				slog.Int64("id", id),
				slog.String("error", err.Error()))
			response.Error(w, err)
			return
		}

		slog.Info("course updated", slog.Int64("id", id))
		response.WriteJSON(w, http.StatusOK, updated)
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Delete handles DELETE /api/v1/courses/{id}/
// Success: 204 No Content. The course's students are kept.
// ─────────────────────────────────────────────────────────────────────────────
func Delete(svc Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := request.PathID(r)
		if err != nil {
			response.WriteJSON(w, http.StatusBadRequest, response.GeneralError(err))
			return
		}
		slog.Info("deleting a course", slog.Int64("id", id))

		if err := svc.Delete(r.Context(), id); err != nil {
			response.Error(w, err)
			return
		}

		slog.Info("course deleted", slog.Int64("id", id))
		w.WriteHeader(http.StatusNoContent)
	}
}
