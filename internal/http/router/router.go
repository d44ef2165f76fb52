// Package router holds the route table.
package router

import (
	"log/slog"
	"net/http"

	"github.com/aanand-mishra/courses-api/internal/http/handlers/course"
	"github.com/aanand-mishra/courses-api/internal/http/handlers/student"
	"github.com/aanand-mishra/courses-api/internal/http/middleware"
)

// Route table:
//
//	GET    /api/v1/courses/        list courses (?id=, ?name=)
//	POST   /api/v1/courses/        create a course
//	GET    /api/v1/courses/{id}/   get one course
//	PUT    /api/v1/courses/{id}/   replace a course
//	DELETE /api/v1/courses/{id}/   delete a course
//
// and the same five for /api/v1/students/. Every path is also served
// without its trailing slash.
func New(courses course.Service, students student.Store) *http.ServeMux {
	mux := http.NewServeMux()

	handle(mux, "POST", "/api/v1/courses", course.New(courses))
	handle(mux, "GET", "/api/v1/courses", course.GetList(courses))
	handle(mux, "GET", "/api/v1/courses/{id}", course.GetByID(courses))
	handle(mux, "PUT", "/api/v1/courses/{id}", course.Update(courses))
	handle(mux, "DELETE", "/api/v1/courses/{id}", course.Delete(courses))

	handle(mux, "POST", "/api/v1/students", student.New(students))
	handle(mux, "GET", "/api/v1/students", student.GetList(students))
	handle(mux, "GET", "/api/v1/students/{id}", student.GetByID(students))
	handle(mux, "PUT", "/api/v1/students/{id}", student.Update(students))
	handle(mux, "DELETE", "/api/v1/students/{id}", student.Delete(students))

	return mux
}

// Handler is the full request pipeline: CORS, then access logging,
// then the route table.
func Handler(log *slog.Logger, allowedOrigins []string, courses course.Service, students student.Store) http.Handler {
	var h http.Handler = New(courses, students)
	h = middleware.Logger(log)(h)
	h = middleware.CORS(allowedOrigins)(h)
	return h
}

// handle registers path both bare and with a trailing slash.
// "{$}" keeps the slash form from matching deeper paths.
func handle(mux *http.ServeMux, method, path string, h http.HandlerFunc) {
	mux.HandleFunc(method+" "+path, h)
	mux.HandleFunc(method+" "+path+"/{$}", h)
}
