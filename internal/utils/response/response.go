// Package response provides helpers for writing consistent JSON HTTP
// responses. Success responses may be any JSON shape; error responses
// always look like:
//
//	{ "status": "error", "error": "no course found with id 7" }
package response

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/aanand-mishra/courses-api/internal/storage"
)

// Response is the standard envelope returned for error cases.
type Response struct {
	Status string `json:"status"`
	Error  string `json:"error"`
}

// StatusError is the Status of every error envelope.
const StatusError = "error"

// WriteJSON writes data as JSON with the given HTTP status code.
// Header() → WriteHeader() → body, in that order.
func WriteJSON(w http.ResponseWriter, status int, data any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(data)
}

// GeneralError wraps any error into the standard Response shape.
func GeneralError(err error) Response {
	return Response{
		Status: StatusError,
		Error:  err.Error(),
	}
}

// ValidationError converts validator field errors into a single
// human-readable Response, one sentence per failing field.
//
//	{ "status": "error", "error": "field Name is required, field students allows at most 20 students per course" }
func ValidationError(errs validator.ValidationErrors) Response {
	var errMessages []string

	for _, e := range errs {
		switch e.ActualTag() {
		case "required":
			errMessages = append(errMessages,
				fmt.Sprintf("field %s is required", e.Field()))
		case "max_students":
			errMessages = append(errMessages,
				fmt.Sprintf("too many students on the course: field %s allows at most %s students per course", e.Field(), e.Param()))
		default:
			errMessages = append(errMessages,
				fmt.Sprintf("field %s is invalid", e.Field()))
		}
	}

	return Response{
		Status: StatusError,
		Error:  strings.Join(errMessages, ", "),
	}
}

// Error maps err onto an HTTP status and writes it:
//
//	validator.ValidationErrors          → 400 (per-field messages)
//	storage.ErrUnknownStudent           → 400
//	storage.ErrEnrollmentLimit          → 400
//	storage.ErrNotFound                 → 404
//	anything else                       → 500
func Error(w http.ResponseWriter, err error) {
	var validateErrs validator.ValidationErrors
	switch {
	case errors.As(err, &validateErrs):
		WriteJSON(w, http.StatusBadRequest, ValidationError(validateErrs))
	case errors.Is(err, storage.ErrUnknownStudent), errors.Is(err, storage.ErrEnrollmentLimit):
		WriteJSON(w, http.StatusBadRequest, GeneralError(err))
	case errors.Is(err, storage.ErrNotFound):
		WriteJSON(w, http.StatusNotFound, GeneralError(err))
	default:
		slog.Error("request failed", slog.String("error", err.Error()))
		WriteJSON(w, http.StatusInternalServerError,
			GeneralError(errors.New("internal server error")))
	}
}
