// Package types holds the shared records used across the application.
// Handlers, the course service and the storage backends all import it,
// which keeps them from importing each other.
package types

import (
	"database/sql/driver"
	"fmt"
	"strings"
	"time"
)

// Course is a named, capacity-bounded set of enrolled students.
//
// Students holds the ids of the enrolled students, sorted ascending.
// A nil or omitted list in a request body means "no students".
type Course struct {
	ID       int64   `json:"id"`
	Name     string  `json:"name"     validate:"required"`
	Students []int64 `json:"students"`
}

// Student is a person record that any number of courses may reference.
type Student struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"       validate:"required"`
	BirthDate Date   `json:"birth_date" validate:"required"`
}

// CourseFilter narrows a course listing. A nil field matches everything;
// a set field must match exactly.
type CourseFilter struct {
	ID   *int64
	Name *string
}

// DateLayout is the wire and storage format of a Date.
const DateLayout = "2006-01-02"

// Date is a calendar date without a time of day or zone.
// It travels as "YYYY-MM-DD" in JSON and in the database.
type Date struct {
	time.Time
}

// NewDate returns the Date for the given year, month and day.
func NewDate(year int, month time.Month, day int) Date {
	return Date{time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses a "YYYY-MM-DD" string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q: expected YYYY-MM-DD", s)
	}
	return Date{t}, nil
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(DateLayout)
}

// MarshalJSON encodes the zero Date as null.
func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return []byte(`"` + d.String() + `"`), nil
}

func (d *Date) UnmarshalJSON(b []byte) error {
	s := string(b)
	if s == "null" {
		*d = Date{}
		return nil
	}
	s = strings.Trim(s, `"`)
	if s == "" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Value stores the date as text; Postgres casts it into a DATE column.
func (d Date) Value() (driver.Value, error) {
	if d.IsZero() {
		return nil, nil
	}
	return d.String(), nil
}

// Scan accepts the shapes drivers hand back for a date column:
// text from SQLite, time.Time from Postgres (and from SQLite when the
// column is declared DATE).
func (d *Date) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*d = Date{}
		return nil
	case time.Time:
		*d = NewDate(v.Year(), v.Month(), v.Day())
		return nil
	case string:
		return d.scanString(v)
	case []byte:
		return d.scanString(string(v))
	default:
		return fmt.Errorf("types.Date: cannot scan %T", src)
	}
}

func (d *Date) scanString(s string) error {
	// SQLite may hand back a full timestamp for DATE columns.
	if len(s) > len(DateLayout) {
		s = s[:len(DateLayout)]
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
