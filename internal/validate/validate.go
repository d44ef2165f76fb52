// Package validate builds the go-playground validator shared by the
// handlers, the course service and the config loader.
package validate

import (
	"reflect"

	"github.com/aanand-mishra/courses-api/internal/types"
	"github.com/go-playground/validator/v10"
)

// New returns a validator that understands the application's custom
// field types. A zero types.Date counts as missing for "required".
func New() *validator.Validate {
	v := validator.New()
	v.RegisterCustomTypeFunc(dateValue, types.Date{})
	return v
}

func dateValue(field reflect.Value) any {
	d, ok := field.Interface().(types.Date)
	if !ok || d.IsZero() {
		return nil
	}
	return d.Time
}
