package ads

import (
	"errors"
	"sort"
	"strings"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrForbidden       = errors.New("you do not have permission to perform this action")
	ErrUnauthenticated = errors.New("authentication credentials were not provided")
	ErrRateLimited     = errors.New("request was throttled")
	ErrInvalidParams   = errors.New("invalid parameters")
)

const (
	MsgRequired         = "This field is required."
	MsgFieldNotEditable = "Only monthly_rent and contact_phone can be updated once approved."
	MsgImageLimit       = "Maximum of 10 images allowed per ad."
	MsgLocationPair     = "Latitude and longitude must be provided together."
	MsgTitleTaken       = "You already have an active ad with this title."
	MsgImageConflict    = "Another image upload for this ad finished first. Please retry."
)

// ValidationError accumulates field-keyed messages. The zero value is usable.
type ValidationError struct {
	Fields map[string][]string
}

func (e *ValidationError) Add(field, msg string) {
	if e.Fields == nil {
		e.Fields = make(map[string][]string)
	}
	e.Fields[field] = append(e.Fields[field], msg)
}

func (e *ValidationError) Has(field string) bool {
	return len(e.Fields[field]) > 0
}

func (e *ValidationError) Empty() bool {
	return len(e.Fields) == 0
}

// OrNil returns nil when no field failed.
func (e *ValidationError) OrNil() error {
	if e == nil || e.Empty() {
		return nil
	}
	return e
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+strings.Join(e.Fields[k], " "))
	}
	return strings.Join(parts, "; ")
}

// FieldError builds a single-field validation error.
func FieldError(field, msg string) *ValidationError {
	v := &ValidationError{}
	v.Add(field, msg)
	return v
}

// MissingField is the error returned when a mandatory field is absent.
func MissingField(field string) *ValidationError {
	return FieldError(field, MsgRequired)
}
