package service

import (
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// newInputValidator reports fields by their json names.
func newInputValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}
