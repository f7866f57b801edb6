package services

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report JSON field names, not Go field names.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// validateInput checks in against its validate tags. The first failing
// field becomes an ErrInvalidInput.
func validateInput(in any) error {
	err := validate.Struct(in)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return invalidInput(err.Error())
	}
	fe := verrs[0]
	switch fe.Tag() {
	case "required":
		return invalidInput(fmt.Sprintf("%s is required", fe.Field()))
	case "email":
		return invalidInput(fmt.Sprintf("%s must be a valid email address", fe.Field()))
	default:
		return invalidInput(fmt.Sprintf("%s is invalid (%s)", fe.Field(), fe.Tag()))
	}
}
