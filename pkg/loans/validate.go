package loans

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// Report fields by their input key rather than the Go field name.
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validate checks the input fields of t against their allowed ranges. A
// violation is returned as a *DomainError naming the first offending field.
func (t Terms) Validate() error {
	err := validate.Struct(t)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		fe := fieldErrs[0]
		return domainErrorf("loans.Validate", "%s must satisfy %s", fe.Field(), describeRule(fe.Tag(), fe.Param()))
	}
	return fmt.Errorf("failed to validate loan terms: %w", err)
}

func describeRule(tag, param string) string {
	switch tag {
	case "gt":
		return "> " + param
	case "gte":
		return ">= " + param
	case "lt":
		return "< " + param
	case "lte":
		return "<= " + param
	default:
		return tag
	}
}
