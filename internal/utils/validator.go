package utils

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// ValidateStruct runs the struct's `validate` tags and returns a field→message
// map, or nil when the value is valid.
func ValidateStruct(data interface{}) map[string]string {
	err := validate.Struct(data)
	if err == nil {
		return nil
	}

	out := make(map[string]string)
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		for _, fe := range verrs {
			out[fe.Field()] = simpleMessage(fe)
		}
		return out
	}
	out["_"] = err.Error()
	return out
}

func simpleMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required"
	case "min":
		return fmt.Sprintf("Minimum is %s", fe.Param())
	case "max":
		return fmt.Sprintf("Maximum is %s", fe.Param())
	case "datetime":
		return fmt.Sprintf("Must match layout %s", fe.Param())
	case "gt":
		return fmt.Sprintf("Must be greater than %s", fe.Param())
	case "gte":
		return fmt.Sprintf("Must be at least %s", fe.Param())
	default:
		return fmt.Sprintf("Invalid %s field", fe.Field())
	}
}

// FormatValidationErrors flattens the map from ValidateStruct into one line,
// ordered by field name.
func FormatValidationErrors(errs map[string]string) string {
	fields := make([]string, 0, len(errs))
	for f := range errs {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	msgs := make([]string, 0, len(fields))
	for _, f := range fields {
		msgs = append(msgs, fmt.Sprintf("%s: %s", f, errs[f]))
	}
	return strings.Join(msgs, "; ")
}
