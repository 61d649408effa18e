package dto

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/spec-kit/civic-reporter/internal/domain"
)

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func instance() *validator.Validate {
	validateOnce.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		v.RegisterTagNameFunc(func(field reflect.StructField) string {
			for _, tag := range []string{"json", "query"} {
				name := strings.SplitN(field.Tag.Get(tag), ",", 2)[0]
				if name == "-" {
					return ""
				}
				if name != "" {
					return name
				}
			}
			return field.Name
		})
		mustRegister(v, "category", func(fl validator.FieldLevel) bool {
			return domain.Category(fl.Field().String()).Valid()
		})
		mustRegister(v, "priority", func(fl validator.FieldLevel) bool {
			return domain.IssuePriority(fl.Field().String()).Valid()
		})
		mustRegister(v, "status", func(fl validator.FieldLevel) bool {
			return domain.IssueStatus(fl.Field().String()).Valid()
		})
		validate = v
	})
	return validate
}

func mustRegister(v *validator.Validate, tag string, fn validator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic(fmt.Sprintf("register %s validator: %v", tag, err))
	}
}

// Validate checks struct tags and returns field messages keyed by the
// dotted JSON path. A nil map means the value is valid.
func Validate(v any) (map[string]string, error) {
	err := instance().Struct(v)
	if err == nil {
		return nil, nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return nil, err
	}
	out := make(map[string]string, len(fieldErrs))
	for _, fe := range fieldErrs {
		out[fieldPath(fe)] = message(fe)
	}
	return out, nil
}

func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if idx := strings.Index(ns, "."); idx >= 0 {
		return ns[idx+1:]
	}
	return ns
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		if isText(fe.Kind()) {
			return fmt.Sprintf("must be at least %s characters", fe.Param())
		}
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "max":
		if isText(fe.Kind()) {
			return fmt.Sprintf("must be at most %s characters", fe.Param())
		}
		if fe.Kind() == reflect.Slice {
			return fmt.Sprintf("must contain at most %s items", fe.Param())
		}
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "email":
		return "must be a valid email address"
	case "url":
		return "must be a valid URL"
	case "uuid":
		return "must be a valid user id"
	case "oneof":
		return "must be one of: " + fe.Param()
	case "category", "eq=all|category":
		return "is not a valid category"
	case "priority", "eq=all|priority":
		return "is not a valid priority"
	case "status", "eq=all|status":
		return "is not a valid status"
	default:
		return "is invalid"
	}
}

func isText(kind reflect.Kind) bool {
	return kind == reflect.String
}
