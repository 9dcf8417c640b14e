// Package validation wraps go-playground/validator with the tag set used by
// the domain models and renders failures as short field messages.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	once     sync.Once
	validate *validator.Validate
)

var tagMessages = map[string]string{
	"required": "is required",
	"email":    "must be a valid email address",
	"max":      "must be at most %s",
	"min":      "must be at least %s",
	"gte":      "must be greater than or equal to %s",
	"oneof":    "must be one of: %s",
	"uuid":     "must be a valid UUID",
}

func instance() *validator.Validate {
	once.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(f reflect.StructField) string {
			name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
			if name == "-" {
				return ""
			}
			return name
		})
	})
	return validate
}

// Struct validates s against its `validate` tags. The returned error lists
// every failing field using its JSON name.
func Struct(s interface{}) error {
	err := instance().Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fieldMessage(fe))
	}
	return errors.New(strings.Join(msgs, ", "))
}

func fieldMessage(fe validator.FieldError) string {
	msg, ok := tagMessages[fe.Tag()]
	if !ok {
		return fe.Field() + " is invalid"
	}
	if strings.Contains(msg, "%s") {
		param := fe.Param()
		if fe.Tag() == "oneof" {
			param = strings.Join(strings.Fields(param), ", ")
		}
		msg = fmt.Sprintf(msg, param)
	}
	return fe.Field() + " " + msg
}
