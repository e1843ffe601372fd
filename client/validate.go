package client

import (
	"errors"
	"regexp"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/linesmerrill/forensic-case-api/policy"
)

var hhmm = regexp.MustCompile(`^([01]\d|2[0-3]):([0-5]\d)$`)

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func validatorInstance() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New()
		_ = validate.RegisterValidation("hhmm", func(fl validator.FieldLevel) bool {
			return hhmm.MatchString(fl.Field().String())
		})
		_ = validate.RegisterValidation("approvable", func(fl validator.FieldLevel) bool {
			return policy.IsApprovableRole(fl.Field().String())
		})
	})
	return validate
}

// check validates v and turns the first failing field into a ValidationError
// carrying messages[field], or fallback when the field has no message
func check(v interface{}, messages map[string]string, fallback string) error {
	err := validatorInstance().Struct(v)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return invalid("", fallback)
	}
	field := fieldErrs[0].Field()
	if msg, ok := messages[field]; ok {
		return invalid(field, msg)
	}
	return invalid(field, fallback)
}
