package validation

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/simaogato/ledger-backend/internal/domain"
)

// forbiddenRunes would break the flat-file record format
const forbiddenRunes = "|;\n\r"

var (
	once     sync.Once
	instance *validator.Validate
)

func get() *validator.Validate {
	once.Do(func() {
		instance = validator.New(validator.WithRequiredStructEnabled())
		_ = instance.RegisterValidation("ledgertext", func(fl validator.FieldLevel) bool {
			return !strings.ContainsAny(fl.Field().String(), forbiddenRunes)
		})
	})
	return instance
}

// Struct validates s against its `validate` tags.
// Failures are returned as domain.ErrValidation with one reason per field.
func Struct(s any) error {
	err := get().Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	reasons := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		reasons = append(reasons, describe(fe))
	}
	return fmt.Errorf("%w: %s", domain.ErrValidation, strings.Join(reasons, "; "))
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required", "required_if":
		return fe.Field() + " is required"
	case "email":
		return fe.Field() + " must be a valid email address"
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", fe.Field(), fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", fe.Field(), fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", fe.Field(), fe.Param())
	case "datetime":
		return fmt.Sprintf("%s must be a date formatted as %s", fe.Field(), fe.Param())
	case "ledgertext":
		return fe.Field() + " must not contain '|', ';' or line breaks"
	default:
		return fmt.Sprintf("%s failed %q", fe.Field(), fe.Tag())
	}
}
