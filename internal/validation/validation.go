// Package validation wraps go-playground/validator with the catalog's custom
// tags and turns validation failures into short user-facing messages.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/Lixing-Zhang/nutri-catalog/backend/internal/nutriscore"
)

var (
	categoryPattern = regexp.MustCompile(`^[a-z0-9]+(?:[_-][a-z0-9]+)*$`)
	usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)
)

// Validator validates request payloads. It is safe for concurrent use.
type Validator struct {
	v *validator.Validate
}

// New returns a Validator with the custom tags registered:
// category (lowercase slug), username (letters, digits, underscore) and
// nutrigrade (A-E).
func New() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())

	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})

	// Registration only fails for empty tags or nil funcs.
	_ = v.RegisterValidation("category", func(fl validator.FieldLevel) bool {
		return categoryPattern.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("username", func(fl validator.FieldLevel) bool {
		return usernamePattern.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("nutrigrade", validGrade)

	return &Validator{v: v}
}

func validGrade(fl validator.FieldLevel) bool {
	return nutriscore.Grade(fl.Field().String()).Valid()
}

// Struct validates s and returns an error whose message names the first
// failing field.
func (val *Validator) Struct(s any) error {
	err := val.v.Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		return errors.New(message(verrs[0]))
	}
	return err
}

func message(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "min":
		return fmt.Sprintf("%s must be at least %s characters long", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters long", field, fe.Param())
	case "gte":
		return fmt.Sprintf("%s must not be negative", field)
	case "email":
		return "Please enter a valid email address"
	case "username":
		return "Username can only contain letters, numbers, and underscores"
	case "category":
		return fmt.Sprintf("%s must be a lowercase slug such as energy_bars", field)
	case "nutrigrade":
		return fmt.Sprintf("%s must be one of A, B, C, D, E", field)
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}
