package middleware

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"time"

	"campusdesk/internal/apperr"
	"campusdesk/internal/models"
	"campusdesk/internal/utils"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

var (
	registerOnce sync.Once
	registerErr  error
)

// RegisterValidators adds the campus binding tags to gin's validator:
// "phone" (at least 10 digits) and "date" (YYYY-MM-DD). Safe to call twice.
func RegisterValidators() error {
	registerOnce.Do(func() { registerErr = registerValidators() })
	return registerErr
}

func registerValidators() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return errors.New("gin binding engine is not go-playground/validator")
	}
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	if err := v.RegisterValidation("phone", func(fl validator.FieldLevel) bool {
		return utils.ValidPhone(fl.Field().String())
	}); err != nil {
		return err
	}
	return v.RegisterValidation("date", func(fl validator.FieldLevel) bool {
		_, err := time.Parse(models.DateLayout, strings.TrimSpace(fl.Field().String()))
		return err == nil
	})
}

// BindError turns a gin binding failure into a validation error naming the
// first offending field.
func BindError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return apperr.Validation("malformed request body")
	}
	fe := verrs[0]
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return apperr.Validationf("%s is required", field)
	case "email":
		return apperr.Validationf("%s must be a valid email address", field)
	case "phone":
		return apperr.Validationf("%s must have at least 10 digits", field)
	case "date":
		return apperr.Validationf("%s must be YYYY-MM-DD", field)
	case "min":
		return apperr.Validationf("%s must be at least %s characters long", field, fe.Param())
	case "max":
		return apperr.Validationf("%s must be at most %s characters long", field, fe.Param())
	case "oneof":
		return apperr.Validationf("%s must be one of [%s]", field, fe.Param())
	case "url", "http_url":
		return apperr.Validationf("%s must be a valid URL", field)
	default:
		return apperr.Validation(fmt.Sprintf("%s failed validation for '%s'", field, fe.Tag()))
	}
}
