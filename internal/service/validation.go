package service

import (
	"course_studio_backend/internal/model"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	v.RegisterValidation("course_category", func(fl validator.FieldLevel) bool {
		value := fl.Field().String()
		for _, c := range model.CourseCategories {
			if c == value {
				return true
			}
		}
		return false
	})
	return v
}

func describeFieldError(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("must be at least %s characters", fe.Param())
		}
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "max":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("must be at most %s characters", fe.Param())
		}
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "oneof":
		return "must be one of: " + fe.Param()
	case "uuid":
		return "must be a valid id"
	case "course_category":
		return "is not a known category"
	default:
		return "is invalid"
	}
}

// validationResult 将 validator 的错误转换为带字段信息的 "Invalid data" 结果
func validationResult(err error) ActionResult {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return invalidResult("Invalid data")
	}
	fields := make([]FieldError, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, FieldError{Field: fe.Field(), Error: describeFieldError(fe)})
	}
	return invalidResult("Invalid data", fields...)
}
