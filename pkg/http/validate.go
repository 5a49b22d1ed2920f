package http

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// report json names so clients see the fields they sent
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
	return v
}

// ReadAndValidateRequest binds, applies defaults and validates req.
// It returns nil on success, or a []ValidationError ready for BadRequestResponse.
func ReadAndValidateRequest(c echo.Context, req interface{}) interface{} {
	if err := c.Bind(req); err != nil {
		return validationErrors(err)
	}
	return ValidateStruct(c.Request().Context(), req)
}

// ValidateStruct applies defaults and validation tags to an already decoded value.
// Used for payloads that don't arrive over HTTP (Kafka, websocket).
func ValidateStruct(ctx context.Context, v interface{}) interface{} {
	if err := defaults.Set(v); err != nil {
		return validationErrors(err)
	}
	if err := validate.StructCtx(ctx, v); err != nil {
		return validationErrors(err)
	}
	return nil
}

// ValidationErr converts the result of ValidateStruct into an error.
func ValidationErr(res interface{}) error {
	if res == nil {
		return nil
	}
	if errs, ok := res.([]ValidationError); ok && len(errs) > 0 {
		return fmt.Errorf("invalid payload: %s", errs[0].Message)
	}
	return errors.New("invalid payload")
}

func validationErrors(err error) []ValidationError {
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) {
		out := make([]ValidationError, 0, len(fieldErrs))
		for _, fe := range fieldErrs {
			out = append(out, ValidationError{
				Code:    "ERR_" + strings.ToUpper(fe.Tag()),
				Field:   fe.Field(),
				Message: errorMessage(fe),
				Params:  errorParams(fe),
			})
		}
		return out
	}

	var he *echo.HTTPError
	if errors.As(err, &he) {
		return []ValidationError{{Code: "ERR_UNKNOWN", Message: fmt.Sprintf("%v", he.Message)}}
	}

	return []ValidationError{{Code: "ERR_UNKNOWN", Message: err.Error()}}
}

func errorMessage(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "email":
		return fmt.Sprintf("%s must be a valid email", field)
	case "e164":
		return fmt.Sprintf("%s must be a phone number in E.164 format", field)
	case "min":
		if fe.Type().Kind() == reflect.String {
			return fmt.Sprintf("%s must be at least %s characters", field, fe.Param())
		}
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "max":
		if fe.Type().Kind() == reflect.String {
			return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
		}
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, strings.ReplaceAll(fe.Param(), " ", ", "))
	case "gt", "gte", "lt", "lte":
		return fmt.Sprintf("%s must be %s %s", field, comparisonWords[fe.Tag()], fe.Param())
	default:
		return fmt.Sprintf("%s failed validation: %s", field, fe.Tag())
	}
}

var comparisonWords = map[string]string{
	"gt":  "greater than",
	"gte": "greater than or equal to",
	"lt":  "less than",
	"lte": "less than or equal to",
}

func errorParams(fe validator.FieldError) map[string]interface{} {
	switch fe.Tag() {
	case "min", "gte":
		return map[string]interface{}{"min": fe.Param()}
	case "max", "lte":
		return map[string]interface{}{"max": fe.Param()}
	case "gt", "lt":
		return map[string]interface{}{"value": fe.Param()}
	case "oneof":
		return map[string]interface{}{"options": strings.Split(fe.Param(), " ")}
	}
	return nil
}
