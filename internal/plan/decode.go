package plan

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

// ErrMalformed is returned by Decode when the body is not a usable plan.
var ErrMalformed = errors.New("malformed plan response")

var (
	validateOnce sync.Once
	structValid  *validator.Validate
)

func structValidator() *validator.Validate {
	validateOnce.Do(func() {
		structValid = validator.New(validator.WithRequiredStructEnabled())
		structValid.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
	})
	return structValid
}

// wireResponse detects a missing "resources" member, which a value
// field cannot distinguish from an empty object.
type wireResponse struct {
	Plan      []DayPlan  `json:"plan" validate:"required,dive"`
	Resources *Resources `json:"resources" validate:"required"`
}

// Decode parses and validates a POST /plan body. Missing required
// members, wrong types and invalid values all yield an error wrapping
// ErrMalformed.
func Decode(data []byte) (*Response, error) {
	var w wireResponse
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if err := structValidator().Struct(w); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrMalformed, describeValidation(err))
	}
	return &Response{Plan: w.Plan, Resources: *w.Resources}, nil
}

func describeValidation(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		field := strings.TrimPrefix(fe.Namespace(), "wireResponse.")
		switch fe.Tag() {
		case "required":
			parts = append(parts, field+" is required")
		default:
			parts = append(parts, fmt.Sprintf("%s failed %s", field, fe.Tag()))
		}
	}
	return strings.Join(parts, "; ")
}
