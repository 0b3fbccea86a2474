package store

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"homeplan/internal/model"
)

var validate *validator.Validate

func init() {
	validate = validator.New()
	if err := validate.RegisterValidation("isodate", validateISODate); err != nil {
		panic(fmt.Sprintf("failed to register isodate validator: %v", err))
	}
	if err := validate.RegisterValidation("slot", validateSlot); err != nil {
		panic(fmt.Sprintf("failed to register slot validator: %v", err))
	}
}

func validateISODate(fl validator.FieldLevel) bool {
	_, err := time.Parse("2006-01-02", fl.Field().String())
	return err == nil
}

func validateSlot(fl validator.FieldLevel) bool {
	return model.Slot(fl.Field().String()).Valid()
}

// ValidationError wraps a failed input check.
type ValidationError struct {
	Err error
}

func (e *ValidationError) Error() string { return "invalid input: " + e.Err.Error() }
func (e *ValidationError) Unwrap() error { return e.Err }

func check(v any) error {
	if err := validate.Struct(v); err != nil {
		if verrs, ok := err.(validator.ValidationErrors); ok {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %s", fe.Namespace(), fe.Tag()))
			}
			return &ValidationError{Err: errors.New(strings.Join(msgs, "; "))}
		}
		return &ValidationError{Err: err}
	}
	return nil
}
