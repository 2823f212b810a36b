package model

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ErrValidation is matched by every *ValidationError.
var ErrValidation = errors.New("validation failed")

// ValidationError carries one message per offending field.
type ValidationError struct {
	Messages []string
}

// Error joins the field messages the way API clients display them.
func (e *ValidationError) Error() string {
	return strings.Join(e.Messages, ", ")
}

// Is lets errors.Is(err, ErrValidation) match.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// NewValidationError builds a ValidationError from explicit messages.
func NewValidationError(messages ...string) *ValidationError {
	return &ValidationError{Messages: messages}
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	// Report JSON names so messages match request bodies.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return fld.Name
		}
		return name
	})

	mustRegister(v, "category", func(fl validator.FieldLevel) bool {
		return Category(fl.Field().String()).IsValid()
	})
	mustRegister(v, "priority", func(fl validator.FieldLevel) bool {
		return Priority(fl.Field().String()).IsValid()
	})
	mustRegister(v, "status", func(fl validator.FieldLevel) bool {
		return Status(fl.Field().String()).IsValid()
	})

	return v
}

func mustRegister(v *validator.Validate, tag string, fn validator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic(fmt.Sprintf("register %s validation: %v", tag, err))
	}
}

// fieldMessages holds the user-facing text for known field/tag pairs.
var fieldMessages = map[string]string{
	"title.required":    "Please add a task title",
	"title.min":         "Please add a task title",
	"title.max":         fmt.Sprintf("Title cannot be more than %d characters", MaxTitleLength),
	"description.max":   fmt.Sprintf("Description cannot be more than %d characters", MaxDescriptionLength),
	"category.category": "Category must be one of Work, Personal, Hobby, Other",
	"priority.priority": "Priority must be one of Low, Medium, High",
	"status.status":     "Status must be one of Not Started, In Progress, Completed",
	"username.required": "Please provide a username",
	"username.min":      "Username must be between 3 and 50 characters",
	"username.max":      "Username must be between 3 and 50 characters",
	"email.required":    "Please provide an email",
	"email.email":       "Please provide a valid email",
	"password.required": "Please provide a password",
	"password.min":      "Password must be at least 6 characters",
	"password.max":      "Password must be at most 72 characters",
}

// Validate runs struct validation and converts failures into a ValidationError.
func Validate(s any) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("validate %T: %w", s, err)
	}

	messages := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		messages = append(messages, messageFor(fe))
	}
	return &ValidationError{Messages: messages}
}

func messageFor(fe validator.FieldError) string {
	if msg, ok := fieldMessages[fe.Field()+"."+fe.Tag()]; ok {
		return msg
	}
	return fmt.Sprintf("%s is invalid", fe.Field())
}
