// Package service provides business logic for the application.
package service

import (
	"errors"

	"github.com/taskflow/taskflow/internal/model"
)

// Service errors.
var (
	ErrValidation         = model.ErrValidation
	ErrDuplicateIdentity  = errors.New("user already exists")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrUserNotFound       = errors.New("user not found")
	ErrForbidden          = errors.New("not authorized to access this task")
	ErrTaskNotFound       = errors.New("task not found")
	ErrInvalidTaskID      = errors.New("invalid task ID format")
	ErrVersionConflict    = errors.New("task was modified by another request")
)

// ValidationError is the error returned for rejected input.
type ValidationError = model.ValidationError
