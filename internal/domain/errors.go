package domain

import (
	"errors"
	"strings"
)

var (
	// ErrNotFound is the parent of every missing-resource error.
	ErrNotFound = errors.New("not found")
	// ErrPollNotFound is returned when a poll id does not exist.
	ErrPollNotFound = notFound("poll not found")
	// ErrQuestionNotFound is returned when a question id does not exist within the poll.
	ErrQuestionNotFound = notFound("question not found")
	// ErrChoiceNotFound is returned when a choice id does not exist.
	ErrChoiceNotFound = notFound("choice not found")
	// ErrStorage wraps unexpected failures of the backing store.
	ErrStorage = errors.New("storage failure")
)

type notFoundError struct{ msg string }

func notFound(msg string) error { return &notFoundError{msg: msg} }

func (e *notFoundError) Error() string { return e.msg }

func (e *notFoundError) Unwrap() error { return ErrNotFound }

// Validation codes.
const (
	CodeRequired              = "required"
	CodeInvalid               = "invalid"
	CodeMaxLength             = "max_length"
	CodeInvalidChoice         = "invalid_choice"
	CodeChoicesRequired       = "ChoicesRequired"
	CodeEndBeforeStart        = "EndBeforeStart"
	CodeDuplicateSubmission   = "DuplicateSubmission"
	CodeEmptySubmission       = "EmptySubmission"
	CodeTypeMismatch          = "TypeMismatch"
	CodeUnknownChoice         = "UnknownChoice"
	CodeDuplicateSingleAnswer = "DuplicateSingleAnswer"
	CodeIncompleteSubmission  = "IncompleteSubmission"
)

// NonFieldErrors is the field name used for errors spanning several fields.
const NonFieldErrors = "non_field_errors"

// FieldError is a single violation of client input.
type FieldError struct {
	Field   string
	Code    string
	Message string
}

// ValidationError collects every violated field of a request.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+": "+f.Message)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Add appends a violation.
func (e *ValidationError) Add(field, code, message string) {
	e.Fields = append(e.Fields, FieldError{Field: field, Code: code, Message: message})
}

// Has reports whether field already has a violation.
func (e *ValidationError) Has(field string) bool {
	for _, f := range e.Fields {
		if f.Field == field {
			return true
		}
	}
	return false
}

// OrNil returns e as an error, or nil when nothing was collected.
func (e *ValidationError) OrNil() error {
	if e == nil || len(e.Fields) == 0 {
		return nil
	}
	return e
}

// NewValidationError builds a ValidationError holding a single violation.
func NewValidationError(field, code, message string) *ValidationError {
	v := &ValidationError{}
	v.Add(field, code, message)
	return v
}

// HasCode reports whether err is a ValidationError carrying code.
func HasCode(err error, code string) bool {
	var v *ValidationError
	if !errors.As(err, &v) {
		return false
	}
	for _, f := range v.Fields {
		if f.Code == code {
			return true
		}
	}
	return false
}
