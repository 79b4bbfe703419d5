package entities

import (
	"errors"
	"fmt"
)

// ErrorCode classifies relationship engine failures
type ErrorCode string

const (
	CodeValidation            ErrorCode = "VALIDATION_ERROR"
	CodeNotFound              ErrorCode = "NOT_FOUND"
	CodeDuplicateRelationship ErrorCode = "DUPLICATE_RELATIONSHIP"
	CodePartialState          ErrorCode = "PARTIAL_STATE"
	CodeTransport             ErrorCode = "TRANSPORT_ERROR"
)

// Sentinel errors for errors.Is checks
var (
	ErrValidation            = errors.New("validation error")
	ErrNotFound              = errors.New("not found")
	ErrDuplicateRelationship = errors.New("relationship already exists")
	ErrPartialState          = errors.New("partial relationship state")
	ErrTransport             = errors.New("store unavailable")
)

var sentinelByCode = map[ErrorCode]error{
	CodeValidation:            ErrValidation,
	CodeNotFound:              ErrNotFound,
	CodeDuplicateRelationship: ErrDuplicateRelationship,
	CodePartialState:          ErrPartialState,
	CodeTransport:             ErrTransport,
}

// RelationshipError is the structured failure returned by every engine operation
type RelationshipError struct {
	Code    ErrorCode
	Op      string // Operation that failed (e.g., "smart_create")
	Message string
	Err     error // Underlying cause, if any
}

func (e *RelationshipError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = string(e.Code)
	}
	if e.Op != "" {
		msg = fmt.Sprintf("%s: %s", e.Op, msg)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *RelationshipError) Unwrap() error {
	return e.Err
}

// Is matches the sentinel for the error's code
func (e *RelationshipError) Is(target error) bool {
	return sentinelByCode[e.Code] == target
}

// NewValidationError creates a ValidationError
func NewValidationError(op, message string) *RelationshipError {
	return &RelationshipError{Code: CodeValidation, Op: op, Message: message}
}

// NewNotFoundError creates a NotFound error
func NewNotFoundError(op, message string) *RelationshipError {
	return &RelationshipError{Code: CodeNotFound, Op: op, Message: message}
}

// NewDuplicateError creates a DuplicateRelationship error
func NewDuplicateError(op, message string) *RelationshipError {
	return &RelationshipError{Code: CodeDuplicateRelationship, Op: op, Message: message}
}

// NewPartialStateError describes a pair found with only one half present
func NewPartialStateError(op, message string) *RelationshipError {
	return &RelationshipError{Code: CodePartialState, Op: op, Message: message}
}

// NewTransportError wraps a store failure
func NewTransportError(op string, err error) *RelationshipError {
	return &RelationshipError{Code: CodeTransport, Op: op, Message: "store call failed", Err: err}
}

// CodeOf returns the error code carried by err.
// Errors that did not come from the engine are reported as transport errors.
func CodeOf(err error) ErrorCode {
	if err == nil {
		return ""
	}
	var re *RelationshipError
	if errors.As(err, &re) {
		return re.Code
	}
	for code, sentinel := range sentinelByCode {
		if errors.Is(err, sentinel) {
			return code
		}
	}
	return CodeTransport
}
