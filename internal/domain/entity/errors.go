package entity

import (
	"errors"
	"fmt"
	"strings"
)

// Standard domain errors
var (
	ErrValidation    = errors.New("invalid request data")
	ErrGeneration    = errors.New("ui generation failed")
	ErrPersistence   = errors.New("generation storage failed")
	ErrSimilarityOff = errors.New("similarity search is not configured")
)

// FieldError names a single request field that failed validation.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

type ValidationError struct {
	Message string
	Errors  []FieldError
}

func (e *ValidationError) Error() string {
	fields := make([]string, 0, len(e.Errors))
	for _, fe := range e.Errors {
		fields = append(fields, fe.Field)
	}
	return fmt.Sprintf("%s: %s", e.Message, strings.Join(fields, ", "))
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// Fields returns the distinct field names in the order they were reported.
func (e *ValidationError) Fields() []string {
	seen := make(map[string]bool, len(e.Errors))
	var out []string
	for _, fe := range e.Errors {
		if !seen[fe.Field] {
			seen[fe.Field] = true
			out = append(out, fe.Field)
		}
	}
	return out
}

// GenerationError reports a failed AI stage. Error() never includes the
// provider's message so credentials cannot leak into responses; use Unwrap for logs.
type GenerationError struct {
	Stage    Stage
	Provider string
	cause    error
}

func NewGenerationError(stage Stage, provider string, cause error) *GenerationError {
	return &GenerationError{Stage: stage, Provider: provider, cause: cause}
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("%s stage failed on provider %s", e.Stage, e.Provider)
}

func (e *GenerationError) Unwrap() error { return e.cause }

func (e *GenerationError) Is(target error) bool {
	return target == ErrGeneration
}

type PersistenceError struct {
	Op    string
	cause error
}

func NewPersistenceError(op string, cause error) *PersistenceError {
	return &PersistenceError{Op: op, cause: cause}
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence %s: %v", e.Op, e.cause)
}

func (e *PersistenceError) Unwrap() error { return e.cause }

func (e *PersistenceError) Is(target error) bool {
	return target == ErrPersistence
}
