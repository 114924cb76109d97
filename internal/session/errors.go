package session

import (
	"errors"
	"strings"
)

var (
	// ErrValidationFailed matches every *ValidationError.
	ErrValidationFailed = errors.New("validation failed")
	// ErrInvalidTransition matches every *TransitionError.
	ErrInvalidTransition = errors.New("invalid transition")
	// ErrSessionChanged is returned when the take was discarded while a
	// collaborator call was in flight; the result was dropped.
	ErrSessionChanged = errors.New("session changed while analysis was running")
	// ErrBusy is returned when a notes analysis is already in flight.
	ErrBusy = errors.New("analysis already in progress")
)

// Field names reported by ValidationError.
const (
	FieldTitle      = "title"
	FieldInstrument = "instrument"
	FieldAudio      = "audio"
	FieldDuration   = "duration"
	FieldNotes      = "notes"
)

// ValidationError lists the required fields that are missing.
type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	return "validation failed: missing " + strings.Join(e.Fields, ", ")
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidationFailed }

// Has reports whether field is among the missing fields.
func (e *ValidationError) Has(field string) bool {
	for _, f := range e.Fields {
		if f == field {
			return true
		}
	}
	return false
}

// TransitionError is returned when an event is not valid in the current state.
type TransitionError struct {
	From  Kind
	Event string
}

func (e *TransitionError) Error() string {
	return "cannot " + e.Event + " while " + string(e.From)
}

func (e *TransitionError) Is(target error) bool { return target == ErrInvalidTransition }
