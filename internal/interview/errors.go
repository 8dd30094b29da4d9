package interview

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidState is returned when an operation violates the session state machine.
	ErrInvalidState = errors.New("invalid session state")
	// ErrInsufficientData marks a session with too few scored answers for a narrative assessment.
	// It selects the local Do Not Hire report and is never returned to callers.
	ErrInsufficientData = errors.New("insufficient data")
	// ErrEmptyAnswer is returned when an answer has no text.
	ErrEmptyAnswer = errors.New("please enter a response")
)

// StateError describes a rejected session operation.
type StateError struct {
	Op         string
	SessionID  string
	QuestionID string
	Reason     string
}

func (e *StateError) Error() string {
	msg := fmt.Sprintf("%s: session %s", e.Op, e.SessionID)
	if e.QuestionID != "" {
		msg += fmt.Sprintf(" question %s", e.QuestionID)
	}
	return msg + ": " + e.Reason
}

func (e *StateError) Unwrap() error {
	return ErrInvalidState
}
