package domain

import "errors"

var (
	// ErrSessionNotFound is returned when a session ID is unknown to the store.
	ErrSessionNotFound = errors.New("game session not found")
	// ErrQuestionNotFound is returned when a posted-question ID is unknown.
	ErrQuestionNotFound = errors.New("posted question not found")
)
