package domain

import "errors"

var (
	// ErrStoreUnavailable is returned when the question source could not be loaded.
	ErrStoreUnavailable = errors.New("question store unavailable")
	// ErrQuestionNotFound indicates a checked question ID is not in the active set.
	ErrQuestionNotFound = errors.New("question not found")
	// ErrNoQuestions means a quiz cannot start because the store returned no questions.
	ErrNoQuestions = errors.New("no questions available")
	// ErrInvalidTransition is returned when an action is not allowed in the current state.
	ErrInvalidTransition = errors.New("action not allowed in current state")
	// ErrBusy indicates a store call for the session is still in flight.
	ErrBusy = errors.New("a request is already in progress")
	// ErrInvalidTimer is returned for a non-positive question timer.
	ErrInvalidTimer = errors.New("question timer must be positive")
)
