package domain

import "errors"

var (
	ErrPollNotFound      = errors.New("poll not found")
	ErrPollClosed        = errors.New("poll has ended")
	ErrPollStarting      = errors.New("poll is still starting")
	ErrAlreadyVoted      = errors.New("already voted")
	ErrInvalidOption     = errors.New("invalid poll option")
	ErrRenderUnavailable = errors.New("render destination unavailable")
	ErrStoreUnavailable  = errors.New("poll store unavailable")
	ErrStoreCorrupt      = errors.New("poll store corrupt")
)

// ValidationError rejects a create request. Message is shown to the requester.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func NewValidationError(message string) *ValidationError {
	return &ValidationError{Message: message}
}
