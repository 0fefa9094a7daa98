package service

import (
	"errors"
	"fmt"
)

// Errors the controllers translate into HTTP statuses. Upstream causes are
// wrapped so the generic message reaches the user while the cause only
// reaches the log.
var (
	ErrEmptySubmission = errors.New("a message or at least one file is required")
	ErrMissingSession  = errors.New("a session id is required")
	ErrPromptRequired  = errors.New("a text prompt is required to generate images")
	ErrTooManyFiles    = errors.New("too many files in one submission")
	ErrFileTooLarge    = errors.New("file exceeds the size limit")
	ErrUserNotFound    = errors.New("user not found")
	ErrSessionAccess   = errors.New("access to this session is denied")
	ErrUpstream        = errors.New("upstream service failure")
)

func upstream(err error) error {
	return fmt.Errorf("%w: %v", ErrUpstream, err)
}
