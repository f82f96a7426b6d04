package exam

import "errors"

var (
	ErrExamNotFound    = errors.New("exam not found")
	ErrAttemptNotFound = errors.New("attempt not found")
	ErrForbidden       = errors.New("forbidden")
)
