package models

import "errors"

var (
	ErrNotFound         = errors.New("not found")
	ErrInvalidID        = errors.New("invalid id")
	ErrValidation       = errors.New("validation error")
	ErrInvalidRange     = errors.New("invalid date range")
	ErrAlreadyStarted   = errors.New("package already started")
	ErrAlreadyCompleted = errors.New("wash already completed for this day")
	ErrInvalidState     = errors.New("invalid wash state")
	ErrQuotaExceeded    = errors.New("wash quota exceeded")
	ErrOutOfWindow      = errors.New("date outside subscription window")
)
