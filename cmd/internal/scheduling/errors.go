package scheduling

import "errors"

var (
	ErrInvalidInterval = errors.New("end must be after start")
	ErrInvalidInput    = errors.New("invalid input")
	ErrStartInPast     = errors.New("start is in the past")
)
