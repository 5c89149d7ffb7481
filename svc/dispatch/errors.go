package dispatch

import "errors"

var (
	ErrNoTemplate       = errors.New("no template configured for this email type")
	ErrInvalidEventType = errors.New("invalid email type")
)
