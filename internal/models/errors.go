package models

import "errors"

// Error kinds surfaced by the room core. Callers match them with errors.Is;
// none of them is fatal and each can be retried with corrected input.
var (
	ErrNotFound     = errors.New("not found")
	ErrAccessDenied = errors.New("access denied")
	ErrInvalidKey   = errors.New("invalid room key")
	ErrInvalidInput = errors.New("invalid input")
)
