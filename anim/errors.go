package anim

import "errors"

var (
	// ErrNotFound is returned when a named artboard, animation, state
	// machine or input does not exist.
	ErrNotFound = errors.New("anim: not found")
	// ErrCleanedUp is returned by operations on an Instance after Cleanup.
	ErrCleanedUp = errors.New("anim: instance cleaned up")
	// ErrFormat wraps every decode failure.
	ErrFormat = errors.New("anim: invalid asset")
)
