package domain

import "errors"

// -----------------------------------------------------------------------------
// Domain Errors
// These errors represent domain-level failures and are used by services and
// repositories to communicate domain-specific error conditions.
// -----------------------------------------------------------------------------

// Mastery errors
var (
	ErrEmptyCatalogue = errors.New("skill catalogue is empty")
	ErrUnknownSkill   = errors.New("unknown skill")
)

// Session errors
var (
	ErrSessionNotFound   = errors.New("session not found")
	ErrSessionNotActive  = errors.New("session is not active")
	ErrSessionNotStarted = errors.New("session has not started")
	ErrSessionEnded      = errors.New("session has ended")
	ErrInvalidTransition = errors.New("invalid session state transition")
)

// General errors
var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidInput = errors.New("invalid input")
)
