package opsauth

import "errors"

var (
	// ErrInvalidConfig wraps every Config validation failure.
	ErrInvalidConfig = errors.New("invalid opsauth config")
	// ErrBuilderUsed is returned by a second Build call on the same Builder.
	ErrBuilderUsed = errors.New("builder already used")
	// ErrClosed is returned by Initialize after Teardown.
	ErrClosed = errors.New("session manager closed")
	// ErrStorage wraps persisted-session read failures surfaced by Initialize.
	ErrStorage = errors.New("session storage failure")
)

// Messages surfaced through Manager.LastError.
const (
	MessageConnection         = "Unable to connect to the server. Please try again."
	MessageInvalidCredentials = "Invalid email or password"
	MessageRegistrationFailed = "Registration failed. Please check your details and try again."
	MessageStorage            = "Unable to save your session. Please try again."
	MessageClosed             = "The session manager has been shut down."
)
