package domain

import "errors"

var (
	// ErrMissingCredential is fatal at startup.
	ErrMissingCredential = errors.New("missing API credential")

	// ErrNoSpeech means nothing was heard before the listen timeout.
	ErrNoSpeech = errors.New("no speech detected")

	// ErrNotUnderstood means audio was captured but produced no text.
	ErrNotUnderstood = errors.New("speech not understood")

	ErrSpeakerBusy    = errors.New("speech synthesis already in progress")
	ErrTurnInProgress = errors.New("voice turn already in progress")
)
