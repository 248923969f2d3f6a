package domain

import "errors"

var (
	ErrInvalidTransition  = errors.New("intent not allowed in current call state")
	ErrUnknownParticipant = errors.New("unknown participant")
	ErrCallSelf           = errors.New("cannot call yourself")
	ErrMediaUnavailable   = errors.New("local media unavailable")
	ErrNoTransport        = errors.New("no transport session")
	ErrParticipantOffline = errors.New("participant offline")
	ErrServiceStopped     = errors.New("call service stopped")
	ErrEmptyMessage       = errors.New("message content cannot be empty")
	ErrInvalidEnvelope    = errors.New("invalid envelope")
)
