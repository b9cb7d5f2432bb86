package domain

import "errors"

// ErrAuthentication is returned when the upstream service rejects our
// credentials. It is fatal for the turn and surfaces to the caller.
var ErrAuthentication = errors.New("authentication rejected by upstream service")

// ErrServiceUnavailable is returned for transient upstream failures
// (5xx responses, timeouts, connection errors). Steps translate it into a
// friendly re-prompt instead of failing the turn.
var ErrServiceUnavailable = errors.New("upstream service unavailable")

// ErrSessionNotFound is returned when a session ID cannot be found in the store.
var ErrSessionNotFound = errors.New("session not found")
