package dispatch

import "errors"

// ErrAlreadyResponded is returned by Request.Respond when the request has
// already been answered once (spec §4.7, scenario S5). Respond is
// exactly-once per Request; a second call never reaches the wire.
var ErrAlreadyResponded = errors.New("dispatch: request already responded to")

// TransportError wraps a failure surfaced by the underlying
// netio.Provider, so callers can distinguish "the remote end rejected the
// exchange" (PayloadDecodeError, application errors) from "the datagram
// never made it out" (spec §6 error taxonomy).
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return "dispatch: transport error: " + e.Err.Error()
}

func (e *TransportError) Unwrap() error {
	return e.Err
}
