package link

import (
	"errors"
	"fmt"
)

var (
	// ErrNotReady is returned by caller-facing operations while the
	// supervisor is not Ready. A connect attempt has been started; retry
	// the whole operation later.
	ErrNotReady = errors.New("service not ready")

	// ErrAlreadyRegistered is returned by Remote.RegisterListener when the
	// service already holds a subscription for the listener. The
	// supervisor treats it as success.
	ErrAlreadyRegistered = errors.New("listener already registered")

	// ErrRemoteDead is returned by LinkToDeath and DeathLink.Unlink once
	// the remote has died.
	ErrRemoteDead = errors.New("remote is dead")

	// ErrShutdown is returned by WaitReady after Shutdown.
	ErrShutdown = errors.New("supervisor shut down")
)

// TransportError reports that a typed call failed because the transport
// lost the remote endpoint mid-call.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport failure during %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// IsTransportError reports whether err wraps a *TransportError.
func IsTransportError(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}
