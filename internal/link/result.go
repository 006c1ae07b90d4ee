package link

import (
	"context"
	"errors"
	"fmt"
)

// Outcome classifies the result of a caller-facing operation.
type Outcome int

// Operation outcomes.
const (
	OK Outcome = iota
	NotReady
	TransportFailure
	// Rejected means the service answered with an application error,
	// e.g. an invalid item.
	Rejected
	// Canceled means the caller abandoned the call before a reply.
	Canceled
)

func (o Outcome) String() string {
	switch o {
	case OK:
		return "OK"
	case NotReady:
		return "NOT_READY"
	case TransportFailure:
		return "TRANSPORT_ERROR"
	case Rejected:
		return "REJECTED"
	case Canceled:
		return "CANCELED"
	default:
		return "UNKNOWN"
	}
}

// Classify maps an error returned by AddItem or ListItems to an Outcome.
func Classify(err error) Outcome {
	switch {
	case err == nil:
		return OK
	case errors.Is(err, ErrNotReady):
		return NotReady
	case IsTransportError(err):
		return TransportFailure
	case errors.Is(err, context.Canceled):
		return Canceled
	default:
		return Rejected
	}
}

// Describe returns the human-readable status line for an operation result.
func Describe(op string, err error) string {
	switch Classify(err) {
	case OK:
		return op + " success"
	case NotReady:
		return "attempting to reconnect, please retry later"
	case TransportFailure:
		return fmt.Sprintf("%s failed: service connection lost", op)
	case Canceled:
		return op + " canceled"
	default:
		return fmt.Sprintf("%s failed: %v", op, err)
	}
}
