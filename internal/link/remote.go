package link

import (
	"context"

	"github.com/tether-io/tether/internal/models"
)

// Target addresses a service: a well-known service identifier inside a
// namespace.
type Target struct {
	Service   string
	Namespace string
}

func (t Target) String() string {
	return t.Namespace + "/" + t.Service
}

// Remote is the typed call surface of a connected service. Calls block
// until the service replies, the transport fails (*TransportError) or ctx
// ends. A Remote performs no retries.
type Remote interface {
	AddItem(ctx context.Context, item models.Item) error
	ListItems(ctx context.Context) ([]models.Item, error)
	RegisterListener(ctx context.Context, l Listener) error
	UnregisterListener(ctx context.Context, l Listener) error

	// IsAlive reports whether the remote is still usable. It does not
	// block.
	IsAlive() bool

	// LinkToDeath arranges for onDied to run once when the remote
	// process dies. Returns ErrRemoteDead if it already has.
	LinkToDeath(onDied func()) (DeathLink, error)

	// Close releases the transport. Idempotent.
	Close() error
}

// DeathLink is the cancellable handle returned by LinkToDeath.
type DeathLink interface {
	// Unlink stops the death notification. It is idempotent and safe
	// after the remote is gone; in that case it returns ErrRemoteDead.
	Unlink() error
}

// Listener receives push notifications. OnItemAdded runs on a goroutine
// owned by the transport and must return promptly.
type Listener interface {
	ID() string
	OnItemAdded(item models.Item)
}

// Connection receives the outcome of a bind request.
type Connection interface {
	OnConnected(r Remote)
	OnDisconnected()
}

// Binder is the platform IPC layer. Bind returns without blocking;
// completion arrives later through conn. An error means the request was
// rejected outright and no callback will follow.
type Binder interface {
	Bind(target Target, conn Connection) error
	Unbind(conn Connection)
}

// StatusSink is the external collaborator that displays progress. Both
// methods are called from a single goroutine, in order. They must not call
// Supervisor.Shutdown, which waits for that goroutine to drain.
type StatusSink interface {
	SetStatus(text string)
	ItemAdded(item models.Item)
}

// Observer receives supervisor lifecycle signals, typically for metrics.
// Calls come from the control goroutine, except the push methods which
// come from transport goroutines.
type Observer interface {
	Transition(from, to State)
	Reconnect()
	PushDelivered()
	PushDropped()
}

type nopObserver struct{}

func (nopObserver) Transition(State, State) {}
func (nopObserver) Reconnect()              {}
func (nopObserver) PushDelivered()          {}
func (nopObserver) PushDropped()            {}

type nopSink struct{}

func (nopSink) SetStatus(string)      {}
func (nopSink) ItemAdded(models.Item) {}
