// Package link supervises a client connection to the item service.
//
// A Supervisor owns the connection state machine
//
//	Disconnected -> Connecting -> Ready -> Disconnected
//
// together with the current Remote, its death link and the push listener
// registration. All transitions run on a single control goroutine;
// binder callbacks, death notifications and transport failures are posted
// to it as events. Callers never hold a Remote: AddItem and ListItems
// fetch the current one per call and return ErrNotReady (after kicking a
// background connect) when there is none.
//
// When the remote dies the supervisor drops it, releases the binding and
// binds again immediately. The listener is registered again on every
// successful connection, so push notifications resume without caller
// involvement.
package link
