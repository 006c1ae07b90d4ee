package link

import (
	"log/slog"

	"github.com/google/uuid"

	"github.com/tether-io/tether/internal/models"
)

// notifier is the supervisor's standing Listener. Its ID is fixed for the
// supervisor's lifetime so the service recognizes a re-subscription after
// reconnect as the same client.
type notifier struct {
	id       string
	dispatch *dispatcher
	observer Observer
	logger   *slog.Logger
}

func newNotifier(d *dispatcher, observer Observer, logger *slog.Logger) *notifier {
	return &notifier{
		id:       uuid.NewString(),
		dispatch: d,
		observer: observer,
		logger:   logger,
	}
}

func (n *notifier) ID() string {
	return n.id
}

// OnItemAdded hands the event to the sink queue and returns immediately.
func (n *notifier) OnItemAdded(item models.Item) {
	if n.dispatch.item(item) {
		n.observer.PushDelivered()
		return
	}
	n.observer.PushDropped()
	n.logger.Warn("dropping push notification, sink queue full", "item", item.Name)
}
