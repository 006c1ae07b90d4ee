package link

import (
	"sync"

	"github.com/tether-io/tether/internal/models"
)

// dispatchQueueSize bounds pending sink deliveries. Status lines block the
// control goroutine when the queue is full; push events are dropped.
const dispatchQueueSize = 256

type delivery struct {
	status string
	item   *models.Item
}

// dispatcher serializes every StatusSink call onto one goroutine.
type dispatcher struct {
	sink  StatusSink
	queue chan delivery
	done  chan struct{}

	mu     sync.RWMutex
	closed bool
}

func newDispatcher(sink StatusSink) *dispatcher {
	if sink == nil {
		sink = nopSink{}
	}
	d := &dispatcher{
		sink:  sink,
		queue: make(chan delivery, dispatchQueueSize),
		done:  make(chan struct{}),
	}
	go d.run()
	return d
}

func (d *dispatcher) run() {
	defer close(d.done)
	for dl := range d.queue {
		if dl.item != nil {
			d.sink.ItemAdded(*dl.item)
			continue
		}
		d.sink.SetStatus(dl.status)
	}
}

// status enqueues a status line, waiting for room.
func (d *dispatcher) status(text string) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return
	}
	d.queue <- delivery{status: text}
}

// item enqueues a push event without blocking. Reports false if the event
// was dropped.
func (d *dispatcher) item(item models.Item) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return false
	}
	select {
	case d.queue <- delivery{item: &item}:
		return true
	default:
		return false
	}
}

// close flushes pending deliveries and stops the goroutine.
func (d *dispatcher) close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		<-d.done
		return
	}
	d.closed = true
	close(d.queue)
	d.mu.Unlock()
	<-d.done
}
