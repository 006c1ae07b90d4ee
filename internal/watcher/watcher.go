// Package watcher watches the service registry for record changes.
package watcher

import (
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/tether-io/tether/internal/config"
)

// DebounceInterval coalesces bursts of events on the same record.
const DebounceInterval = 100 * time.Millisecond

// EventType represents the type of registry change.
type EventType int

// Event types for registry changes.
const (
	EventRecordWritten EventType = iota // created, rewritten or renamed into place
	EventRecordRemoved
)

func (t EventType) String() string {
	switch t {
	case EventRecordWritten:
		return "written"
	case EventRecordRemoved:
		return "removed"
	default:
		return "unknown"
	}
}

// Event represents a change to one service record.
type Event struct {
	Type    EventType
	Service string
	Path    string
}

// Watcher watches one namespace directory of the service registry.
type Watcher struct {
	namespace  string
	dir        string
	logger     *slog.Logger
	fsWatcher  *fsnotify.Watcher
	eventsChan chan Event
	done       chan struct{}
	stopOnce   sync.Once
	debounce   map[string]*time.Timer
	debounceMu sync.Mutex
}

// New creates a watcher for the records of namespace. The namespace
// directory is created if missing so it can be watched before any
// service has started.
func New(namespace string, logger *slog.Logger) (*Watcher, error) {
	dir, err := config.EnsureServicesDir(namespace)
	if err != nil {
		return nil, err
	}

	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Watcher{
		namespace:  namespace,
		dir:        dir,
		logger:     logger.With("component", "watcher", "namespace", namespace),
		fsWatcher:  fsWatcher,
		eventsChan: make(chan Event, 16),
		done:       make(chan struct{}),
		debounce:   make(map[string]*time.Timer),
	}, nil
}

// Events returns the channel for receiving events.
func (w *Watcher) Events() <-chan Event {
	return w.eventsChan
}

// Start begins watching.
func (w *Watcher) Start() error {
	if err := w.fsWatcher.Add(w.dir); err != nil {
		_ = w.fsWatcher.Close()
		return err
	}
	go w.processEvents()
	return nil
}

// Stop stops the watcher. Safe to call more than once.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.done)
		_ = w.fsWatcher.Close()

		w.debounceMu.Lock()
		for path, timer := range w.debounce {
			timer.Stop()
			delete(w.debounce, path)
		}
		w.debounceMu.Unlock()
	})
}

func (w *Watcher) processEvents() {
	for {
		select {
		case <-w.done:
			return
		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)
		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("watch error", "error", err)
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	service, ok := serviceName(event.Name)
	if !ok {
		return
	}

	var typ EventType
	switch {
	// Records are written to a temp file and renamed into place, which
	// shows up as Create on the final name.
	case event.Op&(fsnotify.Write|fsnotify.Create) != 0:
		typ = EventRecordWritten
	case event.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
		typ = EventRecordRemoved
	default:
		return
	}

	w.debounceEvent(event.Name, func() {
		w.logger.Debug("record changed", "service", service, "type", typ)
		select {
		case w.eventsChan <- Event{Type: typ, Service: service, Path: event.Name}:
		case <-w.done:
		}
	})
}

// debounceEvent runs fn once events for path have been quiet for
// DebounceInterval. The last event wins.
func (w *Watcher) debounceEvent(path string, fn func()) {
	w.debounceMu.Lock()
	defer w.debounceMu.Unlock()

	if timer, ok := w.debounce[path]; ok {
		timer.Stop()
	}

	w.debounce[path] = time.AfterFunc(DebounceInterval, func() {
		w.debounceMu.Lock()
		delete(w.debounce, path)
		w.debounceMu.Unlock()
		fn()
	})
}

// serviceName extracts the service from a record path. Temp files written
// by SaveYAML start with a dot and are skipped.
func serviceName(path string) (string, bool) {
	base := filepath.Base(path)
	if strings.HasPrefix(base, ".") || filepath.Ext(base) != config.RecordExt {
		return "", false
	}
	name := strings.TrimSuffix(base, config.RecordExt)
	return name, name != ""
}
