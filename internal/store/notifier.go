package store

import "sync"

// notifier fans a "state changed" signal out to registered watchers. Each
// watcher channel buffers one pending signal; anything arriving while one is
// pending is coalesced, since watchers re-read the full state anyway.
type notifier struct {
	mu       sync.Mutex
	watchers map[int]chan struct{}
	nextID   int
}

func newNotifier() *notifier {
	return &notifier{
		watchers: make(map[int]chan struct{}),
	}
}

// subscribe registers a watcher. The returned cancel func unregisters it and
// closes the channel, calling it more than once is safe.
func (that *notifier) subscribe() (<-chan struct{}, func()) {
	that.mu.Lock()
	defer that.mu.Unlock()

	id := that.nextID
	that.nextID++

	events := make(chan struct{}, 1)
	that.watchers[id] = events

	var once sync.Once

	cancel := func() {
		once.Do(func() {
			that.mu.Lock()
			defer that.mu.Unlock()

			delete(that.watchers, id)
			close(events)
		})
	}

	return events, cancel
}

// notify signals every watcher without blocking.
func (that *notifier) notify() {
	that.mu.Lock()
	defer that.mu.Unlock()

	for _, events := range that.watchers {
		select {
		case events <- struct{}{}:
		default:
		}
	}
}
