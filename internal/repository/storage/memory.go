package storage

import (
	"context"
	"sync"
)

// MemoryBackend keeps payloads in a plain map. It backs tests and runs where
// no Redis address is configured.
type MemoryBackend struct {
	mu       sync.Mutex
	data     map[string]string
	watchers map[string]map[int]chan struct{}
	nextID   int
}

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{
		data:     make(map[string]string),
		watchers: make(map[string]map[int]chan struct{}),
	}
}

func (that *MemoryBackend) Get(_ context.Context, key string) (string, error) {
	that.mu.Lock()
	defer that.mu.Unlock()

	value, ok := that.data[key]
	if !ok {
		return "", ErrKeyNotFound
	}

	return value, nil
}

func (that *MemoryBackend) Set(_ context.Context, key, value string) error {
	that.mu.Lock()
	defer that.mu.Unlock()

	that.data[key] = value

	for _, events := range that.watchers[key] {
		select {
		case events <- struct{}{}:
		default:
		}
	}

	return nil
}

// Watch registers a watcher for the key. Unlike the Redis backend there is no
// instance id to filter on, so a watcher also hears the writes it made itself.
func (that *MemoryBackend) Watch(ctx context.Context, key string) (<-chan struct{}, func()) {
	that.mu.Lock()
	defer that.mu.Unlock()

	if that.watchers[key] == nil {
		that.watchers[key] = make(map[int]chan struct{})
	}

	id := that.nextID
	that.nextID++

	events := make(chan struct{}, 1)
	that.watchers[key][id] = events

	var once sync.Once

	done := make(chan struct{})

	cancel := func() {
		once.Do(func() {
			close(done)

			that.mu.Lock()
			defer that.mu.Unlock()

			delete(that.watchers[key], id)
			close(events)
		})
	}

	go func() {
		select {
		case <-ctx.Done():
			cancel()
		case <-done:
		}
	}()

	return events, cancel
}

func (that *MemoryBackend) Close() error {
	that.mu.Lock()
	defer that.mu.Unlock()

	that.watchers = make(map[string]map[int]chan struct{})

	return nil
}
