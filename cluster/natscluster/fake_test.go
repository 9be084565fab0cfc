package natscluster

import (
	"context"
	"fmt"
	"sync"

	"github.com/nats-io/nats.go/jetstream"
)

type fakeEntry struct {
	value    string
	revision uint64
}

// fakeStore mimics the revision semantics of a KV bucket.
type fakeStore struct {
	mu      sync.Mutex
	entries map[string]fakeEntry
	seq     uint64
	failGet error
}

func newFakeStore() *fakeStore {
	return &fakeStore{entries: make(map[string]fakeEntry)}
}

func (f *fakeStore) Get(_ context.Context, key string) (string, uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failGet != nil {
		return "", 0, f.failGet
	}
	e, ok := f.entries[key]
	if !ok {
		return "", 0, jetstream.ErrKeyNotFound
	}
	return e.value, e.revision, nil
}

func (f *fakeStore) Create(_ context.Context, key, value string) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.entries[key]; ok {
		return 0, jetstream.ErrKeyExists
	}
	f.seq++
	f.entries[key] = fakeEntry{value: value, revision: f.seq}
	return f.seq, nil
}

func (f *fakeStore) Update(_ context.Context, key, value string, revision uint64) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.entries[key]
	if !ok || e.revision != revision {
		return 0, fmt.Errorf("nats: wrong last sequence: %d", e.revision)
	}
	f.seq++
	f.entries[key] = fakeEntry{value: value, revision: f.seq}
	return f.seq, nil
}

func (f *fakeStore) Delete(_ context.Context, key string, revision uint64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.entries[key]
	if !ok {
		return jetstream.ErrKeyNotFound
	}
	if e.revision != revision {
		return fmt.Errorf("nats: wrong last sequence: %d", e.revision)
	}
	delete(f.entries, key)
	return nil
}

// expire drops a key as the bucket TTL would.
func (f *fakeStore) expire(key string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.entries, key)
}

func (f *fakeStore) owner(key string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.entries[key].value
}

// fakeBus delivers every publish to all subscribed services.
type fakeBus struct {
	mu       sync.Mutex
	services []*Service
	fail     error
}

func (b *fakeBus) Publish(subject string, data []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.fail != nil {
		return b.fail
	}
	for _, s := range b.services {
		if s.Subject == subject {
			s.receive(data)
		}
	}
	return nil
}

func (b *fakeBus) join(s *Service) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.services = append(b.services, s)
}
