package natscluster

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/nats-io/nats.go/jetstream"
)

// lockStore is the subset of a KV bucket the lock manager needs.
type lockStore interface {
	Get(ctx context.Context, key string) (value string, revision uint64, err error)
	Create(ctx context.Context, key, value string) (uint64, error)
	Update(ctx context.Context, key, value string, revision uint64) (uint64, error)
	Delete(ctx context.Context, key string, revision uint64) error
}

// bucketStore adapts a jetstream.KeyValue bucket.
type bucketStore struct {
	kv jetstream.KeyValue
}

func (s bucketStore) Get(ctx context.Context, key string) (string, uint64, error) {
	entry, err := s.kv.Get(ctx, key)
	if err != nil {
		return "", 0, err
	}
	return string(entry.Value()), entry.Revision(), nil
}

func (s bucketStore) Create(ctx context.Context, key, value string) (uint64, error) {
	return s.kv.Create(ctx, key, []byte(value))
}

func (s bucketStore) Update(ctx context.Context, key, value string, revision uint64) (uint64, error) {
	return s.kv.Update(ctx, key, []byte(value), revision)
}

func (s bucketStore) Delete(ctx context.Context, key string, revision uint64) error {
	return s.kv.Delete(ctx, key, jetstream.LastRevision(revision))
}

func isNotFound(err error) bool {
	return errors.Is(err, jetstream.ErrKeyNotFound) || errors.Is(err, jetstream.ErrKeyDeleted)
}

// isConflict reports a lost create or compare-and-set race.
func isConflict(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, jetstream.ErrKeyExists) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "wrong last sequence") || strings.Contains(msg, "10071")
}

// lockManager holds cluster locks as bucket keys whose value is the owning
// node. The bucket TTL expires locks of nodes that died without releasing.
type lockManager struct {
	store lockStore
	node  string

	mu   sync.Mutex
	held map[string]uint64 // key -> revision
}

func newLockManager(store lockStore, node string) *lockManager {
	return &lockManager{store: store, node: node, held: make(map[string]uint64)}
}

// grab takes lock. A lock this node already holds is refreshed so its TTL
// starts over.
func (m *lockManager) grab(ctx context.Context, lock string) (bool, error) {
	key := lockKey(lock)

	rev, err := m.store.Create(ctx, key, m.node)
	if err == nil {
		m.remember(key, rev)
		return true, nil
	}
	if !isConflict(err) {
		return false, fmt.Errorf("grab lock %q: %w", lock, err)
	}

	owner, current, err := m.store.Get(ctx, key)
	switch {
	case isNotFound(err):
		return false, nil
	case err != nil:
		return false, fmt.Errorf("grab lock %q: %w", lock, err)
	case owner != m.node:
		return false, nil
	}

	rev, err = m.store.Update(ctx, key, m.node, current)
	if isConflict(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("refresh lock %q: %w", lock, err)
	}
	m.remember(key, rev)
	return true, nil
}

func (m *lockManager) release(ctx context.Context, lock string) (bool, error) {
	key := lockKey(lock)

	owner, rev, err := m.store.Get(ctx, key)
	if isNotFound(err) {
		m.forget(key)
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("release lock %q: %w", lock, err)
	}
	if owner != m.node {
		m.forget(key)
		return false, nil
	}

	if err := m.store.Delete(ctx, key, rev); err != nil {
		if isConflict(err) {
			return false, nil
		}
		return false, fmt.Errorf("release lock %q: %w", lock, err)
	}
	m.forget(key)
	return true, nil
}

func (m *lockManager) isLocked(ctx context.Context, lock string) (bool, error) {
	_, _, err := m.store.Get(ctx, lockKey(lock))
	if isNotFound(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("lock %q: %w", lock, err)
	}
	return true, nil
}

// releaseAll deletes every lock this node still holds.
func (m *lockManager) releaseAll(ctx context.Context) error {
	m.mu.Lock()
	held := m.held
	m.held = make(map[string]uint64)
	m.mu.Unlock()

	var errs []error
	for key, rev := range held {
		if err := m.store.Delete(ctx, key, rev); err != nil && !isNotFound(err) && !isConflict(err) {
			errs = append(errs, fmt.Errorf("release %s: %w", key, err))
		}
	}
	return errors.Join(errs...)
}

func (m *lockManager) remember(key string, rev uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.held[key] = rev
}

func (m *lockManager) forget(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.held, key)
}
