package unify

import (
	"context"
	"sync"
	"time"
)

// masterLock is the lock name the cluster master holds.
const masterLock = "unify-master"

// lockPollInterval is how often a waiting lock grab retries.
const lockPollInterval = 20 * time.Millisecond

// localClusterService is the single node cluster service. Locks are
// process local and broadcasts have no receivers.
type localClusterService struct {
	Base

	mu    sync.Mutex
	locks map[string]string
}

func (s *localClusterService) OnInitialize() error {
	s.locks = make(map[string]string)
	return nil
}

func (s *localClusterService) BroadcastToOtherNodes(context.Context, string, ...string) error {
	return nil
}

func (s *localClusterService) ClusterCommands(context.Context) ([]ClusterCommand, error) {
	return nil, nil
}

func (s *localClusterService) GrabLock(_ context.Context, lock string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	owner, held := s.locks[lock]
	if held {
		return owner == s.owner(), nil
	}
	s.locks[lock] = s.owner()
	return true, nil
}

func (s *localClusterService) GrabLockWait(ctx context.Context, lock string, timeout time.Duration) (bool, error) {
	return WaitForLock(ctx, timeout, lockPollInterval, func(ctx context.Context) (bool, error) {
		return s.GrabLock(ctx, lock)
	})
}

func (s *localClusterService) ReleaseLock(_ context.Context, lock string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if owner, held := s.locks[lock]; !held || owner != s.owner() {
		return false, nil
	}
	delete(s.locks, lock)
	return true, nil
}

func (s *localClusterService) IsLocked(_ context.Context, lock string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, held := s.locks[lock]
	return held, nil
}

func (s *localClusterService) GrabMasterLock(ctx context.Context) (bool, error) {
	return s.GrabLock(ctx, masterLock)
}

func (s *localClusterService) owner() string {
	return s.Context().NodeID()
}

// WaitForLock retries grab every poll interval until it succeeds, the
// timeout elapses or ctx is done. A non-positive timeout waits until ctx
// is done. Cluster service implementations use it for GrabLockWait.
func WaitForLock(ctx context.Context, timeout, poll time.Duration, grab func(context.Context) (bool, error)) (bool, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	ticker := time.NewTicker(poll)
	defer ticker.Stop()

	for {
		ok, err := grab(ctx)
		if err != nil || ok {
			return ok, err
		}

		select {
		case <-ctx.Done():
			if timeout > 0 && ctx.Err() == context.DeadlineExceeded {
				return false, nil
			}
			return false, ctx.Err()
		case <-ticker.C:
		}
	}
}
