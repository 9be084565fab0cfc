package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/junioryono/unify"
)

// FakeCluster is a ClusterService that records outgoing broadcasts and
// serves commands queued with Deliver.
type FakeCluster struct {
	unify.Base

	NotMaster bool `unify:"notMaster"`

	mu    sync.Mutex
	sent  []unify.ClusterCommand
	inbox []unify.ClusterCommand
	locks map[string]bool
}

func (f *FakeCluster) OnInitialize() error {
	f.locks = make(map[string]bool)
	return nil
}

// Deliver queues a command for the next ClusterCommands call.
func (f *FakeCluster) Deliver(cmd unify.ClusterCommand) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.inbox = append(f.inbox, cmd)
}

// Sent returns the broadcasts sent so far.
func (f *FakeCluster) Sent() []unify.ClusterCommand {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]unify.ClusterCommand(nil), f.sent...)
}

func (f *FakeCluster) BroadcastToOtherNodes(_ context.Context, command string, params ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, unify.ClusterCommand{Command: command, Params: params, Origin: f.Context().NodeID()})
	return nil
}

func (f *FakeCluster) ClusterCommands(context.Context) ([]unify.ClusterCommand, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cmds := f.inbox
	f.inbox = nil
	return cmds, nil
}

func (f *FakeCluster) GrabLock(_ context.Context, lock string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.locks[lock] {
		return false, nil
	}
	f.locks[lock] = true
	return true, nil
}

func (f *FakeCluster) GrabLockWait(ctx context.Context, lock string, timeout time.Duration) (bool, error) {
	return unify.WaitForLock(ctx, timeout, time.Millisecond, func(ctx context.Context) (bool, error) {
		return f.GrabLock(ctx, lock)
	})
}

func (f *FakeCluster) ReleaseLock(_ context.Context, lock string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	held := f.locks[lock]
	delete(f.locks, lock)
	return held, nil
}

func (f *FakeCluster) IsLocked(_ context.Context, lock string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.locks[lock], nil
}

func (f *FakeCluster) GrabMasterLock(context.Context) (bool, error) {
	return !f.NotMaster, nil
}
