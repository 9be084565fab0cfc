package cluster

import (
	"context"
	"fmt"
	"time"

	"github.com/junioryono/unify"
	"go.uber.org/zap"
)

var _ unify.ClusterService = (*Service)(nil)

// Service is a unify.ClusterService backed by a Hub. Register it under
// unify.ClusterServiceName:
//
//	b.AddComponent(unify.ClusterServiceName, (*cluster.Service)(nil),
//	    unify.WithSetting("hub", "orders"))
type Service struct {
	unify.Base

	HubName      string        `unify:"hub,default=default"`
	PollInterval time.Duration `unify:"pollInterval,default=20ms"`

	hub  *Hub
	node string
}

func (s *Service) OnInitialize() error {
	s.node = s.Context().NodeID()
	if s.node == "" {
		return fmt.Errorf("cluster service requires a node id")
	}

	s.hub = HubNamed(s.HubName)
	s.hub.Join(s.node)
	s.Logger().Info("Joined in-process cluster",
		zap.String("hub", s.HubName),
		zap.String("node", s.node),
		zap.Strings("nodes", s.hub.Nodes()))
	return nil
}

func (s *Service) OnTerminate() error {
	if s.hub != nil {
		s.hub.Leave(s.node)
		s.Logger().Info("Left in-process cluster", zap.String("hub", s.HubName))
	}
	return nil
}

// Hub returns the hub the node joined.
func (s *Service) Hub() *Hub {
	return s.hub
}

func (s *Service) BroadcastToOtherNodes(_ context.Context, command string, params ...string) error {
	s.hub.Publish(unify.ClusterCommand{Command: command, Params: params, Origin: s.node})
	return nil
}

func (s *Service) ClusterCommands(context.Context) ([]unify.ClusterCommand, error) {
	return s.hub.Drain(s.node), nil
}

func (s *Service) GrabLock(_ context.Context, lock string) (bool, error) {
	return s.hub.Acquire(s.node, lock), nil
}

func (s *Service) GrabLockWait(ctx context.Context, lock string, timeout time.Duration) (bool, error) {
	return unify.WaitForLock(ctx, timeout, s.PollInterval, func(ctx context.Context) (bool, error) {
		return s.GrabLock(ctx, lock)
	})
}

func (s *Service) ReleaseLock(_ context.Context, lock string) (bool, error) {
	return s.hub.Release(s.node, lock), nil
}

func (s *Service) IsLocked(_ context.Context, lock string) (bool, error) {
	_, held := s.hub.Owner(lock)
	return held, nil
}

func (s *Service) GrabMasterLock(ctx context.Context) (bool, error) {
	return s.GrabLock(ctx, MasterLock)
}
