// Package natscluster provides a unify.ClusterService over NATS. Broadcasts
// travel on a core NATS subject and cluster locks live in a JetStream
// key-value bucket.
package natscluster

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/junioryono/unify"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"go.uber.org/zap"
)

// MasterLock is the lock that elects the cluster master.
const MasterLock = "unify-master"

var _ unify.ClusterService = (*Service)(nil)

// publisher is satisfied by *nats.Conn.
type publisher interface {
	Publish(subject string, data []byte) error
}

// Service is a unify.ClusterService backed by a NATS server with JetStream
// enabled. Register it under unify.ClusterServiceName:
//
//	b.AddComponent(unify.ClusterServiceName, (*natscluster.Service)(nil),
//	    unify.WithSetting("url", "nats://nats:4222"))
type Service struct {
	unify.Base

	URL            string        `unify:"url,default=nats://127.0.0.1:4222"`
	Subject        string        `unify:"subject,default=unify.cluster"`
	Bucket         string        `unify:"bucket,default=unify_locks"`
	LockTTL        time.Duration `unify:"lockTTL,default=1m"`
	ConnectTimeout time.Duration `unify:"connectTimeout,default=5s"`
	PollInterval   time.Duration `unify:"pollInterval,default=100ms"`

	node  string
	conn  *nats.Conn
	sub   *nats.Subscription
	pub   publisher
	locks *lockManager
	now   func() time.Time

	mu    sync.Mutex
	inbox []unify.ClusterCommand
}

func (s *Service) OnInitialize() error {
	s.node = s.Context().NodeID()
	if s.node == "" {
		return fmt.Errorf("nats cluster service requires a node id")
	}

	log := s.Logger().With(zap.String("url", s.URL), zap.String("node", s.node))

	conn, err := nats.Connect(s.URL,
		nats.Name("unify-"+s.node),
		nats.Timeout(s.ConnectTimeout),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.Warn("NATS disconnected", zap.Error(err))
			}
		}),
		nats.ReconnectHandler(func(*nats.Conn) {
			log.Info("NATS reconnected")
		}),
		nats.ErrorHandler(func(_ *nats.Conn, _ *nats.Subscription, err error) {
			log.Error("NATS async error", zap.Error(err))
		}),
	)
	if err != nil {
		return fmt.Errorf("connect to %s: %w", s.URL, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.ConnectTimeout)
	defer cancel()

	kv, err := openBucket(ctx, conn, s.Bucket, s.LockTTL)
	if err != nil {
		conn.Close()
		return err
	}

	sub, err := conn.Subscribe(s.Subject, func(msg *nats.Msg) {
		s.receive(msg.Data)
	})
	if err != nil {
		conn.Close()
		return fmt.Errorf("subscribe %s: %w", s.Subject, err)
	}

	s.attach(conn, bucketStore{kv: kv})
	s.sub = sub

	log.Info("Joined NATS cluster",
		zap.String("subject", s.Subject),
		zap.String("bucket", s.Bucket))
	return nil
}

func openBucket(ctx context.Context, conn *nats.Conn, bucket string, ttl time.Duration) (jetstream.KeyValue, error) {
	js, err := jetstream.New(conn)
	if err != nil {
		return nil, fmt.Errorf("jetstream: %w", err)
	}

	if kv, err := js.KeyValue(ctx, bucket); err == nil {
		return kv, nil
	}

	kv, err := js.CreateKeyValue(ctx, jetstream.KeyValueConfig{
		Bucket:      bucket,
		Description: "unify cluster locks",
		TTL:         ttl,
		History:     1,
	})
	if err != nil {
		return nil, fmt.Errorf("create bucket %s: %w", bucket, err)
	}
	return kv, nil
}

// attach wires the transport. OnInitialize calls it with a live connection;
// tests call it with fakes.
func (s *Service) attach(pub publisher, store lockStore) {
	s.pub = pub
	s.locks = newLockManager(store, s.node)
	if s.now == nil {
		s.now = time.Now
	}
	if c, ok := pub.(*nats.Conn); ok {
		s.conn = c
	}
}

func (s *Service) OnTerminate() error {
	if s.locks == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.ConnectTimeout)
	defer cancel()

	var errs []error
	if err := s.locks.releaseAll(ctx); err != nil {
		errs = append(errs, err)
	}
	if s.sub != nil {
		if err := s.sub.Unsubscribe(); err != nil && !errors.Is(err, nats.ErrConnectionClosed) {
			errs = append(errs, err)
		}
	}
	if s.conn != nil {
		if err := s.conn.Drain(); err != nil && !errors.Is(err, nats.ErrConnectionClosed) {
			errs = append(errs, err)
		}
	}
	s.Logger().Info("Left NATS cluster", zap.String("node", s.node))
	return errors.Join(errs...)
}

func (s *Service) receive(data []byte) {
	cmd, err := decodeCommand(data)
	if err != nil {
		s.Logger().Warn("Dropping malformed cluster message", zap.Error(err))
		return
	}
	if cmd.Origin == s.node {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.inbox = append(s.inbox, cmd)
}

func (s *Service) BroadcastToOtherNodes(_ context.Context, command string, params ...string) error {
	data, err := encodeCommand(unify.ClusterCommand{Command: command, Params: params, Origin: s.node}, s.now())
	if err != nil {
		return err
	}
	if err := s.pub.Publish(s.Subject, data); err != nil {
		return fmt.Errorf("publish %s: %w", command, err)
	}
	return nil
}

func (s *Service) ClusterCommands(context.Context) ([]unify.ClusterCommand, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cmds := s.inbox
	s.inbox = nil
	return cmds, nil
}

func (s *Service) GrabLock(ctx context.Context, lock string) (bool, error) {
	return s.locks.grab(ctx, lock)
}

func (s *Service) GrabLockWait(ctx context.Context, lock string, timeout time.Duration) (bool, error) {
	return unify.WaitForLock(ctx, timeout, s.PollInterval, func(ctx context.Context) (bool, error) {
		return s.GrabLock(ctx, lock)
	})
}

func (s *Service) ReleaseLock(ctx context.Context, lock string) (bool, error) {
	return s.locks.release(ctx, lock)
}

func (s *Service) IsLocked(ctx context.Context, lock string) (bool, error) {
	return s.locks.isLocked(ctx, lock)
}

// GrabMasterLock takes or refreshes the master lock. The master must call
// it more often than LockTTL to keep the role.
func (s *Service) GrabMasterLock(ctx context.Context) (bool, error) {
	return s.locks.grab(ctx, MasterLock)
}
