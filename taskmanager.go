package unify

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// defaultTaskManager runs each periodic method on its own goroutine and
// ticker. It calls back into the container through InvokePeriodic.
type defaultTaskManager struct {
	Base

	mu       sync.Mutex
	monitors []*periodicMonitor
}

func (tm *defaultTaskManager) SchedulePeriodicExecution(schedule PeriodicType, component, method string, initialDelay time.Duration) (TaskMonitor, error) {
	invoker := tm.Context().Container()
	ctx, cancel := context.WithCancel(context.Background())
	m := &periodicMonitor{id: uuid.NewString(), cancel: cancel}

	tm.mu.Lock()
	tm.monitors = append(tm.monitors, m)
	tm.mu.Unlock()

	logger := tm.Logger().With(zap.String("task", CommandName(component, method)), zap.String("monitor", m.id))

	go func() {
		timer := time.NewTimer(initialDelay)
		defer timer.Stop()

		period := schedule.Period()
		for {
			select {
			case <-ctx.Done():
				return
			case <-timer.C:
			}

			if !m.begin() {
				return
			}
			if err := invoker.InvokePeriodic(ctx, m, component, method); err != nil {
				logger.Warn("Periodic execution failed", zap.Error(err))
			}
			m.end()

			timer.Reset(period)
		}
	}()

	return m, nil
}

// OnTerminate cancels any monitor the container did not cancel.
func (tm *defaultTaskManager) OnTerminate() error {
	tm.mu.Lock()
	defer tm.mu.Unlock()
	for _, m := range tm.monitors {
		m.Cancel()
	}
	tm.monitors = nil
	return nil
}

// periodicMonitor is the TaskMonitor of a scheduled periodic method.
type periodicMonitor struct {
	id     string
	cancel context.CancelFunc

	mu       sync.Mutex
	canceled bool
	running  atomic.Bool
	messages []string
}

func (m *periodicMonitor) ID() string {
	return m.id
}

func (m *periodicMonitor) Cancel() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.canceled = true
	m.cancel()
}

func (m *periodicMonitor) IsCanceled() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.canceled
}

func (m *periodicMonitor) IsRunning() bool {
	return m.running.Load()
}

func (m *periodicMonitor) AddMessage(msg string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append(m.messages, msg)
}

func (m *periodicMonitor) Messages() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.messages...)
}

// begin marks the monitor running unless it was canceled. Cancel and begin
// share the mutex so a drained monitor never starts another run.
func (m *periodicMonitor) begin() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.canceled {
		return false
	}
	m.running.Store(true)
	return true
}

func (m *periodicMonitor) end() {
	m.running.Store(false)
}
