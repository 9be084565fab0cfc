package unify

import (
	"context"
	"time"

	"golang.org/x/text/language"
)

// Well-known component names. Startup installs a default implementation
// for each one that is not registered.
const (
	RequestContextManagerName = "unify-requestcontextmanager"
	ViewCompilerName          = "unify-uplcompiler"
	ClusterServiceName        = "unify-clusterservice"
	SessionManagerName        = "unify-sessionmanager"
	TaskManagerName           = "unify-taskmanager"
	BootServiceName           = "unify-bootservice"
	AttributeProviderName     = "unify-attributeprovider"
	CommandInterfaceName      = "unify-commandinterface"
)

// Environment is the host environment handed to Startup.
type Environment struct {
	// Locale is the default locale for views requested without one.
	Locale language.Tag

	// Messages formats diagnostic messages. Nil uses an empty bundle.
	Messages Messages
}

// Messages formats localized messages. Implementations must not panic;
// the container treats failures as non-fatal.
type Messages interface {
	Message(key string, params ...any) (string, error)
}

// ClusterCommand is a command received from another node.
type ClusterCommand struct {
	Command string
	Params  []string
	Origin  string
}

// ClusterService is the cluster collaborator: broadcast transport and lock manager.
type ClusterService interface {
	Component

	BroadcastToOtherNodes(ctx context.Context, command string, params ...string) error

	// ClusterCommands returns and consumes the commands addressed to this node.
	ClusterCommands(ctx context.Context) ([]ClusterCommand, error)

	GrabLock(ctx context.Context, lock string) (bool, error)

	// GrabLockWait waits up to timeout for lock. A non-positive timeout waits
	// until ctx is done.
	GrabLockWait(ctx context.Context, lock string, timeout time.Duration) (bool, error)

	ReleaseLock(ctx context.Context, lock string) (bool, error)
	IsLocked(ctx context.Context, lock string) (bool, error)

	// GrabMasterLock reports whether this node holds (or just took) the
	// cluster master lock.
	GrabMasterLock(ctx context.Context) (bool, error)
}

// TaskMonitor tracks a scheduled task.
type TaskMonitor interface {
	ID() string
	Cancel()
	IsCanceled() bool
	IsRunning() bool
	AddMessage(msg string)
	Messages() []string
}

// PeriodicInvoker runs a periodic method. The container implements it.
type PeriodicInvoker interface {
	InvokePeriodic(ctx context.Context, monitor TaskMonitor, component, method string) error
}

// TaskManager schedules periodic executions.
type TaskManager interface {
	Component

	SchedulePeriodicExecution(schedule PeriodicType, component, method string, initialDelay time.Duration) (TaskMonitor, error)
}

// BootService runs application startup and shutdown hooks.
type BootService interface {
	Component

	Startup(ctx context.Context) error
	Shutdown(ctx context.Context) error
}

// ContainerInterface is an inbound request surface, e.g. an HTTP listener.
type ContainerInterface interface {
	Component

	StartServicingRequests(ctx context.Context) error
	StopServicingRequests(ctx context.Context) error
	IsServicingRequests() bool
}

// RequestContextManager creates request contexts.
type RequestContextManager interface {
	Component

	NewRequestContext(ctx context.Context, sessionID string, locale language.Tag) context.Context
}

// ViewAttributes is the compiled form of a view descriptor.
type ViewAttributes struct {
	Key        string
	Component  string
	Attributes map[string]string
}

// ViewCompiler compiles view descriptors.
type ViewCompiler interface {
	Component

	Compile(locale language.Tag, descriptor string) (*ViewAttributes, error)
	Lookup(locale language.Tag, key string) (*ViewAttributes, bool)
}

// ViewComponent receives its compiled attributes before initialization.
type ViewComponent interface {
	Component

	SetViewAttributes(attrs *ViewAttributes)
}

// SessionManager tracks user sessions.
type SessionManager interface {
	Component

	SetAttribute(ctx context.Context, sessionID, name, value string) error
	Attribute(sessionID, name string) (string, bool)
	Sessions() []string
}

// AttributeProvider supplies application-wide attributes at startup.
type AttributeProvider interface {
	Component

	ApplicationAttributes(ctx context.Context) (map[string]any, error)
}
