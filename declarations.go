package unify

import (
	"fmt"
	"reflect"
	"strings"
	"time"
)

// Declarer is implemented by component types that declare periodic,
// broadcast or plugin methods. DeclareMethods is called once per type at
// startup on a zero value, so it must only describe methods, never touch state.
//
//	func (*Indexer) DeclareMethods(d *unify.Declarations) {
//	    d.Periodic("Reindex", unify.Slow, true)
//	    d.Broadcast("Invalidate")
//	}
type Declarer interface {
	DeclareMethods(d *Declarations)
}

// PeriodicType is a schedule class for periodic methods.
type PeriodicType int

const (
	Fastest PeriodicType = iota
	Faster
	Fast
	Normal
	Slow
	Slower
	Slowest
	Eon
)

var periodicTypes = [...]struct {
	name   string
	period time.Duration
}{
	Fastest: {"Fastest", 200 * time.Millisecond},
	Faster:  {"Faster", time.Second},
	Fast:    {"Fast", 5 * time.Second},
	Normal:  {"Normal", 20 * time.Second},
	Slow:    {"Slow", time.Minute},
	Slower:  {"Slower", 2 * time.Minute},
	Slowest: {"Slowest", 10 * time.Minute},
	Eon:     {"Eon", time.Hour},
}

// String returns the string representation of the PeriodicType.
func (p PeriodicType) String() string {
	if !p.IsValid() {
		return fmt.Sprintf("Unknown(%d)", int(p))
	}
	return periodicTypes[p].name
}

// IsValid checks if the periodic type is valid.
func (p PeriodicType) IsValid() bool {
	return p >= Fastest && p <= Eon
}

// Period returns the execution period.
func (p PeriodicType) Period() time.Duration {
	if !p.IsValid() {
		return periodicTypes[Normal].period
	}
	return periodicTypes[p].period
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *PeriodicType) UnmarshalText(text []byte) error {
	for i, pt := range periodicTypes {
		if strings.EqualFold(pt.name, string(text)) {
			*p = PeriodicType(i)
			return nil
		}
	}
	return fmt.Errorf("invalid periodic type %q", string(text))
}

// MarshalText implements encoding.TextMarshaler.
func (p PeriodicType) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// PluginKind says whether a plugin runs before or after the socket logic.
type PluginKind int

const (
	PreLogic PluginKind = iota
	PostLogic
)

// String returns the string representation of the PluginKind.
func (k PluginKind) String() string {
	switch k {
	case PreLogic:
		return "PreLogic"
	case PostLogic:
		return "PostLogic"
	default:
		return fmt.Sprintf("Unknown(%d)", int(k))
	}
}

// PeriodicDeclaration is a declared periodic method.
type PeriodicDeclaration struct {
	Method      string
	Schedule    PeriodicType
	ClusterOnly bool
}

// PluginDeclaration is a declared plugin socket target.
type PluginDeclaration struct {
	Target string
	Method string
	Kind   PluginKind

	// Params optionally pins the socket method's parameter types.
	Params []reflect.Type
}

// Declarations collects the method declarations of a component type.
type Declarations struct {
	periodic  []PeriodicDeclaration
	broadcast []string
	plugins   []PluginDeclaration
}

// Periodic declares method to run on the given schedule. When clusterOnly
// is set the method only runs on the node holding the cluster master lock.
func (d *Declarations) Periodic(method string, schedule PeriodicType, clusterOnly bool) *Declarations {
	d.periodic = append(d.periodic, PeriodicDeclaration{Method: method, Schedule: schedule, ClusterOnly: clusterOnly})
	return d
}

// Broadcast declares methods invokable by cluster command.
func (d *Declarations) Broadcast(methods ...string) *Declarations {
	d.broadcast = append(d.broadcast, methods...)
	return d
}

// Plugin declares the component as a plugin for target's socket method.
func (d *Declarations) Plugin(target, method string, kind PluginKind, params ...reflect.Type) *Declarations {
	d.plugins = append(d.plugins, PluginDeclaration{Target: target, Method: method, Kind: kind, Params: params})
	return d
}

// PeriodicMethods returns the declared periodic methods.
func (d *Declarations) PeriodicMethods() []PeriodicDeclaration {
	return append([]PeriodicDeclaration(nil), d.periodic...)
}

// BroadcastMethods returns the declared broadcast methods.
func (d *Declarations) BroadcastMethods() []string {
	return append([]string(nil), d.broadcast...)
}

// Plugins returns the declared plugin sockets.
func (d *Declarations) Plugins() []PluginDeclaration {
	return append([]PluginDeclaration(nil), d.plugins...)
}

func declarationsOf(t reflect.Type) *Declarations {
	d := &Declarations{}
	if declarer, ok := reflect.New(t).Interface().(Declarer); ok {
		declarer.DeclareMethods(d)
	}
	return d
}

// CommandName returns the cluster command name of a broadcast method.
func CommandName(component, method string) string {
	return component + "." + method
}
