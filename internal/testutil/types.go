package testutil

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sync"
	"sync/atomic"
	"time"

	"github.com/junioryono/unify"
)

// Common test errors
var (
	ErrTest        = errors.New("test error")
	ErrIntentional = errors.New("intentional error")
	ErrTerminate   = errors.New("terminate error")
)

// Recorder collects events from fixture components. Register it as a
// singleton; fixtures receive it by auto-injection.
type Recorder struct {
	unify.Base

	mu     sync.Mutex
	events []string
}

// Record appends an event. It is a no-op on a nil recorder.
func (r *Recorder) Record(event string) {
	if r == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

// Events returns a copy of the recorded events.
func (r *Recorder) Events() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.events...)
}

// Greeter is a test capability.
type Greeter interface {
	unify.Component
	Greet(name string) string
}

// Unimplemented is a capability no fixture implements.
type Unimplemented interface {
	unify.Component
	Never()
}

// EnglishGreeter implements Greeter
type EnglishGreeter struct {
	unify.Base

	Greeting string `unify:"greeting,default=hello"`
}

func (g *EnglishGreeter) Greet(name string) string {
	return g.Greeting + " " + name
}

// FrenchGreeter implements Greeter
type FrenchGreeter struct {
	unify.Base

	Greeting string `unify:"greeting,default=bonjour"`
}

func (g *FrenchGreeter) Greet(name string) string {
	return g.Greeting + " " + name
}

// Tracked is a singleton fixture that records its lifecycle.
type Tracked struct {
	unify.Base

	Recorder       *Recorder         `unify:"recorder"`
	Deps           []unify.Component `unify:"deps"`
	FailInit       bool              `unify:"failInit"`
	FailTerminate  bool              `unify:"failTerminate"`
	PanicTerminate bool              `unify:"panicTerminate"`

	Inits atomic.Int32
}

func (t *Tracked) OnInitialize() error {
	t.Inits.Add(1)
	t.Recorder.Record("init:" + t.ComponentName())
	if t.FailInit {
		return ErrIntentional
	}
	return nil
}

func (t *Tracked) OnTerminate() error {
	t.Recorder.Record("terminate:" + t.ComponentName())
	if t.PanicTerminate {
		panic("terminate " + t.ComponentName())
	}
	if t.FailTerminate {
		return ErrTerminate
	}
	return nil
}

// Widget is a transient fixture with data properties.
type Widget struct {
	unify.Base

	Label    string        `unify:"label,default=plain"`
	Size     int           `unify:"size"`
	Tags     []string      `unify:"tags"`
	Timeout  time.Duration `unify:"timeout,default=1s"`
	Secret   string        `unify:"secret,hidden"`
	Greeter  Greeter       `unify:"greeter,noauto"`
	Recorder *Recorder     `unify:"recorder"`
}

// Bag is a transient fixture with mutable injected values.
type Bag struct {
	unify.Base

	Tags     []string           `unify:"tags,default=a|b"`
	Limit    *int               `unify:"limit,default=5"`
	Greeters map[string]Greeter `unify:"greeters,default=$c{greeter}"`
}

// Limited writes its limit through a setter.
type Limited struct {
	unify.Base

	limit       int `unify:"limit,default=10"`
	SetterCalls int
}

func (l *Limited) SetLimit(v int) error {
	if v < 0 {
		return fmt.Errorf("limit %d: %w", v, ErrTest)
	}
	l.limit = v
	l.SetterCalls++
	return nil
}

// Limit returns the injected limit.
func (l *Limited) Limit() int {
	return l.limit
}

// Hub holds component collections.
type Hub struct {
	unify.Base

	Greeters []Greeter                    `unify:"greeters,default=$c{greeter}"`
	ByName   map[string]Greeter           `unify:"byName,default=$c{greeter}"`
	List     unify.ComponentList[Greeter] `unify:"list,default=$c{greeter}"`
	Nothing  []Unimplemented              `unify:"nothing,default=$c{unimplemented}"`
	Single   Greeter                      `unify:"single"`
	Label    string                       `unify:"label,default=$s{$c{greeter}}"`
}

// Peer references another component, for cycle tests.
type Peer struct {
	unify.Base

	Peer unify.Component `unify:"peer"`
}

// EventService is a business service with an OnEvent socket.
type EventService struct {
	unify.BusinessBase

	Recorder *Recorder `unify:"recorder"`
}

// OnEvent runs the OnEvent socket.
func (s *EventService) OnEvent(ctx context.Context, event string) (*unify.LogicOutput, error) {
	return s.Socket(ctx, "OnEvent", func(_ context.Context, out *unify.LogicOutput) error {
		s.Recorder.Record("logic:" + event)
		out.Set("event", event)
		return nil
	}, event)
}

// Unplugged has no plugins attached.
func (s *EventService) Unplugged(ctx context.Context) (*unify.LogicOutput, error) {
	return s.Socket(ctx, "Unplugged", func(_ context.Context, out *unify.LogicOutput) error {
		out.Set("ran", true)
		return nil
	})
}

// EventPlugin runs before EventService.OnEvent.
type EventPlugin struct {
	unify.Base

	Recorder *Recorder `unify:"recorder"`
	Fail     bool      `unify:"fail"`
}

func (*EventPlugin) DeclareMethods(d *unify.Declarations) {
	d.Plugin("events", "OnEvent", unify.PreLogic, reflect.TypeFor[string]())
}

func (p *EventPlugin) Execute(_ context.Context, in *unify.LogicInput, out *unify.LogicOutput) error {
	p.Recorder.Record(p.ComponentName() + ":" + in.Param(0).(string))
	out.Append("plugins", p.ComponentName())
	if p.Fail {
		return ErrIntentional
	}
	return nil
}

// AuditPlugin runs after EventService.OnEvent.
type AuditPlugin struct {
	unify.Base

	Recorder *Recorder `unify:"recorder"`
}

func (*AuditPlugin) DeclareMethods(d *unify.Declarations) {
	d.Plugin("events", "OnEvent", unify.PostLogic)
}

func (p *AuditPlugin) Execute(_ context.Context, in *unify.LogicInput, out *unify.LogicOutput) error {
	p.Recorder.Record(p.ComponentName() + ":" + in.Method)
	out.Append("plugins", p.ComponentName())
	return nil
}

// Ticker declares a periodic method.
type Ticker struct {
	unify.Base

	Work time.Duration `unify:"work,default=0s"`

	runs   atomic.Int32
	active atomic.Bool
}

func (*Ticker) DeclareMethods(d *unify.Declarations) {
	d.Periodic("Tick", unify.Fastest, false)
}

func (t *Ticker) Tick(m unify.TaskMonitor) {
	t.active.Store(true)
	defer t.active.Store(false)

	t.runs.Add(1)
	m.AddMessage("tick")
	if t.Work > 0 {
		time.Sleep(t.Work)
	}
}

// Runs returns the number of completed and running ticks.
func (t *Ticker) Runs() int32 {
	return t.runs.Load()
}

// Active reports whether a tick is running.
func (t *Ticker) Active() bool {
	return t.active.Load()
}

// Cache declares broadcast methods.
type Cache struct {
	unify.Base

	mu          sync.Mutex
	invalidated [][]string
	suppressed  []bool
	flushes     int
}

func (*Cache) DeclareMethods(d *unify.Declarations) {
	d.Broadcast("Invalidate", "Flush")
}

// Invalidate records keys and tries to broadcast them again.
func (c *Cache) Invalidate(ctx context.Context, keys []string) {
	c.mu.Lock()
	c.invalidated = append(c.invalidated, keys)
	c.suppressed = append(c.suppressed, unify.IsBroadcastSuppressed(ctx))
	c.mu.Unlock()

	_ = c.Context().Broadcast(ctx, "Invalidate", keys...)
}

// Flush counts flushes and tries to broadcast again without a flagged context.
func (c *Cache) Flush() {
	c.mu.Lock()
	c.flushes++
	c.mu.Unlock()

	_ = c.Context().Broadcast(context.Background(), "Flush")
}

// Invalidated returns the received key lists.
func (c *Cache) Invalidated() [][]string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([][]string(nil), c.invalidated...)
}

// Suppressed reports, per Invalidate call, whether ctx was flagged.
func (c *Cache) Suppressed() []bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]bool(nil), c.suppressed...)
}

// Flushes returns the number of Flush calls.
func (c *Cache) Flushes() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.flushes
}

// Label is a view component.
type Label struct {
	unify.Base

	Style string `unify:"style,default=plain"`

	attrs *unify.ViewAttributes
}

func (l *Label) SetViewAttributes(attrs *unify.ViewAttributes) {
	l.attrs = attrs
}

// Text returns the text view attribute.
func (l *Label) Text() string {
	if l.attrs == nil {
		return ""
	}
	return l.attrs.Attributes["text"]
}

// BootRecorder is a boot service that records its hooks.
type BootRecorder struct {
	unify.Base

	Recorder *Recorder `unify:"recorder"`
	Fail     bool      `unify:"fail"`
}

func (b *BootRecorder) Startup(context.Context) error {
	b.Recorder.Record("boot:startup")
	if b.Fail {
		return ErrIntentional
	}
	return nil
}

func (b *BootRecorder) Shutdown(context.Context) error {
	b.Recorder.Record("boot:shutdown")
	return nil
}

// Listener is a container interface fixture.
type Listener struct {
	unify.Base

	Recorder *Recorder `unify:"recorder"`

	serving atomic.Bool
}

func (l *Listener) StartServicingRequests(context.Context) error {
	l.Recorder.Record("listen:" + l.ComponentName())
	l.serving.Store(true)
	return nil
}

func (l *Listener) StopServicingRequests(context.Context) error {
	l.Recorder.Record("close:" + l.ComponentName())
	l.serving.Store(false)
	return nil
}

func (l *Listener) IsServicingRequests() bool {
	return l.serving.Load()
}

// MasterTicker runs only on the cluster master.
type MasterTicker struct {
	Ticker
}

func (*MasterTicker) DeclareMethods(d *unify.Declarations) {
	d.Periodic("Tick", unify.Fastest, true)
}

// SelfAware is a Greeter that asks for another Greeter.
type SelfAware struct {
	unify.Base

	Other Greeter `unify:"other"`
}

func (s *SelfAware) Greet(name string) string {
	return "me " + name
}

// BadField declares a property that cannot be injected.
type BadField struct {
	unify.Base

	Events chan string `unify:"events"`
}

// BadPeriodic declares a periodic method it does not have.
type BadPeriodic struct {
	unify.Base
}

func (*BadPeriodic) DeclareMethods(d *unify.Declarations) {
	d.Periodic("Missing", unify.Slow, false)
}

// BadBroadcast declares a broadcast method that returns a value.
type BadBroadcast struct {
	unify.Base
}

func (*BadBroadcast) DeclareMethods(d *unify.Declarations) {
	d.Broadcast("Count")
}

func (*BadBroadcast) Count() int {
	return 0
}
