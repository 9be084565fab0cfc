package unify

import (
	"context"
	"sync"

	"golang.org/x/text/language"
)

type requestContextKey struct{}

type broadcastSuppressedKey struct{}

// RequestContext carries per-request state through explicit context values.
type RequestContext struct {
	SessionID string
	Locale    language.Tag

	mu         sync.RWMutex
	attributes map[string]any
}

// NewRequestContext creates a request context for a session.
func NewRequestContext(sessionID string, locale language.Tag) *RequestContext {
	return &RequestContext{
		SessionID:  sessionID,
		Locale:     locale,
		attributes: make(map[string]any),
	}
}

// SetAttribute stores a request attribute.
func (rc *RequestContext) SetAttribute(name string, value any) {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	if rc.attributes == nil {
		rc.attributes = make(map[string]any)
	}
	rc.attributes[name] = value
}

// Attribute returns a request attribute.
func (rc *RequestContext) Attribute(name string) (any, bool) {
	rc.mu.RLock()
	defer rc.mu.RUnlock()
	v, ok := rc.attributes[name]
	return v, ok
}

// WithRequestContext returns a context carrying rc.
func WithRequestContext(ctx context.Context, rc *RequestContext) context.Context {
	return context.WithValue(ctx, requestContextKey{}, rc)
}

// RequestContextFrom returns the request context carried by ctx, if any.
func RequestContextFrom(ctx context.Context) (*RequestContext, bool) {
	if ctx == nil {
		return nil, false
	}
	rc, ok := ctx.Value(requestContextKey{}).(*RequestContext)
	return rc, ok
}

// WithBroadcastSuppressed marks ctx so that broadcasts issued under it are
// not sent to other nodes. The command loop applies it while handling
// inbound cluster commands.
func WithBroadcastSuppressed(ctx context.Context) context.Context {
	return context.WithValue(ctx, broadcastSuppressedKey{}, true)
}

// IsBroadcastSuppressed reports whether ctx carries the suppression flag.
func IsBroadcastSuppressed(ctx context.Context) bool {
	if ctx == nil {
		return false
	}
	suppressed, _ := ctx.Value(broadcastSuppressedKey{}).(bool)
	return suppressed
}

type heldLockKey struct{ name string }

func withHeldLock(ctx context.Context, lock string) context.Context {
	return context.WithValue(ctx, heldLockKey{lock}, true)
}

func holdsLock(ctx context.Context, lock string) bool {
	held, _ := ctx.Value(heldLockKey{lock}).(bool)
	return held
}
