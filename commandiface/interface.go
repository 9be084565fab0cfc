// Package commandiface provides an HTTP admin interface for a unify
// container: container commands, diagnostics, the component graph and
// Prometheus metrics.
//
// Register it under unify.CommandInterfaceName and enable it with the
// application.commandinterface property:
//
//	b.AddComponent(unify.CommandInterfaceName, (*commandiface.Interface)(nil),
//	    unify.WithSetting("address", ":7070"))
//	b.SetProperty(unify.PropertyCommandInterface, true)
package commandiface

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/junioryono/unify"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

var _ unify.ContainerInterface = (*Interface)(nil)

// Interface serves the admin API over HTTP.
type Interface struct {
	unify.Base

	Address      string        `unify:"address,default=127.0.0.1:7070"`
	ReadTimeout  time.Duration `unify:"readTimeout,default=5s"`
	WriteTimeout time.Duration `unify:"writeTimeout,default=10s"`
	Token        string        `unify:"token,hidden"`
	Metrics      bool          `unify:"metrics,default=true"`

	mu       sync.Mutex
	server   *http.Server
	listener net.Listener
	done     chan struct{}
	handler  http.Handler
}

func (i *Interface) OnInitialize() error {
	i.handler = i.routes()
	return nil
}

// Handler returns the router behind the interface.
func (i *Interface) Handler() http.Handler {
	return i.handler
}

// Addr returns the bound listen address, or nil when not serving.
func (i *Interface) Addr() net.Addr {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.listener == nil {
		return nil
	}
	return i.listener.Addr()
}

func (i *Interface) StartServicingRequests(context.Context) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	if i.server != nil {
		return nil
	}

	ln, err := net.Listen("tcp", i.Address)
	if err != nil {
		return fmt.Errorf("command interface listen %s: %w", i.Address, err)
	}

	srv := &http.Server{
		Handler:           i.handler,
		ReadHeaderTimeout: i.ReadTimeout,
		ReadTimeout:       i.ReadTimeout,
		WriteTimeout:      i.WriteTimeout,
		ErrorLog:          zap.NewStdLog(i.Logger()),
	}
	done := make(chan struct{})

	go func() {
		defer close(done)
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			i.Logger().Error("Command interface stopped", zap.Error(err))
		}
	}()

	i.server, i.listener, i.done = srv, ln, done
	i.Logger().Info("Command interface listening", zap.String("address", ln.Addr().String()))
	return nil
}

func (i *Interface) StopServicingRequests(ctx context.Context) error {
	i.mu.Lock()
	srv, done := i.server, i.done
	i.server, i.listener, i.done = nil, nil, nil
	i.mu.Unlock()

	if srv == nil {
		return nil
	}

	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("command interface shutdown: %w", err)
	}
	<-done
	return nil
}

func (i *Interface) IsServicingRequests() bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.server != nil
}

func (i *Interface) routes() http.Handler {
	h := &handlers{container: i.Context().Container(), logger: i.Logger()}

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.Recoverer)
	r.Use(requestLogger(i.Logger()))
	r.Use(RequestContext(h.container))

	r.Get("/health", h.health)
	r.Get("/info", h.info)
	r.Get("/graph", h.graph)
	if i.Metrics {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(h.container.Gatherer(), promhttp.HandlerOpts{}))
	}

	r.Group(func(r chi.Router) {
		if i.Token != "" {
			r.Use(bearerToken(i.Token))
		}
		r.Post("/commands/{command}", h.command)
	})

	return r
}
