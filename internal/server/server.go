// Package server is the web surface of `playat serve`: an HTML form and
// job table, JSON-RPC 2.0 over HTTP and WebSocket with job push
// notifications, and the same methods on a local control socket.
package server

import (
	"context"
	"errors"
	"time"

	"github.com/playat/playat/internal/registry"
	"github.com/playat/playat/pkg/logger"
)

// Config configures Server.
type Config struct {
	Web WebConfig
	RPC RPCConfig
	// ControlPath is the unix socket or named pipe; empty disables it.
	ControlPath string
}

// Observable is the part of the registry that reports changes.
type Observable interface {
	SetObserver(registry.Observer)
}

// Server runs the web listener and the control socket together.
type Server struct {
	log     logger.Logger
	rpc     *RPCServer
	web     *WebServer
	control *ControlServer
}

// New wires jobs into the RPC methods and both listeners. Registry events
// from events are pushed to connected peers.
func New(cfg Config, jobs Jobs, events Observable, l logger.Logger) *Server {
	if l == nil {
		l = logger.NewNopLogger()
	}
	rpc := NewRPCServer(&cfg.RPC, jobs, l)
	if events != nil {
		events.SetObserver(rpc.Notifier().Observe)
	}
	s := &Server{
		log: l,
		rpc: rpc,
		web: NewWebServer(l, jobs, rpc, cfg.Web),
	}
	if cfg.ControlPath != "" {
		s.control = NewControlServer(rpc, cfg.ControlPath, l)
	}
	return s
}

// Run serves until ctx is cancelled, then shuts everything down. Listen
// errors are returned before anything is served.
func (s *Server) Run(ctx context.Context) error {
	wl, err := s.web.Listen()
	if err != nil {
		return err
	}
	if s.control != nil {
		if err := s.control.Listen(); err != nil {
			_ = wl.Close()
			return err
		}
	}

	errCh := make(chan error, 2)
	go func() { errCh <- s.web.Serve(wl) }()
	if s.control != nil {
		go func() { errCh <- s.control.Serve(ctx) }()
	}

	var runErr error
	select {
	case <-ctx.Done():
	case runErr = <-errCh:
	}
	return errors.Join(runErr, s.shutdown())
}

func (s *Server) shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	var errs []error
	if err := s.web.Shutdown(ctx); err != nil {
		errs = append(errs, err)
	}
	if s.control != nil {
		if err := s.control.Shutdown(); err != nil {
			errs = append(errs, err)
		}
	}
	s.rpc.Close()
	return errors.Join(errs...)
}
