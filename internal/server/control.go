package server

import (
	"context"
	"errors"
	"net"
	"sync"

	"github.com/creachadair/jrpc2/channel"
	"github.com/playat/playat/pkg/logger"
)

// ControlServer serves the JSON-RPC methods with line framing on the local
// control socket (a unix socket, or a named pipe on Windows). Access is
// limited by the socket's permissions, so no token is required.
type ControlServer struct {
	rpc      *RPCServer
	path     string
	log      logger.Logger
	mu       sync.Mutex
	listener net.Listener
}

func NewControlServer(rpc *RPCServer, path string, l logger.Logger) *ControlServer {
	if l == nil {
		l = logger.NewNopLogger()
	}
	return &ControlServer{rpc: rpc, path: path, log: l}
}

// Listen opens the control socket.
func (s *ControlServer) Listen() error {
	l, err := createListener(s.path)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.listener = l
	s.mu.Unlock()
	return nil
}

// Serve accepts connections until ctx is cancelled or Shutdown is called.
func (s *ControlServer) Serve(ctx context.Context) error {
	s.mu.Lock()
	l := s.listener
	s.mu.Unlock()
	if l == nil {
		return errors.New("control socket not listening")
	}
	go func() {
		<-ctx.Done()
		_ = s.Shutdown()
	}()
	for {
		conn, err := l.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			s.log.Warning("control socket: accept: %v", err)
			continue
		}
		go s.rpc.serve(channel.Line(conn, conn))
	}
}

// Shutdown closes the listener and removes the socket file. Connected
// peers finish on their own.
func (s *ControlServer) Shutdown() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	err := s.listener.Close()
	s.listener = nil
	if cerr := cleanupSocket(s.path); cerr != nil {
		s.log.Warning("removing %s: %v", s.path, cerr)
	}
	return err
}
