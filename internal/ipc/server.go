package ipc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"os"
	"sync"

	"cfgd/internal/logging"
)

// ServiceName prefixes every RPC method.
const ServiceName = "Cfgd"

// Server answers Exit and Status calls on a Unix socket. Canceling the
// context passed to NewServer stops accepting; Close also drops clients.
type Server struct {
	path   string
	logger *slog.Logger
	ln     net.Listener
	rpc    *rpc.Server
	stop   func() bool

	mu      sync.Mutex
	clients map[net.Conn]struct{}
	closed  bool
	active  sync.WaitGroup
}

// NewServer binds the control socket at path, replacing any stale socket file.
func NewServer(ctx context.Context, path string, ctrl Controller, logger *slog.Logger) (*Server, error) {
	if ctrl == nil {
		return nil, errors.New("ipc server requires a controller")
	}
	logger = logging.NewComponentLogger(logger, "ipc")

	handlers := rpc.NewServer()
	if err := handlers.RegisterName(ServiceName, &service{ctrl: ctrl, logger: logger}); err != nil {
		return nil, fmt.Errorf("register rpc service: %w", err)
	}
	if err := os.RemoveAll(path); err != nil {
		return nil, fmt.Errorf("remove existing socket: %w", err)
	}
	ln, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("listen on socket: %w", err)
	}

	s := &Server{
		path:    path,
		logger:  logger,
		ln:      ln,
		rpc:     handlers,
		clients: make(map[net.Conn]struct{}),
	}
	s.stop = context.AfterFunc(ctx, func() { _ = s.ln.Close() })
	return s, nil
}

// Path returns the socket path.
func (s *Server) Path() string { return s.path }

// Serve accepts connections in the background until the listener closes.
func (s *Server) Serve() {
	s.logger.Debug("control socket listening", logging.String("socket", s.path))
	s.active.Add(1)
	go s.acceptLoop()
}

func (s *Server) acceptLoop() {
	defer s.active.Done()
	for {
		conn, err := s.ln.Accept()
		if errors.Is(err, net.ErrClosed) {
			return
		}
		if err != nil {
			logging.WarnWithContext(s.logger, "accept failed", "ipc_accept_failed",
				logging.Error(err),
				logging.String(logging.FieldImpact, "control clients may fail to connect"),
				logging.String(logging.FieldErrorHint, "check socket permissions"))
			continue
		}
		if !s.admit(conn) {
			_ = conn.Close()
			return
		}
		go s.serveConn(conn)
	}
}

// admit records conn as live. It refuses once Close has started.
func (s *Server) admit(conn net.Conn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	s.clients[conn] = struct{}{}
	s.active.Add(1)
	return true
}

func (s *Server) serveConn(conn net.Conn) {
	defer s.active.Done()
	s.rpc.ServeCodec(jsonrpc.NewServerCodec(conn))
	s.mu.Lock()
	delete(s.clients, conn)
	s.mu.Unlock()
}

// Close stops accepting, disconnects every client and removes the socket
// file. It returns once no handler is running.
func (s *Server) Close() {
	s.stop()
	_ = s.ln.Close()

	s.mu.Lock()
	s.closed = true
	for conn := range s.clients {
		_ = conn.Close()
	}
	s.mu.Unlock()
	s.active.Wait()

	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		logging.WarnWithContext(s.logger, "failed to remove socket", "ipc_socket_cleanup_failed",
			logging.String("socket", s.path),
			logging.Error(err),
			logging.String(logging.FieldImpact, "stale control socket left behind"),
			logging.String(logging.FieldErrorHint, "remove the socket file manually"))
	}
}

type service struct {
	ctrl   Controller
	logger *slog.Logger
}

func (s *service) Exit(_ ExitRequest, _ *ExitResponse) error {
	s.logger.Info("exit requested", logging.String(logging.FieldEventType, "control_exit"))
	s.ctrl.RequestExit()
	return nil
}

func (s *service) Status(_ StatusRequest, resp *StatusResponse) error {
	*resp = s.ctrl.Status()
	return nil
}
