package nhttp

import (
	"crypto/tls"
	"fmt"
	"io"
	"log"
	"net"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/xiaoyuvax/nhttp/reuseport"
)

// RequestHandler processes one incoming request. It is invoked
// synchronously on the goroutine that drove the parse and may block
// it; hosts wanting to offload must do so themselves.
type RequestHandler func(ctx *RequestCtx)

// Logger is used for logging formatted messages.
type Logger interface {
	// Printf must have the same semantics as log.Printf.
	Printf(format string, args ...interface{})
}

var defaultLogger = Logger(log.New(os.Stderr, "", log.LstdFlags))

// ServerState is the server lifecycle tag.
type ServerState int32

// Server lifecycle states.
const (
	StateStopped ServerState = iota
	StateStarting
	StateStarted
	StateStopping
)

// String implements fmt.Stringer.
func (st ServerState) String() string {
	switch st {
	case StateStopped:
		return "Stopped"
	case StateStarting:
		return "Starting"
	case StateStarted:
		return "Started"
	case StateStopping:
		return "Stopping"
	}
	return fmt.Sprintf("Unknown(%d)", int32(st))
}

// DefaultShutdownTimeout bounds how long Stop waits for in-progress
// requests before force-closing the remaining connections.
const DefaultShutdownTimeout = 30 * time.Second

// Server implements an embeddable HTTP/1.1 server.
//
// It is forbidden copying Server instances. Create new Server
// instances instead.
type Server struct {
	// Handler is the request-received observer. A nil Handler sends
	// empty 200 responses.
	Handler RequestHandler

	// ErrorHandler is the unhandled-exception observer for errors
	// raised by Handler. Returning true marks the error handled;
	// otherwise the built-in 500 body is sent.
	ErrorHandler func(ctx *RequestCtx, err error) bool

	// StateChanged is invoked on every server state transition.
	StateChanged func(old, new ServerState)

	// Addr is the TCP endpoint to listen on, e.g. "127.0.0.1:8080".
	// Port 0 picks a free port; read the result from LocalAddr.
	Addr string

	// Listener, when set, is used instead of binding Addr. This
	// allows serving custom transports such as
	// nhttputil.InmemoryListener.
	Listener net.Listener

	// Name is the banner sent in the Server header of 100 Continue
	// preludes. Final responses carry no Server header unless the
	// handler adds one.
	//
	// Default server name is used if left blank.
	Name string

	// Maximum duration a single socket read may stay outstanding.
	//
	// DefaultReadTimeout is used if not set.
	ReadTimeout time.Duration

	// Maximum duration a single socket write may stay outstanding.
	//
	// DefaultWriteTimeout is used if not set.
	WriteTimeout time.Duration

	// Maximum duration Stop waits for in-progress requests.
	//
	// DefaultShutdownTimeout is used if not set.
	ShutdownTimeout time.Duration

	// Per-connection buffer size for requests' reading.
	//
	// Default buffer size is used if 0.
	ReadBufferSize int

	// Per-connection scratch size for responses' writing.
	//
	// Default buffer size is used if 0.
	WriteBufferSize int

	// MaxInMemoryBodySize is the spill threshold for opaque bodies
	// and multipart file parts.
	//
	// defaultMaxInMemoryBodySize is used if 0.
	MaxInMemoryBodySize int

	// Certificate enables TLS when set: every accepted transport is
	// wrapped with a server-mode handshake before any HTTP bytes are
	// read.
	Certificate *tls.Certificate

	// TLSMinVersion and TLSMaxVersion bound the allowed protocol
	// versions. Zero values defer to crypto/tls defaults.
	TLSMinVersion uint16
	TLSMaxVersion uint16

	// RequireClientCert makes the handshake demand a client
	// certificate. Client identity is not surfaced to the handler.
	RequireClientCert bool

	// ReusePort binds the listener with SO_REUSEPORT.
	ReusePort bool

	// Logger used for accept-loop and TLS handshake diagnostics.
	//
	// By default standard logger from log package is used.
	Logger Logger

	mu        sync.Mutex
	state     int32
	ln        net.Listener
	boundAddr net.Addr
	useTLS    int32
	tm        *timeoutManager
	tlsCfg    *tls.Config

	connsMu sync.Mutex
	conns   map[*serverConn]struct{}
	connsCh chan struct{}

	serverNameV atomic.Value
}

// State returns the current server state.
func (s *Server) State() ServerState {
	return ServerState(atomic.LoadInt32(&s.state))
}

func (s *Server) setState(newState ServerState) {
	old := ServerState(atomic.SwapInt32(&s.state, int32(newState)))
	if s.StateChanged != nil && old != newState {
		s.StateChanged(old, newState)
	}
}

// LocalAddr returns the bound endpoint, useful when port 0 was
// requested. It is nil before Start.
func (s *Server) LocalAddr() net.Addr {
	s.mu.Lock()
	addr := s.boundAddr
	s.mu.Unlock()
	return addr
}

// UseTLS reports whether accepted transports are TLS-wrapped.
func (s *Server) UseTLS() bool {
	return atomic.LoadInt32(&s.useTLS) == 1
}

// Start binds the listener and launches the accept loop.
//
// It returns ErrAlreadyStarted unless the server is Stopped; bind
// failures surface to the caller and leave the server Stopped.
func (s *Server) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.State() != StateStopped {
		return ErrAlreadyStarted
	}
	s.setState(StateStarting)

	cfg, err := s.buildTLSConfig()
	if err != nil {
		s.setState(StateStopped)
		return err
	}

	ln, err := s.listen()
	if err != nil {
		s.setState(StateStopped)
		return err
	}

	s.tm = newTimeoutManager(s.ReadTimeout, s.WriteTimeout)
	s.tlsCfg = cfg
	if cfg != nil {
		atomic.StoreInt32(&s.useTLS, 1)
	} else {
		atomic.StoreInt32(&s.useTLS, 0)
	}
	s.ln = ln
	s.boundAddr = ln.Addr()
	s.conns = make(map[*serverConn]struct{})
	s.connsCh = make(chan struct{}, 1)

	s.setState(StateStarted)
	go s.acceptLoop(ln)
	return nil
}

func (s *Server) listen() (net.Listener, error) {
	if s.Listener != nil {
		return s.Listener, nil
	}
	if s.ReusePort {
		network := "tcp4"
		if strings.HasPrefix(s.Addr, "[") || strings.Count(s.Addr, ":") > 1 {
			network = "tcp6"
		}
		return reuseport.Listen(network, s.Addr)
	}
	return net.Listen("tcp", s.Addr)
}

// acceptLoop repeatedly accepts a TCP connection and hands it to the
// connection constructor on its own goroutine.
func (s *Server) acceptLoop(ln net.Listener) {
	for {
		c, err := acceptConn(s, ln)
		if err != nil {
			return
		}
		go s.serveNewConn(c)
	}
}

func acceptConn(s *Server, ln net.Listener) (net.Conn, error) {
	for {
		c, err := ln.Accept()
		if err != nil {
			if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
				s.logger().Printf("Temporary error when accepting new connections: %s", netErr)
				time.Sleep(time.Second)
				continue
			}
			if err != io.EOF && !strings.Contains(err.Error(), "use of closed network connection") {
				s.logger().Printf("Permanent error when accepting new connections: %s", err)
				return nil, err
			}
			return nil, io.EOF
		}
		if c == nil {
			panic("BUG: net.Listener returned (nil, nil)")
		}
		return c, nil
	}
}

func (s *Server) serveNewConn(c net.Conn) {
	if cfg := s.tlsCfg; cfg != nil {
		c = tls.Server(c, cfg)
	}
	sc := &serverConn{
		s: s,
		c: c,
	}
	sc.rb.Init(s.ReadBufferSize)
	n := s.WriteBufferSize
	if n <= 0 {
		n = defaultWriteBufferSize
	}
	sc.wbuf = make([]byte, 0, n)
	s.register(sc)
	sc.serve()
}

const defaultWriteBufferSize = 4096

func (s *Server) register(sc *serverConn) {
	s.connsMu.Lock()
	s.conns[sc] = struct{}{}
	s.connsMu.Unlock()
	s.signalConns()
}

func (s *Server) unregister(sc *serverConn) {
	s.connsMu.Lock()
	delete(s.conns, sc)
	s.connsMu.Unlock()
	s.signalConns()
}

func (s *Server) signalConns() {
	select {
	case s.connsCh <- struct{}{}:
	default:
	}
}

func (s *Server) connCount() int {
	s.connsMu.Lock()
	n := len(s.conns)
	s.connsMu.Unlock()
	return n
}

func (s *Server) snapshotConns() []*serverConn {
	s.connsMu.Lock()
	conns := make([]*serverConn, 0, len(s.conns))
	for sc := range s.conns {
		conns = append(conns, sc)
	}
	s.connsMu.Unlock()
	return conns
}

// Stop refuses new connections, lets in-progress requests finish
// within ShutdownTimeout, then force-closes the remainder and waits
// for the registry to drain.
func (s *Server) Stop() error {
	s.mu.Lock()
	if s.State() != StateStarted {
		s.mu.Unlock()
		return ErrNotStarted
	}
	s.setState(StateStopping)
	ln := s.ln
	s.mu.Unlock()

	ln.Close()

	for _, sc := range s.snapshotConns() {
		sc.requestClose()
	}

	deadline := time.NewTimer(s.shutdownTimeout())
	defer deadline.Stop()
	forced := false
	for s.connCount() > 0 {
		select {
		case <-s.connsCh:
		case <-deadline.C:
			if !forced {
				forced = true
				for _, sc := range s.snapshotConns() {
					sc.dispose()
				}
			}
		case <-time.After(50 * time.Millisecond):
			// re-check; a registry signal may have been consumed
			// by an earlier iteration
		}
	}

	s.tm.stop()

	s.mu.Lock()
	s.ln = nil
	s.setState(StateStopped)
	s.mu.Unlock()
	return nil
}

// Dispose stops the server if it is still running and releases its
// resources.
func (s *Server) Dispose() error {
	if s.State() == StateStarted {
		return s.Stop()
	}
	return nil
}

func (s *Server) shutdownTimeout() time.Duration {
	if s.ShutdownTimeout > 0 {
		return s.ShutdownTimeout
	}
	return DefaultShutdownTimeout
}

func (s *Server) spillThreshold() int {
	if s.MaxInMemoryBodySize > 0 {
		return s.MaxInMemoryBodySize
	}
	return defaultMaxInMemoryBodySize
}

func (s *Server) logger() Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return defaultLogger
}

func (s *Server) getServerName() []byte {
	v := s.serverNameV.Load()
	var serverName []byte
	if v == nil {
		serverName = []byte(s.Name)
		if len(serverName) == 0 {
			serverName = defaultServerName
		}
		s.serverNameV.Store(serverName)
	} else {
		serverName = v.([]byte)
	}
	return serverName
}
