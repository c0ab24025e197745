// Package server implements the transfer server: a TCP listener that
// hands each accepted connection to its own session goroutine, tracks
// live sessions for graceful shutdown, and never cuts a session that is
// mid-transfer.
package server

import (
	"context"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/marcomacias410/ferry/internal/logger"
	"github.com/marcomacias410/ferry/pkg/metrics"
	"github.com/marcomacias410/ferry/pkg/store"
)

// interruptGrace is how long after shutdown begins an idle session may
// keep waiting for a command line before its read is unblocked. It only
// applies to sessions parked between commands; transfers in flight run
// to completion.
const interruptGrace = 100 * time.Millisecond

// Config holds the transfer server settings. The zero value of the
// optional fields selects the documented defaults.
type Config struct {
	// ListenAddress is the TCP address to listen on, e.g. "0.0.0.0:5001".
	ListenAddress string

	// MaxConnections limits the number of concurrently served sessions.
	// 0 means unlimited.
	MaxConnections int

	// ShutdownTimeout is the maximum duration to wait for in-flight
	// sessions during graceful shutdown before they are force-closed.
	ShutdownTimeout time.Duration

	// MaxLineLength caps command lines. 0 selects the codec default.
	MaxLineLength int

	// MaxObjectSize caps the declared size of an upload. 0 means
	// unlimited.
	MaxObjectSize int64
}

// Server accepts client connections and supervises their sessions.
//
// Thread safety:
// All exported methods are safe for concurrent use. The shutdown
// mechanism uses sync.Once so Stop may be called multiple times.
type Server struct {
	config Config

	// store is shared by every session; backend implementations
	// guarantee safe concurrent access.
	store store.Store

	// metrics is optional. If nil, no metrics are collected.
	metrics metrics.TransferMetrics

	// listener accepts client connections. Closed during shutdown to
	// stop accepting new ones.
	listener   net.Listener
	listenerMu sync.RWMutex

	// activeSessions tracks running session goroutines for graceful
	// shutdown.
	activeSessions sync.WaitGroup

	// sessions maps session ID to *Session so shutdown can interrupt
	// idle readers and, after the timeout, force-close the rest.
	sessions sync.Map

	// sessionCount is the live session total; totalAccepted counts every
	// connection ever accepted.
	sessionCount  atomic.Int32
	totalAccepted atomic.Uint64

	// shutdownOnce ensures shutdown is only initiated once.
	shutdownOnce sync.Once

	// shutdown signals that graceful shutdown has begun. Closed by
	// initiateShutdown, watched by the accept loop and by sessions at
	// each command boundary.
	shutdown chan struct{}

	// sessionCtx flows into storage calls. It is cancelled only when
	// sessions are force-closed after the shutdown timeout; graceful
	// shutdown leaves in-flight operations untouched.
	sessionCtx     context.Context
	cancelSessions context.CancelFunc

	// connSemaphore bounds concurrent connections when MaxConnections
	// is set; nil means unlimited.
	connSemaphore chan struct{}

	// ListenerReady is closed once the listener is accepting. Tests use
	// it to synchronize with startup.
	ListenerReady chan struct{}

	startedAt time.Time
}

// New creates a stopped server over the given store. Call Serve to
// start accepting connections. The metrics recorder may be nil.
func New(config Config, st store.Store, m metrics.TransferMetrics) *Server {
	var connSemaphore chan struct{}
	if config.MaxConnections > 0 {
		connSemaphore = make(chan struct{}, config.MaxConnections)
		logger.Debug("Connection limit", "max_connections", config.MaxConnections)
	} else {
		logger.Debug("Connection limit", "max_connections", "unlimited")
	}

	sessionCtx, cancelSessions := context.WithCancel(context.Background())

	return &Server{
		config:         config,
		store:          st,
		metrics:        m,
		shutdown:       make(chan struct{}),
		sessionCtx:     sessionCtx,
		cancelSessions: cancelSessions,
		connSemaphore:  connSemaphore,
		ListenerReady:  make(chan struct{}),
	}
}

// Serve runs the accept loop until ctx is cancelled or Stop is called.
//
// Returns:
//   - nil on graceful shutdown
//   - error if the listener fails to start or shutdown was not graceful
func (s *Server) Serve(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.config.ListenAddress)
	if err != nil {
		return fmt.Errorf("failed to create listener on %s: %w", s.config.ListenAddress, err)
	}

	s.listenerMu.Lock()
	s.listener = listener
	s.startedAt = time.Now()
	s.listenerMu.Unlock()
	close(s.ListenerReady)

	logger.Info("Transfer server listening", logger.KeyListenAddr, listener.Addr().String())

	go func() {
		<-ctx.Done()
		logger.Info("Shutdown signal received", logger.Err(ctx.Err()))
		s.initiateShutdown()
	}()

	for {
		if s.connSemaphore != nil {
			select {
			case s.connSemaphore <- struct{}{}:
			case <-s.shutdown:
				return s.gracefulShutdown()
			}
		}

		tcpConn, err := s.listener.Accept()
		if err != nil {
			if s.connSemaphore != nil {
				<-s.connSemaphore
			}

			select {
			case <-s.shutdown:
				// Expected: the listener was closed by initiateShutdown.
				return s.gracefulShutdown()
			default:
				logger.Debug("Error accepting connection", logger.Err(err))
				continue
			}
		}

		if tcp, ok := tcpConn.(*net.TCPConn); ok {
			if err := tcp.SetNoDelay(true); err != nil {
				logger.Debug("Failed to set TCP_NODELAY", logger.Err(err))
			}
		}

		s.activeSessions.Add(1)
		live := s.sessionCount.Add(1)
		s.totalAccepted.Add(1)

		sess := newSession(s, tcpConn)
		s.sessions.Store(sess.id, sess)

		if s.metrics != nil {
			s.metrics.RecordConnectionAccepted()
			s.metrics.SetActiveSessions(live)
		}

		logger.Debug("Connection accepted",
			logger.SessionID(sess.id),
			logger.RemoteAddr(tcpConn.RemoteAddr().String()),
			logger.KeyConnCount, live)

		go func(sess *Session) {
			defer func() {
				s.sessions.Delete(sess.id)
				s.activeSessions.Done()
				remaining := s.sessionCount.Add(-1)
				if s.connSemaphore != nil {
					<-s.connSemaphore
				}

				if s.metrics != nil {
					s.metrics.RecordConnectionClosed()
					s.metrics.SetActiveSessions(remaining)
				}

				logger.Debug("Connection closed",
					logger.SessionID(sess.id),
					logger.KeyConnCount, remaining)
			}()

			sess.serve(s.sessionCtx)
		}(sess)
	}
}

// initiateShutdown begins graceful shutdown.
//
// Shutdown sequence:
//  1. Close the shutdown channel (accept loop and sessions observe it)
//  2. Close the listener (no new connections)
//  3. Unblock sessions idle between commands
//
// In-flight transfers are left alone; gracefulShutdown waits for them.
func (s *Server) initiateShutdown() {
	s.shutdownOnce.Do(func() {
		logger.Debug("Shutdown initiated")

		close(s.shutdown)

		s.listenerMu.Lock()
		if s.listener != nil {
			if err := s.listener.Close(); err != nil {
				logger.Debug("Error closing listener", logger.Err(err))
			}
		}
		s.listenerMu.Unlock()

		s.interruptIdleSessions()
	})
}

// interruptIdleSessions wakes sessions blocked waiting for their next
// command line. Sessions mid-transfer are skipped; they notice shutdown
// at their next command boundary.
func (s *Server) interruptIdleSessions() {
	deadline := time.Now().Add(interruptGrace)

	interrupted := 0
	s.sessions.Range(func(_, value any) bool {
		if value.(*Session).interruptIfIdle(deadline) {
			interrupted++
		}
		return true
	})
	logger.Debug("Interrupted idle sessions", "count", interrupted)
}

// gracefulShutdown waits for active sessions to finish or the shutdown
// timeout to expire.
//
// Returns:
//   - nil if every session completed in time
//   - error if the timeout expired and sessions were force-closed
func (s *Server) gracefulShutdown() error {
	active := s.sessionCount.Load()
	logger.Info("Graceful shutdown: waiting for active sessions",
		"active", active, "timeout", s.config.ShutdownTimeout)

	done := make(chan struct{})
	go func() {
		s.activeSessions.Wait()
		close(done)
	}()

	select {
	case <-done:
		logger.Info("Graceful shutdown complete: all sessions closed")
		return nil

	case <-time.After(s.config.ShutdownTimeout):
		remaining := s.sessionCount.Load()
		logger.Warn("Shutdown timeout exceeded, forcing closure",
			"active", remaining, "timeout", s.config.ShutdownTimeout)

		s.forceCloseSessions()

		return fmt.Errorf("shutdown timeout: %d sessions force-closed", remaining)
	}
}

// forceCloseSessions cancels outstanding storage operations and closes
// every remaining connection.
func (s *Server) forceCloseSessions() {
	s.cancelSessions()

	closed := 0
	s.sessions.Range(func(_, value any) bool {
		sess := value.(*Session)
		if err := sess.conn.Close(); err != nil {
			logger.Debug("Error force-closing session",
				logger.SessionID(sess.id), logger.Err(err))
		} else {
			closed++
			if s.metrics != nil {
				s.metrics.RecordConnectionForceClosed()
			}
		}
		return true
	})

	if closed > 0 {
		logger.Info("Force-closed sessions", "count", closed)
	}
}

// Stop initiates graceful shutdown and waits for active sessions.
//
// Safe to call multiple times and concurrently with Serve. A nil ctx
// waits up to the configured ShutdownTimeout; otherwise the ctx governs
// how long Stop blocks.
func (s *Server) Stop(ctx context.Context) error {
	s.initiateShutdown()

	if ctx == nil {
		return s.gracefulShutdown()
	}

	logger.Info("Graceful shutdown: waiting for active sessions",
		"active", s.sessionCount.Load())

	done := make(chan struct{})
	go func() {
		s.activeSessions.Wait()
		close(done)
	}()

	select {
	case <-done:
		logger.Info("Graceful shutdown complete: all sessions closed")
		return nil

	case <-ctx.Done():
		remaining := s.sessionCount.Load()
		logger.Warn("Shutdown context cancelled", "active", remaining, logger.Err(ctx.Err()))
		return ctx.Err()
	}
}

// Addr returns the address the server is listening on. It blocks until
// the listener is ready, making it safe for tests that dial right after
// starting Serve.
func (s *Server) Addr() string {
	<-s.ListenerReady

	s.listenerMu.RLock()
	defer s.listenerMu.RUnlock()

	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// ActiveSessions returns the current number of connected sessions.
func (s *Server) ActiveSessions() int32 {
	return s.sessionCount.Load()
}

// TotalConnections returns the number of connections accepted since
// startup.
func (s *Server) TotalConnections() uint64 {
	return s.totalAccepted.Load()
}

// Uptime reports how long the server has been accepting connections.
// Zero before Serve binds the listener.
func (s *Server) Uptime() time.Duration {
	s.listenerMu.RLock()
	defer s.listenerMu.RUnlock()

	if s.startedAt.IsZero() {
		return 0
	}
	return time.Since(s.startedAt)
}
