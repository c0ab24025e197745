package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"runtime/debug"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/marcomacias410/ferry/internal/logger"
	"github.com/marcomacias410/ferry/internal/protocol"
	"github.com/marcomacias410/ferry/internal/telemetry"
	"github.com/marcomacias410/ferry/pkg/listing"
	"github.com/marcomacias410/ferry/pkg/store"
)

// errHandled marks a failure that was already reported to the client as
// an ERR reply. The session stays open; only framing failures close it.
var errHandled = errors.New("reported to client")

// Session is the server-side state of one client connection. It owns
// the connection and its codec exclusively; the server only touches the
// connection to interrupt an idle read during shutdown or to force the
// session closed after the shutdown timeout.
type Session struct {
	id    string
	srv   *Server
	conn  net.Conn
	codec *protocol.Codec
	log   *slog.Logger

	// mu guards idle. The flag is set only while the session is parked
	// waiting for its next command line; shutdown may interrupt the read
	// then, and never while a transfer is moving bytes.
	mu   sync.Mutex
	idle bool
}

func newSession(srv *Server, conn net.Conn) *Session {
	id := uuid.NewString()
	return &Session{
		id:    id,
		srv:   srv,
		conn:  conn,
		codec: protocol.NewCodec(conn, srv.config.MaxLineLength),
		log: logger.With(
			logger.KeySessionID, id,
			logger.KeyRemoteAddr, conn.RemoteAddr().String(),
		),
	}
}

// serve runs the session state machine: read a command, dispatch it,
// repeat until the client quits, the connection fails, or the server
// shuts down.
//
// Shutdown is checked only between commands. A command already in
// flight, including its payload transfer, always runs to completion.
func (s *Session) serve(ctx context.Context) {
	defer s.close()

	s.log.Debug("Session started")

	for {
		select {
		case <-s.srv.shutdown:
			s.log.Debug("Session closing: server shutting down")
			return
		default:
		}

		line, err := s.readCommandLine()
		if err != nil {
			s.logReadEnd(err)
			return
		}

		if done := s.dispatch(ctx, line); done {
			return
		}
	}
}

// dispatch parses and executes one command line. It reports true when
// the session must end: the client quit or a framing failure left the
// stream unusable.
func (s *Session) dispatch(ctx context.Context, line string) bool {
	start := time.Now()

	cmd, err := protocol.ParseCommand(line)
	if err != nil {
		s.recordCommand("INVALID", start, "error")
		s.srv.recordTransferError("command")
		s.log.Debug("Rejected command", logger.Err(err))
		if werr := s.writeErr(err.Error()); werr != nil {
			s.log.Debug("Session closing: reply failed", logger.Err(werr))
			return true
		}
		return false
	}

	attrs := []attribute.KeyValue{
		telemetry.SessionID(s.id),
		telemetry.ClientAddr(s.conn.RemoteAddr().String()),
	}
	if cmd.Name != "" {
		attrs = append(attrs, telemetry.Object(cmd.Name))
	}
	if cmd.Verb == protocol.VerbPut {
		attrs = append(attrs, telemetry.Size(cmd.Size))
	}
	ctx, span := telemetry.StartCommandSpan(ctx, string(cmd.Verb), attrs...)
	defer span.End()

	var opErr error
	done := false

	switch cmd.Verb {
	case protocol.VerbList:
		opErr = s.handleList(ctx)
	case protocol.VerbGet:
		opErr = s.handleGet(ctx, cmd.Name, start)
	case protocol.VerbPut:
		opErr = s.handlePut(ctx, cmd.Name, cmd.Size, start)
	case protocol.VerbQuit:
		opErr = s.handleQuit()
		done = true
	}

	status := "ok"
	if opErr != nil {
		status = "error"
	}
	s.recordCommand(string(cmd.Verb), start, status)
	telemetry.SetAttributes(ctx, telemetry.Status(status))

	if opErr != nil && !errors.Is(opErr, errHandled) {
		telemetry.RecordError(ctx, opErr)
		s.log.Warn("Session closing: command failed",
			logger.Command(string(cmd.Verb)), logger.Err(opErr))
		return true
	}
	return done
}

// handleList sends the listing: a count line followed by exactly that
// many rendered lines. An empty store sends a count of zero; rendering
// the empty sentinel is the client's concern.
func (s *Session) handleList(ctx context.Context) error {
	infos, err := s.srv.store.List(ctx)
	if err != nil {
		s.srv.recordTransferError("backend")
		telemetry.RecordError(ctx, err)
		s.log.Error("Listing failed", logger.Err(err))
		return s.reportErr("storage failure")
	}

	lines := listing.Format(infos)
	if err := s.codec.WriteLine(strconv.Itoa(len(lines))); err != nil {
		return err
	}
	for _, line := range lines {
		if err := s.codec.WriteLine(line); err != nil {
			return err
		}
	}

	s.log.Debug("Listing sent", "entries", len(lines))
	return nil
}

// handleGet streams an object to the client. Failures before the READY
// reply are recoverable; once the size is announced, any shortfall
// leaves the stream unframed and the connection must close.
func (s *Session) handleGet(ctx context.Context, rawName string, start time.Time) error {
	name := store.BaseName(rawName)
	if err := store.ValidateName(name); err != nil {
		s.srv.recordTransferError("invalid_name")
		return s.reportErr("invalid name")
	}

	rc, info, err := s.srv.store.Get(ctx, name)
	if err != nil {
		if errors.Is(err, store.ErrObjectNotFound) {
			s.srv.recordTransferError("not_found")
			return s.reportErr("not found")
		}
		s.srv.recordTransferError("backend")
		telemetry.RecordError(ctx, err)
		s.log.Error("Download failed to open", logger.Object(name), logger.Err(err))
		return s.reportErr("storage failure")
	}
	defer rc.Close()

	if err := s.codec.WriteLine(protocol.EncodeDownloadReady(info.Size)); err != nil {
		return err
	}

	if err := s.codec.WriteBody(info.Size, rc); err != nil {
		s.srv.recordTransferError("short_transfer")
		s.log.Error("Download failed mid-stream",
			logger.Object(name), logger.Size(info.Size), logger.Err(err))
		return err
	}

	s.srv.recordBytes("download", info.Size)
	telemetry.SetAttributes(ctx, telemetry.Bytes(info.Size))
	s.log.Info("Download complete",
		logger.Object(name), logger.Bytes(info.Size),
		logger.DurationMs(logger.Duration(start)))
	return nil
}

// handlePut receives an object from the client. Validation failures are
// reported before READY, so no body bytes ever travel for a rejected
// upload. After READY the declared size is read in full even when the
// backend write fails, keeping the stream framed for the ERR reply.
func (s *Session) handlePut(ctx context.Context, rawName string, size int64, start time.Time) error {
	name := store.BaseName(rawName)
	if err := store.ValidateName(name); err != nil {
		s.srv.recordTransferError("invalid_name")
		return s.reportErr("invalid name")
	}
	if max := s.srv.config.MaxObjectSize; max > 0 && size > max {
		s.srv.recordTransferError("too_large")
		return s.reportErr(fmt.Sprintf("object exceeds %d byte limit", max))
	}

	if err := s.codec.WriteLine(protocol.EncodeReady()); err != nil {
		return err
	}

	body := s.codec.BlockReader(size)
	info, err := s.srv.store.Put(ctx, name, size, body)
	if err != nil {
		if protocol.IsFatal(err) {
			s.srv.recordTransferError("short_transfer")
			return err
		}

		// The backend failed but the client may still be sending. Drain
		// what remains so the next command starts at a frame boundary.
		if derr := body.Discard(); derr != nil {
			return derr
		}
		s.srv.recordTransferError("backend")
		telemetry.RecordError(ctx, err)
		s.log.Error("Upload failed", logger.Object(name), logger.Size(size), logger.Err(err))
		return s.reportErr("storage failure")
	}

	if err := s.codec.WriteLine(protocol.EncodeUploadOK(name, info.Size)); err != nil {
		return err
	}

	s.srv.recordBytes("upload", info.Size)
	telemetry.SetAttributes(ctx, telemetry.Bytes(info.Size))
	s.log.Info("Upload complete",
		logger.Object(name), logger.Bytes(info.Size),
		logger.DurationMs(logger.Duration(start)))
	return nil
}

// handleQuit acknowledges the quit; the caller closes the session.
func (s *Session) handleQuit() error {
	if err := s.codec.WriteLine(protocol.EncodeOK()); err != nil {
		return err
	}
	s.log.Debug("Session closing: client quit")
	return nil
}

// reportErr sends an ERR reply for a recoverable failure and returns
// errHandled so the session keeps running. A failure to write the reply
// itself is fatal and propagates instead.
func (s *Session) reportErr(message string) error {
	if err := s.writeErr(message); err != nil {
		return err
	}
	return errHandled
}

func (s *Session) writeErr(message string) error {
	return s.codec.WriteLine(protocol.EncodeErr(message))
}

// readCommandLine blocks until the next command line. The session is
// marked idle for the duration of the read so a shutdown can unblock
// it; the flag flips off before the command executes.
func (s *Session) readCommandLine() (string, error) {
	s.setIdle(true)
	line, err := s.codec.ReadLine()
	s.setIdle(false)
	return line, err
}

func (s *Session) setIdle(idle bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.idle = idle
	if !idle {
		// Drop any shutdown deadline so the command's transfer is never
		// cut mid-block.
		_ = s.conn.SetReadDeadline(time.Time{})
	}
}

// interruptIfIdle sets a read deadline on the connection if the session
// is parked between commands. Sessions mid-command are left untouched.
// Reports whether the interrupt was armed.
func (s *Session) interruptIfIdle(deadline time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.idle {
		return false
	}
	_ = s.conn.SetReadDeadline(deadline)
	return true
}

// logReadEnd classifies why the command read ended. A clean client
// disconnect and a shutdown interrupt are both routine.
func (s *Session) logReadEnd(err error) {
	switch {
	case errors.Is(err, io.EOF):
		s.log.Debug("Session closed by client")
	case isTimeout(err):
		s.log.Debug("Session read interrupted for shutdown")
	default:
		s.log.Debug("Session read failed", logger.Err(err))
	}
}

func isTimeout(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// close finishes the session. Panic recovery keeps a misbehaving
// session from taking down the server.
func (s *Session) close() {
	if r := recover(); r != nil {
		s.log.Error("Panic in session handler",
			"panic", r,
			"stack", string(debug.Stack()))
	}

	if err := s.conn.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
		s.log.Debug("Error closing connection", logger.Err(err))
	}
}

func (s *Session) recordCommand(verb string, start time.Time, status string) {
	if s.srv.metrics != nil {
		s.srv.metrics.RecordCommand(verb, time.Since(start), status)
	}
}

func (s *Server) recordBytes(direction string, n int64) {
	if s.metrics != nil {
		s.metrics.RecordBytesTransferred(direction, n)
	}
}

func (s *Server) recordTransferError(kind string) {
	if s.metrics != nil {
		s.metrics.RecordTransferError(kind)
	}
}
