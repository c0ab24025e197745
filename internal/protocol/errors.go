package protocol

import (
	"errors"
	"fmt"
)

// Sentinel errors for frame-level failures. All of them leave the
// connection in an undefined framing state and are fatal to it.
var (
	// ErrConnectionClosed reports that the peer vanished mid-frame.
	ErrConnectionClosed = errors.New("connection closed")

	// ErrShortRead reports that a source delivered fewer bytes than the
	// declared block length.
	ErrShortRead = errors.New("short read")

	// ErrShortWrite reports that a declared block could not be written
	// in full.
	ErrShortWrite = errors.New("short write")
)

// ProtocolError is a malformed frame: an oversized line or an invalid
// block-length announcement. Fatal to the connection.
type ProtocolError struct {
	Op     string // "read line", "read block", ...
	Reason string
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("protocol error: %s: %s", e.Op, e.Reason)
}

// IsFatal reports whether err poisons the connection's framing. Command
// parse errors are not fatal; everything the codec returns is.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	var pe *ProtocolError
	return errors.Is(err, ErrConnectionClosed) ||
		errors.Is(err, ErrShortRead) ||
		errors.Is(err, ErrShortWrite) ||
		errors.As(err, &pe)
}
