package logger

import "log/slog"

// Standard field keys. Use these across all log statements so the
// output stays queryable.
const (
	KeySessionID  = "session_id"  // per-connection identifier
	KeyRemoteAddr = "remote_addr" // peer address
	KeyCommand    = "command"     // protocol verb: LS, GET, PUT, QUIT
	KeyObject     = "object"      // object name in the store
	KeySize       = "size"        // declared size in bytes
	KeyBytes      = "bytes"       // bytes actually moved
	KeyBackend    = "backend"     // store backend: fs, memory, s3, badger
	KeyBucket     = "bucket"      // S3 bucket
	KeyKey        = "key"         // S3 object key
	KeyDurationMs = "duration_ms" // operation duration
	KeyError      = "error"       // error message
	KeyListenAddr = "listen_addr" // server listen address
	KeyConnCount  = "conn_count"  // live connection count
)

// Err returns the standard error attribute, or an empty attribute for
// a nil error so call sites can pass it unconditionally.
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.String(KeyError, err.Error())
}

// SessionID returns the session identifier attribute.
func SessionID(id string) slog.Attr {
	return slog.String(KeySessionID, id)
}

// RemoteAddr returns the peer address attribute.
func RemoteAddr(addr string) slog.Attr {
	return slog.String(KeyRemoteAddr, addr)
}

// Command returns the protocol verb attribute.
func Command(verb string) slog.Attr {
	return slog.String(KeyCommand, verb)
}

// Object returns the object name attribute.
func Object(name string) slog.Attr {
	return slog.String(KeyObject, name)
}

// Size returns the declared byte count attribute.
func Size(n int64) slog.Attr {
	return slog.Int64(KeySize, n)
}

// Bytes returns the transferred byte count attribute.
func Bytes(n int64) slog.Attr {
	return slog.Int64(KeyBytes, n)
}

// Backend returns the store backend attribute.
func Backend(kind string) slog.Attr {
	return slog.String(KeyBackend, kind)
}

// DurationMs returns the duration attribute in milliseconds.
func DurationMs(ms float64) slog.Attr {
	return slog.Float64(KeyDurationMs, ms)
}
