package client

// ServerError is an ERR reply from the server: the request was refused
// but the session survived and may carry further commands. Anything
// else the client returns means the connection itself is unusable.
type ServerError struct {
	Message string
}

// Error implements the error interface. The server's message is
// surfaced verbatim.
func (e *ServerError) Error() string {
	return e.Message
}

// IsNotFound reports whether the server refused the request because the
// named object does not exist.
func (e *ServerError) IsNotFound() bool {
	return e.Message == "not found"
}
