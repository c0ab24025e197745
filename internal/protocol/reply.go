package protocol

import (
	"fmt"
	"strconv"
	"strings"
)

// ReplyKind discriminates server reply lines.
type ReplyKind int

const (
	// ReplyOK acknowledges QUIT ("OK") or a completed upload
	// ("OK <name> <size>").
	ReplyOK ReplyKind = iota
	// ReplyReady opens a transfer: "READY" for uploads,
	// "READY <size>" for downloads.
	ReplyReady
	// ReplyErr carries a recoverable failure: "ERR <message>".
	ReplyErr
)

// Reply is one parsed server response line.
type Reply struct {
	Kind    ReplyKind
	Name    string // OK <name> <size>
	Size    int64  // READY <size> and OK <name> <size>
	HasSize bool
	Message string // ERR message, verbatim
}

// EncodeOK renders the bare acknowledgement line.
func EncodeOK() string {
	return "OK"
}

// EncodeUploadOK renders the upload acknowledgement carrying the stored
// name and byte count.
func EncodeUploadOK(name string, size int64) string {
	return fmt.Sprintf("OK %s %d", QuoteField(name), size)
}

// EncodeReady renders the upload go-ahead.
func EncodeReady() string {
	return "READY"
}

// EncodeDownloadReady renders the download go-ahead with the declared
// byte count.
func EncodeDownloadReady(size int64) string {
	return fmt.Sprintf("READY %d", size)
}

// EncodeErr renders a recoverable error reply. Newlines in the message
// would tear the frame, so they collapse to spaces.
func EncodeErr(message string) string {
	message = strings.ReplaceAll(message, "\n", " ")
	message = strings.ReplaceAll(message, "\r", " ")
	return "ERR " + message
}

// ParseReply parses one server response line. A line that fits no reply
// shape is a ProtocolError: the server broke the contract and the
// client must drop the connection.
func ParseReply(line string) (Reply, error) {
	head, rest, _ := strings.Cut(line, " ")
	switch strings.ToUpper(head) {
	case "ERR":
		// The message is surfaced verbatim.
		return Reply{Kind: ReplyErr, Message: rest}, nil

	case "READY":
		if rest == "" {
			return Reply{Kind: ReplyReady}, nil
		}
		size, err := strconv.ParseInt(strings.TrimSpace(rest), 10, 64)
		if err != nil || size < 0 {
			return Reply{}, &ProtocolError{
				Op:     "read reply",
				Reason: fmt.Sprintf("malformed READY size %q", rest),
			}
		}
		return Reply{Kind: ReplyReady, Size: size, HasSize: true}, nil

	case "OK":
		if rest == "" {
			return Reply{Kind: ReplyOK}, nil
		}
		fields, err := SplitFields(rest)
		if err != nil || len(fields) != 2 {
			return Reply{}, &ProtocolError{
				Op:     "read reply",
				Reason: fmt.Sprintf("malformed OK arguments %q", rest),
			}
		}
		size, err := strconv.ParseInt(fields[1], 10, 64)
		if err != nil || size < 0 {
			return Reply{}, &ProtocolError{
				Op:     "read reply",
				Reason: fmt.Sprintf("malformed OK size %q", fields[1]),
			}
		}
		return Reply{Kind: ReplyOK, Name: fields[0], Size: size, HasSize: true}, nil
	}

	return Reply{}, &ProtocolError{
		Op:     "read reply",
		Reason: fmt.Sprintf("unrecognized reply %q", head),
	}
}
