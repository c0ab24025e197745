// Package client implements the transfer client: it drives the command
// protocol over a single connection, pairing each command with its
// reply and moving payload bytes through the same length-exact framing
// the server uses.
package client

import (
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/marcomacias410/ferry/internal/protocol"
	"github.com/marcomacias410/ferry/pkg/store"
)

// Client is one protocol session. It is not safe for concurrent use;
// the protocol itself is strictly request/reply over one stream.
type Client struct {
	conn  net.Conn
	codec *protocol.Codec
}

// Dial connects to a transfer server.
func Dial(addr string) (*Client, error) {
	return DialTimeout(addr, 0)
}

// DialTimeout connects with a connect timeout. Zero means no timeout.
func DialTimeout(addr string, timeout time.Duration) (*Client, error) {
	conn, err := net.DialTimeout("tcp", addr, timeout)
	if err != nil {
		return nil, fmt.Errorf("connect to %s: %w", addr, err)
	}
	return New(conn), nil
}

// New wraps an established connection.
func New(conn net.Conn) *Client {
	return &Client{
		conn:  conn,
		codec: protocol.NewCodec(conn, 0),
	}
}

// RemoteAddr returns the server's address.
func (c *Client) RemoteAddr() string {
	return c.conn.RemoteAddr().String()
}

// Close tears the connection down without the QUIT handshake.
func (c *Client) Close() error {
	return c.conn.Close()
}

// Quit ends the session cleanly: QUIT, wait for the acknowledgement,
// close the connection.
func (c *Client) Quit() error {
	reply, err := c.roundTrip(protocol.Command{Verb: protocol.VerbQuit}.Encode())
	if err != nil {
		_ = c.conn.Close()
		return err
	}
	if reply.Kind != protocol.ReplyOK {
		_ = c.conn.Close()
		return &protocol.ProtocolError{Op: "quit", Reason: "server did not acknowledge QUIT"}
	}
	return c.conn.Close()
}

// List fetches the rendered listing lines. An empty store yields an
// empty slice; rendering the "No files" sentinel is the caller's
// concern.
func (c *Client) List() ([]string, error) {
	if err := c.codec.WriteLine(protocol.Command{Verb: protocol.VerbList}.Encode()); err != nil {
		return nil, err
	}

	// The reply is a count line, or ERR if the backend failed.
	head, err := c.readLine()
	if err != nil {
		return nil, err
	}
	count, perr := strconv.ParseInt(head, 10, 64)
	if perr != nil || count < 0 {
		if reply, rerr := protocol.ParseReply(head); rerr == nil && reply.Kind == protocol.ReplyErr {
			return nil, &ServerError{Message: reply.Message}
		}
		return nil, &protocol.ProtocolError{
			Op:     "list",
			Reason: fmt.Sprintf("unexpected listing header %q", head),
		}
	}

	lines := make([]string, 0, min(count, 1024))
	for i := int64(0); i < count; i++ {
		line, err := c.readLine()
		if err != nil {
			return nil, err
		}
		lines = append(lines, line)
	}
	return lines, nil
}

// Get downloads an object into w and returns the byte count written.
// A transfer that delivers fewer bytes than the server declared fails
// with ErrShortRead; the caller never receives a silently truncated
// object.
func (c *Client) Get(name string, w io.Writer) (int64, error) {
	reply, err := c.roundTrip(protocol.Command{Verb: protocol.VerbGet, Name: name}.Encode())
	if err != nil {
		return 0, err
	}

	switch reply.Kind {
	case protocol.ReplyErr:
		return 0, &ServerError{Message: reply.Message}

	case protocol.ReplyReady:
		if !reply.HasSize {
			return 0, &protocol.ProtocolError{Op: "get", Reason: "READY without a size"}
		}
		body := c.codec.BlockReader(reply.Size)
		n, err := io.Copy(w, body)
		if err != nil {
			// A local write failure leaves the stream framed; drain the
			// rest of the block so the session stays usable.
			if !protocol.IsFatal(err) {
				_ = body.Discard()
			}
			return n, err
		}
		if n != reply.Size {
			return n, fmt.Errorf("download delivered %d of %d declared bytes: %w",
				n, reply.Size, protocol.ErrShortRead)
		}
		return n, nil
	}

	return 0, &protocol.ProtocolError{
		Op:     "get",
		Reason: fmt.Sprintf("unexpected reply kind %d", reply.Kind),
	}
}

// Download fetches an object into a local file. An empty localPath
// stores it under the object's base name in the working directory. A
// failed transfer removes the partial file rather than leaving a
// truncated copy behind.
func (c *Client) Download(name, localPath string) (int64, error) {
	if localPath == "" {
		localPath = store.BaseName(name)
	}

	f, err := os.Create(localPath)
	if err != nil {
		return 0, fmt.Errorf("create %s: %w", localPath, err)
	}

	n, err := c.Get(name, f)
	closeErr := f.Close()
	if err != nil {
		_ = os.Remove(localPath)
		return n, err
	}
	if closeErr != nil {
		_ = os.Remove(localPath)
		return n, fmt.Errorf("write %s: %w", localPath, closeErr)
	}
	return n, nil
}

// Put uploads exactly size bytes from r under name. It returns the
// stored name and size the server acknowledged.
func (c *Client) Put(name string, size int64, r io.Reader) (string, int64, error) {
	cmd := protocol.Command{Verb: protocol.VerbPut, Name: name, Size: size}
	reply, err := c.roundTrip(cmd.Encode())
	if err != nil {
		return "", 0, err
	}

	switch reply.Kind {
	case protocol.ReplyErr:
		// Rejected before READY; no body bytes were sent.
		return "", 0, &ServerError{Message: reply.Message}

	case protocol.ReplyReady:
		if err := c.codec.WriteBody(size, r); err != nil {
			return "", 0, err
		}

		final, err := c.readReply()
		if err != nil {
			return "", 0, err
		}
		switch final.Kind {
		case protocol.ReplyOK:
			if !final.HasSize {
				return "", 0, &protocol.ProtocolError{Op: "put", Reason: "OK without stored name and size"}
			}
			return final.Name, final.Size, nil
		case protocol.ReplyErr:
			return "", 0, &ServerError{Message: final.Message}
		}
		return "", 0, &protocol.ProtocolError{
			Op:     "put",
			Reason: fmt.Sprintf("unexpected reply kind %d", final.Kind),
		}
	}

	return "", 0, &protocol.ProtocolError{
		Op:     "put",
		Reason: fmt.Sprintf("unexpected reply kind %d", reply.Kind),
	}
}

// Upload sends a local file under its base name and returns the stored
// name and acknowledged size.
func (c *Client) Upload(localPath string) (string, int64, error) {
	f, err := os.Open(localPath)
	if err != nil {
		return "", 0, fmt.Errorf("open %s: %w", localPath, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return "", 0, fmt.Errorf("stat %s: %w", localPath, err)
	}
	if info.IsDir() {
		return "", 0, fmt.Errorf("%s is a directory", localPath)
	}

	return c.Put(store.BaseName(localPath), info.Size(), f)
}

// roundTrip sends one command line and reads its reply.
func (c *Client) roundTrip(line string) (protocol.Reply, error) {
	if err := c.codec.WriteLine(line); err != nil {
		return protocol.Reply{}, err
	}
	return c.readReply()
}

func (c *Client) readReply() (protocol.Reply, error) {
	line, err := c.readLine()
	if err != nil {
		return protocol.Reply{}, err
	}
	return protocol.ParseReply(line)
}

// readLine maps a clean EOF to ErrConnectionClosed: from the client's
// side, a server that hangs up while a reply is owed broke the session
// either way.
func (c *Client) readLine() (string, error) {
	line, err := c.codec.ReadLine()
	if errors.Is(err, io.EOF) {
		return "", fmt.Errorf("server closed the connection: %w", protocol.ErrConnectionClosed)
	}
	return line, err
}
