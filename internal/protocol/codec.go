// Package protocol implements the transfer codec: newline-terminated
// command lines and length-prefixed binary blocks over a duplex byte
// stream. Both the server session and the client speak through it, so
// neither side ever infers a message boundary from stream idle time.
package protocol

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// DefaultMaxLineLength bounds command and reply lines. It protects the
// server from a peer that streams garbage without a newline.
const DefaultMaxLineLength = 4096

// Codec frames reads and writes over a single duplex stream. It is not
// safe for concurrent use; each connection owns exactly one Codec.
type Codec struct {
	br      *bufio.Reader
	w       io.Writer
	maxLine int
}

// NewCodec wraps a duplex stream. maxLineLength of 0 selects
// DefaultMaxLineLength.
func NewCodec(rw io.ReadWriter, maxLineLength int) *Codec {
	if maxLineLength <= 0 {
		maxLineLength = DefaultMaxLineLength
	}
	return &Codec{
		br:      bufio.NewReader(rw),
		w:       rw,
		maxLine: maxLineLength,
	}
}

// WriteLine sends one newline-terminated line. The text must not embed
// a newline; the field format already forbids it, so hitting this is a
// caller bug surfaced as a ProtocolError.
func (c *Codec) WriteLine(text string) error {
	if strings.ContainsAny(text, "\n\r") {
		return &ProtocolError{Op: "write line", Reason: "embedded newline"}
	}
	if _, err := io.WriteString(c.w, text+"\n"); err != nil {
		return fmt.Errorf("write line: %w", errors.Join(ErrConnectionClosed, err))
	}
	return nil
}

// ReadLine blocks until a full line arrives and returns it without the
// terminator. A clean close at a line boundary returns io.EOF untouched
// so callers can tell an orderly disconnect from a torn frame.
func (c *Codec) ReadLine() (string, error) {
	var line []byte
	for {
		chunk, err := c.br.ReadSlice('\n')
		line = append(line, chunk...)

		if err == nil {
			break
		}
		if err == bufio.ErrBufferFull {
			if len(line) > c.maxLine {
				return "", &ProtocolError{
					Op:     "read line",
					Reason: fmt.Sprintf("line exceeds %d bytes", c.maxLine),
				}
			}
			continue
		}
		if err == io.EOF {
			if len(line) == 0 {
				return "", io.EOF
			}
			return "", fmt.Errorf("read line: stream ended mid-line: %w", ErrConnectionClosed)
		}
		return "", fmt.Errorf("read line: %w", errors.Join(ErrConnectionClosed, err))
	}

	// Drop the '\n' and a polite trailing '\r'.
	line = line[:len(line)-1]
	if n := len(line); n > 0 && line[n-1] == '\r' {
		line = line[:n-1]
	}
	if len(line) > c.maxLine {
		return "", &ProtocolError{
			Op:     "read line",
			Reason: fmt.Sprintf("line exceeds %d bytes", c.maxLine),
		}
	}
	return string(line), nil
}

// WriteBlock announces length on its own line and then copies exactly
// that many bytes from r. A source that runs dry mid-block leaves the
// stream unframed, so the caller must close the connection on error.
func (c *Codec) WriteBlock(length int64, r io.Reader) error {
	if length < 0 {
		return &ProtocolError{Op: "write block", Reason: "negative length"}
	}
	if err := c.WriteLine(strconv.FormatInt(length, 10)); err != nil {
		return err
	}
	return c.WriteBody(length, r)
}

// WriteBody copies exactly length bytes from r into the stream. The
// caller has already announced the length on a line of its own (a READY
// reply or a PUT command), so no length line is written here.
func (c *Codec) WriteBody(length int64, r io.Reader) error {
	if length < 0 {
		return &ProtocolError{Op: "write body", Reason: "negative length"}
	}
	n, err := io.CopyN(c.w, r, length)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("write block: source delivered %d of %d declared bytes: %w",
				n, length, ErrShortRead)
		}
		return fmt.Errorf("write block: wrote %d of %d declared bytes: %w",
			n, length, errors.Join(ErrShortWrite, err))
	}
	return nil
}

// ReadBlockLength reads and validates a block-length announcement.
func (c *Codec) ReadBlockLength() (int64, error) {
	line, err := c.ReadLine()
	if err != nil {
		return 0, err
	}
	length, err := strconv.ParseInt(strings.TrimSpace(line), 10, 64)
	if err != nil || length < 0 {
		return 0, &ProtocolError{
			Op:     "read block",
			Reason: fmt.Sprintf("malformed length %q", line),
		}
	}
	return length, nil
}

// ReadBlock reads a complete announced block into memory. Listing
// bodies and tests use it; bulk payloads stream through BlockReader.
func (c *Codec) ReadBlock() ([]byte, error) {
	length, err := c.ReadBlockLength()
	if err != nil {
		return nil, err
	}
	buf := make([]byte, length)
	if _, err := io.ReadFull(c.br, buf); err != nil {
		return nil, fmt.Errorf("read block: %w", errors.Join(ErrShortRead, err))
	}
	return buf, nil
}

// BlockReader returns a reader over exactly length bytes of the stream.
// It never reads past the declared length, since bytes beyond it belong
// to the next frame, and converts a premature end of stream into
// ErrShortRead.
func (c *Codec) BlockReader(length int64) *BlockReader {
	return &BlockReader{src: c.br, remaining: length}
}

// BlockReader delivers a declared-length block as a stream.
type BlockReader struct {
	src       io.Reader
	remaining int64
}

// Read implements io.Reader over the block body.
func (b *BlockReader) Read(p []byte) (int, error) {
	if b.remaining <= 0 {
		return 0, io.EOF
	}
	if int64(len(p)) > b.remaining {
		p = p[:b.remaining]
	}
	n, err := b.src.Read(p)
	b.remaining -= int64(n)
	switch {
	case err == io.EOF && b.remaining > 0:
		return n, fmt.Errorf("block ended %d bytes early: %w", b.remaining, ErrShortRead)
	case err == io.EOF:
		err = nil
	case err != nil:
		err = fmt.Errorf("read block: %w", errors.Join(ErrConnectionClosed, err))
	}
	return n, err
}

// Remaining reports how many declared bytes are still unread.
func (b *BlockReader) Remaining() int64 {
	return b.remaining
}

// Discard consumes the unread remainder of the block so the stream is
// positioned at the next frame. Used when a backend write fails midway
// through an upload and the session wants to keep the connection.
func (b *BlockReader) Discard() error {
	_, err := io.Copy(io.Discard, b)
	return err
}
