package protocol

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Verb is a protocol command word. The wire form is upper-case; parsing
// is case-insensitive.
type Verb string

const (
	VerbList Verb = "LS"
	VerbGet  Verb = "GET"
	VerbPut  Verb = "PUT"
	VerbQuit Verb = "QUIT"
)

// ErrUnknownCommand is the parse failure for an unrecognized verb. Its
// text is part of the wire contract ("ERR unknown command").
var ErrUnknownCommand = errors.New("unknown command")

// Command is one parsed client request. Parse errors are client
// mistakes, not framing violations: the session reports them over the
// wire and keeps the connection.
type Command struct {
	Verb Verb
	Name string // GET and PUT
	Size int64  // PUT only
}

// ParseCommand tokenizes and validates one command line.
func ParseCommand(line string) (Command, error) {
	fields, err := SplitFields(line)
	if err != nil {
		return Command{}, fmt.Errorf("malformed command: %w", err)
	}
	if len(fields) == 0 {
		return Command{}, errors.New("empty command")
	}

	switch Verb(strings.ToUpper(fields[0])) {
	case VerbList:
		if len(fields) != 1 {
			return Command{}, errors.New("LS takes no arguments")
		}
		return Command{Verb: VerbList}, nil

	case VerbGet:
		if len(fields) != 2 {
			return Command{}, errors.New("GET requires exactly one name")
		}
		if fields[1] == "" {
			return Command{}, errors.New("GET requires a non-empty name")
		}
		return Command{Verb: VerbGet, Name: fields[1]}, nil

	case VerbPut:
		if len(fields) != 3 {
			return Command{}, errors.New("PUT requires a name and a size")
		}
		if fields[1] == "" {
			return Command{}, errors.New("PUT requires a non-empty name")
		}
		size, err := strconv.ParseInt(fields[2], 10, 64)
		if err != nil || size < 0 {
			return Command{}, fmt.Errorf("invalid size %q", fields[2])
		}
		return Command{Verb: VerbPut, Name: fields[1], Size: size}, nil

	case VerbQuit:
		if len(fields) != 1 {
			return Command{}, errors.New("QUIT takes no arguments")
		}
		return Command{Verb: VerbQuit}, nil
	}

	return Command{}, ErrUnknownCommand
}

// Encode renders the canonical wire line for the command.
func (c Command) Encode() string {
	switch c.Verb {
	case VerbGet:
		return string(VerbGet) + " " + QuoteField(c.Name)
	case VerbPut:
		return fmt.Sprintf("%s %s %d", VerbPut, QuoteField(c.Name), c.Size)
	default:
		return string(c.Verb)
	}
}
