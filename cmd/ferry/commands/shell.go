package commands

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/marcomacias410/ferry/internal/cli/output"
	"github.com/marcomacias410/ferry/internal/cli/prompt"
	"github.com/marcomacias410/ferry/internal/protocol"
	"github.com/marcomacias410/ferry/pkg/client"
	"github.com/marcomacias410/ferry/pkg/listing"
	"github.com/marcomacias410/ferry/pkg/store"
)

// runShell drives the interactive command loop over one server session.
func runShell(cmd *cobra.Command, args []string) error {
	c, err := client.DialTimeout(serverAddr, dialTimeout)
	if err != nil {
		return err
	}

	printer := output.NewPrinter(os.Stdout, !noColor)
	printer.Printf("Connected to %s. Commands: ls, get <file> [local], put <file>, exit\n", c.RemoteAddr())

	for {
		line, err := prompt.Line("ferry>")
		if err != nil {
			if prompt.IsAborted(err) {
				printer.Println("Exiting.")
				return c.Quit()
			}
			_ = c.Close()
			return err
		}

		fields, err := protocol.SplitFields(line)
		if err != nil {
			printer.Error(fmt.Sprintf("Invalid command syntax: %v", err))
			continue
		}
		if len(fields) == 0 {
			continue
		}

		verb, rest := strings.ToLower(fields[0]), fields[1:]

		if verb == "exit" || verb == "quit" {
			return c.Quit()
		}

		var cmdErr error
		switch verb {
		case "ls":
			cmdErr = doList(c, printer)
		case "get":
			cmdErr = doGet(c, printer, rest)
		case "put":
			cmdErr = doPut(c, printer, rest)
		case "help":
			printer.Println("Commands: ls, get <file> [local], put <file>, exit")
		default:
			printer.Error("Unknown command. Commands: ls, get <file> [local], put <file>, exit")
		}

		if cmdErr != nil {
			// An ERR reply leaves the session usable; show it and keep
			// going. A transport error means the stream is broken.
			var srvErr *client.ServerError
			if errors.As(cmdErr, &srvErr) {
				printer.Error("ERR " + srvErr.Message)
				continue
			}
			if protocol.IsFatal(cmdErr) {
				_ = c.Close()
				return fmt.Errorf("connection lost: %w", cmdErr)
			}
			printer.Error(cmdErr.Error())
		}
	}
}

func doList(c *client.Client, printer *output.Printer) error {
	lines, err := c.List()
	if err != nil {
		return err
	}
	if len(lines) == 0 {
		printer.Println(listing.NoFiles)
		return nil
	}
	for _, line := range lines {
		printer.Println(line)
	}
	return nil
}

func doGet(c *client.Client, printer *output.Printer, args []string) error {
	if len(args) < 1 || len(args) > 2 {
		printer.Error("Usage: get <remote_filename> [local_filename]")
		return nil
	}

	remote := args[0]
	local := store.BaseName(remote)
	if len(args) == 2 {
		local = args[1]
	}

	n, err := c.Download(remote, local)
	if err != nil {
		return err
	}

	abs, err := filepath.Abs(local)
	if err != nil {
		abs = local
	}
	printer.Success(fmt.Sprintf("Downloaded: %s -> %s (%d bytes)", remote, abs, n))
	return nil
}

func doPut(c *client.Client, printer *output.Printer, args []string) error {
	if len(args) != 1 {
		printer.Error("Usage: put <local_path>")
		return nil
	}

	name, n, err := c.Upload(args[0])
	if err != nil {
		return err
	}
	printer.Success(fmt.Sprintf("Uploaded: %s (%d bytes)", name, n))
	return nil
}
