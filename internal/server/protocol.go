package server

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrUnknownCommand is returned by ParseCommand for a line it cannot parse.
var ErrUnknownCommand = errors.New("unknown command")

// CommandKind identifies a playground command.
type CommandKind int

const (
	CmdState CommandKind = iota
	CmdAdvance
	CmdBack
	CmdReset
	CmdRun
	CmdSample
	CmdHelp
	CmdQuit
)

func (k CommandKind) String() string {
	switch k {
	case CmdState:
		return "state"
	case CmdAdvance:
		return "advance"
	case CmdBack:
		return "back"
	case CmdReset:
		return "reset"
	case CmdRun:
		return "run"
	case CmdSample:
		return "sample"
	case CmdHelp:
		return "help"
	case CmdQuit:
		return "quit"
	default:
		return "unknown"
	}
}

// Command is one parsed line from a client.
type Command struct {
	Kind CommandKind
	N    int    // Step count for run; 0 means until complete
	Seed int64  // Explicit seed for reset; valid when HasSeed
	Name string // Sample name for sample

	HasSeed bool
}

var aliases = map[string]CommandKind{
	"state":   CmdState,
	"s":       CmdState,
	"advance": CmdAdvance,
	"next":    CmdAdvance,
	"n":       CmdAdvance,
	"back":    CmdBack,
	"b":       CmdBack,
	"reset":   CmdReset,
	"run":     CmdRun,
	"sample":  CmdSample,
	"help":    CmdHelp,
	"?":       CmdHelp,
	"quit":    CmdQuit,
	"exit":    CmdQuit,
}

// ParseCommand parses a command line. Command words are case-insensitive.
func ParseCommand(line string) (Command, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return Command{}, fmt.Errorf("%w: empty line", ErrUnknownCommand)
	}

	kind, ok := aliases[strings.ToLower(fields[0])]
	if !ok {
		return Command{}, fmt.Errorf("%w: %q", ErrUnknownCommand, fields[0])
	}
	cmd := Command{Kind: kind}
	args := fields[1:]

	switch kind {
	case CmdRun:
		if len(args) > 1 {
			return Command{}, fmt.Errorf("%w: run takes one step count", ErrUnknownCommand)
		}
		if len(args) == 1 {
			n, err := strconv.Atoi(args[0])
			if err != nil || n < 1 {
				return Command{}, fmt.Errorf("%w: run count %q must be a positive integer", ErrUnknownCommand, args[0])
			}
			cmd.N = n
		}
	case CmdReset:
		if len(args) > 1 {
			return Command{}, fmt.Errorf("%w: reset takes one seed", ErrUnknownCommand)
		}
		if len(args) == 1 {
			seed, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return Command{}, fmt.Errorf("%w: seed %q is not an integer", ErrUnknownCommand, args[0])
			}
			cmd.Seed, cmd.HasSeed = seed, true
		}
	case CmdSample:
		if len(args) != 1 {
			return Command{}, fmt.Errorf("%w: sample takes one name", ErrUnknownCommand)
		}
		cmd.Name = args[0]
	default:
		if len(args) > 0 {
			return Command{}, fmt.Errorf("%w: %s takes no arguments", ErrUnknownCommand, kind)
		}
	}
	return cmd, nil
}

const helpText = `commands:
  state | s          show the current snapshot
  advance | next | n collapse one more cell
  back | b           step back one snapshot
  run [N]            advance N steps, or until complete
  reset [SEED]       start over, optionally with a seed
  sample NAME        switch to another sample and start over
  help | ?           show this text
  quit | exit        close the connection`
