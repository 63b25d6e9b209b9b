package server

import (
	"errors"
	"testing"
)

func TestParseCommand(t *testing.T) {
	tests := []struct {
		line string
		want Command
	}{
		{"state", Command{Kind: CmdState}},
		{"s", Command{Kind: CmdState}},
		{"advance", Command{Kind: CmdAdvance}},
		{"N", Command{Kind: CmdAdvance}},
		{"next", Command{Kind: CmdAdvance}},
		{"back", Command{Kind: CmdBack}},
		{"b", Command{Kind: CmdBack}},
		{"run", Command{Kind: CmdRun}},
		{"run 25", Command{Kind: CmdRun, N: 25}},
		{"  RUN   3 ", Command{Kind: CmdRun, N: 3}},
		{"reset", Command{Kind: CmdReset}},
		{"reset -42", Command{Kind: CmdReset, Seed: -42, HasSeed: true}},
		{"sample gates", Command{Kind: CmdSample, Name: "gates"}},
		{"?", Command{Kind: CmdHelp}},
		{"exit", Command{Kind: CmdQuit}},
	}

	for _, tt := range tests {
		got, err := ParseCommand(tt.line)
		if err != nil {
			t.Errorf("ParseCommand(%q) error: %v", tt.line, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseCommand(%q) = %+v, want %+v", tt.line, got, tt.want)
		}
	}
}

func TestParseCommandErrors(t *testing.T) {
	lines := []string{
		"",
		"   ",
		"jump",
		"run zero",
		"run 0",
		"run -3",
		"run 1 2",
		"reset abc",
		"reset 1 2",
		"sample",
		"sample a b",
		"advance 3",
		"help me",
	}

	for _, line := range lines {
		if _, err := ParseCommand(line); !errors.Is(err, ErrUnknownCommand) {
			t.Errorf("ParseCommand(%q) error = %v, want ErrUnknownCommand", line, err)
		}
	}
}

func TestCommandKindString(t *testing.T) {
	for word, kind := range aliases {
		if kind.String() == "unknown" {
			t.Errorf("alias %q maps to a kind without a name", word)
		}
	}
	if CommandKind(99).String() != "unknown" {
		t.Errorf("CommandKind(99).String() = %q, want unknown", CommandKind(99).String())
	}
}
