package domain

import (
	"errors"
	"fmt"
)

// ErrStreamMisalignment is returned when the command, alias and directory
// streams of a session block differ in length.
var ErrStreamMisalignment = errors.New("stream misalignment")

// NoAlias is the alias stream sentinel for commands typed without an alias.
const NoAlias = "NIL"

// Action is one user action: the command as typed, its alias expansion and
// the working directory it ran in.
type Action struct {
	Command   string
	Alias     string
	Directory string
}

// Text returns the alias expansion when present, otherwise the typed command.
func (a Action) Text() string {
	if a.Alias != NoAlias {
		return a.Alias
	}
	return a.Command
}

// RawSession is one session block of a transcript.
type RawSession struct {
	Source  string // data source the block was read from, e.g. scientist-3
	Ordinal int    // zero-based block index within the source
	Actions []Action
}

// ZipStreams builds aligned actions from the three tagged line streams.
func ZipStreams(commands, aliases, directories []string) ([]Action, error) {
	if len(commands) != len(aliases) || len(commands) != len(directories) {
		return nil, fmt.Errorf("%w: %d commands, %d aliases, %d directories",
			ErrStreamMisalignment, len(commands), len(aliases), len(directories))
	}

	actions := make([]Action, len(commands))
	for i := range commands {
		actions[i] = Action{
			Command:   commands[i],
			Alias:     aliases[i],
			Directory: directories[i],
		}
	}
	return actions, nil
}

// Session is a raw session together with its normalized command sequence.
type Session struct {
	Raw      RawSession
	Commands []Command
	Base     string // discovered home-style base directory, "" when none
	Paths    *PathDomain
}

// NewSession creates a session with an empty path domain.
func NewSession(raw RawSession) *Session {
	return &Session{
		Raw:   raw,
		Paths: NewPathDomain(),
	}
}

// Directories returns the working directory of each action in order.
func (s *Session) Directories() []string {
	dirs := make([]string, len(s.Raw.Actions))
	for i, a := range s.Raw.Actions {
		dirs[i] = a.Directory
	}
	return dirs
}

// Key identifies the session within a run.
func (s *Session) Key() string {
	return fmt.Sprintf("%s#%d", s.Raw.Source, s.Raw.Ordinal)
}
