package terminal

import (
	"errors"
	"fmt"
)

var (
	// ErrSpawn reports that the pty or the shell process could not be started.
	ErrSpawn = errors.New("spawn error")
	// ErrWrite reports a failed write to a session's pty.
	ErrWrite = errors.New("write error")
	// ErrResize reports a failed window-size change.
	ErrResize = errors.New("resize error")
	// ErrRead reports a failed read from a session's pty.
	ErrRead = errors.New("read error")

	// ErrSessionExists is returned by Spawn for an id that is already live.
	ErrSessionExists = errors.New("session already exists")
	// ErrMissingID is returned by Spawn when no id is given.
	ErrMissingID = errors.New("session id is required")
)

var errorLabels = map[error]string{
	ErrSpawn:  "Failed to spawn",
	ErrWrite:  "Write failed",
	ErrResize: "Resize failed",
	ErrRead:   "Read failed",
}

// Error is a session operation failure. Kind is one of ErrSpawn, ErrWrite,
// ErrResize or ErrRead; both Kind and Err match with errors.Is.
type Error struct {
	Kind      error
	SessionID string
	Err       error
}

func newError(kind error, sessionID string, err error) *Error {
	return &Error{Kind: kind, SessionID: sessionID, Err: err}
}

func (e *Error) Error() string {
	label, ok := errorLabels[e.Kind]
	if !ok {
		label = e.Kind.Error()
	}
	return fmt.Sprintf("%s: %v", label, e.Err)
}

func (e *Error) Unwrap() []error {
	return []error{e.Kind, e.Err}
}
