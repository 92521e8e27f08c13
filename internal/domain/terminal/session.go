package terminal

import (
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/creack/pty"
)

// Session is one shell process running on its own pseudo-terminal.
type Session struct {
	ID         string
	Shell      ShellKind
	Distro     string
	WorkingDir string
	StartedAt  time.Time

	cmd    *exec.Cmd
	ptmx   *os.File
	buffer *Buffer

	// writeMu orders writes on ptmx. It is never held together with mu, so a
	// write blocked on a full pty cannot stall Kill or Info.
	writeMu sync.Mutex

	// mu guards the fields below
	mu       sync.Mutex
	cols     int
	rows     int
	closed   bool
	exited   bool
	exitCode int
}

// SessionInfo is the public representation of a session
type SessionInfo struct {
	ID         string    `json:"id"`
	Shell      ShellKind `json:"shell"`
	Distro     string    `json:"distro,omitempty"`
	WorkingDir string    `json:"working_dir,omitempty"`
	Cols       int       `json:"cols"`
	Rows       int       `json:"rows"`
	Pid        int       `json:"pid,omitempty"`
	StartedAt  time.Time `json:"started_at"`
	Exited     bool      `json:"exited"`
	ExitCode   *int      `json:"exit_code,omitempty"`
}

// write sends p to the shell's input. A session closed by Kill ignores it.
func (s *Session) write(p []byte) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if s.isClosed() {
		return nil
	}
	_, err := s.ptmx.Write(p)
	if err != nil && s.isClosed() {
		return nil
	}
	return err
}

func (s *Session) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// resize propagates new dimensions to the pty.
func (s *Session) resize(cols, rows int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	if err := pty.Setsize(s.ptmx, &pty.Winsize{Rows: uint16(rows), Cols: uint16(cols)}); err != nil {
		return err
	}
	s.cols = cols
	s.rows = rows
	return nil
}

// terminate kills the process group and releases the pty master.
func (s *Session) terminate() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	// signal before closing so a writer blocked on a full pty is released
	var err error
	if s.cmd != nil {
		err = terminateProcess(s.cmd)
	}
	if s.ptmx != nil {
		if cerr := s.ptmx.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

func (s *Session) markExited(code int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.exited = true
	s.exitCode = code
}

// Info returns a snapshot of the session's public state.
func (s *Session) Info() SessionInfo {
	s.mu.Lock()
	defer s.mu.Unlock()

	info := SessionInfo{
		ID:         s.ID,
		Shell:      s.Shell,
		Distro:     s.Distro,
		WorkingDir: s.WorkingDir,
		Cols:       s.cols,
		Rows:       s.rows,
		StartedAt:  s.StartedAt,
		Exited:     s.exited,
	}
	if s.cmd != nil && s.cmd.Process != nil {
		info.Pid = s.cmd.Process.Pid
	}
	if s.exited {
		code := s.exitCode
		info.ExitCode = &code
	}
	return info
}
