package terminal

import (
	"errors"
	"os"
	"os/exec"
	"time"

	"github.com/creack/pty"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/wsl-terminal/internal/infrastructure/logging"
	"github.com/GriffinCanCode/wsl-terminal/internal/infrastructure/monitoring"
)

// Publisher receives session output and exit notifications.
type Publisher interface {
	PublishOutput(sessionID, data string)
	PublishExit(sessionID string, code int)
}

// Options configures a Manager.
type Options struct {
	// DefaultShell overrides the program for the default kind off Windows.
	DefaultShell string
	// BufferBytes caps retained output per session.
	BufferBytes int
	// Cols and Rows are the initial pty size when a spawn gives none.
	Cols int
	Rows int
}

// DefaultOptions returns the stock session settings: 80x24, 100 KiB buffers.
func DefaultOptions() Options {
	return Options{
		BufferBytes: DefaultBufferSize,
		Cols:        80,
		Rows:        24,
	}
}

// SpawnRequest describes a session to start.
type SpawnRequest struct {
	ID     string `json:"id"`
	Shell  string `json:"shell"`
	Distro string `json:"distro,omitempty"`
	Cwd    string `json:"cwd,omitempty"`
	Cols   int    `json:"cols,omitempty"`
	Rows   int    `json:"rows,omitempty"`
}

// Manager manages terminal sessions
type Manager struct {
	registry  *Registry
	publisher Publisher
	logger    *logging.Logger
	metrics   *monitoring.Metrics
	opts      Options
}

// NewManager creates a session manager that reports output to publisher.
func NewManager(opts Options, publisher Publisher, logger *logging.Logger) *Manager {
	defaults := DefaultOptions()
	if opts.BufferBytes <= 0 {
		opts.BufferBytes = defaults.BufferBytes
	}
	if opts.Cols <= 0 {
		opts.Cols = defaults.Cols
	}
	if opts.Rows <= 0 {
		opts.Rows = defaults.Rows
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Manager{
		registry:  NewRegistry(),
		publisher: publisher,
		logger:    logger,
		opts:      opts,
	}
}

// WithMetrics attaches a metrics collector.
func (m *Manager) WithMetrics(metrics *monitoring.Metrics) *Manager {
	m.metrics = metrics
	return m
}

// Spawn starts a shell on a new pty and registers it under req.ID.
func (m *Manager) Spawn(req SpawnRequest) error {
	if req.ID == "" {
		return newError(ErrSpawn, "", ErrMissingID)
	}
	if m.registry.Has(req.ID) {
		return newError(ErrSpawn, req.ID, ErrSessionExists)
	}

	kind := ParseShellKind(req.Shell)
	launch := buildLaunch(currentHostEnv(m.opts.DefaultShell), kind, req.Distro, req.Cwd)

	cols, rows := req.Cols, req.Rows
	if cols <= 0 {
		cols = m.opts.Cols
	}
	if rows <= 0 {
		rows = m.opts.Rows
	}

	cmd := exec.Command(launch.Path, launch.Args...)
	cmd.Dir = launch.Dir
	cmd.Env = append(os.Environ(), "TERM=xterm-256color")

	ptmx, err := pty.StartWithSize(cmd, &pty.Winsize{Rows: uint16(rows), Cols: uint16(cols)})
	if err != nil {
		m.metrics.RecordSpawn(string(kind), err)
		m.logger.Session(req.ID).Warn("Spawn failed",
			zap.String("shell", launch.Path),
			zap.Error(err),
		)
		return newError(ErrSpawn, req.ID, err)
	}

	session := &Session{
		ID:         req.ID,
		Shell:      kind,
		Distro:     req.Distro,
		WorkingDir: launch.Dir,
		StartedAt:  time.Now(),
		cmd:        cmd,
		ptmx:       ptmx,
		buffer:     NewBuffer(m.opts.BufferBytes),
		cols:       cols,
		rows:       rows,
	}

	// a concurrent spawn may have claimed the id while the shell started
	if !m.registry.Insert(session) {
		_ = session.terminate()
		go func() { _ = cmd.Wait() }()
		return newError(ErrSpawn, req.ID, ErrSessionExists)
	}

	m.metrics.RecordSpawn(string(kind), nil)
	m.metrics.SetSessionsActive(m.registry.Len())
	m.logger.Session(req.ID).Info("Session spawned",
		zap.String("shell", string(kind)),
		zap.String("program", launch.Path),
		zap.Int("pid", cmd.Process.Pid),
	)

	m.startPump(session)
	go m.waitExit(session)

	return nil
}

// Write sends data to the session's input. Unknown ids are ignored.
func (m *Manager) Write(id string, data []byte) error {
	session, ok := m.registry.Get(id)
	if !ok {
		return nil
	}
	if err := session.write(data); err != nil {
		return newError(ErrWrite, id, err)
	}
	return nil
}

// Resize changes the session's terminal dimensions. Unknown ids are ignored.
func (m *Manager) Resize(id string, cols, rows int) error {
	session, ok := m.registry.Get(id)
	if !ok {
		return nil
	}
	if err := session.resize(cols, rows); err != nil {
		return newError(ErrResize, id, err)
	}
	return nil
}

// Kill removes the session, terminates its process and releases the pty.
// Killing an unknown id is a no-op.
func (m *Manager) Kill(id string) error {
	session, ok := m.registry.Remove(id)
	if !ok {
		return nil
	}
	m.metrics.SetSessionsActive(m.registry.Len())

	if err := session.terminate(); err != nil && !errors.Is(err, os.ErrClosed) {
		m.logger.Session(id).Debug("Session teardown reported an error",
			zap.Error(err),
		)
	}
	m.logger.Session(id).Info("Session killed")
	return nil
}

// ReadBuffer returns a copy of the session's retained output, or an empty
// slice for an unknown id.
func (m *Manager) ReadBuffer(id string) []byte {
	session, ok := m.registry.Get(id)
	if !ok {
		return []byte{}
	}
	return session.buffer.Snapshot()
}

// Get returns info for one session.
func (m *Manager) Get(id string) (SessionInfo, bool) {
	session, ok := m.registry.Get(id)
	if !ok {
		return SessionInfo{}, false
	}
	return session.Info(), true
}

// List returns info for all live sessions ordered by id.
func (m *Manager) List() []SessionInfo {
	sessions := m.registry.List()
	infos := make([]SessionInfo, 0, len(sessions))
	for _, s := range sessions {
		infos = append(infos, s.Info())
	}
	return infos
}

// Len returns the number of live sessions.
func (m *Manager) Len() int {
	return m.registry.Len()
}

// Close kills every session.
func (m *Manager) Close() {
	sessions := m.registry.Drain()
	for _, s := range sessions {
		_ = s.terminate()
	}
	m.metrics.SetSessionsActive(0)
	if len(sessions) > 0 {
		m.logger.Info("Sessions closed", zap.Int("count", len(sessions)))
	}
}

// waitExit reaps the shell and reports its exit status. The session stays
// registered until killed.
func (m *Manager) waitExit(s *Session) {
	err := s.cmd.Wait()

	code := -1
	if s.cmd.ProcessState != nil {
		code = s.cmd.ProcessState.ExitCode()
	}
	s.markExited(code)

	m.logger.Session(s.ID).Debug("Session process exited",
		zap.Int("exit_code", code),
		zap.Error(err),
	)
	if m.publisher != nil {
		m.publisher.PublishExit(s.ID, code)
	}
}
