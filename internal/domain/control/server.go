package control

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/wsl-terminal/internal/infrastructure/logging"
	"github.com/GriffinCanCode/wsl-terminal/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/wsl-terminal/internal/infrastructure/tracing"
	"github.com/GriffinCanCode/wsl-terminal/internal/shared/id"
)

// DefaultReplyTimeout bounds the wait for a UI reply.
const DefaultReplyTimeout = 30 * time.Second

// MaxLineBytes caps one request line. A connection that sends a longer line
// is closed without a reply.
const MaxLineBytes = 1 << 20

// ErrServerClosed is returned by Start after Close.
var ErrServerClosed = errors.New("control: server closed")

// Publisher forwards control actions to UI subscribers.
type Publisher interface {
	PublishAction(action string, payload json.RawMessage)
}

// Options configures a Server.
type Options struct {
	Endpoint     Endpoint
	ReplyTimeout time.Duration
}

// Server accepts control connections and relays each request to the UI.
type Server struct {
	opts      Options
	publisher Publisher
	logger    *logging.Logger
	metrics   *monitoring.Metrics
	tracer    *tracing.Tracer

	slot pendingSlot

	mu       sync.Mutex
	listener net.Listener
	lock     *flock.Flock
	conns    map[net.Conn]struct{}
	closed   bool
	done     chan struct{}
	wg       sync.WaitGroup
}

// NewServer creates a control server. Start must be called to bind it.
func NewServer(opts Options, publisher Publisher, logger *logging.Logger) *Server {
	if opts.Endpoint.Network == "" {
		opts.Endpoint = DefaultEndpoint()
	}
	if opts.ReplyTimeout <= 0 {
		opts.ReplyTimeout = DefaultReplyTimeout
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Server{
		opts:      opts,
		publisher: publisher,
		logger:    logger,
		conns:     make(map[net.Conn]struct{}),
		done:      make(chan struct{}),
	}
}

// WithMetrics attaches a metrics collector.
func (s *Server) WithMetrics(m *monitoring.Metrics) *Server {
	s.metrics = m
	return s
}

// WithTracer records one span per round trip.
func (s *Server) WithTracer(t *tracing.Tracer) *Server {
	s.tracer = t
	return s
}

// Start binds the endpoint and serves connections in the background.
// A bind failure is logged and returned; the server then never serves.
func (s *Server) Start() error {
	ln, err := s.listen()
	if err != nil {
		s.logger.Error("Control listener unavailable",
			zap.String("endpoint", s.opts.Endpoint.String()),
			zap.Error(err),
		)
		return err
	}
	s.Serve(ln)
	return nil
}

// Serve accepts connections from ln in the background.
func (s *Server) Serve(ln net.Listener) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		_ = ln.Close()
		return
	}
	s.listener = ln
	s.mu.Unlock()

	s.logger.Info("Control listener started", zap.String("address", ln.Addr().String()))

	s.wg.Add(1)
	go s.acceptLoop(ln)
}

func (s *Server) listen() (net.Listener, error) {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return nil, ErrServerClosed
	}

	ep := s.opts.Endpoint
	if !ep.IsUnix() {
		return net.Listen(ep.Network, ep.Address)
	}

	if err := os.MkdirAll(filepath.Dir(ep.Address), 0o700); err != nil {
		return nil, fmt.Errorf("create socket dir: %w", err)
	}

	lock := flock.New(ep.Address + ".lock")
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("lock control socket: %w", err)
	}
	if !locked {
		return nil, fmt.Errorf("control socket %s is owned by another process", ep.Address)
	}

	if err := os.Remove(ep.Address); err != nil && !errors.Is(err, os.ErrNotExist) {
		_ = lock.Unlock()
		return nil, fmt.Errorf("remove stale socket: %w", err)
	}

	ln, err := net.Listen("unix", ep.Address)
	if err != nil {
		_ = lock.Unlock()
		return nil, fmt.Errorf("listen: %w", err)
	}
	if err := os.Chmod(ep.Address, 0o600); err != nil {
		_ = ln.Close()
		_ = lock.Unlock()
		return nil, fmt.Errorf("chmod socket: %w", err)
	}

	s.mu.Lock()
	s.lock = lock
	s.mu.Unlock()
	return ln, nil
}

// Addr returns the bound address, or nil before Start.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Listening reports whether the server is accepting connections.
func (s *Server) Listening() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listener != nil && !s.closed
}

// Pending reports whether a request is waiting for a UI reply.
func (s *Server) Pending() bool {
	return s.slot.occupied()
}

// SubmitReply delivers value to the request currently awaiting a reply.
// With nothing pending it does nothing and returns false.
func (s *Server) SubmitReply(value json.RawMessage) bool {
	ch := s.slot.take()
	if ch == nil {
		return false
	}
	if len(bytes.TrimSpace(value)) == 0 {
		value = json.RawMessage("null")
	}
	// buffered with capacity one and taken exactly once, so this never blocks
	ch <- value
	return true
}

// Close stops accepting, drops open connections, and releases the socket.
func (s *Server) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true

	ln := s.listener
	lock := s.lock
	s.lock = nil
	// connections go first so a waiting handler cannot answer on them
	for c := range s.conns {
		_ = c.Close()
	}
	close(s.done)
	s.mu.Unlock()

	var err error
	if ln != nil {
		err = ln.Close()
	}
	s.wg.Wait()

	if lock != nil {
		if s.opts.Endpoint.IsUnix() {
			if rerr := os.Remove(s.opts.Endpoint.Address); rerr != nil && !errors.Is(rerr, os.ErrNotExist) && err == nil {
				err = rerr
			}
		}
		if uerr := lock.Unlock(); uerr != nil && err == nil {
			err = uerr
		}
	}
	return err
}

func (s *Server) acceptLoop(ln net.Listener) {
	defer s.wg.Done()

	for {
		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-s.done:
				return
			default:
			}
			if errors.Is(err, net.ErrClosed) {
				return
			}
			s.logger.Warn("Control accept failed", zap.Error(err))
			continue
		}

		if !s.track(conn) {
			_ = conn.Close()
			return
		}
		s.wg.Add(1)
		go s.handleConn(conn)
	}
}

func (s *Server) track(conn net.Conn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	s.conns[conn] = struct{}{}
	return true
}

func (s *Server) untrack(conn net.Conn) {
	s.mu.Lock()
	delete(s.conns, conn)
	s.mu.Unlock()
}

// handleConn processes request lines from one connection in order.
func (s *Server) handleConn(conn net.Conn) {
	defer s.wg.Done()
	defer s.untrack(conn)
	defer conn.Close()

	s.metrics.IncControlConns()
	defer s.metrics.DecControlConns()

	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 0, 64*1024), MaxLineBytes)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		req, ok := decodeRequest(line)
		if !ok {
			s.logger.Debug("Skipping malformed control line", zap.Int("bytes", len(line)))
			continue
		}

		reply := s.roundTrip(req)
		out, err := encodeLine(reply)
		if err != nil {
			out, _ = encodeLine(TimeoutReply)
		}
		if _, err := conn.Write(out); err != nil {
			s.logger.Debug("Control reply write failed", zap.Error(err))
			return
		}
	}

	switch err := scanner.Err(); {
	case errors.Is(err, bufio.ErrTooLong):
		s.logger.Warn("Dropping control connection with oversized line", zap.Int("limit", MaxLineBytes))
	case err != nil && !errors.Is(err, net.ErrClosed):
		s.logger.Debug("Control connection read failed", zap.Error(err))
	}
}

// roundTrip publishes req to the UI and waits for the correlated reply.
func (s *Server) roundTrip(req Request) json.RawMessage {
	ch, displaced := s.slot.install()
	if displaced {
		s.metrics.IncControlOverwrites()
		s.logger.Warn("Pending control request replaced before reply",
			zap.String("action", req.Action),
		)
	}

	requestID := id.NewControlID()
	timer := monitoring.NewTimer(s.metrics, req.Action)
	span, ctx := s.tracer.Start(context.Background(), "control."+req.Action)
	span.Tag("control_id", requestID.String())

	if s.publisher != nil {
		s.publisher.PublishAction(req.Action, req.Payload)
	}

	reply, err := s.await(ch)

	outcome := monitoring.OutcomeReplied
	if err != nil {
		outcome = monitoring.OutcomeTimeout
		reply = TimeoutReply
		s.slot.release(ch)
		span.Fail(err)
	}
	duration := timer.Stop(outcome)
	span.Tag("outcome", outcome)
	span.End()

	s.logger.Debug("Control round trip", append(tracing.Fields(ctx),
		zap.String("control_id", requestID.String()),
		zap.String("action", req.Action),
		zap.String("outcome", outcome),
		zap.Duration("duration", duration),
	)...)
	return reply
}

func (s *Server) await(ch chan json.RawMessage) (json.RawMessage, error) {
	timer := time.NewTimer(s.opts.ReplyTimeout)
	defer timer.Stop()

	select {
	case v := <-ch:
		return v, nil
	case <-timer.C:
		return nil, ErrTimeout
	case <-s.done:
		return nil, ErrServerClosed
	}
}
