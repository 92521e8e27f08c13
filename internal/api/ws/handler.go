package ws

import (
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/wsl-terminal/internal/domain/terminal"
	"github.com/GriffinCanCode/wsl-terminal/internal/eventbus"
	"github.com/GriffinCanCode/wsl-terminal/internal/infrastructure/logging"
	"github.com/GriffinCanCode/wsl-terminal/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/wsl-terminal/internal/shared/id"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
)

// Replier accepts the UI's answer to the pending control request.
type Replier interface {
	SubmitReply(value json.RawMessage) bool
}

// Handler manages WebSocket connections
type Handler struct {
	manager  *terminal.Manager
	replier  Replier
	bus      *eventbus.Bus
	metrics  *monitoring.Metrics
	logger   *logging.Logger
	upgrader websocket.Upgrader
}

// NewHandler creates a new WebSocket handler. replier may be nil when the
// control plane is disabled.
func NewHandler(manager *terminal.Manager, replier Replier, bus *eventbus.Bus, metrics *monitoring.Metrics, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Handler{
		manager: manager,
		replier: replier,
		bus:     bus,
		metrics: metrics,
		logger:  logger,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// WithOriginCheck restricts which browser origins may connect. Requests
// without an Origin header are always accepted.
func (h *Handler) WithOriginCheck(allow func(origin string) bool) *Handler {
	h.upgrader.CheckOrigin = func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || allow(origin)
	}
	return h
}

type client struct {
	id      string
	conn    *websocket.Conn
	writeMu sync.Mutex
	metrics *monitoring.Metrics
}

func (c *client) send(msgType string, v any) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := c.conn.WriteJSON(v); err != nil {
		return err
	}
	c.metrics.RecordWSMessage("out", msgType)
	return nil
}

func (c *client) ping() error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
}

// closeLagging ends a connection whose subscriber fell behind the bus.
func (c *client) closeLagging() {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	msg := websocket.FormatCloseMessage(websocket.CloseTryAgainLater, "event stream overflow")
	_ = c.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
	_ = c.conn.Close()
}

// HandleConnection handles WebSocket upgrade and messages
func (h *Handler) HandleConnection(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("WebSocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	cl := &client{id: uuid.New().String(), conn: conn, metrics: h.metrics}
	log := h.logger.With(zap.String("client_id", cl.id))

	h.metrics.IncWSConnections()
	defer h.metrics.DecWSConnections()
	log.Debug("WebSocket client connected")

	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	events, unsubscribe := h.bus.Subscribe()
	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		h.forward(cl, events, done)
	}()

	for {
		var msg ClientMessage
		if err := conn.ReadJSON(&msg); err != nil {
			var syntaxErr *json.SyntaxError
			var typeErr *json.UnmarshalTypeError
			if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
				_ = cl.send("error", errorMessage("invalid message"))
				continue
			}
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Debug("WebSocket read error", zap.Error(err))
			}
			break
		}
		h.metrics.RecordWSMessage("in", messageLabel(msg.Type))
		h.dispatch(cl, msg)
	}

	close(done)
	unsubscribe()
	wg.Wait()
	log.Debug("WebSocket client disconnected")
}

// forward pushes bus events to the client until the connection ends.
func (h *Handler) forward(cl *client, events <-chan eventbus.Event, done <-chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case e, ok := <-events:
			if !ok {
				select {
				case <-done:
				default:
					// evicted by the bus: make the UI reconnect and reattach
					cl.closeLagging()
				}
				return
			}
			if err := cl.send("event", newEventMessage(e)); err != nil {
				return
			}
		case <-ticker.C:
			if err := cl.ping(); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}

func (h *Handler) dispatch(cl *client, msg ClientMessage) {
	switch msg.Type {
	case "spawn":
		h.respond(cl, msg, h.spawn)
	case "write":
		h.respond(cl, msg, func(m ClientMessage) (any, error) {
			return nil, h.manager.Write(m.ID, []byte(m.Data))
		})
	case "resize":
		h.respond(cl, msg, h.resize)
	case "kill":
		h.respond(cl, msg, func(m ClientMessage) (any, error) {
			return nil, h.manager.Kill(m.ID)
		})
	case "read_buffer":
		h.respond(cl, msg, func(m ClientMessage) (any, error) {
			return map[string]string{
				"id":   m.ID,
				"data": string(h.manager.ReadBuffer(m.ID)),
			}, nil
		})
	case "reply":
		h.respond(cl, msg, h.reply)
	case "ping":
		_ = cl.send("pong", map[string]any{"type": "pong"})
	default:
		_ = cl.send("error", errorMessage("unknown message type"))
	}
}

// messageLabel bounds the metric label set to known message types.
func messageLabel(msgType string) string {
	switch msgType {
	case "spawn", "write", "resize", "kill", "read_buffer", "reply", "ping":
		return msgType
	default:
		return "unknown"
	}
}

func (h *Handler) respond(cl *client, msg ClientMessage, fn func(ClientMessage) (any, error)) {
	data, err := fn(msg)
	_ = cl.send("result", newResult(msg.RequestID, data, err))
}

func (h *Handler) spawn(msg ClientMessage) (any, error) {
	sessionID := msg.ID
	if sessionID == "" {
		sessionID = id.NewTabID().String()
	}
	err := h.manager.Spawn(terminal.SpawnRequest{
		ID:     sessionID,
		Shell:  msg.Shell,
		Distro: msg.Distro,
		Cwd:    msg.Cwd,
		Cols:   msg.Cols,
		Rows:   msg.Rows,
	})
	if err != nil {
		return nil, err
	}
	return map[string]string{"id": sessionID}, nil
}

func (h *Handler) resize(msg ClientMessage) (any, error) {
	if msg.Cols <= 0 || msg.Rows <= 0 {
		return nil, errors.New("cols and rows must be positive")
	}
	return nil, h.manager.Resize(msg.ID, msg.Cols, msg.Rows)
}

func (h *Handler) reply(msg ClientMessage) (any, error) {
	if h.replier == nil {
		return nil, errors.New("control plane disabled")
	}
	payload := msg.Payload
	if len(payload) == 0 {
		payload = json.RawMessage("null")
	}
	return map[string]bool{"delivered": h.replier.SubmitReply(payload)}, nil
}
