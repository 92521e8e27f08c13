package ws

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/wsl-terminal/internal/domain/terminal"
	"github.com/GriffinCanCode/wsl-terminal/internal/eventbus"
)

type mockReplier struct {
	mock.Mock
}

func (m *mockReplier) SubmitReply(value json.RawMessage) bool {
	args := m.Called(value)
	return args.Bool(0)
}

type testEnv struct {
	url     string
	bus     *eventbus.Bus
	manager *terminal.Manager
	replier *mockReplier
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("pty sessions need a unix shell")
	}
	gin.SetMode(gin.TestMode)

	bus := eventbus.New()
	manager := terminal.NewManager(terminal.Options{DefaultShell: "/bin/sh"}, bus, nil)
	replier := &mockReplier{}

	router := gin.New()
	router.GET("/stream", NewHandler(manager, replier, bus, nil, nil).
		WithOriginCheck(func(origin string) bool { return origin == "tauri://localhost" }).
		HandleConnection)

	srv := httptest.NewServer(router)
	t.Cleanup(func() {
		srv.Close()
		manager.Close()
		bus.Close()
	})

	return &testEnv{
		url:     "ws" + strings.TrimPrefix(srv.URL, "http") + "/stream",
		bus:     bus,
		manager: manager,
		replier: replier,
	}
}

func (e *testEnv) dial(t *testing.T) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(e.url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	require.Eventually(t, func() bool { return e.bus.SubscriberCount() > 0 }, 5*time.Second, 10*time.Millisecond)
	return conn
}

// readUntil reads frames until match returns true or the deadline passes.
func readUntil(t *testing.T, conn *websocket.Conn, match func(map[string]any) bool) map[string]any {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	require.NoError(t, conn.SetReadDeadline(deadline))
	for {
		var frame map[string]any
		require.NoError(t, conn.ReadJSON(&frame))
		if match(frame) {
			return frame
		}
	}
}

func resultFor(requestID string) func(map[string]any) bool {
	return func(f map[string]any) bool {
		return f["type"] == "result" && f["request_id"] == requestID
	}
}

func TestPing(t *testing.T) {
	env := newTestEnv(t)
	conn := env.dial(t)

	require.NoError(t, conn.WriteJSON(ClientMessage{Type: "ping"}))
	frame := readUntil(t, conn, func(f map[string]any) bool { return f["type"] == "pong" })
	assert.Equal(t, "pong", frame["type"])
}

func TestUnknownAndInvalidMessages(t *testing.T) {
	env := newTestEnv(t)
	conn := env.dial(t)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("{not json")))
	frame := readUntil(t, conn, func(f map[string]any) bool { return f["type"] == "error" })
	assert.Equal(t, "invalid message", frame["message"])

	require.NoError(t, conn.WriteJSON(ClientMessage{Type: "launch_rockets"}))
	frame = readUntil(t, conn, func(f map[string]any) bool { return f["type"] == "error" })
	assert.Equal(t, "unknown message type", frame["message"])

	require.NoError(t, conn.WriteJSON(ClientMessage{Type: "ping"}))
	readUntil(t, conn, func(f map[string]any) bool { return f["type"] == "pong" })
}

func TestSessionCommandsAndEvents(t *testing.T) {
	env := newTestEnv(t)
	conn := env.dial(t)

	require.NoError(t, conn.WriteJSON(ClientMessage{Type: "spawn", RequestID: "r1", ID: "ws1"}))
	frame := readUntil(t, conn, resultFor("r1"))
	require.Equal(t, true, frame["success"], frame)
	assert.Equal(t, map[string]any{"id": "ws1"}, frame["data"])

	require.NoError(t, conn.WriteJSON(ClientMessage{Type: "write", RequestID: "r2", ID: "ws1", Data: "echo stream-$((40+2))\n"}))
	readUntil(t, conn, resultFor("r2"))

	var seen strings.Builder
	readUntil(t, conn, func(f map[string]any) bool {
		if f["type"] == "event" && f["name"] == "shell-output-ws1" {
			data, _ := f["data"].(string)
			seen.WriteString(data)
		}
		return strings.Contains(seen.String(), "stream-42")
	})

	require.NoError(t, conn.WriteJSON(ClientMessage{Type: "read_buffer", RequestID: "r3", ID: "ws1"}))
	frame = readUntil(t, conn, resultFor("r3"))
	data, ok := frame["data"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, data["data"], "stream-42")

	require.NoError(t, conn.WriteJSON(ClientMessage{Type: "resize", RequestID: "r4", ID: "ws1", Cols: 0, Rows: 10}))
	frame = readUntil(t, conn, resultFor("r4"))
	assert.Equal(t, false, frame["success"])
	assert.NotEmpty(t, frame["error"])

	require.NoError(t, conn.WriteJSON(ClientMessage{Type: "spawn", RequestID: "r5", ID: "ws1"}))
	frame = readUntil(t, conn, resultFor("r5"))
	assert.Equal(t, false, frame["success"])

	require.NoError(t, conn.WriteJSON(ClientMessage{Type: "kill", RequestID: "r6", ID: "ws1"}))
	frame = readUntil(t, conn, resultFor("r6"))
	assert.Equal(t, true, frame["success"])

	_, ok = env.manager.Get("ws1")
	assert.False(t, ok)
}

func TestSpawnGeneratesID(t *testing.T) {
	env := newTestEnv(t)
	conn := env.dial(t)

	require.NoError(t, conn.WriteJSON(ClientMessage{Type: "spawn", RequestID: "gen"}))
	frame := readUntil(t, conn, resultFor("gen"))
	data, ok := frame["data"].(map[string]any)
	require.True(t, ok, frame)
	sessionID, _ := data["id"].(string)
	assert.True(t, strings.HasPrefix(sessionID, "tab_"))
}

func TestControlActionAndReply(t *testing.T) {
	env := newTestEnv(t)
	conn := env.dial(t)

	env.bus.PublishAction("new_tab", json.RawMessage(`{"shell":"wsl"}`))
	frame := readUntil(t, conn, func(f map[string]any) bool { return f["name"] == "mcp-action" })
	assert.Equal(t, "new_tab", frame["action"])
	assert.Equal(t, map[string]any{"shell": "wsl"}, frame["payload"])

	env.replier.On("SubmitReply", mock.MatchedBy(func(v json.RawMessage) bool {
		return string(v) == `{"tab_id":"t9"}`
	})).Return(true).Once()
	env.replier.On("SubmitReply", json.RawMessage("null")).Return(false).Once()

	require.NoError(t, conn.WriteJSON(ClientMessage{Type: "reply", RequestID: "a1", Payload: json.RawMessage(`{"tab_id":"t9"}`)}))
	frame = readUntil(t, conn, resultFor("a1"))
	assert.Equal(t, map[string]any{"delivered": true}, frame["data"])

	require.NoError(t, conn.WriteJSON(ClientMessage{Type: "reply", RequestID: "a2"}))
	frame = readUntil(t, conn, resultFor("a2"))
	assert.Equal(t, map[string]any{"delivered": false}, frame["data"])

	env.replier.AssertExpectations(t)
}

func TestExitEvent(t *testing.T) {
	env := newTestEnv(t)
	conn := env.dial(t)

	require.NoError(t, env.manager.Spawn(terminal.SpawnRequest{ID: "short"}))
	require.NoError(t, env.manager.Write("short", []byte("exit 4\n")))

	frame := readUntil(t, conn, func(f map[string]any) bool { return f["name"] == "shell-exit-short" })
	assert.EqualValues(t, 4, frame["exit_code"])
}

func TestOriginCheck(t *testing.T) {
	env := newTestEnv(t)

	header := http.Header{}
	header.Set("Origin", "https://evil.example")
	_, resp, err := websocket.DefaultDialer.Dial(env.url, header)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	header.Set("Origin", "tauri://localhost")
	conn, _, err := websocket.DefaultDialer.Dial(env.url, header)
	require.NoError(t, err)
	_ = conn.Close()
}

func TestReplyWithoutControlPlane(t *testing.T) {
	h := NewHandler(nil, nil, nil, nil, nil)
	_, err := h.reply(ClientMessage{Type: "reply"})
	assert.Error(t, err)
}

func TestLaggingClientIsDisconnected(t *testing.T) {
	gin.SetMode(gin.TestMode)

	bus := eventbus.NewWithBuffer(1)
	router := gin.New()
	router.GET("/stream", NewHandler(nil, nil, bus, nil, nil).HandleConnection)
	srv := httptest.NewServer(router)
	t.Cleanup(func() {
		srv.Close()
		bus.Close()
	})

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/stream", nil)
	require.NoError(t, err)
	defer conn.Close()
	require.Eventually(t, func() bool { return bus.SubscriberCount() == 1 }, 5*time.Second, 10*time.Millisecond)

	for i := 0; i < 1000; i++ {
		bus.PublishOutput("flood", strings.Repeat("x", 512))
	}
	assert.Equal(t, int64(1), bus.Metrics().SubscribersEvicted)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	for {
		var frame map[string]any
		if err = conn.ReadJSON(&frame); err != nil {
			break
		}
		assert.Equal(t, "shell-output-flood", frame["name"])
	}
	assert.True(t, websocket.IsCloseError(err, websocket.CloseTryAgainLater), "got %v", err)
}
