package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/wsl-terminal/internal/domain/control"
)

type call struct {
	action  string
	payload json.RawMessage
}

type fakeSender struct {
	mu    sync.Mutex
	calls []call
	reply json.RawMessage
	err   error
}

func (f *fakeSender) Send(_ context.Context, action string, payload json.RawMessage) (json.RawMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call{action: action, payload: payload})
	if f.err != nil {
		return nil, f.err
	}
	if f.reply == nil {
		return json.RawMessage(`{}`), nil
	}
	return f.reply, nil
}

func (f *fakeSender) last(t *testing.T) call {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotEmpty(t, f.calls)
	return f.calls[len(f.calls)-1]
}

// roundTrip feeds one line and returns the decoded response object.
func roundTrip(t *testing.T, srv *Server, line string) map[string]any {
	t.Helper()
	resp := srv.HandleLine(context.Background(), []byte(line))
	require.NotNil(t, resp)

	encoded, err := codec.Marshal(resp)
	require.NoError(t, err)

	var out map[string]any
	require.NoError(t, json.Unmarshal(encoded, &out))
	return out
}

func toolText(t *testing.T, resp map[string]any) (string, bool) {
	t.Helper()
	result, ok := resp["result"].(map[string]any)
	require.True(t, ok, "expected a result, got %v", resp)
	content := result["content"].([]any)
	require.Len(t, content, 1)
	block := content[0].(map[string]any)
	assert.Equal(t, "text", block["type"])
	isError, _ := result["isError"].(bool)
	return block["text"].(string), isError
}

func errorCode(t *testing.T, resp map[string]any) float64 {
	t.Helper()
	rpcErr, ok := resp["error"].(map[string]any)
	require.True(t, ok, "expected an error, got %v", resp)
	return rpcErr["code"].(float64)
}

func TestInitialize(t *testing.T) {
	srv := NewServer(&fakeSender{}, nil)

	resp := roundTrip(t, srv, `{"jsonrpc":"2.0","id":1,"method":"initialize","params":{}}`)

	assert.Equal(t, "2.0", resp["jsonrpc"])
	assert.Equal(t, float64(1), resp["id"])
	result := resp["result"].(map[string]any)
	assert.Equal(t, "2024-11-05", result["protocolVersion"])
	assert.Equal(t, map[string]any{"tools": map[string]any{"listChanged": false}}, result["capabilities"])
	assert.Equal(t, map[string]any{"name": "wsl-terminal", "version": "0.4.0"}, result["serverInfo"])
}

func TestInitializedAndPing(t *testing.T) {
	srv := NewServer(&fakeSender{}, nil)

	resp := roundTrip(t, srv, `{"jsonrpc":"2.0","method":"initialized"}`)
	_, hasID := resp["id"]
	assert.False(t, hasID)
	assert.Equal(t, map[string]any{}, resp["result"])

	resp = roundTrip(t, srv, `{"jsonrpc":"2.0","id":"p1","method":"ping"}`)
	assert.Equal(t, "p1", resp["id"])
	assert.Equal(t, map[string]any{}, resp["result"])
}

func TestProtocolErrors(t *testing.T) {
	srv := NewServer(&fakeSender{}, nil)

	tests := []struct {
		name string
		line string
		code float64
	}{
		{"malformed json", `{"jsonrpc":`, CodeParseError},
		{"missing method", `{"jsonrpc":"2.0","id":2}`, CodeInvalidRequest},
		{"unknown method", `{"jsonrpc":"2.0","id":3,"method":"resources/list"}`, CodeMethodNotFound},
		{"call without params", `{"jsonrpc":"2.0","id":4,"method":"tools/call"}`, CodeInvalidParams},
		{"call without name", `{"jsonrpc":"2.0","id":5,"method":"tools/call","params":{"arguments":{}}}`, CodeInvalidParams},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := roundTrip(t, srv, tt.line)
			assert.Equal(t, tt.code, errorCode(t, resp))
		})
	}
}

func TestParseErrorHasNullID(t *testing.T) {
	srv := NewServer(&fakeSender{}, nil)

	resp := roundTrip(t, srv, `not json`)

	id, hasID := resp["id"]
	assert.True(t, hasID)
	assert.Nil(t, id)
	assert.Contains(t, resp["error"].(map[string]any)["message"], "Parse error")
}

func TestMethodNotFoundMessage(t *testing.T) {
	srv := NewServer(&fakeSender{}, nil)

	resp := roundTrip(t, srv, `{"jsonrpc":"2.0","id":1,"method":"bogus"}`)

	assert.Equal(t, "Method not found: bogus", resp["error"].(map[string]any)["message"])
}

func TestToolsList(t *testing.T) {
	srv := NewServer(&fakeSender{}, nil)

	resp := roundTrip(t, srv, `{"jsonrpc":"2.0","id":1,"method":"tools/list"}`)

	list := resp["result"].(map[string]any)["tools"].([]any)
	require.Len(t, list, 16)

	var names []string
	for _, item := range list {
		tool := item.(map[string]any)
		names = append(names, tool["name"].(string))
		assert.NotEmpty(t, tool["description"])
		schema := tool["inputSchema"].(map[string]any)
		assert.Equal(t, "object", schema["type"])
	}
	assert.Equal(t, []string{
		"open_tab", "close_tab", "focus_tab", "get_tabs", "run_command", "get_output",
		"set_theme", "get_themes", "add_ssh", "remove_ssh", "list_ssh", "connect_ssh",
		"get_state", "show_window", "hide_window", "split_pane",
	}, names)

	split := list[15].(map[string]any)["inputSchema"].(map[string]any)
	assert.Equal(t, []any{"tab_id", "direction"}, split["required"])
}

func TestUnknownToolIsToolError(t *testing.T) {
	sender := &fakeSender{}
	srv := NewServer(sender, nil)

	resp := roundTrip(t, srv, `{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":"format_disk","arguments":{}}}`)

	_, hasErr := resp["error"]
	assert.False(t, hasErr)
	text, isError := toolText(t, resp)
	assert.True(t, isError)
	assert.Equal(t, "Unknown tool: format_disk", text)
	assert.Empty(t, sender.calls)
}

func TestInvalidArguments(t *testing.T) {
	srv := NewServer(&fakeSender{}, nil)

	tests := []struct {
		name string
		tool string
		args string
	}{
		{"missing tab id", "close_tab", `{}`},
		{"wrong type", "focus_tab", `{"tab_id": 5}`},
		{"missing command", "run_command", `{"tab_id":"t1"}`},
		{"bad shell", "open_tab", `{"shell":"fish"}`},
		{"bad direction", "split_pane", `{"tab_id":"t1","direction":"diagonal"}`},
		{"missing ssh user", "add_ssh", `{"name":"box","host":"10.0.0.2"}`},
		{"port out of range", "add_ssh", `{"name":"box","host":"10.0.0.2","user":"root","port":70000}`},
		{"not an object", "set_theme", `["dracula"]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			line := `{"jsonrpc":"2.0","id":7,"method":"tools/call","params":{"name":"` + tt.tool + `","arguments":` + tt.args + `}}`
			resp := roundTrip(t, srv, line)
			assert.Equal(t, float64(CodeInvalidParams), errorCode(t, resp))
			assert.Contains(t, resp["error"].(map[string]any)["message"], "Invalid params")
		})
	}
}

func TestPayloadDefaults(t *testing.T) {
	sender := &fakeSender{}
	srv := NewServer(sender, nil)

	tests := []struct {
		tool    string
		args    string
		payload string
	}{
		{"open_tab", `{}`, `{"shell":"wsl"}`},
		{"open_tab", `{"shell":"cmd","cwd":"C:\\src"}`, `{"shell":"cmd","cwd":"C:\\src"}`},
		{"run_command", `{"tab_id":"t1","command":"ls"}`, `{"tab_id":"t1","command":"ls","wait_for_output":false,"timeout_ms":5000}`},
		{"get_output", `{"tab_id":"t1"}`, `{"tab_id":"t1","lines":100}`},
		{"add_ssh", `{"name":"box","host":"h","user":"u"}`, `{"name":"box","host":"h","port":22,"user":"u"}`},
		{"get_tabs", `{"ignored":true}`, `{}`},
		{"split_pane", `{"tab_id":"t1","direction":"vertical","extra":1}`, `{"tab_id":"t1","direction":"vertical","extra":1}`},
	}

	for _, tt := range tests {
		t.Run(tt.tool, func(t *testing.T) {
			line := `{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":"` + tt.tool + `","arguments":` + tt.args + `}}`
			roundTrip(t, srv, line)

			last := sender.last(t)
			assert.Equal(t, tt.tool, last.action)
			assert.JSONEq(t, tt.payload, string(last.payload))
		})
	}
}

func TestMissingArgumentsMeanEmptyObject(t *testing.T) {
	sender := &fakeSender{}
	srv := NewServer(sender, nil)

	resp := roundTrip(t, srv, `{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":"open_tab"}}`)

	text, isError := toolText(t, resp)
	assert.False(t, isError)
	assert.Equal(t, "Opened new wsl tab with ID: unknown", text)
}

func TestRendering(t *testing.T) {
	tests := []struct {
		name  string
		tool  string
		args  string
		reply string
		want  string
	}{
		{"open tab", "open_tab", `{"shell":"powershell"}`, `{"tab_id":"tab-9"}`, "Opened new powershell tab with ID: tab-9"},
		{"close tab", "close_tab", `{"tab_id":"t1"}`, `{"ok":true}`, "Closed tab: t1"},
		{"focus tab", "focus_tab", `{"tab_id":"t1"}`, `{}`, "Focused tab: t1"},
		{"fire and forget", "run_command", `{"tab_id":"t1","command":"ls"}`, `{"output":"x"}`, "Command sent to tab: t1"},
		{"wait for output", "run_command", `{"tab_id":"t1","command":"ls","wait_for_output":true}`, `{"output":"a\nb"}`, "a\nb"},
		{"output", "get_output", `{"tab_id":"t1","lines":5}`, `{"output":"tail"}`, "tail"},
		{"output missing", "get_output", `{"tab_id":"t1"}`, `{}`, ""},
		{"theme", "set_theme", `{"theme":"nord"}`, `{}`, "Theme changed to: nord"},
		{"add ssh", "add_ssh", `{"name":"box","host":"h","user":"u"}`, `{"id":"ssh-1"}`, "Added SSH connection 'box' with ID: ssh-1"},
		{"remove ssh", "remove_ssh", `{"id":"ssh-1"}`, `{}`, "Removed SSH connection: ssh-1"},
		{"connect ssh", "connect_ssh", `{"id":"ssh-1"}`, `{"tab_id":"tab-2"}`, "SSH connection opened in tab: tab-2"},
		{"show", "show_window", `{}`, `{}`, "Window shown"},
		{"hide", "hide_window", `{}`, `{}`, "Window hidden"},
		{"split", "split_pane", `{"tab_id":"t1","direction":"horizontal"}`, `{"pane_id":"p2"}`, "Pane split, new pane ID: p2"},
		{"pretty", "get_tabs", `{}`, `{"tabs":[{"id":"t1","active":true}]}`, "{\n  \"tabs\": [\n    {\n      \"active\": true,\n      \"id\": \"t1\"\n    }\n  ]\n}"},
		{"timeout rendered as reply", "open_tab", `{}`, `{"error":"Timeout or no response"}`, "Opened new wsl tab with ID: unknown"},
		{"timeout pretty", "get_state", `{}`, `{"error":"Timeout or no response"}`, "{\n  \"error\": \"Timeout or no response\"\n}"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := NewServer(&fakeSender{reply: json.RawMessage(tt.reply)}, nil)
			line := `{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":"` + tt.tool + `","arguments":` + tt.args + `}}`

			text, isError := toolText(t, roundTrip(t, srv, line))
			assert.False(t, isError)
			assert.Equal(t, tt.want, text)
		})
	}
}

func TestGetThemesIsLocal(t *testing.T) {
	sender := &fakeSender{}
	srv := NewServer(sender, nil)

	resp := roundTrip(t, srv, `{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":"get_themes","arguments":{}}}`)

	text, isError := toolText(t, resp)
	assert.False(t, isError)
	lines := strings.Split(text, "\n")
	assert.Len(t, lines, 32)
	assert.Equal(t, "catppuccin-mocha", lines[0])
	assert.Empty(t, sender.calls)
}

func TestTransportErrorMessages(t *testing.T) {
	tests := []struct {
		stage string
		want  string
	}{
		{control.StageConnect, "Connection failed: boom. Is WSL Terminal running?"},
		{control.StageWrite, "Write failed: boom"},
		{control.StageRead, "Read failed: boom"},
		{control.StageParse, "Parse response failed: boom"},
	}

	for _, tt := range tests {
		t.Run(tt.stage, func(t *testing.T) {
			err := &control.TransportError{Stage: tt.stage, Err: assert.AnError}
			got := transportMessage(err)
			assert.Equal(t, strings.ReplaceAll(tt.want, "boom", assert.AnError.Error()), got)
		})
	}
}

// Every listed tool, called with minimal valid arguments while nothing is
// listening, must come back as a tool error rather than end the loop.
func TestEveryToolSurvivesUnreachableUI(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	srv := NewServer(control.NewClient(control.Endpoint{Network: "tcp", Address: addr}), nil)

	minimal := map[string]string{
		"close_tab":   `{"tab_id":"t1"}`,
		"focus_tab":   `{"tab_id":"t1"}`,
		"run_command": `{"tab_id":"t1","command":"ls"}`,
		"get_output":  `{"tab_id":"t1"}`,
		"set_theme":   `{"theme":"nord"}`,
		"add_ssh":     `{"name":"n","host":"h","user":"u"}`,
		"remove_ssh":  `{"id":"s1"}`,
		"connect_ssh": `{"id":"s1"}`,
		"split_pane":  `{"tab_id":"t1","direction":"vertical"}`,
	}

	var in bytes.Buffer
	for i, tool := range Catalog() {
		args, ok := minimal[tool.Name]
		if !ok {
			args = `{}`
		}
		id, _ := json.Marshal(i)
		in.WriteString(`{"jsonrpc":"2.0","id":` + string(id) + `,"method":"tools/call","params":{"name":"` + tool.Name + `","arguments":` + args + "}}\n")
	}

	var out bytes.Buffer
	require.NoError(t, srv.Serve(context.Background(), &in, &out))

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 16)
	for i, line := range lines {
		var resp map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &resp))
		text, isError := toolText(t, resp)

		if Catalog()[i].Name == "get_themes" {
			assert.False(t, isError)
			continue
		}
		assert.True(t, isError, "tool %s", Catalog()[i].Name)
		assert.Contains(t, text, "Is WSL Terminal running?")
	}
}

func TestServeContinuesAfterBadLines(t *testing.T) {
	srv := NewServer(&fakeSender{}, nil)
	in := strings.NewReader(strings.Join([]string{
		`{"jsonrpc":"2.0","id":1,"method":"initialize"}`,
		``,
		`garbage`,
		`{"jsonrpc":"2.0","id":2,"method":"nope"}`,
		`{"jsonrpc":"2.0","id":3,"method":"ping"}`,
	}, "\n"))

	var out bytes.Buffer
	require.NoError(t, srv.Serve(context.Background(), in, &out))

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 4)
	assert.Contains(t, lines[0], `"protocolVersion":"2024-11-05"`)
	assert.Contains(t, lines[1], `-32700`)
	assert.Contains(t, lines[2], `-32601`)
	assert.JSONEq(t, `{"jsonrpc":"2.0","id":3,"result":{}}`, lines[3])
}

func TestServeStopsOnCancel(t *testing.T) {
	srv := NewServer(&fakeSender{}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := srv.Serve(ctx, strings.NewReader(`{"jsonrpc":"2.0","id":1,"method":"ping"}`+"\n"), &bytes.Buffer{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestServeReturnsOnCancelWhileIdle(t *testing.T) {
	srv := NewServer(&fakeSender{}, nil)
	in, writer := io.Pipe()
	defer writer.Close()

	ctx, cancel := context.WithCancel(context.Background())
	served := make(chan error, 1)
	go func() { served <- srv.Serve(ctx, in, &bytes.Buffer{}) }()

	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case err := <-served:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("Serve kept waiting on idle input after cancel")
	}
}

func TestInvalidUTF8LineIsSkipped(t *testing.T) {
	srv := NewServer(&fakeSender{}, nil)
	in := strings.NewReader("{\"jsonrpc\":\"2.0\",\"id\":1,\"method\":\"\xff\"}\n" +
		`{"jsonrpc":"2.0","id":2,"method":"ping"}` + "\n")

	var out bytes.Buffer
	require.NoError(t, srv.Serve(context.Background(), in, &out))

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 1)
	assert.JSONEq(t, `{"jsonrpc":"2.0","id":2,"result":{}}`, lines[0])
}
