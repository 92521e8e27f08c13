package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/gin-gonic/gin/binding"
	mcpgo "github.com/mark3labs/mcp-go/mcp"

	"github.com/GriffinCanCode/wsl-terminal/internal/domain/control"
	"github.com/GriffinCanCode/wsl-terminal/internal/domain/theme"
)

// Sender performs one control-plane round trip.
type Sender interface {
	Send(ctx context.Context, action string, payload json.RawMessage) (json.RawMessage, error)
}

// OpenTabArgs are the arguments of open_tab.
type OpenTabArgs struct {
	Shell  string `json:"shell" binding:"oneof=wsl powershell cmd"`
	Distro string `json:"distro,omitempty"`
	Cwd    string `json:"cwd,omitempty"`
	Title  string `json:"title,omitempty"`
}

// TabArgs are the arguments of close_tab and focus_tab.
type TabArgs struct {
	TabID string `json:"tab_id" binding:"required"`
}

// RunCommandArgs are the arguments of run_command.
type RunCommandArgs struct {
	TabID         string `json:"tab_id" binding:"required"`
	Command       string `json:"command" binding:"required"`
	WaitForOutput bool   `json:"wait_for_output"`
	TimeoutMs     uint64 `json:"timeout_ms"`
}

// GetOutputArgs are the arguments of get_output.
type GetOutputArgs struct {
	TabID string `json:"tab_id" binding:"required"`
	Lines uint   `json:"lines"`
}

// SetThemeArgs are the arguments of set_theme.
type SetThemeArgs struct {
	Theme string `json:"theme" binding:"required"`
}

// AddSSHArgs are the arguments of add_ssh.
type AddSSHArgs struct {
	Name string `json:"name" binding:"required"`
	Host string `json:"host" binding:"required"`
	Port uint16 `json:"port"`
	User string `json:"user" binding:"required"`
}

// SSHRefArgs are the arguments of remove_ssh and connect_ssh.
type SSHRefArgs struct {
	ID string `json:"id" binding:"required"`
}

// SplitPaneArgs are the arguments of split_pane.
type SplitPaneArgs struct {
	TabID     string `json:"tab_id" binding:"required"`
	Direction string `json:"direction" binding:"required,oneof=horizontal vertical"`
	Shell     string `json:"shell" binding:"oneof=wsl powershell cmd"`
}

// tool binds a catalog entry to its arguments and reply rendering.
type tool struct {
	// newArgs returns a pointer to the argument struct with defaults set;
	// nil means the tool takes no arguments.
	newArgs func() any
	// rawPayload forwards the caller's arguments instead of the decoded ones.
	rawPayload bool
	// local answers without a round trip.
	local  func() string
	render func(args any, reply json.RawMessage) string
}

var tools = map[string]tool{
	"open_tab": {
		newArgs: func() any { return &OpenTabArgs{Shell: "wsl"} },
		render: func(args any, reply json.RawMessage) string {
			return fmt.Sprintf("Opened new %s tab with ID: %s", args.(*OpenTabArgs).Shell, stringField(reply, "tab_id", "unknown"))
		},
	},
	"close_tab": {
		newArgs: func() any { return &TabArgs{} },
		render: func(args any, _ json.RawMessage) string {
			return "Closed tab: " + args.(*TabArgs).TabID
		},
	},
	"focus_tab": {
		newArgs: func() any { return &TabArgs{} },
		render: func(args any, _ json.RawMessage) string {
			return "Focused tab: " + args.(*TabArgs).TabID
		},
	},
	"get_tabs": {render: renderPretty},
	"run_command": {
		newArgs: func() any { return &RunCommandArgs{TimeoutMs: 5000} },
		render: func(args any, reply json.RawMessage) string {
			a := args.(*RunCommandArgs)
			if a.WaitForOutput {
				return stringField(reply, "output", "")
			}
			return "Command sent to tab: " + a.TabID
		},
	},
	"get_output": {
		newArgs: func() any { return &GetOutputArgs{Lines: 100} },
		render: func(_ any, reply json.RawMessage) string {
			return stringField(reply, "output", "")
		},
	},
	"set_theme": {
		newArgs: func() any { return &SetThemeArgs{} },
		render: func(args any, _ json.RawMessage) string {
			return "Theme changed to: " + args.(*SetThemeArgs).Theme
		},
	},
	"get_themes": {
		local: func() string { return strings.Join(theme.Names(), "\n") },
	},
	"add_ssh": {
		newArgs: func() any { return &AddSSHArgs{Port: 22} },
		render: func(args any, reply json.RawMessage) string {
			return fmt.Sprintf("Added SSH connection '%s' with ID: %s", args.(*AddSSHArgs).Name, stringField(reply, "id", "unknown"))
		},
	},
	"remove_ssh": {
		newArgs: func() any { return &SSHRefArgs{} },
		render: func(args any, _ json.RawMessage) string {
			return "Removed SSH connection: " + args.(*SSHRefArgs).ID
		},
	},
	"list_ssh": {render: renderPretty},
	"connect_ssh": {
		newArgs: func() any { return &SSHRefArgs{} },
		render: func(_ any, reply json.RawMessage) string {
			return "SSH connection opened in tab: " + stringField(reply, "tab_id", "unknown")
		},
	},
	"get_state":   {render: renderPretty},
	"show_window": {render: func(any, json.RawMessage) string { return "Window shown" }},
	"hide_window": {render: func(any, json.RawMessage) string { return "Window hidden" }},
	"split_pane": {
		newArgs:    func() any { return &SplitPaneArgs{Shell: "wsl"} },
		rawPayload: true,
		render: func(_ any, reply json.RawMessage) string {
			return "Pane split, new pane ID: " + stringField(reply, "pane_id", "unknown")
		},
	},
}

// callTool validates arguments and performs the tool's round trip. Only
// argument errors are returned; every other failure is a tool result.
func (s *Server) callTool(ctx context.Context, name string, rawArgs json.RawMessage) (*mcpgo.CallToolResult, *RPCError) {
	t, ok := tools[name]
	if !ok {
		return mcpgo.NewToolResultError("Unknown tool: " + name), nil
	}
	if t.local != nil {
		return mcpgo.NewToolResultText(t.local()), nil
	}

	if isAbsent(rawArgs) {
		rawArgs = json.RawMessage(`{}`)
	}

	var args any
	payload := json.RawMessage(`{}`)
	if t.newArgs != nil {
		args = t.newArgs()
		if err := decodeArgs(rawArgs, args); err != nil {
			return nil, newRPCError(CodeInvalidParams, "Invalid params: %v", err)
		}
		if t.rawPayload {
			payload = rawArgs
		} else {
			encoded, err := codec.Marshal(args)
			if err != nil {
				return nil, newRPCError(CodeInvalidParams, "Invalid params: %v", err)
			}
			payload = encoded
		}
	}

	reply, err := s.sender.Send(ctx, name, payload)
	if err != nil {
		return mcpgo.NewToolResultError(transportMessage(err)), nil
	}
	return mcpgo.NewToolResultText(t.render(args, reply)), nil
}

func decodeArgs(raw json.RawMessage, args any) error {
	if err := codec.Unmarshal(raw, args); err != nil {
		return err
	}
	if binding.Validator == nil {
		return nil
	}
	return binding.Validator.ValidateStruct(args)
}

func isAbsent(raw json.RawMessage) bool {
	trimmed := strings.TrimSpace(string(raw))
	return trimmed == "" || trimmed == "null"
}

// transportMessage renders a failed round trip for the client.
func transportMessage(err error) string {
	var terr *control.TransportError
	if !errors.As(err, &terr) {
		return err.Error()
	}
	switch terr.Stage {
	case control.StageConnect:
		return fmt.Sprintf("Connection failed: %v. Is WSL Terminal running?", terr.Err)
	case control.StageWrite:
		return fmt.Sprintf("Write failed: %v", terr.Err)
	case control.StageRead:
		return fmt.Sprintf("Read failed: %v", terr.Err)
	default:
		return fmt.Sprintf("Parse response failed: %v", terr.Err)
	}
}

// stringField returns reply[key] when reply is an object holding a string
// there, else fallback.
func stringField(reply json.RawMessage, key, fallback string) string {
	var fields map[string]json.RawMessage
	if err := codec.Unmarshal(reply, &fields); err != nil {
		return fallback
	}
	raw, ok := fields[key]
	if !ok {
		return fallback
	}
	var s string
	if err := codec.Unmarshal(raw, &s); err != nil {
		return fallback
	}
	return s
}

// renderPretty indents the reply with sorted keys.
func renderPretty(_ any, reply json.RawMessage) string {
	var v any
	if err := codec.Unmarshal(reply, &v); err != nil {
		return ""
	}
	out, err := codec.MarshalIndent(v, "", "  ")
	if err != nil {
		return ""
	}
	return string(out)
}
