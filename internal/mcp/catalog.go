package mcp

import (
	"encoding/json"

	mcpgo "github.com/mark3labs/mcp-go/mcp"
)

const emptySchema = `{"type": "object", "properties": {}}`

// definitions is the static tool catalog in listing order.
var definitions = []struct {
	name        string
	description string
	schema      string
}{
	{
		name:        "open_tab",
		description: "Open a new terminal tab with specified shell (wsl, powershell, cmd)",
		schema: `{
			"type": "object",
			"properties": {
				"shell": {
					"type": "string",
					"description": "Shell type: wsl, powershell, or cmd",
					"enum": ["wsl", "powershell", "cmd"],
					"default": "wsl"
				},
				"distro": {"type": "string", "description": "WSL distribution name (only for wsl shell)"},
				"cwd": {"type": "string", "description": "Working directory to start in"},
				"title": {"type": "string", "description": "Custom tab title"}
			}
		}`,
	},
	{
		name:        "close_tab",
		description: "Close a terminal tab by its ID",
		schema: `{
			"type": "object",
			"properties": {
				"tab_id": {"type": "string", "description": "The tab ID to close"}
			},
			"required": ["tab_id"]
		}`,
	},
	{
		name:        "focus_tab",
		description: "Focus/activate a specific tab",
		schema: `{
			"type": "object",
			"properties": {
				"tab_id": {"type": "string", "description": "The tab ID to focus"}
			},
			"required": ["tab_id"]
		}`,
	},
	{
		name:        "get_tabs",
		description: "List all open tabs with their info (id, title, shell, active state)",
		schema:      emptySchema,
	},
	{
		name:        "run_command",
		description: "Execute a command in a specific terminal tab",
		schema: `{
			"type": "object",
			"properties": {
				"tab_id": {"type": "string", "description": "The tab ID to run command in"},
				"command": {"type": "string", "description": "The command to execute"},
				"wait_for_output": {"type": "boolean", "description": "Wait and return command output", "default": false},
				"timeout_ms": {"type": "integer", "description": "Timeout in milliseconds when waiting for output", "default": 5000}
			},
			"required": ["tab_id", "command"]
		}`,
	},
	{
		name:        "get_output",
		description: "Get recent output from a terminal tab",
		schema: `{
			"type": "object",
			"properties": {
				"tab_id": {"type": "string", "description": "The tab ID to get output from"},
				"lines": {"type": "integer", "description": "Number of lines to retrieve", "default": 100}
			},
			"required": ["tab_id"]
		}`,
	},
	{
		name:        "set_theme",
		description: "Change the terminal theme",
		schema: `{
			"type": "object",
			"properties": {
				"theme": {"type": "string", "description": "Theme name (catppuccin-mocha, dracula, nord, etc.)"}
			},
			"required": ["theme"]
		}`,
	},
	{
		name:        "get_themes",
		description: "List all available themes",
		schema:      emptySchema,
	},
	{
		name:        "add_ssh",
		description: "Add a new SSH connection",
		schema: `{
			"type": "object",
			"properties": {
				"name": {"type": "string", "description": "Display name for the connection"},
				"host": {"type": "string", "description": "SSH host address"},
				"port": {"type": "integer", "description": "SSH port", "default": 22},
				"user": {"type": "string", "description": "SSH username"}
			},
			"required": ["name", "host", "user"]
		}`,
	},
	{
		name:        "remove_ssh",
		description: "Remove an SSH connection",
		schema: `{
			"type": "object",
			"properties": {
				"id": {"type": "string", "description": "SSH connection ID to remove"}
			},
			"required": ["id"]
		}`,
	},
	{
		name:        "list_ssh",
		description: "List all saved SSH connections",
		schema:      emptySchema,
	},
	{
		name:        "connect_ssh",
		description: "Open a new tab and connect via SSH",
		schema: `{
			"type": "object",
			"properties": {
				"id": {"type": "string", "description": "SSH connection ID to connect to"}
			},
			"required": ["id"]
		}`,
	},
	{
		name:        "get_state",
		description: "Get complete app state (tabs, theme, SSH connections)",
		schema:      emptySchema,
	},
	{
		name:        "show_window",
		description: "Show and focus the terminal window",
		schema:      emptySchema,
	},
	{
		name:        "hide_window",
		description: "Hide the terminal window",
		schema:      emptySchema,
	},
	{
		name:        "split_pane",
		description: "Split the current pane horizontally or vertically",
		schema: `{
			"type": "object",
			"properties": {
				"tab_id": {"type": "string", "description": "The tab ID to split"},
				"direction": {"type": "string", "description": "Split direction", "enum": ["horizontal", "vertical"]},
				"shell": {
					"type": "string",
					"description": "Shell for new pane",
					"enum": ["wsl", "powershell", "cmd"],
					"default": "wsl"
				}
			},
			"required": ["tab_id", "direction"]
		}`,
	},
}

// Catalog returns the tool definitions advertised by tools/list.
func Catalog() []mcpgo.Tool {
	list := make([]mcpgo.Tool, 0, len(definitions))
	for _, d := range definitions {
		list = append(list, mcpgo.NewToolWithRawSchema(d.name, d.description, json.RawMessage(d.schema)))
	}
	return list
}

// ListToolsResult answers tools/list.
type ListToolsResult struct {
	Tools []mcpgo.Tool `json:"tools"`
}
