package mcp

import (
	"encoding/json"
	"fmt"

	"github.com/bytedance/sonic"
)

const (
	// ProtocolVersion is the MCP revision this server speaks.
	ProtocolVersion = "2024-11-05"
	// ServerName identifies the server in initialize results.
	ServerName = "wsl-terminal"
	// Version is the program version reported to clients.
	Version = "0.4.0"

	jsonrpcVersion = "2.0"
)

// JSON-RPC error codes.
const (
	CodeParseError     = -32700
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
)

// codec sorts object keys and keeps numbers exact when re-rendering replies.
var codec = sonic.Config{
	SortMapKeys:      true,
	UseNumber:        true,
	CompactMarshaler: true,
	ValidateString:   true,
}.Froze()

// Request is an incoming JSON-RPC message.
type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// Response is an outgoing JSON-RPC message. A nil ID is omitted.
type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Result  any             `json:"result,omitempty"`
	Error   *RPCError       `json:"error,omitempty"`
}

// RPCError is a protocol-level failure reported with a JSON-RPC code.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("jsonrpc %d: %s", e.Code, e.Message)
}

func newRPCError(code int, format string, args ...any) *RPCError {
	return &RPCError{Code: code, Message: fmt.Sprintf(format, args...)}
}

func success(id json.RawMessage, result any) *Response {
	return &Response{JSONRPC: jsonrpcVersion, ID: id, Result: result}
}

func failure(id json.RawMessage, err *RPCError) *Response {
	return &Response{JSONRPC: jsonrpcVersion, ID: id, Error: err}
}

// InitializeResult answers initialize.
type InitializeResult struct {
	ProtocolVersion string       `json:"protocolVersion"`
	Capabilities    Capabilities `json:"capabilities"`
	ServerInfo      ServerInfo   `json:"serverInfo"`
}

// Capabilities advertises tool support without list-change notifications.
type Capabilities struct {
	Tools *ToolsCapability `json:"tools,omitempty"`
}

// ToolsCapability describes tool support.
type ToolsCapability struct {
	ListChanged bool `json:"listChanged"`
}

// ServerInfo names the server.
type ServerInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// CallToolParams are the params of tools/call.
type CallToolParams struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments,omitempty"`
}

type emptyResult struct{}
