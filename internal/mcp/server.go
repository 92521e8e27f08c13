package mcp

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/wsl-terminal/internal/infrastructure/logging"
)

// Server runs the JSON-RPC loop over a reader/writer pair.
type Server struct {
	sender Sender
	logger *logging.Logger
}

// NewServer creates a front-end whose tool calls go through sender.
func NewServer(sender Sender, logger *logging.Logger) *Server {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Server{sender: sender, logger: logger}
}

// Serve reads one request per line from in and writes one response per line
// to out. It returns nil at end of input, or the first read/write error.
func (s *Server) Serve(ctx context.Context, in io.Reader, out io.Writer) error {
	s.logger.Info("MCP server starting", zap.String("version", Version))

	lines := make(chan inputLine)
	stop := make(chan struct{})
	defer close(stop)
	go readLines(in, lines, stop)

	writer := bufio.NewWriter(out)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		var next inputLine
		select {
		case <-ctx.Done():
			return ctx.Err()
		case next = <-lines:
		}

		if next.err != nil && !errors.Is(next.err, io.EOF) {
			return next.err
		}

		if resp := s.HandleLine(ctx, next.data); resp != nil {
			if err := s.write(writer, resp); err != nil {
				return err
			}
		}

		if next.err != nil {
			s.logger.Info("MCP input closed")
			return nil
		}
	}
}

type inputLine struct {
	data []byte
	err  error
}

// readLines feeds lines from in until a read error or until stop closes. A
// read blocked on in outlives Serve; its result is discarded.
func readLines(in io.Reader, lines chan<- inputLine, stop <-chan struct{}) {
	reader := bufio.NewReader(in)
	for {
		data, err := reader.ReadBytes('\n')
		select {
		case lines <- inputLine{data: data, err: err}:
		case <-stop:
			return
		}
		if err != nil {
			return
		}
	}
}

func (s *Server) write(w *bufio.Writer, resp *Response) error {
	encoded, err := codec.Marshal(resp)
	if err != nil {
		s.logger.Error("Failed to encode response", zap.Error(err))
		encoded, _ = codec.Marshal(failure(resp.ID, newRPCError(CodeInvalidRequest, "Internal encoding error: %v", err)))
	}
	if _, err := w.Write(encoded); err != nil {
		return err
	}
	if err := w.WriteByte('\n'); err != nil {
		return err
	}
	return w.Flush()
}

// HandleLine processes one input line. Blank lines produce no response.
func (s *Server) HandleLine(ctx context.Context, line []byte) *Response {
	line = bytes.TrimSpace(line)
	if len(line) == 0 {
		return nil
	}
	if !utf8.Valid(line) {
		s.logger.Warn("Skipping input line that is not valid UTF-8", zap.Int("bytes", len(line)))
		return nil
	}

	var req Request
	if err := codec.Unmarshal(line, &req); err != nil {
		s.logger.Warn("Parse error", zap.Error(err))
		return failure(json.RawMessage("null"), newRPCError(CodeParseError, "Parse error: %v", err))
	}
	if req.Method == "" {
		return failure(req.ID, newRPCError(CodeInvalidRequest, "Invalid request: missing method"))
	}

	s.logger.Debug("Handling method", zap.String("method", req.Method))
	return s.handle(ctx, &req)
}

func (s *Server) handle(ctx context.Context, req *Request) *Response {
	switch req.Method {
	case "initialize":
		return success(req.ID, InitializeResult{
			ProtocolVersion: ProtocolVersion,
			Capabilities:    Capabilities{Tools: &ToolsCapability{ListChanged: false}},
			ServerInfo:      ServerInfo{Name: ServerName, Version: Version},
		})
	case "initialized":
		s.logger.Info("Client initialized")
		return success(nil, emptyResult{})
	case "tools/list":
		return success(req.ID, ListToolsResult{Tools: Catalog()})
	case "tools/call":
		return s.handleCall(ctx, req)
	case "ping":
		return success(req.ID, emptyResult{})
	default:
		return failure(req.ID, newRPCError(CodeMethodNotFound, "Method not found: %s", req.Method))
	}
}

func (s *Server) handleCall(ctx context.Context, req *Request) *Response {
	var params CallToolParams
	if isAbsent(req.Params) {
		return failure(req.ID, newRPCError(CodeInvalidParams, "Invalid params: missing tool name"))
	}
	if err := codec.Unmarshal(req.Params, &params); err != nil {
		return failure(req.ID, newRPCError(CodeInvalidParams, "Invalid params: %v", err))
	}
	if params.Name == "" {
		return failure(req.ID, newRPCError(CodeInvalidParams, "Invalid params: missing tool name"))
	}

	s.logger.Debug("Executing tool", zap.String("tool", params.Name))

	result, rpcErr := s.callTool(ctx, params.Name, params.Arguments)
	if rpcErr != nil {
		return failure(req.ID, rpcErr)
	}
	if result.IsError {
		s.logger.Warn("Tool failed", zap.String("tool", params.Name))
	}
	return success(req.ID, result)
}
