// Package ws provides the UI's WebSocket stream.
//
// One connection carries both directions: bus events are pushed to the UI
// as they happen, and the UI issues session commands and control-plane
// replies on the same socket.
//
// Message Types (Client → Server):
//   - spawn: Start a session (id optional)
//   - write: Send input to a session
//   - resize: Change a session's size
//   - kill: Terminate a session
//   - read_buffer: Fetch a session's retained output
//   - reply: Answer the pending control request
//   - ping: Keep-alive ping
//
// Message Types (Server → Client):
//   - event: shell-output-<id>, shell-exit-<id> or mcp-action
//   - result: Outcome of a client command, matched by request_id
//   - pong: Keep-alive answer
//   - error: Unreadable or unknown message
//
// A client that cannot keep up with the event stream is disconnected with
// close code 1013. It should reconnect and reload session output with
// read_buffer.
//
// Example Usage:
//
//	handler := ws.NewHandler(manager, controlServer, bus, metrics, logger)
//	router.GET("/stream", handler.HandleConnection)
package ws
