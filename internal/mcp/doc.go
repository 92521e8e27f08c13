// Package mcp implements the tool protocol front-end: JSON-RPC 2.0 over
// line-delimited stdio, exposing a fixed catalog of terminal tools to an
// automation client.
//
// Every tool call except get_themes becomes exactly one control-plane round
// trip to the running UI process. Transport failures never end the loop;
// they come back to the client as tool results flagged isError.
//
// Methods:
//   - initialize: protocol version, capabilities and server info
//   - initialized: acknowledged with an empty result
//   - tools/list: the static catalog
//   - tools/call: argument validation, then the round trip
//   - ping: empty result
package mcp
