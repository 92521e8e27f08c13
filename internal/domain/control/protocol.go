package control

import (
	"bytes"
	"encoding/json"
	"errors"

	"github.com/bytedance/sonic"
)

// codec matches encoding/json output, including compaction of raw values,
// so every reply fits on one line.
var codec = sonic.ConfigStd

// TimeoutMessage is the error text of the synthesized timeout reply.
const TimeoutMessage = "Timeout or no response"

// TimeoutReply is written when the UI does not answer in time.
var TimeoutReply = json.RawMessage(`{"error":"` + TimeoutMessage + `"}`)

// ErrTimeout marks a round trip that ended without a UI reply.
var ErrTimeout = errors.New("control: no reply before timeout")

var emptyPayload = json.RawMessage(`{}`)

// Request is one control-plane request line.
type Request struct {
	Action  string          `json:"action"`
	Payload json.RawMessage `json:"payload"`
}

// decodeRequest parses one line. Lines that are not JSON are rejected; a
// missing or non-string action becomes "", a missing payload becomes {}.
func decodeRequest(line []byte) (Request, bool) {
	var fields map[string]json.RawMessage
	if err := codec.Unmarshal(line, &fields); err != nil {
		if !codec.Valid(line) {
			return Request{}, false
		}
		fields = nil
	}

	var req Request
	if raw, ok := fields["action"]; ok {
		_ = codec.Unmarshal(raw, &req.Action)
	}
	req.Payload = emptyPayload
	if raw, ok := fields["payload"]; ok && !bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		req.Payload = raw
	}
	return req, true
}

// encodeLine renders v as one compact JSON line.
func encodeLine(v any) ([]byte, error) {
	out, err := codec.Marshal(v)
	if err != nil {
		return nil, err
	}
	return append(out, '\n'), nil
}

// IsTimeout reports whether a reply is the synthesized timeout payload.
func IsTimeout(reply json.RawMessage) bool {
	var body struct {
		Error string `json:"error"`
	}
	if err := codec.Unmarshal(reply, &body); err != nil {
		return false
	}
	return body.Error == TimeoutMessage
}
