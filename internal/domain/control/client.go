package control

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"time"
)

// Transport failure stages, in the order a round trip goes through them.
const (
	StageConnect = "connect"
	StageWrite   = "write"
	StageRead    = "read"
	StageParse   = "parse"
)

// TransportError reports a control round trip that failed before a reply
// could be decoded.
type TransportError struct {
	Stage string
	Err   error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("control %s: %v", e.Stage, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// Client performs one-shot round trips against a control server.
type Client struct {
	endpoint Endpoint
	dialer   net.Dialer
	// ReadTimeout bounds the wait for a reply line; zero means no deadline.
	ReadTimeout time.Duration
}

// NewClient creates a client for endpoint.
func NewClient(endpoint Endpoint) *Client {
	if endpoint.Network == "" {
		endpoint = DefaultEndpoint()
	}
	return &Client{
		endpoint: endpoint,
		dialer:   net.Dialer{Timeout: 5 * time.Second},
	}
}

// Endpoint returns the address the client dials.
func (c *Client) Endpoint() Endpoint {
	return c.endpoint
}

// Send connects, writes one request line, reads one reply line and
// disconnects. Every failure is a *TransportError.
func (c *Client) Send(ctx context.Context, action string, payload json.RawMessage) (json.RawMessage, error) {
	if len(payload) == 0 {
		payload = emptyPayload
	}
	line, err := encodeLine(Request{Action: action, Payload: payload})
	if err != nil {
		return nil, &TransportError{Stage: StageWrite, Err: err}
	}

	conn, err := c.dialer.DialContext(ctx, c.endpoint.Network, c.endpoint.Address)
	if err != nil {
		return nil, &TransportError{Stage: StageConnect, Err: err}
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	if _, err := conn.Write(line); err != nil {
		return nil, &TransportError{Stage: StageWrite, Err: err}
	}

	if c.ReadTimeout > 0 {
		_ = conn.SetReadDeadline(time.Now().Add(c.ReadTimeout))
	}
	// a connection closed before any reply surfaces as a parse failure
	reply, err := bufio.NewReader(conn).ReadBytes('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, &TransportError{Stage: StageRead, Err: err}
	}

	var value json.RawMessage
	if err := codec.Unmarshal(reply, &value); err != nil {
		return nil, &TransportError{Stage: StageParse, Err: err}
	}
	return value, nil
}
