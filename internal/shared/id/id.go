// Package id provides ID generation for terminal sessions and requests.
//
// IDs are ULIDs with a short type prefix:
//   - Lexicographic sortability: newer tabs and requests sort last
//   - Prefixed types: tab_*, req_*, ctl_* make logs readable
//   - Type safety: separate string types prevent mixing a tab with a request
package id

import (
	"crypto/rand"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// TabID identifies a terminal session created without a caller-supplied id
type TabID string

// RequestID identifies an HTTP request or trace span
type RequestID string

// ControlID identifies one control-plane round trip in logs
type ControlID string

const (
	TabPrefix     = "tab"
	RequestPrefix = "req"
	ControlPrefix = "ctl"
)

// Generator generates ULIDs with optional prefixes
type Generator struct {
	entropy   io.Reader
	entropyMu sync.Mutex
}

var (
	defaultGenerator *Generator
	once             sync.Once
)

// Default returns the singleton generator instance
func Default() *Generator {
	once.Do(func() {
		defaultGenerator = NewGenerator()
	})
	return defaultGenerator
}

// NewGenerator creates a new ULID generator backed by crypto/rand
func NewGenerator() *Generator {
	return &Generator{entropy: ulid.Monotonic(rand.Reader, 0)}
}

// Generate creates a new ULID
func (g *Generator) Generate() ulid.ULID {
	g.entropyMu.Lock()
	defer g.entropyMu.Unlock()

	return ulid.MustNew(ulid.Timestamp(time.Now()), g.entropy)
}

// GenerateString creates a new ULID as a string
func (g *Generator) GenerateString() string {
	return g.Generate().String()
}

// GenerateWithPrefix creates a prefixed ULID string
func (g *Generator) GenerateWithPrefix(prefix string) string {
	return fmt.Sprintf("%s_%s", prefix, g.GenerateString())
}

// NewTabID generates a new tab ID
func NewTabID() TabID {
	return TabID(Default().GenerateWithPrefix(TabPrefix))
}

// NewRequestID generates a new request ID
func NewRequestID() RequestID {
	return RequestID(Default().GenerateWithPrefix(RequestPrefix))
}

// NewControlID generates a new control round-trip ID
func NewControlID() ControlID {
	return ControlID(Default().GenerateWithPrefix(ControlPrefix))
}

func (id TabID) String() string     { return string(id) }
func (id RequestID) String() string { return string(id) }
func (id ControlID) String() string { return string(id) }

// IsValid checks if an ID string is a valid ULID, with or without a prefix.
// The tracing middleware uses it to vet inbound trace headers.
func IsValid(id string) bool {
	_, err := Parse(id)
	return err == nil
}

// Parse parses a ULID string, stripping a known type prefix if present
func Parse(id string) (ulid.ULID, error) {
	if i := strings.LastIndexByte(id, '_'); i >= 0 {
		id = id[i+1:]
	}
	return ulid.Parse(id)
}
