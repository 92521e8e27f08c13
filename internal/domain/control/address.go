package control

import (
	"net"
	"os"
	"path/filepath"
	"runtime"
)

const (
	// DefaultTCPAddress is the loopback endpoint used on Windows.
	DefaultTCPAddress = "127.0.0.1:45892"
	// SocketName is the unix socket file name used elsewhere.
	SocketName = "wsl-terminal.sock"
)

// Endpoint is a network/address pair accepted by net.Listen and net.Dial.
type Endpoint struct {
	Network string
	Address string
}

func (e Endpoint) String() string {
	return e.Network + "://" + e.Address
}

// IsUnix reports whether the endpoint is a filesystem socket.
func (e Endpoint) IsUnix() bool {
	return e.Network == "unix"
}

// DefaultEndpoint returns the well-known control address for this platform.
func DefaultEndpoint() Endpoint {
	return defaultEndpoint(runtime.GOOS, os.Getenv("XDG_RUNTIME_DIR"))
}

func defaultEndpoint(goos, runtimeDir string) Endpoint {
	if goos == "windows" {
		return Endpoint{Network: "tcp", Address: DefaultTCPAddress}
	}
	if runtimeDir == "" {
		runtimeDir = "/tmp"
	}
	return Endpoint{Network: "unix", Address: filepath.Join(runtimeDir, SocketName)}
}

// ResolveEndpoint fills unset parts of a configured endpoint from the
// platform default.
func ResolveEndpoint(network, address string) Endpoint {
	def := DefaultEndpoint()
	switch {
	case network == "" && address == "":
		return def
	case network == "":
		// a host:port address means tcp, anything else is a socket path
		if _, _, err := net.SplitHostPort(address); err == nil {
			return Endpoint{Network: "tcp", Address: address}
		}
		return Endpoint{Network: "unix", Address: address}
	case address == "":
		if network == def.Network {
			return def
		}
		if network == "tcp" {
			return Endpoint{Network: "tcp", Address: DefaultTCPAddress}
		}
		return defaultEndpoint("linux", os.Getenv("XDG_RUNTIME_DIR"))
	default:
		return Endpoint{Network: network, Address: address}
	}
}
