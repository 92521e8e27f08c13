package terminal

import (
	"errors"
	"io"
	"os"
	"strings"

	"go.uber.org/zap"
)

const (
	// ReadChunkSize is the size of a single pty read.
	ReadChunkSize = 4096

	pumpQueueLen = 64
)

// startPump launches the reader and publisher goroutines for s.
func (m *Manager) startPump(s *Session) {
	chunks := make(chan []byte, pumpQueueLen)
	m.metrics.IncReaders()
	go m.readLoop(s, chunks)
	go m.publishLoop(s, chunks)
}

// readLoop drains the pty master until end of stream or a read error.
// It never retries; the session stays registered until killed.
func (m *Manager) readLoop(s *Session, out chan<- []byte) {
	defer close(out)
	defer m.metrics.DecReaders()

	buf := make([]byte, ReadChunkSize)
	for {
		n, err := s.ptmx.Read(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			out <- chunk
		}
		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, os.ErrClosed) {
				m.logger.Session(s.ID).Debug("Reader stopped",
					zap.Error(newError(ErrRead, s.ID, err)),
				)
			}
			return
		}
		if n == 0 {
			return
		}
	}
}

// publishLoop broadcasts each chunk, then appends it to the session buffer.
func (m *Manager) publishLoop(s *Session, in <-chan []byte) {
	for chunk := range in {
		if m.publisher != nil {
			m.publisher.PublishOutput(s.ID, decodeChunk(chunk))
		}
		s.buffer.Append(chunk)
		m.metrics.AddPtyBytes(len(chunk))
	}
}

// decodeChunk converts raw pty bytes to text, replacing invalid UTF-8.
func decodeChunk(chunk []byte) string {
	return strings.ToValidUTF8(string(chunk), "�")
}
