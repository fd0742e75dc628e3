package transport

import (
	"context"
	"errors"
	"io"
	"net"
	"os"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog/log"
)

const DefaultReadSize = 4096

var ErrClosed = errors.New("transport: closed")

// Stream adapts an io.ReadWriteCloser to link.Transport.
type Stream struct {
	name     string
	rwc      io.ReadWriteCloser
	readSize int

	writeMu  sync.Mutex
	receiver atomic.Pointer[func([]byte)]

	closeOnce sync.Once
	closed    atomic.Bool
	closeErr  error
}

func NewStream(name string, rwc io.ReadWriteCloser) *Stream {
	return &Stream{name: name, rwc: rwc, readSize: DefaultReadSize}
}

func (s *Stream) Name() string {
	return s.name
}

// RegisterReceiver sets the callback for raw chunks; the last call wins.
func (s *Stream) RegisterReceiver(fn func(chunk []byte)) {
	if fn == nil {
		s.receiver.Store(nil)
		return
	}
	s.receiver.Store(&fn)
}

// Send writes b in full.
func (s *Stream) Send(b []byte) error {
	if s.closed.Load() {
		return ErrClosed
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	for len(b) > 0 {
		n, err := s.rwc.Write(b)
		if err != nil {
			return err
		}
		b = b[n:]
	}
	return nil
}

// Run reads until ctx is done, the peer closes, or a read fails. It is the
// only reader; chunks are delivered in order on this goroutine.
func (s *Stream) Run(ctx context.Context) error {
	stop := context.AfterFunc(ctx, func() { _ = s.Close() })
	defer stop()

	buf := make([]byte, s.readSize)
	for {
		n, err := s.rwc.Read(buf)
		if n > 0 {
			if fn := s.receiver.Load(); fn != nil {
				// receivers may retain the chunk
				chunk := make([]byte, n)
				copy(chunk, buf[:n])
				(*fn)(chunk)
			}
		}
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if s.closed.Load() || isClosedErr(err) {
				return ErrClosed
			}
			if errors.Is(err, io.EOF) {
				log.Debug().Str("transport", s.name).Msg("peer closed stream")
				return io.EOF
			}
			return err
		}
	}
}

func (s *Stream) Close() error {
	s.closeOnce.Do(func() {
		s.closed.Store(true)
		s.closeErr = s.rwc.Close()
	})
	return s.closeErr
}

func isClosedErr(err error) bool {
	return errors.Is(err, net.ErrClosed) || errors.Is(err, os.ErrClosed) || errors.Is(err, io.ErrClosedPipe)
}

// Pipe returns two connected in-memory streams.
func Pipe(a, b string) (*Stream, *Stream) {
	ca, cb := net.Pipe()
	return NewStream(a, ca), NewStream(b, cb)
}
