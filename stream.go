package asyncstream

import (
	"io"

	"github.com/pkg/errors"
)

// maxConsecutiveEmptyReads bounds how many times a partial read retries an
// io.Reader that returns no data and no error.
const maxConsecutiveEmptyReads = 100

// ReadResult is the outcome of a partial read. EOF is set when the stream has
// ended: no further bytes will follow the N bytes returned by this call.
type ReadResult struct {
	N   int
	EOF bool
}

// BlockingStream is the synchronous byte stream wrapped by an Adapter.
//
// An Adapter calls Write and Flush only from its write drain loop and
// ReadPartial only from its read drain loop, so each direction is used by one
// goroutine at a time. The two directions may be used concurrently.
type BlockingStream interface {
	// Write writes all of p, or returns an error.
	Write(p []byte) error
	// ReadPartial reads at least one and at most len(p) bytes into p,
	// returning fewer than len(p) if that is all that is currently available.
	// A result with zero bytes signals the end of the stream, whether or not
	// EOF is set.
	ReadPartial(p []byte) (ReadResult, error)
	// Flush forces buffered writes to their destination.
	Flush() error
}

// HalfCloser is implemented by streams that can signal the end of their
// write direction to the peer. An Adapter calls CloseWrite once, right after
// the final Flush that follows ShutdownWrite.
type HalfCloser interface {
	CloseWrite() error
}

type flusher interface {
	Flush() error
}

type ioStream struct {
	r io.Reader
	w io.Writer
}

// NewIOStream returns a BlockingStream that reads from and writes to rw.
//
// If rw has a "Flush() error" method (like *bufio.Writer), it is used to
// implement Flush; otherwise Flush does nothing. Similarly, if rw has a
// "CloseWrite() error" method (like *net.TCPConn), the returned stream is a
// HalfCloser that delegates to it.
func NewIOStream(rw io.ReadWriter) BlockingStream {
	return &ioStream{r: rw, w: rw}
}

var _ HalfCloser = (*ioStream)(nil)

func (s *ioStream) Write(p []byte) error {
	_, err := s.w.Write(p)
	if err != nil {
		return errors.Wrap(err, "blocking write")
	}
	return nil
}

func (s *ioStream) ReadPartial(p []byte) (ReadResult, error) {
	if len(p) == 0 {
		return ReadResult{}, nil
	}
	for i := 0; i < maxConsecutiveEmptyReads; i++ {
		n, err := s.r.Read(p)
		if errors.Is(err, io.EOF) {
			return ReadResult{N: n, EOF: true}, nil
		}
		if err != nil {
			return ReadResult{N: n}, errors.Wrap(err, "blocking read")
		}
		if n > 0 {
			return ReadResult{N: n}, nil
		}
	}
	return ReadResult{}, io.ErrNoProgress
}

func (s *ioStream) Flush() error {
	if f, ok := s.w.(flusher); ok {
		return errors.Wrap(f.Flush(), "flush")
	}
	return nil
}

func (s *ioStream) CloseWrite() error {
	if hc, ok := s.w.(HalfCloser); ok {
		return errors.Wrap(hc.CloseWrite(), "close write")
	}
	return nil
}
