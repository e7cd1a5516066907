package pipe

import (
	"errors"
	"io"
	"sync"

	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/jhump/asyncstream"
)

// chunkMax is the largest frame sent on a pipe. Larger writes are split.
const chunkMax = 16384

type frameStream interface {
	Send(*wrapperspb.BytesValue) error
	Recv() (*wrapperspb.BytesValue, error)
}

// Stream is an asyncstream.BlockingStream over one end of an Open RPC.
type Stream struct {
	frames    frameStream
	closeSend func() error

	// does not protect any fields, just used to prevent concurrent calls to
	// Write (so chunks of different writes are not interleaved)
	writeMu sync.Mutex

	readMu  sync.Mutex
	unread  []byte
	readErr error
}

var (
	_ asyncstream.BlockingStream = (*Stream)(nil)
	_ asyncstream.HalfCloser     = (*Stream)(nil)
)

// NewClientStream returns a stream over the client end of an Open RPC.
// Closing its write side half-closes the RPC.
func NewClientStream(stream PipeService_OpenClient) *Stream {
	return &Stream{frames: stream, closeSend: stream.CloseSend}
}

// NewServerStream returns a stream over the server end of an Open RPC. Its
// write side ends when the handler returns; CloseWrite does nothing.
func NewServerStream(stream PipeService_OpenServer) *Stream {
	return &Stream{frames: stream}
}

// Write sends p as one or more frames.
func (s *Stream) Write(p []byte) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	for len(p) > 0 {
		chunk := p
		if len(chunk) > chunkMax {
			chunk = chunk[:chunkMax]
		}
		if err := s.frames.Send(wrapperspb.Bytes(chunk)); err != nil {
			return err
		}
		p = p[len(chunk):]
	}
	return nil
}

// ReadPartial returns bytes left over from the most recently received frame
// or, if there are none, from the next frame.
func (s *Stream) ReadPartial(p []byte) (asyncstream.ReadResult, error) {
	s.readMu.Lock()
	defer s.readMu.Unlock()

	for len(s.unread) == 0 {
		if s.readErr != nil {
			if errors.Is(s.readErr, io.EOF) {
				return asyncstream.ReadResult{EOF: true}, nil
			}
			return asyncstream.ReadResult{}, s.readErr
		}
		frame, err := s.frames.Recv()
		if err != nil {
			s.readErr = err
			continue
		}
		s.unread = frame.GetValue()
	}
	n := copy(p, s.unread)
	s.unread = s.unread[n:]
	return asyncstream.ReadResult{N: n}, nil
}

// Flush does nothing: every Write has been handed to the RPC by the time it
// returns.
func (s *Stream) Flush() error {
	return nil
}

// CloseWrite half-closes a client stream.
func (s *Stream) CloseWrite() error {
	if s.closeSend == nil {
		return nil
	}
	return s.closeSend()
}
