package asyncstream

import (
	"bytes"
	"sync"
)

// manualScheduler queues units of work until the test runs them, which lets
// tests queue several records before any I/O happens.
type manualScheduler struct {
	mu    sync.Mutex
	tasks []func()
	count int
}

func (s *manualScheduler) Schedule(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks = append(s.tasks, fn)
	s.count++
}

func (s *manualScheduler) scheduled() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.count
}

// runAll runs queued work, including work queued while running, until none
// is left.
func (s *manualScheduler) runAll() {
	for {
		s.mu.Lock()
		if len(s.tasks) == 0 {
			s.mu.Unlock()
			return
		}
		fn := s.tasks[0]
		s.tasks = s.tasks[1:]
		s.mu.Unlock()
		fn()
	}
}

// fakeStream is a scripted BlockingStream. Each ReadPartial call serves the
// next chunk (trimmed to the request size); once chunks run out it reports
// EOF.
type fakeStream struct {
	mu        sync.Mutex
	written   bytes.Buffer
	events    []string
	chunks    [][]byte
	readCalls int
	flushes   int
	closes    int
	writeErr  error
	readErr   error
	flushErr  error
	onWrite   func([]byte)
}

func (s *fakeStream) Write(p []byte) error {
	s.mu.Lock()
	if s.writeErr != nil {
		err := s.writeErr
		s.writeErr = nil
		s.mu.Unlock()
		return err
	}
	s.written.Write(p)
	s.events = append(s.events, "write:"+string(p))
	hook := s.onWrite
	s.mu.Unlock()
	if hook != nil {
		hook(p)
	}
	return nil
}

func (s *fakeStream) ReadPartial(p []byte) (ReadResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.readCalls++
	if s.readErr != nil {
		err := s.readErr
		s.readErr = nil
		return ReadResult{}, err
	}
	if len(s.chunks) == 0 {
		return ReadResult{EOF: true}, nil
	}
	chunk := s.chunks[0]
	n := copy(p, chunk)
	if n < len(chunk) {
		s.chunks[0] = chunk[n:]
	} else {
		s.chunks = s.chunks[1:]
	}
	return ReadResult{N: n}, nil
}

func (s *fakeStream) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flushes++
	s.events = append(s.events, "flush")
	return s.flushErr
}

func (s *fakeStream) CloseWrite() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closes++
	s.events = append(s.events, "close")
	return nil
}

func (s *fakeStream) snapshot() (written string, events []string, readCalls, flushes int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.written.String(), append([]string(nil), s.events...), s.readCalls, s.flushes
}

func chunksOf(data string, size int) [][]byte {
	var chunks [][]byte
	for len(data) > 0 {
		n := size
		if n > len(data) {
			n = len(data)
		}
		chunks = append(chunks, []byte(data[:n]))
		data = data[n:]
	}
	return chunks
}
