package asyncstream

import (
	"container/list"
	"sync"

	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type drainState int

const (
	idle drainState = iota
	draining
)

// direction is the queue and drain state for one side of the stream.
type direction struct {
	name    string
	state   drainState
	pending *list.List
}

// begin moves the direction into the draining state. It returns false if a
// drain loop is already active, in which case that loop will pick up any
// newly queued records.
func (d *direction) begin() bool {
	if d.state == draining {
		return false
	}
	d.state = draining
	return true
}

type pendingWrite struct {
	data   []byte
	result *Future[struct{}]
}

type pendingRead struct {
	buf           []byte
	minBytes      int
	maxBytes      int
	truncateOnEnd bool
	result        *Future[int]
}

// Adapter presents a BlockingStream as an asynchronous stream. All methods
// are safe for concurrent use and return without performing I/O; the I/O is
// done later by the adapter's drain loops, run by its Scheduler.
//
// Buffers passed to Write, WriteVectored, Read and TryRead are retained until
// the returned future settles and must not be modified (or, for reads,
// inspected) by the caller before then.
//
// The adapter borrows its stream and never closes it.
type Adapter struct {
	stream    BlockingStream
	scheduler Scheduler
	logger    *zap.Logger

	mu          sync.Mutex
	writes      direction
	reads       direction
	writeClosed bool
	flushed     bool
	shutdown    *Future[struct{}]
	eof         bool
}

// NewAdapter creates a new adapter around the given stream.
func NewAdapter(stream BlockingStream, opts ...AdapterOption) *Adapter {
	var adapterOpts adapterOpts
	for _, opt := range opts {
		opt.apply(&adapterOpts)
	}
	adapterOpts.resolve()
	return &Adapter{
		stream:    stream,
		scheduler: adapterOpts.scheduler,
		logger:    adapterOpts.logger,
		writes:    direction{name: "write", pending: list.New()},
		reads:     direction{name: "read", pending: list.New()},
	}
}

// Write queues p to be written to the stream. The returned future resolves
// once p has been written, after all previously queued writes. If
// ShutdownWrite has already been called, the future is rejected with
// ErrClosed.
func (a *Adapter) Write(p []byte) *Future[struct{}] {
	a.mu.Lock()
	if a.writeClosed {
		a.mu.Unlock()
		return rejectedFuture[struct{}](ErrClosed)
	}
	f := a.enqueueWriteLocked(p)
	start := a.writes.begin()
	a.mu.Unlock()

	if start {
		a.startDrain(&a.writes, a.drainWrites)
	}
	return f
}

// WriteVectored queues each of the given pieces to be written, in order, and
// returns a future that settles once all of them have been written. If
// ShutdownWrite has already been called, the future is rejected with
// ErrClosed and none of the pieces are queued.
func (a *Adapter) WriteVectored(pieces [][]byte) *Future[struct{}] {
	a.mu.Lock()
	if a.writeClosed {
		a.mu.Unlock()
		return rejectedFuture[struct{}](ErrClosed)
	}
	if len(pieces) == 0 {
		a.mu.Unlock()
		return resolvedFuture(struct{}{})
	}
	futures := make([]*Future[struct{}], len(pieces))
	for i, piece := range pieces {
		futures[i] = a.enqueueWriteLocked(piece)
	}
	start := a.writes.begin()
	a.mu.Unlock()

	if start {
		a.startDrain(&a.writes, a.drainWrites)
	}
	return Join(futures...)
}

func (a *Adapter) enqueueWriteLocked(p []byte) *Future[struct{}] {
	f := newFuture[struct{}]()
	a.writes.pending.PushBack(&pendingWrite{data: p, result: f})
	return f
}

// ShutdownWrite stops the adapter from accepting further writes. Writes that
// are already queued are still written, after which the stream is flushed
// exactly once. If the stream is a HalfCloser, its CloseWrite method is
// called after the flush.
//
// The returned future settles with the result of the flush (and close). It
// is safe to call ShutdownWrite more than once; later calls return the same
// future.
func (a *Adapter) ShutdownWrite() *Future[struct{}] {
	a.mu.Lock()
	if a.shutdown != nil {
		f := a.shutdown
		a.mu.Unlock()
		return f
	}
	a.writeClosed = true
	a.shutdown = newFuture[struct{}]()
	f := a.shutdown
	start := a.writes.begin()
	a.mu.Unlock()

	if start {
		a.startDrain(&a.writes, a.drainWrites)
	}
	return f
}

// Read queues a read of at least minBytes and at most maxBytes into p. The
// returned future resolves with the number of bytes placed into p, which is
// never less than minBytes. If the stream ends first, the future is rejected
// with a *ReadShortfallError. If the adapter has already observed the end of
// the stream, the future is rejected with ErrEndOfStream.
//
// It is an error for minBytes to be negative, greater than maxBytes, or for
// maxBytes to exceed len(p).
func (a *Adapter) Read(p []byte, minBytes, maxBytes int) *Future[int] {
	return a.read(p, minBytes, maxBytes, false)
}

// TryRead is like Read, except that reaching the end of the stream is not an
// error: the future resolves with however many bytes were read before the
// stream ended, which may be fewer than minBytes (including zero). If the
// adapter has already observed the end of the stream, the future resolves
// with zero immediately.
func (a *Adapter) TryRead(p []byte, minBytes, maxBytes int) *Future[int] {
	return a.read(p, minBytes, maxBytes, true)
}

func (a *Adapter) read(p []byte, minBytes, maxBytes int, truncateOnEnd bool) *Future[int] {
	if err := checkReadBounds(p, minBytes, maxBytes); err != nil {
		return rejectedFuture[int](err)
	}

	a.mu.Lock()
	if a.eof {
		a.mu.Unlock()
		if truncateOnEnd {
			return resolvedFuture(0)
		}
		return rejectedFuture[int](ErrEndOfStream)
	}
	f := newFuture[int]()
	a.reads.pending.PushBack(&pendingRead{
		buf:           p,
		minBytes:      minBytes,
		maxBytes:      maxBytes,
		truncateOnEnd: truncateOnEnd,
		result:        f,
	})
	start := a.reads.begin()
	a.mu.Unlock()

	if start {
		a.startDrain(&a.reads, a.drainReads)
	}
	return f
}

func (a *Adapter) startDrain(d *direction, drain func()) {
	a.logger.Debug("starting drain loop", zap.String("direction", d.name))
	a.scheduler.Schedule(drain)
}

// drainWrites is the write direction's drain loop. It returns to the idle
// state only once the queue is empty and no flush is owed.
func (a *Adapter) drainWrites() {
	for {
		a.mu.Lock()
		front := a.writes.pending.Front()
		if front == nil {
			if !a.writeClosed || a.flushed {
				a.writes.state = idle
				a.mu.Unlock()
				return
			}
			a.flushed = true
			shutdown := a.shutdown
			a.mu.Unlock()

			// no more writes can be queued, so the next pass goes idle
			if err := callStream("flush", a.finishWrites); err != nil {
				a.logger.Warn("failed to flush stream", zap.Error(err))
				shutdown.reject(err)
			} else {
				shutdown.resolve(struct{}{})
			}
			continue
		}
		w := a.writes.pending.Remove(front).(*pendingWrite)
		a.mu.Unlock()

		if err := callStream("write", func() error { return a.stream.Write(w.data) }); err != nil {
			a.logger.Warn("failed to write to stream", zap.Int("length", len(w.data)), zap.Error(err))
			w.result.reject(err)
			continue
		}
		w.result.resolve(struct{}{})
	}
}

func (a *Adapter) finishWrites() error {
	if err := a.stream.Flush(); err != nil {
		return err
	}
	if hc, ok := a.stream.(HalfCloser); ok {
		return hc.CloseWrite()
	}
	return nil
}

// drainReads is the read direction's drain loop.
func (a *Adapter) drainReads() {
	for {
		a.mu.Lock()
		front := a.reads.pending.Front()
		if front == nil {
			a.reads.state = idle
			a.mu.Unlock()
			return
		}
		r := a.reads.pending.Remove(front).(*pendingRead)
		ended := a.eof
		a.mu.Unlock()

		// a record queued before the end was observed gets nothing more
		// from the stream
		var n int
		var err error
		if !ended {
			n, err = a.fill(r)
		}
		switch {
		case err != nil:
			a.logger.Warn("failed to read from stream", zap.Int("bytes_read", n), zap.Error(err))
			r.result.reject(err)
		case n >= r.minBytes || r.truncateOnEnd:
			r.result.resolve(n)
		default:
			r.result.reject(&ReadShortfallError{BytesRead: n, MinBytes: r.minBytes})
		}
	}
}

// fill performs partial reads into r's buffer until at least r.minBytes have
// been read or the stream ends. It records the end of the stream on the
// adapter as soon as the stream reports it.
func (a *Adapter) fill(r *pendingRead) (int, error) {
	n := 0
	for n < r.minBytes {
		p := r.buf[n:r.maxBytes]
		var res ReadResult
		err := callStream("read", func() (err error) {
			res, err = a.stream.ReadPartial(p)
			return err
		})
		if err == nil && (res.N < 0 || res.N > len(p)) {
			err = status.Errorf(codes.Internal, "stream reported %d bytes read into a %d byte buffer", res.N, len(p))
		}
		if err != nil {
			return n, err
		}
		n += res.N
		if res.EOF || res.N == 0 {
			a.mu.Lock()
			a.eof = true
			a.mu.Unlock()
			a.logger.Debug("observed end of stream", zap.Int("bytes_read", n))
			return n, nil
		}
	}
	return n, nil
}

// callStream makes one call into the stream on behalf of a single record. A
// panic is returned as an error so that only that record fails and the drain
// loop keeps going.
func callStream(op string, fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = status.Errorf(codes.Internal, "stream %s panicked: %v", op, r)
		}
	}()
	return fn()
}
