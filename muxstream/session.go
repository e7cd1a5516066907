// Package muxstream exposes the streams of a yamux session as asyncstream
// adapters, so that many independent asynchronous byte streams can share one
// connection.
package muxstream

import (
	"context"
	"io"
	"net"

	"github.com/libp2p/go-yamux/v4"
	"github.com/pkg/errors"

	"github.com/jhump/asyncstream"
)

// Option configures a Session.
type Option interface {
	apply(*options)
}

type optFunc func(*options)

func (f optFunc) apply(opts *options) {
	f(opts)
}

type options struct {
	config      *yamux.Config
	adapterOpts []asyncstream.AdapterOption
}

// WithConfig returns an option that configures the yamux session. If not
// specified, yamux.DefaultConfig is used.
func WithConfig(config *yamux.Config) Option {
	return optFunc(func(opts *options) {
		opts.config = config
	})
}

// WithAdapterOptions returns an option that configures the adapters created
// for the session's streams.
func WithAdapterOptions(adapterOpts ...asyncstream.AdapterOption) Option {
	return optFunc(func(opts *options) {
		opts.adapterOpts = append(opts.adapterOpts, adapterOpts...)
	})
}

// Session is a yamux session over a single connection.
type Session struct {
	sess        *yamux.Session
	adapterOpts []asyncstream.AdapterOption
}

// Client starts the client side of a session over conn.
func Client(conn net.Conn, opts ...Option) (*Session, error) {
	return newSession(conn, false, opts)
}

// Server starts the server side of a session over conn.
func Server(conn net.Conn, opts ...Option) (*Session, error) {
	return newSession(conn, true, opts)
}

func newSession(conn net.Conn, server bool, opts []Option) (*Session, error) {
	var o options
	for _, opt := range opts {
		opt.apply(&o)
	}
	if o.config == nil {
		o.config = yamux.DefaultConfig()
	}

	var sess *yamux.Session
	var err error
	if server {
		sess, err = yamux.Server(conn, o.config, nil)
	} else {
		sess, err = yamux.Client(conn, o.config, nil)
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to start yamux session")
	}
	return &Session{sess: sess, adapterOpts: o.adapterOpts}, nil
}

// Stream is an adapter over one yamux stream. Closing it releases the yamux
// stream, which the adapter itself never does.
type Stream struct {
	*asyncstream.Adapter
	io.Closer
}

// Open opens a new stream to the peer.
func (s *Session) Open(ctx context.Context) (*Stream, error) {
	ys, err := s.sess.OpenStream(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open stream")
	}
	return s.wrap(ys), nil
}

// Accept waits for the peer to open a stream.
func (s *Session) Accept() (*Stream, error) {
	ys, err := s.sess.AcceptStream()
	if err != nil {
		return nil, errors.Wrap(err, "failed to accept stream")
	}
	return s.wrap(ys), nil
}

func (s *Session) wrap(ys *yamux.Stream) *Stream {
	return &Stream{
		Adapter: asyncstream.NewAdapter(asyncstream.NewIOStream(ys), s.adapterOpts...),
		Closer:  ys,
	}
}

// Close closes the session and all of its streams.
func (s *Session) Close() error {
	return s.sess.Close()
}

// CloseChan returns a channel that is closed when the session is closed.
func (s *Session) CloseChan() <-chan struct{} {
	return s.sess.CloseChan()
}
