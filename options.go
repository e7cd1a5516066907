package asyncstream

import "go.uber.org/zap"

// AdapterOption is an option for configuring the behavior of an Adapter.
type AdapterOption interface {
	apply(*adapterOpts)
}

// WithScheduler returns an option that configures the scheduler used to run
// the adapter's drain loops. If not specified, GoScheduler is used.
//
// Both of the adapter's drain loops are handed to the same scheduler. When
// the scheduler runs all work on a single goroutine, like a *Loop, a read
// that is blocked waiting for data also holds up pending writes.
func WithScheduler(s Scheduler) AdapterOption {
	return adapterOptFunc(func(opts *adapterOpts) {
		opts.scheduler = s
	})
}

// WithLogger returns an option that configures the logger used by the
// adapter. If not specified, the package-level Logger is used.
func WithLogger(l *zap.Logger) AdapterOption {
	return adapterOptFunc(func(opts *adapterOpts) {
		opts.logger = l
	})
}

type adapterOpts struct {
	scheduler Scheduler
	logger    *zap.Logger
}

func (o *adapterOpts) resolve() {
	if o.logger == nil {
		o.logger = Logger()
	}
	if o.scheduler == nil {
		o.scheduler = &GoScheduler{Logger: o.logger}
	}
}

type adapterOptFunc func(*adapterOpts)

func (f adapterOptFunc) apply(opts *adapterOpts) {
	f(opts)
}
