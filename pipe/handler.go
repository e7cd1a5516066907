package pipe

import (
	"context"
	"sync/atomic"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/jhump/asyncstream"
)

// ServeFunc handles one opened pipe. The pipe's RPC completes when the
// function returns, which also ends the stream seen by the client. The given
// context is the RPC's context.
type ServeFunc func(ctx context.Context, a *asyncstream.Adapter) error

// PipeServiceHandler provides an implementation for PipeServiceServer. Each
// pipe that a client opens is wrapped in an *asyncstream.Adapter and handed
// to the configured ServeFunc.
//
// See NewPipeServiceHandler.
type PipeServiceHandler struct {
	serve       ServeFunc
	adapterOpts []asyncstream.AdapterOption
	logger      *zap.Logger

	stopping atomic.Bool
	active   atomic.Int32
}

// PipeServiceHandlerOptions contains various fields that can be used to
// customize a PipeServiceHandler.
//
// See NewPipeServiceHandler.
type PipeServiceHandlerOptions struct {
	// Serve handles each opened pipe. If nil, the server will reply to Open
	// requests with an "Unimplemented" error code.
	Serve ServeFunc
	// Options applied to the adapter created for each pipe.
	AdapterOptions []asyncstream.AdapterOption
	// Logger for pipe lifecycle events. If nil, the asyncstream package's
	// logger is used.
	Logger *zap.Logger
}

// NewPipeServiceHandler creates a new PipeServiceHandler.
//
// The handler's Service method can be used to actually register the handler
// with a *grpc.Server.
func NewPipeServiceHandler(options PipeServiceHandlerOptions) *PipeServiceHandler {
	l := options.Logger
	if l == nil {
		l = asyncstream.Logger()
	}
	adapterOpts := append([]asyncstream.AdapterOption{asyncstream.WithLogger(l)}, options.AdapterOptions...)
	return &PipeServiceHandler{
		serve:       options.Serve,
		adapterOpts: adapterOpts,
		logger:      l,
	}
}

// Service returns the actual pipe service implementation to register with a
// [grpc.ServiceRegistrar].
func (h *PipeServiceHandler) Service() PipeServiceServer {
	return &pipeServiceHandler{h: h}
}

// Register registers the pipe service with the given registrar.
func (h *PipeServiceHandler) Register(reg grpc.ServiceRegistrar) {
	RegisterPipeServiceServer(reg, h.Service())
}

// InitiateShutdown makes the handler reject pipes opened from now on with an
// "Unavailable" error code, and returns immediately. Pipes that are already
// open are unaffected. This complements the GracefulStop method of a
// *grpc.Server, letting existing pipes drain.
func (h *PipeServiceHandler) InitiateShutdown() {
	h.stopping.Store(true)
}

// ActivePipes returns the number of pipes currently being served.
func (h *PipeServiceHandler) ActivePipes() int {
	return int(h.active.Load())
}

func (h *PipeServiceHandler) open(stream PipeService_OpenServer) error {
	if h.serve == nil {
		return status.Error(codes.Unimplemented, "pipes not supported")
	}
	if h.stopping.Load() {
		return status.Error(codes.Unavailable, "server is shutting down")
	}

	h.active.Add(1)
	defer h.active.Add(-1)

	a := asyncstream.NewAdapter(NewServerStream(stream), h.adapterOpts...)
	h.logger.Debug("pipe opened")
	err := h.serve(stream.Context(), a)
	if err != nil {
		h.logger.Debug("pipe failed", zap.Error(err))
	} else {
		h.logger.Debug("pipe closed")
	}
	return err
}

type pipeServiceHandler struct {
	h *PipeServiceHandler
}

func (s *pipeServiceHandler) Open(stream PipeService_OpenServer) error {
	return s.h.open(stream)
}
