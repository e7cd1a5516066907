package pipe

import (
	"context"

	"github.com/jhump/asyncstream"
)

const echoBufferSize = 32 * 1024

// Echo is a ServeFunc that writes back everything it reads. Once the client
// half-closes, it shuts down its own write side and returns.
func Echo(ctx context.Context, a *asyncstream.Adapter) error {
	buf := make([]byte, echoBufferSize)
	for {
		n, err := a.TryRead(buf, 1, len(buf)).Await(ctx)
		if err != nil {
			return err
		}
		if n == 0 {
			_, err := a.ShutdownWrite().Await(ctx)
			return err
		}
		// wait for the write, so buf can be reused
		if _, err := a.Write(buf[:n]).Await(ctx); err != nil {
			return err
		}
	}
}

// Open opens a new pipe using the given client and returns an adapter for
// it. The pipe lasts until ctx is cancelled or the server ends it.
func Open(ctx context.Context, client PipeServiceClient, opts ...asyncstream.AdapterOption) (*asyncstream.Adapter, error) {
	stream, err := client.Open(ctx)
	if err != nil {
		return nil, err
	}
	return asyncstream.NewAdapter(NewClientStream(stream), opts...), nil
}
