package internal

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/fullstorydev/grpchan/inprocgrpc"
	"github.com/stretchr/testify/require"

	"github.com/jhump/asyncstream"
	"github.com/jhump/asyncstream/pipe"
)

func TestRunEchoBatches(t *testing.T) {
	h := pipe.NewPipeServiceHandler(pipe.PipeServiceHandlerOptions{Serve: pipe.Echo})
	ch := &inprocgrpc.Channel{}
	h.Register(ch)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	a, err := pipe.Open(ctx, pipe.NewPipeServiceClient(ch))
	require.NoError(t, err)

	payload := bytes.Repeat([]byte{0, 1, 2, 3}, 300)
	stats, err := RunEchoBatches(ctx, a, 4, 10, payload)
	require.NoError(t, err)
	require.Equal(t, 4*10*len(payload), stats.BytesWritten)
	require.Equal(t, stats.BytesWritten, stats.BytesRead)
}

type closedStream struct{}

func (closedStream) Write([]byte) error { return nil }
func (closedStream) ReadPartial([]byte) (asyncstream.ReadResult, error) {
	return asyncstream.ReadResult{EOF: true}, nil
}
func (closedStream) Flush() error { return nil }

func TestRunEchoBatchesDetectsShortEcho(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	a := asyncstream.NewAdapter(closedStream{})
	_, err := RunEchoBatches(ctx, a, 2, 2, []byte("abc"))
	require.ErrorContains(t, err, "expected 12")
}
