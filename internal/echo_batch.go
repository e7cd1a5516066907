package internal

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/jhump/asyncstream"
)

// BatchStats describes a completed RunEchoBatches.
type BatchStats struct {
	BytesWritten int
	BytesRead    int
}

// RunEchoBatches drives an adapter whose peer echoes everything back. It uses
// the given number of goroutines to each write rounds batches of payload,
// split into three pieces with WriteVectored, while another goroutine reads
// the echoed bytes. Once all writes complete, the adapter's write side is
// shut down and the reader expects the stream to end after exactly as many
// bytes as were written.
func RunEchoBatches(ctx context.Context, a *asyncstream.Adapter, workers, rounds int, payload []byte) (BatchStats, error) {
	grp, ctx := errgroup.WithContext(ctx)
	expected := workers * rounds * len(payload)

	var read int
	grp.Go(func() error {
		buf := make([]byte, 32*1024)
		for {
			n, err := a.TryRead(buf, 1, len(buf)).Await(ctx)
			if err != nil {
				return err
			}
			if n == 0 {
				break
			}
			read += n
		}
		if read != expected {
			return fmt.Errorf("stream ended after %d bytes; expected %d", read, expected)
		}
		return nil
	})

	writers, wctx := errgroup.WithContext(ctx)
	third := len(payload) / 3
	for i := 0; i < workers; i++ {
		writers.Go(func() error {
			var last *asyncstream.Future[struct{}]
			for j := 0; j < rounds; j++ {
				last = a.WriteVectored([][]byte{payload[:third], payload[third : 2*third], payload[2*third:]})
			}
			if last == nil {
				return nil
			}
			_, err := last.Await(wctx)
			return err
		})
	}
	grp.Go(func() error {
		if err := writers.Wait(); err != nil {
			return err
		}
		_, err := a.ShutdownWrite().Await(ctx)
		return err
	})

	if err := grp.Wait(); err != nil {
		return BatchStats{}, err
	}
	return BatchStats{BytesWritten: expected, BytesRead: read}, nil
}
