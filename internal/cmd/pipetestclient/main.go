package main

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/jhump/asyncstream"
	"github.com/jhump/asyncstream/internal"
	"github.com/jhump/asyncstream/pipe"
)

func main() {
	serverPort := flag.Int("server-port", 26355, "the port on which the server is listening")
	workers := flag.Int("workers", 4, "the number of concurrent writers")
	rounds := flag.Int("rounds", 100, "the number of batches each writer sends")
	payloadSize := flag.Int("payload-size", 4096, "the size of each batch, in bytes")
	flag.Parse()

	logger, err := zap.NewDevelopment()
	if err != nil {
		panic(err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	ctx := context.Background()
	dialCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	cc, err := internal.BlockingDial(dialCtx, logger, fmt.Sprintf("127.0.0.1:%d", *serverPort),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		logger.Fatal("failed to dial", zap.Error(err))
	}
	defer func() {
		_ = cc.Close()
	}()

	ctx, cancel = context.WithTimeout(ctx, time.Minute)
	defer cancel()
	a, err := pipe.Open(ctx, pipe.NewPipeServiceClient(cc), asyncstream.WithLogger(logger))
	if err != nil {
		logger.Fatal("failed to open pipe", zap.Error(err))
	}
	logger.Info("Pipe opened.")

	start := time.Now()
	payload := bytes.Repeat([]byte{0, 1, 2, 3}, *payloadSize/4)
	stats, err := internal.RunEchoBatches(ctx, a, *workers, *rounds, payload)
	if err != nil {
		logger.Fatal("echo failed", zap.Error(err))
	}
	logger.Info("Echo complete.",
		zap.Int("bytes_written", stats.BytesWritten),
		zap.Int("bytes_read", stats.BytesRead),
		zap.Duration("elapsed", time.Since(start)))
}
