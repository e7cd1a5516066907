package main

import (
	"context"
	"flag"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/fullstorydev/grpchan"
	"go.uber.org/zap"
	"google.golang.org/grpc"

	"github.com/jhump/asyncstream"
	"github.com/jhump/asyncstream/pipe"
)

func main() {
	port := flag.Int("port", 26355, "the port on which this server will listen")
	verbose := flag.Bool("v", false, "enable debug logging")
	flag.Parse()

	logger := newLogger(*verbose)
	defer func() {
		_ = logger.Sync()
	}()
	asyncstream.SetLogger(logger)

	handler := pipe.NewPipeServiceHandler(pipe.PipeServiceHandlerOptions{
		Serve: func(ctx context.Context, a *asyncstream.Adapter) error {
			logger.Info("Echoing new pipe.")
			return pipe.Echo(ctx, a)
		},
		Logger: logger,
	})
	handlers := grpchan.HandlerMap{}
	handler.Register(handlers)

	svr := grpc.NewServer()
	handlers.ForEach(svr.RegisterService)

	lis, err := net.Listen("tcp", fmt.Sprintf("127.0.0.1:%d", *port))
	if err != nil {
		logger.Fatal("failed to listen", zap.Error(err))
	}
	logger.Info("Listening", zap.String("addr", lis.Addr().String()))

	go func() {
		sigs := make(chan os.Signal, 1)
		signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)
		<-sigs
		logger.Info("Shutting down; waiting for pipes to drain.", zap.Int("active", handler.ActivePipes()))
		handler.InitiateShutdown()
		svr.GracefulStop()
	}()

	if err := svr.Serve(lis); err != nil {
		logger.Fatal("server failed", zap.Error(err))
	}
}

func newLogger(verbose bool) *zap.Logger {
	config := zap.NewDevelopmentConfig()
	if !verbose {
		config.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}
	logger, err := config.Build()
	if err != nil {
		panic(err)
	}
	return logger
}
