package internal

import (
	"context"
	"net"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sys/unix"
	"google.golang.org/grpc"
	"google.golang.org/grpc/connectivity"
)

// BlockingDial dials the given address and returns the resulting gRPC client
// conn once it is ready. If the given context finishes first, it returns the
// most recent error from the underlying network dials or, if there was none,
// the context error. Failed dials are logged to l.
func BlockingDial(ctx context.Context, l *zap.Logger, addr string, opts ...grpc.DialOption) (*grpc.ClientConn, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var mu sync.Mutex
	var lastErr error
	dialer := func(ctx context.Context, addr string) (net.Conn, error) {
		conn, err := keepaliveDialer().DialContext(ctx, "tcp", addr)
		if err != nil {
			l.Debug("dial failed", zap.String("addr", addr), zap.Error(err))
			mu.Lock()
			lastErr = err
			mu.Unlock()
			if !isTemporary(err) {
				cancel()
			}
		}
		return conn, err
	}

	cc, err := grpc.NewClient(addr, append(opts, grpc.WithContextDialer(dialer))...)
	if err != nil {
		return nil, err
	}
	cc.Connect()
	for {
		state := cc.GetState()
		if state == connectivity.Ready {
			return cc, nil
		}
		if !cc.WaitForStateChange(ctx, state) {
			_ = cc.Close()
			mu.Lock()
			err := lastErr
			mu.Unlock()
			if err != nil {
				return nil, err
			}
			return nil, ctx.Err()
		}
	}
}

// keepaliveDialer returns a dialer that enables TCP keepalives with the OS
// default interval and time, which is also grpc-go's default dial behavior.
func keepaliveDialer() *net.Dialer {
	return &net.Dialer{
		// A negative value stops the stdlib from overriding the OS keepalive
		// parameters, and from enabling keepalives by itself.
		KeepAlive: time.Duration(-1),
		Control: func(_, _ string, c syscall.RawConn) error {
			return c.Control(func(fd uintptr) {
				_ = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_KEEPALIVE, 1)
			})
		},
	}
}

// copied from grpc-go
func isTemporary(err error) bool {
	switch err := err.(type) {
	case interface {
		Temporary() bool
	}:
		return err.Temporary()
	case interface {
		Timeout() bool
	}:
		// Timeouts may be resolved upon retry, and are thus treated as
		// temporary.
		return err.Timeout()
	}
	return true
}
