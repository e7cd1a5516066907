package asyncstream

import (
	"sync/atomic"

	"go.uber.org/zap"
)

var defaultLogger atomic.Pointer[zap.Logger]

// Logger returns the logger used by adapters and schedulers that were not
// given one explicitly. It never returns nil.
func Logger() *zap.Logger {
	if l := defaultLogger.Load(); l != nil {
		return l
	}
	return zap.NewNop()
}

// SetLogger replaces the default logger. Adapters capture the default when
// they are created, so existing adapters keep their logger. Passing nil
// restores the no-op logger.
func SetLogger(l *zap.Logger) {
	defaultLogger.Store(l)
}
