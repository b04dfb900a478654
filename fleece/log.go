package fleece

import (
	"sync"

	"go.uber.org/zap"
)

var (
	logger     *zap.Logger
	loggerOnce sync.Once
)

// Logger returns the fleece package's logger instance. It uses a no-op
// logger by default, so encoding a document never pays for logging
// unless a caller opts in.
func Logger() *zap.Logger {
	loggerOnce.Do(func() {
		if logger == nil {
			logger = zap.NewNop()
		}
	})
	return logger
}

// SetLogger configures the fleece package's logger. The Encoder itself
// writes no log entries; the logger is only what Logger returns.
func SetLogger(l *zap.Logger) {
	logger = l
}
