package hamt

import (
	"sync"

	"go.uber.org/zap"
)

var (
	loggerOnce sync.Once
	logger     *zap.Logger
)

// Logger returns the package-level logger, defaulting to a no-op
// logger until SetLogger installs a real one. Mirrors fleece.Logger's
// lazy-init pattern.
func Logger() *zap.Logger {
	loggerOnce.Do(func() {
		if logger == nil {
			logger = zap.NewNop()
		}
	})
	return logger
}

// SetLogger installs l as the package-level logger. Call it before
// any Tree operation to observe collision-bucket creation, the only
// event this package logs.
func SetLogger(l *zap.Logger) {
	loggerOnce.Do(func() {})
	logger = l
}
