package logger

import (
	"sync"

	"go.uber.org/zap"
)

var (
	once sync.Once
	log  *zap.Logger
)

// L returns the process logger, building a production zap logger on first
// use. Falls back to a no-op logger if construction fails.
func L() *zap.Logger {
	once.Do(func() {
		l, err := zap.NewProduction()
		if err != nil {
			l = zap.NewNop()
		}
		log = l
	})
	return log
}
