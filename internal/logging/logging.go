package logging

import (
	"os"
	"strings"
	"sync"

	"go.uber.org/zap"
)

var (
	mu     sync.Mutex
	logger *zap.SugaredLogger
)

// Init builds the process-wide sugared logger based on VGW_LOG_LEVEL and
// redirects the standard library logger into zap. Repeated calls return the
// same logger.
func Init() *zap.SugaredLogger {
	mu.Lock()
	defer mu.Unlock()
	if logger != nil {
		return logger
	}
	level := strings.ToLower(strings.TrimSpace(os.Getenv("VGW_LOG_LEVEL")))
	var base *zap.Logger
	if level == "debug" {
		base, _ = zap.NewDevelopment()
	} else {
		base, _ = zap.NewProduction()
	}
	_ = zap.RedirectStdLog(base)
	logger = base.Sugar()
	return logger
}

// Sugar returns the process logger, initializing it on first use.
func Sugar() *zap.SugaredLogger {
	return Init()
}

// SetForTest swaps the process logger and returns a restore function.
func SetForTest(replacement *zap.SugaredLogger) func() {
	mu.Lock()
	previous := logger
	logger = replacement
	mu.Unlock()
	return func() {
		mu.Lock()
		logger = previous
		mu.Unlock()
	}
}
