package logger

import (
	"os"

	"go.uber.org/zap"
)

// New builds the process-wide zap logger. Development mode is enabled by
// setting LOG_MODE=dev.
func New() *zap.Logger {
	var logger *zap.Logger
	var err error

	if os.Getenv("LOG_MODE") == "dev" {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		return zap.NewNop()
	}

	return logger
}
