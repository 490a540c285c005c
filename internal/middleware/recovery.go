package middleware

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/handlers"
)

type slogRecoveryLogger struct {
	logger *slog.Logger
}

func (l slogRecoveryLogger) Println(v ...interface{}) {
	l.logger.Error("panic while serving request", "panic", v)
}

// Recover turns a panicking handler into a 500 response and keeps the process alive.
func Recover(logger *slog.Logger) func(http.Handler) http.Handler {
	return handlers.RecoveryHandler(
		handlers.RecoveryLogger(slogRecoveryLogger{logger: logger}),
		handlers.PrintRecoveryStack(false),
	)
}
