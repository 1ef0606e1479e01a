package logging

import (
	"context"

	"github.com/charmbracelet/log"
)

type loggerKey struct{}

// FromContext returns the logger attached to ctx, or the default logger.
func FromContext(ctx context.Context) *log.Logger {
	if ctx != nil {
		if logger, ok := ctx.Value(loggerKey{}).(*log.Logger); ok && logger != nil {
			return logger
		}
	}
	return Default()
}

// WithLogger attaches logger to ctx.
func WithLogger(ctx context.Context, logger *log.Logger) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, loggerKey{}, logger)
}

// WithRequest attaches a logger tagged with the method and id of a
// protocol request, so engine work done for it can be told apart in logs.
func WithRequest(ctx context.Context, method string, id any) context.Context {
	logger := FromContext(ctx).With(FieldMethod, method)
	if id != nil {
		logger = logger.With(FieldID, id)
	}
	return WithLogger(ctx, logger)
}
