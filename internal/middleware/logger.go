package middleware

import (
	"context"
	"log/slog"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

type LoggerOpt func(*loggerOptions)

type loggerOptions struct {
	log *slog.Logger
}

// WithLogger sends request logs to log instead of the slog default.
func WithLogger(log *slog.Logger) LoggerOpt {
	return func(o *loggerOptions) {
		if log != nil {
			o.log = log
		}
	}
}

func Logger(opts ...LoggerOpt) echo.MiddlewareFunc {
	o := loggerOptions{log: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}

	return middleware.RequestLoggerWithConfig(requestLoggerConfig(o.log))
}

func requestLoggerConfig(log *slog.Logger) middleware.RequestLoggerConfig {
	return middleware.RequestLoggerConfig{
		LogStatus:   true,
		LogLatency:  true,
		LogURI:      true,
		LogMethod:   true,
		LogError:    true,
		HandleError: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			if v.Error == nil {
				log.LogAttrs(context.Background(), slog.LevelDebug, "REQUEST",
					slog.String("method", v.Method),
					slog.String("uri", v.URI),
					slog.Int("status", v.Status),
					slog.Duration("latency", v.Latency),
				)
			} else {
				log.LogAttrs(context.Background(), slog.LevelError, "REQUEST_ERROR",
					slog.String("method", v.Method),
					slog.String("uri", v.URI),
					slog.Int("status", v.Status),
					slog.String("err", v.Error.Error()),
				)
			}
			return nil
		},
	}
}
