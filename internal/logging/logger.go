package logging

import (
	"context"
	"io"
	"os"

	"github.com/rs/zerolog"

	"github.com/kubidu/kubidu/internal/config"
)

// NewLogger creates a structured zerolog.Logger with observability context fields
// from the config. Non-empty fields are added automatically.
func NewLogger(cfg *config.Config) zerolog.Logger {
	return newLogger(os.Stdout, cfg)
}

func newLogger(w io.Writer, cfg *config.Config) zerolog.Logger {
	ctx := zerolog.New(w).With().Timestamp()

	if cfg.ServiceName != "" {
		ctx = ctx.Str("service", cfg.ServiceName)
	}
	if cfg.NodeID != "" {
		ctx = ctx.Str("node_id", cfg.NodeID)
	}

	logger := ctx.Logger()

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil || cfg.LogLevel == "" {
		level = zerolog.InfoLevel
	}

	return logger.Level(level)
}

// WithOperation returns a context whose logger carries the operation name and
// any extra key/value string pairs. The logger is taken from ctx, so request
// scoped fields set by middleware are preserved.
func WithOperation(ctx context.Context, op string, kv ...string) context.Context {
	lc := zerolog.Ctx(ctx).With().Str("op", op)
	for i := 0; i+1 < len(kv); i += 2 {
		if kv[i+1] != "" {
			lc = lc.Str(kv[i], kv[i+1])
		}
	}
	logger := lc.Logger()
	return logger.WithContext(ctx)
}
