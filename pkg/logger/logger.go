package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/angeloszaimis/clientid-rotator/internal/identity"
)

func New(lvl string, addSource bool, environment string) *slog.Logger {
	return NewWithWriter(os.Stdout, lvl, addSource, environment)
}

// NewWithWriter is New with a caller-supplied sink.
func NewWithWriter(w io.Writer, lvl string, addSource bool, environment string) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level:       parseLevel(lvl),
		AddSource:   addSource,
		ReplaceAttr: redactCredentials,
	}

	var handler slog.Handler
	if strings.ToLower(environment) == "prod" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	return slog.New(handler).With(
		slog.String("environment", environment),
	)
}

// redactCredentials masks raw client IDs logged under client_id or *_client_id.
func redactCredentials(_ []string, a slog.Attr) slog.Attr {
	if a.Key != "client_id" && !strings.HasSuffix(a.Key, "_client_id") {
		return a
	}

	if a.Value.Kind() == slog.KindString {
		return slog.String(a.Key, identity.Redact(a.Value.String()))
	}
	return a
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
