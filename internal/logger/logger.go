package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/phsym/console-slog"
)

var levelVar = new(slog.LevelVar)

var L = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: levelVar}))

// SetLevel configures the global log level (debug, info, warn, error).
func SetLevel(lvl string) {
	switch strings.ToLower(lvl) {
	case "debug":
		levelVar.Set(slog.LevelDebug)
	case "warn":
		levelVar.Set(slog.LevelWarn)
	case "error":
		levelVar.Set(slog.LevelError)
	default:
		levelVar.Set(slog.LevelInfo)
	}
}

// Init replaces L with a handler writing to w. Format is "json" or "console".
// It must be called before any goroutine starts logging.
func Init(format string, w io.Writer) {
	var h slog.Handler
	switch strings.ToLower(format) {
	case "console":
		h = console.NewHandler(w, &console.HandlerOptions{Level: levelVar})
	default:
		h = slog.NewJSONHandler(w, &slog.HandlerOptions{Level: levelVar})
	}
	L = slog.New(h)
	slog.SetDefault(L)
}
