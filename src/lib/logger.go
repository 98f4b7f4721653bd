package lib

import (
	"log/slog"
	"os"
)

// InitLogger installs the default slog logger: text at debug level on a
// developer machine, JSON at info level anywhere else.
func InitLogger(local bool) {
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}
	if local {
		opts.Level = slog.LevelDebug
	}
	var handler slog.Handler
	if local {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))
}
