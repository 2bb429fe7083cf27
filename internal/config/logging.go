package config

import (
	"log/slog"
	"path/filepath"

	"gopkg.in/natefinch/lumberjack.v2"
)

// SetupFileLogging routes slog to a rotated log file under the config dir.
// Used by long-running modes (monitor, watch) where stderr is occupied by
// the TUI or belongs to the editor.
func SetupFileLogging(level slog.Level) error {
	dir, err := Dir()
	if err != nil {
		return err
	}

	writer := &lumberjack.Logger{
		Filename:   filepath.Join(dir, "quill.log"),
		MaxSize:    5, // megabytes
		MaxBackups: 3,
		MaxAge:     14, // days
	}

	handler := slog.NewTextHandler(writer, &slog.HandlerOptions{Level: level})
	slog.SetDefault(slog.New(handler))
	return nil
}
