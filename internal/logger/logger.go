// SPDX-FileCopyrightText: 2025 The Ferrite Authors
// SPDX-License-Identifier: Apache-2.0

// Package logger builds the process-wide slog.Logger from the configured
// level and format.
package logger

import (
	"io"
	"log/slog"
	"path/filepath"
	"strings"
)

// New creates a logger writing to w. Level is one of debug, info, warn,
// error; format is text or json. Unknown values fall back to info/text.
func New(level, format string, w io.Writer) *slog.Logger {
	return slog.New(handlerFor(format, ParseLevel(level), w))
}

// ParseLevel maps a level name to its slog.Level, defaulting to info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func handlerFor(format string, level slog.Level, w io.Writer) slog.Handler {
	if format == "json" {
		return slog.NewJSONHandler(w, &slog.HandlerOptions{
			Level:     level,
			AddSource: true,
		})
	}

	return slog.NewTextHandler(w, &slog.HandlerOptions{
		Level:     level,
		AddSource: true,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			// Trim source paths to pkg/file.go so log lines stay short.
			if a.Key == slog.SourceKey {
				if src, ok := a.Value.Any().(*slog.Source); ok {
					parts := strings.Split(filepath.ToSlash(src.File), "/")
					if len(parts) > 1 {
						src.File = filepath.Join(parts[len(parts)-2], parts[len(parts)-1])
					}
				}
			}
			return a
		},
	})
}
