// Package logging sets up the bot's two log streams. The bot log goes to
// stdout and a file; HTTP traffic goes to a separate requests file so the
// bot log stays readable.
package logging

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"wikijournalbot/pkg/config"
)

// RequestLogger receives per-request lines from the HTTP clients. It
// discards everything until Init runs.
var RequestLogger = slog.New(slog.DiscardHandler)

// Init installs the bot log as slog's default and opens the requests log.
// Files from the previous run are kept with a .old suffix. The returned
// func closes both files.
func Init(cfg *config.LogConfig) (func(), error) {
	botFile, err := openLog(cfg.Bot.Path)
	if err != nil {
		return nil, fmt.Errorf("bot log: %w", err)
	}
	reqFile, err := openLog(cfg.Requests.Path)
	if err != nil {
		botFile.Close()
		return nil, fmt.Errorf("requests log: %w", err)
	}

	level := ParseLevel(cfg.Bot.Level)
	slog.SetDefault(slog.New(tee{
		fileHandler(botFile, level),
		slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: max(level, slog.LevelInfo)}),
	}))
	RequestLogger = slog.New(fileHandler(reqFile, ParseLevel(cfg.Requests.Level)))

	return func() {
		botFile.Close()
		reqFile.Close()
	}, nil
}

// ParseLevel accepts slog level names in any case plus "warning", and falls
// back to INFO.
func ParseLevel(s string) slog.Level {
	s = strings.TrimSpace(s)
	if strings.EqualFold(s, "warning") {
		return slog.LevelWarn
	}
	var l slog.Level
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo
	}
	return l
}

func openLog(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	if _, err := os.Stat(path); err == nil {
		if err := os.Rename(path, path+".old"); err != nil {
			return nil, err
		}
	}
	return os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
}

func fileHandler(w io.Writer, level slog.Level) slog.Handler {
	return slog.NewTextHandler(w, &slog.HandlerOptions{
		Level:     level,
		AddSource: level <= slog.LevelDebug,
	})
}

// tee hands each record to every handler that accepts its level.
type tee []slog.Handler

func (t tee) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range t {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

//nolint:gocritic // slog.Handler takes the record by value
func (t tee) Handle(ctx context.Context, r slog.Record) error {
	var errs []error
	for _, h := range t {
		if h.Enabled(ctx, r.Level) {
			errs = append(errs, h.Handle(ctx, r.Clone()))
		}
	}
	return errors.Join(errs...)
}

func (t tee) WithAttrs(attrs []slog.Attr) slog.Handler {
	out := make(tee, len(t))
	for i, h := range t {
		out[i] = h.WithAttrs(attrs)
	}
	return out
}

func (t tee) WithGroup(name string) slog.Handler {
	out := make(tee, len(t))
	for i, h := range t {
		out[i] = h.WithGroup(name)
	}
	return out
}
