package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"golang.org/x/term"

	"shardkeep/internal/config"
	"shardkeep/internal/vault"
	"shardkeep/internal/web"
)

func main() {
	level := parseLogLevel(os.Getenv("SHARD_DEBUG_LEVEL"))
	pretty := strings.EqualFold(os.Getenv("SHARD_LOG_PRETTY"), "1") || strings.EqualFold(os.Getenv("SHARD_LOG_PRETTY"), "true")
	if strings.TrimSpace(os.Getenv("DEV")) != "" {
		file, err := os.Create("dev.log")
		if err != nil {
			slog.Error("open log file", "path", "dev.log", "err", err)
		} else {
			defer file.Close()
			_, _ = fmt.Fprintf(file, "=== shardkeep dev log start %s ===\n", time.Now().Format(time.RFC3339))
			fileHandler := slog.NewTextHandler(file, &slog.HandlerOptions{Level: slog.LevelDebug})
			consoleHandler := newPrettyHandler(os.Stdout, level)
			if !pretty {
				consoleHandler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})
			}
			slog.SetDefault(slog.New(&teeHandler{handlers: []slog.Handler{consoleHandler, fileHandler}}))
		}
	} else {
		var handler slog.Handler
		if pretty {
			handler = newPrettyHandler(os.Stdout, level)
		} else {
			handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})
		}
		slog.SetDefault(slog.New(handler))
	}

	cfg := config.Load()
	if cfg.VaultDir == "" {
		slog.Error("SHARD_VAULT_DIR is required")
		os.Exit(1)
	}
	if vault.StatusOf(cfg.VaultDir) == vault.StatusNew {
		slog.Error("no vault found, create one first", "dir", cfg.VaultDir, "hint", "go run ./cmd/vault-init")
		os.Exit(1)
	}

	password := cfg.Password
	if password == "" {
		var err error
		password, err = promptPassword("Vault password: ")
		if err != nil {
			slog.Error("read password", "err", err)
			os.Exit(1)
		}
	}

	v, err := vault.Open(cfg.VaultDir, password)
	if errors.Is(err, vault.ErrWrongPassword) {
		slog.Error("wrong vault password")
		os.Exit(1)
	}
	if err != nil {
		slog.Error("open vault", "err", err)
		os.Exit(1)
	}
	defer v.Close()
	v.SetBusyTimeout(cfg.DBBusyTimeout)

	assets := web.NewAssetServer(v, cfg.AssetHost, cfg.AssetCache)
	if err := assets.Start(); err != nil {
		slog.Error("start asset server", "err", err)
		os.Exit(1)
	}
	defer assets.Close()

	srv := web.NewServer(cfg, v, assets)
	slog.Info("listening", "addr", cfg.ListenAddr, "vault", cfg.VaultDir)
	if err := http.ListenAndServe(cfg.ListenAddr, srv.Handler()); err != nil {
		slog.Error("server error", "err", err)
		os.Exit(1)
	}
}

func promptPassword(prompt string) (string, error) {
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return "", errors.New("SHARD_PASSWORD is not set and stdin is not a terminal")
	}
	fmt.Fprint(os.Stderr, prompt)
	pass, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	return strings.TrimSpace(string(pass)), nil
}

func parseLogLevel(raw string) slog.Leveler {
	level := new(slog.LevelVar)
	level.Set(slog.LevelInfo)
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "debug":
		level.Set(slog.LevelDebug)
	case "info":
		level.Set(slog.LevelInfo)
	case "warn", "warning":
		level.Set(slog.LevelWarn)
	case "error":
		level.Set(slog.LevelError)
	}
	return level
}

type teeHandler struct {
	handlers []slog.Handler
}

func (t *teeHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range t.handlers {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (t *teeHandler) Handle(ctx context.Context, record slog.Record) error {
	for _, h := range t.handlers {
		if h.Enabled(ctx, record.Level) {
			if err := h.Handle(ctx, record); err != nil {
				return err
			}
		}
	}
	return nil
}

func (t *teeHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	out := make([]slog.Handler, 0, len(t.handlers))
	for _, h := range t.handlers {
		out = append(out, h.WithAttrs(attrs))
	}
	return &teeHandler{handlers: out}
}

func (t *teeHandler) WithGroup(name string) slog.Handler {
	out := make([]slog.Handler, 0, len(t.handlers))
	for _, h := range t.handlers {
		out = append(out, h.WithGroup(name))
	}
	return &teeHandler{handlers: out}
}

type prettyHandler struct {
	w            io.Writer
	level        slog.Leveler
	colorEnabled bool
	attrs        []slog.Attr
	groups       []string
}

func newPrettyHandler(w io.Writer, level slog.Leveler) slog.Handler {
	return &prettyHandler{
		w:            w,
		level:        level,
		colorEnabled: isTerminalWriter(w),
	}
}

func (h *prettyHandler) Enabled(_ context.Context, lvl slog.Level) bool {
	return lvl >= h.level.Level()
}

func (h *prettyHandler) Handle(_ context.Context, r slog.Record) error {
	if !h.Enabled(context.Background(), r.Level) {
		return nil
	}
	var b strings.Builder
	b.WriteString(r.Time.Format("2006-01-02 15:04:05"))
	b.WriteString(" ")
	b.WriteString(colorizeLevel(r.Level, h.colorEnabled))
	b.WriteString(" ")
	b.WriteString(r.Message)
	b.WriteString("\n")
	for _, attr := range h.attrs {
		h.writeAttr(&b, attr)
	}
	r.Attrs(func(attr slog.Attr) bool {
		h.writeAttr(&b, attr)
		return true
	})
	b.WriteString("\n")
	_, err := io.WriteString(h.w, b.String())
	return err
}

func (h *prettyHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &prettyHandler{
		w:            h.w,
		level:        h.level,
		colorEnabled: h.colorEnabled,
		attrs:        append(append([]slog.Attr{}, h.attrs...), attrs...),
		groups:       append([]string{}, h.groups...),
	}
}

func (h *prettyHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	return &prettyHandler{
		w:            h.w,
		level:        h.level,
		colorEnabled: h.colorEnabled,
		attrs:        append([]slog.Attr{}, h.attrs...),
		groups:       append(append([]string{}, h.groups...), name),
	}
}

func (h *prettyHandler) writeAttr(b *strings.Builder, attr slog.Attr) {
	if attr.Equal(slog.Attr{}) {
		return
	}
	key := attr.Key
	if len(h.groups) > 0 {
		key = strings.Join(h.groups, ".") + "." + key
	}
	value := attr.Value
	if value.Kind() == slog.KindGroup {
		groupHandler := &prettyHandler{
			w:      h.w,
			level:  h.level,
			attrs:  h.attrs,
			groups: append(append([]string{}, h.groups...), key),
		}
		for _, child := range value.Group() {
			groupHandler.writeAttr(b, child)
		}
		return
	}
	b.WriteString("  ")
	b.WriteString(key)
	b.WriteString(": ")
	b.WriteString(value.String())
	b.WriteString("\n")
}

const (
	colorReset = "\x1b[0m"
	colorDebug = "\x1b[36m"
	colorInfo  = "\x1b[32m"
	colorWarn  = "\x1b[33m"
	colorError = "\x1b[31m"
)

func colorizeLevel(level slog.Level, enabled bool) string {
	label := level.String()
	if !enabled {
		return label
	}
	switch {
	case level <= slog.LevelDebug:
		return colorDebug + label + colorReset
	case level < slog.LevelWarn:
		return colorInfo + label + colorReset
	case level < slog.LevelError:
		return colorWarn + label + colorReset
	default:
		return colorError + label + colorReset
	}
}

func isTerminalWriter(w io.Writer) bool {
	if file, ok := w.(*os.File); ok {
		return term.IsTerminal(int(file.Fd()))
	}
	return false
}
