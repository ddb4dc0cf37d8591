package config

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// Editors fire several filesystem events per save; reloads coalesce
// behind this delay.
const reloadDebounce = 200 * time.Millisecond

// Watch hot-reloads the config file at path until ctx is cancelled.
// Meant to run in its own goroutine. A reload that fails to parse keeps
// the previous in-memory config; a successful one swaps it in and runs
// the RegisterOnReload callbacks.
func Watch(ctx context.Context, path string) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		slog.Warn("config watch disabled", "path", path, "error", err)
		return
	}

	var pending *time.Timer
	v.OnConfigChange(func(e fsnotify.Event) {
		if e.Op&(fsnotify.Write|fsnotify.Create) == 0 {
			return
		}
		if filepath.Clean(e.Name) != filepath.Clean(path) {
			return
		}
		if pending != nil {
			pending.Stop()
		}
		pending = time.AfterFunc(reloadDebounce, func() { reloadFrom(path) })
	})
	v.WatchConfig()

	<-ctx.Done()
	if pending != nil {
		pending.Stop()
	}
}

func reloadFrom(path string) {
	cfg, err := Load(path)
	if err != nil {
		slog.Warn("config reload failed, keeping previous", "path", path, "error", err)
		return
	}
	Set(cfg)
	notifyReload(cfg)
	slog.Info("config reloaded", "path", path)
}
