package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/poiesic/ifcingest/core"
	"github.com/poiesic/ifcingest/node"
	"github.com/urfave/cli/v2"
)

func watchCommand(c *cli.Context) error {
	source, err := sourceArg(c)
	if err != nil {
		return err
	}
	target, err := filepath.Abs(source)
	if err != nil {
		return err
	}

	engine, err := newEngine(c)
	if err != nil {
		return err
	}
	defer engine.Close()
	cfg := engine.Config()

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	var adapter *node.Adapter
	adapter, err = engine.NewAdapter(
		node.WithOutputListener(func(m core.Manifest) {
			fmt.Fprintf(c.App.Writer, "%s: %d elements (%s)\n", m.Key(), m.Len(), m.Variant())
			adapter.Cleanup()
		}),
		node.WithStatusListener(func(status node.Status, message string) {
			slog.Info("status changed", "status", status, "message", message)
		}),
	)
	if err != nil {
		return err
	}
	adapter.SetInput(target)

	if cfg.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", engine.Metrics().Handler())
		srv := &http.Server{
			Addr:              cfg.MetricsAddr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			slog.Info("serving metrics", "addr", cfg.MetricsAddr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("metrics server failed", "err", err)
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			srv.Shutdown(shutdownCtx)
		}()
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer watcher.Close()

	// Editors often replace the file, so the directory is watched.
	if err := watcher.Add(filepath.Dir(target)); err != nil {
		return fmt.Errorf("failed to watch %s: %w", filepath.Dir(target), err)
	}

	slog.Info("watching model", "path", target, "debounce", cfg.WatchDebounce)
	watchFile(ctx, watcher, target, cfg.WatchDebounce, adapter.Calculate)
	return nil
}

// watchFile calls trigger once the debounce period has passed, and again
// after every burst of writes to target. A busy trigger is retried after
// another debounce period. It returns when ctx is done or the watcher closes.
func watchFile(ctx context.Context, watcher *fsnotify.Watcher, target string, debounce time.Duration, trigger func() error) {
	timer := time.NewTimer(debounce)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
				timer.Reset(debounce)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			slog.Warn("file watcher error", "err", err)
		case <-timer.C:
			err := trigger()
			switch {
			case errors.Is(err, node.ErrBusy):
				timer.Reset(debounce)
			case err != nil:
				slog.Warn("ingest not started", "path", target, "err", err)
			}
		}
	}
}
