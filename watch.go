package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/tonimelisma/chunkupload/internal/chunkupload"
	"github.com/tonimelisma/chunkupload/internal/config"
	"github.com/tonimelisma/chunkupload/internal/history"
)

// settleDelay is how long a watched file must go unmodified before it is
// considered ready to upload — guards against starting a session-open
// while the producer is still writing the file.
const settleDelay = 2 * time.Second

// watchDirPermissions matches the teacher's data-directory convention.
const watchDirPermissions = 0o755

func newWatchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Watch the configured drop folder and upload files as they arrive",
		Long: `Run as a foreground daemon: watch the target's watch_dir for new
files and upload each one in turn via the same engine "upload" uses.

Writes a PID file so "pause", "resume", "retry", and "abort" run from
another terminal reach this process's currently-active upload. Exits
on SIGINT/SIGTERM once the in-flight upload reaches a terminal state.`,
		RunE: runWatch,
	}
}

func runWatch(cmd *cobra.Command, _ []string) error {
	cc := mustCLIContext(cmd.Context())
	ctx := cmd.Context()

	dir := cc.Cfg.Target.WatchDir
	if err := os.MkdirAll(dir, watchDirPermissions); err != nil {
		return fmt.Errorf("creating watch directory %s: %w", dir, err)
	}

	cleanupPID, err := writePIDFile(config.PIDFilePath())
	if err != nil {
		return err
	}
	defer cleanupPID()

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating filesystem watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watching %s: %w", dir, err)
	}

	store, err := history.Open(ctx, config.HistoryDBPath(), cc.Logger)
	if err != nil {
		return fmt.Errorf("opening history ledger: %w", err)
	}
	defer store.Close()

	shutdownCtx := shutdownContext(ctx, cc.Logger)

	cc.Statusf("Watching %s for new files\n", dir)

	pending := make(map[string]*time.Timer)
	ready := make(chan string, 16)

	defer func() {
		for _, t := range pending {
			t.Stop()
		}
	}()

	for {
		select {
		case <-shutdownCtx.Done():
			cc.Statusf("Shutting down watch daemon\n")

			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}

			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
				continue
			}

			scheduleSettle(pending, ready, event.Name)

		case werr, ok := <-watcher.Errors:
			if !ok {
				return nil
			}

			cc.Logger.Warn("watcher error", slog.String("error", werr.Error()))

		case name := <-ready:
			delete(pending, name)

			if err := processWatchedFile(shutdownCtx, cc, store, name); err != nil {
				cc.Logger.Warn("upload failed", slog.String("file", name), slog.String("error", err.Error()))
			}
		}
	}
}

// scheduleSettle (re)starts the settle timer for path, coalescing repeated
// write events from a single slow copy into one eventual upload attempt.
func scheduleSettle(pending map[string]*time.Timer, ready chan<- string, path string) {
	if t, exists := pending[path]; exists {
		t.Stop()
	}

	pending[path] = time.AfterFunc(settleDelay, func() {
		ready <- path
	})
}

// processWatchedFile runs one file through the same engine upload.go uses,
// logging instead of rendering an interactive progress bar since this runs
// unattended.
func processWatchedFile(ctx context.Context, cc *CLIContext, store *history.Store, path string) error {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil // removed before it settled
		}

		return fmt.Errorf("statting %s: %w", path, err)
	}

	if info.IsDir() {
		return nil
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	recordID, err := store.Begin(ctx, filepath.Base(path), info.Size())
	if err != nil {
		return fmt.Errorf("recording upload start: %w", err)
	}

	cfg, err := buildEngineConfig(ctx, cc.Cfg, cc.Logger, filepath.Base(path), info.Size())
	if err != nil {
		return fmt.Errorf("setting up authentication: %w", err)
	}
	poster := chunkupload.NewHTTPPoster(transferHTTPClient(), cc.Logger)
	blob := chunkupload.NewFileBlob(f, info.Size())

	engine := chunkupload.New(poster, cfg, blob, cc.Logger)

	stopSignals := installEngineSignals(engine, cc.Logger)
	defer stopSignals()

	abortEngineOnShutdown(ctx, engine)

	for ev := range engine.Events() {
		if ev.Kind == chunkupload.EventError {
			cc.Logger.Warn("upload event", slog.String("file", path), slog.String("error", ev.Err.Error()))
		}
	}

	finalErr := engine.Wait()

	status, detail := "finished", ""
	if errors.Is(finalErr, chunkupload.ErrAborted) {
		status, detail = "aborted", finalErr.Error()
	} else if finalErr != nil {
		status, detail = "failed", finalErr.Error()
	}

	if recErr := store.Finish(ctx, recordID, status, detail); recErr != nil {
		cc.Logger.Warn("could not record upload outcome", slog.String("error", recErr.Error()))
	}

	cc.Statusf("Uploaded %s\n", filepath.Base(path))

	return finalErr
}
