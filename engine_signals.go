package main

import (
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/tonimelisma/chunkupload/internal/chunkupload"
)

// installEngineSignals wires the four control-plane signals (pause.go,
// resume.go, retry.go, abort.go) onto the running engine. Returns a stop
// function that releases the signal subscription; callers defer it.
func installEngineSignals(engine *chunkupload.Engine, logger *slog.Logger) (stop func()) {
	sigCh := make(chan os.Signal, 4)
	signal.Notify(sigCh, syscall.SIGHUP, syscall.SIGUSR1, syscall.SIGUSR2, syscall.SIGWINCH)

	done := make(chan struct{})

	go func() {
		for {
			select {
			case sig := <-sigCh:
				switch sig {
				case syscall.SIGHUP:
					logger.Info("received pause signal")
					engine.Pause()
				case syscall.SIGUSR1:
					logger.Info("received resume signal")
					engine.Resume()
				case syscall.SIGUSR2:
					logger.Info("received retry signal")
					engine.Retry()
				case syscall.SIGWINCH:
					logger.Info("received abort signal")
					engine.Abort()
				}
			case <-done:
				return
			}
		}
	}()

	return func() {
		signal.Stop(sigCh)
		close(done)
	}
}
