package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/tonimelisma/chunkupload/internal/chunkupload"
)

// shutdownContext returns a context that cancels on the first SIGINT/SIGTERM
// and force-exits on the second. The first signal gives an in-flight engine
// run a chance to unwind through its own terminal-cleanup path (abort's
// pausable(false)/retryable(false) pair before the event stream closes)
// rather than the process dying mid-chunk; the second signal is for a run
// that hangs past that.
func shutdownContext(parent context.Context, logger *slog.Logger) context.Context {
	ctx, cancel := context.WithCancel(parent)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		defer signal.Stop(sigCh)

		select {
		case sig := <-sigCh:
			logger.Info("received signal, initiating graceful shutdown",
				slog.String("signal", sig.String()),
			)
			cancel()
		case <-ctx.Done():
			return
		}

		// Wait for second signal — force exit.
		select {
		case sig := <-sigCh:
			logger.Warn("received second signal, forcing exit",
				slog.String("signal", sig.String()),
			)
			os.Exit(1)
		case <-parent.Done():
			return
		}
	}()

	return ctx
}

// abortEngineOnShutdown arms a goroutine that calls engine.Abort() the
// moment shutdownCtx is cancelled, and returns immediately. Both "upload"
// and "watch" need this exact one-liner wired up around their engine run,
// so it lives here once instead of as an inline goroutine in each command.
func abortEngineOnShutdown(shutdownCtx context.Context, engine *chunkupload.Engine) {
	go func() {
		<-shutdownCtx.Done()
		engine.Abort()
	}()
}
