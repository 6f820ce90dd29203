package chunkupload

import (
	"context"
	"log/slog"
	"sync"
)

// Engine runs one file's three-phase upload (session-open, chunk dispatch,
// session-finish) end to end, exposing an ordered UploadEvent stream and a
// small control surface (Pause/Resume/Retry/Abort) a caller drives from
// wherever user intent arrives — a CLI signal handler, an HTTP handler, a
// UI button. It is the composition root for opener, dispatcher, finisher,
// and multiplexer; spec §4.5 describes its run loop as three RxJS
// operators (takeUntil(pause$).repeatWhen(resume$), itself wrapped in an
// outer takeUntil(abort$)) — here it is one goroutine with explicit
// context cancellation standing in for each operator.
type Engine struct {
	opener   *opener
	finisher *finisher
	control  *control
	mux      *multiplexer

	blob   Blob
	cfg    *Config
	logger *slog.Logger

	poster Poster

	doneOnce sync.Once
	done     chan struct{}
	waitErr  error
}

// New constructs an Engine for blob against cfg, using poster for all I/O.
// When cfg.AutoStart is true, the first dispatcher pass begins immediately;
// otherwise (including the zero value of Config) the caller must call Start.
func New(poster Poster, cfg *Config, blob Blob, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}

	e := &Engine{
		opener:   newOpener(poster, cfg, logger),
		finisher: newFinisher(poster, cfg),
		control:  newControl(),
		mux:      newMultiplexer(uint64(cfg.FileSize)), //nolint:gosec // FileSize is always non-negative
		blob:     blob,
		cfg:      cfg,
		logger:   logger,
		poster:   poster,
		done:     make(chan struct{}),
	}

	go e.run()

	if cfg.AutoStart {
		e.control.Start()
	}

	return e
}

// Events returns the engine's ordered output stream. It is closed exactly
// once the upload reaches a terminal state (finished, a terminal error, or
// abort).
func (e *Engine) Events() <-chan UploadEvent { return e.mux.Events() }

// Start begins the first dispatcher pass. A no-op if AutoStart already
// started it, or if called more than once.
func (e *Engine) Start() { e.control.Start() }

// Pause cancels the in-flight dispatcher pass without marking any
// not-yet-acknowledged chunk as failed; Resume begins a new pass that skips
// every chunk already recorded as complete.
func (e *Engine) Pause() { e.control.Pause() }

func (e *Engine) Resume() { e.control.Resume() }

// Retry resets the dispatcher's error tally and completed-chunk view to
// just what the server has confirmed, then starts a fresh pass. Meaningful
// only while the stream is sitting on a retryable MultipleChunkUploadError;
// harmless otherwise.
func (e *Engine) Retry() { e.control.Retry() }

// Abort stops the engine permanently. No EventFinish follows — the event
// stream simply closes (spec §7).
func (e *Engine) Abort() { e.control.Abort() }

// Wait blocks until the engine reaches a terminal state and returns the
// final error: nil on success, ErrAborted after Abort, or the terminal
// SessionOpenFailed/FinishFailed error.
func (e *Engine) Wait() error {
	<-e.done

	return e.waitErr
}

func (e *Engine) finish(err error) {
	e.doneOnce.Do(func() {
		e.waitErr = err
		close(e.done)
	})

	e.mux.Close()
}

// emitTerminalCleanup marks the stream as neither pausable nor retryable
// immediately before it closes. Spec §4.6/§5: every terminal path (a
// successful finish, abort, or a non-retryable terminal error) ends this
// way, so this is called once on every return path out of run/runPasses,
// always before the path's own closing event (finish, or nothing at all
// for abort) so "finish is the last event" and "on abort: pausable(false),
// retryable(false), then stream completes" both hold.
func (e *Engine) emitTerminalCleanup() {
	e.mux.emitPausable(false)
	e.mux.emitRetryable(false)
}

func (e *Engine) run() {
	select {
	case <-e.control.startCh:
	case <-e.control.abortCh:
		e.emitTerminalCleanup()
		e.finish(ErrAborted)

		return
	}

	e.mux.emitStart()
	e.mux.emitPausable(true)
	e.mux.emitRetryable(false)

	ctx, cancelAll := context.WithCancel(context.Background())
	defer cancelAll()

	// Watches for Abort independently of the pass-level pause watcher below,
	// since Abort must cancel ctx even while no dispatcher pass is running
	// (e.g. while paused, or blocked waiting for Retry). The deferred
	// cancelAll above unblocks this goroutine's ctx.Done() case on return,
	// so it never leaks.
	go func() {
		select {
		case <-e.control.abortCh:
			cancelAll()
		case <-ctx.Done():
		}
	}()

	meta, err := e.opener.Open(ctx)
	if err != nil && ctx.Err() != nil {
		// Abort arrived while session-open was in flight.
		e.emitTerminalCleanup()
		e.finish(ErrAborted)

		return
	}

	if err != nil {
		e.emitTerminalCleanup()
		e.mux.emitError(err)
		e.finish(err)

		return
	}

	slices, err := Slice(e.blob, meta.Chunks, meta.ChunkSize)
	if err != nil {
		wrapped := wrapSessionOpenErr(err)
		e.emitTerminalCleanup()
		e.mux.emitError(wrapped)
		e.finish(wrapped)

		return
	}

	e.mux.emitChunkStart(meta)

	d := newDispatcher(e.poster, e.cfg, e.logger, slices, meta)

	e.runPasses(ctx, d, meta)
}

// runPasses drives repeated dispatcher passes, handling pause/resume,
// retry-on-threshold, abort, and the final finish call. A pass that ends
// with some chunks failed but below the error threshold is not a terminal
// state — spec §4.3's threshold exists precisely to bound how many such
// passes happen silently before the run surfaces a retryable error, so a
// naturally-incomplete pass (as opposed to one cut short by Pause) starts
// the next pass immediately rather than waiting on any signal.
func (e *Engine) runPasses(ctx context.Context, d *dispatcher, meta *FileMeta) {
	for {
		if ctx.Err() != nil {
			e.emitTerminalCleanup()
			e.finish(ErrAborted)

			return
		}

		outcome, pausedMidRun, aborted := e.runOnePass(ctx, d)
		if aborted {
			e.emitTerminalCleanup()
			e.finish(ErrAborted)

			return
		}

		switch {
		case outcome.err != nil:
			e.mux.emitRetryable(true)
			e.mux.emitError(outcome.err)

			select {
			case <-e.control.retryCh:
				d.Reset()
				e.mux.emitRetryable(false)

				continue
			case <-ctx.Done():
				e.emitTerminalCleanup()
				e.finish(ErrAborted)

				return
			}
		case outcome.done:
			e.emitTerminalCleanup()

			resp, ferr := e.finisher.finish(ctx, meta)
			if ferr != nil {
				e.mux.emitError(ferr)
				e.finish(ferr)

				return
			}

			e.mux.emitFinish(resp)
			e.finish(nil)

			return
		case pausedMidRun:
			// Wait for an actual Resume (redundant Pause calls while
			// already paused are absorbed, not treated as a reason to
			// start a new pass) or Abort.
			if !e.awaitResume(ctx) {
				e.emitTerminalCleanup()
				e.finish(ErrAborted)

				return
			}
		default:
			// Below-threshold failures with chunks still incomplete:
			// continue immediately with another pass.
		}
	}
}

// awaitResume blocks until a Resume signal arrives, reports false if ctx is
// cancelled (Abort) first. Redundant Pause signals received while already
// paused are discarded rather than ending the wait.
func (e *Engine) awaitResume(ctx context.Context) bool {
	for {
		select {
		case resumed := <-e.control.pauseCh:
			if !resumed {
				e.mux.emitPausable(true)

				return true
			}
		case <-ctx.Done():
			return false
		}
	}
}

// runOnePass runs exactly one dispatcher pass, watching for a Pause signal
// that should cancel it mid-flight. pausedMidRun is true only when Pause
// (not Abort) is what ended the pass early; aborted is true only when the
// outer context itself was already cancelled.
func (e *Engine) runOnePass(ctx context.Context, d *dispatcher) (outcome runOutcome, pausedMidRun, aborted bool) {
	passCtx, cancelPass := context.WithCancel(ctx)
	defer cancelPass()

	watchDone := make(chan struct{})

	go func() {
		defer close(watchDone)

		for {
			select {
			case paused := <-e.control.pauseCh:
				if paused {
					e.mux.emitPausable(false)
					cancelPass()

					return
				}
			case <-passCtx.Done():
				return
			}
		}
	}()

	outcome = d.run(passCtx, e.mux.emitProgress)

	// Read passCtx.Err() before our own cleanup cancel below so a pause
	// that fired during this pass is still observable here.
	pausedMidRun = passCtx.Err() != nil && ctx.Err() == nil
	aborted = ctx.Err() != nil

	cancelPass()
	<-watchDone

	return outcome, pausedMidRun, aborted
}
