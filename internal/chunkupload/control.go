package chunkupload

import "sync"

// control holds the four user-driven signals the engine's run loop selects
// on: start, pause/resume, retry, and abort. Spec §4.5 describes these as
// takeUntil(pause$)/repeatWhen(resume$)/takeUntil(abort$) operators over a
// reactive stream; here they become plain channels read by one goroutine
// (engine.run), each signal coalesced to its latest value so a caller that
// calls Pause twice in a row without the engine observing the first call
// doesn't block or queue two pauses.
type control struct {
	startCh  chan struct{}
	pauseCh  chan bool // true = pause, false = resume
	retryCh  chan struct{}
	abortCh  chan struct{}

	mu      sync.Mutex
	started bool
	aborted bool
}

func newControl() *control {
	return &control{
		startCh: make(chan struct{}, 1),
		pauseCh: make(chan bool, 1),
		retryCh: make(chan struct{}, 1),
		abortCh: make(chan struct{}, 1),
	}
}

// signal coalesces sends onto a channel of capacity 1: if a value is
// already pending, it is replaced rather than blocking the caller or
// growing a queue.
func signal[T any](ch chan T, v T) {
	select {
	case ch <- v:
	default:
		select {
		case <-ch:
		default:
		}

		select {
		case ch <- v:
		default:
		}
	}
}

// Start requests the engine begin its first dispatcher pass. A no-op after
// the first call.
func (c *control) Start() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.started || c.aborted {
		return
	}

	c.started = true

	signal(c.startCh, struct{}{})
}

// Pause requests the run loop cancel the current dispatcher pass without
// finishing. Resume requests it begin a new pass picking up where the
// accumulator left off. Both are no-ops after Abort.
func (c *control) Pause() { c.setPause(true) }

func (c *control) Resume() { c.setPause(false) }

func (c *control) setPause(paused bool) {
	c.mu.Lock()
	aborted := c.aborted
	c.mu.Unlock()

	if aborted {
		return
	}

	signal(c.pauseCh, paused)
}

// Retry requests the run loop reset the dispatcher's accumulator and start
// a fresh pass. Meaningful only after a MultipleChunkUploadError event; the
// run loop ignores it otherwise. A no-op after Abort.
func (c *control) Retry() {
	c.mu.Lock()
	aborted := c.aborted
	c.mu.Unlock()

	if aborted {
		return
	}

	signal(c.retryCh, struct{}{})
}

// Abort requests the run loop stop permanently. Idempotent: only the first
// call has any effect.
func (c *control) Abort() {
	c.mu.Lock()
	if c.aborted {
		c.mu.Unlock()

		return
	}

	c.aborted = true
	c.mu.Unlock()

	signal(c.abortCh, struct{}{})
}

func (c *control) isAborted() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.aborted
}
