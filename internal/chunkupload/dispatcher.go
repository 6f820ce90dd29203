package chunkupload

import (
	"context"
	"fmt"
	"log/slog"
	stdsync "sync"

	"golang.org/x/sync/semaphore"
)

// maxParallelChunks is the dispatcher's parallelism bound: a design
// constant, not configurable (spec §4.3).
const maxParallelChunks = 3

// dispatchEvent is the union the dispatcher's single coordinator goroutine
// folds in order — either a ChunkProgress tick or a terminal ChunkStatus
// for one chunk. Using one channel for both guarantees progress and
// completion for the same chunk are never reordered relative to each other,
// matching the teacher's WorkerPool pattern of funnelling all worker
// outcomes through one channel read by one goroutine
// (internal/sync/worker.go).
type dispatchEvent struct {
	progress *ChunkProgress
	status   *ChunkStatus
}

// runOutcome is what one dispatcher.run pass resolves to.
type runOutcome struct {
	// done is true once every chunk index is in the accumulator's
	// Completes set.
	done bool

	// err is non-nil only for a tripped error threshold
	// (ErrMultipleChunkUploadError). An outcome with done=false and
	// err=nil means the pass ended without a terminal result: either it was
	// cancelled (pause or abort), or every attempt returned with some
	// chunks failed below the threshold. Partial progress is preserved in
	// the accumulator for the next pass in both cases.
	err error
}

// dispatcher uploads the chunks a session doesn't already have, with
// bounded parallelism and per-run error-threshold tracking. A dispatcher
// instance is reused across pause/resume cycles within one engine life —
// each chunk's own completed state (recorded in acc.Completes) persists
// across passes, so a resumed pass never re-uploads a chunk that finished
// before the pause. Only Reset (called on Start and on Retry) clears it.
type dispatcher struct {
	poster Poster
	cfg    *Config
	logger *slog.Logger

	slices []Blob
	meta   *FileMeta

	mu  stdsync.Mutex
	acc *DispatcherAccumulator
}

func newDispatcher(poster Poster, cfg *Config, logger *slog.Logger, slices []Blob, meta *FileMeta) *dispatcher {
	d := &dispatcher{poster: poster, cfg: cfg, logger: logger, slices: slices, meta: meta}
	d.Reset()

	return d
}

// Reset starts a fresh accumulator, pre-seeded from the server's
// uploadedChunks (spec §4.3/§9: without pre-seeding a resumed upload can
// never reach |completes| == chunks).
func (d *dispatcher) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.acc = newAccumulator(d.meta)
}

// threshold is 3 once there are more than 3 chunks, else 1 (spec §4.3).
func (d *dispatcher) threshold() int {
	if d.meta.Chunks > 3 { //nolint:mnd // matches spec's literal threshold constants
		return 3
	}

	return 1
}

// run uploads every chunk not yet in the accumulator's Completes set, at
// most maxParallelChunks concurrently, folding results on a single
// coordinator goroutine. progress is invoked (from the coordinator only,
// so never concurrently) once per ChunkProgress observed. run returns when
// every chunk completes, the error threshold trips, every launched attempt
// has returned with some chunks failed below the threshold, or ctx is
// cancelled (pause or abort) — in the last two cases outcome.done and
// outcome.err are both zero and the caller is expected to call run again
// later (a new pass, or resume) or not at all (abort).
func (d *dispatcher) run(ctx context.Context, progress func(ChunkProgress)) runOutcome {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	events := make(chan dispatchEvent)
	sem := semaphore.NewWeighted(maxParallelChunks)

	var wg stdsync.WaitGroup

	pending := d.pendingIndices()

	// The launch loop runs on its own goroutine so fold (below) is already
	// draining events while later chunks wait for a semaphore slot.
	go func() {
		for _, idx := range pending {
			idx := idx

			if err := sem.Acquire(runCtx, 1); err != nil {
				// Context cancelled before this chunk could even start.
				break
			}

			wg.Add(1)

			go func() {
				defer wg.Done()
				defer sem.Release(1)

				d.attemptChunk(runCtx, idx, events)
			}()
		}

		wg.Wait()
		close(events)
	}()

	return d.fold(runCtx, cancel, events, progress)
}

// pendingIndices returns chunk indices not yet in Completes, in ascending
// order — "remaining chunks queue in index order and start as slots free
// up" (spec §4.3). Concurrency is bounded by the semaphore in run: its
// launch loop acquires a slot before starting each chunk's goroutine, in
// this order, so the semaphore acts as the queue and no separate queue
// data structure is needed.
func (d *dispatcher) pendingIndices() []uint32 {
	d.mu.Lock()
	defer d.mu.Unlock()

	pending := make([]uint32, 0, len(d.slices))

	for i := uint32(0); i < d.meta.Chunks; i++ {
		if _, done := d.acc.Completes[i]; done {
			continue
		}

		pending = append(pending, i)
	}

	return pending
}

// attemptChunk uploads one chunk and reports its terminal ChunkStatus (and
// any progress ticks observed along the way) on events. Never returns an
// error to the caller directly — failures are counted by fold, per spec
// §4.3 ("the error is not propagated directly; it is counted").
func (d *dispatcher) attemptChunk(ctx context.Context, index uint32, events chan<- dispatchEvent) {
	blob := d.slices[index]

	cb := func(loaded uint64) {
		select {
		case events <- dispatchEvent{progress: &ChunkProgress{Index: index, Loaded: loaded}}:
		case <-ctx.Done():
		}
	}

	_, err := d.poster.Post(ctx, PostRequest{
		URL:         d.cfg.GetChunkURL(d.meta, index),
		Body:        blob.Reader(),
		ContentType: "application/octet-stream",
		ContentLen:  blob.Size(),
		Headers:     d.cfg.headers(),
		Progress:    cb,
	})

	if err != nil && ctx.Err() != nil {
		// The attempt was abandoned by Pause or Abort, not a genuine
		// transport failure — the chunk is simply absent server-side and
		// retried on the next pass, exactly as if it had never started.
		// Counting this against the error threshold would let repeated
		// pause/resume cycles falsely trip MultipleChunkUploadError.
		return
	}

	status := ChunkStatus{Index: index, Completed: err == nil}

	if err != nil {
		d.logger.Warn("chunk upload failed",
			slog.Int("index", int(index)),
			slog.String("error", err.Error()),
		)

		status.Err = wrapChunkErr(index, err)
	} else {
		d.logger.Debug("chunk upload complete", slog.Int("index", int(index)))
	}

	select {
	case events <- dispatchEvent{status: &status}:
	case <-ctx.Done():
	}
}

// fold is the dispatcher's single coordinator: it is the only goroutine
// that ever mutates d.acc, so no locking is needed while a run is in
// flight (spec §5: "progress callbacks, the aggregator... observe a total
// order and do not require locks").
func (d *dispatcher) fold(
	ctx context.Context, cancel context.CancelFunc, events <-chan dispatchEvent, progress func(ChunkProgress),
) runOutcome {
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return d.evaluate()
			}

			if ev.progress != nil && progress != nil {
				progress(*ev.progress)
			}

			if ev.status != nil {
				outcome, tripped := d.foldStatus(*ev.status)
				if tripped {
					cancel()

					// Drain remaining in-flight attempts so their
					// goroutines don't leak, then return the tripped
					// outcome.
					for range events { //nolint:revive // intentional drain
					}

					return outcome
				}

				if outcome.done {
					cancel()

					for range events { //nolint:revive // intentional drain
					}

					return outcome
				}
			}
		case <-ctx.Done():
			// Pause or abort: stop folding new events, let in-flight
			// attempts unwind on their own (they also observe ctx.Done).
			for range events { //nolint:revive // intentional drain
			}

			return runOutcome{}
		}
	}
}

// foldStatus folds one ChunkStatus into the accumulator and reports
// whether the run has now reached a terminal outcome (threshold tripped or
// every chunk complete).
func (d *dispatcher) foldStatus(status ChunkStatus) (runOutcome, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if status.Completed {
		d.acc.Completes[status.Index] = struct{}{}
		delete(d.acc.Errors, status.Index)
	} else {
		err := status.Err
		if err == nil {
			err = fmt.Errorf("chunk %d failed", status.Index)
		}

		d.acc.Errors[status.Index] = err
	}

	if len(d.acc.Errors) >= d.threshold() {
		errs := d.acc.Errors
		d.acc.Errors = make(map[uint32]error)

		return runOutcome{err: newMultipleChunkUploadError(errs)}, true
	}

	if uint32(len(d.acc.Completes)) == d.meta.Chunks { //nolint:gosec // chunk counts fit uint32
		return runOutcome{done: true}, true
	}

	return runOutcome{}, false
}

// evaluate reports the final state once the events channel has closed
// (every launched attempt returned) without a mid-run terminal outcome —
// done when a pass started with zero pending chunks (already complete),
// otherwise a zero outcome because some chunks failed below the threshold
// and are still missing from Completes.
func (d *dispatcher) evaluate() runOutcome {
	d.mu.Lock()
	defer d.mu.Unlock()

	if uint32(len(d.acc.Completes)) == d.meta.Chunks { //nolint:gosec // chunk counts fit uint32
		return runOutcome{done: true}
	}

	return runOutcome{}
}
