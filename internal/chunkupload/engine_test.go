package chunkupload

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func collectEvents(t *testing.T, e *Engine, timeout time.Duration) []UploadEvent {
	t.Helper()

	var events []UploadEvent

	deadline := time.After(timeout)

	for {
		select {
		case ev, ok := <-e.Events():
			if !ok {
				return events
			}

			events = append(events, ev)
		case <-deadline:
			t.Fatal("timed out waiting for engine events")

			return nil
		}
	}
}

func kindsOf(events []UploadEvent) []EventKind {
	kinds := make([]EventKind, len(events))
	for i, ev := range events {
		kinds[i] = ev.Kind
	}

	return kinds
}

// Scenario 1: a clean upload of 5 chunks, no failures, no pause. Checks the
// exact non-progress event skeleton against the worked example in spec §8:
// start, pausable(true), retryable(false), chunkstart, ..., pausable(false),
// retryable(false), finish.
func TestEngineCleanUpload(t *testing.T) {
	poster := newFakePoster(5, 10, 46)
	cfg := testConfig(poster, 46)
	blob := newMemBlob(46)

	e := New(poster, cfg, blob, nil)

	events := collectEvents(t, e, time.Second)

	require.NoError(t, e.Wait())
	require.True(t, poster.finishCall)

	var skeleton []UploadEvent

	for _, ev := range events {
		if ev.Kind != EventProgress {
			skeleton = append(skeleton, ev)
		}
	}

	require.Len(t, skeleton, 7)
	require.Equal(t, EventStart, skeleton[0].Kind)
	require.Equal(t, UploadEvent{Kind: EventPausable, Flag: true}, skeleton[1])
	require.Equal(t, UploadEvent{Kind: EventRetryable, Flag: false}, skeleton[2])
	require.Equal(t, EventChunkStart, skeleton[3].Kind)
	require.Equal(t, UploadEvent{Kind: EventPausable, Flag: false}, skeleton[4])
	require.Equal(t, UploadEvent{Kind: EventRetryable, Flag: false}, skeleton[5])
	require.Equal(t, EventFinish, skeleton[6].Kind)
}

// Scenario 2: resuming against a session that already reports some chunks
// uploaded — those chunks must never be re-PUT.
func TestEngineResumesFromServerSideState(t *testing.T) {
	poster := newFakePoster(5, 10, 46)
	poster.markPreUploaded(0, 1, 2)

	cfg := testConfig(poster, 46)
	blob := newMemBlob(46)

	e := New(poster, cfg, blob, nil)

	collectEvents(t, e, time.Second)

	require.NoError(t, e.Wait())
	require.Equal(t, 0, poster.chunkCallCount(0))
	require.Equal(t, 0, poster.chunkCallCount(1))
	require.Equal(t, 0, poster.chunkCallCount(2))
	require.Equal(t, 1, poster.chunkCallCount(3))
	require.Equal(t, 1, poster.chunkCallCount(4))
}

// Scenario 3: two transient chunk failures, below the error threshold for
// a >3-chunk session, still converge on success without any user action.
func TestEngineRecoversFromBelowThresholdFailures(t *testing.T) {
	poster := newFakePoster(6, 10, 55)
	poster.failNextN(0, 1)
	poster.failNextN(1, 1)

	cfg := testConfig(poster, 55)
	blob := newMemBlob(55)

	e := New(poster, cfg, blob, nil)

	collectEvents(t, e, time.Second)

	require.NoError(t, e.Wait())
	require.True(t, poster.finishCall)
}

// Scenario 4: three permanently-failing distinct chunks trip the
// threshold; the engine surfaces a retryable MultipleChunkUploadError and
// only proceeds once Retry is called.
func TestEngineThresholdTripThenRetry(t *testing.T) {
	poster := newFakePoster(6, 10, 55)
	poster.failNextN(0, 100)
	poster.failNextN(1, 100)
	poster.failNextN(2, 100)

	cfg := testConfig(poster, 55)
	blob := newMemBlob(55)

	e := New(poster, cfg, blob, nil)

	// Wait for the retryable error event before clearing the failures and
	// calling Retry.
	var sawRetryableErr bool

	deadline := time.After(time.Second)

	for !sawRetryableErr {
		select {
		case ev := <-e.Events():
			if ev.Kind == EventError {
				require.ErrorIs(t, ev.Err, ErrMultipleChunkUploadError)

				sawRetryableErr = true
			}
		case <-deadline:
			t.Fatal("timed out waiting for MultipleChunkUploadError event")
		}
	}

	poster.failNextN(0, 0)
	poster.failNextN(1, 0)
	poster.failNextN(2, 0)

	e.Retry()

	// Drain remaining events until the stream closes.
	for {
		select {
		case _, ok := <-e.Events():
			if !ok {
				goto drained
			}
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for stream to close after Retry")
		}
	}

drained:
	require.NoError(t, e.Wait())
	require.True(t, poster.finishCall)
}

// Scenario 5: pausing mid-upload, then resuming, still completes with every
// chunk posted at least once and the pausable flag toggled.
func TestEnginePauseThenResume(t *testing.T) {
	poster := newFakePoster(10, 10, 91)

	cfg := testConfig(poster, 91)
	blob := newMemBlob(91)

	e := New(poster, cfg, blob, nil)

	// Let at least one chunk-start/progress event through, then pause.
	for {
		ev := <-e.Events()
		if ev.Kind == EventProgress {
			break
		}
	}

	e.Pause()

	time.Sleep(20 * time.Millisecond)

	e.Resume()

	events := collectEvents(t, e, 2*time.Second)

	require.NoError(t, e.Wait())
	require.True(t, poster.finishCall)

	for i := uint32(0); i < poster.chunks; i++ {
		require.GreaterOrEqual(t, poster.chunkCallCount(i), 1)
	}

	// Pause toggles pausable(false), resume toggles it back to true, per
	// spec §4.6 ("pausable(false) on pause; pausable(true) on resume").
	require.Contains(t, events, UploadEvent{Kind: EventPausable, Flag: false})
	require.Contains(t, events, UploadEvent{Kind: EventPausable, Flag: true})
}

// Scenario 6: aborting mid-upload ends the stream with no EventFinish and
// Wait reports ErrAborted.
func TestEngineAbortMidUpload(t *testing.T) {
	poster := newFakePoster(10, 10, 91)

	cfg := testConfig(poster, 91)
	blob := newMemBlob(91)

	e := New(poster, cfg, blob, nil)

	for {
		ev := <-e.Events()
		if ev.Kind == EventProgress {
			break
		}
	}

	e.Abort()

	events := collectEvents(t, e, time.Second)

	for _, ev := range events {
		require.NotEqual(t, EventFinish, ev.Kind)
	}

	// Spec §4.6/§5: abort's cleanup events (pausable(false), retryable(false))
	// precede stream completion.
	require.GreaterOrEqual(t, len(events), 2)
	last := len(events)
	require.Equal(t, UploadEvent{Kind: EventRetryable, Flag: false}, events[last-1])
	require.Equal(t, UploadEvent{Kind: EventPausable, Flag: false}, events[last-2])

	err := e.Wait()
	require.ErrorIs(t, err, ErrAborted)
}

func TestEngineAutoStartFalseRequiresExplicitStart(t *testing.T) {
	poster := newFakePoster(2, 10, 15)
	cfg := testConfig(poster, 15)
	cfg.AutoStart = false

	blob := newMemBlob(15)

	e := New(poster, cfg, blob, nil)

	select {
	case <-e.Events():
		t.Fatal("expected no events before Start is called")
	case <-time.After(50 * time.Millisecond):
	}

	e.Start()

	collectEvents(t, e, time.Second)
	require.NoError(t, e.Wait())
}
