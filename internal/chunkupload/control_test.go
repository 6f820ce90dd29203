package chunkupload

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func recvWithTimeout[T any](t *testing.T, ch <-chan T) (T, bool) {
	t.Helper()

	select {
	case v := <-ch:
		return v, true
	case <-time.After(100 * time.Millisecond):
		var zero T

		return zero, false
	}
}

func TestControlStartIsIdempotent(t *testing.T) {
	c := newControl()

	c.Start()
	c.Start()

	_, ok := recvWithTimeout(t, c.startCh)
	require.True(t, ok)

	// The second Start should not have queued a second signal.
	select {
	case <-c.startCh:
		t.Fatal("expected exactly one start signal")
	default:
	}
}

func TestControlPauseResumeCoalesce(t *testing.T) {
	c := newControl()

	c.Pause()
	c.Pause()

	v, ok := recvWithTimeout(t, c.pauseCh)
	require.True(t, ok)
	require.True(t, v)

	c.Resume()

	v2, ok := recvWithTimeout(t, c.pauseCh)
	require.True(t, ok)
	require.False(t, v2)
}

func TestControlAbortIsIdempotentAndBlocksFurtherSignals(t *testing.T) {
	c := newControl()

	c.Abort()
	c.Abort()

	_, ok := recvWithTimeout(t, c.abortCh)
	require.True(t, ok)

	require.True(t, c.isAborted())

	c.Pause()
	c.Retry()
	c.Start()

	select {
	case <-c.pauseCh:
		t.Fatal("Pause after Abort should be a no-op")
	case <-c.retryCh:
		t.Fatal("Retry after Abort should be a no-op")
	case <-c.startCh:
		t.Fatal("Start after Abort should be a no-op")
	default:
	}
}
