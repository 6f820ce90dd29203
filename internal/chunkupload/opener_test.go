package chunkupload

import (
	"context"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestOpenerOpensOnce(t *testing.T) {
	poster := newFakePoster(4, 10, 35)
	cfg := testConfig(poster, 35)

	o := newOpener(poster, cfg, slog.Default())

	meta1, err := o.Open(context.Background())
	require.NoError(t, err)
	require.Equal(t, uint32(4), meta1.Chunks)

	meta2, err := o.Open(context.Background())
	require.NoError(t, err)
	require.Same(t, meta1, meta2)

	require.Equal(t, 1, poster.openCalls)
}

func TestOpenerOpenIsSafeForConcurrentCallers(t *testing.T) {
	poster := newFakePoster(4, 10, 35)
	cfg := testConfig(poster, 35)

	o := newOpener(poster, cfg, slog.Default())

	var wg sync.WaitGroup

	metas := make([]*FileMeta, 10)
	errs := make([]error, 10)

	for i := range metas {
		wg.Add(1)

		go func(i int) {
			defer wg.Done()

			metas[i], errs[i] = o.Open(context.Background())
		}(i)
	}

	wg.Wait()

	for i := range metas {
		require.NoError(t, errs[i])
		require.Same(t, metas[0], metas[i])
	}

	require.Equal(t, 1, poster.openCalls)
}

func TestOpenerPropagatesAndCachesFailure(t *testing.T) {
	poster := newFakePoster(4, 10, 35)
	poster.openFails = true

	cfg := testConfig(poster, 35)
	o := newOpener(poster, cfg, slog.Default())

	_, err := o.Open(context.Background())
	require.Error(t, err)
	require.ErrorIs(t, err, ErrSessionOpenFailed)

	_, err2 := o.Open(context.Background())
	require.ErrorIs(t, err2, ErrSessionOpenFailed)
	require.Equal(t, 1, poster.openCalls)
}

func TestOpenerRejectsFileSizeMismatch(t *testing.T) {
	poster := newFakePoster(4, 10, 35)
	cfg := testConfig(poster, 999) // mismatched against poster's fileSize of 35

	o := newOpener(poster, cfg, slog.Default())

	_, err := o.Open(context.Background())
	require.Error(t, err)
	require.ErrorIs(t, err, ErrSessionOpenFailed)
}
