package chunkupload

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

// opener is a lazy, replayable computation yielding one FileMeta. The first
// call to Open issues the session-open POST; every later call, from any
// goroutine, replays the cached result without re-issuing the request —
// "replay-on-subscribe" from spec §9 becomes a sync.Once-guarded cache.
type opener struct {
	poster Poster
	cfg    *Config
	logger *slog.Logger

	once sync.Once
	meta *FileMeta
	err  error
}

func newOpener(poster Poster, cfg *Config, logger *slog.Logger) *opener {
	return &opener{poster: poster, cfg: cfg, logger: logger}
}

// Open returns the cached FileMeta, issuing the session-open request on the
// first call only. Failures propagate wrapped in ErrSessionOpenFailed (the
// original error stays in the message) and are also cached — the
// teacher's client never silently retries a failed one-shot request either.
func (o *opener) Open(ctx context.Context) (*FileMeta, error) {
	o.once.Do(func() {
		o.logger.Info("opening upload session",
			slog.String("file_name", o.cfg.FileName),
			slog.Int64("file_size", o.cfg.FileSize),
		)

		body := map[string]any{
			"fileName":    o.cfg.FileName,
			"fileSize":    o.cfg.FileSize,
			"lastUpdated": o.cfg.LastUpdated,
		}

		resp, err := o.poster.Post(ctx, PostRequest{
			URL:         o.cfg.GetChunkStartURL(),
			Body:        jsonReader(body),
			ContentType: "application/json",
			ContentLen:  -1,
			Headers:     o.cfg.headers(),
		})
		if err != nil {
			o.err = wrapSessionOpenErr(err)

			return
		}

		meta, err := decodeFileMeta(resp.Decoded)
		if err != nil {
			o.err = wrapSessionOpenErr(err)

			return
		}

		if meta.FileSize != uint64(o.cfg.FileSize) { //nolint:gosec // FileSize is always non-negative
			o.err = wrapSessionOpenErr(fmt.Errorf(
				"server fileSize %d does not match blob size %d", meta.FileSize, o.cfg.FileSize,
			))

			return
		}

		o.logger.Debug("session opened",
			slog.Int("chunks", int(meta.Chunks)),
			slog.Int("already_uploaded", len(meta.UploadedChunks)),
		)

		o.meta = meta
	})

	return o.meta, o.err
}
