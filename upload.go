package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/tonimelisma/chunkupload/internal/chunkupload"
	"github.com/tonimelisma/chunkupload/internal/config"
	"github.com/tonimelisma/chunkupload/internal/history"
)

var flagProgressWS string

func newUploadCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "upload <file>",
		Short: "Upload a single file using the resumable chunked protocol",
		Long: `Upload one file: open a session, dispatch chunk PUTs with bounded
parallelism, and finish the session once every chunk is acknowledged.

Responds to the same pause/resume/retry/abort signals as "watch" (see
the pause, resume, retry, and abort subcommands), so a long-running
foreground upload can be steered from another terminal.`,
		Args: cobra.ExactArgs(1),
		RunE: runUpload,
	}

	cmd.Flags().StringVar(&flagProgressWS, "progress-ws", "", "mirror progress events to this websocket URL (best-effort)")

	return cmd
}

func runUpload(cmd *cobra.Command, args []string) error {
	cc := mustCLIContext(cmd.Context())
	ctx := cmd.Context()
	path := args[0]

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("statting %s: %w", path, err)
	}

	store, err := history.Open(ctx, config.HistoryDBPath(), cc.Logger)
	if err != nil {
		return fmt.Errorf("opening history ledger: %w", err)
	}
	defer store.Close()

	recordID, err := store.Begin(ctx, info.Name(), info.Size())
	if err != nil {
		return fmt.Errorf("recording upload start: %w", err)
	}

	cfg, err := buildEngineConfig(ctx, cc.Cfg, cc.Logger, info.Name(), info.Size())
	if err != nil {
		return fmt.Errorf("setting up authentication: %w", err)
	}
	poster := chunkupload.NewHTTPPoster(transferHTTPClient(), cc.Logger)
	blob := chunkupload.NewFileBlob(f, info.Size())

	engine := chunkupload.New(poster, cfg, blob, cc.Logger)

	stopSignals := installEngineSignals(engine, cc.Logger)
	defer stopSignals()

	cleanupPID, err := writePIDFile(config.PIDFilePath())
	if err == nil {
		defer cleanupPID()
	} else {
		cc.Logger.Warn("could not write PID file, pause/resume/retry/abort from another terminal will not reach this upload", slog.String("error", err.Error()))
	}

	shutdownCtx := shutdownContext(ctx, cc.Logger)
	abortEngineOnShutdown(shutdownCtx, engine)

	if flagProgressWS != "" {
		renderCh, mirrorCh := teeEvents(engine.Events())
		go mirrorProgress(ctx, flagProgressWS, mirrorCh, cc.Logger)
		renderEvents(cc, info.Size(), renderCh)
	} else {
		renderEvents(cc, info.Size(), engine.Events())
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

	return finalErr
}

// buildEngineConfig adapts the resolved target config into the engine's
// Config, including URL builders that thread a server-assigned upload ID
// (meta.Raw["uploadId"]) through the chunk and finish endpoints.
//
// The Authorization header is recomputed on every call to GetHeaders rather
// than fixed at construction, since bearerSource transparently refreshes
// and re-persists the underlying OAuth2 token as it expires — a session
// can legitimately outlive the token it started with.
func buildEngineConfig(ctx context.Context, cfg *config.Config, logger *slog.Logger, fileName string, fileSize int64) (*chunkupload.Config, error) {
	target := cfg.Target

	bearer, err := bearerSourceFromPath(ctx, config.TokenFilePath(), target.OAuth, logger)
	if err != nil {
		return nil, err
	}

	requestID := uuid.NewString()

	getHeaders := func() map[string]string {
		headers := map[string]string{"X-Request-Id": requestID}

		if bearer == nil {
			return headers
		}

		h, err := bearer.Header()
		if err != nil {
			logger.Warn("continuing request without a bearer token", slog.String("error", err.Error()))

			return headers
		}

		headers["Authorization"] = h

		return headers
	}

	return &chunkupload.Config{
		FileName:    fileName,
		FileSize:    fileSize,
		LastUpdated: time.Now().UnixMilli(),
		GetHeaders:  getHeaders,
		AutoStart:   true,
		GetChunkStartURL: func() string {
			return joinURL(target.BaseURL, target.OpenPath)
		},
		GetChunkURL: func(fm *chunkupload.FileMeta, index uint32) string {
			return joinURL(target.BaseURL, fmt.Sprintf(target.ChunkPath, uploadID(fm), index))
		},
		GetChunkFinishURL: func(fm *chunkupload.FileMeta) string {
			return joinURL(target.BaseURL, fmt.Sprintf(target.FinishPath, uploadID(fm)))
		},
	}, nil
}

// uploadID extracts the server-assigned session identifier from a
// session-open response's passthrough fields.
func uploadID(fm *chunkupload.FileMeta) string {
	if fm == nil {
		return ""
	}

	if id, ok := fm.Raw["uploadId"].(string); ok {
		return id
	}

	return ""
}

func joinURL(base, path string) string {
	return strings.TrimSuffix(base, "/") + "/" + strings.TrimPrefix(path, "/")
}

// teeEvents duplicates a single event stream into two, closing both once
// in closes. Used only when a progress-ws mirror is requested, so the
// normal single-reader path pays no cost.
func teeEvents(in <-chan chunkupload.UploadEvent) (a, b <-chan chunkupload.UploadEvent) {
	chA := make(chan chunkupload.UploadEvent)
	chB := make(chan chunkupload.UploadEvent)

	go func() {
		defer close(chA)
		defer close(chB)

		for ev := range in {
			chA <- ev
			chB <- ev
		}
	}()

	return chA, chB
}

// renderEvents drains the engine's event stream onto stderr until it
// closes, using a compact single-line progress display on a TTY and plain
// status lines otherwise.
func renderEvents(cc *CLIContext, totalSize int64, events <-chan chunkupload.UploadEvent) {
	tty := isatty.IsTerminal(os.Stderr.Fd())

	for ev := range events {
		switch ev.Kind {
		case chunkupload.EventStart:
			cc.Statusf("Starting upload (%s)\n", formatSize(totalSize))
		case chunkupload.EventChunkStart:
			if ev.FileMeta != nil {
				cc.Statusf("Session opened: %d chunk(s), %d already uploaded\n",
					ev.FileMeta.Chunks, len(ev.FileMeta.UploadedChunks))
			}
		case chunkupload.EventProgress:
			if cc.Quiet {
				continue
			}

			if tty {
				fmt.Fprintf(os.Stderr, "\rProgress: %5.1f%%", ev.Progress*100)
			} else {
				fmt.Fprintf(os.Stderr, "Progress: %.1f%%\n", ev.Progress*100)
			}
		case chunkupload.EventRetryable:
			if ev.Flag {
				cc.Statusf("\nToo many chunk failures — run 'chunkupload retry' to continue, or 'chunkupload abort' to give up\n")
			}
		case chunkupload.EventError:
			cc.Statusf("\nError: %v\n", ev.Err)
		case chunkupload.EventFinish:
			cc.Statusf("\nUpload finished\n")
		case chunkupload.EventPausable:
		}
	}
}
