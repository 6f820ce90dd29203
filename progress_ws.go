package main

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/coder/websocket"

	"github.com/tonimelisma/chunkupload/internal/chunkupload"
)

// progressFrame is the wire shape sent to a connected progress mirror.
type progressFrame struct {
	Kind     string  `json:"kind"`
	Progress float64 `json:"progress,omitempty"`
	Error    string  `json:"error,omitempty"`
}

// mirrorProgress dials wsURL and forwards every event on events as a JSON
// frame, best-effort: a broken mirror connection never interrupts the
// upload itself, it only stops being mirrored. Returns once events closes
// or ctx is cancelled.
func mirrorProgress(ctx context.Context, wsURL string, events <-chan chunkupload.UploadEvent, logger *slog.Logger) {
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	if err != nil {
		logger.Warn("progress mirror: could not connect", slog.String("url", wsURL), slog.String("error", err.Error()))

		return
	}
	defer conn.CloseNow() //nolint:errcheck // best-effort cleanup

	for ev := range events {
		frame := progressFrame{Kind: ev.Kind.String(), Progress: ev.Progress}
		if ev.Err != nil {
			frame.Error = ev.Err.Error()
		}

		data, marshalErr := json.Marshal(frame)
		if marshalErr != nil {
			continue
		}

		if writeErr := conn.Write(ctx, websocket.MessageText, data); writeErr != nil {
			logger.Warn("progress mirror: write failed, stopping mirror", slog.String("error", writeErr.Error()))

			return
		}
	}

	conn.Close(websocket.StatusNormalClosure, "upload stream closed")
}
