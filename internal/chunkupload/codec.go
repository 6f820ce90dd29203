package chunkupload

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
)

// jsonReader marshals v to a JSON io.Reader. Used for the session-open and
// session-finish bodies; the engine never needs to re-read either (the
// Opener's sync.Once guarantees session-open happens exactly once, and
// finish is issued once), so a plain bytes.Reader is enough — unlike chunk
// bodies, which are re-read from a Blob on every attempt.
func jsonReader(v any) io.Reader {
	data, err := json.Marshal(v)
	if err != nil {
		// Marshaling a map[string]any of scalars cannot fail in practice;
		// surface a reader that errors on Read rather than panicking.
		return errReader{err: fmt.Errorf("chunkupload: marshaling request body: %w", err)}
	}

	return bytes.NewReader(data)
}

type errReader struct{ err error }

func (e errReader) Read([]byte) (int, error) { return 0, e.err }

// decodeFileMeta normalizes a server's session-open/status JSON body into a
// FileMeta. The wire shape is server-defined (spec §6); this implementation
// expects the fields named in spec §3 at the top level, plus optional
// passthrough fields collected into Raw.
func decodeFileMeta(decoded any) (*FileMeta, error) {
	obj, ok := decoded.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("session-open response is not a JSON object")
	}

	chunks, err := asUint32(obj["chunks"])
	if err != nil {
		return nil, fmt.Errorf("decoding chunks: %w", err)
	}

	chunkSize, err := asUint64(obj["chunkSize"])
	if err != nil {
		return nil, fmt.Errorf("decoding chunkSize: %w", err)
	}

	fileSize, err := asUint64(obj["fileSize"])
	if err != nil {
		return nil, fmt.Errorf("decoding fileSize: %w", err)
	}

	uploaded := make(map[uint32]struct{})

	if raw, ok := obj["uploadedChunks"].([]any); ok {
		for _, v := range raw {
			idx, err := asUint32(v)
			if err != nil {
				return nil, fmt.Errorf("decoding uploadedChunks entry: %w", err)
			}

			uploaded[idx] = struct{}{}
		}
	}

	raw := make(map[string]any, len(obj))
	for k, v := range obj {
		switch k {
		case "chunks", "chunkSize", "fileSize", "uploadedChunks":
			continue
		default:
			raw[k] = v
		}
	}

	return &FileMeta{
		Chunks:         chunks,
		ChunkSize:      chunkSize,
		FileSize:       fileSize,
		UploadedChunks: uploaded,
		Raw:            raw,
	}, nil
}

func asUint32(v any) (uint32, error) {
	n, err := asUint64(v)
	if err != nil {
		return 0, err
	}

	return uint32(n), nil //nolint:gosec // chunk counts/indices fit comfortably in uint32
}

func asUint64(v any) (uint64, error) {
	f, ok := v.(float64)
	if !ok {
		return 0, fmt.Errorf("expected a JSON number, got %T", v)
	}

	if f < 0 {
		return 0, fmt.Errorf("expected a non-negative number, got %v", f)
	}

	return uint64(f), nil
}
