package chunkupload

import (
	"context"
	"fmt"
	"io"
	"sync"
)

// fakePoster is an in-memory Poster used across the package's tests. It
// classifies requests by URL prefix into session-open, chunk, or finish
// calls, and lets a test script per-chunk failures, delays, and cancellation
// behavior without any real network I/O.
type fakePoster struct {
	mu sync.Mutex

	openURL   string
	chunkURLs map[uint32]string
	finishURL string

	chunks    uint32
	chunkSize uint64
	fileSize  int64
	uploaded  map[uint32]struct{}

	// failChunks marks chunk indices that should fail on their next call.
	failChunks map[uint32]int // remaining failures before success

	finishFails bool
	openFails   bool

	chunkCalls map[uint32]int
	openCalls  int
	finishCall bool
}

func newFakePoster(chunks uint32, chunkSize uint64, fileSize int64) *fakePoster {
	return &fakePoster{
		chunks:     chunks,
		chunkSize:  chunkSize,
		fileSize:   fileSize,
		uploaded:   make(map[uint32]struct{}),
		chunkURLs:  make(map[uint32]string),
		failChunks: make(map[uint32]int),
		chunkCalls: make(map[uint32]int),
		openURL:    "http://upload.test/open",
		finishURL:  "http://upload.test/finish",
	}
}

func (f *fakePoster) urlFor(index uint32) string {
	f.mu.Lock()
	defer f.mu.Unlock()

	if u, ok := f.chunkURLs[index]; ok {
		return u
	}

	u := fmt.Sprintf("http://upload.test/chunk/%d", index)
	f.chunkURLs[index] = u

	return u
}

func (f *fakePoster) markPreUploaded(indices ...uint32) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, idx := range indices {
		f.uploaded[idx] = struct{}{}
	}
}

func (f *fakePoster) failNextN(index uint32, n int) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.failChunks[index] = n
}

func (f *fakePoster) Post(ctx context.Context, req PostRequest) (*PostResponse, error) {
	if req.Body != nil {
		_, _ = io.Copy(io.Discard, req.Body) //nolint:errcheck // draining for progress callbacks only
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	switch {
	case req.URL == f.openURL:
		f.openCalls++

		if f.openFails {
			return nil, fmt.Errorf("fake open failure")
		}

		uploadedList := make([]any, 0, len(f.uploaded))
		for idx := range f.uploaded {
			uploadedList = append(uploadedList, float64(idx))
		}

		return &PostResponse{Decoded: map[string]any{
			"chunks":         float64(f.chunks),
			"chunkSize":      float64(f.chunkSize),
			"fileSize":       float64(f.fileSize),
			"uploadedChunks": uploadedList,
			"sessionId":      "fake-session",
		}}, nil
	case req.URL == f.finishURL:
		f.finishCall = true

		if f.finishFails {
			return nil, fmt.Errorf("fake finish failure")
		}

		return &PostResponse{Decoded: map[string]any{"status": "complete"}}, nil
	default:
		for idx, u := range f.chunkURLs {
			if u == req.URL {
				return f.handleChunk(idx, req)
			}
		}

		return nil, fmt.Errorf("unexpected URL %s", req.URL)
	}
}

func (f *fakePoster) handleChunk(index uint32, req PostRequest) (*PostResponse, error) {
	f.chunkCalls[index]++

	if req.Progress != nil {
		req.Progress(uint64(req.ContentLen))
	}

	if remaining, ok := f.failChunks[index]; ok && remaining > 0 {
		f.failChunks[index] = remaining - 1

		return nil, fmt.Errorf("fake chunk %d failure", index)
	}

	f.uploaded[index] = struct{}{}

	return &PostResponse{}, nil
}

func (f *fakePoster) chunkCallCount(index uint32) int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.chunkCalls[index]
}

// testConfig builds a Config wired to poster's URL scheme.
func testConfig(poster *fakePoster, fileSize int64) *Config {
	return &Config{
		FileName:         "test.bin",
		FileSize:         fileSize,
		LastUpdated:      0,
		AutoStart:        true,
		GetChunkStartURL: func() string { return poster.openURL },
		GetChunkURL: func(_ *FileMeta, index uint32) string {
			return poster.urlFor(index)
		},
		GetChunkFinishURL: func(_ *FileMeta) string { return poster.finishURL },
	}
}

type memBlob struct {
	data []byte
}

func newMemBlob(size int64) *memBlob {
	return &memBlob{data: make([]byte, size)}
}

func (b *memBlob) Size() int64 { return int64(len(b.data)) }

func (b *memBlob) Slice(from, to int64) Blob {
	return &memBlob{data: b.data[from:to]}
}

func (b *memBlob) Reader() io.Reader {
	return &sliceReader{data: b.data}
}

type sliceReader struct {
	data []byte
	pos  int
}

func (s *sliceReader) Read(p []byte) (int, error) {
	if s.pos >= len(s.data) {
		return 0, io.EOF
	}

	n := copy(p, s.data[s.pos:])
	s.pos += n

	return n, nil
}
