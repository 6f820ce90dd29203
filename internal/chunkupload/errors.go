package chunkupload

import (
	"errors"
	"fmt"

	"go.uber.org/multierr"
)

// Sentinel errors for the taxonomy in spec §7. Use errors.Is to classify an
// error surfaced on the event stream or returned from Engine methods.
var (
	// ErrSessionOpenFailed wraps a session-open failure. Terminal.
	ErrSessionOpenFailed = errors.New("chunkupload: session-open failed")

	// ErrMultipleChunkUploadError is raised when the per-run error count
	// reaches the threshold. The only retryable error in the taxonomy.
	ErrMultipleChunkUploadError = errors.New("chunkupload: multiple chunk upload error")

	// ErrFinishFailed wraps a session-finish failure. Terminal.
	ErrFinishFailed = errors.New("chunkupload: finish failed")

	// ErrAborted is returned by Wait when the run ended via Abort. It is
	// never placed on the event
	// stream — abort is surfaced by stream completion alone (spec §7).
	ErrAborted = errors.New("chunkupload: aborted")

	// ErrChunkUploadFailed wraps a single chunk's transport/HTTP failure.
	// Never surfaced individually on the event stream — only counted.
	ErrChunkUploadFailed = errors.New("chunkupload: chunk upload failed")
)

// dispatchError wraps a sentinel with context, mirroring the shape of the
// teacher's *graph.GraphError: a typed error that carries diagnostic detail
// while remaining classifiable via errors.Is/errors.Unwrap.
type dispatchError struct {
	sentinel error
	detail   string
	cause    error
}

func (e *dispatchError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.sentinel, e.detail, e.cause)
	}

	if e.detail != "" {
		return fmt.Sprintf("%s: %s", e.sentinel, e.detail)
	}

	return e.sentinel.Error()
}

func (e *dispatchError) Unwrap() error {
	return e.sentinel
}

// newMultipleChunkUploadError combines the per-chunk causes observed in one
// dispatcher run into a single error naming every failing chunk, instead of
// surfacing only the most recent one.
func newMultipleChunkUploadError(errs map[uint32]error) error {
	var combined error

	for idx, err := range errs {
		combined = multierr.Append(combined, fmt.Errorf("chunk %d: %w", idx, err))
	}

	return &dispatchError{
		sentinel: ErrMultipleChunkUploadError,
		detail:   fmt.Sprintf("%d chunk(s) failed in this run", len(errs)),
		cause:    combined,
	}
}

func wrapSessionOpenErr(err error) error {
	return &dispatchError{sentinel: ErrSessionOpenFailed, cause: err}
}

func wrapFinishErr(err error) error {
	return &dispatchError{sentinel: ErrFinishFailed, cause: err}
}

func wrapChunkErr(index uint32, err error) error {
	return &dispatchError{sentinel: ErrChunkUploadFailed, detail: fmt.Sprintf("chunk %d", index), cause: err}
}
