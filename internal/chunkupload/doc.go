// Package chunkupload implements a resumable chunked upload engine: it
// splits a blob into ordered byte-range chunks, opens a server-side upload
// session, dispatches chunk PUTs with bounded parallelism, and finishes the
// session once every chunk is accounted for.
//
// An Engine exposes start/pause/resume/retry/abort control and a single
// ordered stream of UploadEvent values. Chunks that fail without reaching
// the error threshold are attempted again in the engine's next pass; once
// the threshold trips, the run surfaces a MultipleChunkUploadError and
// continues only in response to an explicit Retry call. No other error is
// recoverable.
package chunkupload
